package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	maxTitleRunes = 78
	maxNameRunes  = 100
	clipExt       = ".mp4"
)

var unsafeNameChars = regexp.MustCompile(`[\\/*?:"<>|]`)

// ClipNamer hands out unique clip paths inside dir. A name already used in
// this run or already on disk gets a " Part N" suffix starting at 2.
type ClipNamer struct {
	dir    string
	prefix string
	used   map[string]struct{}
}

func NewClipNamer(dir, prefix string) *ClipNamer {
	return &ClipNamer{dir: dir, prefix: prefix, used: map[string]struct{}{}}
}

// Next returns the path for a clip of title. An empty title falls back to id.
func (n *ClipNamer) Next(title, id string) string {
	base := n.baseName(title, id)
	stem := strings.TrimSuffix(base, clipExt)
	candidate := base
	for part := 2; n.taken(candidate); part++ {
		candidate = fmt.Sprintf("%s Part %d%s", stem, part, clipExt)
	}
	n.used[candidate] = struct{}{}
	return filepath.Join(n.dir, candidate)
}

func (n *ClipNamer) baseName(title, id string) string {
	safe := strings.TrimSpace(unsafeNameChars.ReplaceAllString(title, ""))
	if safe == "" {
		safe = unsafeNameChars.ReplaceAllString(id, "")
	}
	if safe == "" {
		safe = "segment"
	}
	name := n.prefix + runePrefix(safe, maxTitleRunes)
	name = strings.TrimSpace(runePrefix(name, maxNameRunes-len(clipExt)))
	return name + clipExt
}

func (n *ClipNamer) taken(name string) bool {
	if _, ok := n.used[name]; ok {
		return true
	}
	_, err := os.Stat(filepath.Join(n.dir, name))
	return err == nil
}

func runePrefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
