// Package embedid pulls the embedded video identifier out of recognized
// address-bar text.
package embedid

import (
	"regexp"
	"strings"
	"unicode"
)

// Length of a video identifier token.
const Length = 11

// Priority order: watch/short URL, embed URL, bare token. The bare token is a
// known noise source on busy frames.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtu\.be/|youtube\.com/watch\?v=)([\w-]{11})`),
	regexp.MustCompile(`youtube\.com/embed/([\w-]{11})`),
	regexp.MustCompile(`([\w-]{11})`),
}

// Extract returns the identifier from the first pattern that matches. A match
// with no letters in it (timestamps, counters) is rejected outright.
func Extract(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if !hasLetter(m[1]) {
			return "", false
		}
		return m[1], true
	}
	return "", false
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
