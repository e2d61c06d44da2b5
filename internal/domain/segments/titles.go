package segments

import (
	"context"
	"log/slog"
	"strings"
)

// WriteGate controls whether a title lookup may bind a new cache entry.
type WriteGate int

const (
	// ReadOnly returns cached titles only and never calls the resolver.
	ReadOnly WriteGate = iota
	// WriteOnce resolves and binds a title for an identifier seen for the
	// first time.
	WriteOnce
)

// TitleFunc resolves the title shown at a sample index.
type TitleFunc func(ctx context.Context, idx int) (string, error)

// TitleCache maps identifier to title for one run. Entries are written at
// most once and never overwritten; a failed resolution binds "".
type TitleCache struct {
	titles  map[string]string
	resolve TitleFunc
	calls   int
	logger  *slog.Logger
}

func NewTitleCache(resolve TitleFunc, logger *slog.Logger) *TitleCache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TitleCache{titles: make(map[string]string), resolve: resolve, logger: logger}
}

func (c *TitleCache) Lookup(id string) (string, bool) {
	t, ok := c.titles[id]
	return t, ok
}

// Resolve returns the title bound to id. With ReadOnly an unseen id yields ""
// and leaves the cache untouched.
func (c *TitleCache) Resolve(ctx context.Context, id string, idx int, gate WriteGate) string {
	if t, ok := c.titles[id]; ok {
		return t
	}
	if gate != WriteOnce || id == "" {
		return ""
	}
	c.calls++
	title, err := c.resolve(ctx, idx)
	if err != nil {
		c.logger.Warn("title resolution failed", "id", id, "frame", idx, "error", err)
		title = ""
	}
	title = strings.TrimSpace(title)
	c.titles[id] = title
	c.logger.Info("title resolved", "id", id, "frame", idx, "title", title)
	return title
}

// Calls counts backing resolver invocations.
func (c *TitleCache) Calls() int { return c.calls }

func (c *TitleCache) Len() int { return len(c.titles) }
