// Package catalog turns merged segments into the files and listings handed to
// downstream tooling.
package catalog

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/forPelevin/embedscan/internal/types"
)

// CSVHeader is the column layout of segments.csv.
var CSVHeader = []string{"ID", "Start (s)", "End (s)", "Title"}

func Build(input, runID string, interval time.Duration, segs []types.Segment) types.Catalog {
	c := types.Catalog{
		Input:           input,
		RunID:           runID,
		IntervalSeconds: interval.Seconds(),
		Segments:        make([]types.CatalogEntry, 0, len(segs)),
	}
	for _, s := range segs {
		c.Segments = append(c.Segments, types.CatalogEntry{
			ID:       s.ID,
			StartSec: s.Start.Seconds(),
			EndSec:   s.End.Seconds(),
			Title:    s.Title,
		})
	}
	return c
}

// WriteCSV replaces path with the catalog rows. The file is never left half
// written.
func WriteCSV(path string, c types.Catalog) error {
	return writeAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(CSVHeader); err != nil {
			return err
		}
		for _, e := range c.Segments {
			row := []string{e.ID, formatSeconds(e.StartSec), formatSeconds(e.EndSec), e.Title}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

func WriteJSON(path string, c types.Catalog) error {
	return writeAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	})
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}

func writeAtomic(path string, fill func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".embedscan-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := fill(tmp); err != nil {
		return fail(fmt.Errorf("write %s: %w", filepath.Base(path), err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("sync: %w", err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
