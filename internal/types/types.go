package types

import "time"

// Region is a named crop applied to every sampled frame. Crop is an ffmpeg
// crop filter expression, e.g. "crop=in_w*0.4:in_h*0.06:in_w*0.055:in_h*0.03".
type Region struct {
	Name string `toml:"name" json:"name"`
	Crop string `toml:"crop" json:"crop"`
}

// RawSegment is a detection emitted by the scanner, in sample-index units.
type RawSegment struct {
	ID         string
	StartFrame int
	EndFrame   int
	Title      string
}

// Span converts frame indices to stream time.
func (r RawSegment) Span(interval time.Duration) Segment {
	return Segment{
		ID:    r.ID,
		Start: time.Duration(r.StartFrame) * interval,
		End:   time.Duration(r.EndFrame) * interval,
		Title: r.Title,
	}
}

type Segment struct {
	ID    string
	Start time.Duration
	End   time.Duration
	Title string
}

func (s Segment) Duration() time.Duration { return s.End - s.Start }

type Catalog struct {
	Input           string         `json:"input"`
	RunID           string         `json:"run_id"`
	IntervalSeconds float64        `json:"interval_seconds"`
	Segments        []CatalogEntry `json:"segments"`
}

type CatalogEntry struct {
	ID       string  `json:"id"`
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Title    string  `json:"title"`
	File     string  `json:"file,omitempty"`
}
