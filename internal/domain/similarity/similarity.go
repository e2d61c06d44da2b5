// Package similarity decides when two noisy recognitions name the same thing.
package similarity

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
)

const (
	DefaultThreshold = 0.35

	// NoTitle is written by title resolvers that saw no readable title.
	NoTitle = "No Title"
)

// Similarity returns 1 - distance/maxLen over runes. Either side empty yields
// 0 so a failed recognition never matches anything.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}

type Policy struct {
	Threshold float64
}

func Default() Policy { return Policy{Threshold: DefaultThreshold} }

// SameID reports a case-insensitive exact match or a fuzzy match at or above
// the threshold.
func (p Policy) SameID(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if cases.Fold().String(a) == cases.Fold().String(b) {
		return true
	}
	return Similarity(a, b) >= p.threshold()
}

func (p Policy) SimilarTitle(a, b string) bool {
	if a == "" || b == "" || a == NoTitle || b == NoTitle {
		return false
	}
	return Similarity(a, b) >= p.threshold()
}

// Match compares raw recognized text.
func (p Policy) Match(a, b string) bool {
	return Similarity(a, b) >= p.threshold()
}

func (p Policy) threshold() float64 {
	if p.Threshold <= 0 {
		return DefaultThreshold
	}
	return p.Threshold
}
