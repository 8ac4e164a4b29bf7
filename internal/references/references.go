// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package references finds the paper identifiers a document cites.
// Matching is best-effort: every regex hit is kept, including duplicates
// and partial identifiers, in the order the patterns find them.
package references

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultPatterns match "arXiv:1705.03122" style citations and
// "abs/1705.03122" URL fragments. The unescaped dot matches any separator
// between the two digit runs.
var DefaultPatterns = []string{
	`arXiv:[0-9]+.[0-9]+`,
	`abs/[0-9]+.[0-9]+`,
}

// Extractor applies an ordered list of patterns to document text.
type Extractor struct {
	patterns []*regexp.Regexp
}

// New compiles the given patterns. With no patterns it uses DefaultPatterns.
func New(patterns ...string) (*Extractor, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	e := &Extractor{patterns: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compiling reference pattern %q: %w", p, err)
		}
		e.patterns = append(e.patterns, re)
	}
	return e, nil
}

// Default returns an Extractor using DefaultPatterns.
func Default() *Extractor {
	e, err := New()
	if err != nil {
		panic(err)
	}
	return e
}

// Extract returns the identifiers found in text. A nil text yields an
// empty, non-nil slice. Results are grouped by pattern in declaration
// order, and within a pattern in match order.
func (e *Extractor) Extract(text *string) []string {
	ids := []string{}
	if text == nil {
		return ids
	}
	for _, re := range e.patterns {
		for _, m := range re.FindAllString(*text, -1) {
			ids = append(ids, Normalize(m))
		}
	}
	return ids
}

// Normalize keeps only the digits and dots of s.
func Normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)
}
