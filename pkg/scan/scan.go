// Package scan implements exact byte-pattern search over an in-memory buffer.
//
// All functions are pure: they never mutate the buffer and clamp every
// window to the buffer bounds, so any start/end pair is safe to pass.
package scan

import "bytes"

// NotFound is returned when a pattern does not occur in the searched window.
const NotFound = -1

// Find returns the leftmost offset i with start <= i <= end at which pattern
// occurs in buf. end is clamped to len(buf)-len(pattern) and a negative start
// is treated as 0. Empty patterns are never found.
func Find(buf, pattern []byte, start, end int) int {
	if len(pattern) == 0 {
		return NotFound
	}
	if start < 0 {
		start = 0
	}
	if limit := len(buf) - len(pattern); end > limit {
		end = limit
	}
	if start > end {
		return NotFound
	}

	idx := bytes.Index(buf[start:end+len(pattern)], pattern)
	if idx < 0 {
		return NotFound
	}
	return start + idx
}

// FindAny returns the leftmost occurrence of any of the patterns inside the
// window together with the index of the pattern that matched. When two
// patterns match at the same offset the earlier pattern wins.
func FindAny(buf []byte, patterns [][]byte, start, end int) (int, int) {
	best, which := NotFound, -1
	for i, p := range patterns {
		limit := end
		if best != NotFound && best < limit {
			// Nothing past the current best can win.
			limit = best
		}
		off := Find(buf, p, start, limit)
		if off == NotFound {
			continue
		}
		if best == NotFound || off < best {
			best, which = off, i
		}
	}
	return best, which
}

// Scanner walks a buffer forward looking for the leftmost occurrence of any
// of a fixed set of patterns. The next hit of every pattern is remembered and
// only searched again once the walk has passed it, so a full walk reads the
// buffer once per pattern no matter how many hits are skipped.
type Scanner struct {
	buf      []byte
	patterns [][]byte
	hits     []int
	searched []bool
	last     int
}

// NewScanner creates a scanner over buf. Ties between patterns at the same
// offset go to the earlier pattern, as in FindAny.
func NewScanner(buf []byte, patterns [][]byte) *Scanner {
	return &Scanner{
		buf:      buf,
		patterns: patterns,
		hits:     make([]int, len(patterns)),
		searched: make([]bool, len(patterns)),
	}
}

// Next returns the leftmost hit at or after offset and the index of the
// pattern that matched, or NotFound and -1. Moving offset backwards drops
// the remembered hits.
func (s *Scanner) Next(offset int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset < s.last {
		clear(s.searched)
	}
	s.last = offset

	best, which := NotFound, -1
	for i, p := range s.patterns {
		// A remembered hit at or past offset is still the leftmost one, and
		// a pattern that was not found stays not found.
		if !s.searched[i] || (s.hits[i] != NotFound && s.hits[i] < offset) {
			s.hits[i] = Find(s.buf, p, offset, len(s.buf))
			s.searched[i] = true
		}
		if hit := s.hits[i]; hit != NotFound && (best == NotFound || hit < best) {
			best, which = hit, i
		}
	}
	return best, which
}
