package scraper

import (
	"strconv"
	"strings"
)

// parseInt converts loosely-formatted count text to an int. Empty or
// unparseable text yields 0; counts are never an error.
func parseInt(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// parseFloat converts loosely-formatted score text to a float. Empty
// or unparseable text yields nil; scores are never an error.
func parseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// isDigits reports whether s is non-empty and all ASCII digits. Used
// as the subject-code validity predicate.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
