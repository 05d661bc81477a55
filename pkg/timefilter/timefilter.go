// Package timefilter turns the --since-time argument into an absolute
// cutoff.
//
// Two forms are accepted: a bare Unix timestamp ("1609459200") or a count
// of minutes, hours or days before now ("30m", "2h", "7d").
package timefilter

import (
	"strconv"
	"strings"
	"time"

	"snapmap-archiver/pkg/errors"
)

var units = map[byte]int64{
	'm': 60,
	'h': 60 * 60,
	'd': 24 * 60 * 60,
}

// Parse evaluates s against the current time
func Parse(s string) (int64, error) {
	return ParseAt(s, time.Now())
}

// ParseAt evaluates s with now as the reference for relative forms. Units
// are case-insensitive.
func ParseAt(s string, now time.Time) (int64, error) {
	s = strings.ToLower(s)
	if s == "" {
		return 0, &errors.ParseError{Kind: "time filter", Input: s, Reason: "empty"}
	}

	if isDigits(s) {
		ts, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, &errors.ParseError{Kind: "time filter", Input: s, Reason: "timestamp out of range"}
		}
		return ts, nil
	}

	multiplier, ok := units[s[len(s)-1]]
	if !ok {
		return 0, &errors.ParseError{Kind: "time filter", Input: s, Reason: "unit must be one of m, h, d"}
	}
	prefix := s[:len(s)-1]
	if !isDigits(prefix) {
		return 0, &errors.ParseError{Kind: "time filter", Input: s, Reason: "amount must be a non-negative integer"}
	}
	n, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return 0, &errors.ParseError{Kind: "time filter", Input: s, Reason: "amount out of range"}
	}

	return now.Unix() - n*multiplier, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
