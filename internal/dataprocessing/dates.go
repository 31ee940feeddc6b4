package dataprocessing

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"zipcsv/internal/datepattern"
)

// ordinalSuffix matches an English ordinal suffix directly after a digit.
var ordinalSuffix = regexp.MustCompile(`(\d)(?:st|nd|rd|th)`)

// StripOrdinalSuffixes removes st, nd, rd and th when they follow a digit,
// so "January 21st, 2020" becomes "January 21, 2020". Text without a
// preceding digit is left alone.
func StripOrdinalSuffixes(s string) string {
	return ordinalSuffix.ReplaceAllString(s, "${1}")
}

// PatternFailure records why one pattern rejected a value.
type PatternFailure struct {
	Pattern string
	Err     error
}

// DateParseError is returned when no configured pattern accepts a value.
type DateParseError struct {
	Value    string
	Cleaned  string
	Failures []PatternFailure
}

func (e *DateParseError) Error() string {
	patterns := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		patterns[i] = f.Pattern
	}
	return fmt.Sprintf("unparseable date %q: tried %d pattern(s) [%s]",
		e.Value, len(e.Failures), strings.Join(patterns, ", "))
}

// Unwrap exposes each per-pattern failure.
func (e *DateParseError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// ErrNoPatterns is returned when a converter is built from an empty list.
var ErrNoPatterns = errors.New("at least one date pattern is required")

// DateConverter turns date text into a time using an ordered list of patterns.
// It is immutable after construction and safe for concurrent use.
type DateConverter struct {
	layouts []datepattern.Layout
}

// NewDateConverter compiles patterns in order. The first pattern that
// accepts a value wins.
func NewDateConverter(patterns []string) (*DateConverter, error) {
	if len(patterns) == 0 {
		return nil, ErrNoPatterns
	}

	layouts := make([]datepattern.Layout, 0, len(patterns))
	for _, p := range patterns {
		l, err := datepattern.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile date pattern %q: %w", p, err)
		}
		layouts = append(layouts, l)
	}
	return &DateConverter{layouts: layouts}, nil
}

// Patterns returns the configured patterns in match order.
func (c *DateConverter) Patterns() []string {
	out := make([]string, len(c.layouts))
	for i, l := range c.layouts {
		out[i] = l.Pattern()
	}
	return out
}

// Convert strips ordinal suffixes from raw and parses it with the first
// pattern that accepts the whole value.
func (c *DateConverter) Convert(raw string) (time.Time, error) {
	cleaned := StripOrdinalSuffixes(raw)

	failures := make([]PatternFailure, 0, len(c.layouts))
	for _, l := range c.layouts {
		t, err := l.Parse(cleaned)
		if err == nil {
			return t, nil
		}
		failures = append(failures, PatternFailure{Pattern: l.Pattern(), Err: err})
	}

	return time.Time{}, &DateParseError{Value: raw, Cleaned: cleaned, Failures: failures}
}
