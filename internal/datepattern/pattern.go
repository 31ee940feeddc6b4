// Package datepattern compiles SimpleDateFormat-style date patterns
// ("MM/dd/yyyy", "MMMM d, yyyy") into Go time layouts.
//
// A compiled Layout carries two Go layouts. The parse layout accepts one or
// two digits for numeric fields, so "MM" matches both "1" and "01". The
// format layout pads numeric fields to the letter count, so "dd" always
// renders two digits.
//
// Supported letters: y, M, L, d, E, H, h, m, s, S, a, z, Z, X. Text between
// single quotes is literal and '' is a single quote. Literal text may not
// contain digits, '_' or Go reference names (Jan, Mon, MST, PM) because Go
// layouts cannot escape them.
package datepattern

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// ErrUnsupportedPattern is returned when a pattern cannot be expressed as a Go layout.
var ErrUnsupportedPattern = errors.New("unsupported date pattern")

// reservedLiterals are substrings Go would read as layout elements.
var reservedLiterals = []string{"Jan", "Mon", "MST", "PM", "pm"}

// Layout is a compiled date pattern. The zero value is not usable.
type Layout struct {
	pattern string
	parse   string
	format  string
}

// Compile turns a date pattern into a Layout.
func Compile(pattern string) (Layout, error) {
	if strings.TrimSpace(pattern) == "" {
		return Layout{}, fmt.Errorf("%w: empty pattern", ErrUnsupportedPattern)
	}

	var parse, format, literal strings.Builder
	flush := func() error {
		lit := literal.String()
		literal.Reset()
		if err := checkLiteral(pattern, lit); err != nil {
			return err
		}
		parse.WriteString(lit)
		format.WriteString(lit)
		return nil
	}

	runes := []rune(pattern)
	for i := 0; i < len(runes); {
		c := runes[i]
		switch {
		case c == '\'':
			next, err := readQuoted(pattern, runes, i, &literal)
			if err != nil {
				return Layout{}, err
			}
			i = next
		case c < unicode.MaxASCII && unicode.IsLetter(c):
			n := 1
			for i+n < len(runes) && runes[i+n] == c {
				n++
			}
			if err := flush(); err != nil {
				return Layout{}, err
			}
			p, f, err := element(c, n, format.String())
			if err != nil {
				return Layout{}, fmt.Errorf("%w: %q: %v", ErrUnsupportedPattern, pattern, err)
			}
			parse.WriteString(p)
			format.WriteString(f)
			i += n
		default:
			literal.WriteRune(c)
			i++
		}
	}
	if err := flush(); err != nil {
		return Layout{}, err
	}

	return Layout{pattern: pattern, parse: parse.String(), format: format.String()}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(pattern string) Layout {
	l, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return l
}

// Pattern returns the source pattern.
func (l Layout) Pattern() string { return l.pattern }

// String returns the source pattern.
func (l Layout) String() string { return l.pattern }

// Parse parses value in UTC. Trailing text that the layout does not
// consume is an error.
func (l Layout) Parse(value string) (time.Time, error) {
	return time.ParseInLocation(l.parse, value, time.UTC)
}

// Format renders t using the pattern.
func (l Layout) Format(t time.Time) string {
	return t.Format(l.format)
}

// readQuoted consumes a quoted section starting at runes[start] and returns
// the index after it.
func readQuoted(pattern string, runes []rune, start int, literal *strings.Builder) (int, error) {
	if start+1 < len(runes) && runes[start+1] == '\'' {
		literal.WriteRune('\'')
		return start + 2, nil
	}
	for i := start + 1; i < len(runes); i++ {
		if runes[i] != '\'' {
			literal.WriteRune(runes[i])
			continue
		}
		if i+1 < len(runes) && runes[i+1] == '\'' {
			literal.WriteRune('\'')
			i++
			continue
		}
		return i + 1, nil
	}
	return 0, fmt.Errorf("%w: %q: unterminated quote", ErrUnsupportedPattern, pattern)
}

func checkLiteral(pattern, lit string) error {
	for _, r := range lit {
		if unicode.IsDigit(r) || r == '_' {
			return fmt.Errorf("%w: %q: literal %q cannot contain %q", ErrUnsupportedPattern, pattern, lit, r)
		}
	}
	for _, word := range reservedLiterals {
		if strings.Contains(lit, word) {
			return fmt.Errorf("%w: %q: literal %q contains %q", ErrUnsupportedPattern, pattern, lit, word)
		}
	}
	return nil
}

// element maps a run of n identical pattern letters to parse and format layout chunks.
func element(c rune, n int, formatSoFar string) (parse, format string, err error) {
	switch c {
	case 'y':
		if n == 2 {
			return "06", "06", nil
		}
		return "2006", "2006", nil
	case 'M', 'L':
		switch {
		case n >= 4:
			return "January", "January", nil
		case n == 3:
			return "Jan", "Jan", nil
		case n == 2:
			return "1", "01", nil
		default:
			return "1", "1", nil
		}
	case 'd':
		if n >= 2 {
			return "2", "02", nil
		}
		return "2", "2", nil
	case 'E':
		if n >= 4 {
			return "Monday", "Monday", nil
		}
		return "Mon", "Mon", nil
	case 'H':
		return "15", "15", nil
	case 'h':
		if n >= 2 {
			return "3", "03", nil
		}
		return "3", "3", nil
	case 'm':
		if n >= 2 {
			return "4", "04", nil
		}
		return "4", "4", nil
	case 's':
		if n >= 2 {
			return "5", "05", nil
		}
		return "5", "5", nil
	case 'S':
		if !strings.HasSuffix(formatSoFar, ".") && !strings.HasSuffix(formatSoFar, ",") {
			return "", "", errors.New("fractional seconds must follow '.' or ','")
		}
		zeros := strings.Repeat("0", n)
		return zeros, zeros, nil
	case 'a':
		return "PM", "PM", nil
	case 'z':
		return "MST", "MST", nil
	case 'Z':
		return "-0700", "-0700", nil
	case 'X':
		switch n {
		case 1:
			return "Z07", "Z07", nil
		case 2:
			return "Z0700", "Z0700", nil
		default:
			return "Z07:00", "Z07:00", nil
		}
	}
	return "", "", fmt.Errorf("unknown pattern letter %q", c)
}
