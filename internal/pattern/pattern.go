// File: internal/pattern/pattern.go
// Package pattern implements the small matcher type used by element
// descriptors and driver queries. A Pattern is one of three shapes (an exact
// literal, a case-insensitive substring, or a compiled regular expression) and
// is compiled exactly once, when it is built.
package pattern

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Kind identifies which shape a Pattern has.
type Kind int

const (
	// KindContains matches a case-insensitive substring. It is the default
	// for plain strings.
	KindContains Kind = iota
	// KindExact matches the whole, whitespace-normalized text, case-sensitively.
	KindExact
	// KindRegex matches a case-insensitive regular expression.
	KindRegex
)

func (k Kind) String() string {
	switch k {
	case KindExact:
		return "exact"
	case KindRegex:
		return "regex"
	default:
		return "contains"
	}
}

// ErrEmptyPattern is returned when a pattern is built from an empty string.
var ErrEmptyPattern = errors.New("pattern: empty pattern")

// Pattern is an immutable text matcher. The zero value matches nothing and
// reports IsZero() == true.
type Pattern struct {
	kind  Kind
	raw   string
	lower string
	re    *regexp.Regexp
}

// Exact builds a pattern that matches the entire normalized text.
func Exact(s string) Pattern {
	n := Normalize(s)
	return Pattern{kind: KindExact, raw: n, lower: strings.ToLower(n)}
}

// Contains builds a case-insensitive substring pattern.
func Contains(s string) Pattern {
	n := Normalize(s)
	return Pattern{kind: KindContains, raw: n, lower: strings.ToLower(n)}
}

// Regex compiles expr as a case-insensitive regular expression.
func Regex(expr string) (Pattern, error) {
	if expr == "" {
		return Pattern{}, ErrEmptyPattern
	}
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("pattern: invalid regular expression %q: %w", expr, err)
	}
	return Pattern{kind: KindRegex, raw: expr, re: re}, nil
}

// MustRegex is like Regex but panics on an invalid expression.
// It is intended for package-level fixtures and tests.
func MustRegex(expr string) Pattern {
	p, err := Regex(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// Parse turns a raw descriptor string into a Pattern:
//
//	/expr/ or /expr/i  -> Regex
//	=literal           -> Exact
//	anything else      -> Contains
func Parse(s string) (Pattern, error) {
	if strings.TrimSpace(s) == "" {
		return Pattern{}, ErrEmptyPattern
	}
	if len(s) >= 2 && strings.HasPrefix(s, "/") {
		body := s[1:]
		body = strings.TrimSuffix(body, "i")
		if strings.HasSuffix(body, "/") && len(body) > 1 {
			return Regex(strings.TrimSuffix(body, "/"))
		}
	}
	if strings.HasPrefix(s, "=") {
		if strings.TrimSpace(s[1:]) == "" {
			return Pattern{}, ErrEmptyPattern
		}
		return Exact(s[1:]), nil
	}
	return Contains(s), nil
}

// ParseAll parses every string in order, failing on the first invalid entry.
func ParseAll(raw []string) ([]Pattern, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]Pattern, 0, len(raw))
	for i, s := range raw {
		p, err := Parse(s)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// Kind reports the pattern shape.
func (p Pattern) Kind() Kind { return p.kind }

// Raw returns the literal (normalized) or the regular expression source.
func (p Pattern) Raw() string { return p.raw }

// Regexp returns the compiled expression for regex patterns and nil otherwise.
func (p Pattern) Regexp() *regexp.Regexp { return p.re }

// IsZero reports whether p was never built.
func (p Pattern) IsZero() bool { return p.raw == "" && p.re == nil }

// AsExact returns the exact-match variant of a literal pattern.
// Regex patterns are returned unchanged.
func (p Pattern) AsExact() Pattern {
	if p.kind == KindRegex || p.IsZero() {
		return p
	}
	return Exact(p.raw)
}

// Match reports whether s satisfies the pattern. Candidate text is
// whitespace-normalized before comparison.
func (p Pattern) Match(s string) bool {
	if p.IsZero() {
		return false
	}
	n := Normalize(s)
	switch p.kind {
	case KindExact:
		return n == p.raw
	case KindRegex:
		return p.re.MatchString(n)
	default:
		return strings.Contains(strings.ToLower(n), p.lower)
	}
}

// String renders the pattern in the same syntax Parse accepts.
func (p Pattern) String() string {
	switch p.kind {
	case KindExact:
		return "=" + p.raw
	case KindRegex:
		return "/" + p.raw + "/i"
	default:
		return p.raw
	}
}

// Normalize collapses runs of whitespace into single spaces and trims the ends.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
