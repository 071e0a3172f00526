// internal/healing/strategy.go
package healing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xkilldash9x/scalpel-heal/internal/driver"
	"github.com/xkilldash9x/scalpel-heal/internal/driver/domquery"
	"github.com/xkilldash9x/scalpel-heal/internal/element"
	"github.com/xkilldash9x/scalpel-heal/internal/pattern"
)

// Canonical strategy names, in priority order.
const (
	StrategyRoleWithText   = "role-with-text"
	StrategyRoleWithLabel  = "role-with-label"
	StrategyLabel          = "label"
	StrategyPlaceholder    = "placeholder"
	StrategyText           = "text"
	StrategyTestID         = "test-id"
	StrategyTitle          = "title"
	StrategyAltText        = "alt-text"
	StrategyAttribute      = "attribute"
	StrategyClassWithTag   = "class-with-tag"
	StrategyRole           = "role"
	StrategyStructuralText = "structural-text"
)

var (
	// ErrStrategySkipped means the pattern category a strategy needs is empty.
	ErrStrategySkipped = errors.New("strategy does not apply")
	// ErrNoCandidate means the strategy ran but no query produced a visible
	// element.
	ErrNoCandidate = errors.New("no visible candidate")
)

// acceptFunc probes one candidate query. It reports whether the query matches
// at least one element and its first match became visible within the probe
// window.
type acceptFunc func(ctx context.Context, el driver.Elements) (bool, error)

// Candidate is what a strategy hands back on success.
type Candidate struct {
	Handle driver.Elements
	// Detail says which pattern produced the match, for diagnostics.
	Detail string
}

// strategy turns one pattern category of a descriptor into element queries.
type strategy struct {
	name    string
	resolve func(ctx context.Context, req request) (Candidate, error)
}

// request bundles what every strategy receives.
type request struct {
	page   driver.Page
	desc   *element.Descriptor
	accept acceptFunc
	// ambiguity is the candidate count at which the pure role lookup gives up.
	ambiguity int
}

// firstAccepted probes the queries in order and returns the first match of the
// first one accepted, which is the element the probe checked. Errors from one
// query abort the strategy; the chain moves on to the next one.
func firstAccepted(ctx context.Context, req request, queries []candidateQuery) (Candidate, error) {
	for _, q := range queries {
		ok, err := req.accept(ctx, q.el)
		if err != nil {
			return Candidate{}, fmt.Errorf("probing %s: %w", q.el, err)
		}
		if ok {
			return Candidate{Handle: q.el.First(), Detail: q.detail}, nil
		}
	}
	return Candidate{}, ErrNoCandidate
}

type candidateQuery struct {
	el     driver.Elements
	detail string
}

// chain returns the fixed, priority-ordered strategy list.
func chain() []strategy {
	return []strategy{
		{StrategyRoleWithText, roleWithText},
		{StrategyRoleWithLabel, roleWithLabel},
		{StrategyLabel, byLabel},
		{StrategyPlaceholder, byPlaceholder},
		{StrategyText, byText},
		{StrategyTestID, byTestID},
		{StrategyTitle, byTitle},
		{StrategyAltText, byAltText},
		{StrategyAttribute, byAttribute},
		{StrategyClassWithTag, classWithTag},
		{StrategyRole, byRole},
		{StrategyStructuralText, structuralText},
	}
}

func roleNamed(ctx context.Context, req request, patterns []pattern.Pattern) (Candidate, error) {
	if !req.desc.HasRole() || len(patterns) == 0 {
		return Candidate{}, ErrStrategySkipped
	}
	role := req.desc.Role().String()
	queries := make([]candidateQuery, 0, len(patterns))
	for _, p := range patterns {
		queries = append(queries, candidateQuery{
			el:     req.page.QueryByRole(role, driver.RoleOptions{Name: &p}),
			detail: fmt.Sprintf("role %s named %s", role, p),
		})
	}
	return firstAccepted(ctx, req, queries)
}

func roleWithText(ctx context.Context, req request) (Candidate, error) {
	return roleNamed(ctx, req, req.desc.TextPatterns())
}

func roleWithLabel(ctx context.Context, req request) (Candidate, error) {
	return roleNamed(ctx, req, req.desc.LabelPatterns())
}

// each builds one query per pattern with the given page query.
func each(ctx context.Context, req request, category string, patterns []pattern.Pattern, query func(pattern.Pattern) driver.Elements) (Candidate, error) {
	if len(patterns) == 0 {
		return Candidate{}, ErrStrategySkipped
	}
	queries := make([]candidateQuery, 0, len(patterns))
	for _, p := range patterns {
		queries = append(queries, candidateQuery{el: query(p), detail: category + " " + p.String()})
	}
	return firstAccepted(ctx, req, queries)
}

func byLabel(ctx context.Context, req request) (Candidate, error) {
	return each(ctx, req, "label", req.desc.LabelPatterns(), req.page.QueryByLabel)
}

func byPlaceholder(ctx context.Context, req request) (Candidate, error) {
	return each(ctx, req, "placeholder", req.desc.PlaceholderPatterns(), req.page.QueryByPlaceholder)
}

// byText tries an exact match of each pattern before its partial form.
func byText(ctx context.Context, req request) (Candidate, error) {
	patterns := req.desc.TextPatterns()
	if len(patterns) == 0 {
		return Candidate{}, ErrStrategySkipped
	}
	var queries []candidateQuery
	for _, p := range patterns {
		if p.Kind() == pattern.KindContains {
			exact := p.AsExact()
			queries = append(queries, candidateQuery{el: req.page.QueryByText(exact), detail: "text " + exact.String()})
		}
		queries = append(queries, candidateQuery{el: req.page.QueryByText(p), detail: "text " + p.String()})
	}
	return firstAccepted(ctx, req, queries)
}

func byTestID(ctx context.Context, req request) (Candidate, error) {
	return each(ctx, req, "test id", req.desc.TestIDPatterns(), req.page.QueryByTestID)
}

func byTitle(ctx context.Context, req request) (Candidate, error) {
	return each(ctx, req, "title", req.desc.TitlePatterns(), req.page.QueryByTitle)
}

func byAltText(ctx context.Context, req request) (Candidate, error) {
	return each(ctx, req, "alt", req.desc.AltPatterns(), req.page.QueryByAltText)
}

// byAttribute tries an exact-value selector for every attribute before any
// substring selector.
func byAttribute(ctx context.Context, req request) (Candidate, error) {
	attrs := req.desc.AttributePatterns()
	if len(attrs) == 0 {
		return Candidate{}, ErrStrategySkipped
	}
	queries := make([]candidateQuery, 0, 2*len(attrs))
	for _, op := range []string{"=", "*="} {
		for _, a := range attrs {
			if !validAttributeName(a.Name) {
				return Candidate{}, fmt.Errorf("invalid attribute name %q", a.Name)
			}
			sel := fmt.Sprintf("[%s%s%s]", a.Name, op, cssString(a.Value))
			queries = append(queries, candidateQuery{el: req.page.QuerySelector(sel), detail: "selector " + sel})
		}
	}
	return firstAccepted(ctx, req, queries)
}

func classWithTag(ctx context.Context, req request) (Candidate, error) {
	classes := req.desc.ClassPatterns()
	if len(classes) == 0 {
		return Candidate{}, ErrStrategySkipped
	}
	tags := req.desc.Kind().Tags()
	if tags == nil {
		tags = []string{""}
	}
	queries := make([]candidateQuery, 0, len(classes))
	for _, c := range classes {
		group := make([]string, len(tags))
		for i, tag := range tags {
			group[i] = fmt.Sprintf("%s[class*=%s]", tag, cssString(c))
		}
		sel := strings.Join(group, ", ")
		queries = append(queries, candidateQuery{el: req.page.QuerySelector(sel), detail: "selector " + sel})
	}
	return firstAccepted(ctx, req, queries)
}

// byRole looks the role up with no name filter. A single match is accepted.
// Below the ambiguity threshold the matches are scanned for one whose text
// satisfies a text pattern; at or above it the strategy gives up.
func byRole(ctx context.Context, req request) (Candidate, error) {
	if !req.desc.HasRole() {
		return Candidate{}, ErrStrategySkipped
	}
	role := req.desc.Role().String()
	all := req.page.QueryByRole(role, driver.RoleOptions{})
	n, err := all.Count(ctx)
	if err != nil {
		return Candidate{}, fmt.Errorf("counting role %s: %w", role, err)
	}
	switch {
	case n == 0:
		return Candidate{}, ErrNoCandidate
	case n == 1:
		return firstAccepted(ctx, req, []candidateQuery{{el: all, detail: fmt.Sprintf("sole %s", role)}})
	case n >= req.ambiguity:
		return Candidate{}, fmt.Errorf("%w: %d elements with role %s", ErrNoCandidate, n, role)
	}

	patterns := req.desc.TextPatterns()
	if len(patterns) == 0 {
		return Candidate{}, fmt.Errorf("%w: %d elements with role %s and no text to narrow them", ErrNoCandidate, n, role)
	}
	for i := 0; i < n; i++ {
		nth := all.Nth(i)
		text, err := nth.TextContent(ctx)
		if err != nil {
			if errors.Is(err, driver.ErrNotFound) || errors.Is(err, driver.ErrDetached) {
				// The set shrank while scanning.
				break
			}
			return Candidate{}, fmt.Errorf("reading %s: %w", nth, err)
		}
		for _, p := range patterns {
			if !p.Match(text) {
				continue
			}
			ok, err := req.accept(ctx, nth)
			if err != nil {
				return Candidate{}, fmt.Errorf("probing %s: %w", nth, err)
			}
			if ok {
				return Candidate{Handle: nth, Detail: fmt.Sprintf("%s %d of %d, text %s", role, i+1, n, p)}, nil
			}
			break
		}
	}
	return Candidate{}, ErrNoCandidate
}

// structuralText searches the kind's tags for case-folded text containment.
// ASCII literals become an XPath query. Regex patterns, which XPath 1.0 cannot
// express, scan the tag matches instead, and so do literals with non-ASCII
// letters, since translate() only folds ASCII.
func structuralText(ctx context.Context, req request) (Candidate, error) {
	patterns := req.desc.TextPatterns()
	if len(patterns) == 0 {
		return Candidate{}, ErrStrategySkipped
	}
	tags := req.desc.Kind().Tags()
	for _, p := range patterns {
		var (
			c   Candidate
			err error
		)
		switch {
		case p.Kind() == pattern.KindRegex:
			c, err = scanTags(ctx, req, tags, p)
		case !isASCII(p.Raw()):
			folded := pattern.Contains(p.Raw())
			if tags == nil {
				c, err = firstAccepted(ctx, req, []candidateQuery{{el: req.page.QueryByText(folded), detail: "text containing " + folded.String()}})
			} else {
				c, err = scanTags(ctx, req, tags, folded)
			}
		default:
			sel := containsTextXPath(tags, p.Raw())
			c, err = firstAccepted(ctx, req, []candidateQuery{{el: req.page.QuerySelector(sel), detail: "text containing " + p.String()}})
		}
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, ErrNoCandidate) && !errors.Is(err, ErrStrategySkipped) {
			return Candidate{}, err
		}
	}
	return Candidate{}, ErrNoCandidate
}

// maxStructuralScan bounds how many tag matches a regex scan reads.
const maxStructuralScan = 50

func scanTags(ctx context.Context, req request, tags []string, p pattern.Pattern) (Candidate, error) {
	if tags == nil {
		// Scanning every element of the document is not a lookup.
		return Candidate{}, ErrStrategySkipped
	}
	all := req.page.QuerySelector(strings.Join(tags, ", "))
	n, err := all.Count(ctx)
	if err != nil {
		return Candidate{}, err
	}
	if n > maxStructuralScan {
		n = maxStructuralScan
	}
	for i := 0; i < n; i++ {
		nth := all.Nth(i)
		text, err := nth.TextContent(ctx)
		if err != nil || !p.Match(text) {
			continue
		}
		ok, err := req.accept(ctx, nth)
		if err != nil {
			return Candidate{}, err
		}
		if ok {
			return Candidate{Handle: nth, Detail: "text matching " + p.String()}, nil
		}
	}
	return Candidate{}, ErrNoCandidate
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

const (
	upperAlpha = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	lowerAlpha = "abcdefghijklmnopqrstuvwxyz"
)

// containsTextXPath renders an XPath union over the tags selecting elements
// whose case-folded, whitespace-normalised text contains text. Wildcard kinds
// only keep the innermost such element inside body.
func containsTextXPath(tags []string, text string) string {
	needle := domquery.XPathLiteral(strings.ToLower(pattern.Normalize(text)))
	folded := fmt.Sprintf("translate(normalize-space(.), '%s', '%s')", upperAlpha, lowerAlpha)
	cond := fmt.Sprintf("contains(%s, %s)", folded, needle)
	if tags == nil {
		return fmt.Sprintf("//body//*[%s][not(.//*[%s])][not(self::script or self::style)]", cond, cond)
	}
	steps := make([]string, len(tags))
	for i, tag := range tags {
		steps[i] = fmt.Sprintf("//%s[%s]", xpathStep(tag), cond)
	}
	return strings.Join(steps, " | ")
}

// xpathStep converts the simple tag selectors of the kind table, such as
// input[type=checkbox], to XPath steps.
func xpathStep(tag string) string {
	name, rest, ok := strings.Cut(tag, "[")
	if !ok {
		return tag
	}
	attr, value, _ := strings.Cut(strings.TrimSuffix(rest, "]"), "=")
	return fmt.Sprintf("%s[@%s=%s]", name, attr, domquery.XPathLiteral(value))
}

// cssString quotes s as a CSS string literal.
func cssString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\a `)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// validAttributeName accepts the attribute names a CSS attribute selector can
// carry without escaping.
func validAttributeName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9', r == '-':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
