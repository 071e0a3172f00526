// internal/driver/domquery/query.go
// Package domquery evaluates element queries against a parsed HTML document.
// It computes ARIA roles and accessible names, the static visibility and
// enabled state of elements, matches text and attribute patterns, evaluates
// CSS (cascadia) and XPath (htmlquery) selectors, and generates unique XPath
// expressions that live drivers use to target a matched node.
//
// All functions are pure over the *html.Node tree; callers own locking.
package domquery

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/scalpel-heal/internal/driver"
	"github.com/xkilldash9x/scalpel-heal/internal/pattern"
)

// DefaultTestIDAttribute is the attribute QueryByTestID matches by default.
const DefaultTestIDAttribute = "data-testid"

// Engine builds queries. Its only setting is the test-id attribute name.
type Engine struct {
	testIDAttribute string
}

// New returns an Engine matching test ids on attr, or on data-testid when
// attr is empty.
func New(testIDAttribute string) *Engine {
	if strings.TrimSpace(testIDAttribute) == "" {
		testIDAttribute = DefaultTestIDAttribute
	}
	return &Engine{testIDAttribute: testIDAttribute}
}

// TestIDAttribute returns the configured attribute name.
func (e *Engine) TestIDAttribute() string { return e.testIDAttribute }

// Query is a lazily evaluated element query. Evaluating it against a
// document root yields the matching elements in document order.
type Query struct {
	desc string
	eval func(root *html.Node) ([]*html.Node, error)
}

// Eval runs the query against root.
func (q Query) Eval(root *html.Node) ([]*html.Node, error) {
	if q.eval == nil || root == nil {
		return nil, nil
	}
	return q.eval(root)
}

// String renders the query in a selector-like syntax for logs.
func (q Query) String() string { return q.desc }

// Nth narrows the query to the element at index. Negative indices count
// from the end, so Nth(-1) is the last match.
func (q Query) Nth(index int) Query {
	return Query{
		desc: fmt.Sprintf("%s >> nth=%d", q.desc, index),
		eval: func(root *html.Node) ([]*html.Node, error) {
			nodes, err := q.Eval(root)
			if err != nil {
				return nil, err
			}
			i := index
			if i < 0 {
				i += len(nodes)
			}
			if i < 0 || i >= len(nodes) {
				return nil, nil
			}
			return nodes[i : i+1], nil
		},
	}
}

// First is Nth(0).
func (q Query) First() Query { return q.Nth(0) }

// Role matches elements whose explicit or implicit role is role and, when
// name is set, whose accessible name satisfies it. Elements hidden from the
// accessibility tree are excluded.
func (e *Engine) Role(role string, opts driver.RoleOptions) Query {
	role = strings.ToLower(strings.TrimSpace(role))
	desc := "role=" + role
	if opts.Name != nil {
		desc += fmt.Sprintf("[name=%q]", opts.Name.String())
	}
	return Query{desc: desc, eval: func(root *html.Node) ([]*html.Node, error) {
		return filter(root, func(n *html.Node) bool {
			if RoleOf(n) != role || IsHiddenFromAccessibility(n) {
				return false
			}
			return opts.Name == nil || opts.Name.Match(AccessibleName(n))
		}), nil
	}}
}

// Text matches the innermost elements whose visible text satisfies p.
// An element is dropped when one of its descendants also matches.
func (e *Engine) Text(p pattern.Pattern) Query {
	return Query{desc: fmt.Sprintf("text=%q", p.String()), eval: func(root *html.Node) ([]*html.Node, error) {
		var out []*html.Node
		var visit func(*html.Node) bool
		visit = func(n *html.Node) bool {
			if n.Type == html.ElementNode && nonRendered[strings.ToLower(n.Data)] {
				return false
			}
			matched := false
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if visit(c) {
					matched = true
				}
			}
			if matched {
				return true
			}
			if n.Type != html.ElementNode || strings.EqualFold(n.Data, "html") {
				return false
			}
			if p.Match(VisibleText(n)) {
				out = append(out, n)
				return true
			}
			return false
		}
		visit(root)
		return out, nil
	}}
}

// Label matches form controls whose associated label, aria-label or
// aria-labelledby text satisfies p, plus any element with a matching
// aria-label.
func (e *Engine) Label(p pattern.Pattern) Query {
	return Query{desc: fmt.Sprintf("label=%q", p.String()), eval: func(root *html.Node) ([]*html.Node, error) {
		return filter(root, func(n *html.Node) bool { return MatchesLabel(n, p) }), nil
	}}
}

// Placeholder matches elements whose placeholder attribute satisfies p.
func (e *Engine) Placeholder(p pattern.Pattern) Query {
	return e.attribute("placeholder", p)
}

// TestID matches elements whose test-id attribute satisfies p.
func (e *Engine) TestID(p pattern.Pattern) Query {
	return e.attribute(e.testIDAttribute, p)
}

// Title matches elements whose title attribute satisfies p.
func (e *Engine) Title(p pattern.Pattern) Query {
	return e.attribute("title", p)
}

// AltText matches elements whose alt attribute satisfies p.
func (e *Engine) AltText(p pattern.Pattern) Query {
	return e.attribute("alt", p)
}

func (e *Engine) attribute(name string, p pattern.Pattern) Query {
	return Query{desc: fmt.Sprintf("%s=%q", name, p.String()), eval: func(root *html.Node) ([]*html.Node, error) {
		return filter(root, func(n *html.Node) bool {
			v, ok := Attr(n, name)
			return ok && p.Match(v)
		}), nil
	}}
}

// Selector evaluates a CSS or XPath selector. The engine is chosen by
// driver.SplitSelector. Syntax errors surface from Eval.
func (e *Engine) Selector(selector string) Query {
	expr, isXPath := driver.SplitSelector(selector)
	if isXPath {
		return Query{desc: "xpath=" + expr, eval: func(root *html.Node) ([]*html.Node, error) {
			nodes, err := htmlquery.QueryAll(root, expr)
			if err != nil {
				return nil, fmt.Errorf("invalid xpath %q: %w", expr, err)
			}
			out := nodes[:0]
			for _, n := range nodes {
				if n.Type == html.ElementNode {
					out = append(out, n)
				}
			}
			return out, nil
		}}
	}

	sel, compileErr := cascadia.Compile(expr)
	return Query{desc: "css=" + expr, eval: func(root *html.Node) ([]*html.Node, error) {
		if compileErr != nil {
			return nil, fmt.Errorf("invalid css selector %q: %w", expr, compileErr)
		}
		return sel.MatchAll(root), nil
	}}
}

// filter returns the elements under root accepted by keep, in document order.
func filter(root *html.Node, keep func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && keep(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}
