// internal/driver/htmldriver/elements.go
package htmldriver

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/scalpel-heal/internal/driver"
	"github.com/xkilldash9x/scalpel-heal/internal/driver/domquery"
	"github.com/xkilldash9x/scalpel-heal/internal/retry"
)

// Elements is a lazy handle over a Page. Actions and single-element reads
// require exactly one match.
type Elements struct {
	page  *Page
	query domquery.Query
}

var _ driver.Elements = (*Elements)(nil)

func (e *Elements) String() string { return e.query.String() }

func (e *Elements) First() driver.Elements {
	return &Elements{page: e.page, query: e.query.First()}
}

func (e *Elements) Nth(index int) driver.Elements {
	return &Elements{page: e.page, query: e.query.Nth(index)}
}

// evalLocked runs the query; the caller holds the page lock.
func (e *Elements) evalLocked() ([]*html.Node, error) {
	return e.query.Eval(e.page.root)
}

// oneLocked resolves exactly one element; the caller holds the page lock.
func (e *Elements) oneLocked() (*html.Node, error) {
	nodes, err := e.evalLocked()
	if err != nil {
		return nil, err
	}
	switch len(nodes) {
	case 0:
		return nil, fmt.Errorf("%w: %s", driver.ErrNotFound, e.query)
	case 1:
		return nodes[0], nil
	default:
		return nil, fmt.Errorf("%w: %s resolved to %d elements", driver.ErrStrictMode, e.query, len(nodes))
	}
}

// read resolves one element under the read lock and applies fn.
func (e *Elements) read(ctx context.Context, fn func(n *html.Node) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.page.mu.RLock()
	defer e.page.mu.RUnlock()
	n, err := e.oneLocked()
	if err != nil {
		return err
	}
	return fn(n)
}

// mutate resolves one element under the write lock and applies fn.
func (e *Elements) mutate(ctx context.Context, fn func(n *html.Node) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	n, err := e.oneLocked()
	if err != nil {
		return err
	}
	return fn(n)
}

func (e *Elements) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e.page.mu.RLock()
	defer e.page.mu.RUnlock()
	nodes, err := e.evalLocked()
	if err != nil {
		return 0, err
	}
	return len(nodes), nil
}

// IsVisible reports false for a handle that matches nothing.
func (e *Elements) IsVisible(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	e.page.mu.RLock()
	defer e.page.mu.RUnlock()
	nodes, err := e.evalLocked()
	if err != nil {
		return false, err
	}
	switch len(nodes) {
	case 0:
		return false, nil
	case 1:
		return domquery.IsVisible(nodes[0]), nil
	default:
		return false, fmt.Errorf("%w: %s resolved to %d elements", driver.ErrStrictMode, e.query, len(nodes))
	}
}

func (e *Elements) IsEnabled(ctx context.Context) (bool, error) {
	var enabled bool
	err := e.read(ctx, func(n *html.Node) error {
		enabled = domquery.IsEnabled(n)
		return nil
	})
	return enabled, err
}

func (e *Elements) IsDisabled(ctx context.Context) (bool, error) {
	enabled, err := e.IsEnabled(ctx)
	return !enabled, err
}

func (e *Elements) TextContent(ctx context.Context) (string, error) {
	var text string
	err := e.read(ctx, func(n *html.Node) error {
		text = domquery.TextContent(n)
		return nil
	})
	return text, err
}

func (e *Elements) GetAttribute(ctx context.Context, name string) (string, bool, error) {
	var (
		value   string
		present bool
	)
	err := e.read(ctx, func(n *html.Node) error {
		value, present = domquery.Attr(n, name)
		return nil
	})
	return value, present, err
}

func (e *Elements) InputValue(ctx context.Context) (string, error) {
	var value string
	err := e.read(ctx, func(n *html.Node) error {
		var err error
		value, err = inputValue(n)
		return err
	})
	return value, err
}

func (e *Elements) TagName(ctx context.Context) (string, error) {
	var tag string
	err := e.read(ctx, func(n *html.Node) error {
		tag = domquery.TagName(n)
		return nil
	})
	return tag, err
}

func (e *Elements) Click(ctx context.Context, opts driver.ClickOptions) error {
	return e.mutate(ctx, func(n *html.Node) error {
		if !opts.Force {
			if err := actionable(n, e.query); err != nil {
				return err
			}
		}
		switch {
		case isCheckable(n, "checkbox"):
			_, checked := domquery.Attr(n, "checked")
			setChecked(n, !checked)
		case isCheckable(n, "radio"):
			setChecked(n, true)
		case domquery.TagName(n) == "option":
			selectOption(n)
		}
		e.page.record("click", n, "")
		return nil
	})
}

func (e *Elements) Fill(ctx context.Context, text string) error {
	return e.fill(ctx, "fill", text)
}

func (e *Elements) Clear(ctx context.Context) error {
	return e.fill(ctx, "clear", "")
}

func (e *Elements) fill(ctx context.Context, action, text string) error {
	return e.mutate(ctx, func(n *html.Node) error {
		if !domquery.IsEditable(n) {
			return fmt.Errorf("%w: %s is not an input, textarea or contenteditable element", driver.ErrUnsupported, e.query)
		}
		if err := actionable(n, e.query); err != nil {
			return err
		}
		if domquery.IsReadOnly(n) {
			return fmt.Errorf("%w: %s is read-only", driver.ErrNotActionable, e.query)
		}
		if domquery.TagName(n) == "input" {
			setAttr(n, "value", text)
		} else {
			setText(n, text)
		}
		e.page.record(action, n, text)
		return nil
	})
}

func (e *Elements) SelectOption(ctx context.Context, value string) error {
	return e.mutate(ctx, func(n *html.Node) error {
		if domquery.TagName(n) != "select" {
			return fmt.Errorf("%w: %s is not a <select> element", driver.ErrUnsupported, e.query)
		}
		if err := actionable(n, e.query); err != nil {
			return err
		}
		for _, opt := range options(n) {
			v, hasValue := domquery.Attr(opt, "value")
			if !hasValue {
				v = domquery.VisibleText(opt)
			}
			if v != value && domquery.VisibleText(opt) != value {
				continue
			}
			if !domquery.IsEnabled(opt) {
				return fmt.Errorf("%w: option %q is disabled", driver.ErrNotActionable, value)
			}
			selectOption(opt)
			e.page.record("select", n, value)
			return nil
		}
		return fmt.Errorf("%w: %s has no option %q", driver.ErrNotFound, e.query, value)
	})
}

func (e *Elements) SetChecked(ctx context.Context, checked bool) error {
	return e.mutate(ctx, func(n *html.Node) error {
		if !isCheckable(n, "checkbox") && !isCheckable(n, "radio") {
			return fmt.Errorf("%w: %s is not a checkbox or radio input", driver.ErrUnsupported, e.query)
		}
		if err := actionable(n, e.query); err != nil {
			return err
		}
		if isCheckable(n, "radio") && !checked {
			return fmt.Errorf("%w: a radio input cannot be unchecked", driver.ErrUnsupported)
		}
		setChecked(n, checked)
		e.page.record("check", n, fmt.Sprint(checked))
		return nil
	})
}

func (e *Elements) Hover(ctx context.Context) error {
	return e.mutate(ctx, func(n *html.Node) error {
		if !domquery.IsVisible(n) {
			return fmt.Errorf("%w: %s is not visible", driver.ErrNotActionable, e.query)
		}
		e.page.record("hover", n, "")
		return nil
	})
}

func (e *Elements) ScrollIntoViewIfNeeded(ctx context.Context) error {
	return e.mutate(ctx, func(n *html.Node) error {
		if !domquery.IsVisible(n) {
			return fmt.Errorf("%w: %s is not visible", driver.ErrNotActionable, e.query)
		}
		e.page.record("scroll", n, "")
		return nil
	})
}

// WaitFor polls until the handle reaches state or ctx is done.
func (e *Elements) WaitFor(ctx context.Context, state driver.State) error {
	return retry.Poll(ctx, e.page.pollInterval, func(ctx context.Context) (bool, error) {
		e.page.mu.RLock()
		defer e.page.mu.RUnlock()
		nodes, err := e.evalLocked()
		if err != nil {
			return false, err
		}
		if len(nodes) > 1 {
			return false, fmt.Errorf("%w: %s resolved to %d elements", driver.ErrStrictMode, e.query, len(nodes))
		}
		switch state {
		case driver.StateAttached:
			return len(nodes) == 1, nil
		case driver.StateDetached:
			return len(nodes) == 0, nil
		case driver.StateVisible:
			return len(nodes) == 1 && domquery.IsVisible(nodes[0]), nil
		case driver.StateHidden:
			return len(nodes) == 0 || !domquery.IsVisible(nodes[0]), nil
		default:
			return false, fmt.Errorf("unknown element state %q", state)
		}
	})
}

// actionable enforces the visible and enabled preconditions of an action.
func actionable(n *html.Node, q domquery.Query) error {
	if !domquery.IsVisible(n) {
		return fmt.Errorf("%w: %s is not visible", driver.ErrNotActionable, q)
	}
	if !domquery.IsEnabled(n) {
		return fmt.Errorf("%w: %s is disabled", driver.ErrNotActionable, q)
	}
	return nil
}

func inputValue(n *html.Node) (string, error) {
	switch domquery.TagName(n) {
	case "input":
		v, _ := domquery.Attr(n, "value")
		return v, nil
	case "textarea":
		return domquery.TextContent(n), nil
	case "select":
		opts := options(n)
		for _, opt := range opts {
			if _, selected := domquery.Attr(opt, "selected"); selected {
				return optionValue(opt), nil
			}
		}
		if _, multiple := domquery.Attr(n, "multiple"); !multiple && len(opts) > 0 {
			return optionValue(opts[0]), nil
		}
		return "", nil
	}
	return "", fmt.Errorf("%w: <%s> has no input value", driver.ErrUnsupported, domquery.TagName(n))
}

func optionValue(opt *html.Node) string {
	if v, ok := domquery.Attr(opt, "value"); ok {
		return v
	}
	return domquery.VisibleText(opt)
}

func options(sel *html.Node) []*html.Node {
	var out []*html.Node
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch domquery.TagName(c) {
			case "option":
				out = append(out, c)
			case "optgroup":
				visit(c)
			}
		}
	}
	visit(sel)
	return out
}

// selectOption marks opt selected and clears its siblings unless the owning
// select allows multiple selection.
func selectOption(opt *html.Node) {
	sel := opt.Parent
	for sel != nil && domquery.TagName(sel) != "select" {
		sel = sel.Parent
	}
	if sel != nil {
		if _, multiple := domquery.Attr(sel, "multiple"); !multiple {
			for _, o := range options(sel) {
				removeAttr(o, "selected")
			}
		}
	}
	setAttr(opt, "selected", "")
}

func isCheckable(n *html.Node, kind string) bool {
	return domquery.TagName(n) == "input" && strings.EqualFold(attrOf(n, "type"), kind)
}

func setChecked(n *html.Node, checked bool) {
	if !checked {
		removeAttr(n, "checked")
		return
	}
	if isCheckable(n, "radio") {
		if name := attrOf(n, "name"); name != "" {
			root := n
			for root.Parent != nil {
				root = root.Parent
			}
			uncheckGroup(root, name)
		}
	}
	setAttr(n, "checked", "")
}

func uncheckGroup(n *html.Node, name string) {
	if isCheckable(n, "radio") && attrOf(n, "name") == name {
		removeAttr(n, "checked")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		uncheckGroup(c, name)
	}
}

func attrOf(n *html.Node, name string) string {
	v, _ := domquery.Attr(n, name)
	return v
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}

// setText replaces all children of n with a single text node.
func setText(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}
