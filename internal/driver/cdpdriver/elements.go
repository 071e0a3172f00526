// internal/driver/cdpdriver/elements.go
package cdpdriver

import (
	"context"
	"errors"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/scalpel-heal/internal/driver"
	"github.com/xkilldash9x/scalpel-heal/internal/driver/domquery"
	"github.com/xkilldash9x/scalpel-heal/internal/retry"
)

// Elements is a lazy handle over a live tab.
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

func (e *Elements) nodes(ctx context.Context) ([]*html.Node, error) {
	root, err := e.page.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return e.query.Eval(root)
}

// target resolves exactly one element and returns its snapshot node and XPath.
func (e *Elements) target(ctx context.Context) (*html.Node, string, error) {
	nodes, err := e.nodes(ctx)
	if err != nil {
		return nil, "", err
	}
	switch len(nodes) {
	case 0:
		return nil, "", fmt.Errorf("%w: %s", driver.ErrNotFound, e.query)
	case 1:
		return nodes[0], domquery.GenerateUniqueXPath(nodes[0]), nil
	default:
		return nil, "", fmt.Errorf("%w: %s resolved to %d elements", driver.ErrStrictMode, e.query, len(nodes))
	}
}

func (e *Elements) script(ctx context.Context, body string) (scriptResult, error) {
	_, xpath, err := e.target(ctx)
	if err != nil {
		return scriptResult{}, err
	}
	return e.page.evalScript(ctx, xpath, body)
}

func (e *Elements) Count(ctx context.Context) (int, error) {
	nodes, err := e.nodes(ctx)
	return len(nodes), err
}

func (e *Elements) IsVisible(ctx context.Context) (bool, error) {
	nodes, err := e.nodes(ctx)
	if err != nil {
		return false, err
	}
	switch len(nodes) {
	case 0:
		return false, nil
	case 1:
	default:
		return false, fmt.Errorf("%w: %s resolved to %d elements", driver.ErrStrictMode, e.query, len(nodes))
	}
	res, err := e.page.evalScript(ctx, domquery.GenerateUniqueXPath(nodes[0]), jsVisible)
	if err != nil {
		return false, err
	}
	return res.OK, nil
}

func (e *Elements) IsEnabled(ctx context.Context) (bool, error) {
	res, err := e.script(ctx, jsEnabled)
	return res.OK, err
}

func (e *Elements) IsDisabled(ctx context.Context) (bool, error) {
	enabled, err := e.IsEnabled(ctx)
	return !enabled, err
}

func (e *Elements) TextContent(ctx context.Context) (string, error) {
	res, err := e.script(ctx, jsTextContent)
	return res.Value, err
}

func (e *Elements) GetAttribute(ctx context.Context, name string) (string, bool, error) {
	res, err := e.script(ctx, fmt.Sprintf(jsGetAttribute, jsString(name)))
	return res.Value, res.OK, err
}

func (e *Elements) InputValue(ctx context.Context) (string, error) {
	res, err := e.script(ctx, jsInputValue)
	if err != nil {
		return "", err
	}
	if !res.OK {
		return "", fmt.Errorf("%w: %s has no input value", driver.ErrUnsupported, e.query)
	}
	return res.Value, nil
}

func (e *Elements) TagName(ctx context.Context) (string, error) {
	n, _, err := e.target(ctx)
	if err != nil {
		return "", err
	}
	return domquery.TagName(n), nil
}

// ensureActionable checks live visibility and enabled state.
func (e *Elements) ensureActionable(ctx context.Context, xpath string) error {
	vis, err := e.page.evalScript(ctx, xpath, jsVisible)
	if err != nil {
		return err
	}
	if !vis.OK {
		return fmt.Errorf("%w: %s is not visible", driver.ErrNotActionable, e.query)
	}
	en, err := e.page.evalScript(ctx, xpath, jsEnabled)
	if err != nil {
		return err
	}
	if !en.OK {
		return fmt.Errorf("%w: %s is disabled", driver.ErrNotActionable, e.query)
	}
	return nil
}

func (e *Elements) Click(ctx context.Context, opts driver.ClickOptions) error {
	_, xpath, err := e.target(ctx)
	if err != nil {
		return err
	}
	if !opts.Force {
		if err := e.ensureActionable(ctx, xpath); err != nil {
			return err
		}
	}
	e.page.logger.Debug("Clicking element.", zap.String("query", e.query.String()), zap.String("xpath", xpath))
	if err := e.page.run(ctx,
		chromedp.ScrollIntoView(xpath, chromedp.BySearch),
		chromedp.Click(xpath, chromedp.BySearch),
	); err != nil {
		return fmt.Errorf("click on %s failed: %w", e.query, err)
	}
	return nil
}

func (e *Elements) Fill(ctx context.Context, text string) error {
	n, xpath, err := e.target(ctx)
	if err != nil {
		return err
	}
	if !domquery.IsEditable(n) {
		return fmt.Errorf("%w: %s is not an input, textarea or contenteditable element", driver.ErrUnsupported, e.query)
	}
	if err := e.ensureActionable(ctx, xpath); err != nil {
		return err
	}
	if _, err := e.page.evalScript(ctx, xpath, jsClear); err != nil {
		return fmt.Errorf("failed to clear %s: %w", e.query, err)
	}
	if text == "" {
		return nil
	}
	if err := e.page.run(ctx, chromedp.SendKeys(xpath, text, chromedp.BySearch)); err != nil {
		return fmt.Errorf("typing into %s failed: %w", e.query, err)
	}
	return nil
}

func (e *Elements) Clear(ctx context.Context) error {
	return e.Fill(ctx, "")
}

func (e *Elements) SelectOption(ctx context.Context, value string) error {
	_, xpath, err := e.target(ctx)
	if err != nil {
		return err
	}
	if err := e.ensureActionable(ctx, xpath); err != nil {
		return err
	}
	res, err := e.page.evalScript(ctx, xpath, fmt.Sprintf(jsSelectOption, jsString(value)))
	if err != nil {
		return err
	}
	if res.OK {
		return nil
	}
	switch res.Value {
	case "unsupported":
		return fmt.Errorf("%w: %s is not a <select> element", driver.ErrUnsupported, e.query)
	case "disabled":
		return fmt.Errorf("%w: option %q is disabled", driver.ErrNotActionable, value)
	default:
		return fmt.Errorf("%w: %s has no option %q", driver.ErrNotFound, e.query, value)
	}
}

func (e *Elements) SetChecked(ctx context.Context, checked bool) error {
	n, xpath, err := e.target(ctx)
	if err != nil {
		return err
	}
	typ, _ := domquery.Attr(n, "type")
	if domquery.TagName(n) != "input" || (typ != "checkbox" && typ != "radio") {
		return fmt.Errorf("%w: %s is not a checkbox or radio input", driver.ErrUnsupported, e.query)
	}
	state, err := e.page.evalScript(ctx, xpath, jsChecked)
	if err != nil {
		return err
	}
	if state.OK == checked {
		return nil
	}
	if typ == "radio" && !checked {
		return fmt.Errorf("%w: a radio input cannot be unchecked", driver.ErrUnsupported)
	}
	return e.Click(ctx, driver.ClickOptions{})
}

// Hover moves the mouse to the centre of the element's content box.
func (e *Elements) Hover(ctx context.Context) error {
	_, xpath, err := e.target(ctx)
	if err != nil {
		return err
	}
	var nodes []*cdp.Node
	var box *dom.BoxModel
	err = e.page.run(ctx,
		chromedp.ScrollIntoView(xpath, chromedp.BySearch),
		chromedp.Nodes(xpath, &nodes, chromedp.BySearch),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if len(nodes) == 0 {
				return fmt.Errorf("%w: %s", driver.ErrDetached, xpath)
			}
			var err error
			box, err = dom.GetBoxModel().WithNodeID(nodes[0].NodeID).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return fmt.Errorf("hover on %s failed: %w", e.query, err)
	}
	x, y, ok := boxCenter(box)
	if !ok {
		return fmt.Errorf("%w: %s has no geometry", driver.ErrNotActionable, e.query)
	}
	return e.page.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
	}))
}

// boxCenter averages the four corners of the content quad.
func boxCenter(box *dom.BoxModel) (float64, float64, bool) {
	if box == nil || len(box.Content) < 8 || box.Width <= 0 || box.Height <= 0 {
		return 0, 0, false
	}
	var x, y float64
	for i := 0; i < 8; i += 2 {
		x += box.Content[i]
		y += box.Content[i+1]
	}
	return x / 4, y / 4, true
}

func (e *Elements) ScrollIntoViewIfNeeded(ctx context.Context) error {
	_, xpath, err := e.target(ctx)
	if err != nil {
		return err
	}
	return e.page.run(ctx, chromedp.ScrollIntoView(xpath, chromedp.BySearch))
}

func (e *Elements) WaitFor(ctx context.Context, state driver.State) error {
	return retry.Poll(ctx, e.page.pollInterval, func(ctx context.Context) (bool, error) {
		nodes, err := e.nodes(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return false, err
			}
			// The document can be mid-navigation; try again on the next tick.
			e.page.logger.Debug("Snapshot failed while waiting.", zap.Error(err))
			return false, nil
		}
		if len(nodes) > 1 {
			return false, fmt.Errorf("%w: %s resolved to %d elements", driver.ErrStrictMode, e.query, len(nodes))
		}
		switch state {
		case driver.StateAttached:
			return len(nodes) == 1, nil
		case driver.StateDetached:
			return len(nodes) == 0, nil
		case driver.StateVisible, driver.StateHidden:
			visible := false
			if len(nodes) == 1 {
				res, err := e.page.evalScript(ctx, domquery.GenerateUniqueXPath(nodes[0]), jsVisible)
				if err != nil && !errors.Is(err, driver.ErrDetached) {
					return false, err
				}
				visible = res.OK
			}
			return visible == (state == driver.StateVisible), nil
		default:
			return false, fmt.Errorf("unknown element state %q", state)
		}
	})
}
