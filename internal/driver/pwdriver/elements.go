// internal/driver/pwdriver/elements.go
package pwdriver

import (
	"context"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/xkilldash9x/scalpel-heal/internal/driver"
)

// Elements wraps a Playwright locator.
type Elements struct {
	loc  playwright.Locator
	desc string
}

var _ driver.Elements = (*Elements)(nil)

func wrap(loc playwright.Locator, desc string) *Elements {
	return &Elements{loc: loc, desc: desc}
}

func (e *Elements) String() string { return e.desc }

func (e *Elements) First() driver.Elements {
	return wrap(e.loc.First(), e.desc+" >> nth=0")
}

func (e *Elements) Nth(index int) driver.Elements {
	return wrap(e.loc.Nth(index), fmt.Sprintf("%s >> nth=%d", e.desc, index))
}

func (e *Elements) op(name string) string { return name + " " + e.desc }

func (e *Elements) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := e.loc.Count()
	return n, mapError(ctx, e.op("count"), err)
}

func (e *Elements) IsVisible(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	v, err := e.loc.IsVisible()
	return v, mapError(ctx, e.op("is visible"), err)
}

func (e *Elements) IsEnabled(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	v, err := e.loc.IsEnabled(playwright.LocatorIsEnabledOptions{Timeout: timeoutMS(ctx)})
	return v, mapError(ctx, e.op("is enabled"), err)
}

func (e *Elements) IsDisabled(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	v, err := e.loc.IsDisabled(playwright.LocatorIsDisabledOptions{Timeout: timeoutMS(ctx)})
	return v, mapError(ctx, e.op("is disabled"), err)
}

func (e *Elements) TextContent(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, err := e.loc.TextContent(playwright.LocatorTextContentOptions{Timeout: timeoutMS(ctx)})
	return v, mapError(ctx, e.op("text content"), err)
}

// GetAttribute evaluates in the page so an absent attribute can be told apart
// from an empty one.
func (e *Elements) GetAttribute(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	res, err := e.loc.Evaluate(`(el, name) => el.hasAttribute(name) ? [true, el.getAttribute(name)] : [false, ""]`,
		name, playwright.LocatorEvaluateOptions{Timeout: timeoutMS(ctx)})
	if err != nil {
		return "", false, mapError(ctx, e.op("get attribute"), err)
	}
	pair, ok := res.([]interface{})
	if !ok || len(pair) != 2 {
		return "", false, fmt.Errorf("get attribute %s: unexpected result %T", e.desc, res)
	}
	present, _ := pair[0].(bool)
	value, _ := pair[1].(string)
	return value, present, nil
}

func (e *Elements) InputValue(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, err := e.loc.InputValue(playwright.LocatorInputValueOptions{Timeout: timeoutMS(ctx)})
	return v, mapError(ctx, e.op("input value"), err)
}

func (e *Elements) TagName(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	res, err := e.loc.Evaluate(`el => el.tagName`, nil, playwright.LocatorEvaluateOptions{Timeout: timeoutMS(ctx)})
	if err != nil {
		return "", mapError(ctx, e.op("tag name"), err)
	}
	tag, _ := res.(string)
	return strings.ToLower(tag), nil
}

func (e *Elements) Click(ctx context.Context, opts driver.ClickOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := e.loc.Click(playwright.LocatorClickOptions{Force: playwright.Bool(opts.Force), Timeout: timeoutMS(ctx)})
	return mapError(ctx, e.op("click"), err)
}

func (e *Elements) Fill(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError(ctx, e.op("fill"), e.loc.Fill(text, playwright.LocatorFillOptions{Timeout: timeoutMS(ctx)}))
}

func (e *Elements) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError(ctx, e.op("clear"), e.loc.Clear(playwright.LocatorClearOptions{Timeout: timeoutMS(ctx)}))
}

func (e *Elements) SelectOption(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := e.loc.SelectOption(playwright.SelectOptionValues{ValuesOrLabels: &[]string{value}},
		playwright.LocatorSelectOptionOptions{Timeout: timeoutMS(ctx)})
	return mapError(ctx, e.op("select option"), err)
}

func (e *Elements) SetChecked(ctx context.Context, checked bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError(ctx, e.op("set checked"), e.loc.SetChecked(checked, playwright.LocatorSetCheckedOptions{Timeout: timeoutMS(ctx)}))
}

func (e *Elements) Hover(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return mapError(ctx, e.op("hover"), e.loc.Hover(playwright.LocatorHoverOptions{Timeout: timeoutMS(ctx)}))
}

func (e *Elements) ScrollIntoViewIfNeeded(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := e.loc.ScrollIntoViewIfNeeded(playwright.LocatorScrollIntoViewIfNeededOptions{Timeout: timeoutMS(ctx)})
	return mapError(ctx, e.op("scroll into view"), err)
}

func (e *Elements) WaitFor(ctx context.Context, state driver.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s, err := waitState(state)
	if err != nil {
		return err
	}
	err = e.loc.WaitFor(playwright.LocatorWaitForOptions{State: s, Timeout: timeoutMS(ctx)})
	return mapError(ctx, e.op("wait for "+string(state)), err)
}
