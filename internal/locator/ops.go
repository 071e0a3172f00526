// internal/locator/ops.go
package locator

import (
	"context"
	"errors"
	"time"

	"github.com/xkilldash9x/scalpel-heal/internal/action"
	"github.com/xkilldash9x/scalpel-heal/internal/driver"
	"github.com/xkilldash9x/scalpel-heal/internal/pattern"
	"github.com/xkilldash9x/scalpel-heal/internal/retry"
)

// expectPollInterval is how often expectations re-read the element.
const expectPollInterval = 100 * time.Millisecond

// act resolves the element and runs fn on it under the locator timeout.
// Errors from fn are returned as the driver produced them.
func (l *Locator) act(ctx context.Context, fn func(ctx context.Context, el driver.Elements) error) error {
	el, err := l.Resolve(ctx)
	if err != nil {
		return err
	}
	actx, cancel := l.withTimeout(ctx)
	defer cancel()
	return fn(actx, el)
}

func (l *Locator) Click(ctx context.Context) error {
	return l.act(ctx, func(ctx context.Context, el driver.Elements) error {
		return el.Click(ctx, driver.ClickOptions{})
	})
}

func (l *Locator) Fill(ctx context.Context, text string) error {
	return l.act(ctx, func(ctx context.Context, el driver.Elements) error {
		return el.Fill(ctx, text)
	})
}

func (l *Locator) SelectOption(ctx context.Context, value string) error {
	return l.act(ctx, func(ctx context.Context, el driver.Elements) error {
		return el.SelectOption(ctx, value)
	})
}

func (l *Locator) SetChecked(ctx context.Context, checked bool) error {
	return l.act(ctx, func(ctx context.Context, el driver.Elements) error {
		return el.SetChecked(ctx, checked)
	})
}

func (l *Locator) Hover(ctx context.Context) error {
	return l.act(ctx, func(ctx context.Context, el driver.Elements) error {
		return el.Hover(ctx)
	})
}

// GetText returns the element's text content.
func (l *Locator) GetText(ctx context.Context) (string, error) {
	var text string
	err := l.act(ctx, func(ctx context.Context, el driver.Elements) error {
		var err error
		text, err = el.TextContent(ctx)
		return err
	})
	return text, err
}

// GetValue returns the element's input value.
func (l *Locator) GetValue(ctx context.Context) (string, error) {
	var value string
	err := l.act(ctx, func(ctx context.Context, el driver.Elements) error {
		var err error
		value, err = el.InputValue(ctx)
		return err
	})
	return value, err
}

// IsVisible reports whether the element resolves to a visible element. An
// element that cannot be resolved is reported as not visible.
func (l *Locator) IsVisible(ctx context.Context) (bool, error) {
	var visible bool
	err := l.act(ctx, func(ctx context.Context, el driver.Elements) error {
		var err error
		visible, err = el.IsVisible(ctx)
		return err
	})
	if isResolutionFailure(err) {
		return false, nil
	}
	return visible, err
}

func (l *Locator) IsEnabled(ctx context.Context) (bool, error) {
	var enabled bool
	err := l.act(ctx, func(ctx context.Context, el driver.Elements) error {
		var err error
		enabled, err = el.IsEnabled(ctx)
		return err
	})
	return enabled, err
}

func (l *Locator) IsDisabled(ctx context.Context) (bool, error) {
	var disabled bool
	err := l.act(ctx, func(ctx context.Context, el driver.Elements) error {
		var err error
		disabled, err = el.IsDisabled(ctx)
		return err
	})
	return disabled, err
}

// WaitFor waits until the element reaches state. Visible and attached resolve
// (and may heal) first; hidden and detached check the primary locator only,
// since a healed substitute cannot prove the original is gone.
func (l *Locator) WaitFor(ctx context.Context, state driver.State) error {
	switch state {
	case driver.StateHidden, driver.StateDetached:
		el, err := l.primaryHandle()
		if err != nil {
			return err
		}
		wctx, cancel := l.withTimeout(ctx)
		defer cancel()
		return el.WaitFor(wctx, state)
	}
	return l.act(ctx, func(ctx context.Context, el driver.Elements) error {
		return el.WaitFor(ctx, state)
	})
}

// Actions resolves the element and wraps it in a retrying action element.
func (l *Locator) Actions(ctx context.Context, opts ...action.Option) (*action.Element, error) {
	el, err := l.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	opts = append([]action.Option{
		action.WithTimeout(l.timeout),
		action.WithRetryOptions(l.retry),
		action.WithLogger(l.logger),
	}, opts...)
	return action.New(l.page, el, opts...), nil
}

// ExpectVisible resolves the element and waits for it to be visible.
func (l *Locator) ExpectVisible(ctx context.Context) error {
	err := l.act(ctx, func(ctx context.Context, el driver.Elements) error {
		return el.WaitFor(ctx, driver.StateVisible)
	})
	if err != nil && !isResolutionFailure(err) {
		return &ExpectationError{Purpose: l.desc.Purpose(), Expectation: "to be visible", Err: err}
	}
	return err
}

// ExpectHidden waits for the primary locator to match nothing visible. It
// never heals.
func (l *Locator) ExpectHidden(ctx context.Context) error {
	el, err := l.primaryHandle()
	if err != nil {
		return err
	}
	wctx, cancel := l.withTimeout(ctx)
	defer cancel()
	if err := el.WaitFor(wctx, driver.StateHidden); err != nil {
		return &ExpectationError{Purpose: l.desc.Purpose(), Expectation: "to be hidden", Err: err}
	}
	return nil
}

// ExpectText waits for the element's text content to satisfy p.
func (l *Locator) ExpectText(ctx context.Context, p pattern.Pattern) error {
	return l.expect(ctx, "to have text", p, func(ctx context.Context, el driver.Elements) (string, error) {
		return el.TextContent(ctx)
	})
}

// ExpectValue waits for the element's input value to satisfy p.
func (l *Locator) ExpectValue(ctx context.Context, p pattern.Pattern) error {
	return l.expect(ctx, "to have value", p, func(ctx context.Context, el driver.Elements) (string, error) {
		return el.InputValue(ctx)
	})
}

// ExpectAttribute waits for attribute name to be present with a value
// satisfying p.
func (l *Locator) ExpectAttribute(ctx context.Context, name string, p pattern.Pattern) error {
	return l.expect(ctx, "to have attribute "+name, p, func(ctx context.Context, el driver.Elements) (string, error) {
		v, ok, err := el.GetAttribute(ctx, name)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", errAttributeMissing
		}
		return v, nil
	})
}

var errAttributeMissing = errors.New("attribute not present")

// expect resolves once and polls read until its value matches p or the
// locator timeout expires.
func (l *Locator) expect(ctx context.Context, what string, p pattern.Pattern, read func(context.Context, driver.Elements) (string, error)) error {
	el, err := l.Resolve(ctx)
	if err != nil {
		return err
	}
	ectx, cancel := l.withTimeout(ctx)
	defer cancel()

	var (
		actual  string
		lastErr error
	)
	err = retry.Poll(ectx, expectPollInterval, func(ctx context.Context) (bool, error) {
		v, err := read(ctx, el)
		if err != nil {
			if transient(err) {
				lastErr = err
				return false, nil
			}
			return false, err
		}
		actual, lastErr = v, nil
		return p.Match(v), nil
	})
	if err == nil {
		return nil
	}
	if lastErr != nil && errors.Is(err, context.DeadlineExceeded) {
		err = errors.Join(err, lastErr)
	}
	return &ExpectationError{Purpose: l.desc.Purpose(), Expectation: what, Expected: p.String(), Actual: actual, Err: err}
}

// transient errors may clear up while an expectation polls.
func transient(err error) bool {
	return errors.Is(err, driver.ErrDetached) || errors.Is(err, driver.ErrNotFound) || errors.Is(err, errAttributeMissing)
}

func (l *Locator) primaryHandle() (driver.Elements, error) {
	if l.primary == "" {
		return nil, errors.New("locator: hidden and detached checks need a primary locator")
	}
	return l.page.QuerySelector(l.primary), nil
}

func isResolutionFailure(err error) bool {
	return errors.Is(err, ErrResolutionExhausted) || errors.Is(err, ErrHealingDisabled)
}
