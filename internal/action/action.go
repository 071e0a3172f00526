// internal/action/action.go
// Package action wraps interactions with one concrete element in verified
// retries. It performs no semantic fallback: the handle it is given is the
// handle it acts on.
package action

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-heal/internal/driver"
	"github.com/xkilldash9x/scalpel-heal/internal/pattern"
	"github.com/xkilldash9x/scalpel-heal/internal/retry"
)

const (
	// DefaultTimeout bounds each attempt of an action.
	DefaultTimeout = 10 * time.Second
	// DefaultRetries is the attempt budget when an option leaves it zero.
	DefaultRetries = 3
)

// ClickOptions tunes Click.
type ClickOptions struct {
	Retries int
	// Force skips the visible and enabled assertions and is passed on to the
	// driver.
	Force bool
}

// FillOptions tunes Fill.
type FillOptions struct {
	Retries int
	// KeepExisting appends to the current value instead of clearing first.
	KeepExisting bool
}

// SelectOptions tunes SelectOption.
type SelectOptions struct {
	Retries int
	// Exact requires the option's accessible name to equal the text.
	Exact bool
}

// Option configures an Element.
type Option func(*Element)

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Element) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithRetryOptions sets the backoff used between attempts. Per-call Retries
// override MaxAttempts.
func WithRetryOptions(opts retry.Options) Option {
	return func(e *Element) { e.retry = opts }
}

// WithLogger sets the logger retries are reported to.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Element) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Element is one concrete handle plus the retry policy applied to it.
type Element struct {
	page    driver.Page
	el      driver.Elements
	timeout time.Duration
	retry   retry.Options
	logger  *zap.Logger
}

// New wraps el. page is used to find dropdown options and may be nil, in which
// case SelectOption falls back to the driver's native selection.
func New(page driver.Page, el driver.Elements, opts ...Option) *Element {
	e := &Element{
		page:    page,
		el:      el,
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("action")
	return e
}

// Handle returns the wrapped element set.
func (e *Element) Handle() driver.Elements { return e.el }

// do runs steps under the retry policy, each attempt bounded by the timeout.
func (e *Element) do(ctx context.Context, name string, retries int, steps func(ctx context.Context) error) error {
	opts := e.retry
	if retries > 0 {
		opts.MaxAttempts = retries
	} else if opts.MaxAttempts == 0 {
		opts.MaxAttempts = DefaultRetries
	}
	opts.OnRetry = func(attempt int, err error) {
		e.logger.Debug("Retrying action.",
			zap.String("action", name),
			zap.String("element", e.el.String()),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return retry.Do(ctx, func(ctx context.Context) error {
		actx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()
		return steps(actx)
	}, opts)
}

func (e *Element) assertVisible(ctx context.Context) error {
	if err := e.el.WaitFor(ctx, driver.StateVisible); err != nil {
		return fmt.Errorf("waiting for %s to be visible: %w", e.el, err)
	}
	return nil
}

func (e *Element) assertEnabled(ctx context.Context) error {
	enabled, err := e.el.IsEnabled(ctx)
	if err != nil {
		return err
	}
	if !enabled {
		return fmt.Errorf("%w: %s is disabled", driver.ErrNotActionable, e.el)
	}
	return nil
}

// Click asserts the element is visible and enabled, scrolls it into view and
// clicks it.
func (e *Element) Click(ctx context.Context, opts ClickOptions) error {
	return e.do(ctx, "click", opts.Retries, func(ctx context.Context) error {
		if !opts.Force {
			if err := e.assertVisible(ctx); err != nil {
				return err
			}
			if err := e.assertEnabled(ctx); err != nil {
				return err
			}
		}
		if err := e.el.ScrollIntoViewIfNeeded(ctx); err != nil {
			return err
		}
		return e.el.Click(ctx, driver.ClickOptions{Force: opts.Force})
	})
}

// Fill replaces (or with KeepExisting, extends) the element's value and
// verifies it. Verification is skipped for elements without a readable value.
func (e *Element) Fill(ctx context.Context, text string, opts FillOptions) error {
	return e.do(ctx, "fill", opts.Retries, func(ctx context.Context) error {
		if err := e.assertVisible(ctx); err != nil {
			return err
		}
		if err := e.assertEnabled(ctx); err != nil {
			return err
		}

		want := text
		if opts.KeepExisting {
			current, err := e.el.InputValue(ctx)
			if err != nil && !isUnsupported(err) {
				return err
			}
			want = current + text
		} else if err := e.el.Clear(ctx); err != nil {
			return err
		}
		if err := e.el.Fill(ctx, want); err != nil {
			return err
		}

		got, err := e.el.InputValue(ctx)
		switch {
		case isUnsupported(err):
			return nil
		case err != nil:
			return err
		case got != want:
			return fmt.Errorf("value verification failed for %s: got %q, want %q", e.el, got, want)
		}
		return nil
	})
}

// SelectOption opens the dropdown and clicks the option whose accessible
// name matches text. Without a page the driver's native selection is used.
func (e *Element) SelectOption(ctx context.Context, text string, opts SelectOptions) error {
	return e.do(ctx, "select option", opts.Retries, func(ctx context.Context) error {
		if e.page == nil {
			return e.el.SelectOption(ctx, text)
		}
		if err := e.el.Click(ctx, driver.ClickOptions{}); err != nil {
			return fmt.Errorf("opening %s: %w", e.el, err)
		}
		name := pattern.Contains(text)
		if opts.Exact {
			name = pattern.Exact(text)
		}
		option := e.page.QueryByRole("option", driver.RoleOptions{Name: &name}).First()
		if err := option.WaitFor(ctx, driver.StateVisible); err != nil {
			return fmt.Errorf("waiting for option %s: %w", name, err)
		}
		return option.Click(ctx, driver.ClickOptions{})
	})
}

// Hover asserts visibility, scrolls into view and hovers.
func (e *Element) Hover(ctx context.Context) error {
	return e.do(ctx, "hover", 0, func(ctx context.Context) error {
		if err := e.assertVisible(ctx); err != nil {
			return err
		}
		if err := e.el.ScrollIntoViewIfNeeded(ctx); err != nil {
			return err
		}
		return e.el.Hover(ctx)
	})
}

func isUnsupported(err error) bool {
	return err != nil && errors.Is(err, driver.ErrUnsupported)
}
