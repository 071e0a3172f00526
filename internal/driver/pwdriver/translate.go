// internal/driver/pwdriver/translate.go
package pwdriver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/xkilldash9x/scalpel-heal/internal/driver"
	"github.com/xkilldash9x/scalpel-heal/internal/pattern"
)

// textArg maps a pattern onto the text argument of Playwright's getBy*
// helpers: a string with Exact for literals, a *regexp.Regexp for regexes.
// Playwright's non-exact string matching is already a case-insensitive,
// whitespace-normalised substring match.
func textArg(p pattern.Pattern) (interface{}, *bool) {
	switch p.Kind() {
	case pattern.KindRegex:
		return p.Regexp(), nil
	case pattern.KindExact:
		return p.Raw(), playwright.Bool(true)
	default:
		return p.Raw(), playwright.Bool(false)
	}
}

// testIDArg maps a pattern onto GetByTestId, which treats strings as exact
// matches; substring patterns become a quoted case-insensitive regex.
func testIDArg(p pattern.Pattern) interface{} {
	switch p.Kind() {
	case pattern.KindRegex:
		return p.Regexp()
	case pattern.KindExact:
		return p.Raw()
	default:
		return regexp.MustCompile("(?i)" + regexp.QuoteMeta(p.Raw()))
	}
}

// timeoutMS converts the remaining time on ctx into a Playwright timeout.
// Without a deadline the driver default applies.
func timeoutMS(ctx context.Context) *float64 {
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	remaining := time.Until(deadline)
	// Playwright reads 0 as "no timeout"; keep at least one millisecond.
	ms := math.Max(1, float64(remaining.Milliseconds()))
	return playwright.Float(ms)
}

// mapError translates Playwright failures into the driver taxonomy. The
// original error stays in the chain.
func mapError(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w: %w", op, ctxErr, err)
	}
	msg := err.Error()
	switch {
	case errors.Is(err, playwright.ErrTimeout):
		return fmt.Errorf("%s: %w: %w", op, context.DeadlineExceeded, err)
	case strings.Contains(msg, "strict mode violation"):
		return fmt.Errorf("%s: %w: %w", op, driver.ErrStrictMode, err)
	case strings.Contains(msg, "not attached") || strings.Contains(msg, "detached"):
		return fmt.Errorf("%s: %w: %w", op, driver.ErrDetached, err)
	case strings.Contains(msg, "not an <input>") || strings.Contains(msg, "not a <select>") ||
		strings.Contains(msg, "Not a checkbox or radio"):
		return fmt.Errorf("%s: %w: %w", op, driver.ErrUnsupported, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// waitState maps a driver state to Playwright's.
func waitState(s driver.State) (*playwright.WaitForSelectorState, error) {
	switch s {
	case driver.StateAttached:
		return playwright.WaitForSelectorStateAttached, nil
	case driver.StateDetached:
		return playwright.WaitForSelectorStateDetached, nil
	case driver.StateVisible:
		return playwright.WaitForSelectorStateVisible, nil
	case driver.StateHidden:
		return playwright.WaitForSelectorStateHidden, nil
	}
	return nil, fmt.Errorf("unknown element state %q", s)
}
