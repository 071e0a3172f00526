// internal/locator/errors.go
package locator

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrResolutionExhausted means the primary locator, every fallback and
	// every healing strategy failed.
	ErrResolutionExhausted = errors.New("element resolution exhausted")
	// ErrHealingDisabled means the primary locator and fallbacks failed and
	// healing was not allowed to run.
	ErrHealingDisabled = errors.New("healing disabled")
)

// Reason says why a resolution failed.
type Reason string

const (
	ReasonExhausted Reason = "exhausted"
	ReasonDisabled  Reason = "disabled"
	// ReasonBudget means the strategy chain already failed maxHealingAttempts
	// times for this locator.
	ReasonBudget Reason = "budget"
)

// ResolutionError reports a failed Resolve. It matches ErrResolutionExhausted
// or ErrHealingDisabled through errors.Is.
type ResolutionError struct {
	Purpose string
	// Locators are the primary and fallback expressions that were probed.
	Locators []string
	// Attempted are the healing strategies reached, in order.
	Attempted []string
	Reason    Reason
	// Err is an underlying cause such as a cancelled context.
	Err error
}

func (e *ResolutionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "could not resolve %q", e.Purpose)
	if len(e.Locators) > 0 {
		fmt.Fprintf(&b, ": locators %s did not match", strings.Join(quoteAll(e.Locators), ", "))
	}
	switch e.Reason {
	case ReasonDisabled:
		b.WriteString("; healing is disabled")
	case ReasonBudget:
		b.WriteString("; healing already failed too often for this element")
	default:
		if len(e.Attempted) > 0 {
			fmt.Fprintf(&b, "; strategies attempted: %s", strings.Join(e.Attempted, ", "))
		} else {
			b.WriteString("; no healing strategy was attempted")
		}
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ResolutionError) Is(target error) bool {
	switch target {
	case ErrResolutionExhausted:
		return e.Reason == ReasonExhausted
	case ErrHealingDisabled:
		return e.Reason == ReasonDisabled || e.Reason == ReasonBudget
	}
	return false
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// ExpectationError reports a failed expectation on a resolved element.
type ExpectationError struct {
	Purpose     string
	Expectation string
	Expected    string
	Actual      string
	Err         error
}

func (e *ExpectationError) Error() string {
	msg := fmt.Sprintf("expected %q %s", e.Purpose, e.Expectation)
	if e.Expected != "" {
		msg += fmt.Sprintf(" %q", e.Expected)
	}
	if e.Actual != "" {
		msg += fmt.Sprintf(", got %q", e.Actual)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ExpectationError) Unwrap() error { return e.Err }

func quoteAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
