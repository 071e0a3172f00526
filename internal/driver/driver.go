// File: internal/driver/driver.go
// Package driver defines the narrow contract the resolution subsystem consumes
// from a browser-automation backend: "given a description, return a handle to
// zero or more matching elements" and "given a handle, tell me about it or act
// on it". Concrete backends live in the subpackages (htmldriver, cdpdriver,
// pwdriver).
//
// Queries are lazy. Building an Elements handle never touches the page; the
// query is evaluated each time a method on the handle is called, so a handle
// follows the page through re-renders the same way a Playwright locator does.
package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xkilldash9x/scalpel-heal/internal/pattern"
)

var (
	// ErrNotFound is returned by actions on a handle that matches nothing.
	ErrNotFound = errors.New("driver: no element matches the query")
	// ErrDetached is returned when the element left the document mid-interaction.
	ErrDetached = errors.New("driver: element is detached from the document")
	// ErrStrictMode is returned by actions on a handle that matches more than one element.
	ErrStrictMode = errors.New("driver: query matches more than one element")
	// ErrNotActionable is returned when an element is hidden or disabled for an action.
	ErrNotActionable = errors.New("driver: element is not actionable")
	// ErrUnsupported is returned when the element type does not support the operation,
	// for example reading the input value of a <div>.
	ErrUnsupported = errors.New("driver: operation not supported by element")
)

// State is an element state that WaitFor can block on.
type State string

const (
	StateAttached State = "attached"
	StateDetached State = "detached"
	StateVisible  State = "visible"
	StateHidden   State = "hidden"
)

// ParseState validates a state name.
func ParseState(s string) (State, error) {
	switch st := State(strings.ToLower(strings.TrimSpace(s))); st {
	case StateAttached, StateDetached, StateVisible, StateHidden:
		return st, nil
	default:
		return "", fmt.Errorf("unknown element state %q", s)
	}
}

// RoleOptions narrows a role query by accessible name.
type RoleOptions struct {
	Name *pattern.Pattern
}

// ClickOptions tunes Click.
type ClickOptions struct {
	// Force skips the driver's actionability checks.
	Force bool
}

// Page is the query side of a browser page or tab. A Page is driven by one
// caller at a time.
type Page interface {
	QueryByRole(role string, opts RoleOptions) Elements
	QueryByText(p pattern.Pattern) Elements
	QueryByLabel(p pattern.Pattern) Elements
	QueryByPlaceholder(p pattern.Pattern) Elements
	QueryByTestID(p pattern.Pattern) Elements
	QueryByTitle(p pattern.Pattern) Elements
	QueryByAltText(p pattern.Pattern) Elements
	// QuerySelector accepts CSS or XPath; see IsXPath.
	QuerySelector(selector string) Elements
}

// Elements is a lazy handle to the zero or more elements a query matches.
// Every blocking method is bounded by its context.
type Elements interface {
	Count(ctx context.Context) (int, error)
	First() Elements
	Nth(index int) Elements

	IsVisible(ctx context.Context) (bool, error)
	IsEnabled(ctx context.Context) (bool, error)
	IsDisabled(ctx context.Context) (bool, error)
	TextContent(ctx context.Context) (string, error)
	// GetAttribute reports the attribute value and whether it is present.
	GetAttribute(ctx context.Context, name string) (string, bool, error)
	InputValue(ctx context.Context) (string, error)
	TagName(ctx context.Context) (string, error)

	Click(ctx context.Context, opts ClickOptions) error
	Fill(ctx context.Context, text string) error
	Clear(ctx context.Context) error
	SelectOption(ctx context.Context, value string) error
	SetChecked(ctx context.Context, checked bool) error
	Hover(ctx context.Context) error
	ScrollIntoViewIfNeeded(ctx context.Context) error
	WaitFor(ctx context.Context, state State) error

	// String renders the query for logs and error messages.
	String() string
}

// IsXPath reports whether a selector uses XPath syntax: a leading "/", "(" or
// an explicit "xpath=" prefix.
func IsXPath(selector string) bool {
	s := strings.TrimSpace(selector)
	return strings.HasPrefix(s, "/") || strings.HasPrefix(s, "(") || strings.HasPrefix(s, "xpath=")
}

// SplitSelector strips an "xpath=" or "css=" engine prefix and reports whether
// the remaining expression is XPath.
func SplitSelector(selector string) (expr string, xpath bool) {
	s := strings.TrimSpace(selector)
	switch {
	case strings.HasPrefix(s, "xpath="):
		return strings.TrimPrefix(s, "xpath="), true
	case strings.HasPrefix(s, "css="):
		return strings.TrimPrefix(s, "css="), false
	default:
		return s, IsXPath(s)
	}
}
