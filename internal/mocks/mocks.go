// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/scalpel-heal/internal/driver"
	"github.com/xkilldash9x/scalpel-heal/internal/pattern"
)

// -- Page Mock --

// MockPage mocks driver.Page. Query expectations return a driver.Elements,
// usually a *MockElements.
type MockPage struct {
	mock.Mock
}

var _ driver.Page = (*MockPage)(nil)

func (m *MockPage) elements(args mock.Arguments) driver.Elements {
	if el, ok := args.Get(0).(driver.Elements); ok {
		return el
	}
	return nil
}

func (m *MockPage) QueryByRole(role string, opts driver.RoleOptions) driver.Elements {
	return m.elements(m.Called(role, opts))
}

func (m *MockPage) QueryByText(p pattern.Pattern) driver.Elements {
	return m.elements(m.Called(p))
}

func (m *MockPage) QueryByLabel(p pattern.Pattern) driver.Elements {
	return m.elements(m.Called(p))
}

func (m *MockPage) QueryByPlaceholder(p pattern.Pattern) driver.Elements {
	return m.elements(m.Called(p))
}

func (m *MockPage) QueryByTestID(p pattern.Pattern) driver.Elements {
	return m.elements(m.Called(p))
}

func (m *MockPage) QueryByTitle(p pattern.Pattern) driver.Elements {
	return m.elements(m.Called(p))
}

func (m *MockPage) QueryByAltText(p pattern.Pattern) driver.Elements {
	return m.elements(m.Called(p))
}

func (m *MockPage) QuerySelector(selector string) driver.Elements {
	return m.elements(m.Called(selector))
}

// -- Elements Mock --

// MockElements mocks driver.Elements. First and Nth return the receiver
// unless an expectation is registered for them.
type MockElements struct {
	mock.Mock
}

var _ driver.Elements = (*MockElements)(nil)

func (m *MockElements) hasExpectation(method string) bool {
	for _, c := range m.ExpectedCalls {
		if c.Method == method {
			return true
		}
	}
	return false
}

func (m *MockElements) String() string {
	if !m.hasExpectation("String") {
		return "mock elements"
	}
	return m.Called().String(0)
}

func (m *MockElements) First() driver.Elements {
	if !m.hasExpectation("First") {
		return m
	}
	return m.Called().Get(0).(driver.Elements)
}

func (m *MockElements) Nth(index int) driver.Elements {
	if !m.hasExpectation("Nth") {
		return m
	}
	return m.Called(index).Get(0).(driver.Elements)
}

func (m *MockElements) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockElements) IsVisible(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockElements) IsEnabled(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockElements) IsDisabled(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockElements) TextContent(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockElements) GetAttribute(ctx context.Context, name string) (string, bool, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockElements) InputValue(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockElements) TagName(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockElements) Click(ctx context.Context, opts driver.ClickOptions) error {
	return m.Called(ctx, opts).Error(0)
}

func (m *MockElements) Fill(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

func (m *MockElements) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockElements) SelectOption(ctx context.Context, value string) error {
	return m.Called(ctx, value).Error(0)
}

func (m *MockElements) SetChecked(ctx context.Context, checked bool) error {
	return m.Called(ctx, checked).Error(0)
}

func (m *MockElements) Hover(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockElements) ScrollIntoViewIfNeeded(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockElements) WaitFor(ctx context.Context, state driver.State) error {
	return m.Called(ctx, state).Error(0)
}
