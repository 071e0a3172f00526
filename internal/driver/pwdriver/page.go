// internal/driver/pwdriver/page.go
// Package pwdriver implements driver.Page over playwright-go. Queries map
// one-to-one onto Playwright locators, so the lazy, re-evaluated semantics and
// Playwright's own role and accessible-name engine apply unchanged.
package pwdriver

import (
	"context"
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/xkilldash9x/scalpel-heal/internal/driver"
	"github.com/xkilldash9x/scalpel-heal/internal/pattern"
)

// Option configures a Page.
type Option func(*Page)

// WithTestIDAttribute sets the attribute QueryByTestID matches. Playwright
// configures this per selector engine, so a non-default attribute is matched
// through a CSS attribute selector instead of GetByTestId.
func WithTestIDAttribute(attr string) Option {
	return func(p *Page) {
		if attr != "" {
			p.testIDAttribute = attr
		}
	}
}

// Page wraps one Playwright page.
type Page struct {
	page            playwright.Page
	testIDAttribute string
}

var _ driver.Page = (*Page)(nil)

// New wraps page.
func New(page playwright.Page, opts ...Option) *Page {
	p := &Page{page: page, testIDAttribute: "data-testid"}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Navigate loads url and waits for the load event.
func (p *Page) Navigate(ctx context.Context, url string) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   timeoutMS(ctx),
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	return mapError(ctx, "navigate to "+url, err)
}

func (p *Page) QueryByRole(role string, opts driver.RoleOptions) driver.Elements {
	o := playwright.PageGetByRoleOptions{}
	desc := "role=" + role
	if opts.Name != nil {
		o.Name, o.Exact = textArg(*opts.Name)
		desc += fmt.Sprintf("[name=%q]", opts.Name.String())
	}
	return wrap(p.page.GetByRole(playwright.AriaRole(role), o), desc)
}

func (p *Page) QueryByText(pt pattern.Pattern) driver.Elements {
	text, exact := textArg(pt)
	return wrap(p.page.GetByText(text, playwright.PageGetByTextOptions{Exact: exact}), fmt.Sprintf("text=%q", pt.String()))
}

func (p *Page) QueryByLabel(pt pattern.Pattern) driver.Elements {
	text, exact := textArg(pt)
	return wrap(p.page.GetByLabel(text, playwright.PageGetByLabelOptions{Exact: exact}), fmt.Sprintf("label=%q", pt.String()))
}

func (p *Page) QueryByPlaceholder(pt pattern.Pattern) driver.Elements {
	text, exact := textArg(pt)
	return wrap(p.page.GetByPlaceholder(text, playwright.PageGetByPlaceholderOptions{Exact: exact}), fmt.Sprintf("placeholder=%q", pt.String()))
}

func (p *Page) QueryByTestID(pt pattern.Pattern) driver.Elements {
	desc := fmt.Sprintf("%s=%q", p.testIDAttribute, pt.String())
	if p.testIDAttribute != "data-testid" {
		return wrap(p.page.Locator(attributeSelector(p.testIDAttribute, pt)), desc)
	}
	return wrap(p.page.GetByTestId(testIDArg(pt)), desc)
}

func (p *Page) QueryByTitle(pt pattern.Pattern) driver.Elements {
	text, exact := textArg(pt)
	return wrap(p.page.GetByTitle(text, playwright.PageGetByTitleOptions{Exact: exact}), fmt.Sprintf("title=%q", pt.String()))
}

func (p *Page) QueryByAltText(pt pattern.Pattern) driver.Elements {
	text, exact := textArg(pt)
	return wrap(p.page.GetByAltText(text, playwright.PageGetByAltTextOptions{Exact: exact}), fmt.Sprintf("alt=%q", pt.String()))
}

// QuerySelector accepts CSS or XPath. Playwright detects XPath that starts
// with "//" or "..", so other XPath forms get an explicit engine prefix.
func (p *Page) QuerySelector(selector string) driver.Elements {
	expr, isXPath := driver.SplitSelector(selector)
	if isXPath {
		return wrap(p.page.Locator("xpath="+expr), "xpath="+expr)
	}
	return wrap(p.page.Locator("css="+expr), "css="+expr)
}

// attributeSelector renders a CSS attribute selector for a literal pattern.
// Regex patterns cannot be expressed in CSS and fall back to the internal
// attribute engine, which accepts JavaScript regex syntax.
func attributeSelector(attr string, pt pattern.Pattern) string {
	switch pt.Kind() {
	case pattern.KindExact:
		return fmt.Sprintf(`[%s=%q]`, attr, pt.Raw())
	case pattern.KindRegex:
		return fmt.Sprintf(`internal:attr=[%s=/%s/i]`, attr, pt.Raw())
	default:
		return fmt.Sprintf(`[%s*=%q i]`, attr, pt.Raw())
	}
}
