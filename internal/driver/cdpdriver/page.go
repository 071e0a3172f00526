// internal/driver/cdpdriver/page.go
// Package cdpdriver implements driver.Page over a live Chrome tab through
// chromedp. Queries are evaluated on a fresh snapshot of the document with
// domquery, so role and accessible-name semantics match the offline driver;
// reads and actions then target the live node through its generated XPath.
package cdpdriver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/scalpel-heal/internal/driver"
	"github.com/xkilldash9x/scalpel-heal/internal/driver/domquery"
	"github.com/xkilldash9x/scalpel-heal/internal/pattern"
)

// Option configures a Page.
type Option func(*Page)

// WithTestIDAttribute sets the attribute QueryByTestID matches.
func WithTestIDAttribute(attr string) Option {
	return func(p *Page) { p.engine = domquery.New(attr) }
}

// WithPollInterval sets how often WaitFor re-evaluates.
func WithPollInterval(d time.Duration) Option {
	return func(p *Page) {
		if d > 0 {
			p.pollInterval = d
		}
	}
}

// Page drives one chromedp tab.
type Page struct {
	// tabCtx carries the chromedp target; operation deadlines come from the
	// per-call context.
	tabCtx       context.Context
	logger       *zap.Logger
	engine       *domquery.Engine
	pollInterval time.Duration
}

var _ driver.Page = (*Page)(nil)

// New binds a Page to a chromedp tab context.
func New(tabCtx context.Context, logger *zap.Logger, opts ...Option) *Page {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Page{
		tabCtx:       tabCtx,
		logger:       logger.Named("cdp_page"),
		engine:       domquery.New(""),
		pollInterval: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Navigate loads url and waits for the body to be ready.
func (p *Page) Navigate(ctx context.Context, url string) error {
	p.logger.Info("Navigating.", zap.String("url", url))
	if err := p.run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// run executes actions on the tab, bounded by both ctx and the tab lifetime.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(p.tabCtx, ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		// Report the caller's deadline rather than the derived context's.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// snapshot parses the current document.
func (p *Page) snapshot(ctx context.Context) (*html.Node, error) {
	var outer string
	if err := p.run(ctx, chromedp.Evaluate(jsOuterHTML, &outer)); err != nil {
		return nil, fmt.Errorf("failed to snapshot document: %w", err)
	}
	root, err := html.Parse(strings.NewReader(outer))
	if err != nil {
		return nil, fmt.Errorf("failed to parse document snapshot: %w", err)
	}
	return root, nil
}

// evalScript runs an element script and decodes its result.
func (p *Page) evalScript(ctx context.Context, xpath, body string) (scriptResult, error) {
	var res scriptResult
	if err := p.run(ctx, chromedp.Evaluate(elementScript(xpath, body), &res)); err != nil {
		return res, err
	}
	if !res.Found {
		return res, fmt.Errorf("%w: %s", driver.ErrDetached, xpath)
	}
	return res, nil
}

func (p *Page) QueryByRole(role string, opts driver.RoleOptions) driver.Elements {
	return p.handle(p.engine.Role(role, opts))
}

func (p *Page) QueryByText(pt pattern.Pattern) driver.Elements {
	return p.handle(p.engine.Text(pt))
}

func (p *Page) QueryByLabel(pt pattern.Pattern) driver.Elements {
	return p.handle(p.engine.Label(pt))
}

func (p *Page) QueryByPlaceholder(pt pattern.Pattern) driver.Elements {
	return p.handle(p.engine.Placeholder(pt))
}

func (p *Page) QueryByTestID(pt pattern.Pattern) driver.Elements {
	return p.handle(p.engine.TestID(pt))
}

func (p *Page) QueryByTitle(pt pattern.Pattern) driver.Elements {
	return p.handle(p.engine.Title(pt))
}

func (p *Page) QueryByAltText(pt pattern.Pattern) driver.Elements {
	return p.handle(p.engine.AltText(pt))
}

func (p *Page) QuerySelector(selector string) driver.Elements {
	return p.handle(p.engine.Selector(selector))
}

func (p *Page) handle(q domquery.Query) *Elements {
	return &Elements{page: p, query: q}
}
