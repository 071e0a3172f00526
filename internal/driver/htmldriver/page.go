// internal/driver/htmldriver/page.go
// Package htmldriver is an offline driver.Page over a static HTML document.
// Queries run through domquery; actions mutate the in-memory tree so that a
// fill is observable through InputValue and a click toggles checkboxes. It
// backs snapshot checks in the CLI and the behavioural tests of the locator
// and resolver.
package htmldriver

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/scalpel-heal/internal/driver"
	"github.com/xkilldash9x/scalpel-heal/internal/driver/domquery"
	"github.com/xkilldash9x/scalpel-heal/internal/pattern"
)

const defaultPollInterval = 25 * time.Millisecond

// Interaction is one recorded action against the document.
type Interaction struct {
	Action string
	// Target is the unique XPath of the element acted on.
	Target string
	Value  string
}

// Option configures a Page.
type Option func(*Page)

// WithTestIDAttribute sets the attribute QueryByTestID matches.
func WithTestIDAttribute(attr string) Option {
	return func(p *Page) { p.engine = domquery.New(attr) }
}

// WithPollInterval sets how often WaitFor re-evaluates its condition.
func WithPollInterval(d time.Duration) Option {
	return func(p *Page) {
		if d > 0 {
			p.pollInterval = d
		}
	}
}

// Page is a static document. It is safe for concurrent use; SetContent may
// replace the document while other goroutines wait on it.
type Page struct {
	mu           sync.RWMutex
	root         *html.Node
	engine       *domquery.Engine
	pollInterval time.Duration
	interactions []Interaction
}

var _ driver.Page = (*Page)(nil)

// NewPage parses r into a new Page.
func NewPage(r io.Reader, opts ...Option) (*Page, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html document: %w", err)
	}
	p := &Page{
		root:         root,
		engine:       domquery.New(""),
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// FromString is NewPage over an in-memory document.
func FromString(doc string, opts ...Option) (*Page, error) {
	return NewPage(strings.NewReader(doc), opts...)
}

// MustFromString is FromString for test fixtures; it panics on parse errors.
func MustFromString(doc string, opts ...Option) *Page {
	p, err := FromString(doc, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// SetContent replaces the document, simulating a re-render. Existing handles
// follow the new document on their next use.
func (p *Page) SetContent(doc string) error {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return fmt.Errorf("failed to parse html document: %w", err)
	}
	p.mu.Lock()
	p.root = root
	p.mu.Unlock()
	return nil
}

// HTML renders the current document.
func (p *Page) HTML() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var b strings.Builder
	_ = html.Render(&b, p.root)
	return b.String()
}

// Interactions returns a copy of the recorded action log.
func (p *Page) Interactions() []Interaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Interaction, len(p.interactions))
	copy(out, p.interactions)
	return out
}

func (p *Page) record(action string, n *html.Node, value string) {
	p.interactions = append(p.interactions, Interaction{
		Action: action,
		Target: domquery.GenerateUniqueXPath(n),
		Value:  value,
	})
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
