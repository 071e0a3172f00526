// internal/driver/domquery/query_test.go
package domquery

import (
	"strings"
	"testing"

	"github.com/antchfx/htmlquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/scalpel-heal/internal/driver"
	"github.com/xkilldash9x/scalpel-heal/internal/pattern"
)

const fixture = `<!DOCTYPE html>
<html><head><title>Checkout</title><script>var label = "Continue";</script></head>
<body>
  <header><a href="/">Home</a></header>
  <main>
    <h1>Checkout</h1>
    <form id="checkout">
      <label for="email">Email address</label>
      <input id="email" type="email" placeholder="you@example.com">
      <label>Promo code <input name="promo" type="text"></label>
      <input type="hidden" name="csrf" value="x">
      <input type="submit" value="Place order">
      <button class="btn btn-primary" data-testid="continue-btn">Continue</button>
      <button aria-label="Close dialog">X</button>
      <button style="display:none">Continue</button>
      <button disabled>Disabled</button>
      <fieldset disabled><legend><button>In legend</button></legend><input id="inner" aria-label="Inner"></fieldset>
      <select id="country" aria-label="Country"><option value="us">United States</option><option value="ca">Canada</option></select>
      <input type="checkbox" id="terms"><label for="terms">I accept the terms</label>
    </form>
    <img src="logo.png" alt="Company logo" title="Home page">
    <img src="spacer.gif" alt="">
    <div hidden><button>Secret</button></div>
    <p>Need help? <span>Contact support</span></p>
  </main>
</body></html>`

func parse(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	require.NoError(t, err)
	return doc
}

func eval(t *testing.T, root *html.Node, q Query) []*html.Node {
	t.Helper()
	nodes, err := q.Eval(root)
	require.NoError(t, err)
	return nodes
}

func texts(nodes []*html.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = VisibleText(n)
	}
	return out
}

func patternPtr(p pattern.Pattern) *pattern.Pattern { return &p }

func TestRoleOf(t *testing.T) {
	root := parse(t, fixture)
	tests := []struct {
		xpath string
		role  string
	}{
		{"//header/a", "link"},
		{"//header", "banner"},
		{"//h1", "heading"},
		{"//input[@id='email']", "textbox"},
		{"//input[@type='submit']", "button"},
		{"//input[@type='hidden']", ""},
		{"//input[@type='checkbox']", "checkbox"},
		{"//select", "combobox"},
		{"//option[1]", "option"},
		{"//img[@alt='Company logo']", "img"},
		{"//img[@alt='']", "presentation"},
		{"//p", ""},
	}
	for _, tt := range tests {
		t.Run(tt.xpath, func(t *testing.T) {
			n := htmlquery.FindOne(root, tt.xpath)
			require.NotNil(t, n)
			assert.Equal(t, tt.role, RoleOf(n))
		})
	}

	n := parse(t, `<div role="Button Link">x</div>`)
	assert.Equal(t, "button", RoleOf(htmlquery.FindOne(n, "//div")), "first token of the role attribute wins")
}

func TestAccessibleName(t *testing.T) {
	root := parse(t, fixture)
	tests := []struct {
		xpath string
		name  string
	}{
		{"//input[@id='email']", "Email address"},
		{"//input[@name='promo']", "Promo code"},
		{"//input[@type='submit']", "Place order"},
		{"//button[@data-testid='continue-btn']", "Continue"},
		{"//button[@aria-label]", "Close dialog"},
		{"//select", "Country"},
		{"//input[@id='terms']", "I accept the terms"},
		{"//img[@alt='Company logo']", "Company logo"},
		{"//h1", "Checkout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := htmlquery.FindOne(root, tt.xpath)
			require.NotNil(t, n)
			assert.Equal(t, tt.name, AccessibleName(n))
		})
	}

	t.Run("aria-labelledby wins over content", func(t *testing.T) {
		doc := parse(t, `<span id="a">Save</span><span id="b">draft</span><button aria-labelledby="a b">Go</button>`)
		assert.Equal(t, "Save draft", AccessibleName(htmlquery.FindOne(doc, "//button")))
	})
}

func TestVisibility(t *testing.T) {
	root := parse(t, fixture)
	visible := func(xpath string) bool {
		n := htmlquery.FindOne(root, xpath)
		require.NotNil(t, n, xpath)
		return IsVisible(n)
	}

	assert.True(t, visible("//button[@data-testid='continue-btn']"))
	assert.False(t, visible("//button[@style]"), "display:none")
	assert.False(t, visible("//input[@type='hidden']"))
	assert.False(t, visible("//div[@hidden]/button"), "hidden ancestor")
	assert.False(t, visible("//title"))

	doc := parse(t, `<div style="visibility: hidden"><span id="a">a</span><span id="b" style="visibility:visible">b</span></div>`)
	assert.False(t, IsVisible(htmlquery.FindOne(doc, "//span[@id='a']")))
	assert.True(t, IsVisible(htmlquery.FindOne(doc, "//span[@id='b']")), "visibility can be restored by a descendant")
}

func TestIsEnabled(t *testing.T) {
	root := parse(t, fixture)
	enabled := func(xpath string) bool {
		n := htmlquery.FindOne(root, xpath)
		require.NotNil(t, n, xpath)
		return IsEnabled(n)
	}

	assert.True(t, enabled("//button[@data-testid='continue-btn']"))
	assert.False(t, enabled("//button[@disabled]"))
	assert.False(t, enabled("//input[@id='inner']"), "disabled fieldset")
	assert.True(t, enabled("//legend/button"), "first legend escapes the fieldset")

	doc := parse(t, `<div aria-disabled="true"><span role="button">x</span></div>`)
	assert.False(t, IsEnabled(htmlquery.FindOne(doc, "//span")))
}

func TestEngineQueries(t *testing.T) {
	root := parse(t, fixture)
	e := New("")

	t.Run("role with name excludes hidden duplicates", func(t *testing.T) {
		nodes := eval(t, root, e.Role("button", driver.RoleOptions{Name: patternPtr(pattern.Contains("continue"))}))
		require.Len(t, nodes, 1)
		assert.Equal(t, "continue-btn", htmlquery.SelectAttr(nodes[0], "data-testid"))
	})

	t.Run("role without name", func(t *testing.T) {
		nodes := eval(t, root, e.Role("heading", driver.RoleOptions{}))
		assert.Equal(t, []string{"Checkout"}, texts(nodes))
	})

	t.Run("exact name is case sensitive", func(t *testing.T) {
		assert.Empty(t, eval(t, root, e.Role("button", driver.RoleOptions{Name: patternPtr(pattern.Exact("continue"))})))
		assert.Len(t, eval(t, root, e.Role("button", driver.RoleOptions{Name: patternPtr(pattern.Exact("Continue"))})), 1)
	})

	t.Run("text returns innermost match and ignores scripts", func(t *testing.T) {
		nodes := eval(t, root, e.Text(pattern.Contains("contact support")))
		require.Len(t, nodes, 1)
		assert.Equal(t, "span", TagName(nodes[0]))

		nodes = eval(t, root, e.Text(pattern.Exact("Continue")))
		assert.Len(t, nodes, 2, "both the visible and the hidden button carry the text")
	})

	t.Run("text spanning children matches the parent", func(t *testing.T) {
		nodes := eval(t, root, e.Text(pattern.Contains("help? contact")))
		require.Len(t, nodes, 1)
		assert.Equal(t, "p", TagName(nodes[0]))
	})

	t.Run("label", func(t *testing.T) {
		nodes := eval(t, root, e.Label(pattern.Contains("email")))
		require.Len(t, nodes, 1)
		assert.Equal(t, "email", htmlquery.SelectAttr(nodes[0], "id"))

		nodes = eval(t, root, e.Label(pattern.Contains("promo")))
		require.Len(t, nodes, 1)
		assert.Equal(t, "promo", htmlquery.SelectAttr(nodes[0], "name"))
	})

	t.Run("attribute queries", func(t *testing.T) {
		assert.Len(t, eval(t, root, e.Placeholder(pattern.Contains("example.com"))), 1)
		assert.Len(t, eval(t, root, e.TestID(pattern.Exact("continue-btn"))), 1)
		assert.Len(t, eval(t, root, e.Title(pattern.Contains("home"))), 1)
		assert.Len(t, eval(t, root, e.AltText(pattern.MustRegex("^company"))), 1)
	})

	t.Run("custom test id attribute", func(t *testing.T) {
		doc := parse(t, `<button data-qa="pay">Pay</button>`)
		assert.Empty(t, eval(t, doc, New("").TestID(pattern.Exact("pay"))))
		assert.Len(t, eval(t, doc, New("data-qa").TestID(pattern.Exact("pay"))), 1)
	})

	t.Run("css and xpath selectors", func(t *testing.T) {
		assert.Len(t, eval(t, root, e.Selector(`button[class*="primary"]`)), 1)
		assert.Len(t, eval(t, root, e.Selector(`css=#checkout button`)), 5)
		assert.Len(t, eval(t, root, e.Selector(`//select/option`)), 2)
		assert.Len(t, eval(t, root, e.Selector(`xpath=//h1`)), 1)
	})

	t.Run("invalid selectors fail on evaluation", func(t *testing.T) {
		_, err := e.Selector("button[").Eval(root)
		require.Error(t, err)
		_, err = e.Selector("//button[").Eval(root)
		require.Error(t, err)
	})

	t.Run("nth and first", func(t *testing.T) {
		options := e.Selector("//option")
		assert.Equal(t, []string{"United States"}, texts(eval(t, root, options.First())))
		assert.Equal(t, []string{"Canada"}, texts(eval(t, root, options.Nth(-1))))
		assert.Empty(t, eval(t, root, options.Nth(5)))
		assert.Equal(t, "xpath=//option >> nth=1", options.Nth(1).String())
	})
}

func TestGenerateUniqueXPath(t *testing.T) {
	root := parse(t, fixture)

	t.Run("anchors on a unique id", func(t *testing.T) {
		n := htmlquery.FindOne(root, "//form/button[1]")
		xpath := GenerateUniqueXPath(n)
		assert.Equal(t, "//*[@id='checkout']/button[1]", xpath)
		assert.Same(t, n, htmlquery.FindOne(root, xpath))
	})

	t.Run("absolute path without ids", func(t *testing.T) {
		n := htmlquery.FindOne(root, "//p/span")
		xpath := GenerateUniqueXPath(n)
		assert.Equal(t, "/html[1]/body[1]/main[1]/p[1]/span[1]", xpath)
		assert.Same(t, n, htmlquery.FindOne(root, xpath))
	})

	t.Run("skips duplicated ids", func(t *testing.T) {
		doc := parse(t, `<div id="dup"><b>a</b></div><div id="dup"><b>b</b></div>`)
		n := htmlquery.FindOne(doc, "(//b)[2]")
		xpath := GenerateUniqueXPath(n)
		assert.Same(t, n, htmlquery.FindOne(doc, xpath))
		assert.NotContains(t, xpath, "@id")
	})

	t.Run("quotes ids with apostrophes", func(t *testing.T) {
		doc := parse(t, `<div id="it's"><b>a</b></div>`)
		n := htmlquery.FindOne(doc, "//b")
		assert.Same(t, n, htmlquery.FindOne(doc, GenerateUniqueXPath(n)))
	})

	assert.Equal(t, "", GenerateUniqueXPath(nil))
}

func TestDescribe(t *testing.T) {
	root := parse(t, fixture)
	n := htmlquery.FindOne(root, "//button[@data-testid='continue-btn']")
	assert.Equal(t, `button.btn.btn-primary "Continue"`, Describe(n))
}
