// internal/healing/strategy_test.go
package healing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/scalpel-heal/internal/driver"
	"github.com/xkilldash9x/scalpel-heal/internal/element"
)

func newRequest(t *testing.T, body string, spec element.Spec) request {
	t.Helper()
	return request{
		page: page(t, body),
		desc: element.MustNew(spec),
		accept: func(ctx context.Context, el driver.Elements) (bool, error) {
			return Probe(ctx, el, 30*time.Millisecond)
		},
		ambiguity: DefaultAmbiguityThreshold,
	}
}

func textOf(t *testing.T, el driver.Elements) string {
	t.Helper()
	text, err := el.First().TextContent(context.Background())
	require.NoError(t, err)
	return text
}

func TestByText_ExactBeforePartial(t *testing.T) {
	req := newRequest(t, `<span>Save draft</span><span>Save</span>`, element.Spec{Purpose: "Save", Text: []string{"save"}})

	// "save" is case-insensitive as a substring but case-sensitive as an exact match.
	c, err := byText(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Save draft", textOf(t, c.Handle))

	req = newRequest(t, `<span>Save draft</span><span>Save</span>`, element.Spec{Purpose: "Save", Text: []string{"Save"}})
	c, err = byText(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Save", textOf(t, c.Handle))
	assert.Equal(t, "text =Save", c.Detail)
}

func TestByRole_ScansBelowThreshold(t *testing.T) {
	body := `<button aria-label="Remove first">Keep</button>
		<button aria-label="Remove second">Delete</button>
		<button aria-label="Remove third">Delete</button>`
	req := newRequest(t, body, element.Spec{Purpose: "Delete", Role: "button", Text: []string{"delete"}})

	c, err := byRole(context.Background(), req)
	require.NoError(t, err)
	label, _, err := c.Handle.GetAttribute(context.Background(), "aria-label")
	require.NoError(t, err)
	assert.Equal(t, "Remove second", label)
	assert.Contains(t, c.Detail, "2 of 3")

	req = newRequest(t, body, element.Spec{Purpose: "Archive", Role: "button", Text: []string{"archive"}})
	_, err = byRole(context.Background(), req)
	assert.ErrorIs(t, err, ErrNoCandidate)
}

func TestByRole_SkipsHiddenTextMatch(t *testing.T) {
	body := `<button>One</button><button style="visibility:hidden">Delete</button><button>Delete</button>`
	req := newRequest(t, body, element.Spec{Purpose: "Delete", Role: "button", Text: []string{"Delete"}})
	c, err := byRole(context.Background(), req)
	require.NoError(t, err)
	// Hidden buttons leave the accessibility tree, so the visible one is 2 of 2.
	assert.Contains(t, c.Detail, "2 of 2")
}

func TestByAttribute(t *testing.T) {
	body := `<div data-qa="pay-now-1">Pay</div><div data-qa="pay">Exact</div>`

	req := newRequest(t, body, element.Spec{Purpose: "Pay", Attributes: map[string]string{"data-qa": "pay"}})
	c, err := byAttribute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Exact", textOf(t, c.Handle), "exact selector wins over substring")

	req = newRequest(t, body, element.Spec{Purpose: "Pay", Attributes: map[string]string{"data-qa": "pay-now"}})
	c, err = byAttribute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Pay", textOf(t, c.Handle))
	assert.Equal(t, `selector [data-qa*="pay-now"]`, c.Detail)

	req = newRequest(t, body, element.Spec{Purpose: "Pay", Attributes: map[string]string{`data-"qa`: "x"}})
	_, err = byAttribute(context.Background(), req)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoCandidate)
}

func TestClassWithTag(t *testing.T) {
	body := `<div class="btn-primary">Not a button</div><button class="btn btn-primary-lg">Go</button>`

	req := newRequest(t, body, element.Spec{Purpose: "Go", Kind: "button", Class: []string{"btn-primary"}})
	c, err := classWithTag(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Go", textOf(t, c.Handle))

	req = newRequest(t, body, element.Spec{Purpose: "Any", Class: []string{"btn-primary"}})
	c, err = classWithTag(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Not a button", textOf(t, c.Handle), "wildcard kinds match any tag")

	req = newRequest(t, `<h1>Jobs</h1><h3 class="section-title">Open roles</h3>`, element.Spec{Purpose: "Roles", Kind: "heading", Class: []string{"title"}})
	c, err = classWithTag(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Open roles", textOf(t, c.Handle))
}

func TestStructuralText(t *testing.T) {
	t.Run("tagged kind", func(t *testing.T) {
		req := newRequest(t, `<p>Welcome back</p><h2>  WELCOME   back, Ana</h2>`, element.Spec{Purpose: "Greeting", Kind: "heading", Text: []string{"welcome back"}})
		c, err := structuralText(context.Background(), req)
		require.NoError(t, err)
		assert.Contains(t, textOf(t, c.Handle), "Ana")
	})

	t.Run("wildcard keeps the innermost element", func(t *testing.T) {
		req := newRequest(t, `<div><section><em>Interview slots</em></section></div>`, element.Spec{Purpose: "Slots", Text: []string{"interview"}})
		c, err := structuralText(context.Background(), req)
		require.NoError(t, err)
		tag, err := c.Handle.First().TagName(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "em", tag)
	})

	t.Run("regex scans the kind's tags", func(t *testing.T) {
		req := newRequest(t, `<a href="/a">Apply today</a><a href="/b">Job #42</a>`, element.Spec{Purpose: "Job", Kind: "link", Text: []string{`/job #\d+/`}})
		c, err := structuralText(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "Job #42", textOf(t, c.Handle))
	})

	t.Run("non-ASCII literals fold case", func(t *testing.T) {
		req := newRequest(t, `<p>Été</p><h2>Offres été 2024</h2>`, element.Spec{Purpose: "Summer", Kind: "heading", Text: []string{"=ÉTÉ 2024"}})
		c, err := structuralText(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "Offres été 2024", textOf(t, c.Handle))

		req = newRequest(t, `<div><section><em>Offres été</em></section></div>`, element.Spec{Purpose: "Summer", Text: []string{"=OFFRES ÉTÉ"}})
		c, err = structuralText(context.Background(), req)
		require.NoError(t, err)
		tag, err := c.Handle.First().TagName(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "em", tag)
	})

	t.Run("regex on a wildcard kind finds nothing", func(t *testing.T) {
		req := newRequest(t, `<span>Job #42</span>`, element.Spec{Purpose: "Job", Text: []string{`/job #\d+/`}})
		_, err := structuralText(context.Background(), req)
		assert.ErrorIs(t, err, ErrNoCandidate)
	})
}

func TestCandidate_IsFirstMatch(t *testing.T) {
	ctx := context.Background()
	req := newRequest(t, `<header><button id="top">Continue</button></header><footer><button id="bottom">Continue</button></footer>`,
		element.Spec{Purpose: "Continue", Kind: "button", Role: "button", Text: []string{"Continue"}})
	c, err := roleWithText(ctx, req)
	require.NoError(t, err)

	n, err := c.Handle.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	id, _, err := c.Handle.GetAttribute(ctx, "id")
	require.NoError(t, err)
	assert.Equal(t, "top", id)
}

func TestContainsTextXPath(t *testing.T) {
	got := containsTextXPath([]string{"input[type=checkbox]"}, "I Agree")
	assert.Equal(t, `//input[@type='checkbox'][contains(translate(normalize-space(.), '`+upperAlpha+`', '`+lowerAlpha+`'), 'i agree')]`, got)

	got = containsTextXPath([]string{"h1", "h2"}, "x")
	assert.Contains(t, got, "//h1[")
	assert.Contains(t, got, " | //h2[")

	got = containsTextXPath(nil, "x")
	assert.True(t, len(got) > 0 && got[:9] == "//body//*")
}

func TestSelectorHelpers(t *testing.T) {
	assert.Equal(t, `"plain"`, cssString("plain"))
	assert.Equal(t, `"say \"hi\" \\ bye"`, cssString(`say "hi" \ bye`))

	for name, want := range map[string]bool{
		"data-qa":    true,
		"aria-label": true,
		"_x1":        true,
		"":           false,
		"1abc":       false,
		"-x":         false,
		"bad name":   false,
		`a"b`:        false,
	} {
		assert.Equal(t, want, validAttributeName(name), name)
	}

	assert.Equal(t, "button", xpathStep("button"))
	assert.Equal(t, "input[@type='radio']", xpathStep("input[type=radio]"))
}
