// internal/driver/domquery/text.go
package domquery

import (
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/scalpel-heal/internal/pattern"
)

// blockTags separate words when text is flattened.
var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"br": true, "dd": true, "div": true, "dl": true, "dt": true,
	"fieldset": true, "figcaption": true, "figure": true, "footer": true,
	"form": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "header": true, "hr": true, "li": true, "main": true,
	"nav": true, "ol": true, "p": true, "pre": true, "section": true,
	"table": true, "td": true, "th": true, "tr": true, "ul": true,
	"option": true,
}

func isBlock(tag string) bool { return blockTags[strings.ToLower(tag)] }

// Attr returns the value of the named attribute and whether it is present.
func Attr(n *html.Node, name string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

func attrValue(n *html.Node, name string) string {
	return htmlquery.SelectAttr(n, name)
}

// TextContent mirrors the DOM textContent property: every descendant text
// node concatenated, without normalization.
func TextContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	return htmlquery.InnerText(n)
}

// VisibleText is the whitespace-normalized text a user can read inside n.
// Script, style and other non-rendered subtrees are skipped, block elements
// separate words, and input buttons contribute their value.
func VisibleText(n *html.Node) string {
	return textExcluding(n, nil)
}

// textExcluding is VisibleText with the subtree rooted at skip removed.
func textExcluding(n, skip *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(cur *html.Node) {
		if cur == skip {
			return
		}
		switch cur.Type {
		case html.TextNode:
			b.WriteString(cur.Data)
			return
		case html.ElementNode:
			tag := strings.ToLower(cur.Data)
			if nonRendered[tag] {
				return
			}
			if tag == "input" {
				if isInputButton(cur) {
					b.WriteString(" " + attrValue(cur, "value") + " ")
				}
				return
			}
			if isBlock(tag) {
				b.WriteString(" ")
			}
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
		if cur.Type == html.ElementNode && isBlock(cur.Data) {
			b.WriteString(" ")
		}
	}
	visit(n)
	return pattern.Normalize(b.String())
}

func isInputButton(n *html.Node) bool {
	switch strings.ToLower(attrValue(n, "type")) {
	case "button", "submit", "reset":
		return true
	}
	return false
}

// TagName returns the lowercase tag name of an element.
func TagName(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(n.Data)
}

// Describe renders a short human-readable summary of an element, e.g.
// `button#submit.btn.primary "Continue"`. Text is truncated to 40 runes.
func Describe(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	var b strings.Builder
	b.WriteString(TagName(n))
	if id := attrValue(n, "id"); id != "" {
		b.WriteString("#" + id)
	}
	for _, c := range strings.Fields(attrValue(n, "class")) {
		b.WriteString("." + c)
	}
	if text := VisibleText(n); text != "" {
		b.WriteString(` "` + truncate(text, 40) + `"`)
	}
	return b.String()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
