// internal/driver/domquery/xpath.go
package domquery

import (
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// GenerateUniqueXPath builds an absolute XPath for node. An ancestor carrying
// an id that is unique in the document anchors the path; otherwise the path
// runs from the root with 1-based sibling indices per tag.
func GenerateUniqueXPath(node *html.Node) string {
	if node == nil {
		return ""
	}
	root := documentOf(node)

	var path []string
	for n := node; n != nil && n.Type != html.DocumentNode; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		tag := strings.ToLower(n.Data)
		if tag == "" {
			continue
		}

		if id := htmlquery.SelectAttr(n, "id"); id != "" && countID(root, id) == 1 {
			path = append(path, fmt.Sprintf("//*[@id=%s]", xpathLiteral(id)))
			break
		}

		index := 1
		for prev := n.PrevSibling; prev != nil; prev = prev.PrevSibling {
			if prev.Type == html.ElementNode && strings.ToLower(prev.Data) == tag {
				index++
			}
		}
		path = append(path, fmt.Sprintf("%s[%d]", tag, index))
	}

	if len(path) == 0 {
		return "/"
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	xpath := strings.Join(path, "/")
	if !strings.HasPrefix(xpath, "//*[@id=") {
		xpath = "/" + xpath
	}
	return xpath
}

// xpathLiteral quotes s for use inside an XPath 1.0 expression, falling back
// to concat() when s holds both quote characters.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if p != "" {
			quoted = append(quoted, "'"+p+"'")
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

// XPathLiteral exposes the quoting rule to callers that build XPath text.
func XPathLiteral(s string) string { return xpathLiteral(s) }

func documentOf(n *html.Node) *html.Node {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

func countID(root *html.Node, id string) int {
	count := 0
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && htmlquery.SelectAttr(n, "id") == id {
			count++
		}
		return count < 2
	})
	return count
}

// walk visits n and its descendants in document order. Returning false from
// visit stops the entire walk.
func walk(n *html.Node, visit func(*html.Node) bool) bool {
	if !visit(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}
