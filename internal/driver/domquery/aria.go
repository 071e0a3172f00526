// internal/driver/domquery/aria.go
package domquery

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/scalpel-heal/internal/pattern"
)

// nameFromContent lists roles whose accessible name falls back to their
// text content.
var nameFromContent = map[string]bool{
	"button": true, "cell": true, "checkbox": true, "columnheader": true,
	"gridcell": true, "heading": true, "link": true, "menuitem": true,
	"menuitemcheckbox": true, "menuitemradio": true, "option": true,
	"radio": true, "row": true, "rowheader": true, "switch": true,
	"tab": true, "tooltip": true, "treeitem": true,
}

// landmarkTags maps elements with a fixed implicit role.
var landmarkTags = map[string]string{
	"button":   "button",
	"nav":      "navigation",
	"main":     "main",
	"aside":    "complementary",
	"article":  "article",
	"dialog":   "dialog",
	"form":     "form",
	"table":    "table",
	"tr":       "row",
	"td":       "cell",
	"th":       "columnheader",
	"ul":       "list",
	"ol":       "list",
	"menu":     "list",
	"li":       "listitem",
	"option":   "option",
	"progress": "progressbar",
	"hr":       "separator",
	"fieldset": "group",
	"details":  "group",
	"output":   "status",
	"textarea": "textbox",
	"search":   "search",
	"h1":       "heading",
	"h2":       "heading",
	"h3":       "heading",
	"h4":       "heading",
	"h5":       "heading",
	"h6":       "heading",
}

// RoleOf returns the explicit role attribute's first token, or the implicit
// role of the element. An empty string means the element has no role.
func RoleOf(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	if explicit := strings.Fields(strings.ToLower(attrValue(n, "role"))); len(explicit) > 0 {
		return explicit[0]
	}

	tag := strings.ToLower(n.Data)
	switch tag {
	case "a", "area":
		if _, ok := Attr(n, "href"); ok {
			return "link"
		}
		return ""
	case "header":
		if !withinSectioning(n) {
			return "banner"
		}
		return ""
	case "footer":
		if !withinSectioning(n) {
			return "contentinfo"
		}
		return ""
	case "section":
		if accessibleNameExplicit(n) != "" {
			return "region"
		}
		return ""
	case "img":
		if alt, ok := Attr(n, "alt"); ok && alt == "" {
			return "presentation"
		}
		return "img"
	case "select":
		_, multiple := Attr(n, "multiple")
		if multiple || (attrValue(n, "size") != "" && attrValue(n, "size") != "1") {
			return "listbox"
		}
		return "combobox"
	case "input":
		return inputRole(n)
	}
	return landmarkTags[tag]
}

func inputRole(n *html.Node) string {
	_, hasList := Attr(n, "list")
	switch strings.ToLower(attrValue(n, "type")) {
	case "button", "submit", "reset", "image":
		return "button"
	case "checkbox":
		return "checkbox"
	case "radio":
		return "radio"
	case "range":
		return "slider"
	case "number":
		return "spinbutton"
	case "hidden", "file", "color":
		return ""
	case "search":
		if hasList {
			return "combobox"
		}
		return "searchbox"
	default:
		if hasList {
			return "combobox"
		}
		return "textbox"
	}
}

func withinSectioning(n *html.Node) bool {
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		switch strings.ToLower(cur.Data) {
		case "article", "aside", "main", "nav", "section":
			return true
		}
	}
	return false
}

// AccessibleName computes a simplified accessible name: aria-labelledby,
// aria-label, associated labels, alt text, input button values, content for
// name-from-content roles, then title and placeholder.
func AccessibleName(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	if name := accessibleNameExplicit(n); name != "" {
		return name
	}

	tag := strings.ToLower(n.Data)
	if isLabelable(n) {
		if labels := LabelTexts(n); len(labels) > 0 {
			return pattern.Normalize(strings.Join(labels, " "))
		}
	}
	switch tag {
	case "img", "area":
		if alt := pattern.Normalize(attrValue(n, "alt")); alt != "" {
			return alt
		}
	case "input":
		switch strings.ToLower(attrValue(n, "type")) {
		case "button", "submit", "reset":
			if v := pattern.Normalize(attrValue(n, "value")); v != "" {
				return v
			}
			switch strings.ToLower(attrValue(n, "type")) {
			case "submit":
				return "Submit"
			case "reset":
				return "Reset"
			}
		case "image":
			if alt := pattern.Normalize(attrValue(n, "alt")); alt != "" {
				return alt
			}
		}
	case "fieldset":
		if legend := firstChildElement(n, "legend"); legend != nil {
			return VisibleText(legend)
		}
	case "table":
		if caption := firstChildElement(n, "caption"); caption != nil {
			return VisibleText(caption)
		}
	}

	if nameFromContent[RoleOf(n)] {
		if text := nameText(n); text != "" {
			return text
		}
	}
	if title := pattern.Normalize(attrValue(n, "title")); title != "" {
		return title
	}
	return pattern.Normalize(attrValue(n, "placeholder"))
}

// accessibleNameExplicit covers aria-labelledby and aria-label.
func accessibleNameExplicit(n *html.Node) string {
	if ids := strings.Fields(attrValue(n, "aria-labelledby")); len(ids) > 0 {
		root := documentOf(n)
		var parts []string
		for _, id := range ids {
			if ref := elementByID(root, id); ref != nil {
				if t := VisibleText(ref); t != "" {
					parts = append(parts, t)
				}
			}
		}
		if len(parts) > 0 {
			return pattern.Normalize(strings.Join(parts, " "))
		}
	}
	return pattern.Normalize(attrValue(n, "aria-label"))
}

// nameText is the content-derived name: visible text, with embedded images
// and aria-labelled children contributing their alt text or label.
func nameText(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(cur *html.Node) {
		switch cur.Type {
		case html.TextNode:
			b.WriteString(cur.Data)
			return
		case html.ElementNode:
			if cur != n && !IsVisible(cur) {
				return
			}
			if cur != n && strings.EqualFold(cur.Data, "img") {
				b.WriteString(" " + attrValue(cur, "alt") + " ")
				return
			}
			if cur != n {
				if label := pattern.Normalize(attrValue(cur, "aria-label")); label != "" {
					b.WriteString(" " + label + " ")
					return
				}
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

// labelableTags are the elements that <label> can be associated with.
var labelableTags = map[string]bool{
	"button": true, "input": true, "meter": true, "output": true,
	"progress": true, "select": true, "textarea": true,
}

func isLabelable(n *html.Node) bool {
	tag := strings.ToLower(n.Data)
	if !labelableTags[tag] {
		return false
	}
	return !(tag == "input" && strings.EqualFold(attrValue(n, "type"), "hidden"))
}

// LabelTexts returns the texts of the <label> elements associated with n via
// a for attribute or by nesting, in document order. The labelled control's own
// content is excluded from a wrapping label's text.
func LabelTexts(n *html.Node) []string {
	if n == nil || n.Type != html.ElementNode || !isLabelable(n) {
		return nil
	}
	var out []string
	seen := make(map[*html.Node]bool)
	if id := attrValue(n, "id"); id != "" {
		walk(documentOf(n), func(cur *html.Node) bool {
			if cur.Type == html.ElementNode && strings.EqualFold(cur.Data, "label") && attrValue(cur, "for") == id {
				if t := textExcluding(cur, n); t != "" {
					out = append(out, t)
				}
				seen[cur] = true
			}
			return true
		})
	}
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		if cur.Type == html.ElementNode && strings.EqualFold(cur.Data, "label") && !seen[cur] {
			if _, hasFor := Attr(cur, "for"); hasFor && attrValue(cur, "for") != attrValue(n, "id") {
				break
			}
			if first := firstLabelable(cur); first == n {
				if t := textExcluding(cur, n); t != "" {
					out = append(out, t)
				}
			}
			break
		}
	}
	return out
}

// firstLabelable returns the first labelable descendant of a wrapping label,
// the only control it labels.
func firstLabelable(label *html.Node) *html.Node {
	var found *html.Node
	walk(label, func(cur *html.Node) bool {
		if cur != label && cur.Type == html.ElementNode && isLabelable(cur) {
			found = cur
			return false
		}
		return true
	})
	return found
}

// MatchesLabel reports whether any label of n, or its aria-label or
// aria-labelledby text, satisfies p.
func MatchesLabel(n *html.Node, p pattern.Pattern) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if explicit := accessibleNameExplicit(n); explicit != "" && p.Match(explicit) {
		return true
	}
	for _, t := range LabelTexts(n) {
		if p.Match(t) {
			return true
		}
	}
	return false
}

func firstChildElement(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && strings.EqualFold(c.Data, tag) {
			return c
		}
	}
	return nil
}

func elementByID(root *html.Node, id string) *html.Node {
	var found *html.Node
	walk(root, func(cur *html.Node) bool {
		if cur.Type == html.ElementNode && attrValue(cur, "id") == id {
			found = cur
			return false
		}
		return true
	})
	return found
}
