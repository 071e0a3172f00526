// internal/driver/domquery/state.go
package domquery

import (
	"strings"

	"golang.org/x/net/html"
)

// nonRendered lists elements that never produce a box.
var nonRendered = map[string]bool{
	"head": true, "script": true, "style": true, "template": true,
	"noscript": true, "title": true, "meta": true, "link": true, "base": true,
}

// formControls can carry the disabled attribute.
var formControls = map[string]bool{
	"button": true, "input": true, "select": true, "textarea": true,
	"option": true, "optgroup": true, "fieldset": true,
}

// IsVisible applies the static rendering rules to n and its ancestors: the
// hidden attribute, inline display:none or visibility:hidden, hidden inputs,
// and non-rendered elements. Layout-dependent checks such as zero-size boxes
// are left to live drivers.
func IsVisible(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		tag := strings.ToLower(cur.Data)
		if nonRendered[tag] {
			return false
		}
		if _, ok := Attr(cur, "hidden"); ok {
			return false
		}
		if tag == "input" && strings.EqualFold(attrValue(cur, "type"), "hidden") {
			return false
		}
		style := parseStyle(attrValue(cur, "style"))
		if style["display"] == "none" {
			return false
		}
		if cur == n && (style["visibility"] == "hidden" || style["visibility"] == "collapse") {
			return false
		}
		// visibility is inherited but can be overridden by a descendant.
		if cur != n && style["visibility"] == "hidden" && !overridesVisibility(n, cur) {
			return false
		}
	}
	return true
}

// overridesVisibility reports whether an element between n (inclusive) and
// ancestor (exclusive) sets visibility:visible.
func overridesVisibility(n, ancestor *html.Node) bool {
	for cur := n; cur != nil && cur != ancestor; cur = cur.Parent {
		if cur.Type == html.ElementNode && parseStyle(attrValue(cur, "style"))["visibility"] == "visible" {
			return true
		}
	}
	return false
}

// IsHiddenFromAccessibility reports whether n is excluded from the
// accessibility tree: not visible, or inside an aria-hidden="true" subtree.
func IsHiddenFromAccessibility(n *html.Node) bool {
	if !IsVisible(n) {
		return true
	}
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type == html.ElementNode && strings.EqualFold(attrValue(cur, "aria-hidden"), "true") {
			return true
		}
	}
	return false
}

// IsEnabled reports whether n is enabled: no disabled attribute on a form
// control, no disabled ancestor fieldset or select, and no aria-disabled.
func IsEnabled(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	tag := strings.ToLower(n.Data)
	if formControls[tag] {
		if _, disabled := Attr(n, "disabled"); disabled {
			return false
		}
	}
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		if strings.EqualFold(attrValue(cur, "aria-disabled"), "true") {
			return false
		}
		if cur == n {
			continue
		}
		parentTag := strings.ToLower(cur.Data)
		if (parentTag == "fieldset" || parentTag == "optgroup" || parentTag == "select") && formControls[tag] {
			if _, disabled := Attr(cur, "disabled"); disabled {
				if parentTag == "fieldset" && inFirstLegend(n, cur) {
					continue
				}
				return false
			}
		}
	}
	return true
}

// inFirstLegend reports whether n sits inside the first legend child of
// fieldset, which the fieldset's disabled state does not reach.
func inFirstLegend(n, fieldset *html.Node) bool {
	var legend *html.Node
	for c := fieldset.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && strings.EqualFold(c.Data, "legend") {
			legend = c
			break
		}
	}
	if legend == nil {
		return false
	}
	for cur := n; cur != nil && cur != fieldset; cur = cur.Parent {
		if cur == legend {
			return true
		}
	}
	return false
}

// IsEditable reports whether n accepts typed text.
func IsEditable(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	switch strings.ToLower(n.Data) {
	case "textarea":
		return true
	case "input":
		switch strings.ToLower(attrValue(n, "type")) {
		case "button", "submit", "reset", "image", "checkbox", "radio", "file", "hidden", "range", "color":
			return false
		}
		return true
	}
	ce := strings.ToLower(attrValue(n, "contenteditable"))
	if _, ok := Attr(n, "contenteditable"); ok && ce != "false" {
		return true
	}
	return false
}

// IsReadOnly reports the readonly attribute on text controls.
func IsReadOnly(n *html.Node) bool {
	_, ok := Attr(n, "readonly")
	return ok || strings.EqualFold(attrValue(n, "aria-readonly"), "true")
}

// parseStyle reads an inline style attribute into lowercase property/value
// pairs. !important markers are dropped.
func parseStyle(style string) map[string]string {
	if style == "" {
		return nil
	}
	out := make(map[string]string)
	for _, decl := range strings.Split(style, ";") {
		prop, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "!important"))
		out[strings.ToLower(strings.TrimSpace(prop))] = strings.ToLower(value)
	}
	return out
}
