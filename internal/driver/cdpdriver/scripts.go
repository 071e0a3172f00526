// internal/driver/cdpdriver/scripts.go
package cdpdriver

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Each script body runs with `el` bound to the element the XPath selects and
// returns an object; a missing element yields {found:false}.
const (
	jsOuterHTML = `document.documentElement.outerHTML`

	jsVisible = `const s = getComputedStyle(el);
return {found: true, ok: s.visibility !== 'hidden' && s.display !== 'none' &&
  !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length)};`

	jsEnabled = `return {found: true, ok: !el.matches(':disabled') && !el.closest('[aria-disabled="true"]')};`

	jsTextContent = `return {found: true, value: el.textContent || ''};`

	jsGetAttribute = `const v = el.getAttribute(%s);
return {found: true, ok: v !== null, value: v === null ? '' : v};`

	jsInputValue = `const t = el.tagName.toLowerCase();
if (t !== 'input' && t !== 'textarea' && t !== 'select') return {found: true, ok: false};
return {found: true, ok: true, value: el.value};`

	jsChecked = `return {found: true, ok: !!el.checked};`

	jsClear = `el.focus();
if ('value' in el) { el.value = ''; } else { el.textContent = ''; }
el.dispatchEvent(new Event('input', {bubbles: true}));
el.dispatchEvent(new Event('change', {bubbles: true}));
return {found: true, ok: true};`

	jsSelectOption = `if (el.tagName.toLowerCase() !== 'select') return {found: true, ok: false, value: 'unsupported'};
const want = %s;
const opt = Array.from(el.options).find(o => o.value === want || o.label === want || o.text.trim() === want);
if (!opt) return {found: true, ok: false, value: 'missing'};
if (opt.disabled) return {found: true, ok: false, value: 'disabled'};
el.value = opt.value;
opt.selected = true;
el.dispatchEvent(new Event('input', {bubbles: true}));
el.dispatchEvent(new Event('change', {bubbles: true}));
return {found: true, ok: true, value: opt.value};`
)

// scriptResult is the common shape every element script returns.
type scriptResult struct {
	Found bool   `json:"found"`
	OK    bool   `json:"ok"`
	Value string `json:"value"`
}

// jsString renders s as a JavaScript string literal.
func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}

// elementScript wraps body in an IIFE that binds el to the node at xpath.
func elementScript(xpath, body string) string {
	return fmt.Sprintf(`(() => {
const el = document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
if (!el) return {found: false};
%s
})()`, jsString(xpath), body)
}
