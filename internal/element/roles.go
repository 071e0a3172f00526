// internal/element/roles.go
package element

import (
	"fmt"
	"sort"
	"strings"
)

// Role is an ARIA role from the supported set. The zero value means "no role".
type Role string

// supportedRoles is the closed set of roles a descriptor may name. These are
// the roles the drivers know how to compute, explicitly or implicitly.
var supportedRoles = map[Role]bool{
	"alert": true, "article": true, "banner": true, "button": true,
	"cell": true, "checkbox": true, "columnheader": true, "combobox": true,
	"dialog": true, "form": true, "grid": true, "gridcell": true,
	"heading": true, "img": true, "link": true, "list": true,
	"listbox": true, "listitem": true, "main": true, "menu": true,
	"menubar": true, "menuitem": true, "menuitemcheckbox": true,
	"menuitemradio": true, "navigation": true, "option": true,
	"progressbar": true, "radio": true, "radiogroup": true, "region": true,
	"row": true, "rowheader": true, "search": true, "searchbox": true,
	"slider": true, "spinbutton": true, "status": true, "switch": true,
	"tab": true, "table": true, "tablist": true, "tabpanel": true,
	"textbox": true, "toolbar": true, "tooltip": true, "tree": true,
	"treeitem": true,
}

// ParseRole validates a role name against the supported set.
// The empty string is valid and yields the zero Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if r == "" {
		return "", nil
	}
	if !supportedRoles[r] {
		return "", fmt.Errorf("unsupported accessibility role %q", s)
	}
	return r, nil
}

// SupportedRoles lists the accepted roles in sorted order.
func SupportedRoles() []Role {
	out := make([]Role, 0, len(supportedRoles))
	for r := range supportedRoles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r Role) String() string { return string(r) }
