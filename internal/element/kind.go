// internal/element/kind.go
package element

import (
	"fmt"
	"strings"
)

// Kind is the coarse element category of a descriptor. It drives the
// kind-to-tag mapping used by the structural fallback strategies.
type Kind string

const (
	KindButton   Kind = "button"
	KindInput    Kind = "input"
	KindLink     Kind = "link"
	KindHeading  Kind = "heading"
	KindText     Kind = "text"
	KindDropdown Kind = "dropdown"
	KindCheckbox Kind = "checkbox"
	KindRadio    Kind = "radio"
	KindImage    Kind = "image"
	KindCustom   Kind = "custom"
)

// kindTags maps each kind to the concrete tag selectors it stands for.
// A nil entry means "any element".
var kindTags = map[Kind][]string{
	KindButton:   {"button"},
	KindInput:    {"input"},
	KindLink:     {"a"},
	KindHeading:  {"h1", "h2", "h3", "h4", "h5", "h6"},
	KindDropdown: {"select"},
	KindCheckbox: {"input[type=checkbox]"},
	KindRadio:    {"input[type=radio]"},
	KindImage:    {"img"},
	KindText:     nil,
	KindCustom:   nil,
}

// ParseKind validates a kind name. The empty string maps to KindCustom.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k == "" {
		return KindCustom, nil
	}
	if _, ok := kindTags[k]; !ok {
		return "", fmt.Errorf("unknown element kind %q", s)
	}
	return k, nil
}

// Tags returns the CSS tag selectors for the kind, or nil for wildcard kinds.
func (k Kind) Tags() []string {
	tags := kindTags[k]
	if tags == nil {
		return nil
	}
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}

// IsWildcard reports whether the kind maps to any element.
func (k Kind) IsWildcard() bool {
	return kindTags[k] == nil
}

// TagSelector renders the tag list as a CSS selector group, "*" for wildcards.
func (k Kind) TagSelector() string {
	tags := kindTags[k]
	if tags == nil {
		return "*"
	}
	return strings.Join(tags, ", ")
}

func (k Kind) String() string { return string(k) }
