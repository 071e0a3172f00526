// internal/element/descriptor.go
// Package element defines the declarative description of one logical UI
// element: what it is for, what kind of element it is, and ranked lists of the
// text and attribute patterns a resolver can use to find it when the primary
// locator stops matching.
package element

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/xkilldash9x/scalpel-heal/internal/pattern"
)

// ErrMissingPurpose is returned when a descriptor has no purpose.
var ErrMissingPurpose = errors.New("element: purpose is required")

// Spec is the raw, serializable form of a descriptor. Pattern strings use the
// syntax of pattern.Parse.
type Spec struct {
	Purpose     string            `yaml:"purpose" json:"purpose"`
	Kind        string            `yaml:"kind,omitempty" json:"kind,omitempty"`
	Role        string            `yaml:"role,omitempty" json:"role,omitempty"`
	Text        []string          `yaml:"text,omitempty" json:"text,omitempty"`
	Label       []string          `yaml:"label,omitempty" json:"label,omitempty"`
	Placeholder []string          `yaml:"placeholder,omitempty" json:"placeholder,omitempty"`
	TestID      []string          `yaml:"test_id,omitempty" json:"test_id,omitempty"`
	Class       []string          `yaml:"class,omitempty" json:"class,omitempty"`
	Title       []string          `yaml:"title,omitempty" json:"title,omitempty"`
	Alt         []string          `yaml:"alt,omitempty" json:"alt,omitempty"`
	Attributes  map[string]string `yaml:"attributes,omitempty" json:"attributes,omitempty"`
	Context     string            `yaml:"context,omitempty" json:"context,omitempty"`
}

// Attribute is one attribute-name / expected-value-fragment pair.
type Attribute struct {
	Name  string
	Value string
}

// Descriptor is the compiled, immutable form of a Spec. Accessors return
// copies so callers cannot mutate a shared descriptor.
type Descriptor struct {
	purpose     string
	kind        Kind
	role        Role
	text        []pattern.Pattern
	label       []pattern.Pattern
	placeholder []pattern.Pattern
	testID      []pattern.Pattern
	class       []string
	title       []pattern.Pattern
	alt         []pattern.Pattern
	attributes  []Attribute
	context     string
}

// New validates and compiles a Spec. It rejects a missing purpose, unknown
// kinds, unsupported roles, and malformed patterns. A descriptor with no usable
// pattern category is accepted; see Resolvable.
func New(spec Spec) (*Descriptor, error) {
	purpose := strings.TrimSpace(spec.Purpose)
	if purpose == "" {
		return nil, ErrMissingPurpose
	}
	kind, err := ParseKind(spec.Kind)
	if err != nil {
		return nil, fmt.Errorf("element %q: %w", purpose, err)
	}
	role, err := ParseRole(spec.Role)
	if err != nil {
		return nil, fmt.Errorf("element %q: %w", purpose, err)
	}

	d := &Descriptor{
		purpose: purpose,
		kind:    kind,
		role:    role,
		context: spec.Context,
	}

	lists := []struct {
		name string
		raw  []string
		dst  *[]pattern.Pattern
	}{
		{"text", spec.Text, &d.text},
		{"label", spec.Label, &d.label},
		{"placeholder", spec.Placeholder, &d.placeholder},
		{"test_id", spec.TestID, &d.testID},
		{"title", spec.Title, &d.title},
		{"alt", spec.Alt, &d.alt},
	}
	for _, l := range lists {
		compiled, err := pattern.ParseAll(l.raw)
		if err != nil {
			return nil, fmt.Errorf("element %q: %s patterns: %w", purpose, l.name, err)
		}
		*l.dst = compiled
	}

	for _, c := range spec.Class {
		c = strings.TrimSpace(c)
		if c == "" {
			return nil, fmt.Errorf("element %q: class patterns: empty fragment", purpose)
		}
		d.class = append(d.class, c)
	}

	if len(spec.Attributes) > 0 {
		names := make([]string, 0, len(spec.Attributes))
		for name := range spec.Attributes {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if strings.TrimSpace(name) == "" {
				return nil, fmt.Errorf("element %q: attribute patterns: empty attribute name", purpose)
			}
			d.attributes = append(d.attributes, Attribute{Name: name, Value: spec.Attributes[name]})
		}
	}

	return d, nil
}

// MustNew is like New but panics on error. Page objects declaring static
// descriptors use it.
func MustNew(spec Spec) *Descriptor {
	d, err := New(spec)
	if err != nil {
		panic(err)
	}
	return d
}

// Once returns a lazily-evaluated accessor that compiles spec on first call
// and returns the same descriptor (or error) afterwards.
func Once(spec Spec) func() (*Descriptor, error) {
	return sync.OnceValues(func() (*Descriptor, error) { return New(spec) })
}

func (d *Descriptor) Purpose() string { return d.purpose }
func (d *Descriptor) Kind() Kind      { return d.kind }
func (d *Descriptor) Role() Role      { return d.role }
func (d *Descriptor) HasRole() bool   { return d.role != "" }
func (d *Descriptor) Context() string { return d.context }

func (d *Descriptor) TextPatterns() []pattern.Pattern        { return clonePatterns(d.text) }
func (d *Descriptor) LabelPatterns() []pattern.Pattern       { return clonePatterns(d.label) }
func (d *Descriptor) PlaceholderPatterns() []pattern.Pattern { return clonePatterns(d.placeholder) }
func (d *Descriptor) TestIDPatterns() []pattern.Pattern      { return clonePatterns(d.testID) }
func (d *Descriptor) TitlePatterns() []pattern.Pattern       { return clonePatterns(d.title) }
func (d *Descriptor) AltPatterns() []pattern.Pattern         { return clonePatterns(d.alt) }

// ClassPatterns returns the CSS class fragments in priority order.
func (d *Descriptor) ClassPatterns() []string {
	if len(d.class) == 0 {
		return nil
	}
	out := make([]string, len(d.class))
	copy(out, d.class)
	return out
}

// AttributePatterns returns the attribute patterns sorted by attribute name.
func (d *Descriptor) AttributePatterns() []Attribute {
	if len(d.attributes) == 0 {
		return nil
	}
	out := make([]Attribute, len(d.attributes))
	copy(out, d.attributes)
	return out
}

// Resolvable reports whether at least one category a strategy can use is
// present. Descriptors that are not resolvable always exhaust the chain.
func (d *Descriptor) Resolvable() bool {
	return d.role != "" || len(d.text) > 0 || len(d.label) > 0 ||
		len(d.placeholder) > 0 || len(d.testID) > 0 || len(d.class) > 0 ||
		len(d.attributes) > 0 || len(d.title) > 0 || len(d.alt) > 0
}

// Spec reconstructs the serializable form of the descriptor.
func (d *Descriptor) Spec() Spec {
	s := Spec{
		Purpose:     d.purpose,
		Kind:        string(d.kind),
		Role:        string(d.role),
		Text:        patternStrings(d.text),
		Label:       patternStrings(d.label),
		Placeholder: patternStrings(d.placeholder),
		TestID:      patternStrings(d.testID),
		Class:       d.ClassPatterns(),
		Title:       patternStrings(d.title),
		Alt:         patternStrings(d.alt),
		Context:     d.context,
	}
	if len(d.attributes) > 0 {
		s.Attributes = make(map[string]string, len(d.attributes))
		for _, a := range d.attributes {
			s.Attributes[a.Name] = a.Value
		}
	}
	return s
}

// String is the purpose, which is also the grouping key for healing events.
func (d *Descriptor) String() string { return d.purpose }

func clonePatterns(in []pattern.Pattern) []pattern.Pattern {
	if len(in) == 0 {
		return nil
	}
	out := make([]pattern.Pattern, len(in))
	copy(out, in)
	return out
}

func patternStrings(in []pattern.Pattern) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, p := range in {
		out[i] = p.String()
	}
	return out
}
