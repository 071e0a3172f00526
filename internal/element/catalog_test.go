// internal/element/catalog_test.go
package element

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogYAML = `
elements:
  - purpose: Continue Button
    kind: button
    role: button
    text: ["Continue", "=Next"]
    primary: "#continue-btn"
    fallbacks: ["button.next"]
  - purpose: Email Field
    kind: input
    label: ["Email"]
    placeholder: ["you@example.com"]
    attributes:
      name: email
    primary: "//input[@id='email']"
`

func TestLoadCatalog(t *testing.T) {
	cat, err := LoadCatalog(strings.NewReader(catalogYAML))
	require.NoError(t, err)
	require.Equal(t, 2, cat.Len())

	assert.Equal(t, "Continue Button", cat.Entries[0].Descriptor.Purpose())
	assert.Equal(t, "Email Field", cat.Entries[1].Descriptor.Purpose())

	e, ok := cat.Lookup("Continue Button")
	require.True(t, ok)
	assert.Equal(t, "#continue-btn", e.Primary)
	assert.Equal(t, []string{"button.next"}, e.Fallbacks)
	assert.Len(t, e.Descriptor.TextPatterns(), 2)

	e, ok = cat.Lookup("Email Field")
	require.True(t, ok)
	assert.Equal(t, []Attribute{{Name: "name", Value: "email"}}, e.Descriptor.AttributePatterns())
	assert.Empty(t, e.Fallbacks)

	_, ok = cat.Lookup("Nope")
	assert.False(t, ok)
}

func TestLoadCatalog_Empty(t *testing.T) {
	cat, err := LoadCatalog(strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, cat.Len())
}

func TestLoadCatalog_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "elements:\n  - purpose: X\n    primary: '#x'\n    colour: red\n", "failed to parse catalog"},
		{"invalid descriptor", "elements:\n  - purpose: X\n    kind: gizmo\n    primary: '#x'\n", "catalog entry 0"},
		{"missing primary", "elements:\n  - purpose: X\n", "primary locator is required"},
		{"duplicate purpose", "elements:\n  - purpose: X\n    primary: '#a'\n  - purpose: X\n    primary: '#b'\n", `duplicate purpose "X"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCatalog(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "elements.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o600))

	cat, err := LoadCatalogFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cat.Len())

	_, err = LoadCatalogFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to open catalog")
}
