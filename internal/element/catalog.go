// internal/element/catalog.go
package element

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CatalogEntry is one element of a catalog file: the descriptor fields plus
// the caller's primary locator and explicit fallbacks.
type CatalogEntry struct {
	Spec      `yaml:",inline"`
	Primary   string   `yaml:"primary"`
	Fallbacks []string `yaml:"fallbacks,omitempty"`
}

// Entry is a compiled catalog element.
type Entry struct {
	Descriptor *Descriptor
	Primary    string
	Fallbacks  []string
}

// Catalog is an ordered set of compiled entries keyed by purpose.
type Catalog struct {
	Entries []Entry
	index   map[string]int
}

type catalogFile struct {
	Elements []CatalogEntry `yaml:"elements"`
}

// LoadCatalog parses a YAML catalog. Every entry must compile and purposes must
// be unique, since the purpose is the healing-event grouping key.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	var file catalogFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	cat := &Catalog{index: make(map[string]int, len(file.Elements))}
	for i, raw := range file.Elements {
		d, err := New(raw.Spec)
		if err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
		if strings.TrimSpace(raw.Primary) == "" {
			return nil, fmt.Errorf("catalog entry %d (%s): primary locator is required", i, d.Purpose())
		}
		if _, dup := cat.index[d.Purpose()]; dup {
			return nil, fmt.Errorf("catalog entry %d: duplicate purpose %q", i, d.Purpose())
		}
		cat.index[d.Purpose()] = len(cat.Entries)
		cat.Entries = append(cat.Entries, Entry{
			Descriptor: d,
			Primary:    raw.Primary,
			Fallbacks:  append([]string(nil), raw.Fallbacks...),
		})
	}
	return cat, nil
}

// LoadCatalogFile opens and parses a catalog from disk.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog %s: %w", path, err)
	}
	defer f.Close()
	return LoadCatalog(f)
}

// Lookup returns the entry for a purpose.
func (c *Catalog) Lookup(purpose string) (Entry, bool) {
	i, ok := c.index[purpose]
	if !ok {
		return Entry{}, false
	}
	return c.Entries[i], true
}

// Len returns the number of entries.
func (c *Catalog) Len() int { return len(c.Entries) }
