// Package reference loads the static catalogs the console offers as choices:
// hospital departments and the therapy categories used to classify
// treatments.
package reference

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type Catalog struct {
	Departments       []string          `yaml:"departments"`
	TherapyCategories TherapyCategories `yaml:"therapy_categories"`
}

type TherapyCategories struct {
	Default string            `yaml:"default"`
	Items   []TherapyCategory `yaml:"items"`
}

// TherapyCategory matches a therapy text when it contains any keyword,
// compared case-insensitively.
type TherapyCategory struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("reference: embedded catalog: %v", err))
	}
	return c
}

// Load reads a catalog file. An empty path yields the embedded catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(c.Departments) == 0 {
		return nil, fmt.Errorf("parse catalog: no departments")
	}
	seen := map[string]struct{}{}
	for _, d := range c.Departments {
		if _, dup := seen[d]; dup {
			return nil, fmt.Errorf("parse catalog: duplicate department %q", d)
		}
		seen[d] = struct{}{}
	}
	if c.TherapyCategories.Default == "" {
		c.TherapyCategories.Default = "General"
	}
	return &c, nil
}

// Classify returns the first category whose keyword occurs in therapy.
func (t TherapyCategories) Classify(therapy string) string {
	text := strings.ToLower(therapy)
	for _, cat := range t.Items {
		for _, kw := range cat.Keywords {
			if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
				return cat.Name
			}
		}
	}
	return t.Default
}

// Names lists every category, the default last.
func (t TherapyCategories) Names() []string {
	out := make([]string, 0, len(t.Items)+1)
	for _, cat := range t.Items {
		out = append(out, cat.Name)
	}
	return append(out, t.Default)
}
