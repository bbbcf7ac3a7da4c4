package form

import (
	"context"
	"errors"
	"fmt"
)

// Configuration declares one entity form: its ordered fields, the texts
// shown around it, and the hooks applied on save. A Configuration is not
// modified after Check succeeds.
type Configuration struct {
	Entity               string
	Title                string
	EditTitle            string
	ListTitle            string
	SaveButtonText       string
	SuccessMessage       string
	UpdateSuccessMessage string
	RelatedDataTitle     string
	Fields               []FieldSpec
	// Transform converts form values into the wire record. It must be
	// idempotent.
	Transform func(Record) Record
	// Validate returns a message when the record must not be saved.
	Validate func(Record) string
}

var errInvalidConfiguration = errors.New("invalid form configuration")

// Check verifies that field names are unique, every field has a kind and
// every select has either static options or a data source.
func (c *Configuration) Check() error {
	if c.Entity == "" {
		return fmt.Errorf("%w: entity name is empty", errInvalidConfiguration)
	}
	seen := make(map[string]struct{}, len(c.Fields))
	for _, f := range c.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: %s: field without name", errInvalidConfiguration, c.Entity)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%w: %s: duplicate field %q", errInvalidConfiguration, c.Entity, f.Name)
		}
		seen[f.Name] = struct{}{}
		switch k := f.Kind.(type) {
		case nil:
			return fmt.Errorf("%w: %s: field %q has no kind", errInvalidConfiguration, c.Entity, f.Name)
		case Select:
			if (k.Source == nil) == (len(k.Options) == 0) {
				return fmt.Errorf("%w: %s: select %q needs either options or a data source", errInvalidConfiguration, c.Entity, f.Name)
			}
			if k.Source != nil && (k.Source.Name == "" || k.Source.ValueField == "") {
				return fmt.Errorf("%w: %s: select %q has an incomplete data source", errInvalidConfiguration, c.Entity, f.Name)
			}
		}
	}
	return nil
}

// MustCheck panics when Check fails. It is meant for package-level
// configurations.
func (c *Configuration) MustCheck() *Configuration {
	if err := c.Check(); err != nil {
		panic(err)
	}
	return c
}

// Field looks up a field by name.
func (c *Configuration) Field(name string) (FieldSpec, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Sources returns the distinct dependent data sources in field order.
func (c *Configuration) Sources() []string {
	var names []string
	seen := map[string]struct{}{}
	for _, f := range c.Fields {
		sel, ok := f.Kind.(Select)
		if !ok || sel.Source == nil {
			continue
		}
		if _, dup := seen[sel.Source.Name]; dup {
			continue
		}
		seen[sel.Source.Name] = struct{}{}
		names = append(names, sel.Source.Name)
	}
	return names
}

// Loader fetches the records of one dependent data source.
type Loader func(ctx context.Context) ([]Record, error)

// DependentData holds the loaded records per source name.
type DependentData map[string][]Record

// Store is the persistence surface a form session saves through.
type Store interface {
	Get(ctx context.Context, id int64) (Record, error)
	Create(ctx context.Context, rec Record) (Record, error)
	Update(ctx context.Context, id int64, rec Record) (Record, error)
}
