package form

// Kind is the closed set of field kinds. The unexported method keeps the
// set sealed to this package; dispatch is a type switch over the variants.
type Kind interface {
	kind() string
}

type (
	Text     struct{}
	Email    struct{}
	Tel      struct{}
	Number   struct{}
	Date     struct{}
	TextArea struct{ Rows int }
)

// Select renders a choice list from static Options or from the records of
// a dependent data Source. Exactly one of them is set.
type Select struct {
	Options []Option
	Source  *DataSource
}

func (Text) kind() string     { return "text" }
func (Email) kind() string    { return "email" }
func (Tel) kind() string      { return "tel" }
func (Number) kind() string   { return "number" }
func (Date) kind() string     { return "date" }
func (TextArea) kind() string { return "textarea" }
func (Select) kind() string   { return "select" }

// KindName returns the HTML-facing name of k.
func KindName(k Kind) string {
	if k == nil {
		return ""
	}
	return k.kind()
}

type Option struct {
	Value string
	Label string
}

// StaticOptions builds static options whose value and label are the same.
func StaticOptions(values ...string) []Option {
	out := make([]Option, len(values))
	for i, v := range values {
		out[i] = Option{Value: v, Label: v}
	}
	return out
}

// DataSource names a dependent collection and how its records become
// options. Format, when set, takes precedence over DisplayField.
type DataSource struct {
	Name         string
	ValueField   string
	DisplayField string
	Format       func(Record) string
}

func (s *DataSource) label(r Record) string {
	if s.Format != nil {
		return s.Format(r)
	}
	return r.String(s.DisplayField)
}

// FieldSpec declares one form field.
type FieldSpec struct {
	Name        string
	Label       string
	Kind        Kind
	Required    bool
	Placeholder string
	// Default seeds the field in add mode.
	Default func() string
	// FullWidth spans the field across the form grid.
	FullWidth bool
	// Disabled fields are read-only once the record exists (edit mode).
	Disabled bool
	// Attrs are passed through to the input element (min, step, ...).
	Attrs map[string]string
}

// Value returns a Default func yielding s.
func Value(s string) func() string {
	return func() string { return s }
}
