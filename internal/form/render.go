package form

// Widget is the element a field renders as.
type Widget string

const (
	WidgetInput    Widget = "input"
	WidgetSelect   Widget = "select"
	WidgetTextArea Widget = "textarea"
)

// Control is the view model of one rendered field.
type Control struct {
	Name        string
	Label       string
	Widget      Widget
	InputType   string
	Value       string
	Placeholder string
	Required    bool
	Disabled    bool
	FullWidth   bool
	Rows        int
	Options     []Option
	Attrs       map[string]string
	// Err explains why a select has no options.
	Err string
}

// Render maps every field of cfg to a control, in declaration order. It is
// a pure function of its inputs.
func Render(cfg *Configuration, mode Mode, rec Record, deps DependentData, depErrs map[string]error) []Control {
	controls := make([]Control, 0, len(cfg.Fields))
	for _, f := range cfg.Fields {
		c := Control{
			Name:        f.Name,
			Label:       f.Label,
			Value:       rec.String(f.Name),
			Placeholder: f.Placeholder,
			Required:    f.Required,
			Disabled:    f.Disabled && mode == ModeEdit,
			FullWidth:   f.FullWidth,
			Attrs:       f.Attrs,
		}
		switch k := f.Kind.(type) {
		case TextArea:
			c.Widget = WidgetTextArea
			c.Rows = k.Rows
			if c.Rows <= 0 {
				c.Rows = 3
			}
		case Select:
			c.Widget = WidgetSelect
			c.Options = selectOptions(f, k, deps)
			if k.Source != nil {
				if err := depErrs[k.Source.Name]; err != nil {
					c.Err = err.Error()
				}
			}
		default:
			c.Widget = WidgetInput
			c.InputType = KindName(f.Kind)
		}
		controls = append(controls, c)
	}
	return controls
}

// selectOptions returns the placeholder option followed by the static or
// loaded choices.
func selectOptions(f FieldSpec, sel Select, deps DependentData) []Option {
	placeholder := f.Placeholder
	if placeholder == "" {
		placeholder = "Select " + f.Label
	}
	opts := []Option{{Value: "", Label: placeholder}}
	if sel.Source == nil {
		return append(opts, sel.Options...)
	}
	for _, r := range deps[sel.Source.Name] {
		opts = append(opts, Option{
			Value: r.String(sel.Source.ValueField),
			Label: sel.Source.label(r),
		})
	}
	return opts
}
