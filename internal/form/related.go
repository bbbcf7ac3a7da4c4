package form

import "context"

// Column is one column of a related-data table.
type Column struct {
	Key    string
	Title  string
	Render func(Record) string
}

func (c Column) cell(r Record) string {
	if c.Render != nil {
		return c.Render(r)
	}
	return r.String(c.Key)
}

// RelatedConfig declares a read-only table of records linked to the edited
// entity. MaxRows 0 shows every row.
type RelatedConfig struct {
	Key          string
	Title        string
	Load         func(ctx context.Context, id int64) ([]Record, error)
	Columns      []Column
	KeyField     string
	MaxRows      int
	EmptyMessage string
}

// Panel is a loaded related table ready for rendering.
type Panel struct {
	Key     string
	Title   string
	Headers []string
	Rows    []PanelRow
	// Hidden counts the rows cut off by MaxRows.
	Hidden int
	Empty  string
	Err    error
}

type PanelRow struct {
	Key   string
	Cells []string
}

func buildPanel(cfg RelatedConfig, records []Record, err error) Panel {
	p := Panel{Key: cfg.Key, Title: cfg.Title, Err: err}
	for _, c := range cfg.Columns {
		p.Headers = append(p.Headers, c.Title)
	}
	if err != nil {
		return p
	}
	if len(records) == 0 {
		p.Empty = cfg.EmptyMessage
		return p
	}
	shown := records
	if cfg.MaxRows > 0 && len(records) > cfg.MaxRows {
		shown = records[:cfg.MaxRows]
		p.Hidden = len(records) - cfg.MaxRows
	}
	for _, r := range shown {
		row := PanelRow{Key: r.String(cfg.KeyField)}
		for _, c := range cfg.Columns {
			row.Cells = append(row.Cells, c.cell(r))
		}
		p.Rows = append(p.Rows, row)
	}
	return p
}
