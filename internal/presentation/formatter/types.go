package formatter

// Align is a column alignment
type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

// Column describes one table column
type Column struct {
	Header   string
	Align    Align
	MinWidth int
	// Shrink marks the column that gives up width when the table is too wide
	Shrink bool
}

// Table is a grid of already-formatted cells
type Table struct {
	Columns []Column
	Rows    [][]string
	// Footer is printed below a separator when non-nil
	Footer []string
}

// Headers returns the column headers
func (t Table) Headers() []string {
	headers := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		headers[i] = c.Header
	}
	return headers
}
