package formatter

import (
	"encoding/csv"
	"io"
)

type CSVFormatter struct{}

func NewCSVFormatter() *CSVFormatter {
	return &CSVFormatter{}
}

// Format writes the headers, rows and footer of t as CSV
func (f *CSVFormatter) Format(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(t.Headers()); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	if t.Footer != nil {
		if err := cw.Write(t.Footer); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
