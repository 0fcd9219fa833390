package commands

import (
	"fmt"
	"io"

	"github.com/penwyp/go-fullsnack/internal/presentation/formatter"
)

// writeReport prints table in the requested format; json prints raw instead
func writeReport(w io.Writer, format string, table formatter.Table, raw interface{}) error {
	switch format {
	case "", "table":
		return formatter.NewTableFormatter(formatter.TerminalWidth()).Format(w, table)
	case "json":
		return formatter.NewJSONFormatter().Format(w, raw)
	case "csv":
		return formatter.NewCSVFormatter().Format(w, table)
	default:
		return fmt.Errorf("unsupported format %q (table, json, csv)", format)
	}
}
