package formatter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

const (
	defaultTerminalWidth = 100
	minShrinkWidth       = 8
	ellipsis             = "…"
)

// TerminalWidth returns the width of stdout, or a default when it is not a terminal
func TerminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return defaultTerminalWidth
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return defaultTerminalWidth
	}
	return width
}

type TableFormatter struct {
	maxWidth int
}

// NewTableFormatter creates a table formatter; maxWidth <= 0 disables shrinking
func NewTableFormatter(maxWidth int) *TableFormatter {
	return &TableFormatter{maxWidth: maxWidth}
}

// Format writes t with box borders
func (f *TableFormatter) Format(w io.Writer, t Table) error {
	widths := f.calculateColumnWidths(t)

	var b strings.Builder
	f.writeBorder(&b, widths, "top")
	f.writeRow(&b, t.Columns, t.Headers(), widths, true)
	f.writeBorder(&b, widths, "middle")

	if len(t.Rows) == 0 {
		f.writeSpanning(&b, widths, "(none)")
	}
	for _, row := range t.Rows {
		f.writeRow(&b, t.Columns, row, widths, false)
	}

	if t.Footer != nil {
		f.writeBorder(&b, widths, "middle")
		f.writeRow(&b, t.Columns, t.Footer, widths, false)
	}
	f.writeBorder(&b, widths, "bottom")

	_, err := io.WriteString(w, b.String())
	return err
}

// calculateColumnWidths sizes each column to its widest cell, then shrinks
// the Shrink column until the table fits maxWidth
func (f *TableFormatter) calculateColumnWidths(t Table) []int {
	widths := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		widths[i] = max(runewidth.StringWidth(c.Header), c.MinWidth)
	}

	measure := func(row []string) {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if w := runewidth.StringWidth(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for _, row := range t.Rows {
		measure(row)
	}
	if t.Footer != nil {
		measure(t.Footer)
	}

	if f.maxWidth <= 0 {
		return widths
	}

	// Each column takes its width plus 3 (two padding spaces and a separator), plus the left border
	total := 1
	for _, w := range widths {
		total += w + 3
	}
	for i, c := range t.Columns {
		if !c.Shrink || total <= f.maxWidth {
			continue
		}
		excess := total - f.maxWidth
		floor := max(minShrinkWidth, runewidth.StringWidth(c.Header))
		shrunk := max(widths[i]-excess, floor)
		total -= widths[i] - shrunk
		widths[i] = shrunk
	}
	return widths
}

func (f *TableFormatter) writeBorder(b *strings.Builder, widths []int, borderType string) {
	var left, middle, right string
	switch borderType {
	case "top":
		left, middle, right = "┌", "┬", "┐"
	case "middle":
		left, middle, right = "├", "┼", "┤"
	case "bottom":
		left, middle, right = "└", "┴", "┘"
	}

	b.WriteString(left)
	for i, width := range widths {
		b.WriteString(strings.Repeat("─", width+2))
		if i < len(widths)-1 {
			b.WriteString(middle)
		}
	}
	b.WriteString(right)
	b.WriteString("\n")
}

func (f *TableFormatter) writeRow(b *strings.Builder, columns []Column, values []string, widths []int, header bool) {
	b.WriteString("│")
	for i, width := range widths {
		value := ""
		if i < len(values) {
			value = values[i]
		}
		if runewidth.StringWidth(value) > width {
			value = runewidth.Truncate(value, width, ellipsis)
		}
		if header || columns[i].Align == AlignLeft {
			value = runewidth.FillRight(value, width)
		} else {
			value = runewidth.FillLeft(value, width)
		}
		fmt.Fprintf(b, " %s │", value)
	}
	b.WriteString("\n")
}

// writeSpanning writes text across all columns
func (f *TableFormatter) writeSpanning(b *strings.Builder, widths []int, text string) {
	inner := -3
	for _, w := range widths {
		inner += w + 3
	}
	fmt.Fprintf(b, "│ %s │\n", runewidth.FillRight(text, inner))
}
