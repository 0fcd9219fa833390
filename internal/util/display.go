package util

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Terminal control sequences
const (
	ColorReset  = "\033[0m"
	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorRed    = "\033[31m"
	ColorBold   = "\033[1m"
	ColorDim    = "\033[2m"

	ClearScreen    = "\033[2J"
	ClearLine      = "\033[2K"
	MoveCursorHome = "\033[H"
)

// GetDisplayWidth calculates the display width of a string, accounting for wide runes
func GetDisplayWidth(text string) int {
	return runewidth.StringWidth(text)
}

// FormatHeaderTitle formats view titles (Cyan + Bold)
func FormatHeaderTitle(title string) string {
	return fmt.Sprintf("%s%s%s%s", ColorBold, ColorCyan, title, ColorReset)
}

// FormatStale marks a value that may not reflect the store yet
func FormatStale(text string) string {
	return fmt.Sprintf("%s%s%s", ColorDim, text, ColorReset)
}

// FormatErrorText formats a user-facing error message
func FormatErrorText(text string) string {
	return fmt.Sprintf("%s%s%s", ColorRed, text, ColorReset)
}

// FormatSectionSeparator creates a separator line of the given display width
func FormatSectionSeparator(width int) string {
	return strings.Repeat("─", max(width, 0))
}

// CenterText centers text within the given display width
func CenterText(text string, width int) string {
	textWidth := runewidth.StringWidth(text)
	if textWidth >= width {
		return runewidth.Truncate(text, width, "")
	}
	padding := (width - textWidth) / 2
	return strings.Repeat(" ", padding) + text + strings.Repeat(" ", width-padding-textWidth)
}
