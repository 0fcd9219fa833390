package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCenterText(t *testing.T) {
	assert.Equal(t, "  ab  ", CenterText("ab", 6))
	assert.Equal(t, " ab  ", CenterText("ab", 5))
	assert.Equal(t, "abc", CenterText("abcdef", 3))
	// Wide runes occupy two cells
	assert.Equal(t, " 寿司 ", CenterText("寿司", 6))
}

func TestGetDisplayWidth(t *testing.T) {
	assert.Equal(t, 7, GetDisplayWidth("Oatmeal"))
	assert.Equal(t, 4, GetDisplayWidth("寿司"))
}

func TestFormatSectionSeparator(t *testing.T) {
	assert.Equal(t, "───", FormatSectionSeparator(3))
	assert.Equal(t, "", FormatSectionSeparator(-1))
}
