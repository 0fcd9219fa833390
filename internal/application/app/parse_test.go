package app

import (
	"testing"

	"github.com/penwyp/go-fullsnack/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePatch(t *testing.T) {
	patch, err := ParsePatch([]string{"name=Greek Yogurt", "cal=150", "protein=15g"})
	require.NoError(t, err)
	require.NotNil(t, patch.FoodName)
	assert.Equal(t, "Greek Yogurt", *patch.FoodName)
	assert.Equal(t, 150, *patch.Calories)
	assert.Equal(t, 15, *patch.Protein)
	assert.Nil(t, patch.Carbs)
	assert.Nil(t, patch.ImageURL)
}

func TestParsePatchErrors(t *testing.T) {
	tests := []struct {
		name  string
		pairs []string
	}{
		{"empty", nil},
		{"missing equals", []string{"calories"}},
		{"unknown field", []string{"sugar=3"}},
		{"not a number", []string{"fat=lots"}},
		{"negative", []string{"carbs=-1"}},
		{"blank name", []string{"name= "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePatch(tt.pairs)
			assert.ErrorIs(t, err, model.ErrInvalidEntry)
		})
	}
}

func TestParseEntry(t *testing.T) {
	entry, err := ParseEntry(" Toast ", []string{"120", "4", "20"})
	require.NoError(t, err)
	assert.Equal(t, model.LogEntry{FoodName: "Toast", Calories: 120, Protein: 4, Carbs: 20}, entry)

	_, err = ParseEntry("Toast", nil)
	assert.ErrorIs(t, err, model.ErrInvalidEntry)
	_, err = ParseEntry("", []string{"10"})
	assert.ErrorIs(t, err, model.ErrInvalidEntry)
	_, err = ParseEntry("Toast", []string{"1", "2", "3", "4", "5"})
	assert.ErrorIs(t, err, model.ErrInvalidEntry)
}

func TestParseID(t *testing.T) {
	id, err := ParseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, raw := range []string{"", "0", "-3", "abc"} {
		_, err := ParseID(raw)
		assert.ErrorIs(t, err, model.ErrInvalidEntry, raw)
	}
}
