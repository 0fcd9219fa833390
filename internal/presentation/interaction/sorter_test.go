package interaction

import (
	"testing"
	"time"

	"github.com/penwyp/go-fullsnack/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entryIDs(entries []model.LogEntry) []int64 {
	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}

func TestEntrySorter(t *testing.T) {
	now := time.Date(2025, 8, 6, 12, 0, 0, 0, time.UTC)
	entries := []model.LogEntry{
		{ID: 1, FoodName: "oatmeal", Calories: 300, TimeLogged: now.Add(-4 * time.Hour)},
		{ID: 2, FoodName: "Banana", Calories: 105, TimeLogged: now.Add(-1 * time.Hour)},
		{ID: 3, FoodName: "Chicken Salad", Calories: 1250, TimeLogged: now.Add(-2 * time.Hour)},
	}

	sorter := NewEntrySorter()

	// Time sorting (default) is newest first
	assert.Equal(t, []int64{2, 3, 1}, entryIDs(sorter.Sorted(entries)))

	sorter.SetField(SortByCalories)
	assert.Equal(t, []int64{2, 1, 3}, entryIDs(sorter.Sorted(entries)))

	sorter.SetOrder(SortDescending)
	assert.Equal(t, []int64{3, 1, 2}, entryIDs(sorter.Sorted(entries)))

	// Name sorting ignores case
	sorter.SetField(SortByName)
	assert.Equal(t, []int64{2, 3, 1}, entryIDs(sorter.Sorted(entries)))

	// Input is never reordered
	assert.Equal(t, []int64{1, 2, 3}, entryIDs(entries))
}

func TestEntrySorterTimeTiesUseID(t *testing.T) {
	at := time.Date(2025, 8, 6, 12, 0, 0, 0, time.UTC)
	entries := []model.LogEntry{{ID: 5, TimeLogged: at}, {ID: 9, TimeLogged: at}, {ID: 7, TimeLogged: at}}

	assert.Equal(t, []int64{9, 7, 5}, entryIDs(NewEntrySorter().Sorted(entries)))
}

func TestParseSortField(t *testing.T) {
	tests := []struct {
		input    string
		expected SortField
	}{
		{"", SortByTime},
		{"time", SortByTime},
		{"Calories", SortByCalories},
		{"cal", SortByCalories},
		{"name", SortByName},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			field, err := ParseSortField(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, field)
		})
	}

	_, err := ParseSortField("protein")
	assert.Error(t, err)
}
