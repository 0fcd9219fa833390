package interaction

import (
	"fmt"
	"sort"
	"strings"

	"github.com/penwyp/go-fullsnack/internal/core/model"
)

// SortField represents the field to sort entries by
type SortField int

const (
	SortByTime SortField = iota
	SortByCalories
	SortByName
)

// SortOrder represents the sort order
type SortOrder int

const (
	SortAscending SortOrder = iota
	SortDescending
)

// ParseSortField parses a --sort flag value
func ParseSortField(s string) (SortField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "time":
		return SortByTime, nil
	case "calories", "cal":
		return SortByCalories, nil
	case "name", "food":
		return SortByName, nil
	default:
		return SortByTime, fmt.Errorf("unknown sort field %q (time, calories, name)", s)
	}
}

// EntrySorter handles sorting of log entries
type EntrySorter struct {
	field SortField
	order SortOrder
}

// NewEntrySorter creates a new entry sorter, newest first
func NewEntrySorter() *EntrySorter {
	return &EntrySorter{
		field: SortByTime,
		order: SortDescending,
	}
}

// SetField changes the sort field. Time sorts newest first, everything else
// ascending, unless SetOrder is called afterwards.
func (s *EntrySorter) SetField(field SortField) {
	s.field = field
	if field == SortByTime {
		s.order = SortDescending
	} else {
		s.order = SortAscending
	}
}

// SetOrder changes the sort order
func (s *EntrySorter) SetOrder(order SortOrder) {
	s.order = order
}

// Sorted returns a sorted copy of entries; ties keep store order
func (s *EntrySorter) Sorted(entries []model.LogEntry) []model.LogEntry {
	out := make([]model.LogEntry, len(entries))
	copy(out, entries)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if s.order == SortDescending {
			a, b = b, a
		}

		switch s.field {
		case SortByCalories:
			return a.Calories < b.Calories
		case SortByName:
			return strings.ToLower(a.FoodName) < strings.ToLower(b.FoodName)
		default:
			if a.TimeLogged.Equal(b.TimeLogged) {
				return a.ID < b.ID
			}
			return a.TimeLogged.Before(b.TimeLogged)
		}
	})
	return out
}
