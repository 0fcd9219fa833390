package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/penwyp/go-fullsnack/internal/core/model"
)

// ParsePatch builds an update from key=value pairs. Accepted keys are name,
// calories, protein, carbs, fat and image.
func ParsePatch(pairs []string) (model.LogEntryPatch, error) {
	var patch model.LogEntryPatch
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return patch, fmt.Errorf("%w: expected key=value, got %q", model.ErrInvalidEntry, pair)
		}
		key = strings.ToLower(strings.TrimSpace(key))

		switch key {
		case "name", "food":
			v := value
			patch.FoodName = &v
		case "image", "image_url":
			v := value
			patch.ImageURL = &v
		case "calories", "cal", "protein", "carbs", "fat":
			n, err := parseAmount(key, value)
			if err != nil {
				return patch, err
			}
			switch key {
			case "calories", "cal":
				patch.Calories = &n
			case "protein":
				patch.Protein = &n
			case "carbs":
				patch.Carbs = &n
			case "fat":
				patch.Fat = &n
			}
		default:
			return patch, fmt.Errorf("%w: unknown field %q", model.ErrInvalidEntry, key)
		}
	}
	return patch, patch.Validate()
}

// ParseEntry builds a new entry from a name and up to four amounts in the
// order calories, protein, carbs, fat
func ParseEntry(name string, amounts []string) (model.LogEntry, error) {
	entry := model.LogEntry{FoodName: strings.TrimSpace(name)}
	if len(amounts) == 0 || len(amounts) > 4 {
		return entry, fmt.Errorf("%w: expected calories and optional protein, carbs, fat", model.ErrInvalidEntry)
	}

	fields := []*int{&entry.Calories, &entry.Protein, &entry.Carbs, &entry.Fat}
	names := []string{"calories", "protein", "carbs", "fat"}
	for i, raw := range amounts {
		n, err := parseAmount(names[i], raw)
		if err != nil {
			return entry, err
		}
		*fields[i] = n
	}
	return entry, entry.Validate()
}

// ParseID parses a log entry id
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", model.ErrInvalidEntry, raw)
	}
	return id, nil
}

func parseAmount(field, raw string) (int, error) {
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "g")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a whole number, got %q", model.ErrInvalidEntry, field, raw)
	}
	return n, nil
}
