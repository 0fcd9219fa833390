package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidEntry is returned when a log entry fails local validation
var ErrInvalidEntry = errors.New("invalid log entry")

// LogEntry is a single food log owned by the backing store
type LogEntry struct {
	ID                 int64     `json:"id,omitempty"`
	FoodName           string    `json:"food_name"`
	Calories           int       `json:"calories"`
	Protein            int       `json:"protein"`
	Carbs              int       `json:"carbs"`
	Fat                int       `json:"fat"`
	ImageURL           string    `json:"image_url,omitempty"`
	ImageCreditName    string    `json:"image_credit_name,omitempty"`
	ImageCreditProfile string    `json:"image_credit_profile,omitempty"`
	ImageCreditPhoto   string    `json:"image_credit_photo,omitempty"`
	ImageCreditSource  string    `json:"image_credit_source,omitempty"`
	TimeLogged         time.Time `json:"time_logged"`
	Day                string    `json:"day,omitempty"`
}

// Validate checks the fields a client may set on create
func (e LogEntry) Validate() error {
	if strings.TrimSpace(e.FoodName) == "" {
		return fmt.Errorf("%w: food name is required", ErrInvalidEntry)
	}
	if len(e.FoodName) > MaxFoodNameLength {
		return fmt.Errorf("%w: food name longer than %d characters", ErrInvalidEntry, MaxFoodNameLength)
	}
	return validateNutrition(e.Calories, e.Protein, e.Carbs, e.Fat)
}

func validateNutrition(values ...int) error {
	names := []string{"calories", "protein", "carbs", "fat"}
	for i, v := range values {
		if v < 0 {
			return fmt.Errorf("%w: %s must be non-negative, got %d", ErrInvalidEntry, names[i], v)
		}
	}
	return nil
}

// LogEntryPatch carries the fields of an update; nil fields are left untouched
type LogEntryPatch struct {
	FoodName *string `json:"food_name,omitempty"`
	Calories *int    `json:"calories,omitempty"`
	Protein  *int    `json:"protein,omitempty"`
	Carbs    *int    `json:"carbs,omitempty"`
	Fat      *int    `json:"fat,omitempty"`
	ImageURL *string `json:"image_url,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p LogEntryPatch) IsEmpty() bool {
	return p.FoodName == nil && p.Calories == nil && p.Protein == nil &&
		p.Carbs == nil && p.Fat == nil && p.ImageURL == nil
}

// Validate checks the provided fields
func (p LogEntryPatch) Validate() error {
	if p.IsEmpty() {
		return fmt.Errorf("%w: nothing to update", ErrInvalidEntry)
	}
	if p.FoodName != nil && strings.TrimSpace(*p.FoodName) == "" {
		return fmt.Errorf("%w: food name cannot be empty", ErrInvalidEntry)
	}
	for i, v := range []*int{p.Calories, p.Protein, p.Carbs, p.Fat} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%w: %s must be non-negative, got %d", ErrInvalidEntry,
				[]string{"calories", "protein", "carbs", "fat"}[i], *v)
		}
	}
	return nil
}

// ApplyTo returns a copy of entry with the patch applied
func (p LogEntryPatch) ApplyTo(entry LogEntry) LogEntry {
	if p.FoodName != nil {
		entry.FoodName = *p.FoodName
	}
	if p.Calories != nil {
		entry.Calories = *p.Calories
	}
	if p.Protein != nil {
		entry.Protein = *p.Protein
	}
	if p.Carbs != nil {
		entry.Carbs = *p.Carbs
	}
	if p.Fat != nil {
		entry.Fat = *p.Fat
	}
	if p.ImageURL != nil {
		entry.ImageURL = *p.ImageURL
	}
	return entry
}

// DailyAggregate is the server-side calorie total of one calendar day
type DailyAggregate struct {
	ID                int64  `json:"id,omitempty"`
	Date              string `json:"date"`
	DailyCalorieTotal int    `json:"daily_calorie_total"`
	ParentWeek        string `json:"parent_week,omitempty"`
}

// WeeklyAggregate is the server-side calorie total of one week.
// Days is only populated when a view expands the week.
type WeeklyAggregate struct {
	ID                 int64            `json:"id,omitempty"`
	StartDate          string           `json:"start_date"`
	WeeklyCalorieTotal int              `json:"weekly_calorie_total"`
	Days               []DailyAggregate `json:"-"`
}

// AttributionRecord is the photographer credit that must accompany a photo
type AttributionRecord struct {
	Name    string `json:"name,omitempty"`
	Profile string `json:"profile,omitempty"`
	Photo   string `json:"photo,omitempty"`
	Source  string `json:"source,omitempty"`
}

// IsComplete reports whether the record can render a full "Photo by X on Y" credit
func (a AttributionRecord) IsComplete() bool {
	return a.Name != "" && a.Profile != ""
}

// Score counts populated fields; used to avoid replacing a record with a worse one
func (a AttributionRecord) Score() int {
	score := 0
	for _, v := range []string{a.Name, a.Profile, a.Photo, a.Source} {
		if v != "" {
			score++
		}
	}
	return score
}

// NutritionItem is the normalized result of a nutrition lookup
type NutritionItem struct {
	Name     string  `json:"name"`
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbohydrates_total_g"`
	FatG     float64 `json:"fat_total_g"`
}

// ToEntry converts a lookup result into a loggable entry
func (n NutritionItem) ToEntry() LogEntry {
	return LogEntry{
		FoodName: n.Name,
		Calories: roundNonNegative(n.Calories),
		Protein:  roundNonNegative(n.ProteinG),
		Carbs:    roundNonNegative(n.CarbsG),
		Fat:      roundNonNegative(n.FatG),
	}
}

func roundNonNegative(v float64) int {
	if v <= 0 {
		return 0
	}
	return int(v + 0.5)
}

// PhotoResult is one candidate image from a photo search
type PhotoResult struct {
	ID     string            `json:"id"`
	Alt    string            `json:"alt"`
	Thumb  string            `json:"thumb"`
	Full   string            `json:"full"`
	Credit AttributionRecord `json:"credit"`
}

// SetImageResult is returned by the set-image operation
type SetImageResult struct {
	Entry  LogEntry          `json:"foodlog"`
	Credit AttributionRecord `json:"credit"`
}

// DeleteResult is returned by the delete operation
type DeleteResult struct {
	Detail     string `json:"detail"`
	DailyTotal int    `json:"daily_total"`
}

// Credentials is the body of signup and login requests
type Credentials struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// User is the public profile of an account
type User struct {
	ID        int64  `json:"id,omitempty"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// DisplayName returns the first name, falling back to the email
func (u User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Email
}

// AuthResponse is returned by signup and login
type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}
