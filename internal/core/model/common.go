package model

import "time"

// Date layout exchanged with the backing store
const DateLayout = "2006-01-02"

// Attribution defaults
const (
	DefaultAttributionSource = "Unsplash"
	AttributionUTMSource     = "FullSnack"
)

// Field limits
const (
	MaxFoodNameLength = 100
	MaxCreditName     = 120
)

// Route paths
const (
	PathHome      = "/"
	PathLogin     = "/login/"
	PathSignup    = "/signup/"
	PathFoodLog   = "/foodlog/"
	PathDashboard = "/dashboard/"
	PathDayPrefix = "/days/"
)

// FormatDate formats t as a store date key
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a store date key
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// WeekStart returns the Monday of the week containing t
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
