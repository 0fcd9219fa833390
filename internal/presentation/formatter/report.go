package formatter

import (
	"fmt"
	"strconv"
	"time"

	"github.com/penwyp/go-fullsnack/internal/core/model"
	"github.com/penwyp/go-fullsnack/internal/util"
)

// CreditFunc resolves the attribution shown next to an entry
type CreditFunc func(model.LogEntry) model.AttributionRecord

// CreditLine renders the photographer credit required alongside a photo
func CreditLine(rec model.AttributionRecord) string {
	switch {
	case rec.Name != "" && rec.Source != "":
		return fmt.Sprintf("Photo by %s on %s", rec.Name, rec.Source)
	case rec.Name != "":
		return "Photo by " + rec.Name
	case rec.Source != "":
		return "Photo from " + rec.Source
	default:
		return ""
	}
}

// EntriesTable lists log entries with their macros and photo credit.
// The footer carries the sum of the listed entries.
func EntriesTable(entries []model.LogEntry, credit CreditFunc, loc *time.Location) Table {
	if loc == nil {
		loc = time.UTC
	}
	t := Table{
		Columns: []Column{
			{Header: "ID", Align: AlignRight},
			{Header: "Time"},
			{Header: "Food", Shrink: true},
			{Header: "Calories", Align: AlignRight},
			{Header: "Protein", Align: AlignRight},
			{Header: "Carbs", Align: AlignRight},
			{Header: "Fat", Align: AlignRight},
			{Header: "Photo", Shrink: true},
		},
		Rows: make([][]string, 0, len(entries)),
	}

	var calories, protein, carbs, fat int
	for _, e := range entries {
		photo := ""
		if credit != nil {
			photo = CreditLine(credit(e))
		}
		when := ""
		if !e.TimeLogged.IsZero() {
			when = e.TimeLogged.In(loc).Format("15:04")
		}
		t.Rows = append(t.Rows, []string{
			strconv.FormatInt(e.ID, 10),
			when,
			e.FoodName,
			util.FormatNumber(e.Calories),
			util.FormatGrams(e.Protein),
			util.FormatGrams(e.Carbs),
			util.FormatGrams(e.Fat),
			photo,
		})
		calories += e.Calories
		protein += e.Protein
		carbs += e.Carbs
		fat += e.Fat
	}

	if len(entries) > 0 {
		t.Footer = []string{
			"", "", "Total",
			util.FormatNumber(calories),
			util.FormatGrams(protein),
			util.FormatGrams(carbs),
			util.FormatGrams(fat),
			"",
		}
	}
	return t
}

// DaysTable lists daily totals
func DaysTable(days []model.DailyAggregate) Table {
	t := Table{
		Columns: []Column{
			{Header: "Date"},
			{Header: "Day"},
			{Header: "Calories", Align: AlignRight},
		},
		Rows: make([][]string, 0, len(days)),
	}
	total := 0
	for _, d := range days {
		weekday := ""
		if date, err := model.ParseDate(d.Date); err == nil {
			weekday = date.Weekday().String()[:3]
		}
		t.Rows = append(t.Rows, []string{d.Date, weekday, util.FormatNumber(d.DailyCalorieTotal)})
		total += d.DailyCalorieTotal
	}
	if len(days) > 0 {
		t.Footer = []string{"Total", "", util.FormatNumber(total)}
	}
	return t
}

// WeeksTable lists weekly totals with the daily average over logged days.
// Weeks that have been expanded list their days beneath them.
func WeeksTable(weeks []model.WeeklyAggregate) Table {
	t := Table{
		Columns: []Column{
			{Header: "Week of"},
			{Header: "Calories", Align: AlignRight},
			{Header: "Days", Align: AlignRight},
			{Header: "Avg/day", Align: AlignRight},
		},
		Rows: make([][]string, 0, len(weeks)),
	}
	for _, w := range weeks {
		days, avg := "", ""
		if len(w.Days) > 0 {
			days = strconv.Itoa(len(w.Days))
			avg = util.FormatNumber(w.WeeklyCalorieTotal / len(w.Days))
		}
		t.Rows = append(t.Rows, []string{w.StartDate, util.FormatNumber(w.WeeklyCalorieTotal), days, avg})
		for _, d := range w.Days {
			t.Rows = append(t.Rows, []string{"  " + d.Date, util.FormatNumber(d.DailyCalorieTotal), "", ""})
		}
	}
	return t
}

// PhotosTable lists photo search results with their credits
func PhotosTable(photos []model.PhotoResult) Table {
	t := Table{
		Columns: []Column{
			{Header: "#", Align: AlignRight},
			{Header: "ID"},
			{Header: "Description", Shrink: true},
			{Header: "Credit"},
		},
		Rows: make([][]string, 0, len(photos)),
	}
	for i, p := range photos {
		t.Rows = append(t.Rows, []string{strconv.Itoa(i + 1), p.ID, p.Alt, CreditLine(p.Credit)})
	}
	return t
}
