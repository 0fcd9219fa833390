package view

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/penwyp/go-fullsnack/internal/core/model"
	"github.com/penwyp/go-fullsnack/internal/presentation/interaction"
	"github.com/penwyp/go-fullsnack/internal/util"
)

// DayView shows the entries and total of one calendar day
type DayView struct {
	deps  *Deps
	date  string
	list  *entryList
	total *panel[int]
}

// NewDayView creates a new DayView instance for date (YYYY-MM-DD)
func NewDayView(deps *Deps, date string) (*DayView, error) {
	if _, err := model.ParseDate(date); err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}
	d := deps.withDefaults()
	day := func() string { return date }
	return &DayView{
		deps: d,
		date: date,
		list: newEntryList("day-entries:"+date, d, day),
		total: newPanel("day-total:"+date, d, func(ctx context.Context) (int, error) {
			return d.Reader.DailyTotal(ctx, date)
		}),
	}, nil
}

func (v *DayView) Name() string { return "day:" + v.date }

// Date returns the day shown
func (v *DayView) Date() string { return v.date }

func (v *DayView) Mount(ctx context.Context) error {
	return errors.Join(v.list.entries.mount(ctx), v.total.mount(ctx))
}

func (v *DayView) Unmount() {
	v.list.entries.unmount()
	v.total.unmount()
}

// Total returns the displayed total and whether it has been loaded
func (v *DayView) Total() (int, bool) {
	s := v.total.snapshot()
	return s.Value, s.Loaded
}

// SetSort changes the row order
func (v *DayView) SetSort(field interaction.SortField) {
	v.list.setSort(field)
	v.deps.Invalidate()
}

func (v *DayView) Render(w io.Writer) error {
	total := v.total.snapshot()
	value := "–"
	if total.Loaded {
		value = util.FormatCalories(total.Value)
	}
	if err := writeTitle(w, fmt.Sprintf("Day %s · %s", v.date, value)); err != nil {
		return err
	}
	return v.list.render(w)
}
