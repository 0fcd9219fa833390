package view

import (
	"context"
	"fmt"
	"io"

	"github.com/penwyp/go-fullsnack/internal/util"
)

// TodayBar shows today's calorie total above whatever view is mounted
type TodayBar struct {
	deps  *Deps
	total *panel[int]
}

// NewTodayBar creates a new TodayBar instance
func NewTodayBar(deps *Deps) *TodayBar {
	d := deps.withDefaults()
	return &TodayBar{
		deps: d,
		total: newPanel("today-bar", d, func(ctx context.Context) (int, error) {
			return d.Reader.DailyTotal(ctx, d.Today())
		}),
	}
}

func (v *TodayBar) Name() string { return "today" }

func (v *TodayBar) Mount(ctx context.Context) error { return v.total.mount(ctx) }

func (v *TodayBar) Unmount() { v.total.unmount() }

// Total returns the displayed total and whether it has been loaded
func (v *TodayBar) Total() (int, bool) {
	s := v.total.snapshot()
	return s.Value, s.Loaded
}

func (v *TodayBar) Render(w io.Writer) error {
	s := v.total.snapshot()
	value := "–"
	if s.Loaded {
		value = util.FormatCalories(s.Value)
	}
	_, err := fmt.Fprintf(w, "Today %s: %s  (%s)\n", v.deps.Today(), value, statusLine(s, v.deps.Clock.Now()))
	return err
}
