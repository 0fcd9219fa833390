package view

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/penwyp/go-fullsnack/internal/core/model"
	"github.com/penwyp/go-fullsnack/internal/presentation/formatter"
	"golang.org/x/sync/errgroup"
)

// Dashboard lists weekly totals. Expanded weeks also carry their days and are
// fetched again with every weekly refresh.
type Dashboard struct {
	deps  *Deps
	weeks *panel[[]model.WeeklyAggregate]

	mu       sync.Mutex
	expanded map[string]bool
}

// NewDashboard creates a new Dashboard instance
func NewDashboard(deps *Deps) *Dashboard {
	d := &Dashboard{
		deps:     deps.withDefaults(),
		expanded: make(map[string]bool),
	}
	d.weeks = newPanel("dashboard", d.deps, d.fetch)
	return d
}

func (v *Dashboard) Name() string { return "dashboard" }

func (v *Dashboard) fetch(ctx context.Context) ([]model.WeeklyAggregate, error) {
	weeks, err := v.deps.Reader.ListWeeks(ctx)
	if err != nil {
		return nil, err
	}

	expanded := v.Expanded()
	g, gctx := errgroup.WithContext(ctx)
	for i := range weeks {
		if !expanded[weeks[i].StartDate] {
			continue
		}
		i := i
		g.Go(func() error {
			days, err := v.deps.Reader.ListDays(gctx, weeks[i].StartDate)
			if err != nil {
				return fmt.Errorf("failed to list days of week %s: %w", weeks[i].StartDate, err)
			}
			weeks[i].Days = days
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return weeks, nil
}

func (v *Dashboard) Mount(ctx context.Context) error { return v.weeks.mount(ctx) }

func (v *Dashboard) Unmount() { v.weeks.unmount() }

// Expand shows the days of the week starting at start, fetching them lazily
func (v *Dashboard) Expand(ctx context.Context, start string) error {
	if _, err := model.ParseDate(start); err != nil {
		return fmt.Errorf("invalid week start %q: %w", start, err)
	}

	v.mu.Lock()
	already := v.expanded[start]
	v.expanded[start] = true
	v.mu.Unlock()

	if already {
		return nil
	}
	return v.weeks.reload(ctx)
}

// Collapse hides the days of a week; they are no longer fetched
func (v *Dashboard) Collapse(start string) {
	v.mu.Lock()
	delete(v.expanded, start)
	v.mu.Unlock()
	v.deps.Invalidate()
}

// Expanded returns the set of expanded week starts
func (v *Dashboard) Expanded() map[string]bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := make(map[string]bool, len(v.expanded))
	for k := range v.expanded {
		out[k] = true
	}
	return out
}

// Weeks returns the displayed weeks and whether they have been loaded
func (v *Dashboard) Weeks() ([]model.WeeklyAggregate, bool) {
	s := v.weeks.snapshot()
	return s.Value, s.Loaded
}

func (v *Dashboard) Render(w io.Writer) error {
	if err := writeTitle(w, "Dashboard"); err != nil {
		return err
	}
	s := v.weeks.snapshot()
	if _, err := fmt.Fprintln(w, statusLine(s, v.deps.Clock.Now())); err != nil {
		return err
	}
	if !s.Loaded {
		return nil
	}

	expanded := v.Expanded()
	weeks := make([]model.WeeklyAggregate, len(s.Value))
	for i, week := range s.Value {
		weeks[i] = week
		if !expanded[week.StartDate] {
			weeks[i].Days = nil
			continue
		}
		days := append([]model.DailyAggregate(nil), week.Days...)
		sort.Slice(days, func(a, b int) bool { return days[a].Date < days[b].Date })
		weeks[i].Days = days
	}
	return v.deps.table().Format(w, formatter.WeeksTable(weeks))
}
