package view

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/penwyp/go-fullsnack/internal/core/cache"
	"github.com/penwyp/go-fullsnack/internal/core/model"
	"github.com/penwyp/go-fullsnack/internal/presentation/formatter"
	"github.com/penwyp/go-fullsnack/internal/presentation/interaction"
)

// entryList renders the entries of one day with their resolved photo credits
type entryList struct {
	deps    *Deps
	entries *panel[[]model.LogEntry]

	mu     sync.Mutex
	sorter *interaction.EntrySorter
}

func newEntryList(name string, deps *Deps, day func() string) *entryList {
	return &entryList{
		deps: deps,
		entries: newPanel(name, deps, func(ctx context.Context) ([]model.LogEntry, error) {
			return deps.Reader.ListEntries(ctx, day())
		}),
		sorter: interaction.NewEntrySorter(),
	}
}

func (l *entryList) setSort(field interaction.SortField) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sorter.SetField(field)
}

func (l *entryList) credit(e model.LogEntry) model.AttributionRecord {
	return cache.Resolve(e, l.deps.Attributions)
}

func (l *entryList) render(w io.Writer) error {
	s := l.entries.snapshot()

	l.mu.Lock()
	entries := l.sorter.Sorted(s.Value)
	l.mu.Unlock()

	if _, err := fmt.Fprintln(w, statusLine(s, l.deps.Clock.Now())); err != nil {
		return err
	}
	if !s.Loaded {
		return nil
	}
	return l.deps.table().Format(w, formatter.EntriesTable(entries, l.credit, l.deps.Location))
}

// FoodLog lists today's entries
type FoodLog struct {
	deps *Deps
	list *entryList
}

// NewFoodLog creates a new FoodLog instance
func NewFoodLog(deps *Deps) *FoodLog {
	d := deps.withDefaults()
	return &FoodLog{deps: d, list: newEntryList("food-log", d, d.Today)}
}

func (v *FoodLog) Name() string { return "foodlog" }

func (v *FoodLog) Mount(ctx context.Context) error { return v.list.entries.mount(ctx) }

func (v *FoodLog) Unmount() { v.list.entries.unmount() }

// Entries returns the displayed entries and whether they have been loaded
func (v *FoodLog) Entries() ([]model.LogEntry, bool) {
	s := v.list.entries.snapshot()
	return s.Value, s.Loaded
}

// SetSort changes the row order
func (v *FoodLog) SetSort(field interaction.SortField) {
	v.list.setSort(field)
	v.deps.Invalidate()
}

func (v *FoodLog) Render(w io.Writer) error {
	if err := writeTitle(w, "Food log · "+v.deps.Today()); err != nil {
		return err
	}
	return v.list.render(w)
}
