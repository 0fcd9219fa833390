package view

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/penwyp/go-fullsnack/internal/core/cache"
	"github.com/penwyp/go-fullsnack/internal/core/events"
	"github.com/penwyp/go-fullsnack/internal/core/model"
	"github.com/penwyp/go-fullsnack/internal/core/refresh"
	"github.com/penwyp/go-fullsnack/internal/testing/fakeclock"
)

const testToday = "2025-08-06"

var testStart = time.Date(2025, 8, 6, 12, 0, 0, 0, time.UTC)

// fakeStore is an in-memory store whose aggregate reads lag behind writes
type fakeStore struct {
	mu      sync.Mutex
	nextID  int64
	entries []model.LogEntry
	// lag is how many aggregate reads after a write still see the old total
	lag       int
	staleLeft int
	staleDay  int
	totalErr  error

	totalReads int
	dayReads   map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{dayReads: make(map[string]int)}
}

func (s *fakeStore) dayTotalLocked(day string) int {
	total := 0
	for _, e := range s.entries {
		if e.Day == day {
			total += e.Calories
		}
	}
	return total
}

func (s *fakeStore) beginWriteLocked() {
	s.staleDay = s.dayTotalLocked(testToday)
	s.staleLeft = s.lag
}

func (s *fakeStore) CreateEntry(_ context.Context, entry model.LogEntry) (model.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beginWriteLocked()
	s.nextID++
	entry.ID = s.nextID
	entry.Day = testToday
	entry.TimeLogged = testStart
	s.entries = append(s.entries, entry)
	return entry, nil
}

func (s *fakeStore) UpdateEntry(_ context.Context, id int64, patch model.LogEntryPatch) (model.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == id {
			s.beginWriteLocked()
			s.entries[i] = patch.ApplyTo(s.entries[i])
			return s.entries[i], nil
		}
	}
	return model.LogEntry{}, errors.New("not found")
}

func (s *fakeStore) DeleteEntry(_ context.Context, id int64) (model.DeleteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == id {
			s.beginWriteLocked()
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return model.DeleteResult{DailyTotal: s.dayTotalLocked(testToday)}, nil
		}
	}
	return model.DeleteResult{}, errors.New("not found")
}

func (s *fakeStore) SetImage(_ context.Context, id int64, query string) (model.SetImageResult, error) {
	return model.SetImageResult{}, errors.New("not supported")
}

func (s *fakeStore) ListEntries(_ context.Context, day string) ([]model.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.LogEntry
	for _, e := range s.entries {
		if e.Day == day {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeStore) DailyTotal(_ context.Context, date string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalReads++
	if s.totalErr != nil {
		return 0, s.totalErr
	}
	if s.staleLeft > 0 && date == testToday {
		s.staleLeft--
		return s.staleDay, nil
	}
	return s.dayTotalLocked(date), nil
}

func (s *fakeStore) ListWeeks(_ context.Context) ([]model.WeeklyAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return []model.WeeklyAggregate{
		{StartDate: "2025-08-04", WeeklyCalorieTotal: 2100 + s.dayTotalLocked(testToday)},
		{StartDate: "2025-07-28", WeeklyCalorieTotal: 9800},
	}, nil
}

func (s *fakeStore) ListDays(_ context.Context, weekStart string) ([]model.DailyAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dayReads[weekStart]++
	return []model.DailyAggregate{
		{Date: "2025-08-05", DailyCalorieTotal: 2100},
		{Date: "2025-08-04", DailyCalorieTotal: 0},
	}, nil
}

func (s *fakeStore) reads() (int, map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	days := make(map[string]int, len(s.dayReads))
	for k, v := range s.dayReads {
		days[k] = v
	}
	return s.totalReads, days
}

type testEnv struct {
	store        *fakeStore
	channel      *events.Channel
	clock        *fakeclock.Clock
	attributions *cache.AttributionCache
	deps         *Deps

	mu          sync.Mutex
	invalidated int
}

func newTestEnv(t *testing.T, session SessionState) *testEnv {
	t.Helper()
	env := &testEnv{
		store:        newFakeStore(),
		channel:      events.NewChannel(),
		clock:        fakeclock.New(testStart),
		attributions: cache.NewAttributionCache(),
	}
	env.deps = &Deps{
		Reader:       env.store,
		Events:       env.channel,
		Attributions: env.attributions,
		Session:      session,
		Refresh: refresh.Config{
			Debounce:   150 * time.Millisecond,
			RetryDelay: 250 * time.Millisecond,
			MaxRetries: 3,
		},
		Clock:    env.clock,
		Location: time.UTC,
		Today:    func() string { return testToday },
		Invalidate: func() {
			env.mu.Lock()
			env.invalidated++
			env.mu.Unlock()
		},
	}
	t.Cleanup(env.channel.Close)
	return env
}

func (env *testEnv) invalidations() int {
	env.mu.Lock()
	defer env.mu.Unlock()
	return env.invalidated
}

type staticSession struct {
	authenticated bool
}

func (s staticSession) IsAuthenticated() bool { return s.authenticated }
func (s staticSession) User() string          { return "ada@example.com" }
