package view

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/penwyp/go-fullsnack/internal/core/events"
	"github.com/penwyp/go-fullsnack/internal/core/gateway"
	"github.com/penwyp/go-fullsnack/internal/core/model"
	"github.com/penwyp/go-fullsnack/internal/presentation/interaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOatmealUpdatesEverySubscribedView(t *testing.T) {
	env := newTestEnv(t, staticSession{authenticated: true})
	env.store.lag = 1
	ctx := context.Background()

	bar := NewTodayBar(env.deps)
	log := NewFoodLog(env.deps)
	require.NoError(t, bar.Mount(ctx))
	require.NoError(t, log.Mount(ctx))
	defer bar.Unmount()
	defer log.Unmount()

	total, loaded := bar.Total()
	require.True(t, loaded)
	assert.Equal(t, 0, total)

	gw := gateway.New(env.store, env.channel, env.attributions)
	_, err := gw.Create(ctx, model.LogEntry{FoodName: "Oatmeal", Calories: 300})
	require.NoError(t, err)

	// Debounce expires: the list changes, the total is still stale
	env.clock.Advance(150 * time.Millisecond)
	entries, _ := log.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "Oatmeal", entries[0].FoodName)
	total, _ = bar.Total()
	assert.Equal(t, 0, total)

	// First retry sees the write
	env.clock.Advance(250 * time.Millisecond)
	total, _ = bar.Total()
	assert.Equal(t, 300, total)

	reads, _ := env.store.reads()
	assert.Equal(t, 3, reads, "load, stale read, retry")
	assert.Greater(t, env.invalidations(), 0)

	var buf bytes.Buffer
	require.NoError(t, bar.Render(&buf))
	assert.Contains(t, buf.String(), "300 kcal")
}

func TestUnmountedViewStopsRefreshing(t *testing.T) {
	env := newTestEnv(t, staticSession{authenticated: true})
	ctx := context.Background()

	bar := NewTodayBar(env.deps)
	require.NoError(t, bar.Mount(ctx))
	assert.Equal(t, 1, env.channel.Subscribers(events.KindLogMutated))

	env.channel.Publish(events.LogMutated())
	bar.Unmount()
	assert.Equal(t, 0, env.channel.Subscribers(events.KindLogMutated))

	env.clock.Advance(time.Second)
	reads, _ := env.store.reads()
	assert.Equal(t, 1, reads)
}

func TestRefreshFailureKeepsLastValue(t *testing.T) {
	env := newTestEnv(t, staticSession{authenticated: true})
	ctx := context.Background()
	_, _ = env.store.CreateEntry(ctx, model.LogEntry{FoodName: "Banana", Calories: 105})

	bar := NewTodayBar(env.deps)
	require.NoError(t, bar.Mount(ctx))
	defer bar.Unmount()

	env.store.mu.Lock()
	env.store.totalErr = errors.New("connection refused")
	env.store.mu.Unlock()

	env.channel.Publish(events.LogMutated())
	env.clock.Advance(150 * time.Millisecond)

	total, loaded := bar.Total()
	assert.True(t, loaded)
	assert.Equal(t, 105, total)

	var buf bytes.Buffer
	require.NoError(t, bar.Render(&buf))
	assert.Contains(t, buf.String(), "105 kcal")
	assert.Contains(t, buf.String(), "refresh failed: connection refused")
}

func TestInitialLoadErrorIsRendered(t *testing.T) {
	env := newTestEnv(t, staticSession{authenticated: true})
	env.store.totalErr = errors.New("boom")

	bar := NewTodayBar(env.deps)
	assert.Error(t, bar.Mount(context.Background()))
	defer bar.Unmount()

	var buf bytes.Buffer
	require.NoError(t, bar.Render(&buf))
	assert.Contains(t, buf.String(), "could not load: boom")
}

func TestFoodLogRendersResolvedAttribution(t *testing.T) {
	env := newTestEnv(t, staticSession{authenticated: true})
	ctx := context.Background()

	oatmeal, _ := env.store.CreateEntry(ctx, model.LogEntry{FoodName: "Oatmeal", Calories: 300, ImageURL: "https://images.example/oat.jpg"})
	banana, _ := env.store.CreateEntry(ctx, model.LogEntry{FoodName: "Banana", Calories: 105})
	env.attributions.Put(oatmeal.ID, model.AttributionRecord{Name: "Anna Pelzer", Profile: "https://unsplash.com/@annapelzer", Source: "Unsplash"})
	env.attributions.Put(banana.ID+100, model.AttributionRecord{Name: "Someone Else", Source: "Unsplash"})

	log := NewFoodLog(env.deps)
	require.NoError(t, log.Mount(ctx))
	defer log.Unmount()

	var buf bytes.Buffer
	require.NoError(t, log.Render(&buf))
	out := buf.String()
	assert.Contains(t, out, "Food log · "+testToday)
	assert.Contains(t, out, "Photo by Anna Pelzer on Unsplash")
	assert.NotContains(t, out, "Someone Else")
	assert.Contains(t, out, "405")
}

func TestFoodLogSort(t *testing.T) {
	env := newTestEnv(t, staticSession{authenticated: true})
	ctx := context.Background()
	_, _ = env.store.CreateEntry(ctx, model.LogEntry{FoodName: "Zucchini", Calories: 30})
	_, _ = env.store.CreateEntry(ctx, model.LogEntry{FoodName: "Apple", Calories: 95})

	log := NewFoodLog(env.deps)
	require.NoError(t, log.Mount(ctx))
	defer log.Unmount()

	log.SetSort(interaction.SortByName)
	var buf bytes.Buffer
	require.NoError(t, log.Render(&buf))
	out := buf.String()
	assert.Less(t, bytes.Index([]byte(out), []byte("Apple")), bytes.Index([]byte(out), []byte("Zucchini")))
}

func TestDayViewTracksEntriesAndTotal(t *testing.T) {
	env := newTestEnv(t, staticSession{authenticated: true})
	ctx := context.Background()

	day, err := NewDayView(env.deps, testToday)
	require.NoError(t, err)
	require.NoError(t, day.Mount(ctx))
	defer day.Unmount()
	assert.Equal(t, 2, env.channel.Subscribers(events.KindLogMutated))

	gw := gateway.New(env.store, env.channel, nil)
	_, err = gw.Create(ctx, model.LogEntry{FoodName: "Oatmeal", Calories: 300})
	require.NoError(t, err)
	env.clock.Advance(150 * time.Millisecond)

	total, _ := day.Total()
	assert.Equal(t, 300, total)

	var buf bytes.Buffer
	require.NoError(t, day.Render(&buf))
	assert.Contains(t, buf.String(), "Day 2025-08-06 · 300 kcal")
	assert.Contains(t, buf.String(), "Oatmeal")

	_, err = NewDayView(env.deps, "yesterday")
	assert.Error(t, err)
}

func TestDashboardExpandFetchesDaysLazily(t *testing.T) {
	env := newTestEnv(t, staticSession{authenticated: true})
	ctx := context.Background()

	dash := NewDashboard(env.deps)
	require.NoError(t, dash.Mount(ctx))
	defer dash.Unmount()

	_, dayReads := env.store.reads()
	assert.Empty(t, dayReads)

	require.NoError(t, dash.Expand(ctx, "2025-08-04"))
	weeks, loaded := dash.Weeks()
	require.True(t, loaded)
	require.Len(t, weeks, 2)
	assert.Len(t, weeks[0].Days, 2)
	assert.Empty(t, weeks[1].Days)

	// Expanding again does not fetch
	require.NoError(t, dash.Expand(ctx, "2025-08-04"))
	_, dayReads = env.store.reads()
	assert.Equal(t, 1, dayReads["2025-08-04"])

	// Expanded weeks are refreshed with the weekly total
	gw := gateway.New(env.store, env.channel, nil)
	_, err := gw.Create(ctx, model.LogEntry{FoodName: "Oatmeal", Calories: 300})
	require.NoError(t, err)
	env.clock.Advance(150 * time.Millisecond)

	weeks, _ = dash.Weeks()
	assert.Equal(t, 2400, weeks[0].WeeklyCalorieTotal)
	_, dayReads = env.store.reads()
	assert.Equal(t, 2, dayReads["2025-08-04"])

	var buf bytes.Buffer
	require.NoError(t, dash.Render(&buf))
	out := buf.String()
	assert.Contains(t, out, "2,400")
	// Days render oldest first
	assert.Less(t, bytes.Index([]byte(out), []byte("  2025-08-04")), bytes.Index([]byte(out), []byte("  2025-08-05")))

	dash.Collapse("2025-08-04")
	buf.Reset()
	require.NoError(t, dash.Render(&buf))
	assert.NotContains(t, buf.String(), "  2025-08-05")

	env.channel.Publish(events.LogMutated())
	env.clock.Advance(time.Second)
	_, dayReads = env.store.reads()
	assert.Equal(t, 2, dayReads["2025-08-04"])

	assert.Error(t, dash.Expand(ctx, "last week"))
}

func TestStaticViews(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewHome(&Deps{Session: staticSession{authenticated: true}}).Render(&buf))
	assert.Contains(t, buf.String(), "Welcome back, ada@example.com")

	buf.Reset()
	require.NoError(t, NewHome(&Deps{Session: staticSession{}}).Render(&buf))
	assert.Contains(t, buf.String(), "login <email>")
}
