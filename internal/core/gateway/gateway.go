// Package gateway is the only write path to the log store. Every successful
// mutation publishes exactly one log-mutated event before returning.
package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/penwyp/go-fullsnack/internal/core/events"
	"github.com/penwyp/go-fullsnack/internal/core/model"
	"github.com/penwyp/go-fullsnack/internal/util"
)

// LogStore is the subset of the store client the gateway mutates through
type LogStore interface {
	CreateEntry(ctx context.Context, entry model.LogEntry) (model.LogEntry, error)
	UpdateEntry(ctx context.Context, id int64, patch model.LogEntryPatch) (model.LogEntry, error)
	DeleteEntry(ctx context.Context, id int64) (model.DeleteResult, error)
	SetImage(ctx context.Context, id int64, query string) (model.SetImageResult, error)
}

// AttributionSink records credits returned by set-image
type AttributionSink interface {
	Put(entryID int64, record model.AttributionRecord) bool
}

// Gateway wraps store mutations
type Gateway struct {
	store        LogStore
	publisher    events.Publisher
	attributions AttributionSink
}

// New creates a new Gateway instance. attributions may be nil.
func New(store LogStore, publisher events.Publisher, attributions AttributionSink) *Gateway {
	return &Gateway{
		store:        store,
		publisher:    publisher,
		attributions: attributions,
	}
}

// Create logs a new entry
func (g *Gateway) Create(ctx context.Context, entry model.LogEntry) (model.LogEntry, error) {
	entry.FoodName = strings.TrimSpace(entry.FoodName)
	if err := entry.Validate(); err != nil {
		return model.LogEntry{}, err
	}

	created, err := g.store.CreateEntry(ctx, entry)
	if err != nil {
		return model.LogEntry{}, fmt.Errorf("failed to create entry: %w", err)
	}

	util.LogInfo("Entry created",
		util.F("id", created.ID), util.F("food", created.FoodName), util.F("calories", created.Calories))
	g.publish()
	return created, nil
}

// Update applies patch to entry id
func (g *Gateway) Update(ctx context.Context, id int64, patch model.LogEntryPatch) (model.LogEntry, error) {
	if id <= 0 {
		return model.LogEntry{}, fmt.Errorf("%w: invalid id %d", model.ErrInvalidEntry, id)
	}
	if err := patch.Validate(); err != nil {
		return model.LogEntry{}, err
	}

	updated, err := g.store.UpdateEntry(ctx, id, patch)
	if err != nil {
		return model.LogEntry{}, fmt.Errorf("failed to update entry %d: %w", id, err)
	}

	util.LogInfo("Entry updated", util.F("id", id))
	g.publish()
	return updated, nil
}

// Delete removes entry id
func (g *Gateway) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid id %d", model.ErrInvalidEntry, id)
	}

	result, err := g.store.DeleteEntry(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete entry %d: %w", id, err)
	}

	util.LogInfo("Entry deleted", util.F("id", id), util.F("daily_total", result.DailyTotal))
	g.publish()
	return nil
}

// SetImage attaches a photo found by query to entry id and caches its credit
func (g *Gateway) SetImage(ctx context.Context, id int64, query string) (model.SetImageResult, error) {
	query = strings.TrimSpace(query)
	if id <= 0 {
		return model.SetImageResult{}, fmt.Errorf("%w: invalid id %d", model.ErrInvalidEntry, id)
	}
	if query == "" {
		return model.SetImageResult{}, fmt.Errorf("%w: image query is required", model.ErrInvalidEntry)
	}

	result, err := g.store.SetImage(ctx, id, query)
	if err != nil {
		return model.SetImageResult{}, fmt.Errorf("failed to set image for entry %d: %w", id, err)
	}

	if g.attributions != nil {
		g.attributions.Put(id, result.Credit)
	}
	util.LogInfo("Entry image set", util.F("id", id), util.F("credit", result.Credit.Name))
	g.publish()
	return result, nil
}

func (g *Gateway) publish() {
	if g.publisher != nil {
		g.publisher.Publish(events.LogMutated())
	}
}
