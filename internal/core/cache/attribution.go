package cache

import (
	"sync"

	"github.com/penwyp/go-fullsnack/internal/core/model"
	"github.com/penwyp/go-fullsnack/internal/util"
)

// AttributionCache maps log entry ids to photo credits resolved during this
// process. It is additive-only: a record is never replaced by one carrying
// less information. Nothing is persisted.
type AttributionCache struct {
	mu      sync.RWMutex
	entries map[int64]model.AttributionRecord
}

// NewAttributionCache creates a new AttributionCache instance
func NewAttributionCache() *AttributionCache {
	return &AttributionCache{
		entries: make(map[int64]model.AttributionRecord),
	}
}

// Put stores record for entryID and reports whether the cache changed.
// A record with a lower score than the one already cached is ignored.
func (ac *AttributionCache) Put(entryID int64, record model.AttributionRecord) bool {
	if record.Score() == 0 {
		return false
	}

	ac.mu.Lock()
	defer ac.mu.Unlock()

	if existing, ok := ac.entries[entryID]; ok {
		if existing == record {
			return false
		}
		if record.Score() < existing.Score() {
			util.LogDebugf("AttributionCache: kept richer credit for entry %d", entryID)
			return false
		}
	}
	ac.entries[entryID] = record
	return true
}

// Get returns the cached record for entryID
func (ac *AttributionCache) Get(entryID int64) (model.AttributionRecord, bool) {
	ac.mu.RLock()
	defer ac.mu.RUnlock()

	record, ok := ac.entries[entryID]
	return record, ok
}

// Len returns the number of cached records
func (ac *AttributionCache) Len() int {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	return len(ac.entries)
}

// AttributionSource is the read side of the cache used by rendering
type AttributionSource interface {
	Get(entryID int64) (model.AttributionRecord, bool)
}

// Resolve returns the credit to display for entry. Fields returned by the
// store win over cached fields; an entry with a photo but no credit at all
// falls back to the generic source label.
func Resolve(entry model.LogEntry, source AttributionSource) model.AttributionRecord {
	stored := model.AttributionRecord{
		Name:    entry.ImageCreditName,
		Profile: entry.ImageCreditProfile,
		Photo:   entry.ImageCreditPhoto,
		Source:  entry.ImageCreditSource,
	}

	var cached model.AttributionRecord
	if source != nil {
		cached, _ = source.Get(entry.ID)
	}

	resolved := model.AttributionRecord{
		Name:    firstNonEmpty(stored.Name, cached.Name),
		Profile: firstNonEmpty(stored.Profile, cached.Profile),
		Photo:   firstNonEmpty(stored.Photo, cached.Photo),
		Source:  firstNonEmpty(stored.Source, cached.Source),
	}
	if resolved.Source == "" && (entry.ImageURL != "" || resolved.Score() > 0) {
		resolved.Source = model.DefaultAttributionSource
	}
	return resolved
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
