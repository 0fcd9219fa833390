package cache

import (
	"sync"
	"testing"

	"github.com/penwyp/go-fullsnack/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func credit(name string) model.AttributionRecord {
	return model.AttributionRecord{
		Name:    name,
		Profile: "https://unsplash.com/@" + name,
		Photo:   "https://unsplash.com/photos/" + name,
		Source:  "Unsplash",
	}
}

func TestAttributionCachePutGet(t *testing.T) {
	ac := NewAttributionCache()

	_, ok := ac.Get(1)
	assert.False(t, ok)

	assert.True(t, ac.Put(1, credit("anna")))
	got, ok := ac.Get(1)
	require.True(t, ok)
	assert.Equal(t, credit("anna"), got)
}

func TestAttributionCacheKeyIsolation(t *testing.T) {
	ac := NewAttributionCache()
	ac.Put(1, credit("anna"))
	ac.Put(2, credit("ben"))
	ac.Put(3, credit("cleo"))

	got, ok := ac.Get(1)
	require.True(t, ok)
	assert.Equal(t, credit("anna"), got)
	assert.Equal(t, 3, ac.Len())
}

func TestAttributionCacheIsAdditiveOnly(t *testing.T) {
	ac := NewAttributionCache()
	ac.Put(7, credit("anna"))

	assert.False(t, ac.Put(7, model.AttributionRecord{Source: "Unsplash"}), "poorer record must not replace a richer one")
	assert.False(t, ac.Put(7, model.AttributionRecord{}), "empty record is never stored")
	assert.False(t, ac.Put(7, credit("anna")), "identical record is not a change")

	got, _ := ac.Get(7)
	assert.Equal(t, credit("anna"), got)

	// an equally rich record for a new photo replaces the old credit
	assert.True(t, ac.Put(7, credit("ben")))
	got, _ = ac.Get(7)
	assert.Equal(t, "ben", got.Name)
}

func TestAttributionCacheConcurrentPuts(t *testing.T) {
	ac := NewAttributionCache()
	var wg sync.WaitGroup
	for i := int64(0); i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			ac.Put(id, credit("p"))
			ac.Get(id)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, ac.Len())
}

func TestResolvePrecedence(t *testing.T) {
	ac := NewAttributionCache()
	ac.Put(1, credit("cached"))

	tests := []struct {
		name  string
		entry model.LogEntry
		want  model.AttributionRecord
	}{
		{
			name:  "store fields win",
			entry: model.LogEntry{ID: 1, ImageURL: "x", ImageCreditName: "stored", ImageCreditSource: "Pexels"},
			want: model.AttributionRecord{
				Name:    "stored",
				Profile: "https://unsplash.com/@cached",
				Photo:   "https://unsplash.com/photos/cached",
				Source:  "Pexels",
			},
		},
		{
			name:  "cache supplements",
			entry: model.LogEntry{ID: 1, ImageURL: "x"},
			want:  credit("cached"),
		},
		{
			name:  "generic source fallback",
			entry: model.LogEntry{ID: 2, ImageURL: "x"},
			want:  model.AttributionRecord{Source: model.DefaultAttributionSource},
		},
		{
			name:  "no photo no credit",
			entry: model.LogEntry{ID: 3},
			want:  model.AttributionRecord{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.entry, ac))
		})
	}
}

func TestResolveWithoutCache(t *testing.T) {
	got := Resolve(model.LogEntry{ID: 1, ImageURL: "x", ImageCreditName: "anna"}, nil)
	assert.Equal(t, "anna", got.Name)
	assert.Equal(t, model.DefaultAttributionSource, got.Source)
}
