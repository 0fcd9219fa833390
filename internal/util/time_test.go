package util

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeTimeProvider(t *testing.T) {
	tests := []struct {
		name     string
		timezone string
		wantErr  bool
	}{
		{name: "local timezone", timezone: "Local"},
		{name: "UTC timezone", timezone: "UTC"},
		{name: "valid timezone America/New_York", timezone: "America/New_York"},
		{name: "invalid timezone", timezone: "Invalid/Timezone", wantErr: true},
		{name: "empty timezone defaults to Local", timezone: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := InitializeTimeProvider(tt.timezone)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "invalid timezone")
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, GetTimeProvider())
		})
	}
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func (c fixedClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

func TestTimeProviderToday(t *testing.T) {
	// 23:30 UTC is already the next day in Tokyo
	clock := fixedClock{now: time.Date(2025, 8, 6, 23, 30, 0, 0, time.UTC)}

	utc, err := NewTimeProvider("UTC", clock)
	require.NoError(t, err)
	assert.Equal(t, "2025-08-06", utc.Today())

	tokyo, err := NewTimeProvider("Asia/Tokyo", clock)
	require.NoError(t, err)
	assert.Equal(t, "2025-08-07", tokyo.Today())
}

func TestSystemClockAfterFunc(t *testing.T) {
	var fired atomic.Bool
	timer := SystemClock().AfterFunc(time.Millisecond, func() { fired.Store(true) })
	require.NotNil(t, timer)

	assert.Eventually(t, fired.Load, time.Second, 5*time.Millisecond)

	stopped := SystemClock().AfterFunc(time.Hour, func() { t.Error("stopped timer fired") })
	assert.True(t, stopped.Stop())
}
