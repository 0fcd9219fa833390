package constants

import "time"

const (
	// Aggregate refresh timings
	RefreshDebounce   = 150 * time.Millisecond
	RefreshRetryDelay = 250 * time.Millisecond
	MaxRefreshRetries = 3

	// Query cache for photo search and nutrition lookup
	QueryCacheTTL      = 5 * time.Minute
	QueryCacheCapacity = 256

	// Store client
	HTTPTimeout = 10 * time.Second

	// Credential watcher settles bursts of writes from another process
	CredentialWatchDebounce = 100 * time.Millisecond
)
