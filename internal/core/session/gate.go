// Package session holds the process-wide authentication state and its
// persisted token.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/penwyp/go-fullsnack/internal/core/events"
	"github.com/penwyp/go-fullsnack/internal/util"
)

// ErrNotAuthenticated is returned when an operation needs a session token
var ErrNotAuthenticated = errors.New("not authenticated")

// Gate is the session state. Transitions are unauthenticated -> authenticated
// -> unauthenticated; each transition publishes KindSessionChanged.
type Gate struct {
	store     TokenStore
	publisher events.Publisher

	mu            sync.RWMutex
	authenticated bool
	token         string
	user          string
}

// NewGate creates a new Gate instance initialized from the persisted token
func NewGate(store TokenStore, publisher events.Publisher) (*Gate, error) {
	if store == nil {
		return nil, fmt.Errorf("token store is required")
	}
	g := &Gate{store: store, publisher: publisher}

	creds, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	g.token = creds.Token
	g.user = creds.User
	g.authenticated = creds.Token != ""
	return g, nil
}

// IsAuthenticated reports whether protected views may be entered
func (g *Gate) IsAuthenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.authenticated
}

// Token returns the session token, empty when signed out
func (g *Gate) Token() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.token
}

// User returns the signed-in user's email
func (g *Gate) User() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.user
}

// SetAuthenticated forces the flag. Setting false clears the persisted token
// before the flag changes.
func (g *Gate) SetAuthenticated(authenticated bool) {
	if !authenticated {
		if err := g.Logout(); err != nil {
			util.LogError("Failed to clear credentials", util.F("error", err.Error()))
		}
		return
	}
	g.transition(func() {
		g.authenticated = true
	})
}

// Login persists token and marks the session authenticated
func (g *Gate) Login(token, user string) error {
	if token == "" {
		return fmt.Errorf("login returned an empty token")
	}
	if err := g.store.Save(StoredCredentials{Token: token, User: user, SavedAt: time.Now()}); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	g.transition(func() {
		g.token = token
		g.user = user
		g.authenticated = true
	})
	util.LogInfo("Session started", util.F("user", user))
	return nil
}

// Logout clears the persisted token, then forces the flag false. The flag is
// cleared even when the store fails.
func (g *Gate) Logout() error {
	err := g.store.Clear()
	g.transition(func() {
		g.token = ""
		g.user = ""
		g.authenticated = false
	})
	if err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	util.LogInfo("Session ended")
	return nil
}

// Reload re-reads the persisted token, picking up logins and logouts made by
// another process
func (g *Gate) Reload() error {
	creds, err := g.store.Load()
	if err != nil {
		return fmt.Errorf("failed to reload credentials: %w", err)
	}
	g.transition(func() {
		g.token = creds.Token
		g.user = creds.User
		g.authenticated = creds.Token != ""
	})
	return nil
}

// transition applies change and publishes when the flag or token changed.
// Publishing happens after the lock is released so handlers may query the gate.
func (g *Gate) transition(change func()) {
	g.mu.Lock()
	wasAuthenticated, oldToken := g.authenticated, g.token
	change()
	changed := wasAuthenticated != g.authenticated || oldToken != g.token
	now := g.authenticated
	g.mu.Unlock()

	if changed && g.publisher != nil {
		util.LogDebugf("Session changed: authenticated=%v", now)
		g.publisher.Publish(events.SessionChanged())
	}
}
