package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-fullsnack/internal/util"
)

// StoredCredentials is the persisted credential state
type StoredCredentials struct {
	Token   string    `json:"token"`
	User    string    `json:"user,omitempty"`
	SavedAt time.Time `json:"saved_at"`
}

// TokenStore persists the session token
type TokenStore interface {
	// Load returns empty credentials when nothing is stored
	Load() (StoredCredentials, error)
	Save(creds StoredCredentials) error
	Clear() error
}

// FileTokenStore keeps credentials in a JSON file readable only by the owner
type FileTokenStore struct {
	mu   sync.RWMutex
	path string
}

// NewFileTokenStore creates a new FileTokenStore instance
func NewFileTokenStore(path string) (*FileTokenStore, error) {
	if path == "" {
		return nil, fmt.Errorf("credentials path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create credentials directory: %w", err)
	}
	return &FileTokenStore{path: path}, nil
}

// Path returns the credentials file path
func (s *FileTokenStore) Path() string {
	return s.path
}

// Load reads the credentials file
func (s *FileTokenStore) Load() (StoredCredentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return StoredCredentials{}, nil
		}
		return StoredCredentials{}, fmt.Errorf("failed to read credentials file %s: %w", s.path, err)
	}

	var creds StoredCredentials
	if err := sonic.Unmarshal(data, &creds); err != nil {
		return StoredCredentials{}, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}
	return creds, nil
}

// Save writes the credentials file atomically
func (s *FileTokenStore) Save(creds StoredCredentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := sonic.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	tmpFile := s.path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	if err := os.Rename(tmpFile, s.path); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename credentials file: %w", err)
	}

	util.LogDebugf("Saved credentials for %s to %s", creds.User, s.path)
	return nil
}

// Clear removes the credentials file
func (s *FileTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credentials file: %w", err)
	}
	return nil
}

// MemoryTokenStore keeps credentials in memory only
type MemoryTokenStore struct {
	mu    sync.Mutex
	creds StoredCredentials
}

// NewMemoryTokenStore creates a new MemoryTokenStore instance
func NewMemoryTokenStore(initial StoredCredentials) *MemoryTokenStore {
	return &MemoryTokenStore{creds: initial}
}

func (s *MemoryTokenStore) Load() (StoredCredentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds, nil
}

func (s *MemoryTokenStore) Save(creds StoredCredentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
	return nil
}

func (s *MemoryTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = StoredCredentials{}
	return nil
}
