package session

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/penwyp/go-fullsnack/internal/core/constants"
	"github.com/penwyp/go-fullsnack/internal/util"
)

// Reloader is satisfied by Gate
type Reloader interface {
	Reload() error
}

// CredentialWatcher reloads the gate when the credentials file is written or
// removed by another process. The parent directory is watched because the
// file is replaced by rename.
type CredentialWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	target   Reloader
	debounce time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
	done   chan struct{}
}

// NewCredentialWatcher creates a new CredentialWatcher instance
func NewCredentialWatcher(path string, target Reloader) (*CredentialWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	cw := &CredentialWatcher{
		watcher:  watcher,
		path:     filepath.Clean(path),
		target:   target,
		debounce: constants.CredentialWatchDebounce,
		done:     make(chan struct{}),
	}

	if err := watcher.Add(filepath.Dir(cw.path)); err != nil {
		watcher.Close()
		return nil, err
	}

	go cw.processEvents()
	return cw, nil
}

func (cw *CredentialWatcher) processEvents() {
	defer close(cw.done)
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			// Only the credentials file itself
			if filepath.Clean(event.Name) != cw.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			cw.scheduleReload()

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			util.LogError("Credential watch error: " + err.Error())
		}
	}
}

func (cw *CredentialWatcher) scheduleReload() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.closed {
		return
	}
	if cw.timer != nil {
		cw.timer.Stop()
	}
	cw.timer = time.AfterFunc(cw.debounce, func() {
		cw.mu.Lock()
		closed := cw.closed
		cw.mu.Unlock()
		if closed {
			return
		}
		if err := cw.target.Reload(); err != nil {
			util.LogWarn("Failed to reload credentials", util.F("error", err.Error()))
		}
	})
}

// Close stops watching
func (cw *CredentialWatcher) Close() error {
	cw.mu.Lock()
	if cw.closed {
		cw.mu.Unlock()
		return nil
	}
	cw.closed = true
	if cw.timer != nil {
		cw.timer.Stop()
	}
	cw.mu.Unlock()

	err := cw.watcher.Close()
	<-cw.done
	return err
}
