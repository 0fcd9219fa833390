// Package refresh keeps a view's derived aggregate in step with the backing store.
//
// A Controller reacts to change notifications with a debounce, then fetches the
// aggregate. If the fetched value equals the value displayed before the mutation,
// the store is assumed not to have caught up yet and the fetch is retried after a
// fixed delay, at most MaxRetries times, before the value is accepted as final.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/penwyp/go-fullsnack/internal/core/constants"
	"github.com/penwyp/go-fullsnack/internal/core/events"
	"github.com/penwyp/go-fullsnack/internal/util"
)

// ErrStopped is returned by Load once the controller has been stopped
var ErrStopped = errors.New("refresh controller stopped")

// State is the controller state
type State int

const (
	StateIdle State = iota
	StateDebouncing
	StateFetching
	StateRetryWaiting
	StateStopped
)

// String returns the state name used in logs
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDebouncing:
		return "debouncing"
	case StateFetching:
		return "fetching"
	case StateRetryWaiting:
		return "retry_waiting"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config holds refresh timings
type Config struct {
	Debounce   time.Duration
	RetryDelay time.Duration
	MaxRetries int
}

// DefaultConfig returns the default refresh timings
func DefaultConfig() Config {
	return Config{
		Debounce:   constants.RefreshDebounce,
		RetryDelay: constants.RefreshRetryDelay,
		MaxRetries: constants.MaxRefreshRetries,
	}
}

// Validate fills zero values with defaults
func (c *Config) Validate() error {
	if c.Debounce < 0 || c.RetryDelay < 0 || c.MaxRetries < 0 {
		return fmt.Errorf("refresh timings must be non-negative: %+v", *c)
	}
	defaults := DefaultConfig()
	if c.Debounce == 0 {
		c.Debounce = defaults.Debounce
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = defaults.RetryDelay
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaults.MaxRetries
	}
	return nil
}

// FetchFunc fetches the aggregate from the backing store
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Options configures a Controller
type Options[T any] struct {
	// Name labels log lines
	Name string
	// Fetch is required
	Fetch FetchFunc[T]
	// Equal decides "no visible change"; defaults to reflect.DeepEqual
	Equal func(a, b T) bool
	// OnUpdate is called with each accepted value while the controller lock is
	// held. It must not call back into the controller.
	OnUpdate func(Snapshot[T])
	Config   Config
	Clock    util.Clock
}

// Snapshot is what a view may display
type Snapshot[T any] struct {
	Value     T
	Loaded    bool
	Stale     bool
	State     State
	LastError error
	UpdatedAt time.Time
	Fetches   int
}

// Controller is a per-view refresh state machine
type Controller[T any] struct {
	id       string
	name     string
	fetch    FetchFunc[T]
	equal    func(a, b T) bool
	onUpdate func(Snapshot[T])
	config   Config
	clock    util.Clock

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	state       State
	generation  uint64
	timer       util.Timer
	retries     int
	pending     bool // change notification received while fetching
	baseline    T
	hasBaseline bool
	value       T
	loaded      bool
	lastErr     error
	updatedAt   time.Time
	fetches     int
	unsubscribe func()
}

// NewController creates a new Controller instance
func NewController[T any](opts Options[T]) (*Controller[T], error) {
	if opts.Fetch == nil {
		return nil, fmt.Errorf("refresh controller %q: fetch function is required", opts.Name)
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.Equal == nil {
		opts.Equal = func(a, b T) bool { return reflect.DeepEqual(a, b) }
	}
	if opts.Clock == nil {
		opts.Clock = util.SystemClock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller[T]{
		id:       uuid.NewString()[:8],
		name:     opts.Name,
		fetch:    opts.Fetch,
		equal:    opts.Equal,
		onUpdate: opts.OnUpdate,
		config:   opts.Config,
		clock:    opts.Clock,
		ctx:      ctx,
		cancel:   cancel,
		state:    StateIdle,
	}, nil
}

// Start subscribes the controller to log mutations on sub
func (c *Controller[T]) Start(sub events.Subscriber) {
	unsubscribe := sub.Subscribe(events.KindLogMutated, func(events.Event) { c.Notify() })

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateStopped {
		unsubscribe()
		return
	}
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	c.unsubscribe = unsubscribe
}

// Load performs the initial fetch synchronously. No retry is attempted
// because there is no pre-mutation value to compare against.
func (c *Controller[T]) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateStopped {
		c.mu.Unlock()
		return ErrStopped
	}
	if c.state != StateIdle {
		c.mu.Unlock()
		return nil
	}
	c.stopTimerLocked()
	c.generation++
	gen := c.generation
	c.state = StateFetching
	c.hasBaseline = false
	c.retries = 0
	c.mu.Unlock()

	return c.runFetch(ctx, gen)
}

// Notify handles a change notification
func (c *Controller[T]) Notify() {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateIdle:
		c.baseline = c.value
		c.hasBaseline = c.loaded
		c.startDebounceLocked()
	case StateDebouncing:
		c.startDebounceLocked()
	case StateFetching:
		c.pending = true
	case StateRetryWaiting:
		c.startDebounceLocked()
	case StateStopped:
	}
	c.notifyLocked()
}

// startDebounceLocked (re)arms the debounce timer; mu must be held
func (c *Controller[T]) startDebounceLocked() {
	c.stopTimerLocked()
	c.generation++
	gen := c.generation
	c.state = StateDebouncing
	c.timer = c.clock.AfterFunc(c.config.Debounce, func() { c.onTimer(gen, true) })
}

func (c *Controller[T]) scheduleRetryLocked() {
	c.stopTimerLocked()
	c.generation++
	gen := c.generation
	c.state = StateRetryWaiting
	c.timer = c.clock.AfterFunc(c.config.RetryDelay, func() { c.onTimer(gen, false) })
}

func (c *Controller[T]) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// onTimer runs when a debounce or retry timer expires. Timers from an older
// generation are ignored so a late callback never acts on a superseded cycle.
func (c *Controller[T]) onTimer(gen uint64, debounce bool) {
	c.mu.Lock()
	if c.state == StateStopped || gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.state = StateFetching
	if debounce {
		c.retries = 0
	}
	c.mu.Unlock()

	_ = c.runFetch(c.ctx, gen)
}

// runFetch issues one fetch and applies the state transition for its outcome
func (c *Controller[T]) runFetch(ctx context.Context, gen uint64) error {
	fetchCtx, cancel := mergeCancel(ctx, c.ctx)
	defer cancel()

	value, err := c.fetch(fetchCtx)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fetches++
	if c.state == StateStopped || gen != c.generation {
		return ErrStopped
	}

	if err != nil {
		util.LogWarn("Refresh failed, keeping last value",
			util.F("controller", c.name), util.F("id", c.id), util.F("error", err.Error()))
		c.lastErr = err
		c.finishLocked()
		return err
	}

	if c.pending {
		util.LogDebugf("Refresh %s: change arrived during fetch, debouncing again", c.name)
		c.pending = false
		if !c.hasBaseline {
			// The load result is displayed and becomes the baseline of the next read
			c.applyLocked(value)
			c.baseline = value
			c.hasBaseline = true
		}
		c.startDebounceLocked()
		c.notifyLocked()
		return nil
	}

	if c.hasBaseline && c.equal(value, c.baseline) && c.retries < c.config.MaxRetries {
		c.retries++
		util.LogDebugf("Refresh %s: no visible change, retry %d/%d in %s",
			c.name, c.retries, c.config.MaxRetries, c.config.RetryDelay)
		c.scheduleRetryLocked()
		c.notifyLocked()
		return nil
	}

	if c.hasBaseline && c.equal(value, c.baseline) {
		util.LogInfo("Refresh accepted unchanged value after max retries",
			util.F("controller", c.name), util.F("retries", c.retries))
	}

	c.applyLocked(value)
	c.finishLocked()
	return nil
}

func (c *Controller[T]) applyLocked(value T) {
	c.value = value
	c.loaded = true
	c.lastErr = nil
	c.updatedAt = c.clock.Now()
}

// finishLocked returns to Idle, or to Debouncing if a notification is pending
func (c *Controller[T]) finishLocked() {
	c.hasBaseline = false
	if c.pending {
		c.pending = false
		c.baseline = c.value
		c.hasBaseline = c.loaded
		c.startDebounceLocked()
	} else {
		c.state = StateIdle
	}
	c.notifyLocked()
}

func (c *Controller[T]) notifyLocked() {
	if c.onUpdate != nil && c.state != StateStopped {
		c.onUpdate(c.snapshotLocked())
	}
}

// Snapshot returns the current view state
func (c *Controller[T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller[T]) snapshotLocked() Snapshot[T] {
	return Snapshot[T]{
		Value:     c.value,
		Loaded:    c.loaded,
		Stale:     c.state != StateIdle || c.lastErr != nil,
		State:     c.state,
		LastError: c.lastErr,
		UpdatedAt: c.updatedAt,
		Fetches:   c.fetches,
	}
}

// State returns the current state
func (c *Controller[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stop cancels pending timers and any in-flight fetch and detaches from the
// channel. After Stop returns OnUpdate is never called again.
func (c *Controller[T]) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateStopped {
		return
	}
	c.stopTimerLocked()
	c.generation++
	c.state = StateStopped
	c.cancel()
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	util.LogDebugf("Refresh %s (%s) stopped", c.name, c.id)
}

// mergeCancel returns a context cancelled when either parent is done
func mergeCancel(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
