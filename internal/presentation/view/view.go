// Package view holds the screens of the client. Each view that shows data
// derived from the store owns one refresh controller per aggregate and only
// renders what its controllers last accepted.
package view

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/penwyp/go-fullsnack/internal/core/cache"
	"github.com/penwyp/go-fullsnack/internal/core/events"
	"github.com/penwyp/go-fullsnack/internal/core/model"
	"github.com/penwyp/go-fullsnack/internal/core/refresh"
	"github.com/penwyp/go-fullsnack/internal/presentation/formatter"
	"github.com/penwyp/go-fullsnack/internal/util"
)

// Reader is the read side of the store used by views
type Reader interface {
	ListEntries(ctx context.Context, day string) ([]model.LogEntry, error)
	DailyTotal(ctx context.Context, date string) (int, error)
	ListWeeks(ctx context.Context) ([]model.WeeklyAggregate, error)
	ListDays(ctx context.Context, weekStart string) ([]model.DailyAggregate, error)
}

// SessionState is the part of the session gate views and the router consult
type SessionState interface {
	IsAuthenticated() bool
	User() string
}

// View is a mountable screen
type View interface {
	Name() string
	// Mount starts the view's controllers and performs the initial load.
	// A load error leaves the view mounted; it renders the error.
	Mount(ctx context.Context) error
	// Unmount stops every controller; no state update happens after it returns
	Unmount()
	Render(w io.Writer) error
}

// Deps are shared by every view
type Deps struct {
	Reader       Reader
	Events       events.Subscriber
	Attributions cache.AttributionSource
	Session      SessionState
	Refresh      refresh.Config
	Clock        util.Clock
	Location     *time.Location
	// Today returns the current calendar day as a store date key
	Today func() string
	// Invalidate is called whenever a mounted view has new state. It runs
	// under controller locks and must not block or call back into views.
	Invalidate func()
	// TableWidth caps rendered tables; 0 disables the cap
	TableWidth int
}

func (d *Deps) withDefaults() *Deps {
	out := *d
	if out.Clock == nil {
		out.Clock = util.SystemClock()
	}
	if out.Location == nil {
		out.Location = time.Local
	}
	if out.Today == nil {
		clock, loc := out.Clock, out.Location
		out.Today = func() string { return model.FormatDate(clock.Now().In(loc)) }
	}
	if out.Invalidate == nil {
		out.Invalidate = func() {}
	}
	return &out
}

func (d *Deps) table() *formatter.TableFormatter {
	return formatter.NewTableFormatter(d.TableWidth)
}

// panel binds one refresh controller to the snapshot a view renders
type panel[T any] struct {
	name  string
	deps  *Deps
	fetch refresh.FetchFunc[T]
	equal func(a, b T) bool

	mu   sync.Mutex
	ctrl *refresh.Controller[T]
	snap refresh.Snapshot[T]
}

func newPanel[T any](name string, deps *Deps, fetch refresh.FetchFunc[T]) *panel[T] {
	return &panel[T]{name: name, deps: deps, fetch: fetch}
}

func (p *panel[T]) mount(ctx context.Context) error {
	ctrl, err := refresh.NewController(refresh.Options[T]{
		Name:     p.name,
		Fetch:    p.fetch,
		Equal:    p.equal,
		OnUpdate: p.update,
		Config:   p.deps.Refresh,
		Clock:    p.deps.Clock,
	})
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.ctrl = ctrl
	p.mu.Unlock()

	ctrl.Start(p.deps.Events)
	if err := ctrl.Load(ctx); err != nil {
		util.LogWarn("Initial load failed", util.F("view", p.name), util.F("error", err.Error()))
		return err
	}
	return nil
}

// update runs under the controller lock
func (p *panel[T]) update(s refresh.Snapshot[T]) {
	p.mu.Lock()
	p.snap = s
	p.mu.Unlock()
	p.deps.Invalidate()
}

func (p *panel[T]) unmount() {
	p.mu.Lock()
	ctrl := p.ctrl
	p.ctrl = nil
	p.mu.Unlock()

	if ctrl != nil {
		ctrl.Stop()
	}
}

// reload fetches immediately when idle, otherwise folds into the running cycle
func (p *panel[T]) reload(ctx context.Context) error {
	p.mu.Lock()
	ctrl := p.ctrl
	p.mu.Unlock()

	if ctrl == nil {
		return refresh.ErrStopped
	}
	if ctrl.State() == refresh.StateIdle {
		return ctrl.Load(ctx)
	}
	ctrl.Notify()
	return nil
}

func (p *panel[T]) snapshot() refresh.Snapshot[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

func (p *panel[T]) mounted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ctrl != nil
}

// statusLine describes how current a snapshot is
func statusLine[T any](s refresh.Snapshot[T], now time.Time) string {
	switch {
	case !s.Loaded && s.LastError != nil:
		return util.FormatErrorText("could not load: " + s.LastError.Error())
	case !s.Loaded:
		return "loading…"
	case s.LastError != nil:
		return util.FormatStale("showing last known values, refresh failed: " + s.LastError.Error())
	case s.State != refresh.StateIdle:
		return util.FormatStale("updating…")
	default:
		return "updated " + util.FormatAge(s.UpdatedAt, now)
	}
}

func writeTitle(w io.Writer, title string) error {
	_, err := fmt.Fprintf(w, "%s\n", util.FormatHeaderTitle(title))
	return err
}
