package view

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"github.com/penwyp/go-fullsnack/internal/core/events"
	"github.com/penwyp/go-fullsnack/internal/core/model"
	"github.com/penwyp/go-fullsnack/internal/util"
)

// ErrUnknownRoute is returned when no route matches a path
var ErrUnknownRoute = errors.New("unknown route")

// Factory builds a view from the path variables of its route
type Factory func(vars map[string]string) (View, error)

type route struct {
	pattern   string
	protected bool
	factory   Factory
}

// Router mounts one view at a time. Protected routes consult the session
// before mounting; a denied navigation remembers its destination and shows
// the login view instead.
type Router struct {
	session SessionState
	matcher *mux.Router

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	routes      map[string]route
	current     View
	currentPath string
	protected   bool
	pending     string
	header      View
	newHeader   func() View
	unsubscribe func()
	closed      bool
}

// NewRouter creates a router that follows session changes published on sub
func NewRouter(session SessionState, sub events.Subscriber) *Router {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Router{
		session: session,
		matcher: mux.NewRouter(),
		ctx:     ctx,
		cancel:  cancel,
		routes:  make(map[string]route),
	}
	if sub != nil {
		r.unsubscribe = sub.Subscribe(events.KindSessionChanged, r.onSessionChanged)
	}
	return r
}

// Handle registers a route. Patterns use {name} or {name:regexp} variables and end with "/".
func (r *Router) Handle(pattern string, protected bool, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.routes[pattern]; exists {
		return fmt.Errorf("route %s already registered", pattern)
	}
	if err := r.matcher.Path(pattern).Name(pattern).GetError(); err != nil {
		return fmt.Errorf("invalid route %s: %w", pattern, err)
	}
	r.routes[pattern] = route{pattern: pattern, protected: protected, factory: factory}
	return nil
}

// SetHeader installs a view mounted above every route while the session is authenticated
func (r *Router) SetHeader(factory func() View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.newHeader = factory
}

func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	return path
}

func (r *Router) match(path string) (route, map[string]string, bool) {
	req := &http.Request{Method: http.MethodGet, URL: &url.URL{Path: path}}
	var m mux.RouteMatch
	if !r.matcher.Match(req, &m) || m.Route == nil {
		return route{}, nil, false
	}
	rt, ok := r.routes[m.Route.GetName()]
	return rt, m.Vars, ok
}

// Navigate unmounts the current view and mounts the one routed at path
func (r *Router) Navigate(ctx context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.New("router closed")
	}
	return r.navigateLocked(ctx, path)
}

func (r *Router) navigateLocked(ctx context.Context, path string) error {
	path = normalizePath(path)
	rt, vars, ok := r.match(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRoute, path)
	}

	authenticated := r.session.IsAuthenticated()
	if rt.protected && !authenticated {
		util.LogInfo("Not authenticated, redirecting to login", util.F("destination", path))
		r.pending = path
		path = model.PathLogin
		if rt, vars, ok = r.match(path); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownRoute, path)
		}
	}

	next, err := rt.factory(vars)
	if err != nil {
		return err
	}

	r.syncHeaderLocked(ctx, authenticated)
	r.unmountLocked()

	r.current = next
	r.currentPath = path
	r.protected = rt.protected
	util.LogDebugf("Router: mounting %s at %s", next.Name(), path)

	if err := next.Mount(ctx); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func (r *Router) unmountLocked() {
	if r.current == nil {
		return
	}
	util.LogDebugf("Router: unmounting %s", r.current.Name())
	r.current.Unmount()
	r.current = nil
	r.currentPath = ""
	r.protected = false
}

func (r *Router) syncHeaderLocked(ctx context.Context, authenticated bool) {
	switch {
	case authenticated && r.header == nil && r.newHeader != nil:
		r.header = r.newHeader()
		if err := r.header.Mount(ctx); err != nil {
			util.LogWarn("Header load failed", util.F("error", err.Error()))
		}
	case !authenticated && r.header != nil:
		r.header.Unmount()
		r.header = nil
	}
}

// onSessionChanged leaves protected views when the session ends and returns
// to the remembered destination when it begins
func (r *Router) onSessionChanged(events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	authenticated := r.session.IsAuthenticated()
	r.syncHeaderLocked(r.ctx, authenticated)

	var err error
	switch {
	case !authenticated && r.protected:
		r.pending = r.currentPath
		err = r.navigateLocked(r.ctx, model.PathLogin)
	case authenticated && (r.currentPath == model.PathLogin || r.currentPath == model.PathSignup):
		dest := r.pending
		if dest == "" {
			dest = model.PathFoodLog
		}
		r.pending = ""
		err = r.navigateLocked(r.ctx, dest)
	}
	if err != nil {
		util.LogWarn("Navigation after session change failed", util.F("error", err.Error()))
	}
}

// Current returns the mounted view and its path
func (r *Router) Current() (string, View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentPath, r.current
}

// Pending returns the destination remembered by the last denied navigation
func (r *Router) Pending() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending
}

// Header returns the mounted header view, if any
func (r *Router) Header() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.header
}

// Render writes the header and the current view
func (r *Router) Render(w io.Writer) error {
	r.mu.Lock()
	header, current := r.header, r.current
	r.mu.Unlock()

	if header != nil {
		if err := header.Render(w); err != nil {
			return err
		}
	}
	if current == nil {
		_, err := fmt.Fprintln(w, "(nothing mounted)")
		return err
	}
	return current.Render(w)
}

// Close unmounts everything and stops following session changes
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	r.cancel()
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
	r.unmountLocked()
	if r.header != nil {
		r.header.Unmount()
		r.header = nil
	}
}

// Routes registers the standard routes of the client
func Routes(r *Router, deps *Deps) error {
	static := func(build func(*Deps) View) Factory {
		return func(map[string]string) (View, error) { return build(deps), nil }
	}
	table := []struct {
		pattern   string
		protected bool
		factory   Factory
	}{
		{model.PathHome, false, static(NewHome)},
		{model.PathLogin, false, static(NewLogin)},
		{model.PathSignup, false, static(NewSignup)},
		{model.PathFoodLog, true, func(map[string]string) (View, error) { return NewFoodLog(deps), nil }},
		{model.PathDashboard, true, func(map[string]string) (View, error) { return NewDashboard(deps), nil }},
		{model.PathDayPrefix + `{date:\d{4}-\d{2}-\d{2}}/`, true, func(vars map[string]string) (View, error) {
			return NewDayView(deps, vars["date"])
		}},
	}
	for _, rt := range table {
		if err := r.Handle(rt.pattern, rt.protected, rt.factory); err != nil {
			return err
		}
	}
	r.SetHeader(func() View { return NewTodayBar(deps) })
	return nil
}
