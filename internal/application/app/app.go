// Package app wires the client together: one change channel, one session
// gate, one mutation gateway and the router that mounts views.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/penwyp/go-fullsnack/internal/core/cache"
	"github.com/penwyp/go-fullsnack/internal/core/constants"
	"github.com/penwyp/go-fullsnack/internal/core/events"
	"github.com/penwyp/go-fullsnack/internal/core/gateway"
	"github.com/penwyp/go-fullsnack/internal/core/model"
	"github.com/penwyp/go-fullsnack/internal/core/session"
	"github.com/penwyp/go-fullsnack/internal/data/api"
	"github.com/penwyp/go-fullsnack/internal/presentation/formatter"
	"github.com/penwyp/go-fullsnack/internal/presentation/view"
	"github.com/penwyp/go-fullsnack/internal/util"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Option customizes App construction
type Option func(*options)

type options struct {
	clock      util.Clock
	tokens     session.TokenStore
	httpClient *http.Client
	tableWidth int
}

// WithClock replaces the clock driving refresh timers
func WithClock(clock util.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithTokenStore replaces the credential file
func WithTokenStore(store session.TokenStore) Option {
	return func(o *options) { o.tokens = store }
}

// WithHTTPClient replaces the HTTP client used for the store
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithTableWidth caps rendered tables; 0 disables the cap
func WithTableWidth(width int) Option {
	return func(o *options) { o.tableWidth = width }
}

// App owns every long-lived component of the client
type App struct {
	config *AppConfig
	clock  util.Clock
	time   *util.TimeProvider

	channel      *events.Channel
	gate         *session.Gate
	watcher      *session.CredentialWatcher
	client       *api.Client
	gateway      *gateway.Gateway
	attributions *cache.AttributionCache
	nutrition    *cache.QueryCache[model.NutritionItem]
	photos       *cache.QueryCache[[]model.PhotoResult]
	router       *view.Router
	invalidate   chan struct{}
}

// New creates a new App instance
func New(config *AppConfig, opts ...Option) (*App, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := options{clock: util.SystemClock(), tableWidth: formatter.TerminalWidth()}
	for _, opt := range opts {
		opt(&o)
	}

	timeProvider, err := util.NewTimeProvider(config.Timezone, o.clock)
	if err != nil {
		return nil, err
	}

	a := &App{
		config:       config,
		clock:        o.clock,
		time:         timeProvider,
		channel:      events.NewChannel(),
		attributions: cache.NewAttributionCache(),
		nutrition:    cache.NewQueryCache[model.NutritionItem]("nutrition", config.QueryCacheTTL, constants.QueryCacheCapacity),
		photos:       cache.NewQueryCache[[]model.PhotoResult]("photos", config.QueryCacheTTL, constants.QueryCacheCapacity),
		invalidate:   make(chan struct{}, 1),
	}

	fileStore := o.tokens == nil
	if fileStore {
		store, err := session.NewFileTokenStore(config.CredentialsPath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open credentials: %w", err)
		}
		o.tokens = store
	}

	if a.gate, err = session.NewGate(o.tokens, a.channel); err != nil {
		a.Close()
		return nil, err
	}

	if fileStore && *config.WatchCredentials {
		if a.watcher, err = session.NewCredentialWatcher(config.CredentialsPath, a.gate); err != nil {
			util.LogWarn("Credential watcher unavailable", util.F("error", err.Error()))
		}
	}

	clientOpts := []api.Option{}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, api.WithHTTPClient(o.httpClient))
	}
	clientOpts = append(clientOpts, api.WithTimeout(config.HTTPTimeout))
	if a.client, err = api.NewClient(config.BaseURL, a.gate, clientOpts...); err != nil {
		a.Close()
		return nil, err
	}

	a.gateway = gateway.New(a.client, a.channel, a.attributions)

	a.router = view.NewRouter(a.gate, a.channel)
	deps := &view.Deps{
		Reader:       a.client,
		Events:       a.channel,
		Attributions: a.attributions,
		Session:      a.gate,
		Refresh:      config.RefreshConfig(),
		Clock:        a.clock,
		Location:     timeProvider.Location(),
		Today:        timeProvider.Today,
		Invalidate:   a.signal,
		TableWidth:   o.tableWidth,
	}
	if err := view.Routes(a.router, deps); err != nil {
		a.Close()
		return nil, err
	}

	util.LogInfo("Client ready",
		util.F("base_url", a.client.BaseURL()),
		util.F("authenticated", a.gate.IsAuthenticated()))
	return a, nil
}

// signal marks the screen dirty without blocking
func (a *App) signal() {
	select {
	case a.invalidate <- struct{}{}:
	default:
	}
}

// Invalidations delivers a value whenever a mounted view has new state.
// Bursts collapse into one pending value.
func (a *App) Invalidations() <-chan struct{} { return a.invalidate }

func (a *App) Config() *AppConfig                    { return a.config }
func (a *App) Gate() *session.Gate                   { return a.gate }
func (a *App) Client() *api.Client                   { return a.client }
func (a *App) Gateway() *gateway.Gateway             { return a.gateway }
func (a *App) Router() *view.Router                  { return a.router }
func (a *App) Events() *events.Channel               { return a.channel }
func (a *App) Attributions() *cache.AttributionCache { return a.attributions }
func (a *App) Today() string                         { return a.time.Today() }
func (a *App) TimeProvider() *util.TimeProvider      { return a.time }

// Login exchanges credentials for a token and starts the session
func (a *App) Login(ctx context.Context, email, password string) (model.User, error) {
	resp, err := a.client.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return model.User{}, err
	}
	if err := a.gate.Login(resp.Token, resp.User.Email); err != nil {
		return model.User{}, err
	}
	return resp.User, nil
}

// Signup creates an account and starts the session
func (a *App) Signup(ctx context.Context, creds model.Credentials) (model.User, error) {
	resp, err := a.client.Signup(ctx, creds)
	if err != nil {
		return model.User{}, err
	}
	if err := a.gate.Login(resp.Token, resp.User.Email); err != nil {
		return model.User{}, err
	}
	return resp.User, nil
}

// Logout revokes the token on the store when possible, then ends the local
// session. The local session ends even if the store cannot be reached.
func (a *App) Logout(ctx context.Context) error {
	if a.gate.Token() != "" {
		if err := a.client.Logout(ctx); err != nil && !errors.Is(err, api.ErrUnauthorized) {
			util.LogWarn("Failed to revoke token on the store", util.F("error", err.Error()))
		}
	}
	return a.gate.Logout()
}

// LookupNutrition resolves a free-text food description, caching results
func (a *App) LookupNutrition(ctx context.Context, query string) (model.NutritionItem, error) {
	if strings.TrimSpace(query) == "" {
		return model.NutritionItem{}, fmt.Errorf("%w: empty food description", model.ErrInvalidEntry)
	}
	item, err := a.nutrition.GetOrLoad(ctx, query, a.client.LookupNutrition)
	if err != nil {
		return model.NutritionItem{}, err
	}
	item.Name = TitleFood(item.Name)
	return item, nil
}

// AddFood looks up a food and logs it
func (a *App) AddFood(ctx context.Context, query string) (model.LogEntry, error) {
	item, err := a.LookupNutrition(ctx, query)
	if err != nil {
		return model.LogEntry{}, err
	}
	return a.gateway.Create(ctx, item.ToEntry())
}

// SearchPhotos returns candidate images for a query, caching results
func (a *App) SearchPhotos(ctx context.Context, query string) ([]model.PhotoResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty photo query", model.ErrInvalidEntry)
	}
	return a.photos.GetOrLoad(ctx, query, a.client.SearchPhotos)
}

// TitleFood title-cases a food name for display
func TitleFood(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	return cases.Title(language.English).String(strings.ToLower(name))
}

// Close releases every component. It is safe to call on a partially built App.
func (a *App) Close() {
	if a.router != nil {
		a.router.Close()
	}
	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			util.LogWarn("Failed to close credential watcher", util.F("error", err.Error()))
		}
	}
	a.nutrition.Close()
	a.photos.Close()
	a.channel.Close()
}
