package app

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/penwyp/go-fullsnack/internal/core/model"
	"github.com/penwyp/go-fullsnack/internal/core/session"
	"github.com/penwyp/go-fullsnack/internal/data/devstore"
	"github.com/penwyp/go-fullsnack/internal/presentation/view"
	"github.com/penwyp/go-fullsnack/internal/testing/fakeclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testStart = time.Date(2025, 8, 6, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	app    *App
	store  *devstore.Store
	clock  *fakeclock.Clock
	tokens *session.MemoryTokenStore
}

func newTestApp(t *testing.T, readLag int) *testEnv {
	t.Helper()
	clock := fakeclock.New(testStart)

	store, err := devstore.Open(devstore.Options{ReadLag: readLag, Now: clock.Now, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	server := httptest.NewServer(devstore.NewServer(store).Handler())
	t.Cleanup(server.Close)

	tokens := session.NewMemoryTokenStore(session.StoredCredentials{})
	a, err := New(&AppConfig{BaseURL: server.URL + devstore.APIPrefix, Timezone: "UTC"},
		WithClock(clock), WithTokenStore(tokens), WithTableWidth(0))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	return &testEnv{app: a, store: store, clock: clock, tokens: tokens}
}

func (env *testEnv) signup(t *testing.T) {
	t.Helper()
	_, err := env.app.Signup(context.Background(), model.Credentials{Email: "ada@example.com", Password: "hunter22", FirstName: "Ada"})
	require.NoError(t, err)
}

func TestStaleFirstReadEndToEnd(t *testing.T) {
	env := newTestApp(t, 1)
	ctx := context.Background()
	env.signup(t)

	require.NoError(t, env.app.Router().Navigate(ctx, model.PathFoodLog))
	bar, ok := env.app.Router().Header().(*view.TodayBar)
	require.True(t, ok)
	total, loaded := bar.Total()
	require.True(t, loaded)
	assert.Equal(t, 0, total)

	entry, err := env.app.AddFood(ctx, "  OATMEAL ")
	require.NoError(t, err)
	assert.Equal(t, "Oatmeal", entry.FoodName)
	assert.Equal(t, 300, entry.Calories)

	// The first read after the write still sees the old total
	env.clock.Advance(150 * time.Millisecond)
	total, _ = bar.Total()
	assert.Equal(t, 0, total)

	_, current := env.app.Router().Current()
	entries, _ := current.(*view.FoodLog).Entries()
	require.Len(t, entries, 1)

	// The retry sees it
	env.clock.Advance(250 * time.Millisecond)
	total, _ = bar.Total()
	assert.Equal(t, 300, total)

	select {
	case <-env.app.Invalidations():
	default:
		t.Fatal("expected a pending invalidation")
	}
}

func TestSignupPersistsTokenAndLogoutRevokesIt(t *testing.T) {
	env := newTestApp(t, 0)
	ctx := context.Background()
	env.signup(t)

	creds, err := env.tokens.Load()
	require.NoError(t, err)
	require.NotEmpty(t, creds.Token)
	assert.Equal(t, "ada@example.com", creds.User)
	assert.True(t, env.app.Gate().IsAuthenticated())

	require.NoError(t, env.app.Router().Navigate(ctx, model.PathDashboard))
	require.NoError(t, env.app.Logout(ctx))

	assert.False(t, env.app.Gate().IsAuthenticated())
	path, _ := env.app.Router().Current()
	assert.Equal(t, model.PathLogin, path)
	assert.Equal(t, model.PathDashboard, env.app.Router().Pending())

	_, err = env.store.UserForToken(ctx, creds.Token)
	assert.Error(t, err)

	cleared, err := env.tokens.Load()
	require.NoError(t, err)
	assert.Empty(t, cleared.Token)

	// Logging in returns to the dashboard
	_, err = env.app.Login(ctx, "ada@example.com", "hunter22")
	require.NoError(t, err)
	path, _ = env.app.Router().Current()
	assert.Equal(t, model.PathDashboard, path)
}

func TestLookupNutritionIsCached(t *testing.T) {
	env := newTestApp(t, 0)
	ctx := context.Background()
	env.signup(t)

	item, err := env.app.LookupNutrition(ctx, "Oatmeal")
	require.NoError(t, err)
	assert.Equal(t, "Oatmeal", item.Name)
	assert.Equal(t, 1, env.app.nutrition.Len())

	_, err = env.app.LookupNutrition(ctx, "  oatmeal")
	require.NoError(t, err)
	assert.Equal(t, 1, env.app.nutrition.Len())

	_, err = env.app.LookupNutrition(ctx, "  ")
	assert.ErrorIs(t, err, model.ErrInvalidEntry)
}

func TestSetImageCachesCredit(t *testing.T) {
	env := newTestApp(t, 0)
	ctx := context.Background()
	env.signup(t)

	entry, err := env.app.AddFood(ctx, "banana")
	require.NoError(t, err)

	photos, err := env.app.SearchPhotos(ctx, "banana")
	require.NoError(t, err)
	require.NotEmpty(t, photos)

	result, err := env.app.Gateway().SetImage(ctx, entry.ID, "banana")
	require.NoError(t, err)

	cached, ok := env.app.Attributions().Get(entry.ID)
	require.True(t, ok)
	assert.Equal(t, result.Credit.Name, cached.Name)
	assert.NotEmpty(t, cached.Name)
}

func TestTitleFood(t *testing.T) {
	assert.Equal(t, "Chicken Salad", TitleFood("  chicken   SALAD "))
	assert.Equal(t, "Oatmeal", TitleFood("oatmeal"))
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(&AppConfig{BaseURL: "not a url"}, WithTokenStore(session.NewMemoryTokenStore(session.StoredCredentials{})))
	assert.Error(t, err)
}
