package view

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/penwyp/go-fullsnack/internal/core/events"
	"github.com/penwyp/go-fullsnack/internal/core/model"
	"github.com/penwyp/go-fullsnack/internal/core/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGate(t *testing.T, ch *events.Channel, token string) *session.Gate {
	t.Helper()
	gate, err := session.NewGate(session.NewMemoryTokenStore(session.StoredCredentials{Token: token, User: "ada@example.com"}), ch)
	require.NoError(t, err)
	return gate
}

func newTestRouter(t *testing.T, token string) (*Router, *session.Gate, *testEnv) {
	t.Helper()
	env := newTestEnv(t, nil)
	gate := newGate(t, env.channel, token)
	env.deps.Session = gate

	router := NewRouter(gate, env.channel)
	require.NoError(t, Routes(router, env.deps))
	t.Cleanup(router.Close)
	return router, gate, env
}

func TestGateRedirectsThenRendersAfterAuthentication(t *testing.T) {
	router, gate, _ := newTestRouter(t, "")
	ctx := context.Background()

	require.NoError(t, router.Navigate(ctx, model.PathFoodLog))
	path, current := router.Current()
	assert.Equal(t, model.PathLogin, path)
	assert.Equal(t, "login", current.Name())
	assert.Equal(t, model.PathFoodLog, router.Pending())
	assert.Nil(t, router.Header())

	gate.SetAuthenticated(true)

	path, current = router.Current()
	assert.Equal(t, model.PathFoodLog, path)
	assert.Equal(t, "foodlog", current.Name())
	assert.Empty(t, router.Pending())
	assert.NotNil(t, router.Header())

	var buf bytes.Buffer
	require.NoError(t, router.Render(&buf))
	assert.Contains(t, buf.String(), "Food log")
	assert.Contains(t, buf.String(), "Today "+testToday)
}

func TestLogoutLeavesProtectedView(t *testing.T) {
	router, gate, env := newTestRouter(t, "tok-1")
	ctx := context.Background()

	require.NoError(t, router.Navigate(ctx, "/days/2025-08-06"))
	path, current := router.Current()
	assert.Equal(t, "/days/2025-08-06/", path)
	assert.Equal(t, "day:2025-08-06", current.Name())
	// Header plus the day view's entries and total
	assert.Equal(t, 3, env.channel.Subscribers(events.KindLogMutated))

	require.NoError(t, gate.Logout())

	path, _ = router.Current()
	assert.Equal(t, model.PathLogin, path)
	assert.Equal(t, "/days/2025-08-06/", router.Pending())
	assert.Nil(t, router.Header())
	assert.Equal(t, 0, env.channel.Subscribers(events.KindLogMutated))

	// Logging back in returns to the day
	require.NoError(t, gate.Login("tok-2", "ada@example.com"))
	path, _ = router.Current()
	assert.Equal(t, "/days/2025-08-06/", path)
}

func TestLoginWithoutPendingDestinationOpensFoodLog(t *testing.T) {
	router, gate, _ := newTestRouter(t, "")
	require.NoError(t, router.Navigate(context.Background(), model.PathLogin))

	require.NoError(t, gate.Login("tok", "ada@example.com"))
	path, _ := router.Current()
	assert.Equal(t, model.PathFoodLog, path)
}

func TestPublicViewSurvivesLogout(t *testing.T) {
	router, gate, _ := newTestRouter(t, "tok")
	require.NoError(t, router.Navigate(context.Background(), model.PathHome))
	assert.NotNil(t, router.Header())

	require.NoError(t, gate.Logout())
	path, _ := router.Current()
	assert.Equal(t, model.PathHome, path)
	assert.Nil(t, router.Header())
}

func TestNavigationDoesNotLeakSubscriptions(t *testing.T) {
	router, _, env := newTestRouter(t, "tok")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, router.Navigate(ctx, model.PathFoodLog))
		assert.Equal(t, 2, env.channel.Subscribers(events.KindLogMutated))
		require.NoError(t, router.Navigate(ctx, model.PathDashboard))
		assert.Equal(t, 2, env.channel.Subscribers(events.KindLogMutated))
		require.NoError(t, router.Navigate(ctx, "/days/2025-08-05/"))
		assert.Equal(t, 3, env.channel.Subscribers(events.KindLogMutated))
	}

	router.Close()
	assert.Equal(t, 0, env.channel.Subscribers(events.KindLogMutated))
	assert.Equal(t, 0, env.channel.Subscribers(events.KindSessionChanged))

	// Timers of unmounted views never fire a fetch
	env.channel.Publish(events.LogMutated())
	reads, _ := env.store.reads()
	env.clock.Advance(time.Second)
	after, _ := env.store.reads()
	assert.Equal(t, reads, after)
}

type recordingView struct {
	name string
	log  *[]string
}

func (v *recordingView) Name() string { return v.name }
func (v *recordingView) Mount(context.Context) error {
	*v.log = append(*v.log, "mount:"+v.name)
	return nil
}
func (v *recordingView) Unmount()                 { *v.log = append(*v.log, "unmount:"+v.name) }
func (v *recordingView) Render(w io.Writer) error { _, err := io.WriteString(w, v.name); return err }

func TestNavigateUnmountsBeforeMounting(t *testing.T) {
	ch := events.NewChannel()
	router := NewRouter(staticSession{authenticated: true}, ch)
	defer router.Close()

	var log []string
	for _, name := range []string{"a", "b"} {
		name := name
		require.NoError(t, router.Handle("/"+name+"/", false, func(map[string]string) (View, error) {
			return &recordingView{name: name, log: &log}, nil
		}))
	}

	ctx := context.Background()
	require.NoError(t, router.Navigate(ctx, "/a/"))
	require.NoError(t, router.Navigate(ctx, "b"))
	assert.Equal(t, []string{"mount:a", "unmount:a", "mount:b"}, log)

	assert.Error(t, router.Handle("/a/", false, nil))
}

func TestUnknownRoutes(t *testing.T) {
	router, _, _ := newTestRouter(t, "tok")
	ctx := context.Background()

	assert.ErrorIs(t, router.Navigate(ctx, "/nowhere/"), ErrUnknownRoute)
	assert.ErrorIs(t, router.Navigate(ctx, "/days/not-a-date/"), ErrUnknownRoute)

	path, current := router.Current()
	assert.Empty(t, path)
	assert.Nil(t, current)

	var buf bytes.Buffer
	require.NoError(t, router.Render(&buf))
	assert.Contains(t, buf.String(), "(nothing mounted)")
}
