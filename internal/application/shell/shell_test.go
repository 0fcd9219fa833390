package shell

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/penwyp/go-fullsnack/internal/application/app"
	"github.com/penwyp/go-fullsnack/internal/core/model"
	"github.com/penwyp/go-fullsnack/internal/core/session"
	"github.com/penwyp/go-fullsnack/internal/data/devstore"
	"github.com/penwyp/go-fullsnack/internal/presentation/view"
	"github.com/penwyp/go-fullsnack/internal/testing/fakeclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testShell struct {
	shell *Shell
	app   *app.App
	clock *fakeclock.Clock
	out   *bytes.Buffer
}

func newTestShell(t *testing.T, readLag int, input string) *testShell {
	t.Helper()
	clock := fakeclock.New(time.Date(2025, 8, 6, 12, 0, 0, 0, time.UTC))

	store, err := devstore.Open(devstore.Options{ReadLag: readLag, Now: clock.Now, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	server := httptest.NewServer(devstore.NewServer(store).Handler())
	t.Cleanup(server.Close)

	a, err := app.New(&app.AppConfig{BaseURL: server.URL + devstore.APIPrefix, Timezone: "UTC"},
		app.WithClock(clock),
		app.WithTokenStore(session.NewMemoryTokenStore(session.StoredCredentials{})),
		app.WithTableWidth(0))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	out := &bytes.Buffer{}
	sh := New(a, strings.NewReader(input), out,
		WithPasswordFunc(func(string) (string, error) { return "hunter22", nil }))
	require.NoError(t, sh.Start(context.Background()))
	return &testShell{shell: sh, app: a, clock: clock, out: out}
}

func (ts *testShell) exec(t *testing.T, line string) {
	t.Helper()
	quit, err := ts.shell.Exec(context.Background(), line)
	require.NoError(t, err, line)
	require.False(t, quit)
}

func (ts *testShell) render(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, ts.app.Router().Render(&buf))
	return buf.String()
}

func TestShellLogsFoodAndRefreshesTotal(t *testing.T) {
	ts := newTestShell(t, 1, "")
	ts.exec(t, "signup ada@example.com Ada")
	assert.Contains(t, ts.out.String(), "Welcome, Ada")

	ts.exec(t, "log")
	path, _ := ts.app.Router().Current()
	assert.Equal(t, model.PathFoodLog, path)

	ts.exec(t, "add oatmeal")
	assert.Contains(t, ts.out.String(), "Logged #1 Oatmeal, 300 kcal")

	ts.clock.Advance(150 * time.Millisecond)
	assert.Contains(t, ts.render(t), "Today 2025-08-06: 0 kcal")

	ts.clock.Advance(250 * time.Millisecond)
	frame := ts.render(t)
	assert.Contains(t, frame, "Today 2025-08-06: 300 kcal")
	assert.Contains(t, frame, "Oatmeal")
}

func TestShellEditCommands(t *testing.T) {
	ts := newTestShell(t, 0, "")
	ts.exec(t, "signup ada@example.com")
	ts.exec(t, "log")
	ts.exec(t, `new "Greek Yogurt" 100 17 6 1`)
	ts.exec(t, "new Toast 120")
	ts.exec(t, "update 2 cal=150 name='Rye Toast'")
	assert.Contains(t, ts.out.String(), "Updated #2 Rye Toast, 150 kcal")

	ts.exec(t, "rm 1")
	assert.Contains(t, ts.out.String(), "Deleted #1")

	ts.exec(t, "set-image 2 rye bread")
	assert.Contains(t, ts.out.String(), "Image set on #2. Photo by ")

	ts.clock.Advance(time.Second)
	_, current := ts.app.Router().Current()
	entries, loaded := current.(*view.FoodLog).Entries()
	require.True(t, loaded)
	require.Len(t, entries, 1)
	assert.Equal(t, "Rye Toast", entries[0].FoodName)
	assert.Contains(t, ts.render(t), "Photo by")

	ts.exec(t, "sort name")
	ts.exec(t, "photos oatmeal")
	assert.Contains(t, ts.out.String(), "Description")
}

func TestShellDashboard(t *testing.T) {
	ts := newTestShell(t, 0, "")
	ts.exec(t, "signup ada@example.com")
	ts.exec(t, "new Apple 95")
	ts.exec(t, "dash")

	_, err := ts.shell.Exec(context.Background(), "sort calories")
	assert.Error(t, err)

	ts.exec(t, "expand 2025-08-04")
	_, current := ts.app.Router().Current()
	dash := current.(*view.Dashboard)
	assert.True(t, dash.Expanded()["2025-08-04"])

	ts.exec(t, "collapse 2025-08-04")
	assert.Empty(t, dash.Expanded())

	ts.exec(t, "day 2025-08-06")
	path, _ := ts.app.Router().Current()
	assert.Equal(t, "/days/2025-08-06/", path)
}

func TestShellSessionCommands(t *testing.T) {
	ts := newTestShell(t, 0, "")
	ts.exec(t, "whoami")
	assert.Contains(t, ts.out.String(), "Not signed in")

	ts.exec(t, "log")
	path, _ := ts.app.Router().Current()
	assert.Equal(t, model.PathLogin, path)

	ts.exec(t, "signup ada@example.com")
	ts.exec(t, "logout")
	ts.exec(t, "login ada@example.com")
	assert.Contains(t, ts.out.String(), "Signed in as ada@example.com")

	path, _ = ts.app.Router().Current()
	assert.Equal(t, model.PathFoodLog, path)

	ts.exec(t, "whoami")
	assert.Contains(t, ts.out.String(), "ada@example.com\n")
}

func TestShellErrors(t *testing.T) {
	ts := newTestShell(t, 0, "")
	ctx := context.Background()

	_, err := ts.shell.Exec(ctx, "frobnicate")
	assert.ErrorContains(t, err, "unknown command")

	_, err = ts.shell.Exec(ctx, "rm")
	assert.ErrorContains(t, err, "usage: rm <id>")

	_, err = ts.shell.Exec(ctx, `add "unterminated`)
	assert.Error(t, err)

	_, err = ts.shell.Exec(ctx, "go /nowhere/")
	assert.ErrorIs(t, err, view.ErrUnknownRoute)

	quit, err := ts.shell.Exec(ctx, "")
	assert.NoError(t, err)
	assert.False(t, quit)

	quit, err = ts.shell.Exec(ctx, "exit")
	assert.NoError(t, err)
	assert.True(t, quit)
}

func TestShellRunLoop(t *testing.T) {
	ts := newTestShell(t, 0, "signup ada@example.com\nnew Banana 105\nbogus\nquit\nnew Never 1\n")

	require.NoError(t, ts.shell.Run(context.Background()))

	out := ts.out.String()
	assert.Contains(t, out, "Log what you eat")
	assert.Contains(t, out, "Welcome, ada@example.com")
	assert.Contains(t, out, "Logged #1 Banana, 105 kcal")
	assert.Contains(t, out, `unknown command "bogus"`)
	assert.NotContains(t, out, "Never")
}

func TestShellRunStopsAtEOF(t *testing.T) {
	ts := newTestShell(t, 0, "help")
	require.NoError(t, ts.shell.Run(context.Background()))
	assert.Contains(t, ts.out.String(), "set-image <id> <query>")
}

func TestLineReaderExitsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	input := startLineReader(ctx, bufio.NewReader(strings.NewReader("help\nquit\n")))

	// a line is read but nobody receives it
	input.next()
	cancel()

	assert.Eventually(t, func() bool {
		select {
		case <-input.done:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestRunReturnsOnCancel(t *testing.T) {
	ts := newTestShell(t, 0, "")
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })
	ts.shell.in = pr
	ts.shell.reader = bufio.NewReader(pr)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ts.shell.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
