// Package shell is an interactive front end over the client. Each line is
// parsed with shell quoting rules and dispatched to a command; the mounted
// view is redrawn after every command and whenever it reports new state.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/penwyp/go-fullsnack/internal/application/app"
	"github.com/penwyp/go-fullsnack/internal/core/model"
	"github.com/penwyp/go-fullsnack/internal/data/api"
	"github.com/penwyp/go-fullsnack/internal/presentation/display"
	"github.com/penwyp/go-fullsnack/internal/util"
	"golang.org/x/term"
)

const prompt = "fullsnack> "

// errQuit ends the loop
var errQuit = errors.New("quit")

// PasswordFunc reads a password without echo
type PasswordFunc func(prompt string) (string, error)

// Option configures a Shell
type Option func(*Shell)

// WithPasswordFunc replaces the password prompt
func WithPasswordFunc(f PasswordFunc) Option {
	return func(s *Shell) { s.password = f }
}

// WithScreen replaces the screen frames are drawn on
func WithScreen(screen *display.Screen) Option {
	return func(s *Shell) { s.screen = screen }
}

// Shell reads commands and keeps the mounted view on screen
type Shell struct {
	app      *app.App
	in       io.Reader
	reader   *bufio.Reader
	out      io.Writer
	screen   *display.Screen
	password PasswordFunc
	commands []*command
	byName   map[string]*command
}

// New creates a new Shell instance
func New(a *app.App, in io.Reader, out io.Writer, opts ...Option) *Shell {
	s := &Shell{
		app:    a,
		in:     in,
		reader: bufio.NewReader(in),
		out:    out,
		screen: display.NewScreen(out, false),
	}
	s.password = func(p string) (string, error) { return readPassword(s.in, s.reader, s.out, p) }
	for _, opt := range opts {
		opt(s)
	}
	s.registerCommands()
	return s
}

// Exec runs one command line. It reports whether the shell should exit.
func (s *Shell) Exec(ctx context.Context, line string) (bool, error) {
	args, err := shellwords.Parse(strings.TrimSpace(line))
	if err != nil {
		return false, fmt.Errorf("cannot parse %q: %w", line, err)
	}
	if len(args) == 0 {
		return false, nil
	}

	cmd, ok := s.byName[strings.ToLower(args[0])]
	if !ok {
		return false, fmt.Errorf("unknown command %q, try help", args[0])
	}
	util.LogDebug("Shell command", util.F("command", cmd.name), util.F("args", len(args)-1))

	err = cmd.run(ctx, args[1:])
	switch {
	case errors.Is(err, errQuit):
		return true, nil
	case errors.Is(err, errUsage):
		return false, fmt.Errorf("usage: %s", cmd.usage)
	}
	return false, err
}

// Render draws the mounted view if it changed
func (s *Shell) Render() error {
	_, err := s.screen.Draw(s.app.Router().Render)
	return err
}

func (s *Shell) report(err error) {
	if err == nil {
		return
	}
	s.screen.Status(util.FormatErrorText(api.UserMessage(err)))
	s.screen.Reset()
}

// Start mounts the first view: the food log when signed in, home otherwise
func (s *Shell) Start(ctx context.Context) error {
	path := model.PathHome
	if s.app.Gate().IsAuthenticated() {
		path = model.PathFoodLog
	}
	return s.app.Router().Navigate(ctx, path)
}

// Run reads lines until EOF, quit or cancellation
func (s *Shell) Run(ctx context.Context) error {
	s.report(s.Start(ctx))
	s.report(s.Render())

	input := startLineReader(ctx, s.reader)
	defer input.stop()

	fmt.Fprint(s.out, prompt)
	input.next()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-input.errs:
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(s.out)
				return nil
			}
			return err

		case <-s.app.Invalidations():
			s.report(s.Render())

		case line := <-input.lines:
			quit, err := s.Exec(ctx, line)
			if quit {
				return nil
			}
			s.report(err)
			s.report(s.Render())
			fmt.Fprint(s.out, prompt)
			input.next()
		}
	}
}

// lineReader reads one line from its reader each time next is called
type lineReader struct {
	ready chan struct{}
	lines chan string
	errs  chan error
	done  chan struct{}
}

func startLineReader(ctx context.Context, r *bufio.Reader) *lineReader {
	lr := &lineReader{
		ready: make(chan struct{}, 1),
		lines: make(chan string),
		errs:  make(chan error, 1),
		done:  make(chan struct{}),
	}
	go lr.run(ctx, r)
	return lr
}

func (lr *lineReader) run(ctx context.Context, r *bufio.Reader) {
	defer close(lr.done)
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-lr.ready:
			if !ok {
				return
			}
		}

		line, err := r.ReadString('\n')
		if err != nil && line == "" {
			lr.errs <- err
			return
		}
		select {
		case lr.lines <- line:
		case <-ctx.Done():
			return
		}
	}
}

func (lr *lineReader) next() { lr.ready <- struct{}{} }
func (lr *lineReader) stop() { close(lr.ready) }

// readPassword reads without echo from a terminal, otherwise reads one line
func readPassword(in io.Reader, reader *bufio.Reader, out io.Writer, p string) (string, error) {
	fmt.Fprint(out, p)
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		return string(b), err
	}
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ReadPassword prompts on out and reads a password from in
func ReadPassword(in io.Reader, out io.Writer, p string) (string, error) {
	return readPassword(in, bufio.NewReader(in), out, p)
}
