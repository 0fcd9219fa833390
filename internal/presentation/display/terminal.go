package display

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/penwyp/go-fullsnack/internal/util"
)

// Alternate screen buffer sequences
const (
	enterAlternateScreen = "\033[?1049h"
	exitAlternateScreen  = "\033[?1049l"
	hideCursor           = "\033[?25l"
	showCursor           = "\033[?25h"
	clearToEnd           = "\033[J"
)

// Screen redraws whole frames. A frame identical to the previous one is not
// written again, so an unchanged view does not flicker or lose a selection.
type Screen struct {
	out         io.Writer
	interactive bool

	mu                sync.Mutex
	previous          string
	inAlternateScreen bool
	frames            int
}

// NewScreen creates a screen writing to out. When interactive is false frames
// are appended with a separator instead of redrawn in place.
func NewScreen(out io.Writer, interactive bool) *Screen {
	return &Screen{out: out, interactive: interactive}
}

// EnterAlternateScreen switches to the alternate screen buffer
func (s *Screen) EnterAlternateScreen() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.interactive || s.inAlternateScreen {
		return
	}
	fmt.Fprint(s.out, enterAlternateScreen, util.ClearScreen, util.MoveCursorHome, hideCursor)
	s.inAlternateScreen = true
	s.previous = ""
}

// ExitAlternateScreen returns to the normal screen buffer
func (s *Screen) ExitAlternateScreen() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.inAlternateScreen {
		return
	}
	fmt.Fprint(s.out, util.ClearScreen, util.MoveCursorHome, showCursor, exitAlternateScreen)
	s.inAlternateScreen = false
}

// Draw renders a frame and writes it if it differs from the last one.
// It reports whether anything was written.
func (s *Screen) Draw(render func(io.Writer) error) (bool, error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return false, err
	}
	frame := buf.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	if frame == s.previous {
		return false, nil
	}
	s.previous = frame
	s.frames++

	var err error
	if s.interactive {
		_, err = fmt.Fprint(s.out, util.MoveCursorHome, frame, clearToEnd)
	} else {
		if s.frames > 1 {
			_, err = fmt.Fprintln(s.out, util.FormatSectionSeparator(40))
		}
		if err == nil {
			_, err = io.WriteString(s.out, frame)
		}
	}
	return err == nil, err
}

// Status writes a one-line message below the frame
func (s *Screen) Status(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	message = strings.TrimRight(message, "\n")
	if s.interactive {
		fmt.Fprintf(s.out, "\033[999;1H%s  %s", util.ClearLine, message)
		return
	}
	fmt.Fprintln(s.out, message)
}

// Reset forgets the previous frame so the next Draw always writes
func (s *Screen) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previous = ""
}

// Frames returns how many frames have been written
func (s *Screen) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}
