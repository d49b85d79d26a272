package screen

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/Iron-Ham/shinyhunt/internal/errors"
	"github.com/kbinani/screenshot"
)

// DefaultWindowTitle is the emulator window the hunt targets.
const DefaultWindowTitle = "mGBA - 0.10.4"

// DefaultFocusDelay is slept after raising the window so it has input focus
// before the first key press.
const DefaultFocusDelay = 500 * time.Millisecond

// Window is one row of "wmctrl -lG".
type Window struct {
	ID    string
	X, Y  int
	W, H  int
	Title string
}

// Rect returns the window geometry in screen coordinates.
func (w Window) Rect() image.Rectangle {
	return image.Rect(w.X, w.Y, w.X+w.W, w.Y+w.H)
}

// ParseWindowList parses "wmctrl -lG" output:
//
//	0x03a00003  0 100  200  480  320  host mGBA - 0.10.4
func ParseWindowList(out []byte) []Window {
	var windows []Window
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 7 {
			continue
		}
		var geom [4]int
		ok := true
		for i := range geom {
			n, err := strconv.Atoi(fields[2+i])
			if err != nil {
				ok = false
				break
			}
			geom[i] = n
		}
		if !ok {
			continue
		}
		windows = append(windows, Window{
			ID:    fields[0],
			X:     geom[0],
			Y:     geom[1],
			W:     geom[2],
			H:     geom[3],
			Title: strings.Join(fields[7:], " "),
		})
	}
	return windows
}

type commandFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

type captureFunc func(r image.Rectangle) (*image.RGBA, error)

// WindowSource captures an X11 window found by title substring. The window
// is looked up on every capture so moving it between polls is harmless.
type WindowSource struct {
	Title      string
	FocusDelay time.Duration

	command commandFunc
	grab    captureFunc
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewWindowSource creates a source for the window whose title contains title.
func NewWindowSource(title string, focusDelay time.Duration) *WindowSource {
	if title == "" {
		title = DefaultWindowTitle
	}
	if focusDelay < 0 {
		focusDelay = 0
	}
	return &WindowSource{
		Title:      title,
		FocusDelay: focusDelay,
		command:    runCommand,
		grab:       screenshot.CaptureRect,
		sleep:      sleepCtx,
	}
}

// Find returns the first window whose title contains s.Title.
func (s *WindowSource) Find(ctx context.Context) (Window, error) {
	out, err := s.command(ctx, "wmctrl", "-lG")
	if err != nil {
		return Window{}, errors.NewCaptureError("failed to list windows", err).WithWindow(s.Title)
	}
	for _, w := range ParseWindowList(out) {
		if strings.Contains(w.Title, s.Title) {
			return w, nil
		}
	}
	return Window{}, errors.NewCaptureError("window lookup failed", errors.ErrWindowNotFound).WithWindow(s.Title)
}

// Capture implements Source.
func (s *WindowSource) Capture(ctx context.Context) (image.Image, error) {
	w, err := s.Find(ctx)
	if err != nil {
		return nil, err
	}
	if w.W <= 0 || w.H <= 0 {
		return nil, errors.NewCaptureError(fmt.Sprintf("window has empty geometry %dx%d", w.W, w.H), nil).WithWindow(s.Title)
	}
	img, err := s.grab(w.Rect())
	if err != nil {
		return nil, errors.NewCaptureError("screen grab failed", err).WithWindow(s.Title)
	}
	return img, nil
}

// Focus raises the window and waits FocusDelay.
func (s *WindowSource) Focus(ctx context.Context) error {
	w, err := s.Find(ctx)
	if err != nil {
		return err
	}
	if _, err := s.command(ctx, "wmctrl", "-i", "-a", w.ID); err != nil {
		return errors.NewCaptureError("failed to focus window", err).WithWindow(s.Title)
	}
	return s.sleep(ctx, s.FocusDelay)
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
