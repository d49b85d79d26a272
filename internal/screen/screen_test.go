package screen

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Iron-Ham/shinyhunt/internal/errors"
)

const wmctrlOutput = `0x01e00003 -1 0    0    1920 32   host Top Panel
0x03a00003  0 100  200  480  320  host mGBA - 0.10.4 - Pokemon Emerald
0x04200007  0 50   60   800  600  host Terminal
`

func writeFrame(t *testing.T, path string, w, h int, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestParseWindowList(t *testing.T) {
	windows := ParseWindowList([]byte(wmctrlOutput + "garbage line\n0x1 0 a b c d host bad\n"))
	if len(windows) != 3 {
		t.Fatalf("parsed %d windows, want 3", len(windows))
	}
	w := windows[1]
	if w.ID != "0x03a00003" || w.Title != "mGBA - 0.10.4 - Pokemon Emerald" {
		t.Errorf("window = %+v", w)
	}
	if w.Rect() != image.Rect(100, 200, 580, 520) {
		t.Errorf("Rect() = %v", w.Rect())
	}
}

func newTestWindowSource(listErr error) (*WindowSource, *[]string, *image.Rectangle) {
	var commands []string
	var grabbed image.Rectangle
	s := NewWindowSource("", time.Second)
	s.command = func(_ context.Context, name string, args ...string) ([]byte, error) {
		commands = append(commands, name+" "+strings.Join(args, " "))
		if listErr != nil {
			return nil, listErr
		}
		return []byte(wmctrlOutput), nil
	}
	s.grab = func(r image.Rectangle) (*image.RGBA, error) {
		grabbed = r
		return image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy())), nil
	}
	s.sleep = func(context.Context, time.Duration) error { return nil }
	return s, &commands, &grabbed
}

func TestWindowSource_Capture(t *testing.T) {
	t.Run("grabs the window region", func(t *testing.T) {
		s, _, grabbed := newTestWindowSource(nil)
		img, err := s.Capture(context.Background())
		if err != nil {
			t.Fatalf("Capture failed: %v", err)
		}
		if *grabbed != image.Rect(100, 200, 580, 520) {
			t.Errorf("grabbed %v", *grabbed)
		}
		if img.Bounds().Dx() != 480 || img.Bounds().Dy() != 320 {
			t.Errorf("frame size = %v", img.Bounds())
		}
	})

	t.Run("window not found", func(t *testing.T) {
		s, _, _ := newTestWindowSource(nil)
		s.Title = "VisualBoyAdvance"
		_, err := s.Capture(context.Background())
		if !errors.Is(err, errors.ErrWindowNotFound) || !errors.Is(err, errors.ErrCaptureUnavailable) {
			t.Errorf("error = %v, want window not found capture error", err)
		}
		if !errors.IsRetryable(err) {
			t.Error("capture errors should be retryable")
		}
	})

	t.Run("wmctrl missing", func(t *testing.T) {
		s, _, _ := newTestWindowSource(errors.New("executable file not found"))
		_, err := s.Capture(context.Background())
		if !errors.Is(err, errors.ErrCaptureUnavailable) {
			t.Errorf("error = %v, want ErrCaptureUnavailable", err)
		}
	})

	t.Run("grab failure", func(t *testing.T) {
		s, _, _ := newTestWindowSource(nil)
		s.grab = func(image.Rectangle) (*image.RGBA, error) { return nil, errors.New("no display") }
		_, err := s.Capture(context.Background())
		var cerr *errors.CaptureError
		if !errors.As(err, &cerr) || cerr.Window != DefaultWindowTitle {
			t.Errorf("error = %v, want CaptureError for the default window", err)
		}
	})
}

func TestWindowSource_Focus(t *testing.T) {
	s, commands, _ := newTestWindowSource(nil)
	var slept time.Duration
	s.sleep = func(_ context.Context, d time.Duration) error {
		slept = d
		return nil
	}

	if err := s.Focus(context.Background()); err != nil {
		t.Fatalf("Focus failed: %v", err)
	}
	want := []string{"wmctrl -lG", "wmctrl -i -a 0x03a00003"}
	if strings.Join(*commands, "|") != strings.Join(want, "|") {
		t.Errorf("commands = %v, want %v", *commands, want)
	}
	if slept != time.Second {
		t.Errorf("focus delay = %s, want 1s", slept)
	}
}

type stubSource struct {
	img image.Image
	err error
}

func (s stubSource) Capture(context.Context) (image.Image, error) { return s.img, s.err }

func TestScaled(t *testing.T) {
	t.Run("resizes keeping aspect", func(t *testing.T) {
		s := Scaled{Source: stubSource{img: image.NewRGBA(image.Rect(0, 0, 480, 320))}, Width: 240}
		img, err := s.Capture(context.Background())
		if err != nil {
			t.Fatalf("Capture failed: %v", err)
		}
		if img.Bounds().Dx() != 240 || img.Bounds().Dy() != 160 {
			t.Errorf("size = %v, want 240x160", img.Bounds())
		}
	})

	t.Run("passes through same width and errors", func(t *testing.T) {
		orig := image.NewRGBA(image.Rect(0, 0, 240, 160))
		img, _ := Scaled{Source: stubSource{img: orig}, Width: 240}.Capture(context.Background())
		if img != image.Image(orig) {
			t.Error("same-width frame was copied")
		}
		_, err := Scaled{Source: stubSource{err: errors.ErrNoFrames}, Width: 240}.Capture(context.Background())
		if !errors.Is(err, errors.ErrNoFrames) {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("forwards focus", func(t *testing.T) {
		ws, commands, _ := newTestWindowSource(nil)
		if err := (Scaled{Source: ws, Width: 10}).Focus(context.Background()); err != nil {
			t.Fatalf("Focus failed: %v", err)
		}
		if len(*commands) != 2 {
			t.Errorf("focus did not reach the window source: %v", *commands)
		}
		if err := (Scaled{Source: stubSource{}}).Focus(context.Background()); err != nil {
			t.Errorf("Focus on a plain source = %v", err)
		}
	})
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, filepath.Join(dir, "002.png"), 4, 4, color.RGBA{0, 255, 0, 255})
	writeFrame(t, filepath.Join(dir, "001.png"), 4, 4, color.RGBA{255, 0, 0, 255})
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Run("replays in name order then fails", func(t *testing.T) {
		src, err := NewDirSource(dir, false)
		if err != nil {
			t.Fatalf("NewDirSource failed: %v", err)
		}
		if src.Len() != 2 {
			t.Fatalf("Len() = %d, want 2", src.Len())
		}
		first, err := src.Capture(context.Background())
		if err != nil {
			t.Fatalf("Capture failed: %v", err)
		}
		if r, _, _, _ := first.At(0, 0).RGBA(); r>>8 != 255 {
			t.Error("first frame is not 001.png")
		}
		if _, err := src.Capture(context.Background()); err != nil {
			t.Fatalf("second Capture failed: %v", err)
		}
		_, err = src.Capture(context.Background())
		if !errors.Is(err, errors.ErrNoFrames) || !errors.Is(err, errors.ErrCaptureUnavailable) {
			t.Errorf("error = %v, want ErrNoFrames capture error", err)
		}
		if errors.IsRetryable(err) {
			t.Error("a finished replay should not be retryable")
		}
	})

	t.Run("loops", func(t *testing.T) {
		src, err := NewDirSource(dir, true)
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 5; i++ {
			if _, err := src.Capture(context.Background()); err != nil {
				t.Fatalf("Capture %d failed: %v", i, err)
			}
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		if _, err := NewDirSource(filepath.Join(dir, "nope"), false); err == nil {
			t.Error("expected error")
		}
	})
}

func TestFrameSaver(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	at := time.Date(2024, 5, 6, 7, 8, 9, 123e6, time.UTC)

	path, err := FrameSaver{Dir: dir}.Save(image.NewRGBA(image.Rect(0, 0, 3, 2)), "outcome", at)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if filepath.Base(path) != "outcome-20240506-070809.123.png" {
		t.Errorf("path = %s", path)
	}
	img, err := LoadFrame(path)
	if err != nil {
		t.Fatalf("LoadFrame failed: %v", err)
	}
	if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
		t.Errorf("reloaded size = %v", img.Bounds())
	}
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 10)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(path string) { got <- path }, nil)
	}()

	if err := os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	writeFrame(t, filepath.Join(dir, "frame.png"), 2, 2, color.RGBA{1, 2, 3, 255})

	select {
	case path := <-got:
		if filepath.Base(path) != "frame.png" {
			t.Errorf("reported %s, want frame.png", path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for frame event")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestIsFrameFile(t *testing.T) {
	for name, want := range map[string]bool{"a.png": true, "b.JPG": true, "c.jpeg": true, "d.txt": false, "png": false} {
		if got := IsFrameFile(name); got != want {
			t.Errorf("IsFrameFile(%q) = %v, want %v", name, got, want)
		}
	}
}
