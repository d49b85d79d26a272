package screen

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Iron-Ham/shinyhunt/internal/errors"
	"github.com/vcaesar/imgo"
)

// IsFrameFile reports whether name looks like a saved frame.
func IsFrameFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

// DirSource replays the frames in a directory in file-name order, one per
// capture. Once they run out it fails permanently with errors.ErrNoFrames,
// or starts over when Loop is set.
type DirSource struct {
	Dir  string
	Loop bool

	mu    sync.Mutex
	files []string
	next  int
}

// NewDirSource lists the frames in dir.
func NewDirSource(dir string, loop bool) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frames directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && IsFrameFile(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return &DirSource{Dir: dir, Loop: loop, files: files}, nil
}

// Len returns the number of frames.
func (d *DirSource) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.files)
}

// Capture implements Source.
func (d *DirSource) Capture(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	if d.next >= len(d.files) {
		if !d.Loop || len(d.files) == 0 {
			d.mu.Unlock()
			return nil, errors.NewCaptureError("frame replay finished", errors.ErrNoFrames).Permanent()
		}
		d.next = 0
	}
	path := d.files[d.next]
	d.next++
	d.mu.Unlock()

	img, err := imgo.Read(path)
	if err != nil {
		return nil, errors.NewCaptureError(fmt.Sprintf("failed to read frame %s", filepath.Base(path)), err)
	}
	return img, nil
}

// LoadFrame reads a single saved frame.
func LoadFrame(path string) (image.Image, error) {
	img, err := imgo.Read(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read frame %s", path)
	}
	return img, nil
}

// FrameSaver writes frames to a directory as PNG files.
type FrameSaver struct {
	Dir string
}

// Save writes img as "<prefix>-<timestamp>.png" and returns the path.
func (s FrameSaver) Save(img image.Image, prefix string, at time.Time) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create frames directory: %w", err)
	}
	name := fmt.Sprintf("%s-%s.png", prefix, at.Format("20060102-150405.000"))
	path := filepath.Join(s.Dir, name)
	if err := imgo.Save(path, img); err != nil {
		return "", fmt.Errorf("failed to save frame: %w", err)
	}
	return path, nil
}
