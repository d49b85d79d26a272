package screen

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of write events a screenshot tool
// produces for one file.
const DefaultDebounce = 50 * time.Millisecond

// Watcher reports frames that appear or change in a directory.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
}

// NewWatcher watches dir (not recursively).
func NewWatcher(dir string, debounce time.Duration) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{watcher: w, debounce: debounce}, nil
}

// Run calls onFrame for every frame file created or written, once per
// quiet period, until ctx is done or the watcher is closed. Watch errors
// go to onError when it is non-nil.
func (w *Watcher) Run(ctx context.Context, onFrame func(path string), onError func(error)) error {
	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C

	pending := make(map[string]struct{})
	var order []string

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !IsFrameFile(event.Name) {
				continue
			}
			if _, seen := pending[event.Name]; !seen {
				pending[event.Name] = struct{}{}
				order = append(order, event.Name)
			}
			debounceTimer.Reset(w.debounce)

		case <-debounceTimer.C:
			batch := order
			pending = make(map[string]struct{})
			order = nil
			for _, path := range batch {
				onFrame(path)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if onError != nil {
				onError(err)
			}
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
