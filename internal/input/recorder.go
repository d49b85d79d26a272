package input

import (
	"context"
	"sync"
	"time"
)

// Recorder is an Actuator that only records what it was asked to press.
// It backs dry runs and tests.
type Recorder struct {
	mu   sync.Mutex
	keys []string
}

// Press implements Actuator.
func (r *Recorder) Press(ctx context.Context, key string) error {
	if _, err := ParseKey(key); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
	return ctx.Err()
}

// Keys returns a copy of the keys pressed so far.
func (r *Recorder) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.keys...)
}

func init() {
	factories["dry-run"] = func(_ time.Duration) Actuator { return &Recorder{} }
}
