package logging

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc"
)

var errWriterClosed = errors.New("log writer is closed")

// AsyncWriter decouples log producers from disk I/O. Lines are copied into
// a bounded queue and written by exactly one goroutine, so the underlying
// writer never sees concurrent or reentrant calls. When the queue is full
// the line is dropped and counted instead of blocking the caller.
type AsyncWriter struct {
	out   io.Writer
	queue chan []byte
	wg    conc.WaitGroup

	mu     sync.RWMutex
	closed bool

	dropped atomic.Int64
	failed  atomic.Int64
}

// NewAsyncWriter starts the writer goroutine draining into out.
func NewAsyncWriter(out io.Writer, queueSize int) *AsyncWriter {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	w := &AsyncWriter{
		out:   out,
		queue: make(chan []byte, queueSize),
	}
	w.wg.Go(w.drain)
	return w
}

// Write enqueues a copy of p. It never blocks on the underlying writer.
func (w *AsyncWriter) Write(p []byte) (int, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return 0, errWriterClosed
	}

	// slog reuses its buffer after Write returns.
	line := make([]byte, len(p))
	copy(line, p)

	select {
	case w.queue <- line:
	default:
		w.dropped.Add(1)
	}
	return len(p), nil
}

func (w *AsyncWriter) drain() {
	for line := range w.queue {
		if _, err := w.out.Write(line); err != nil {
			w.failed.Add(1)
		}
	}
}

// Dropped returns the number of lines discarded because the queue was full.
func (w *AsyncWriter) Dropped() int64 {
	return w.dropped.Load()
}

// Failed returns the number of lines the underlying writer rejected.
func (w *AsyncWriter) Failed() int64 {
	return w.failed.Load()
}

// Close stops accepting lines and waits until the queue is drained.
// It does not close the underlying writer. Close is idempotent.
func (w *AsyncWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	w.wg.Wait()
	return nil
}
