package logging

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// RotationConfig holds configuration for log rotation.
type RotationConfig struct {
	// MaxSizeMB is the maximum size of a log file in megabytes before rotation.
	// A value of 0 disables rotation.
	MaxSizeMB int
	// MaxBackups is the number of old log files to keep.
	MaxBackups int
	// Compress gzips rotated backups.
	Compress bool
}

// DefaultRotationConfig returns a RotationConfig with sensible defaults.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{
		MaxSizeMB:  10,
		MaxBackups: 3,
	}
}

// RotatingWriter is a size-bounded log file. When a write would push the
// file past the limit, the file is renamed to <path>.1 (shifting older
// backups up to MaxBackups) and a fresh file is opened.
//
// The AsyncWriter is its only caller in production, so rotation and
// compression run inline on that goroutine. The mutex keeps direct use safe.
type RotatingWriter struct {
	mu sync.Mutex

	filePath   string
	maxBytes   int64
	maxBackups int
	compress   bool

	file *os.File
	size int64
}

// NewRotatingWriter opens (or creates) filePath for appending.
func NewRotatingWriter(filePath string, cfg RotationConfig) (*RotatingWriter, error) {
	rw := &RotatingWriter{
		filePath:   filePath,
		maxBytes:   int64(cfg.MaxSizeMB) * 1024 * 1024,
		maxBackups: cfg.MaxBackups,
		compress:   cfg.Compress,
	}
	if err := rw.open(); err != nil {
		return nil, err
	}
	return rw, nil
}

// setMaxBytes overrides the size limit; tests use it to rotate without
// writing megabytes.
func (rw *RotatingWriter) setMaxBytes(n int64) {
	rw.mu.Lock()
	rw.maxBytes = n
	rw.mu.Unlock()
}

// open must be called with mu held (or before the writer is shared).
func (rw *RotatingWriter) open() error {
	if err := os.MkdirAll(filepath.Dir(rw.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(rw.filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	rw.file = file
	rw.size = info.Size()
	return nil
}

// Write implements io.Writer, rotating first when p would overflow the file.
func (rw *RotatingWriter) Write(p []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.file == nil {
		return 0, fmt.Errorf("log file is closed")
	}

	if rw.maxBytes > 0 && rw.size > 0 && rw.size+int64(len(p)) > rw.maxBytes {
		if err := rw.rotate(); err != nil {
			// Keep logging into whatever file is open rather than losing lines.
			fmt.Fprintf(os.Stderr, "Warning: log rotation failed: %v\n", err)
			if rw.file == nil {
				return 0, err
			}
		}
	}

	n, err := rw.file.Write(p)
	rw.size += int64(n)
	return n, err
}

func (rw *RotatingWriter) rotate() error {
	if err := rw.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	rw.file = nil

	rw.shiftBackups()

	if rw.maxBackups <= 0 {
		if err := os.Remove(rw.filePath); err != nil && !os.IsNotExist(err) {
			return rw.reopenAfter(fmt.Errorf("failed to truncate log file: %w", err))
		}
		return rw.open()
	}

	first := rw.backupPath(1)
	if err := os.Rename(rw.filePath, first); err != nil {
		return rw.reopenAfter(fmt.Errorf("failed to rename log file: %w", err))
	}
	if rw.compress {
		if err := gzipFile(first); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to compress %s: %v\n", first, err)
		}
	}
	return rw.open()
}

func (rw *RotatingWriter) reopenAfter(cause error) error {
	if err := rw.open(); err != nil {
		return fmt.Errorf("%v; reopen failed: %w", cause, err)
	}
	return cause
}

// shiftBackups renames .N-1 -> .N down to .1 -> .2, dropping the oldest.
func (rw *RotatingWriter) shiftBackups() {
	if rw.maxBackups <= 0 {
		return
	}

	oldest := rw.backupPath(rw.maxBackups)
	_ = os.Remove(oldest)
	_ = os.Remove(oldest + ".gz")

	for i := rw.maxBackups - 1; i >= 1; i-- {
		from, to := rw.backupPath(i), rw.backupPath(i+1)
		if _, err := os.Stat(from + ".gz"); err == nil {
			_ = os.Rename(from+".gz", to+".gz")
		} else if _, err := os.Stat(from); err == nil {
			_ = os.Rename(from, to)
		}
	}
}

func (rw *RotatingWriter) backupPath(n int) string {
	return fmt.Sprintf("%s.%d", rw.filePath, n)
}

// gzipFile replaces path with path.gz. The original is only removed once
// the compressed copy is complete.
func gzipFile(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	gzPath := path + ".gz"
	dst, err := os.Create(gzPath)
	if err != nil {
		return err
	}

	zw := gzip.NewWriter(dst)
	if _, err := io.Copy(zw, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(gzPath)
		return err
	}
	if err := zw.Close(); err != nil {
		_ = dst.Close()
		_ = os.Remove(gzPath)
		return err
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(gzPath)
		return err
	}
	return os.Remove(path)
}

// Sync flushes the current file to disk.
func (rw *RotatingWriter) Sync() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.file == nil {
		return nil
	}
	return rw.file.Sync()
}

// Close syncs and closes the current file. Close is idempotent.
func (rw *RotatingWriter) Close() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.file == nil {
		return nil
	}
	if err := rw.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync log file: %w", err)
	}
	if err := rw.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	rw.file = nil
	return nil
}

// CurrentSize returns the size of the active log file in bytes.
func (rw *RotatingWriter) CurrentSize() int64 {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.size
}
