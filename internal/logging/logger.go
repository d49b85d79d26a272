// Package logging provides structured logging for shinyhunt runs.
// It wraps Go's log/slog package to provide JSON-formatted logs with
// run and stage context, written through a single background writer.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Log levels supported by the logger
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// FileName is the name of the log file created inside the log directory.
const FileName = "shinyhunt.log"

// DefaultQueueSize is the number of pending log lines buffered before
// new lines are dropped.
const DefaultQueueSize = 1024

// Options configures a Logger created by Open.
type Options struct {
	// Dir is the directory holding the log file. Empty means stderr.
	Dir string
	// Level is the minimum level written (DEBUG, INFO, WARN, ERROR).
	Level string
	// Rotation bounds the size and number of log files.
	Rotation RotationConfig
	// QueueSize bounds the number of lines waiting for the writer.
	QueueSize int
}

// Logger provides structured logging with context propagation.
// It is safe for concurrent use.
type Logger struct {
	logger *slog.Logger
	sink   *sink
	attrs  []slog.Attr // Persistent attributes (run, stage)
}

// sink owns the writer chain shared by a logger and all of its children.
type sink struct {
	mu      sync.Mutex
	async   *AsyncWriter
	rotator *RotatingWriter
	path    string
}

// NewLogger creates a Logger writing to {dir}/shinyhunt.log with the
// default rotation settings. If dir is empty, logs go to stderr.
func NewLogger(dir string, level string) (*Logger, error) {
	return Open(Options{
		Dir:       dir,
		Level:     level,
		Rotation:  DefaultRotationConfig(),
		QueueSize: DefaultQueueSize,
	})
}

// Open creates a Logger from the given options. File output goes through
// a RotatingWriter drained by a single AsyncWriter goroutine, so callers
// never block on disk I/O.
func Open(opts Options) (*Logger, error) {
	s := &sink{}
	var writer io.Writer = os.Stderr

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		s.path = filepath.Join(opts.Dir, FileName)
		rotator, err := NewRotatingWriter(s.path, opts.Rotation)
		if err != nil {
			return nil, err
		}
		queueSize := opts.QueueSize
		if queueSize <= 0 {
			queueSize = DefaultQueueSize
		}
		s.rotator = rotator
		s.async = NewAsyncWriter(rotator, queueSize)
		writer = s.async
	}

	handler := slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: parseLevel(opts.Level),
	})

	return &Logger{
		logger: slog.New(handler),
		sink:   s,
		attrs:  make([]slog.Attr, 0),
	}, nil
}

// parseLevel converts a string log level to slog.Level.
// Defaults to INFO if the level string is not recognized.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRun returns a child Logger tagging every entry with the run ID.
func (l *Logger) WithRun(runID string) *Logger {
	return l.withAttr(slog.String("run_id", runID))
}

// WithStage returns a child Logger tagging every entry with the stage name.
func (l *Logger) WithStage(stage string) *Logger {
	return l.withAttr(slog.String("stage", stage))
}

// With returns a new Logger with arbitrary key-value attributes.
// Keys and values are provided as alternating arguments.
func (l *Logger) With(args ...any) *Logger {
	if len(args) == 0 {
		return l
	}

	newAttrs := make([]slog.Attr, 0, len(l.attrs)+len(args)/2)
	newAttrs = append(newAttrs, l.attrs...)

	for i := 0; i < len(args)-1; i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		newAttrs = append(newAttrs, slog.Any(key, args[i+1]))
	}

	return &Logger{
		logger: l.logger,
		sink:   l.sink,
		attrs:  newAttrs,
	}
}

func (l *Logger) withAttr(attr slog.Attr) *Logger {
	newAttrs := make([]slog.Attr, len(l.attrs)+1)
	copy(newAttrs, l.attrs)
	newAttrs[len(l.attrs)] = attr

	return &Logger{
		logger: l.logger,
		sink:   l.sink,
		attrs:  newAttrs,
	}
}

// Debug logs a message at DEBUG level with optional key-value pairs.
func (l *Logger) Debug(msg string, args ...any) {
	l.log(slog.LevelDebug, msg, args...)
}

// Info logs a message at INFO level with optional key-value pairs.
func (l *Logger) Info(msg string, args ...any) {
	l.log(slog.LevelInfo, msg, args...)
}

// Warn logs a message at WARN level with optional key-value pairs.
func (l *Logger) Warn(msg string, args ...any) {
	l.log(slog.LevelWarn, msg, args...)
}

// Error logs a message at ERROR level with optional key-value pairs.
func (l *Logger) Error(msg string, args ...any) {
	l.log(slog.LevelError, msg, args...)
}

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	allArgs := make([]any, 0, len(l.attrs)*2+len(args))
	for _, attr := range l.attrs {
		allArgs = append(allArgs, attr.Key, attr.Value.Any())
	}
	allArgs = append(allArgs, args...)

	l.logger.Log(context.Background(), level, msg, allArgs...)
}

// Path returns the log file path, or "" when logging to stderr.
func (l *Logger) Path() string {
	if l.sink == nil {
		return ""
	}
	return l.sink.path
}

// Dropped reports how many lines were discarded because the writer
// queue was full.
func (l *Logger) Dropped() int64 {
	if l.sink == nil || l.sink.async == nil {
		return 0
	}
	return l.sink.async.Dropped()
}

// Close drains pending entries and closes the log file.
// Closing a stderr logger is a no-op. Close is shared by all child loggers.
func (l *Logger) Close() error {
	if l.sink == nil {
		return nil
	}
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	if l.sink.async != nil {
		if err := l.sink.async.Close(); err != nil {
			return fmt.Errorf("failed to flush log queue: %w", err)
		}
	}
	if l.sink.rotator != nil {
		return l.sink.rotator.Close()
	}
	return nil
}

// NopLogger returns a Logger that discards all log output.
// Useful for testing or when logging is disabled.
func NopLogger() *Logger {
	return &Logger{
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
		sink:   &sink{},
		attrs:  make([]slog.Attr, 0),
	}
}

// ParseLevel converts a string level to the corresponding constant.
// Returns LevelInfo if the level string is not recognized.
func ParseLevel(level string) string {
	switch strings.ToUpper(level) {
	case LevelDebug:
		return LevelDebug
	case LevelWarn:
		return LevelWarn
	case LevelError:
		return LevelError
	default:
		return LevelInfo
	}
}

// ValidLevels returns the list of valid log level strings.
func ValidLevels() []string {
	return []string{LevelDebug, LevelInfo, LevelWarn, LevelError}
}
