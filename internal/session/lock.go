// Package session guards the emulator against two hunts at once. A running
// hunt holds a lock file in the state directory naming its process and run;
// a second hunt refuses to start while that process is alive.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Iron-Ham/shinyhunt/internal/errors"
	"github.com/Iron-Ham/shinyhunt/internal/logging"
)

// LockFileName is the name of the lock file within the state directory
const LockFileName = "hunt.lock"

// ErrHuntRunning is returned when another live process holds the lock
var ErrHuntRunning = errors.New("another hunt is running")

// Lock represents an acquired hunt lock
type Lock struct {
	RunID     string    `json:"run_id"`
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	Window    string    `json:"window,omitempty"`
	StartedAt time.Time `json:"started_at"`

	path   string
	logger *logging.Logger
}

// Acquire takes the hunt lock in dir for runID. window names what the hunt
// drives and only serves the error a second hunt reports. A lock left by a
// process that has exited is replaced. The logger may be nil.
func Acquire(dir, runID, window string, logger *logging.Logger) (*Lock, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	path := filepath.Join(dir, LockFileName)

	existing, err := Read(path)
	switch {
	case err == nil:
		if isProcessAlive(existing.PID) {
			return nil, existing.heldError()
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale lock: %w", err)
		}
		logger.Warn("stale hunt lock cleaned", "old_pid", existing.PID, "old_run_id", existing.RunID)
	case !os.IsNotExist(err):
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove unreadable lock: %w", err)
		}
		logger.Warn("unreadable hunt lock cleaned", "error", err.Error())
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	lock := &Lock{
		RunID:     runID,
		PID:       os.Getpid(),
		Hostname:  hostname,
		Window:    window,
		StartedAt: time.Now(),
		path:      path,
		logger:    logger,
	}
	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lock: %w", err)
	}

	// O_EXCL loses the race to a hunt that started since the check above.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			if existing, readErr := Read(path); readErr == nil {
				return nil, existing.heldError()
			}
			return nil, ErrHuntRunning
		}
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(data); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to write lock file: %w", err)
	}

	logger.Debug("hunt lock acquired", logging.AttrRunID, runID, "pid", lock.PID)
	return lock, nil
}

func (l *Lock) heldError() error {
	return fmt.Errorf("%w: PID %d on %s (run %s, started %s)",
		ErrHuntRunning, l.PID, l.Hostname, l.RunID, l.StartedAt.Local().Format(time.DateTime))
}

// Release removes the lock file if this process still owns it. Safe to call
// more than once.
func (l *Lock) Release() error {
	if l == nil || l.path == "" {
		return nil
	}
	existing, err := Read(l.path)
	if err != nil || existing.PID != l.PID {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	if l.logger != nil {
		l.logger.Debug("hunt lock released", logging.AttrRunID, l.RunID)
	}
	return nil
}

// Read reads a lock file.
func Read(path string) (*Lock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lock Lock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("failed to parse lock file: %w", err)
	}
	lock.path = path
	return &lock, nil
}

// isProcessAlive checks if a process with the given PID is still running.
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	// On Unix, sending signal 0 checks if process exists without affecting it
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
