// Package errors provides centralized error definitions and error handling utilities
// for shinyhunt. It defines sentinel errors for each failure class the hunt loop
// knows about, typed errors carrying context, and classification helpers.
//
// # Error Types
//
// Domain-specific errors represent failures from specific subsystems:
//   - CaptureError: the emulator window could not be found or grabbed
//   - TemplateError: a reference template could not be loaded
//   - NotifyError: an alert could not be delivered
//   - StuckError: an expected screen never appeared within the stage timeout
//
// A rare-variant detection is not an error. The controller reports it as an
// outcome and returns nil.
//
// # Usage
//
//	err := errors.NewCaptureError("grab failed", cause).WithWindow("mGBA - 0.10.4")
//
//	if errors.Is(err, errors.ErrCaptureUnavailable) { ... }
//
//	var stuck *errors.StuckError
//	if errors.As(err, &stuck) { ... }
//
//	if errors.IsRetryable(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is   = errors.Is
	As   = errors.As
	New  = errors.New
	Join = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Capture-related sentinel errors
var (
	// ErrCaptureUnavailable indicates that no frame could be produced.
	ErrCaptureUnavailable = New("capture unavailable")
	// ErrWindowNotFound indicates that the emulator window is not open.
	ErrWindowNotFound = New("window not found")
	// ErrNoFrames indicates that a replay source has no frames left.
	ErrNoFrames = New("no frames available")
)

// Classification-related sentinel errors
var (
	// ErrTemplateMissing indicates that a reference template failed to load.
	ErrTemplateMissing = New("template missing")
	// ErrTemplateTooLarge indicates that a template is larger than the frame.
	ErrTemplateTooLarge = New("template larger than frame")
)

// Sequence-related sentinel errors
var (
	// ErrStageStuck indicates that an expected screen never appeared.
	ErrStageStuck = New("stage stuck")
	// ErrNoStages indicates an empty stage table.
	ErrNoStages = New("no stages configured")
)

// Delivery-related sentinel errors
var (
	// ErrNotificationFailed indicates that an alert could not be delivered.
	ErrNotificationFailed = New("notification failed")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// HuntError is the base interface for all shinyhunt errors.
type HuntError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on the next poll.
	IsRetryable() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	severity  Severity
	retryable bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// formatWithContext renders "<kind> [k=v, ...]: message: cause".
func formatWithContext(kind string, parts []string, message string, cause error) string {
	prefix := kind
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", kind, strings.Join(parts, ", "))
	}
	if cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, message, cause)
	}
	return fmt.Sprintf("%s: %s", prefix, message)
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// CaptureError represents a failure to obtain a frame of the emulator window.
// Capture errors are retryable unless marked Permanent: the controller treats
// a retryable one as "screen not yet present" and stops on a permanent one.
//
// Example:
//
//	err := errors.NewCaptureError("window lookup failed", errors.ErrWindowNotFound)
//	err = err.WithWindow("mGBA - 0.10.4")
//	fmt.Println(err) // "capture error [window=mGBA - 0.10.4]: window lookup failed: window not found"
type CaptureError struct {
	baseError
	Window string
}

// NewCaptureError creates a new CaptureError.
func NewCaptureError(message string, cause error) *CaptureError {
	return &CaptureError{
		baseError: baseError{
			message:   message,
			cause:     cause,
			severity:  SeverityWarning,
			retryable: true,
		},
	}
}

// WithWindow adds the window title to the error context.
func (e *CaptureError) WithWindow(title string) *CaptureError {
	e.Window = title
	return e
}

// Permanent marks a failure that no later capture can recover from, such as
// a frame replay that has run out.
func (e *CaptureError) Permanent() *CaptureError {
	e.retryable = false
	e.severity = SeverityError
	return e
}

// Error returns the formatted error message.
func (e *CaptureError) Error() string {
	var parts []string
	if e.Window != "" {
		parts = append(parts, fmt.Sprintf("window=%s", e.Window))
	}
	return formatWithContext("capture error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *CaptureError) Is(target error) bool {
	if _, ok := target.(*CaptureError); ok {
		return true
	}
	if target == ErrCaptureUnavailable {
		return true
	}
	return e.baseError.Is(target)
}

// TemplateError represents a reference template that could not be loaded.
type TemplateError struct {
	baseError
	Name string
	Path string
}

// NewTemplateError creates a new TemplateError.
func NewTemplateError(name string, cause error) *TemplateError {
	return &TemplateError{
		baseError: baseError{
			message:  "failed to load template",
			cause:    cause,
			severity: SeverityWarning,
		},
		Name: name,
	}
}

// WithPath adds the template file path to the error context.
func (e *TemplateError) WithPath(path string) *TemplateError {
	e.Path = path
	return e
}

// Error returns the formatted error message.
func (e *TemplateError) Error() string {
	var parts []string
	if e.Name != "" {
		parts = append(parts, fmt.Sprintf("template=%s", e.Name))
	}
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	return formatWithContext("template error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *TemplateError) Is(target error) bool {
	if _, ok := target.(*TemplateError); ok {
		return true
	}
	if target == ErrTemplateMissing {
		return true
	}
	return e.baseError.Is(target)
}

// NotifyError represents an alert that could not be delivered.
//
// Example:
//
//	err := errors.NewNotifyError("webhook", nil).WithStatus(429)
//	fmt.Println(err) // "notify error [notifier=webhook, status=429]: delivery failed"
type NotifyError struct {
	baseError
	Notifier   string
	StatusCode int
}

// NewNotifyError creates a new NotifyError.
func NewNotifyError(notifier string, cause error) *NotifyError {
	return &NotifyError{
		baseError: baseError{
			message:  "delivery failed",
			cause:    cause,
			severity: SeverityError,
		},
		Notifier: notifier,
	}
}

// WithStatus adds the HTTP status code returned by the endpoint.
func (e *NotifyError) WithStatus(code int) *NotifyError {
	e.StatusCode = code
	return e
}

// Error returns the formatted error message.
func (e *NotifyError) Error() string {
	var parts []string
	if e.Notifier != "" {
		parts = append(parts, fmt.Sprintf("notifier=%s", e.Notifier))
	}
	if e.StatusCode != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	return formatWithContext("notify error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *NotifyError) Is(target error) bool {
	if _, ok := target.(*NotifyError); ok {
		return true
	}
	if target == ErrNotificationFailed {
		return true
	}
	return e.baseError.Is(target)
}

// StuckError reports that the controller gave up waiting for a screen.
//
// Example:
//
//	err := errors.NewStuckError("bag", "bag", 30*time.Second)
//	fmt.Println(err) // "stuck error [stage=bag, screen=bag]: screen did not appear within 30s"
type StuckError struct {
	baseError
	Stage  string
	Screen string
	Waited time.Duration
}

// NewStuckError creates a new StuckError.
func NewStuckError(stage, screen string, waited time.Duration) *StuckError {
	return &StuckError{
		baseError: baseError{
			message:  fmt.Sprintf("screen did not appear within %s", waited),
			severity: SeverityCritical,
		},
		Stage:  stage,
		Screen: screen,
		Waited: waited,
	}
}

// Error returns the formatted error message.
func (e *StuckError) Error() string {
	var parts []string
	if e.Stage != "" {
		parts = append(parts, fmt.Sprintf("stage=%s", e.Stage))
	}
	if e.Screen != "" {
		parts = append(parts, fmt.Sprintf("screen=%s", e.Screen))
	}
	return formatWithContext("stuck error", parts, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *StuckError) Is(target error) bool {
	if _, ok := target.(*StuckError); ok {
		return true
	}
	if target == ErrStageStuck || target == ErrTimeout {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may clear on the next poll tick.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var huntErr HuntError
	if As(err, &huntErr) {
		return huntErr.IsRetryable()
	}

	return Is(err, ErrCaptureUnavailable)
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement HuntError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var huntErr HuntError
	if As(err, &huntErr) {
		return huntErr.Severity()
	}

	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
