// Package notify delivers human-visible alerts when a hunt ends.
//
// Delivery is best effort. Callers log a failed Alert and carry on; a failed
// notification never changes what the hunt loop does next.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/Iron-Ham/shinyhunt/internal/errors"
)

// Kind identifies why an alert was raised.
type Kind string

const (
	// KindRare means the rare variant was found and the hunt stopped.
	KindRare Kind = "rare"
	// KindStuck means an expected screen never appeared.
	KindStuck Kind = "stuck"
)

// Message is a single alert.
type Message struct {
	Kind       Kind
	Title      string
	Text       string
	RunID      string
	ResetCount int
	Confidence float64
	Timestamp  time.Time
}

// String renders the message as a single line suitable for chat and logs.
func (m Message) String() string {
	if m.Text == "" {
		return m.Title
	}
	if m.Title == "" {
		return m.Text
	}
	return fmt.Sprintf("%s: %s", m.Title, m.Text)
}

// Notifier delivers alerts.
type Notifier interface {
	// Alert sends msg. Implementations must honour ctx and return a
	// *errors.NotifyError on delivery failure.
	Alert(ctx context.Context, msg Message) error
}

// Multi fans an alert out to several notifiers. Every notifier is tried
// even when an earlier one fails.
type Multi []Notifier

// Alert implements Notifier. The returned error joins every failure.
func (m Multi) Alert(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Alert(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards every alert.
type Nop struct{}

// Alert implements Notifier.
func (Nop) Alert(context.Context, Message) error { return nil }
