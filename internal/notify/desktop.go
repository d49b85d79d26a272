package notify

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/Iron-Ham/shinyhunt/internal/errors"
)

// Desktop raises a desktop notification through notify-send.
type Desktop struct {
	// Command defaults to "notify-send".
	Command string
	// Urgency is passed as --urgency when set.
	Urgency string

	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewDesktop returns a notify-send notifier with critical urgency.
func NewDesktop() *Desktop {
	return &Desktop{Command: "notify-send", Urgency: "critical"}
}

// Alert implements Notifier.
func (d *Desktop) Alert(ctx context.Context, msg Message) error {
	cmd := d.Command
	if cmd == "" {
		cmd = "notify-send"
	}

	var args []string
	if d.Urgency != "" {
		args = append(args, "--urgency", d.Urgency)
	}
	title := msg.Title
	if title == "" {
		title = "shinyhunt"
	}
	args = append(args, title)
	if msg.Text != "" {
		args = append(args, msg.Text)
	}

	run := d.run
	if run == nil {
		run = runCommand
	}
	if out, err := run(ctx, cmd, args...); err != nil {
		detail := strings.TrimSpace(string(out))
		if detail != "" {
			err = fmt.Errorf("%w: %s", err, detail)
		}
		return errors.NewNotifyError("desktop", err)
	}
	return nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}
