package input

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// keyUpTimeout bounds the key-up command, which runs even after ctx is
// canceled so no key is left held down.
const keyUpTimeout = 2 * time.Second

// Xdotool presses keys with the xdotool command against the focused window.
type Xdotool struct {
	Hold time.Duration

	run func(ctx context.Context, name string, args ...string) error
}

// NewXdotool creates an xdotool actuator. A hold of 0 uses DefaultHold.
func NewXdotool(hold time.Duration) *Xdotool {
	if hold <= 0 {
		hold = DefaultHold
	}
	return &Xdotool{Hold: hold}
}

// Press implements Actuator.
func (x *Xdotool) Press(ctx context.Context, key string) error {
	k, err := ParseKey(key)
	if err != nil {
		return err
	}
	sym := x11Chord(k)

	if err := x.exec(ctx, "keydown", sym); err != nil {
		return fmt.Errorf("key down %s: %w", sym, err)
	}
	holdErr := hold(ctx, x.Hold)

	upCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), keyUpTimeout)
	defer cancel()
	if err := x.exec(upCtx, "keyup", sym); err != nil {
		return fmt.Errorf("key up %s: %w", sym, err)
	}
	return holdErr
}

func (x *Xdotool) exec(ctx context.Context, args ...string) error {
	run := x.run
	if run == nil {
		run = runXdotool
	}
	return run(ctx, "xdotool", args...)
}

func runXdotool(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		if detail := strings.TrimSpace(string(out)); detail != "" {
			return fmt.Errorf("%w: %s", err, detail)
		}
		return err
	}
	return nil
}

// x11Chord renders k as an xdotool key argument such as "ctrl+r".
func x11Chord(k Key) string {
	name := MapKeyToX11(k.Name)
	if len(k.Modifiers) == 0 {
		return name
	}
	return strings.Join(k.Modifiers, "+") + "+" + name
}
