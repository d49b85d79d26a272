//go:build robotgo

package input

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-vgo/robotgo"
)

func init() {
	factories["robotgo"] = func(hold time.Duration) Actuator { return NewRobotgo(hold) }
}

// robotgoNames maps key names to robotgo's lowercase names.
var robotgoNames = map[string]string{
	"return":    "enter",
	"escape":    "esc",
	"backspace": "backspace",
	"pgup":      "pageup",
	"pgdown":    "pagedown",
	"super":     "cmd",
	"plus":      "+",
}

// Robotgo presses keys through robotgo's native bindings. It needs cgo and
// the binary built with -tags robotgo.
type Robotgo struct {
	Hold time.Duration
}

// NewRobotgo creates a robotgo actuator. A hold of 0 uses DefaultHold.
func NewRobotgo(hold time.Duration) *Robotgo {
	if hold <= 0 {
		hold = DefaultHold
	}
	return &Robotgo{Hold: hold}
}

// Press implements Actuator.
func (r *Robotgo) Press(ctx context.Context, key string) error {
	k, err := ParseKey(key)
	if err != nil {
		return err
	}
	name := robotgoKey(k.Name)
	mods := make([]interface{}, 0, len(k.Modifiers))
	for _, m := range k.Modifiers {
		mods = append(mods, robotgoKey(m))
	}

	if err := robotgo.KeyToggle(name, append([]interface{}{"down"}, mods...)...); err != nil {
		return fmt.Errorf("key down %s: %w", k, err)
	}
	holdErr := hold(ctx, r.Hold)
	if err := robotgo.KeyToggle(name, append([]interface{}{"up"}, mods...)...); err != nil {
		return fmt.Errorf("key up %s: %w", k, err)
	}
	return holdErr
}

func robotgoKey(name string) string {
	lower := strings.ToLower(name)
	if mapped, ok := robotgoNames[lower]; ok {
		return mapped
	}
	return lower
}
