// Package input presses keys in the emulator window.
//
// Keys are written the way the stage table and config files spell them:
// "x", "Left", "ctrl+r". ParseKey splits modifiers from the base key, and
// each backend maps the base key to its own naming.
package input

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DefaultHold is how long a key stays down.
const DefaultHold = 100 * time.Millisecond

// Actuator presses a key: key down, hold, key up.
type Actuator interface {
	Press(ctx context.Context, key string) error
}

// Key is a parsed key chord.
type Key struct {
	Name      string
	Modifiers []string
}

var modifierAliases = map[string]string{
	"ctrl":    "ctrl",
	"control": "ctrl",
	"alt":     "alt",
	"shift":   "shift",
	"super":   "super",
	"cmd":     "super",
	"meta":    "super",
}

// ParseKey parses "ctrl+shift+r" style chords. Modifier names are case
// insensitive; the base key keeps its case.
func ParseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Key{}, fmt.Errorf("empty key")
	}
	if s == "+" {
		return Key{Name: "plus"}, nil
	}

	parts := strings.Split(s, "+")
	name := parts[len(parts)-1]
	if name == "" {
		return Key{}, fmt.Errorf("key %q has no base key", s)
	}

	var mods []string
	for _, p := range parts[:len(parts)-1] {
		m, ok := modifierAliases[strings.ToLower(strings.TrimSpace(p))]
		if !ok {
			return Key{}, fmt.Errorf("key %q has unknown modifier %q", s, p)
		}
		mods = append(mods, m)
	}
	return Key{Name: name, Modifiers: mods}, nil
}

// String renders the chord back in "ctrl+r" form.
func (k Key) String() string {
	if len(k.Modifiers) == 0 {
		return k.Name
	}
	return strings.Join(k.Modifiers, "+") + "+" + k.Name
}

// x11Names maps lowercase key names to X keysyms.
var x11Names = map[string]string{
	"up":        "Up",
	"down":      "Down",
	"left":      "Left",
	"right":     "Right",
	"enter":     "Return",
	"return":    "Return",
	"esc":       "Escape",
	"escape":    "Escape",
	"backspace": "BackSpace",
	"tab":       "Tab",
	"space":     "space",
	"home":      "Home",
	"end":       "End",
	"pgup":      "Prior",
	"pgdown":    "Next",
	"delete":    "Delete",
	"insert":    "Insert",
	"plus":      "plus",
}

// MapKeyToX11 converts a key name to the X keysym xdotool expects. Single
// characters and names it does not know pass through unchanged.
func MapKeyToX11(name string) string {
	if len(name) == 1 {
		return name
	}
	if sym, ok := x11Names[strings.ToLower(name)]; ok {
		return sym
	}
	return name
}

// Backends lists the names accepted by New.
func Backends() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var factories = map[string]func(hold time.Duration) Actuator{
	"xdotool": func(hold time.Duration) Actuator { return NewXdotool(hold) },
}

// New returns the named backend. Backends compiled behind build tags
// register themselves in init.
func New(backend string, hold time.Duration) (Actuator, error) {
	if backend == "" {
		backend = "xdotool"
	}
	factory, ok := factories[backend]
	if !ok {
		return nil, fmt.Errorf("unknown input backend %q (available: %s)", backend, strings.Join(Backends(), ", "))
	}
	return factory(hold), nil
}

// hold sleeps for d unless ctx is done first.
func hold(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
