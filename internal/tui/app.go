// Package tui renders a live dashboard of a running hunt.
//
// App is a sequence.Observer. Controller events are queued and forwarded to
// the Bubble Tea program from a separate goroutine so the controller never
// waits on rendering.
package tui

import (
	"context"
	"io"
	"sync"

	"github.com/Iron-Ham/shinyhunt/internal/sequence"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sourcegraph/conc"
)

// eventQueueSize bounds the events waiting for the program. When full,
// state changes are dropped; the next event carries the current position.
const eventQueueSize = 256

// App wraps the Bubbletea program
type App struct {
	program *tea.Program
	events  chan sequence.Event
	wg      conc.WaitGroup

	mu     sync.Mutex
	closed bool
}

// Option configures an App.
type Option func(*[]tea.ProgramOption)

// WithOutput renders to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(opts *[]tea.ProgramOption) {
		*opts = append(*opts, tea.WithOutput(w))
	}
}

// WithInput reads keys from r instead of stdin.
func WithInput(r io.Reader) Option {
	return func(opts *[]tea.ProgramOption) {
		*opts = append(*opts, tea.WithInput(r))
	}
}

// New creates a dashboard for run. cancel is called when the user quits.
func New(run sequence.Run, cancel context.CancelFunc, opts ...Option) *App {
	var popts []tea.ProgramOption
	for _, opt := range opts {
		opt(&popts)
	}
	a := &App{
		program: tea.NewProgram(NewModel(run, cancel), popts...),
		events:  make(chan sequence.Event, eventQueueSize),
	}
	a.wg.Go(a.forward)
	return a
}

func (a *App) forward() {
	for e := range a.events {
		a.program.Send(eventMsg(e))
	}
}

// Observe implements sequence.Observer. Frames are dropped; the dashboard
// does not render them.
func (a *App) Observe(e sequence.Event) {
	e.Frame = nil
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	select {
	case a.events <- e:
	default:
	}
}

// Run blocks until the user quits or Done is called.
func (a *App) Run() error {
	_, err := a.program.Run()
	return err
}

// Done shows the final state and exits the program. err is the hunt's
// result, nil for a found rare variant.
func (a *App) Done(err error) {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.events)
	}
	a.mu.Unlock()
	a.wg.Wait()
	a.program.Send(doneMsg{err: err})
}
