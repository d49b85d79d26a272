package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Iron-Ham/shinyhunt/internal/sequence"
	"github.com/Iron-Ham/shinyhunt/internal/vision"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// maxActivity is the number of recent events kept for the activity list.
const maxActivity = 6

// Columns taken by the box border and padding, and by a row label.
const (
	boxChrome  = 6
	labelWidth = 12
)

// Messages

type tickMsg time.Time

type eventMsg sequence.Event

type doneMsg struct {
	err error
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "stop hunting"),
	),
}

// Model is the dashboard state. It only changes through Update, which is
// fed controller events by App.
type Model struct {
	spinner spinner.Model
	cancel  context.CancelFunc

	run       sequence.Run
	pos       sequence.Position
	stageName string
	now       time.Time

	captureFailures int
	actionFailures  int
	stuck           int
	lastErr         string
	activity        []string

	width    int
	done     bool
	err      error
	quitting bool
}

// NewModel creates a dashboard for run. cancel is called when the user
// quits; it should stop the controller.
func NewModel(run sequence.Run, cancel context.CancelFunc) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(primaryColor)
	return Model{
		spinner: sp,
		cancel:  cancel,
		run:     run,
		now:     run.Started,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		m.now = time.Time(msg)
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventMsg:
		m.apply(sequence.Event(msg))
		return m, nil

	case doneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) apply(e sequence.Event) {
	m.run = e.Run
	m.pos = e.Position
	m.stageName = e.StageName
	if !e.Time.IsZero() {
		m.now = e.Time
	}

	switch e.Kind {
	case sequence.EventReset:
		m.record(e.Time, fmt.Sprintf("reset #%d", e.Run.ResetCount))
	case sequence.EventCaptureFailed:
		m.captureFailures++
	case sequence.EventActionFailed:
		m.actionFailures++
		m.lastErr = fmt.Sprintf("key %s: %v", e.Key, e.Err)
	case sequence.EventAlertFailed:
		m.lastErr = fmt.Sprintf("alert: %v", e.Err)
		m.record(e.Time, "alert failed")
	case sequence.EventStuck:
		m.stuck++
		m.lastErr = fmt.Sprintf("stuck: %v", e.Err)
		m.record(e.Time, "stuck in "+e.Position.String())
	case sequence.EventOutcome:
		if e.Outcome != vision.NotDetected {
			m.record(e.Time, fmt.Sprintf("%s (%s %.3f)", e.Outcome, e.Result.Template, e.Result.Confidence))
		}
	}
}

func (m *Model) record(at time.Time, line string) {
	if !at.IsZero() {
		line = at.Format("15:04:05") + "  " + line
	}
	m.activity = append(m.activity, line)
	if len(m.activity) > maxActivity {
		m.activity = m.activity[len(m.activity)-maxActivity:]
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting && !m.done {
		return "Stopping hunt...\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("shinyhunt"))
	b.WriteString(mutedStyle.Render("  run " + m.run.ShortID()))
	b.WriteString("\n\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}

	row("Resets", textStyle.Render(fmt.Sprintf("%d", m.run.ResetCount)))
	row("State", m.renderState())
	row("Elapsed", textStyle.Render(m.run.Elapsed(m.now).Truncate(time.Second).String()))
	row("Last scan", m.renderOutcome())
	if m.captureFailures > 0 || m.actionFailures > 0 || m.stuck > 0 {
		row("Failures", warningStyle.Render(fmt.Sprintf("capture %d  keys %d  stuck %d", m.captureFailures, m.actionFailures, m.stuck)))
	}
	if m.lastErr != "" {
		row("Last error", errorStyle.Render(m.fit(m.lastErr, boxChrome+labelWidth)))
	}

	if len(m.activity) > 0 {
		b.WriteString("\n")
		for _, line := range m.activity {
			b.WriteString(mutedStyle.Render(m.fit(line, boxChrome)))
			b.WriteString("\n")
		}
	}

	out := boxStyle.Render(strings.TrimRight(b.String(), "\n"))
	if m.done {
		if m.err != nil {
			out += "\n" + errorStyle.Render("Hunt stopped: "+m.err.Error())
		}
		return out + "\n"
	}
	return out + "\n" + helpStyle.Render(keys.Quit.Help().Key+" "+keys.Quit.Help().Desc) + "\n"
}

// fit truncates s to the terminal width minus reserved columns. Before the
// first resize the width is unknown and s is left alone.
func (m Model) fit(s string, reserved int) string {
	maxWidth := m.width - reserved
	if m.width == 0 || lipgloss.Width(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return "..."
	}
	return ansi.Truncate(s, maxWidth, "...")
}

func (m Model) renderState() string {
	label := m.pos.String()
	if m.stageName != "" {
		label += " " + m.stageName
	}
	switch {
	case m.pos.State == sequence.StateTerminated:
		return rareStyle.Render("done")
	case m.stuck > 0 && m.pos.State.IsPolling():
		return stuckStyle.Render(label)
	case m.pos.State.IsPolling() && !m.done:
		return m.spinner.View() + " " + textStyle.Render(label)
	default:
		return textStyle.Render(label)
	}
}

func (m Model) renderOutcome() string {
	last := m.run.Last
	if last.Template == "" {
		return mutedStyle.Render("none yet")
	}
	text := fmt.Sprintf("%s  %s %.3f", m.run.Outcome, last.Template, last.Confidence)
	if m.run.Outcome == vision.RareMatch {
		return rareStyle.Render(text)
	}
	return textStyle.Render(text)
}
