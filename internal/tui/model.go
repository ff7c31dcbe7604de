package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/oshokin/wake-me-up/internal/domain/geofence"
	"github.com/oshokin/wake-me-up/internal/tracking"
)

const (
	progressWidth = 40
	panelMinWidth = 48
)

// Controller is the part of a tracking session the UI drives.
type Controller interface {
	Status() tracking.Snapshot
	Acknowledge(ctx context.Context) error
	Snooze(ctx context.Context, d time.Duration) error
	Stop(ctx context.Context) error
}

// Options tune the model.
type Options struct {
	// SnoozeDuration is passed to Snooze; zero uses the session default.
	SnoozeDuration time.Duration
	// OpenSettings is invoked by the settings key. Nil hides the binding.
	OpenSettings func() error
}

type (
	snapshotMsg tracking.Snapshot

	resultMsg struct {
		action string
		err    error
		quit   bool
	}
)

// Model is the bubbletea model of a tracking session.
type Model struct {
	ctx        context.Context //nolint:containedctx // Commands run outside Update and need the session context.
	controller Controller
	feed       *Feed
	options    Options

	keys     keyMap
	help     help.Model
	progress progress.Model

	snapshot        tracking.Snapshot
	initialDistance *float64
	message         string
	err             error
	width           int
	stopping        bool
}

// NewModel creates a model over controller, updated from feed.
func NewModel(ctx context.Context, controller Controller, feed *Feed, opts Options) Model {
	m := Model{
		ctx:        ctx,
		controller: controller,
		feed:       feed,
		options:    opts,
		keys:       newKeyMap(),
		help:       help.New(),
		progress:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(progressWidth)),
	}

	m.apply(controller.Status())

	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.feed.next(m.ctx)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

		return m, nil

	case snapshotMsg:
		m.apply(tracking.Snapshot(msg))

		if m.snapshot.Closed {
			return m, tea.Quit
		}

		return m, m.feed.next(m.ctx)

	case resultMsg:
		return m.handleResult(msg)

	case progress.FrameMsg:
		model, cmd := m.progress.Update(msg)
		if p, ok := model.(progress.Model); ok {
			m.progress = p
		}

		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Stop):
		if m.stopping {
			return m, tea.Quit
		}

		m.stopping = true
		m.message = "Stopping..."

		return m, m.call("stopped", true, func(ctx context.Context) error {
			return m.controller.Stop(ctx)
		})

	case key.Matches(msg, m.keys.Acknowledge):
		return m, m.call("acknowledged, tracking stopped", true, func(ctx context.Context) error {
			return m.controller.Acknowledge(ctx)
		})

	case key.Matches(msg, m.keys.Snooze):
		return m, m.call("snoozed", false, func(ctx context.Context) error {
			return m.controller.Snooze(ctx, m.options.SnoozeDuration)
		})

	case key.Matches(msg, m.keys.Settings):
		if m.options.OpenSettings == nil {
			return m, nil
		}

		return m, m.call("settings opened", false, func(context.Context) error {
			return m.options.OpenSettings()
		})

	case key.Matches(msg, m.keys.Dismiss):
		m.message = ""
		m.err = nil
	}

	return m, nil
}

func (m Model) handleResult(msg resultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.stopping = false
		m.message = ""

		if errors.Is(msg.err, tracking.ErrSessionClosed) {
			return m, tea.Quit
		}

		m.err = fmt.Errorf("%s: %w", msg.action, msg.err)

		return m, nil
	}

	m.err = nil
	m.message = msg.action

	if msg.quit {
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) call(action string, quit bool, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return resultMsg{
			action: action,
			err:    fn(m.ctx),
			quit:   quit,
		}
	}
}

func (m *Model) apply(s tracking.Snapshot) {
	m.snapshot = s

	if m.initialDistance == nil && s.LastDistanceMeters != nil {
		initial := *s.LastDistanceMeters
		m.initialDistance = &initial
	}

	m.keys.sync(s.State, s.Condition.Blocking() && m.options.OpenSettings != nil)
}

// Progress is the share of the way from the first evaluated distance to the geofence edge.
func (m Model) Progress() float64 {
	s := m.snapshot
	if s.LastDistanceMeters == nil || m.initialDistance == nil {
		return 0
	}

	radius := float64(s.Target.RadiusMeters)
	if *s.LastDistanceMeters <= radius {
		return 1
	}

	span := *m.initialDistance - radius
	if span <= 0 {
		return 0
	}

	return clamp(1-(*s.LastDistanceMeters-radius)/span, 0, 1)
}

// View implements tea.Model.
func (m Model) View() string {
	s := m.snapshot

	var b strings.Builder

	b.WriteString(titleStyle.Render("Wake Me Up") + " " + stateBadge(s.State) + "\n\n")

	distance := distanceStyle
	if s.LastDistanceMeters != nil && s.Target.Contains(*s.LastDistanceMeters) {
		distance = distance.Foreground(errorColor)
	}

	rows := []string{
		row("Destination", s.LocationName),
		row("Distance", distance.Render(s.DistanceText())),
		row("Radius", geofence.FormatDistance(float64(s.Target.RadiusMeters))),
		row("Alarm", s.Target.AlarmMode.String()),
	}

	if s.LastPosition != nil {
		rows = append(rows, row("Last fix", s.LastPosition.Timestamp.Local().Format(time.TimeOnly)))
	}

	if s.SnoozeRemainingSeconds != nil {
		rows = append(rows, row("Snoozed", fmt.Sprintf("resumes in %d s", *s.SnoozeRemainingSeconds)))
	}

	rows = append(rows, "", m.progress.ViewAs(m.Progress()))

	if s.State == geofence.StateTriggered {
		rows = append(rows, "", errorStyle.Bold(true).Render("You have arrived! Press a to stop or s to snooze."))
	}

	style := panelStyle
	if s.State == geofence.StateTriggered {
		style = alarmPanelStyle
	}

	b.WriteString(style.Width(max(panelMinWidth, m.width-2)).Render(lipgloss.JoinVertical(lipgloss.Left, rows...)))
	b.WriteString("\n")

	if text := s.Condition.Message(); text != "" {
		b.WriteString(conditionStyle.Render(text) + "\n")
	}

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render("Error: "+m.err.Error()) + "\n")
	case m.message != "":
		b.WriteString(messageStyle.Render(m.message) + "\n")
	}

	b.WriteString("\n" + m.help.View(m.keys))

	return b.String()
}

// Snapshot returns the last applied snapshot.
func (m Model) Snapshot() tracking.Snapshot {
	return m.snapshot
}

// Run shows the UI until the session closes, the user quits or ctx is canceled.
func Run(ctx context.Context, controller Controller, feed *Feed, opts Options) error {
	program := tea.NewProgram(
		NewModel(ctx, controller, feed, opts),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run terminal UI: %w", err)
	}

	return nil
}

func row(label, value string) string {
	return labelStyle.Render(label) + value
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
