package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/oshokin/wake-me-up/internal/domain/geofence"
)

type keyMap struct {
	Acknowledge key.Binding
	Snooze      key.Binding
	Settings    key.Binding
	Dismiss     key.Binding
	Stop        key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Acknowledge: key.NewBinding(
			key.WithKeys("a", "enter"),
			key.WithHelp("a", "i'm awake"),
		),
		Snooze: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "snooze"),
		),
		Settings: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open settings"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "dismiss message"),
		),
		Stop: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "stop tracking"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Acknowledge, k.Snooze, k.Settings, k.Stop}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp(), {k.Dismiss}}
}

// sync enables the bindings that make sense in state.
func (k *keyMap) sync(state geofence.SessionState, blocked bool) {
	k.Acknowledge.SetEnabled(state == geofence.StateTriggered || state == geofence.StateSnoozed)
	k.Snooze.SetEnabled(state == geofence.StateTriggered)
	k.Settings.SetEnabled(blocked)
}
