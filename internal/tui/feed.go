package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/oshokin/wake-me-up/internal/tracking"
)

const feedBuffer = 16

// Feed buffers session snapshots for the UI.
// Observe never blocks: when the buffer is full the oldest snapshot is dropped.
type Feed struct {
	ch chan tracking.Snapshot
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{ch: make(chan tracking.Snapshot, feedBuffer)}
}

// Observe is a tracking.Observer.
func (f *Feed) Observe(s tracking.Snapshot) {
	for {
		select {
		case f.ch <- s:
			return
		default:
		}

		select {
		case <-f.ch:
		default:
		}
	}
}

func (f *Feed) next(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-f.ch:
			return snapshotMsg(s)
		case <-ctx.Done():
			return nil
		}
	}
}
