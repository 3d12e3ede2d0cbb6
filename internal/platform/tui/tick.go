// Package tui provides the Bubble Tea front end for the player: it shows
// the sandbox's presented frames, the virtual controller and the log
// panel, and feeds terminal input back to the sandbox.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// RefreshMsg is sent when a new frame was presented or the log changed.
type RefreshMsg struct{}

// waitRefresh returns a command that blocks until the next refresh signal.
// The channel coalesces bursts, so at most one RefreshMsg is in flight.
func waitRefresh(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return RefreshMsg{}
	}
}
