// FILE: adminfeed/src/internal/tui/commands.go
package tui

import (
	"context"

	"adminfeed/src/internal/feed"
	"adminfeed/src/internal/filter"

	tea "github.com/charmbracelet/bubbletea"
)

// waitForView waits for the next published view
func waitForView(views <-chan feed.View) tea.Cmd {
	return func() tea.Msg {
		return viewMsg(<-views)
	}
}

func refreshFeed(ctx context.Context, f Feed) tea.Cmd {
	return func() tea.Msg {
		return actionMsg{message: "Refreshed", err: f.Refresh(ctx)}
	}
}

func setFilter(ctx context.Context, f Feed, c filter.Criteria) tea.Cmd {
	return func() tea.Msg {
		return actionMsg{message: "Filter: " + c.String(), err: f.SetFilter(ctx, c)}
	}
}

func toggleRealtime(ctx context.Context, f Feed, on bool) tea.Cmd {
	return func() tea.Msg {
		if !on {
			f.DisableRealtime()
			return actionMsg{message: "Real-time off"}
		}
		return actionMsg{message: "Real-time on", err: f.EnableRealtime(ctx)}
	}
}

func togglePolling(f Feed, on bool) tea.Cmd {
	return func() tea.Msg {
		if !on {
			f.StopPolling()
			return actionMsg{message: "Polling off"}
		}
		return actionMsg{message: "Polling on", err: f.StartPolling(0)}
	}
}
