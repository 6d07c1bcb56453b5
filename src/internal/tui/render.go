// FILE: adminfeed/src/internal/tui/render.go
package tui

import (
	"fmt"
	"strings"

	"adminfeed/src/internal/core"
	"adminfeed/src/internal/feed"
	"adminfeed/src/internal/format"

	"github.com/charmbracelet/lipgloss"
)

// Badge labels
const (
	BadgeLive         = "LIVE"
	BadgeReconnecting = "RECONNECTING"
	BadgePolling      = "POLLING"
	BadgePaused       = "PAUSED"
	BadgeClosed       = "CLOSED"
)

// Badge returns the status label for a view
func Badge(v feed.View) string {
	switch {
	case v.Closed:
		return BadgeClosed
	case v.Live():
		return BadgeLive
	case v.RealTime:
		return BadgeReconnecting
	case v.Polling:
		return BadgePolling
	default:
		return BadgePaused
	}
}

func renderBadge(v feed.View) string {
	label := Badge(v)
	switch label {
	case BadgeLive:
		return liveBadge.Render(label)
	case BadgeReconnecting:
		return reconnectingBadge.Render(label)
	case BadgePolling:
		return pollingBadge.Render(label)
	case BadgeClosed:
		return closedBadge.Render(label)
	default:
		return pausedBadge.Render(label)
	}
}

func categoryStyle(category string) lipgloss.Style {
	switch strings.ToLower(category) {
	case "error", "err", "fatal", "critical":
		return errorLogStyle
	case "warn", "warning":
		return warningLogStyle
	case "info", "notice":
		return infoLogStyle
	case "debug", "trace":
		return debugLogStyle
	default:
		return defaultLogStyle
	}
}

// RenderEntry renders one entry as a styled line no wider than maxWidth (0 means unbounded)
func RenderEntry(e core.Entry, maxWidth int) string {
	parts := []string{timestampStyle.Render(formatTime(e))}
	if e.Category != "" {
		parts = append(parts, categoryStyle(e.Category).Render(fmt.Sprintf("%-5s", strings.ToUpper(e.Category))))
	}
	if e.Origin != "" {
		parts = append(parts, originStyle.Render(e.Origin))
	}
	prefix := strings.Join(parts, " ") + " "

	msg := format.OneLine(e.Message)
	if maxWidth > 0 {
		room := maxWidth - lipgloss.Width(prefix)
		if room < 4 {
			room = 4
		}
		msg = truncate(msg, room)
	}
	return prefix + categoryStyle(e.Category).Render(msg)
}

func formatTime(e core.Entry) string {
	if e.Timestamp.IsZero() {
		return "--:--:--"
	}
	return e.Timestamp.Local().Format("15:04:05")
}

// truncate shortens s to at most max runes
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
