// FILE: adminfeed/src/internal/tui/view.go
package tui

import (
	"fmt"
	"strings"
	"time"
)

// Lines taken by header, filter, status and help
const chromeLines = 6

// View renders the feed screen
func (m Model) View() string {
	var b strings.Builder

	title := titleStyle.Render("adminfeed · " + m.view.Feed)
	b.WriteString(title + " " + renderBadge(m.view))
	if !m.view.RefreshedAt.IsZero() {
		b.WriteString(" " + timestampStyle.Render("refreshed "+m.view.RefreshedAt.Local().Format(time.TimeOnly)))
	}
	b.WriteString("\n")

	if m.searching {
		b.WriteString(inputStyle.Render("search: " + string(m.input) + "_"))
	} else {
		b.WriteString(filterStyle.Render("filter: " + m.view.Criteria.String()))
	}
	b.WriteString("\n")

	switch {
	case m.view.Err != nil:
		b.WriteString(errorStyle.Render("fetch failed: " + m.view.Err.Error()))
	case m.err != nil:
		b.WriteString(errorStyle.Render(m.message + ": " + m.err.Error()))
	case m.message != "":
		b.WriteString(messageStyle.Render(m.message))
	}
	b.WriteString("\n")

	entries := m.view.Entries
	if n := m.visibleLines(); n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	if len(entries) == 0 {
		b.WriteString(timestampStyle.Render("no entries"))
		b.WriteString("\n")
	}
	for _, e := range entries {
		b.WriteString(RenderEntry(e, m.width))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render(fmt.Sprintf("%d entries  q quit  r refresh  t real-time  p polling  c category  / search  esc clear",
		len(m.view.Entries))))
	return b.String()
}

// visibleLines is the number of entry rows that fit, 0 when the height is unknown
func (m Model) visibleLines() int {
	if m.height == 0 {
		return 0
	}
	return max(m.height-chromeLines, 1)
}
