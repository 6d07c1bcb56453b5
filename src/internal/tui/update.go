// FILE: adminfeed/src/internal/tui/update.go
package tui

import (
	"strings"

	"adminfeed/src/internal/core"
	"adminfeed/src/internal/feed"
	"adminfeed/src/internal/filter"

	tea "github.com/charmbracelet/bubbletea"
)

// Update handles messages and updates the model state
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case viewMsg:
		// Views can race across goroutines; never render an older one
		if msg.Version >= m.view.Version {
			m.view = feed.View(msg)
		}
		if m.view.Closed {
			return m, tea.Quit
		}
		return m, waitForView(m.views)

	case actionMsg:
		m.message = msg.message
		m.err = msg.err

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "r":
			m.message = "Refreshing..."
			return m, refreshFeed(m.ctx, m.feed)

		case "t":
			return m, toggleRealtime(m.ctx, m.feed, !m.view.RealTime)

		case "p":
			return m, togglePolling(m.feed, !m.view.Polling)

		case "c":
			c := m.feed.Criteria()
			c.Category = m.nextCategory(c.Category)
			return m, setFilter(m.ctx, m.feed, c)

		case "/":
			m.searching = true
			m.input = []rune(m.feed.Criteria().Search)

		case "esc":
			return m, setFilter(m.ctx, m.feed, filter.Criteria{Category: core.CategoryAll})
		}
	}

	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyEsc:
		m.searching = false
		m.input = nil

	case tea.KeyEnter:
		m.searching = false
		c := m.feed.Criteria()
		c.Search = strings.TrimSpace(string(m.input))
		m.input = nil
		return m, setFilter(m.ctx, m.feed, c)

	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}

	case tea.KeySpace:
		m.input = append(m.input, ' ')

	case tea.KeyRunes:
		m.input = append(m.input, msg.Runes...)
	}
	return m, nil
}

// nextCategory returns the category after current in the cycle
func (m Model) nextCategory(current string) string {
	for i, c := range m.categories {
		if strings.EqualFold(c, current) {
			return m.categories[(i+1)%len(m.categories)]
		}
	}
	if current == "" {
		for i, c := range m.categories {
			if c == core.CategoryAll {
				return m.categories[(i+1)%len(m.categories)]
			}
		}
	}
	return m.categories[0]
}
