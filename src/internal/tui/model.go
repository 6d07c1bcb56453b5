// FILE: adminfeed/src/internal/tui/model.go
package tui

import (
	"context"
	"time"

	"adminfeed/src/internal/core"
	"adminfeed/src/internal/feed"
	"adminfeed/src/internal/filter"

	tea "github.com/charmbracelet/bubbletea"
)

// Feed is the part of a feed synchronizer the UI drives
type Feed interface {
	Name() string
	View() feed.View
	Watch(fn func(feed.View)) (cancel func())
	Refresh(ctx context.Context) error
	SetFilter(ctx context.Context, c filter.Criteria) error
	Criteria() filter.Criteria
	EnableRealtime(ctx context.Context) error
	DisableRealtime()
	StartPolling(interval time.Duration) error
	StopPolling()
}

// DefaultCategories is the category cycle used when none is configured
var DefaultCategories = []string{core.CategoryAll, "error", "warn", "info", "debug"}

// Model is the bubbletea model of the live feed screen
type Model struct {
	ctx        context.Context
	feed       Feed
	views      chan feed.View
	categories []string

	view    feed.View
	width   int
	height  int
	message string
	err     error

	searching bool
	input     []rune
}

// Message types for the update loop
type viewMsg feed.View

type actionMsg struct {
	message string
	err     error
}

// NewModel creates the model; categories may be nil for DefaultCategories
func NewModel(ctx context.Context, f Feed, categories []string) Model {
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	return Model{
		ctx:        ctx,
		feed:       f,
		views:      make(chan feed.View, 1),
		categories: categories,
		view:       f.View(),
	}
}

// Init subscribes to feed views and loads the first page
func (m Model) Init() tea.Cmd {
	views := m.views
	m.feed.Watch(func(v feed.View) {
		offerLatest(views, v)
	})
	return tea.Batch(waitForView(m.views), refreshFeed(m.ctx, m.feed))
}

// offerLatest delivers v without blocking, replacing an undelivered older view
func offerLatest(ch chan feed.View, v feed.View) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case old := <-ch:
			if old.Version > v.Version {
				v = old
			}
		default:
		}
	}
}
