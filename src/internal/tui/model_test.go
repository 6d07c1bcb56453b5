// FILE: adminfeed/src/internal/tui/model_test.go
package tui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"adminfeed/src/internal/core"
	"adminfeed/src/internal/feed"
	"adminfeed/src/internal/filter"
	"adminfeed/src/internal/format"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeed struct {
	mu        sync.Mutex
	view      feed.View
	criteria  filter.Criteria
	watchers  []func(feed.View)
	refreshes int
	realtime  []bool
	polling   []bool
	filters   []filter.Criteria
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{
		view:     feed.View{Version: 1, Feed: "logs", Criteria: filter.Criteria{Category: core.CategoryAll}},
		criteria: filter.Criteria{Category: core.CategoryAll},
	}
}

func (f *fakeFeed) Name() string { return "logs" }

func (f *fakeFeed) View() feed.View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.view
}

func (f *fakeFeed) Watch(fn func(feed.View)) func() {
	f.mu.Lock()
	f.watchers = append(f.watchers, fn)
	v := f.view
	f.mu.Unlock()
	fn(v)
	return func() {}
}

func (f *fakeFeed) publish(v feed.View) {
	f.mu.Lock()
	f.view = v
	ws := append([]func(feed.View){}, f.watchers...)
	f.mu.Unlock()
	for _, w := range ws {
		w(v)
	}
}

func (f *fakeFeed) Refresh(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return nil
}

func (f *fakeFeed) SetFilter(_ context.Context, c filter.Criteria) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.criteria = c
	f.filters = append(f.filters, c)
	return nil
}

func (f *fakeFeed) Criteria() filter.Criteria {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.criteria
}

func (f *fakeFeed) EnableRealtime(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.realtime = append(f.realtime, true)
	return errors.New("dial refused")
}

func (f *fakeFeed) DisableRealtime() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.realtime = append(f.realtime, false)
}

func (f *fakeFeed) StartPolling(time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polling = append(f.polling, true)
	return nil
}

func (f *fakeFeed) StopPolling() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polling = append(f.polling, false)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends a key and runs the resulting command, feeding its message back
func press(t *testing.T, m Model, key tea.KeyMsg) Model {
	t.Helper()
	next, cmd := m.Update(key)
	m = next.(Model)
	if cmd != nil {
		msg := cmd()
		if _, quit := msg.(tea.QuitMsg); !quit {
			next, _ = m.Update(msg)
			m = next.(Model)
		}
	}
	return m
}

func TestModel_ViewVersions(t *testing.T) {
	f := newFakeFeed()
	m := NewModel(context.Background(), f, nil)

	newer := feed.View{Version: 5, Feed: "logs", Entries: []core.Entry{{ID: "a", Message: "newer"}}}
	older := feed.View{Version: 4, Feed: "logs", Entries: []core.Entry{{ID: "b", Message: "older"}}}

	next, cmd := m.Update(viewMsg(newer))
	m = next.(Model)
	assert.NotNil(t, cmd, "keeps waiting for views")

	next, _ = m.Update(viewMsg(older))
	m = next.(Model)
	assert.Equal(t, uint64(5), m.view.Version)
	assert.Contains(t, m.View(), "newer")
	assert.NotContains(t, m.View(), "older")
}

func TestModel_ClosedViewQuits(t *testing.T) {
	m := NewModel(context.Background(), newFakeFeed(), nil)
	_, cmd := m.Update(viewMsg(feed.View{Version: 2, Closed: true}))
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestModel_WatchBridge(t *testing.T) {
	f := newFakeFeed()
	m := NewModel(context.Background(), f, nil)
	m.Init()

	f.publish(feed.View{Version: 2, Feed: "logs"})
	f.publish(feed.View{Version: 3, Feed: "logs"})

	// Undelivered views collapse to the latest
	msg := waitForView(m.views)()
	assert.Equal(t, uint64(3), msg.(viewMsg).Version)
}

func TestOfferLatest(t *testing.T) {
	ch := make(chan feed.View, 1)
	offerLatest(ch, feed.View{Version: 7})
	offerLatest(ch, feed.View{Version: 6})
	assert.Equal(t, uint64(7), (<-ch).Version)
}

func TestModel_Keys(t *testing.T) {
	f := newFakeFeed()
	m := NewModel(context.Background(), f, nil)

	m = press(t, m, runes("r"))
	assert.Equal(t, 1, f.refreshes)
	assert.Equal(t, "Refreshed", m.message)

	m = press(t, m, runes("t"))
	assert.Equal(t, []bool{true}, f.realtime)
	require.Error(t, m.err)
	assert.Contains(t, m.View(), "dial refused")

	m.view.RealTime = true
	m = press(t, m, runes("t"))
	assert.Equal(t, []bool{true, false}, f.realtime)

	m = press(t, m, runes("p"))
	m.view.Polling = true
	m = press(t, m, runes("p"))
	assert.Equal(t, []bool{true, false}, f.polling)

	_, cmd := m.Update(runes("q"))
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestModel_CategoryCycle(t *testing.T) {
	f := newFakeFeed()
	m := NewModel(context.Background(), f, []string{"all", "error", "warn"})

	m = press(t, m, runes("c"))
	m = press(t, m, runes("c"))
	m = press(t, m, runes("c"))

	require.Len(t, f.filters, 3)
	assert.Equal(t, "error", f.filters[0].Category)
	assert.Equal(t, "warn", f.filters[1].Category)
	assert.Equal(t, "all", f.filters[2].Category)
}

func TestModel_Search(t *testing.T) {
	f := newFakeFeed()
	f.criteria = filter.Criteria{Category: "warn"}
	m := NewModel(context.Background(), f, nil)

	m = press(t, m, runes("/"))
	require.True(t, m.searching)
	m = press(t, m, runes("disk"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	m = press(t, m, runes("fullx"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Contains(t, m.View(), "search: disk full_")

	// Keys are text while searching
	assert.Equal(t, 0, f.refreshes)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.searching)
	require.Len(t, f.filters, 1)
	assert.Equal(t, filter.Criteria{Category: "warn", Search: "disk full"}, f.filters[0])

	// Esc cancels an edit without applying it
	m = press(t, m, runes("/"))
	m = press(t, m, runes("x"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.searching)
	assert.Len(t, f.filters, 1)

	// Esc outside search clears the filter
	press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.Len(t, f.filters, 2)
	assert.Equal(t, filter.Criteria{Category: core.CategoryAll}, f.filters[1])
}

func TestModel_ViewRendering(t *testing.T) {
	m := NewModel(context.Background(), newFakeFeed(), nil)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 8})
	m = next.(Model)

	ts := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	entries := []core.Entry{
		{ID: "1", Timestamp: ts, Category: "error", Message: "disk full", Origin: "storage"},
		{ID: "2", Timestamp: ts, Category: "info", Message: "second"},
		{ID: "3", Timestamp: ts, Category: "info", Message: "third"},
	}
	next, _ = m.Update(viewMsg(feed.View{
		Version:  9,
		Feed:     "logs",
		Entries:  entries,
		Criteria: filter.Criteria{Category: "all"},
		State:    core.StateJoined,
		RealTime: true,
		Err:      errors.New("502 bad gateway"),
	}))
	m = next.(Model)

	out := m.View()
	assert.Contains(t, out, "adminfeed · logs")
	assert.Contains(t, out, BadgeLive)
	assert.Contains(t, out, "disk full")
	assert.Contains(t, out, "storage")
	assert.Contains(t, out, "502 bad gateway")
	assert.Contains(t, out, "3 entries")
	// Height 8 leaves two entry rows
	assert.NotContains(t, out, "third")
}

func TestBadge(t *testing.T) {
	testCases := []struct {
		view     feed.View
		expected string
	}{
		{feed.View{RealTime: true, State: core.StateJoined}, BadgeLive},
		{feed.View{RealTime: true, State: core.StateConnecting, Polling: true}, BadgeReconnecting},
		{feed.View{Polling: true, State: core.StateJoined}, BadgePolling},
		{feed.View{}, BadgePaused},
		{feed.View{Closed: true, RealTime: true, State: core.StateJoined}, BadgeClosed},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, Badge(tc.view))
	}
}

func TestRenderEntry(t *testing.T) {
	e := core.Entry{Timestamp: time.Now(), Category: "warn", Message: "line one\nline two " + strings.Repeat("x", 200)}
	out := RenderEntry(e, 60)
	assert.NotContains(t, out, "\n")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "line one line two")
	assert.Contains(t, out, "...")
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, format.NewRawFormatter())
	ts := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	a := core.Entry{ID: "a", Timestamp: ts, Message: "first"}
	b := core.Entry{ID: "b", Timestamp: ts.Add(time.Second), Message: "second"}

	p.Print(feed.View{Version: 1, Polling: true, Entries: []core.Entry{a}})
	p.Print(feed.View{Version: 2, Polling: true, Entries: []core.Entry{b, a}})
	p.Print(feed.View{Version: 1, Polling: true, Entries: []core.Entry{{ID: "z", Message: "stale"}}})
	p.Print(feed.View{Version: 3, RealTime: true, State: core.StateJoined, Entries: []core.Entry{b, a}})

	assert.Equal(t,
		"first\n"+
			"second\n"+
			"-- LIVE --\n",
		buf.String())
}

func TestPrinter_SameEventGainsID(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, format.NewRawFormatter())
	ts := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

	// Pushed without id, then fetched with the server id
	p.Print(feed.View{Version: 1, Entries: []core.Entry{{Timestamp: ts, Message: "disk full"}}})
	p.Print(feed.View{Version: 2, Entries: []core.Entry{{ID: "a1", Timestamp: ts, Message: "disk full"}}})
	p.Print(feed.View{Version: 3, Entries: []core.Entry{
		{Timestamp: ts.Add(time.Second), Message: "disk ok"},
		{ID: "a1", Timestamp: ts, Message: "disk full"},
	}})

	assert.Equal(t, "disk full\ndisk ok\n", buf.String())
}

func TestPrintEntries(t *testing.T) {
	var buf bytes.Buffer
	f, err := format.NewTextFormatter(nil, nil)
	require.NoError(t, err)

	ts := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	require.NoError(t, PrintEntries(&buf, f, []core.Entry{
		{Timestamp: ts, Category: "error", Origin: "storage", Message: "disk full"},
		{Message: "orphan"},
	}))
	assert.Equal(t, "2024-03-01T10:30:00Z [error] storage: disk full\n- orphan\n", buf.String())
}
