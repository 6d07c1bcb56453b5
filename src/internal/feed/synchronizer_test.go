// FILE: adminfeed/src/internal/feed/synchronizer_test.go
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"adminfeed/src/internal/config"
	"adminfeed/src/internal/core"
	"adminfeed/src/internal/filter"
	"adminfeed/src/internal/registry"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testFeed struct {
	sync      *Synchronizer
	transport *fakeTransport
	registry  *registry.Registry
	querier   *fakeQuerier
}

func newTestFeed(t *testing.T, mutate ...func(*Options)) *testFeed {
	t.Helper()
	logger := log.NewLogger()
	tr := newFakeTransport()
	reg := registry.New(tr, logger)
	q := &fakeQuerier{}

	opts := Options{
		Name:            "logs",
		EventType:       core.EventLogCreated,
		MaxWindow:       core.DefaultMaxWindow,
		PollInterval:    time.Hour,
		ReconnectOnPoll: true,
		Criteria:        filter.Criteria{Category: core.CategoryAll},
	}
	for _, m := range mutate {
		m(&opts)
	}

	s, err := New(opts, tr, reg, q, logger)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return &testFeed{sync: s, transport: tr, registry: reg, querier: q}
}

func ids(entries []core.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestNew_Validation(t *testing.T) {
	logger := log.NewLogger()
	tr := newFakeTransport()
	reg := registry.New(tr, logger)

	_, err := New(Options{EventType: "x"}, tr, reg, &fakeQuerier{}, logger)
	assert.Error(t, err)

	_, err = New(Options{Name: "logs"}, tr, reg, &fakeQuerier{}, logger)
	assert.Error(t, err)

	_, err = New(Options{Name: "logs", EventType: "x", Filters: []config.FilterConfig{{Patterns: []string{"["}}}},
		tr, reg, &fakeQuerier{}, logger)
	assert.Error(t, err)

	s, err := New(Options{Name: "logs", EventType: "x"}, tr, reg, &fakeQuerier{}, logger)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, core.DefaultMaxWindow, s.opts.MaxWindow)
	assert.Equal(t, core.DefaultMaxWindow, s.opts.PageSize)
	assert.Equal(t, core.DefaultPollInterval, s.opts.PollInterval)
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(&config.FeedConfig{
		Name:            "audit",
		EventType:       core.EventAuditCreated,
		MaxWindow:       20,
		PageSize:        10,
		PollIntervalMS:  30000,
		ReconnectOnPoll: true,
	})
	assert.Equal(t, "audit", opts.Name)
	assert.Equal(t, 20, opts.MaxWindow)
	assert.Equal(t, 10, opts.PageSize)
	assert.Equal(t, 30*time.Second, opts.PollInterval)
	assert.True(t, opts.ReconnectOnPoll)
	assert.True(t, opts.Criteria.AnyCategory())
}

func TestMergePush(t *testing.T) {
	testCases := []struct {
		name     string
		criteria filter.Criteria
		window   []core.Entry
		push     core.Entry
		expected MergeResult
		ids      []string
	}{
		{
			name:     "AddedToEmpty",
			push:     entryAt("a1", 0, "error", "disk full"),
			expected: Added,
			ids:      []string{"a1"},
		},
		{
			name:     "PrependedInArrivalOrder",
			window:   []core.Entry{entryAt("b", 10, "info", "later timestamp")},
			push:     entryAt("a", 0, "info", "earlier timestamp"),
			expected: Added,
			ids:      []string{"a", "b"},
		},
		{
			name:     "DuplicateByID",
			window:   []core.Entry{entryAt("a1", 0, "error", "disk full")},
			push:     entryAt("a1", 5, "error", "changed text"),
			expected: Duplicate,
			ids:      []string{"a1"},
		},
		{
			name:     "IDLessMatchesFetchedRow",
			window:   []core.Entry{entryAt("a1", 0, "error", "disk full")},
			push:     entryAt("", 0, "error", "disk full"),
			expected: Duplicate,
			ids:      []string{"a1"},
		},
		{
			name:     "IDBearingPushMatchesIDLessRow",
			window:   []core.Entry{entryAt("", 0, "error", "disk full")},
			push:     entryAt("a1", 0, "error", "disk full"),
			expected: Duplicate,
			ids:      []string{""},
		},
		{
			name:     "IDLessDifferentMessage",
			window:   []core.Entry{entryAt("a1", 0, "error", "disk full")},
			push:     entryAt("", 0, "error", "disk ok"),
			expected: Added,
			ids:      []string{"", "a1"},
		},
		{
			name:     "DistinctIDSameTimestampAndMessage",
			window:   []core.Entry{entryAt("a1", 0, "error", "disk full")},
			push:     entryAt("a2", 0, "error", "disk full"),
			expected: Added,
			ids:      []string{"a2", "a1"},
		},
		{
			name:     "Filtered",
			criteria: filter.Criteria{Category: "error"},
			window:   []core.Entry{entryAt("x", 0, "info", "already here")},
			push:     entryAt("i1", 1, "info", "user login"),
			expected: Filtered,
			ids:      []string{"x"},
		},
		{
			name:     "RejectedWithoutIdentity",
			push:     core.Entry{Message: "orphan"},
			expected: Rejected,
			ids:      []string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newTestFeed(t, func(o *Options) {
				if tc.criteria != (filter.Criteria{}) {
					o.Criteria = tc.criteria
				}
			})
			f.sync.ReplaceWindow(tc.window)

			assert.Equal(t, tc.expected, f.sync.MergePush(tc.push))
			assert.Equal(t, tc.ids, ids(f.sync.Snapshot()))
		})
	}
}

func TestMergePush_Idempotent(t *testing.T) {
	f := newTestFeed(t)
	e := entryAt("a1", 0, "error", "disk full")

	assert.Equal(t, Added, f.sync.MergePush(e))
	for i := 0; i < 5; i++ {
		assert.Equal(t, Duplicate, f.sync.MergePush(e))
	}
	assert.Len(t, f.sync.Snapshot(), 1)

	stats := f.sync.GetStats()
	assert.Equal(t, uint64(1), stats["total_added"])
	assert.Equal(t, uint64(5), stats["total_duplicates"])
}

func TestMergePush_WindowBound(t *testing.T) {
	f := newTestFeed(t)

	for i := 0; i < 60; i++ {
		f.sync.MergePush(entryAt(fmt.Sprintf("e%02d", i), i, "info", "m"))
	}

	w := f.sync.Snapshot()
	require.Len(t, w, core.DefaultMaxWindow)
	// The 50 most recent arrivals, newest first
	assert.Equal(t, "e59", w[0].ID)
	assert.Equal(t, "e10", w[len(w)-1].ID)
}

func TestMergePush_WindowOfOne(t *testing.T) {
	f := newTestFeed(t, func(o *Options) { o.MaxWindow = 1 })
	f.sync.MergePush(entryAt("a", 0, "info", "m"))
	f.sync.MergePush(entryAt("b", 1, "info", "m"))
	assert.Equal(t, []string{"b"}, ids(f.sync.Snapshot()))
}

func TestMergePush_PatternFilters(t *testing.T) {
	f := newTestFeed(t, func(o *Options) {
		o.Filters = []config.FilterConfig{{Type: config.FilterTypeExclude, Patterns: []string{"healthcheck"}}}
	})
	assert.Equal(t, Filtered, f.sync.MergePush(entryAt("h", 0, "info", "healthcheck ok")))
	assert.Equal(t, Added, f.sync.MergePush(entryAt("o", 0, "info", "order placed")))
}

func TestReplaceWindow(t *testing.T) {
	f := newTestFeed(t, func(o *Options) { o.MaxWindow = 3 })

	entries := []core.Entry{
		entryAt("1", 4, "info", "m"), entryAt("2", 3, "info", "m"),
		entryAt("3", 2, "info", "m"), entryAt("4", 1, "info", "m"),
	}
	f.sync.ReplaceWindow(entries)
	assert.Equal(t, []string{"1", "2", "3"}, ids(f.sync.Snapshot()))

	// The caller's slice is not retained
	entries[0].ID = "mutated"
	assert.Equal(t, "1", f.sync.Snapshot()[0].ID)

	f.sync.ReplaceWindow(nil)
	assert.Empty(t, f.sync.Snapshot())
}

func TestRefresh(t *testing.T) {
	f := newTestFeed(t, func(o *Options) {
		o.PageSize = 25
		o.Criteria = filter.Criteria{Category: "warn", Search: "disk"}
	})
	f.querier.setFn(pageOf(entryAt("r1", 2, "warn", "disk slow"), entryAt("r2", 1, "warn", "disk slow")))

	f.sync.MergePush(entryAt("p1", 3, "warn", "disk pushed"))
	require.NoError(t, f.sync.Refresh(context.Background()))

	// Poll replaces
	assert.Equal(t, []string{"r1", "r2"}, ids(f.sync.Snapshot()))

	q := f.querier.calls()
	require.Len(t, q, 1)
	assert.Equal(t, core.Query{Category: "warn", Search: "disk", Limit: 25}, q[0])

	v := f.sync.View()
	assert.NoError(t, v.Err)
	assert.False(t, v.RefreshedAt.IsZero())
}

func TestRefresh_ErrorKeepsWindow(t *testing.T) {
	f := newTestFeed(t)
	f.sync.MergePush(entryAt("a1", 0, "error", "disk full"))

	boom := errors.New("502 bad gateway")
	f.querier.setFn(func(context.Context, core.Query) (*core.Page, error) { return nil, boom })

	err := f.sync.Refresh(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a1"}, ids(f.sync.Snapshot()))
	assert.ErrorIs(t, f.sync.View().Err, boom)

	// A later success clears the error
	f.querier.setFn(pageOf(entryAt("r1", 1, "info", "ok")))
	require.NoError(t, f.sync.Refresh(context.Background()))
	assert.NoError(t, f.sync.View().Err)
	assert.Equal(t, core.StateDisconnected, f.transport.State(), "fetch errors never touch the transport")
}

func TestRefresh_StaleAfterFilterChange(t *testing.T) {
	f := newTestFeed(t)

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	f.querier.setFn(func(ctx context.Context, q core.Query) (*core.Page, error) {
		started <- struct{}{}
		<-release
		return &core.Page{Entries: []core.Entry{entryAt("old", 0, "error", "stale row")}}, nil
	})

	errCh := make(chan error, 1)
	go func() { errCh <- f.sync.Refresh(context.Background()) }()
	<-started

	// The filter change issues its own refetch, which completes first
	f.querier.setFn(pageOf(entryAt("new", 1, "warn", "fresh row")))
	require.NoError(t, f.sync.SetFilter(context.Background(), filter.Criteria{Category: "warn"}))
	assert.Equal(t, []string{"new"}, ids(f.sync.Snapshot()))

	close(release)
	assert.ErrorIs(t, <-errCh, ErrStale)
	assert.Equal(t, []string{"new"}, ids(f.sync.Snapshot()))
	assert.Equal(t, uint64(1), f.sync.GetStats()["stale_discarded"])
}

func TestRefresh_OlderResultDiscarded(t *testing.T) {
	f := newTestFeed(t)

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	first := true
	var mu sync.Mutex
	f.querier.setFn(func(ctx context.Context, q core.Query) (*core.Page, error) {
		mu.Lock()
		isFirst := first
		first = false
		mu.Unlock()
		if isFirst {
			started <- struct{}{}
			<-release
			return &core.Page{Entries: []core.Entry{entryAt("older", 0, "info", "m")}}, nil
		}
		return &core.Page{Entries: []core.Entry{entryAt("newer", 1, "info", "m")}}, nil
	})

	errCh := make(chan error, 1)
	go func() { errCh <- f.sync.Refresh(context.Background()) }()
	<-started

	require.NoError(t, f.sync.Refresh(context.Background()))
	close(release)

	assert.ErrorIs(t, <-errCh, ErrStale)
	assert.Equal(t, []string{"newer"}, ids(f.sync.Snapshot()))
}

func TestRefresh_AfterClose(t *testing.T) {
	f := newTestFeed(t)

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	f.querier.setFn(func(ctx context.Context, q core.Query) (*core.Page, error) {
		started <- struct{}{}
		<-release
		return &core.Page{Entries: []core.Entry{entryAt("late", 0, "info", "m")}}, nil
	})

	errCh := make(chan error, 1)
	go func() { errCh <- f.sync.Refresh(context.Background()) }()
	<-started

	f.sync.Close()
	close(release)

	assert.ErrorIs(t, <-errCh, ErrClosed)
	assert.Empty(t, f.sync.Snapshot())
}

func TestRefresh_AppliesPatternFilters(t *testing.T) {
	f := newTestFeed(t, func(o *Options) {
		o.Filters = []config.FilterConfig{{Type: config.FilterTypeExclude, Patterns: []string{"healthcheck"}}}
	})
	f.querier.setFn(pageOf(entryAt("h", 1, "info", "healthcheck ok"), entryAt("o", 0, "info", "order placed")))

	require.NoError(t, f.sync.Refresh(context.Background()))
	assert.Equal(t, []string{"o"}, ids(f.sync.Snapshot()))
}

func TestSetFilter_GatesPushes(t *testing.T) {
	f := newTestFeed(t)
	require.NoError(t, f.sync.Refresh(context.Background()))

	// Category changes from all to warn
	require.NoError(t, f.sync.SetFilter(context.Background(), filter.Criteria{Category: "warn"}))
	assert.Equal(t, "warn", f.sync.Criteria().Category)

	before := f.sync.Snapshot()
	assert.Equal(t, Filtered, f.sync.MergePush(entryAt("e1", 1, "error", "disk full")))
	assert.Equal(t, before, f.sync.Snapshot())

	assert.Equal(t, Added, f.sync.MergePush(entryAt("w1", 2, "warn", "disk slow")))
	assert.Equal(t, "w1", f.sync.Snapshot()[0].ID)

	q := f.querier.calls()
	require.Len(t, q, 2)
	assert.Equal(t, "warn", q[1].Category, "refetch uses the new criteria")
}

func TestSetFilter_KeepsBufferedEntriesUntilRefetch(t *testing.T) {
	f := newTestFeed(t)
	f.sync.MergePush(entryAt("e1", 0, "error", "disk full"))

	// The refetch fails, so nothing replaces the window
	f.querier.setFn(func(context.Context, core.Query) (*core.Page, error) { return nil, errors.New("offline") })
	assert.Error(t, f.sync.SetFilter(context.Background(), filter.Criteria{Category: "warn"}))
	assert.Equal(t, []string{"e1"}, ids(f.sync.Snapshot()))
}

func waitRefreshed(t *testing.T, s *Synchronizer) {
	t.Helper()
	require.Eventually(t, func() bool {
		return !s.View().RefreshedAt.IsZero()
	}, 2*time.Second, 5*time.Millisecond)
}

func TestRealtimeToggle(t *testing.T) {
	f := newTestFeed(t)

	require.NoError(t, f.sync.EnableRealtime(context.Background()))
	waitRefreshed(t, f.sync)

	v := f.sync.View()
	assert.True(t, v.RealTime)
	assert.True(t, v.Polling, "poll backstop runs while real-time")
	assert.True(t, v.Live())
	assert.Equal(t, 1, f.registry.Count(core.EventLogCreated))

	f.transport.push(core.EventLogCreated, `{"id":"a1","timestamp":"2024-03-01T10:30:00Z","category":"error","message":"disk full"}`)
	assert.Equal(t, []string{"a1"}, ids(f.sync.Snapshot()))

	// Enabling twice is a no-op
	require.NoError(t, f.sync.EnableRealtime(context.Background()))
	assert.Equal(t, 1, f.registry.Count(core.EventLogCreated))

	f.sync.DisableRealtime()
	v = f.sync.View()
	assert.False(t, v.RealTime)
	assert.False(t, v.Polling)
	assert.False(t, v.Live())
	assert.Equal(t, 0, f.registry.Count(core.EventLogCreated))
	assert.Equal(t, core.StateJoined, f.transport.State(), "connection stays open")

	f.transport.push(core.EventLogCreated, `{"id":"a2","timestamp":"2024-03-01T10:31:00Z","message":"after off"}`)
	assert.Equal(t, []string{"a1"}, ids(f.sync.Snapshot()))

	// Disabling twice is a no-op
	f.sync.DisableRealtime()
}

func TestDisableRealtime_DropsLateDelivery(t *testing.T) {
	f := newTestFeed(t)
	require.NoError(t, f.sync.EnableRealtime(context.Background()))
	waitRefreshed(t, f.sync)

	late := entryAt("a9", 0, "error", "delivered from an old dispatch snapshot")
	f.sync.DisableRealtime()

	// A handler invocation that raced the unsubscribe
	assert.Equal(t, Inactive, f.sync.mergePushed(late))
	assert.Empty(t, f.sync.Snapshot())

	// Direct merges are unaffected
	assert.Equal(t, Added, f.sync.MergePush(late))
}

func TestEnableRealtime_ConnectFailure(t *testing.T) {
	f := newTestFeed(t)
	boom := errors.New("dial refused")
	f.transport.connectErr = boom

	err := f.sync.EnableRealtime(context.Background())
	require.ErrorIs(t, err, boom)

	v := f.sync.View()
	assert.True(t, v.RealTime)
	assert.True(t, v.Polling, "polling covers for the missing push connection")
	assert.False(t, v.Live())
	assert.Equal(t, 1, f.registry.Count(core.EventLogCreated))
}

func TestPollTick_Reconnect(t *testing.T) {
	f := newTestFeed(t)
	f.transport.connectErr = errors.New("dial refused")
	_ = f.sync.EnableRealtime(context.Background())
	waitRefreshed(t, f.sync)

	// Backend is back; the next tick reconnects
	f.transport.mu.Lock()
	f.transport.connectErr = nil
	f.transport.mu.Unlock()

	f.sync.onPollTick()
	assert.Equal(t, core.StateJoined, f.transport.State())
	assert.True(t, f.sync.View().Live())
	assert.GreaterOrEqual(t, f.sync.GetStats()["total_reconnects"].(uint64), uint64(1))
}

func TestPollTick_NoReconnectWhenDisabled(t *testing.T) {
	f := newTestFeed(t, func(o *Options) { o.ReconnectOnPoll = false })
	f.transport.connectErr = errors.New("dial refused")
	_ = f.sync.EnableRealtime(context.Background())
	waitRefreshed(t, f.sync)

	connects, _, _ := f.transport.stats()
	f.sync.onPollTick()
	after, _, _ := f.transport.stats()
	assert.Equal(t, connects, after)
}

func TestPolling(t *testing.T) {
	f := newTestFeed(t)

	var mu sync.Mutex
	n := 0
	f.querier.setFn(func(context.Context, core.Query) (*core.Page, error) {
		mu.Lock()
		n++
		id := fmt.Sprintf("poll%d", n)
		mu.Unlock()
		return &core.Page{Entries: []core.Entry{entryAt(id, n, "info", "m")}}, nil
	})

	require.NoError(t, f.sync.StartPolling(20*time.Millisecond))
	assert.True(t, f.sync.View().Polling)
	require.Eventually(t, func() bool { return len(f.querier.calls()) >= 3 }, 2*time.Second, 5*time.Millisecond)

	f.sync.StopPolling()
	assert.False(t, f.sync.View().Polling)
	time.Sleep(10 * time.Millisecond)
	calls := len(f.querier.calls())
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, calls, len(f.querier.calls()))
}

func TestWatch(t *testing.T) {
	f := newTestFeed(t)

	var mu sync.Mutex
	var views []View
	cancel := f.sync.Watch(func(v View) {
		mu.Lock()
		views = append(views, v)
		mu.Unlock()
	})

	f.sync.MergePush(entryAt("a1", 0, "error", "disk full"))
	f.sync.MergePush(entryAt("a1", 0, "error", "disk full"))
	f.sync.MergePush(entryAt("a2", 1, "error", "disk full"))

	mu.Lock()
	require.Len(t, views, 3, "initial view plus one per added entry")
	assert.Empty(t, views[0].Entries)
	assert.Equal(t, []string{"a2", "a1"}, ids(views[2].Entries))
	for i := 1; i < len(views); i++ {
		assert.Greater(t, views[i].Version, views[i-1].Version)
	}
	mu.Unlock()

	cancel()
	f.sync.MergePush(entryAt("a3", 2, "error", "disk full"))
	mu.Lock()
	assert.Len(t, views, 3)
	mu.Unlock()
}

func TestWatch_TransportStateChanges(t *testing.T) {
	f := newTestFeed(t)

	var mu sync.Mutex
	var states []core.ConnectionState
	f.sync.Watch(func(v View) {
		mu.Lock()
		states = append(states, v.State)
		mu.Unlock()
	})

	require.NoError(t, f.transport.Connect(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, core.StateJoined, states[len(states)-1])
}

func TestClose(t *testing.T) {
	f := newTestFeed(t)
	require.NoError(t, f.sync.EnableRealtime(context.Background()))
	waitRefreshed(t, f.sync)
	f.sync.MergePush(entryAt("a1", 0, "error", "disk full"))

	_, owners, _ := f.transport.stats()
	assert.Equal(t, 1, owners)

	var last View
	f.sync.Watch(func(v View) { last = v })

	f.sync.Close()

	assert.True(t, last.Closed)
	assert.Empty(t, f.sync.Snapshot())
	assert.Equal(t, 0, f.registry.Count(core.EventLogCreated))
	assert.False(t, f.sync.View().Polling)

	_, owners, listeners := f.transport.stats()
	assert.Equal(t, 0, owners)
	assert.Equal(t, 0, listeners)

	assert.Equal(t, Closed, f.sync.MergePush(entryAt("a2", 1, "error", "m")))
	assert.ErrorIs(t, f.sync.Refresh(context.Background()), ErrClosed)
	assert.ErrorIs(t, f.sync.SetFilter(context.Background(), filter.Criteria{}), ErrClosed)
	assert.ErrorIs(t, f.sync.EnableRealtime(context.Background()), ErrClosed)
	assert.ErrorIs(t, f.sync.StartPolling(0), ErrClosed)

	// Idempotent
	f.sync.Close()
	_, owners, _ = f.transport.stats()
	assert.Equal(t, 0, owners)
}

func TestMergeResult_String(t *testing.T) {
	assert.Equal(t, "added", Added.String())
	assert.Equal(t, "duplicate", Duplicate.String())
	assert.Equal(t, "inactive", Inactive.String())
	assert.Equal(t, "unknown", MergeResult(99).String())
}
