// FILE: adminfeed/src/internal/feed/synchronizer.go
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"adminfeed/src/internal/core"
	"adminfeed/src/internal/filter"
	"adminfeed/src/internal/poll"
	"adminfeed/src/internal/registry"

	"github.com/lixenwraith/log"
)

// Synchronizer keeps a bounded, newest-first window of entries consistent with
// the current filter by merging pushed entries and replacing the window on fetch.
type Synchronizer struct {
	opts      Options
	logger    *log.Logger
	transport Transport
	subs      Subscriber
	querier   Querier
	gate      *filter.Gate
	scheduler *poll.Scheduler

	ctx    context.Context
	cancel context.CancelFunc

	// Serializes real-time toggles
	toggleMu sync.Mutex

	mu          sync.Mutex
	window      []core.Entry
	version     uint64
	epoch       uint64 // bumped on filter change and close
	seq         uint64 // refresh request sequence
	lastApplied uint64
	realtime    bool
	sub         *registry.Subscription
	lastErr     error
	refreshedAt time.Time
	closed      bool

	watchersMu  sync.Mutex
	watchers    map[uint64]func(View)
	nextWatcher uint64
	stopWatch   func()

	// Statistics
	totalAdded      atomic.Uint64
	totalFiltered   atomic.Uint64
	totalDuplicates atomic.Uint64
	totalRejected   atomic.Uint64
	totalRefreshes  atomic.Uint64
	refreshErrors   atomic.Uint64
	staleDiscarded  atomic.Uint64
	totalReconnects atomic.Uint64
}

// New creates a synchronizer and takes ownership of a transport reference
func New(opts Options, transport Transport, subs Subscriber, querier Querier, logger *log.Logger) (*Synchronizer, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("feed name required")
	}
	if opts.EventType == "" {
		return nil, fmt.Errorf("feed '%s': event type required", opts.Name)
	}
	if opts.MaxWindow <= 0 {
		opts.MaxWindow = core.DefaultMaxWindow
	}
	if opts.PageSize <= 0 {
		opts.PageSize = opts.MaxWindow
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = core.DefaultPollInterval
	}

	gate, err := filter.NewGate(opts.Filters, opts.Criteria, logger)
	if err != nil {
		return nil, fmt.Errorf("feed '%s': %w", opts.Name, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Synchronizer{
		opts:      opts,
		logger:    logger,
		transport: transport,
		subs:      subs,
		querier:   querier,
		gate:      gate,
		scheduler: poll.NewScheduler(opts.Name, logger),
		ctx:       ctx,
		cancel:    cancel,
		watchers:  make(map[uint64]func(View)),
	}

	transport.Retain()
	s.stopWatch = transport.WatchState(func(core.ConnectionState) {
		s.publish()
	})

	logger.Debug("msg", "Feed created",
		"component", "feed",
		"feed", opts.Name,
		"event", opts.EventType,
		"max_window", opts.MaxWindow)
	return s, nil
}

// Name returns the feed name
func (s *Synchronizer) Name() string {
	return s.opts.Name
}

// MergePush merges one pushed entry: filter gate, identity check, dedup, prepend, truncate
func (s *Synchronizer) MergePush(e core.Entry) MergeResult {
	return s.merge(e, false)
}

// mergePushed is the subscription handler. A delivery racing DisableRealtime
// is dropped once real-time is off, so none lands after it returns.
func (s *Synchronizer) mergePushed(e core.Entry) MergeResult {
	return s.merge(e, true)
}

func (s *Synchronizer) merge(e core.Entry, subscribed bool) MergeResult {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Closed
	}
	if subscribed && !s.realtime {
		s.mu.Unlock()
		return Inactive
	}

	if !s.gate.Apply(e) {
		s.mu.Unlock()
		s.totalFiltered.Add(1)
		return Filtered
	}

	if _, err := e.DedupKey(); err != nil {
		s.mu.Unlock()
		s.totalRejected.Add(1)
		s.logger.Warn("msg", "Rejecting pushed entry",
			"component", "feed",
			"feed", s.opts.Name,
			"error", err)
		return Rejected
	}

	for i := range s.window {
		if e.SameEvent(s.window[i]) {
			s.mu.Unlock()
			s.totalDuplicates.Add(1)
			return Duplicate
		}
	}

	// Arrival order, newest first
	n := min(len(s.window)+1, s.opts.MaxWindow)
	w := make([]core.Entry, 0, n)
	w = append(w, e)
	w = append(w, s.window[:n-1]...)
	s.window = w

	v := s.viewLocked(true)
	s.mu.Unlock()

	s.totalAdded.Add(1)
	s.notify(v)
	return Added
}

// ReplaceWindow replaces the window wholesale, keeping at most MaxWindow entries
func (s *Synchronizer) ReplaceWindow(entries []core.Entry) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.replaceLocked(entries)
	v := s.viewLocked(true)
	s.mu.Unlock()

	s.notify(v)
}

func (s *Synchronizer) replaceLocked(entries []core.Entry) {
	n := min(len(entries), s.opts.MaxWindow)
	w := make([]core.Entry, n)
	copy(w, entries[:n])
	s.window = w
}

// Refresh fetches the first page for the current criteria and replaces the window.
// A result that arrives after Close, after a filter change or after a newer refresh
// was applied is discarded with ErrStale.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.seq++
	seq := s.seq
	epoch := s.epoch
	criteria := s.gate.Criteria()
	s.mu.Unlock()

	s.totalRefreshes.Add(1)
	page, err := s.querier.Query(ctx, criteria.Query(s.opts.PageSize, 0))

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if epoch != s.epoch || seq <= s.lastApplied {
		s.mu.Unlock()
		s.staleDiscarded.Add(1)
		s.logger.Debug("msg", "Discarding stale refresh",
			"component", "feed",
			"feed", s.opts.Name,
			"seq", seq)
		return ErrStale
	}
	s.lastApplied = seq

	if err != nil {
		s.lastErr = err
		v := s.viewLocked(true)
		s.mu.Unlock()

		s.refreshErrors.Add(1)
		s.notify(v)
		return fmt.Errorf("feed '%s' refresh: %w", s.opts.Name, err)
	}

	var fetched []core.Entry
	if page != nil {
		fetched = page.Entries
	}
	rows := make([]core.Entry, 0, len(fetched))
	for _, e := range fetched {
		if s.gate.ApplyPatterns(e) {
			rows = append(rows, e)
		}
	}
	s.replaceLocked(rows)
	s.lastErr = nil
	s.refreshedAt = time.Now()
	v := s.viewLocked(true)
	s.mu.Unlock()

	s.notify(v)
	return nil
}

// SetFilter switches the push gate at once and issues a clean refetch.
// Entries already in the window are not re-filtered until the refetch lands.
func (s *Synchronizer) SetFilter(ctx context.Context, c filter.Criteria) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.gate.Update(c)
	s.epoch++
	v := s.viewLocked(true)
	s.mu.Unlock()

	s.notify(v)

	s.logger.Info("msg", "Feed filter changed",
		"component", "feed",
		"feed", s.opts.Name,
		"criteria", c.String())

	return s.Refresh(ctx)
}

// Criteria returns the current filter criteria
func (s *Synchronizer) Criteria() filter.Criteria {
	return s.gate.Criteria()
}

// EnableRealtime connects the transport, subscribes to pushes and starts polling as a backstop.
// A connection failure is logged and returned, but the subscription and the poll backstop stay active.
func (s *Synchronizer) EnableRealtime(ctx context.Context) error {
	s.toggleMu.Lock()
	defer s.toggleMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.realtime {
		s.mu.Unlock()
		return nil
	}
	s.realtime = true
	s.mu.Unlock()

	connectErr := s.transport.Connect(ctx)
	if connectErr != nil {
		s.logger.Warn("msg", "Real-time connect failed, polling continues",
			"component", "feed",
			"feed", s.opts.Name,
			"error", connectErr)
	}

	sub := s.subs.Subscribe(s.opts.EventType, func(e core.Entry) {
		s.mergePushed(e)
	})

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.subs.Unsubscribe(sub)
		return ErrClosed
	}
	s.sub = sub
	s.mu.Unlock()

	s.scheduler.Start(s.opts.PollInterval, s.onPollTick)
	s.publish()

	s.logger.Info("msg", "Real-time mode enabled",
		"component", "feed",
		"feed", s.opts.Name,
		"event", s.opts.EventType)

	if connectErr != nil {
		return fmt.Errorf("feed '%s' connect: %w", s.opts.Name, connectErr)
	}
	return nil
}

// DisableRealtime unsubscribes and stops the scheduler; the transport stays open for other feeds
func (s *Synchronizer) DisableRealtime() {
	s.toggleMu.Lock()
	defer s.toggleMu.Unlock()

	s.mu.Lock()
	if !s.realtime {
		s.mu.Unlock()
		return
	}
	s.realtime = false
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()

	s.subs.Unsubscribe(sub)
	s.scheduler.Stop()
	s.publish()

	s.logger.Info("msg", "Real-time mode disabled",
		"component", "feed",
		"feed", s.opts.Name)
}

// StartPolling polls at interval, or at the configured interval when zero
func (s *Synchronizer) StartPolling(interval time.Duration) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}

	if interval <= 0 {
		interval = s.opts.PollInterval
	}
	s.scheduler.Start(interval, s.onPollTick)
	s.publish()
	return nil
}

// StopPolling stops the poll scheduler
func (s *Synchronizer) StopPolling() {
	s.scheduler.Stop()
	s.publish()
}

func (s *Synchronizer) onPollTick() {
	if err := s.Refresh(s.ctx); err != nil && !errors.Is(err, ErrStale) && !errors.Is(err, ErrClosed) {
		s.logger.Warn("msg", "Poll refresh failed",
			"component", "feed",
			"feed", s.opts.Name,
			"error", err)
	}

	s.mu.Lock()
	reconnect := s.realtime && !s.closed && s.opts.ReconnectOnPoll
	s.mu.Unlock()

	if reconnect && s.transport.State() == core.StateDisconnected {
		s.totalReconnects.Add(1)
		if err := s.transport.Connect(s.ctx); err != nil {
			s.logger.Debug("msg", "Reconnect on poll failed",
				"component", "feed",
				"feed", s.opts.Name,
				"error", err)
		}
	}
}

// Snapshot returns a copy of the window, newest first
func (s *Synchronizer) Snapshot() []core.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := make([]core.Entry, len(s.window))
	copy(w, s.window)
	return w
}

// View returns the current view without advancing the version
func (s *Synchronizer) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked(false)
}

// Watch registers fn for view updates and delivers the current view at once.
// fn may run on the transport, scheduler or caller goroutine and must not block.
func (s *Synchronizer) Watch(fn func(View)) (cancel func()) {
	s.watchersMu.Lock()
	id := s.nextWatcher
	s.nextWatcher++
	s.watchers[id] = fn
	s.watchersMu.Unlock()

	fn(s.View())

	var once sync.Once
	return func() {
		once.Do(func() {
			s.watchersMu.Lock()
			delete(s.watchers, id)
			s.watchersMu.Unlock()
		})
	}
}

func (s *Synchronizer) publish() {
	s.mu.Lock()
	v := s.viewLocked(true)
	s.mu.Unlock()
	s.notify(v)
}

func (s *Synchronizer) viewLocked(advance bool) View {
	if advance {
		s.version++
	}
	entries := make([]core.Entry, len(s.window))
	copy(entries, s.window)
	return View{
		Version:     s.version,
		Feed:        s.opts.Name,
		Entries:     entries,
		Criteria:    s.gate.Criteria(),
		State:       s.transport.State(),
		RealTime:    s.realtime,
		Polling:     s.scheduler.Running(),
		Err:         s.lastErr,
		RefreshedAt: s.refreshedAt,
		Closed:      s.closed,
	}
}

func (s *Synchronizer) notify(v View) {
	s.watchersMu.Lock()
	watchers := make([]func(View), 0, len(s.watchers))
	for _, fn := range s.watchers {
		watchers = append(watchers, fn)
	}
	s.watchersMu.Unlock()

	for _, fn := range watchers {
		fn(v)
	}
}

// Close unsubscribes, stops polling, invalidates in-flight fetches, drops the
// window and releases the transport reference
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.epoch++
	s.realtime = false
	sub := s.sub
	s.sub = nil
	s.window = nil
	v := s.viewLocked(true)
	s.mu.Unlock()

	s.cancel()
	s.subs.Unsubscribe(sub)
	s.scheduler.Stop()
	s.stopWatch()
	s.transport.Release()

	s.notify(v)

	s.watchersMu.Lock()
	clear(s.watchers)
	s.watchersMu.Unlock()

	s.logger.Info("msg", "Feed closed",
		"component", "feed",
		"feed", s.opts.Name,
		"total_added", s.totalAdded.Load(),
		"total_duplicates", s.totalDuplicates.Load())
}

// GetStats returns feed statistics
func (s *Synchronizer) GetStats() map[string]any {
	s.mu.Lock()
	windowLen := len(s.window)
	realtime := s.realtime
	version := s.version
	s.mu.Unlock()

	return map[string]any{
		"feed":             s.opts.Name,
		"event":            s.opts.EventType,
		"window":           windowLen,
		"max_window":       s.opts.MaxWindow,
		"version":          version,
		"realtime":         realtime,
		"total_added":      s.totalAdded.Load(),
		"total_filtered":   s.totalFiltered.Load(),
		"total_duplicates": s.totalDuplicates.Load(),
		"total_rejected":   s.totalRejected.Load(),
		"total_refreshes":  s.totalRefreshes.Load(),
		"refresh_errors":   s.refreshErrors.Load(),
		"stale_discarded":  s.staleDiscarded.Load(),
		"total_reconnects": s.totalReconnects.Load(),
		"gate":             s.gate.GetStats(),
		"scheduler":        s.scheduler.GetStats(),
	}
}
