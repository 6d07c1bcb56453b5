// FILE: adminfeed/src/internal/poll/scheduler.go
package poll

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/log"
)

// Scheduler runs a callback immediately and then at a fixed interval.
// At most one timer is active; ticks of one scheduler never overlap.
type Scheduler struct {
	name   string
	logger *log.Logger

	mu         sync.Mutex
	generation uint64
	stop       chan struct{}
	interval   time.Duration
	running    bool

	// Held for the whole of onTick; Start and Stop never take it
	tickMu sync.Mutex

	// Statistics
	totalTicks   atomic.Uint64
	totalStarts  atomic.Uint64
	lastTickTime atomic.Value // time.Time
}

// NewScheduler creates a stopped scheduler; name is used in logs
func NewScheduler(name string, logger *log.Logger) *Scheduler {
	s := &Scheduler{
		name:   name,
		logger: logger,
	}
	s.lastTickTime.Store(time.Time{})
	return s
}

// Start fires onTick at once and then every interval. A running timer is stopped first.
func (s *Scheduler) Start(interval time.Duration, onTick func()) {
	if interval <= 0 {
		interval = time.Second
	}

	s.mu.Lock()
	s.stopLocked()
	s.generation++
	gen := s.generation
	stop := make(chan struct{})
	s.stop = stop
	s.interval = interval
	s.running = true
	s.mu.Unlock()

	s.totalStarts.Add(1)
	s.logger.Debug("msg", "Poll scheduler started",
		"component", "poll",
		"scheduler", s.name,
		"interval", interval)

	go s.run(gen, stop, interval, onTick)
}

// Stop cancels the pending and all future ticks. It is a no-op when not started
// and may be called from inside onTick. A tick already running is not interrupted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	wasRunning := s.running
	s.stopLocked()
	s.mu.Unlock()

	if wasRunning {
		s.logger.Debug("msg", "Poll scheduler stopped",
			"component", "poll",
			"scheduler", s.name,
			"ticks", s.totalTicks.Load())
	}
}

func (s *Scheduler) stopLocked() {
	if !s.running {
		return
	}
	close(s.stop)
	s.stop = nil
	s.running = false
	// Invalidate a tick that already passed its select
	s.generation++
}

// Running reports whether the scheduler has an active timer
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Interval returns the interval of the active timer, zero when stopped
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return 0
	}
	return s.interval
}

func (s *Scheduler) run(gen uint64, stop <-chan struct{}, interval time.Duration, onTick func()) {
	if !s.tick(gen, onTick) {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !s.tick(gen, onTick) {
				return
			}
		}
	}
}

// tick invokes onTick unless the generation moved on. A tick of a newer
// generation waits for the previous one to return.
func (s *Scheduler) tick(gen uint64, onTick func()) bool {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	s.mu.Lock()
	current := s.generation == gen
	s.mu.Unlock()
	if !current {
		return false
	}

	s.totalTicks.Add(1)
	s.lastTickTime.Store(time.Now())
	onTick()
	return true
}

// GetStats returns scheduler statistics
func (s *Scheduler) GetStats() map[string]any {
	lastTick, _ := s.lastTickTime.Load().(time.Time)
	return map[string]any{
		"name":         s.name,
		"running":      s.Running(),
		"interval":     s.Interval().String(),
		"total_ticks":  s.totalTicks.Load(),
		"total_starts": s.totalStarts.Load(),
		"last_tick":    lastTick,
	}
}
