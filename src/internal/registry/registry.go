// FILE: adminfeed/src/internal/registry/registry.go
package registry

import (
	"sync"
	"sync/atomic"

	"adminfeed/src/internal/core"
	"adminfeed/src/internal/transport"

	"github.com/lixenwraith/log"
	"github.com/valyala/fastjson"
)

// Source delivers raw pushed events; implemented by transport.Client
type Source interface {
	On(event string, l transport.Listener) transport.ListenerID
	Off(event string, id transport.ListenerID)
}

// Handler receives decoded entries of one event type
type Handler func(core.Entry)

// Subscription is a handle returned by Subscribe
type Subscription struct {
	event   string
	handler Handler
	active  atomic.Bool
}

// Event returns the subscribed event type
func (s *Subscription) Event() string {
	return s.event
}

// Active reports whether the subscription still receives entries
func (s *Subscription) Active() bool {
	return s.active.Load()
}

// eventSubs is the subscription set of one event type with its transport listener
type eventSubs struct {
	listenerID transport.ListenerID
	subs       []*Subscription
}

// Registry fans pushed events out to per-type subscriptions.
// One transport listener exists per event type while it has subscribers.
type Registry struct {
	source Source
	logger *log.Logger
	pool   fastjson.ParserPool

	mu     sync.Mutex
	events map[string]*eventSubs

	// Statistics
	totalDispatched atomic.Uint64
	totalDelivered  atomic.Uint64
	totalSkipped    atomic.Uint64
	totalUndecoded  atomic.Uint64
}

// New creates a registry over the given event source
func New(source Source, logger *log.Logger) *Registry {
	return &Registry{
		source: source,
		logger: logger,
		events: make(map[string]*eventSubs),
	}
}

// Subscribe registers handler for entries pushed under event
func (r *Registry) Subscribe(event string, handler Handler) *Subscription {
	sub := &Subscription{event: event, handler: handler}
	sub.active.Store(true)

	r.mu.Lock()
	es, ok := r.events[event]
	if !ok {
		es = &eventSubs{}
		r.events[event] = es
	}
	// Copy-on-write so in-flight dispatches keep their snapshot
	subs := make([]*Subscription, len(es.subs), len(es.subs)+1)
	copy(subs, es.subs)
	es.subs = append(subs, sub)
	attach := !ok
	r.mu.Unlock()

	if attach {
		id := r.source.On(event, func(payload []byte) {
			r.dispatch(event, payload)
		})

		r.mu.Lock()
		if cur, ok := r.events[event]; ok && cur == es {
			es.listenerID = id
			r.mu.Unlock()
		} else {
			// Every subscription was removed while attaching
			r.mu.Unlock()
			r.source.Off(event, id)
		}

		r.logger.Debug("msg", "Attached event listener",
			"component", "registry",
			"event", event)
	}

	return sub
}

// Unsubscribe removes sub synchronously. It is idempotent and accepts nil.
// A dispatch already in progress skips the handler if it has not reached it yet.
func (r *Registry) Unsubscribe(sub *Subscription) {
	if sub == nil || !sub.active.CompareAndSwap(true, false) {
		return
	}

	r.mu.Lock()
	es, ok := r.events[sub.event]
	if !ok {
		r.mu.Unlock()
		return
	}

	subs := make([]*Subscription, 0, len(es.subs))
	for _, s := range es.subs {
		if s != sub {
			subs = append(subs, s)
		}
	}
	es.subs = subs

	var detachID transport.ListenerID
	detach := len(subs) == 0
	if detach {
		detachID = es.listenerID
		delete(r.events, sub.event)
	}
	r.mu.Unlock()

	if detach && detachID != 0 {
		r.source.Off(sub.event, detachID)
		r.logger.Debug("msg", "Detached event listener",
			"component", "registry",
			"event", sub.event)
	}
}

func (r *Registry) dispatch(event string, payload []byte) {
	r.totalDispatched.Add(1)

	r.mu.Lock()
	es, ok := r.events[event]
	var subs []*Subscription
	if ok {
		subs = es.subs
	}
	r.mu.Unlock()

	if len(subs) == 0 {
		return
	}

	p := r.pool.Get()
	v, err := p.ParseBytes(payload)
	var entry core.Entry
	if err == nil {
		entry, err = core.ParseEntry(v)
	}
	r.pool.Put(p)

	if err != nil {
		r.totalUndecoded.Add(1)
		r.logger.Warn("msg", "Dropping undecodable push payload",
			"component", "registry",
			"event", event,
			"error", err)
		return
	}

	for _, sub := range subs {
		// Removed after the snapshot was taken
		if !sub.active.Load() {
			r.totalSkipped.Add(1)
			continue
		}
		sub.handler(entry)
		r.totalDelivered.Add(1)
	}
}

// Count returns the number of active subscriptions for event
func (r *Registry) Count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if es, ok := r.events[event]; ok {
		return len(es.subs)
	}
	return 0
}

// GetStats returns registry statistics
func (r *Registry) GetStats() map[string]any {
	r.mu.Lock()
	perEvent := make(map[string]int, len(r.events))
	for event, es := range r.events {
		perEvent[event] = len(es.subs)
	}
	r.mu.Unlock()

	return map[string]any{
		"subscriptions":    perEvent,
		"total_dispatched": r.totalDispatched.Load(),
		"total_delivered":  r.totalDelivered.Load(),
		"total_skipped":    r.totalSkipped.Load(),
		"total_undecoded":  r.totalUndecoded.Load(),
	}
}
