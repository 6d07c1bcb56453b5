// FILE: adminfeed/src/internal/feed/fakes_test.go
package feed

import (
	"context"
	"sync"
	"time"

	"adminfeed/src/internal/core"
	"adminfeed/src/internal/transport"
)

// fakeTransport is both the feed Transport and the registry's event source
type fakeTransport struct {
	mu          sync.Mutex
	state       core.ConnectionState
	connectErr  error
	connects    int
	owners      int
	watchers    map[int]func(core.ConnectionState)
	nextWatcher int
	listeners   map[string]map[transport.ListenerID]transport.Listener
	nextID      transport.ListenerID
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		watchers:  make(map[int]func(core.ConnectionState)),
		listeners: make(map[string]map[transport.ListenerID]transport.Listener),
	}
}

func (f *fakeTransport) Connect(context.Context) error {
	f.mu.Lock()
	f.connects++
	err := f.connectErr
	state := f.state
	f.mu.Unlock()

	if state >= core.StateConnected {
		return nil
	}
	if err != nil {
		f.setState(core.StateDisconnected)
		return err
	}
	for _, s := range []core.ConnectionState{core.StateConnecting, core.StateConnected, core.StateAuthenticated, core.StateJoined} {
		f.setState(s)
	}
	return nil
}

func (f *fakeTransport) setState(s core.ConnectionState) {
	f.mu.Lock()
	f.state = s
	ws := make([]func(core.ConnectionState), 0, len(f.watchers))
	for _, w := range f.watchers {
		ws = append(ws, w)
	}
	f.mu.Unlock()
	for _, w := range ws {
		w(s)
	}
}

func (f *fakeTransport) State() core.ConnectionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeTransport) WatchState(fn func(core.ConnectionState)) func() {
	f.mu.Lock()
	id := f.nextWatcher
	f.nextWatcher++
	f.watchers[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.watchers, id)
		f.mu.Unlock()
	}
}

func (f *fakeTransport) Retain() {
	f.mu.Lock()
	f.owners++
	f.mu.Unlock()
}

func (f *fakeTransport) Release() {
	f.mu.Lock()
	f.owners--
	f.mu.Unlock()
}

func (f *fakeTransport) On(event string, l transport.Listener) transport.ListenerID {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	if f.listeners[event] == nil {
		f.listeners[event] = make(map[transport.ListenerID]transport.Listener)
	}
	f.listeners[event][f.nextID] = l
	return f.nextID
}

func (f *fakeTransport) Off(event string, id transport.ListenerID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.listeners[event], id)
}

func (f *fakeTransport) push(event, payload string) {
	f.mu.Lock()
	ls := make([]transport.Listener, 0)
	for _, l := range f.listeners[event] {
		ls = append(ls, l)
	}
	f.mu.Unlock()
	for _, l := range ls {
		l([]byte(payload))
	}
}

func (f *fakeTransport) stats() (connects, owners, listeners int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, set := range f.listeners {
		listeners += len(set)
	}
	return f.connects, f.owners, listeners
}

// fakeQuerier answers queries from a function and records them
type fakeQuerier struct {
	mu      sync.Mutex
	queries []core.Query
	fn      func(ctx context.Context, q core.Query) (*core.Page, error)
}

func (f *fakeQuerier) Query(ctx context.Context, q core.Query) (*core.Page, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	fn := f.fn
	f.mu.Unlock()
	if fn == nil {
		return &core.Page{}, nil
	}
	return fn(ctx, q)
}

func (f *fakeQuerier) setFn(fn func(ctx context.Context, q core.Query) (*core.Page, error)) {
	f.mu.Lock()
	f.fn = fn
	f.mu.Unlock()
}

func (f *fakeQuerier) calls() []core.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.Query(nil), f.queries...)
}

// pageOf returns a querier function serving fixed entries
func pageOf(entries ...core.Entry) func(context.Context, core.Query) (*core.Page, error) {
	return func(context.Context, core.Query) (*core.Page, error) {
		return &core.Page{Entries: entries, Total: len(entries)}, nil
	}
}

var baseTime = time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)

func entryAt(id string, offset int, category, message string) core.Entry {
	return core.Entry{
		ID:        id,
		Timestamp: baseTime.Add(time.Duration(offset) * time.Second),
		Category:  category,
		Message:   message,
	}
}
