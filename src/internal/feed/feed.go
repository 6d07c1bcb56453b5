// FILE: adminfeed/src/internal/feed/feed.go
package feed

import (
	"context"
	"errors"
	"time"

	"adminfeed/src/internal/config"
	"adminfeed/src/internal/core"
	"adminfeed/src/internal/filter"
	"adminfeed/src/internal/registry"
)

var (
	// ErrClosed is returned by operations on a closed synchronizer
	ErrClosed = errors.New("feed closed")
	// ErrStale is returned by Refresh when its result was superseded and discarded
	ErrStale = errors.New("refresh result superseded")
)

// MergeResult is the outcome of a single pushed entry
type MergeResult int

const (
	Added MergeResult = iota
	Filtered
	Duplicate
	Rejected
	Closed
	Inactive
)

func (r MergeResult) String() string {
	switch r {
	case Added:
		return "added"
	case Filtered:
		return "filtered"
	case Duplicate:
		return "duplicate"
	case Rejected:
		return "rejected"
	case Closed:
		return "closed"
	case Inactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// Transport is the shared push connection as seen by a feed
type Transport interface {
	Connect(ctx context.Context) error
	State() core.ConnectionState
	WatchState(fn func(core.ConnectionState)) (cancel func())
	Retain()
	Release()
}

// Subscriber routes pushed entries of one event type to a handler
type Subscriber interface {
	Subscribe(event string, handler registry.Handler) *registry.Subscription
	Unsubscribe(sub *registry.Subscription)
}

// Querier is the historical API
type Querier interface {
	Query(ctx context.Context, q core.Query) (*core.Page, error)
}

// Options configures a Synchronizer
type Options struct {
	Name      string
	EventType string

	MaxWindow    int
	PageSize     int
	PollInterval time.Duration

	// Re-attempt the push connection on poll ticks while real-time mode is on
	ReconnectOnPoll bool

	// Static pattern filters applied before the criteria
	Filters []config.FilterConfig

	// Initial criteria
	Criteria filter.Criteria
}

// OptionsFromConfig maps a feed section onto Options
func OptionsFromConfig(cfg *config.FeedConfig) Options {
	return Options{
		Name:            cfg.Name,
		EventType:       cfg.EventType,
		MaxWindow:       int(cfg.MaxWindow),
		PageSize:        int(cfg.PageSize),
		PollInterval:    time.Duration(cfg.PollIntervalMS) * time.Millisecond,
		ReconnectOnPoll: cfg.ReconnectOnPoll,
		Filters:         cfg.Filters,
		Criteria:        filter.Criteria{Category: core.CategoryAll},
	}
}

// View is one consistent rendering of a feed.
// Views carry a monotonic Version; consumers drop views older than the last one rendered.
type View struct {
	Version     uint64
	Feed        string
	Entries     []core.Entry
	Criteria    filter.Criteria
	State       core.ConnectionState
	RealTime    bool
	Polling     bool
	Err         error
	RefreshedAt time.Time
	Closed      bool
}

// Live reports whether pushed entries are flowing into the feed
func (v View) Live() bool {
	return v.RealTime && v.State == core.StateJoined
}
