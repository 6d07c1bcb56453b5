// FILE: adminfeed/src/internal/tui/plain.go
package tui

import (
	"fmt"
	"io"
	"sync"

	"adminfeed/src/internal/core"
	"adminfeed/src/internal/feed"
	"adminfeed/src/internal/format"
)

// Printer writes entries as plain lines, each once, oldest first.
// It is the non-interactive rendering used when stdout is not a terminal.
type Printer struct {
	mu      sync.Mutex
	w       io.Writer
	format  format.Formatter
	seen    []core.Entry
	version uint64
	badge   string
}

// NewPrinter creates a printer writing entries to w through f
func NewPrinter(w io.Writer, f format.Formatter) *Printer {
	return &Printer{w: w, format: f}
}

// Print writes the entries of v not printed before; older views are ignored
func (p *Printer) Print(v feed.View) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if v.Version < p.version {
		return
	}
	p.version = v.Version

	if badge := Badge(v); badge != p.badge {
		if p.badge != "" {
			fmt.Fprintf(p.w, "-- %s --\n", badge)
		}
		p.badge = badge
	}
	if v.Err != nil {
		fmt.Fprintf(p.w, "-- fetch failed: %v --\n", v.Err)
	}

	// Only the current window is remembered. Events are matched with SameEvent
	// so an entry that gains its server id on a later fetch is not printed again.
	window := make([]core.Entry, 0, len(v.Entries))
	for i := len(v.Entries) - 1; i >= 0; i-- {
		e := v.Entries[i]
		if _, err := e.DedupKey(); err != nil {
			continue
		}
		window = append(window, e)
		if p.printed(e) {
			continue
		}
		if line, err := p.format.Format(e); err == nil {
			_, _ = p.w.Write(line)
		}
	}
	p.seen = window
}

func (p *Printer) printed(e core.Entry) bool {
	for i := range p.seen {
		if e.SameEvent(p.seen[i]) {
			return true
		}
	}
	return false
}

// PrintEntries writes entries through f in the given order
func PrintEntries(w io.Writer, f format.Formatter, entries []core.Entry) error {
	for _, e := range entries {
		line, err := f.Format(e)
		if err != nil {
			return err
		}
		if _, err := w.Write(line); err != nil {
			return err
		}
	}
	return nil
}
