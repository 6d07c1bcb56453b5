// FILE: adminfeed/src/internal/filter/criteria.go
package filter

import (
	"strings"
	"time"

	"adminfeed/src/internal/core"
)

// Criteria is the user-selected filter state of a feed.
// A zero Criteria accepts everything.
type Criteria struct {
	// Category to match, empty or "all" matches any (case-insensitive)
	Category string

	// Free-text search over message, origin, category and id (case-insensitive)
	Search string

	// Optional inclusive time range, zero values are open ends
	Start time.Time
	End   time.Time
}

// Accepts reports whether e passes the criteria
func (c Criteria) Accepts(e core.Entry) bool {
	if !c.AnyCategory() && !strings.EqualFold(e.Category, c.Category) {
		return false
	}

	if !c.Start.IsZero() || !c.End.IsZero() {
		// An entry without a timestamp cannot be placed in a range
		if e.Timestamp.IsZero() {
			return false
		}
		if !c.Start.IsZero() && e.Timestamp.Before(c.Start) {
			return false
		}
		if !c.End.IsZero() && e.Timestamp.After(c.End) {
			return false
		}
	}

	search := strings.TrimSpace(c.Search)
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	for _, field := range []string{e.Message, e.Origin, e.Category, e.ID} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// AnyCategory reports whether the category constraint is disabled
func (c Criteria) AnyCategory() bool {
	return c.Category == "" || strings.EqualFold(c.Category, core.CategoryAll)
}

// QueryCategory returns the category as sent to the history API, empty for any
func (c Criteria) QueryCategory() string {
	if c.AnyCategory() {
		return ""
	}
	return c.Category
}

// String renders the criteria for status lines
func (c Criteria) String() string {
	parts := make([]string, 0, 4)
	if c.AnyCategory() {
		parts = append(parts, "category="+core.CategoryAll)
	} else {
		parts = append(parts, "category="+c.Category)
	}
	if s := strings.TrimSpace(c.Search); s != "" {
		parts = append(parts, "search="+s)
	}
	if !c.Start.IsZero() {
		parts = append(parts, "since="+c.Start.Format(time.RFC3339))
	}
	if !c.End.IsZero() {
		parts = append(parts, "until="+c.End.Format(time.RFC3339))
	}
	return strings.Join(parts, " ")
}

// Query converts the criteria into a history request
func (c Criteria) Query(limit, offset int) core.Query {
	return core.Query{
		Category: c.QueryCategory(),
		Search:   strings.TrimSpace(c.Search),
		Start:    c.Start,
		End:      c.End,
		Limit:    limit,
		Offset:   offset,
	}
}
