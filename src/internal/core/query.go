// FILE: adminfeed/src/internal/core/query.go
package core

import "time"

// Query is a paginated request against the historical API
type Query struct {
	Category string
	Search   string
	Start    time.Time
	End      time.Time
	Limit    int
	Offset   int
}

// Page is one page of historical entries, newest first
type Page struct {
	Entries []Entry
	Total   int
	HasMore bool
}
