// FILE: adminfeed/src/internal/core/const.go
package core

import "time"

// Feed defaults
const (
	DefaultMaxWindow    = 50
	DefaultPageSize     = 50
	DefaultPollInterval = 10 * time.Second
)

// Transport defaults
const (
	DefaultHandshakeTimeout = 20 * time.Second
	DefaultGroup            = "admin"
	DefaultConnectInterval  = 2 * time.Second
	DefaultConnectBurst     = 3
)

// Push event names emitted by the admin backend
const (
	EventLogCreated   = "log:new"
	EventAuditCreated = "audit:new"
)

// CategoryAll matches every entry category
const CategoryAll = "all"
