// FILE: adminfeed/src/internal/config/config.go
package config

// Config is the top-level adminfeed configuration
type Config struct {
	// CLI-only settings
	ConfigFile string `toml:"-"`
	Quiet      bool   `toml:"quiet"`

	Logging   *LogConfig      `toml:"logging"`
	Transport TransportConfig `toml:"transport"`
	Auth      AuthConfig      `toml:"auth"`
	History   HistoryConfig   `toml:"history"`
	TLS       TLSClientConfig `toml:"tls"`
	Output    OutputConfig    `toml:"output"`
	Feeds     []FeedConfig    `toml:"feeds"`
}

// TransportConfig configures the push connection to the admin backend
type TransportConfig struct {
	// WebSocket endpoint, e.g. wss://admin.example.com/ws
	URL string `toml:"url"`

	// Broadcast group joined after authentication
	Group string `toml:"group"`

	// Bound on dial + authenticate + join
	HandshakeTimeoutMS int64 `toml:"handshake_timeout_ms"`

	// Keep-alive ping interval, 0 disables pings
	PingIntervalMS int64 `toml:"ping_interval_ms"`

	// Minimum spacing between connection attempts and the burst allowance
	ConnectIntervalMS int64 `toml:"connect_interval_ms"`
	ConnectBurst      int64 `toml:"connect_burst"`
}

// Authentication methods
const (
	AuthMethodToken = "token"
	AuthMethodJWT   = "jwt"
	AuthMethodScram = "scram"
)

// AuthConfig selects and configures the credential used by the transport and history client
type AuthConfig struct {
	// "token", "jwt" or "scram"
	Method string `toml:"method"`

	// Static bearer token, or a file holding one (re-read on every use)
	Token     string `toml:"token"`
	TokenFile string `toml:"token_file"`

	JWT   *JWTConfig   `toml:"jwt"`
	Scram *ScramConfig `toml:"scram"`
}

// JWTConfig configures locally minted service tokens
type JWTConfig struct {
	SigningKey string `toml:"signing_key"`
	Issuer     string `toml:"issuer"`
	Subject    string `toml:"subject"`
	TTLSeconds int64  `toml:"ttl_seconds"`
}

// ScramConfig holds SCRAM credentials; an empty password is prompted for on a terminal
type ScramConfig struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// HistoryConfig configures the REST client for paginated queries and exports
type HistoryConfig struct {
	BaseURL      string  `toml:"base_url"`
	TimeoutMS    int64   `toml:"timeout_ms"`
	MaxRetries   int64   `toml:"max_retries"`
	RetryDelayMS int64   `toml:"retry_delay_ms"`
	RetryBackoff float64 `toml:"retry_backoff"`
}

// TLSClientConfig customizes TLS for both wss:// and https:// connections
type TLSClientConfig struct {
	Enabled bool `toml:"enabled"`

	// CA bundle used to verify the admin backend instead of the system roots
	ServerCAFile string `toml:"server_ca_file"`

	// Client certificate for mTLS
	ClientCertFile string `toml:"client_cert_file"`
	ClientKeyFile  string `toml:"client_key_file"`

	// Overrides the SNI / verification hostname
	ServerName string `toml:"server_name"`

	MinVersion   string `toml:"min_version"`
	MaxVersion   string `toml:"max_version"`
	CipherSuites string `toml:"cipher_suites"`

	InsecureSkipVerify bool `toml:"insecure_skip_verify"`
}

// Output formats for non-interactive rendering
const (
	OutputFormatText = "text"
	OutputFormatJSON = "json"
	OutputFormatRaw  = "raw"
)

// OutputConfig controls how entries are printed when not using the terminal UI
type OutputConfig struct {
	// "text", "json" or "raw"
	Format string `toml:"format"`

	// text/template over ID, Timestamp, Category, Origin, Message and Metadata
	Template        string `toml:"template"`
	TimestampFormat string `toml:"timestamp_format"`
}

// FeedConfig describes one live feed view (operational logs, audit trail, ...)
type FeedConfig struct {
	Name string `toml:"name"`

	// Push event type merged into this feed
	EventType string `toml:"event_type"`

	// REST paths relative to history.base_url
	QueryPath  string `toml:"query_path"`
	ExportPath string `toml:"export_path"`

	MaxWindow      int64 `toml:"max_window"`
	PageSize       int64 `toml:"page_size"`
	PollIntervalMS int64 `toml:"poll_interval_ms"`

	// Start in real-time mode
	RealTime bool `toml:"realtime"`

	// Re-attempt the push connection on poll ticks while real-time mode is on
	ReconnectOnPoll bool `toml:"reconnect_on_poll"`

	// Static pattern filters applied before the user's criteria
	Filters []FilterConfig `toml:"filters"`
}

// Filter types, logic and target fields
const (
	FilterTypeInclude = "include"
	FilterTypeExclude = "exclude"
	FilterLogicOr     = "or"
	FilterLogicAnd    = "and"

	FilterFieldAll      = "all"
	FilterFieldMessage  = "message"
	FilterFieldCategory = "category"
	FilterFieldOrigin   = "origin"
	FilterFieldID       = "id"
)

// FilterConfig is a regex pattern filter over one entry field, or "origin category message" when field is all
type FilterConfig struct {
	Type     string   `toml:"type"`
	Logic    string   `toml:"logic"`
	Field    string   `toml:"field"`
	Patterns []string `toml:"patterns"`
}

// Feed returns the named feed, or the first feed when name is empty
func (c *Config) Feed(name string) (*FeedConfig, bool) {
	if len(c.Feeds) == 0 {
		return nil, false
	}
	if name == "" {
		return &c.Feeds[0], true
	}
	for i := range c.Feeds {
		if c.Feeds[i].Name == name {
			return &c.Feeds[i], true
		}
	}
	return nil, false
}
