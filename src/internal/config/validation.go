// FILE: adminfeed/src/internal/config/validation.go
package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	lconfig "github.com/lixenwraith/config"
)

// validateConfig is the centralized validator for the entire configuration
func validateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if cfg.Logging == nil {
		cfg.Logging = DefaultLogConfig()
	}
	if err := validateLogConfig(cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := validateTransport(&cfg.Transport); err != nil {
		return fmt.Errorf("transport config: %w", err)
	}

	if err := validateAuth(&cfg.Auth); err != nil {
		return fmt.Errorf("auth config: %w", err)
	}

	if err := validateHistory(&cfg.History); err != nil {
		return fmt.Errorf("history config: %w", err)
	}

	if err := validateTLS(&cfg.TLS); err != nil {
		return fmt.Errorf("tls config: %w", err)
	}

	if err := validateOutput(&cfg.Output); err != nil {
		return fmt.Errorf("output config: %w", err)
	}

	if len(cfg.Feeds) == 0 {
		return fmt.Errorf("no feeds configured")
	}

	feedNames := make(map[string]bool)
	for i := range cfg.Feeds {
		if err := validateFeed(i, &cfg.Feeds[i], feedNames); err != nil {
			return err
		}
	}

	return nil
}

func validateLogConfig(cfg *LogConfig) error {
	validOutputs := map[string]bool{
		"file": true, "stdout": true, "stderr": true,
		"both": true, "none": true,
	}
	if !validOutputs[cfg.Output] {
		return fmt.Errorf("invalid log output mode: %s", cfg.Output)
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[cfg.Level] {
		return fmt.Errorf("invalid log level: %s", cfg.Level)
	}

	if cfg.Console != nil {
		validTargets := map[string]bool{
			"stdout": true, "stderr": true, "split": true,
		}
		if !validTargets[cfg.Console.Target] {
			return fmt.Errorf("invalid console target: %s", cfg.Console.Target)
		}

		validFormats := map[string]bool{
			"txt": true, "json": true, "": true,
		}
		if !validFormats[cfg.Console.Format] {
			return fmt.Errorf("invalid console format: %s", cfg.Console.Format)
		}
	}

	return nil
}

func validateTransport(t *TransportConfig) error {
	if err := lconfig.NonEmpty(t.URL); err != nil {
		return fmt.Errorf("missing 'url'")
	}

	parsedURL, err := url.Parse(t.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsedURL.Scheme != "ws" && parsedURL.Scheme != "wss" {
		return fmt.Errorf("url must use ws or wss scheme, got '%s'", parsedURL.Scheme)
	}

	// Set defaults for unspecified fields
	if t.Group == "" {
		t.Group = "admin"
	}
	if t.HandshakeTimeoutMS <= 0 {
		t.HandshakeTimeoutMS = 20000
	}
	if t.PingIntervalMS < 0 {
		return fmt.Errorf("ping_interval_ms cannot be negative")
	}
	if t.PingIntervalMS > 0 && t.PingIntervalMS < 1000 {
		return fmt.Errorf("ping_interval_ms must be at least 1000ms")
	}
	if t.ConnectIntervalMS <= 0 {
		t.ConnectIntervalMS = 2000
	}
	if t.ConnectBurst <= 0 {
		t.ConnectBurst = 3
	}

	return nil
}

func validateAuth(a *AuthConfig) error {
	switch a.Method {
	case AuthMethodToken, "":
		a.Method = AuthMethodToken
		if a.Token == "" && a.TokenFile == "" {
			return fmt.Errorf("token auth requires 'token' or 'token_file'")
		}

	case AuthMethodJWT:
		if a.JWT == nil {
			return fmt.Errorf("jwt auth requires [auth.jwt] section")
		}
		if err := lconfig.NonEmpty(a.JWT.SigningKey); err != nil {
			return fmt.Errorf("jwt auth requires 'signing_key'")
		}
		if len(a.JWT.SigningKey) < 32 {
			return fmt.Errorf("jwt signing_key must be at least 32 bytes")
		}
		if a.JWT.Subject == "" {
			a.JWT.Subject = "adminfeed"
		}
		if a.JWT.TTLSeconds <= 0 {
			a.JWT.TTLSeconds = 900
		}

	case AuthMethodScram:
		if a.Scram == nil {
			return fmt.Errorf("scram auth requires [auth.scram] section")
		}
		if err := lconfig.NonEmpty(a.Scram.Username); err != nil {
			return fmt.Errorf("scram auth requires 'username'")
		}
		// Empty password is prompted for at startup

	default:
		return fmt.Errorf("invalid auth method '%s' (valid: token, jwt, scram)", a.Method)
	}

	return nil
}

func validateHistory(h *HistoryConfig) error {
	if err := lconfig.NonEmpty(h.BaseURL); err != nil {
		return fmt.Errorf("missing 'base_url'")
	}

	parsedURL, err := url.Parse(h.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("base_url must use http or https scheme")
	}

	if h.TimeoutMS <= 0 {
		h.TimeoutMS = 15000
	}
	if h.MaxRetries < 0 {
		h.MaxRetries = 0
	}
	if h.RetryDelayMS <= 0 {
		h.RetryDelayMS = 500
	}
	if h.RetryBackoff < 1.0 {
		h.RetryBackoff = 2.0
	}

	return nil
}

func validateTLS(t *TLSClientConfig) error {
	if !t.Enabled {
		return nil
	}

	if (t.ClientCertFile == "") != (t.ClientKeyFile == "") {
		return fmt.Errorf("client_cert_file and client_key_file must be set together")
	}

	validVersions := map[string]bool{
		"": true, "TLS1.2": true, "TLS1.3": true,
	}
	if !validVersions[strings.ToUpper(t.MinVersion)] {
		return fmt.Errorf("invalid min_version '%s' (valid: TLS1.2, TLS1.3)", t.MinVersion)
	}
	if !validVersions[strings.ToUpper(t.MaxVersion)] {
		return fmt.Errorf("invalid max_version '%s' (valid: TLS1.2, TLS1.3)", t.MaxVersion)
	}

	return nil
}

func validateOutput(o *OutputConfig) error {
	switch o.Format {
	case "":
		o.Format = OutputFormatText
	case OutputFormatText, OutputFormatJSON, OutputFormatRaw:
	default:
		return fmt.Errorf("invalid format '%s' (valid: text, json, raw)", o.Format)
	}
	if o.TimestampFormat == "" {
		o.TimestampFormat = time.RFC3339
	}
	return nil
}

func validateFeed(index int, f *FeedConfig, feedNames map[string]bool) error {
	if err := lconfig.NonEmpty(f.Name); err != nil {
		return fmt.Errorf("feed %d: missing name", index)
	}
	if feedNames[f.Name] {
		return fmt.Errorf("feed %d: duplicate name '%s'", index, f.Name)
	}
	feedNames[f.Name] = true

	if err := lconfig.NonEmpty(f.EventType); err != nil {
		return fmt.Errorf("feed '%s': missing 'event_type'", f.Name)
	}
	if err := lconfig.NonEmpty(f.QueryPath); err != nil {
		return fmt.Errorf("feed '%s': missing 'query_path'", f.Name)
	}

	if f.MaxWindow <= 0 {
		f.MaxWindow = 50
	}
	if f.MaxWindow > 10000 {
		return fmt.Errorf("feed '%s': max_window %d exceeds 10000", f.Name, f.MaxWindow)
	}
	if f.PageSize <= 0 {
		f.PageSize = f.MaxWindow
	}
	if f.PollIntervalMS <= 0 {
		f.PollIntervalMS = 10000
	}
	if f.PollIntervalMS < 500 {
		return fmt.Errorf("feed '%s': poll_interval_ms must be at least 500ms", f.Name)
	}

	for j := range f.Filters {
		if err := validateFilter(f.Name, j, &f.Filters[j]); err != nil {
			return err
		}
	}

	return nil
}

func validateFilter(feedName string, filterIndex int, cfg *FilterConfig) error {
	// Validate filter type
	switch cfg.Type {
	case FilterTypeInclude, FilterTypeExclude, "":
		// Valid types
	default:
		return fmt.Errorf("feed '%s' filter[%d]: invalid type '%s' (must be 'include' or 'exclude')",
			feedName, filterIndex, cfg.Type)
	}

	// Validate filter logic
	switch cfg.Logic {
	case FilterLogicOr, FilterLogicAnd, "":
		// Valid logic
	default:
		return fmt.Errorf("feed '%s' filter[%d]: invalid logic '%s' (must be 'or' or 'and')",
			feedName, filterIndex, cfg.Logic)
	}

	switch cfg.Field {
	case FilterFieldAll, FilterFieldMessage, FilterFieldCategory, FilterFieldOrigin, FilterFieldID, "":
	default:
		return fmt.Errorf("feed '%s' filter[%d]: invalid field '%s' (valid: all, message, category, origin, id)",
			feedName, filterIndex, cfg.Field)
	}

	// Empty patterns is valid - passes everything
	for i, pattern := range cfg.Patterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("feed '%s' filter[%d] pattern[%d] '%s': invalid regex: %w",
				feedName, filterIndex, i, pattern, err)
		}
	}

	return nil
}
