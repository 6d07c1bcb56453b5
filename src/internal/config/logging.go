// FILE: adminfeed/src/internal/config/logging.go
package config

import (
	"os"
	"path/filepath"
)

// LogConfig controls adminfeed's own diagnostics, not the feed entries it displays
type LogConfig struct {
	Output  string            `toml:"output"` // file, stdout, stderr, both, none
	Level   string            `toml:"level"`  // debug, info, warn, error
	File    *LogFileConfig    `toml:"file"`
	Console *LogConsoleConfig `toml:"console"`
}

// LogFileConfig sets rotation for file output
type LogFileConfig struct {
	Directory      string  `toml:"directory"`
	Name           string  `toml:"name"`
	MaxSizeMB      int64   `toml:"max_size_mb"`
	MaxTotalSizeMB int64   `toml:"max_total_size_mb"`
	RetentionHours float64 `toml:"retention_hours"` // 0 keeps files until the size cap
}

// LogConsoleConfig applies to stdout/stderr output. The interactive view suppresses it.
type LogConsoleConfig struct {
	Target string `toml:"target"` // stdout, stderr, split
	Format string `toml:"format"` // txt, json
}

// DefaultLogConfig logs to a per-user file so the terminal stays free for the feed
func DefaultLogConfig() *LogConfig {
	return &LogConfig{
		Output: "file",
		Level:  "info",
		File: &LogFileConfig{
			Directory:      defaultLogDir(),
			Name:           "adminfeed",
			MaxSizeMB:      10,
			MaxTotalSizeMB: 100,
			RetentionHours: 72,
		},
		Console: &LogConsoleConfig{
			Target: "stderr",
			Format: "txt",
		},
	}
}

// defaultLogDir is $XDG_STATE_HOME/adminfeed, ~/.local/state/adminfeed, or ./log
func defaultLogDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "adminfeed")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "state", "adminfeed")
	}
	return "./log"
}
