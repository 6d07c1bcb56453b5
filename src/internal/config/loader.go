// FILE: adminfeed/src/internal/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	lconfig "github.com/lixenwraith/config"
)

const envPrefix = "ADMINFEED_"

func defaults() *Config {
	return &Config{
		Logging: DefaultLogConfig(),
		Transport: TransportConfig{
			URL:                "ws://localhost:8080/ws",
			Group:              "admin",
			HandshakeTimeoutMS: 20000,
			PingIntervalMS:     25000,
			ConnectIntervalMS:  2000,
			ConnectBurst:       3,
		},
		Auth: AuthConfig{
			Method: AuthMethodToken,
		},
		History: HistoryConfig{
			BaseURL:      "http://localhost:8080",
			TimeoutMS:    15000,
			MaxRetries:   2,
			RetryDelayMS: 500,
			RetryBackoff: 2.0,
		},
		Output: OutputConfig{
			Format:          OutputFormatText,
			TimestampFormat: time.RFC3339,
		},
		Feeds: []FeedConfig{
			{
				Name:            "logs",
				EventType:       "log:new",
				QueryPath:       "/api/admin/logs",
				ExportPath:      "/api/admin/logs/export",
				MaxWindow:       50,
				PageSize:        50,
				PollIntervalMS:  10000,
				RealTime:        true,
				ReconnectOnPoll: true,
			},
			{
				Name:            "audit",
				EventType:       "audit:new",
				QueryPath:       "/api/admin/audit-logs",
				ExportPath:      "/api/admin/audit-logs/export",
				MaxWindow:       50,
				PageSize:        50,
				PollIntervalMS:  30000,
				RealTime:        true,
				ReconnectOnPoll: true,
			},
		},
	}
}

// Defaults exposes the built-in configuration
func Defaults() *Config {
	return defaults()
}

// Load reads configuration from CLI args, environment, config file and defaults, in that precedence
func Load(args []string) (*Config, error) {
	configPath := GetConfigPath()

	cfg, err := lconfig.NewBuilder().
		WithDefaults(defaults()).
		WithEnvPrefix(envPrefix).
		WithFile(configPath).
		WithArgs(args).
		WithEnvTransform(customEnvTransform).
		WithSources(
			lconfig.SourceCLI,
			lconfig.SourceEnv,
			lconfig.SourceFile,
			lconfig.SourceDefault,
		).
		Build()

	if err != nil {
		// Missing config file is fine, defaults and env still apply
		if !strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if cfg == nil {
		return nil, fmt.Errorf("failed to load config: no configuration built")
	}

	finalConfig := &Config{}
	if err := cfg.Scan("", finalConfig); err != nil {
		return nil, fmt.Errorf("failed to scan config: %w", err)
	}
	finalConfig.ConfigFile = configPath

	if err := validateConfig(finalConfig); err != nil {
		return nil, err
	}
	return finalConfig, nil
}

func customEnvTransform(path string) string {
	env := strings.ReplaceAll(path, ".", "_")
	env = strings.ToUpper(env)
	env = envPrefix + env
	return env
}

// GetConfigPath resolves the config file location from the environment
func GetConfigPath() string {
	if configFile := os.Getenv(envPrefix + "CONFIG_FILE"); configFile != "" {
		if filepath.IsAbs(configFile) {
			return configFile
		}
		if configDir := os.Getenv(envPrefix + "CONFIG_DIR"); configDir != "" {
			return filepath.Join(configDir, configFile)
		}
		return configFile
	}

	if configDir := os.Getenv(envPrefix + "CONFIG_DIR"); configDir != "" {
		return filepath.Join(configDir, "adminfeed.toml")
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config", "adminfeed.toml")
	}

	return "adminfeed.toml"
}
