// FILE: adminfeed/src/cmd/adminfeed/commands/logging.go
package commands

import (
	"fmt"
	"strings"

	"adminfeed/src/internal/config"

	"github.com/lixenwraith/log"
)

// initializeLogger builds the logger from the logging section
func initializeLogger(cfg *config.Config) (*log.Logger, error) {
	logger := log.NewLogger()

	configArgs, err := loggerArgs(cfg)
	if err != nil {
		return nil, err
	}
	if err := logger.InitWithDefaults(configArgs...); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// protectTerminal keeps log lines out of the data the command prints.
// The interactive view owns the whole terminal, so console logging is dropped there;
// otherwise stdout logging moves to stderr.
func protectTerminal(l *config.LogConfig, interactive bool) {
	if l == nil {
		return
	}

	if interactive {
		switch l.Output {
		case "stdout", "stderr":
			l.Output = "none"
		case "both":
			l.Output = "file"
		}
		return
	}

	switch l.Output {
	case "stdout":
		l.Output = "stderr"
	case "both":
		if l.Console == nil {
			l.Console = &config.LogConsoleConfig{}
		}
		l.Console.Target = "stderr"
	}
}

// loggerArgs maps the logging section onto logger key=value overrides
func loggerArgs(cfg *config.Config) ([]string, error) {
	if cfg.Quiet {
		return []string{"disable_file=true", "enable_stdout=false", "level=255"}, nil
	}

	level, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var toFile, toConsole bool
	target := cfg.Logging.Output
	switch cfg.Logging.Output {
	case "none":
	case "stdout", "stderr":
		toConsole = true
	case "file":
		toFile = true
	case "both":
		toFile, toConsole = true, true
		target = "stderr"
		if cfg.Logging.Console != nil && cfg.Logging.Console.Target != "" {
			target = cfg.Logging.Console.Target
		}
	default:
		return nil, fmt.Errorf("invalid log output mode: %s", cfg.Logging.Output)
	}

	args := []string{
		fmt.Sprintf("level=%d", level),
		fmt.Sprintf("enable_stdout=%t", toConsole),
	}

	if toFile {
		args = append(args, fileArgs(cfg.Logging.File)...)
	} else {
		args = append(args, "disable_file=true")
	}

	if toConsole {
		if target == "split" {
			args = append(args, "stdout_split_mode=true")
		}
		args = append(args, "stdout_target="+target)
		if cfg.Logging.Console != nil && cfg.Logging.Console.Format != "" {
			args = append(args, "format="+cfg.Logging.Console.Format)
		}
	}

	return args, nil
}

func fileArgs(f *config.LogFileConfig) []string {
	if f == nil {
		return nil
	}
	args := []string{
		"directory=" + f.Directory,
		"name=" + f.Name,
		fmt.Sprintf("max_size_mb=%d", f.MaxSizeMB),
		fmt.Sprintf("max_total_size_mb=%d", f.MaxTotalSizeMB),
	}
	if f.RetentionHours > 0 {
		args = append(args, fmt.Sprintf("retention_period_hrs=%.1f", f.RetentionHours))
	}
	return args
}

func parseLogLevel(level string) (int, error) {
	switch strings.ToLower(level) {
	case "debug":
		return int(log.LevelDebug), nil
	case "info":
		return int(log.LevelInfo), nil
	case "warn", "warning":
		return int(log.LevelWarn), nil
	case "error":
		return int(log.LevelError), nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", level)
	}
}
