// FILE: adminfeed/src/cmd/adminfeed/commands/args.go
package commands

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"adminfeed/src/internal/core"
	"adminfeed/src/internal/filter"

	"golang.org/x/term"
)

// splitArgs separates dotted configuration overrides (--transport.url=...) from command flags
func splitArgs(args []string) (configArgs, cmdArgs []string) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name := strings.TrimLeft(arg, "-")
		if name == arg || !strings.Contains(strings.SplitN(name, "=", 2)[0], ".") {
			cmdArgs = append(cmdArgs, arg)
			continue
		}
		if !strings.Contains(name, "=") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			// Space-separated value
			configArgs = append(configArgs, "--"+name+"="+args[i+1])
			i++
			continue
		}
		configArgs = append(configArgs, "--"+name)
	}
	return configArgs, cmdArgs
}

// commonFlags are accepted by every command that loads configuration
type commonFlags struct {
	configFile string
	quiet      bool
	feed       string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configFile, "c", "", "Config file path")
	fs.StringVar(&c.configFile, "config", "", "Config file path")
	fs.BoolVar(&c.quiet, "q", false, "Disable logging output")
	fs.BoolVar(&c.quiet, "quiet", false, "Disable logging output")
	fs.StringVar(&c.feed, "feed", "", "Feed name (default: first configured feed)")
}

// filterFlags build the filter criteria of a command
type filterFlags struct {
	category string
	search   string
	since    string
	until    string
}

func (f *filterFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.category, "category", core.CategoryAll, "Category filter (all, error, warn, ...)")
	fs.StringVar(&f.search, "search", "", "Case-insensitive text search")
	fs.StringVar(&f.since, "since", "", "Start time: duration back from now (1h) or RFC3339")
	fs.StringVar(&f.until, "until", "", "End time: duration back from now or RFC3339")
}

func (f *filterFlags) criteria(now time.Time) (filter.Criteria, error) {
	c := filter.Criteria{Category: f.category, Search: strings.TrimSpace(f.search)}

	var err error
	if c.Start, err = parseTimeArg(f.since, now); err != nil {
		return filter.Criteria{}, fmt.Errorf("invalid --since: %w", err)
	}
	if c.End, err = parseTimeArg(f.until, now); err != nil {
		return filter.Criteria{}, fmt.Errorf("invalid --until: %w", err)
	}
	if !c.Start.IsZero() && !c.End.IsZero() && c.End.Before(c.Start) {
		return filter.Criteria{}, fmt.Errorf("--until is before --since")
	}
	return c, nil
}

// parseTimeArg accepts a duration back from now or an absolute RFC3339 time
func parseTimeArg(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return time.Time{}, fmt.Errorf("negative duration %s", s)
		}
		return now.Add(-d).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("'%s' is neither a duration nor RFC3339", s)
	}
	return t.UTC(), nil
}

func newFlagSet(name string, errOut io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(errOut)
	return fs
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
