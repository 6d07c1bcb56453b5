// FILE: adminfeed/src/cmd/adminfeed/commands/tail.go
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"adminfeed/src/internal/feed"
	"adminfeed/src/internal/format"
	"adminfeed/src/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
)

// TailCommand follows one feed live, in the terminal UI or as plain lines
type TailCommand struct {
	ctx    context.Context
	output io.Writer
	errOut io.Writer
}

func NewTailCommand(ctx context.Context) *TailCommand {
	return &TailCommand{ctx: ctx, output: os.Stdout, errOut: os.Stderr}
}

func (c *TailCommand) Execute(args []string) error {
	configArgs, cmdArgs := splitArgs(args)

	fs := newFlagSet("tail", c.errOut)
	var (
		common  commonFlags
		filters filterFlags
	)
	common.register(fs)
	filters.register(fs)
	plain := fs.Bool("plain", false, "Print plain lines instead of the interactive view")
	pollOnly := fs.Bool("poll", false, "Poll only, without the push connection")
	interval := fs.Duration("interval", 0, "Poll interval (default: feed poll_interval_ms)")

	if err := fs.Parse(cmdArgs); err != nil {
		return err
	}

	criteria, err := filters.criteria(time.Now())
	if err != nil {
		return err
	}

	cfg, err := loadConfig(common, configArgs)
	if err != nil {
		return err
	}
	fc, ok := cfg.Feed(common.feed)
	if !ok {
		return fmt.Errorf("unknown feed '%s'", common.feed)
	}

	interactive := !*plain && stdoutIsTerminal()
	protectTerminal(cfg.Logging, interactive)

	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	syncer, err := rt.openFeed(fc, criteria)
	if err != nil {
		return err
	}
	defer syncer.Close()

	if err := rt.ensureSession(c.ctx); err != nil {
		return err
	}

	if err := c.startFeed(syncer, fc.RealTime && !*pollOnly, *interval); err != nil {
		return err
	}

	if !interactive {
		return c.runPlain(syncer, rt.formatter)
	}
	return c.runInteractive(syncer)
}

// liveFeed is the part of a synchronizer that tail switches on
type liveFeed interface {
	EnableRealtime(ctx context.Context) error
	StartPolling(interval time.Duration) error
}

// startFeed enables real-time when wanted and polling when it is the only source
// or an explicit interval was given. A failed real-time connect falls back to polling.
func (c *TailCommand) startFeed(f liveFeed, realtime bool, interval time.Duration) error {
	if realtime {
		if err := f.EnableRealtime(c.ctx); err != nil {
			fmt.Fprintf(c.errOut, "Real-time unavailable, polling: %v\n", err)
		}
	}
	// Real-time already runs the backstop at the feed interval
	if !realtime || interval > 0 {
		if err := f.StartPolling(interval); err != nil {
			return fmt.Errorf("start polling: %w", err)
		}
	}
	return nil
}

func (c *TailCommand) runPlain(syncer *feed.Synchronizer, f format.Formatter) error {
	printer := tui.NewPrinter(c.output, f)
	cancel := syncer.Watch(printer.Print)
	defer cancel()

	if err := syncer.Refresh(c.ctx); err != nil && !errors.Is(err, feed.ErrStale) {
		fmt.Fprintf(c.errOut, "Initial fetch failed: %v\n", err)
	}

	<-c.ctx.Done()
	return nil
}

func (c *TailCommand) runInteractive(syncer *feed.Synchronizer) error {
	p := tea.NewProgram(tui.NewModel(c.ctx, syncer, nil), tea.WithAltScreen())

	go func() {
		<-c.ctx.Done()
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("terminal UI: %w", err)
	}
	return nil
}

func (c *TailCommand) Description() string {
	return "Follow a feed live (default command)"
}

func (c *TailCommand) Help() string {
	return `Tail Command - Follow a feed live

Usage:
  adminfeed tail [options]

Options:
  --feed <name>        Feed to follow (default: first configured feed)
  --category <name>    Category filter (default: all)
  --search <text>      Case-insensitive text search
  --since <time>       Duration back from now (1h) or RFC3339
  --until <time>       Duration back from now or RFC3339
  --plain              Print plain lines instead of the interactive view
  --output.format <f>  Plain line format: text, json or raw
  --poll               Poll only, without the push connection
  --interval <dur>     Poll interval (default: feed poll_interval_ms)

Keys:
  q quit  r refresh  t toggle real-time  p toggle polling
  c cycle category  / edit search  esc clear filter

Examples:
  adminfeed tail --feed=audit
  adminfeed tail --category=error --plain | grep storage
`
}
