// FILE: adminfeed/src/cmd/adminfeed/commands/query.go
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"adminfeed/src/internal/tui"
)

// QueryCommand fetches one page of a feed's history
type QueryCommand struct {
	ctx    context.Context
	output io.Writer
	errOut io.Writer
}

func NewQueryCommand(ctx context.Context) *QueryCommand {
	return &QueryCommand{ctx: ctx, output: os.Stdout, errOut: os.Stderr}
}

func (c *QueryCommand) Execute(args []string) error {
	configArgs, cmdArgs := splitArgs(args)

	fs := newFlagSet("query", c.errOut)
	var (
		common  commonFlags
		filters filterFlags
	)
	common.register(fs)
	filters.register(fs)
	limit := fs.Int("limit", 0, "Page size (default: feed page_size)")
	offset := fs.Int("offset", 0, "Rows to skip")
	plain := fs.Bool("plain", false, "Print plain lines")

	if err := fs.Parse(cmdArgs); err != nil {
		return err
	}
	if *limit < 0 || *offset < 0 {
		return fmt.Errorf("--limit and --offset cannot be negative")
	}

	criteria, err := filters.criteria(time.Now())
	if err != nil {
		return err
	}

	cfg, err := loadConfig(common, configArgs)
	if err != nil {
		return err
	}
	protectTerminal(cfg.Logging, false)

	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	fc, err := rt.feedConfig(common.feed)
	if err != nil {
		return err
	}
	if *limit == 0 {
		*limit = int(fc.PageSize)
	}

	if err := rt.ensureSession(c.ctx); err != nil {
		return err
	}

	page, err := rt.history.EndpointFor(fc).Query(c.ctx, criteria.Query(*limit, *offset))
	if err != nil {
		return fmt.Errorf("query %s: %w", fc.Name, err)
	}

	if *plain || !stdoutIsTerminal() {
		if err := tui.PrintEntries(c.output, rt.formatter, page.Entries); err != nil {
			return err
		}
	} else {
		for _, e := range page.Entries {
			fmt.Fprintln(c.output, tui.RenderEntry(e, 0))
		}
	}

	more := ""
	if page.HasMore {
		more = fmt.Sprintf(", next: --offset=%d", *offset+len(page.Entries))
	}
	fmt.Fprintf(c.errOut, "%d of %d entries (%s)%s\n", len(page.Entries), page.Total, criteria.String(), more)
	return nil
}

func (c *QueryCommand) Description() string {
	return "Fetch one page of feed history"
}

func (c *QueryCommand) Help() string {
	return `Query Command - Fetch one page of feed history

Usage:
  adminfeed query [options]

Options:
  --feed <name>        Feed to query (default: first configured feed)
  --category <name>    Category filter (default: all)
  --search <text>      Case-insensitive text search
  --since <time>       Duration back from now (1h) or RFC3339
  --until <time>       Duration back from now or RFC3339
  --limit <n>          Page size (default: feed page_size)
  --offset <n>         Rows to skip
  --plain              Print plain lines
  --output.format <f>  Plain line format: text, json or raw

Examples:
  adminfeed query --category=error --since=1h
  adminfeed query --feed=audit --search=refund --limit=100 --offset=100
`
}
