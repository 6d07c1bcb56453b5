// FILE: adminfeed/src/cmd/adminfeed/commands/export.go
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"adminfeed/src/internal/history"
)

// ExportCommand downloads a feed's history as CSV or JSON
type ExportCommand struct {
	ctx    context.Context
	output io.Writer
	errOut io.Writer
}

func NewExportCommand(ctx context.Context) *ExportCommand {
	return &ExportCommand{ctx: ctx, output: os.Stdout, errOut: os.Stderr}
}

func (c *ExportCommand) Execute(args []string) error {
	configArgs, cmdArgs := splitArgs(args)

	fs := newFlagSet("export", c.errOut)
	var (
		common  commonFlags
		filters filterFlags
	)
	common.register(fs)
	filters.register(fs)
	format := fs.String("format", history.FormatCSV, "Export format: csv or json")
	compress := fs.String("compress", "", "Compression: zstd")
	out := fs.String("out", "", "Output file (default: stdout)")

	if err := fs.Parse(cmdArgs); err != nil {
		return err
	}
	if *format != history.FormatCSV && *format != history.FormatJSON {
		return fmt.Errorf("invalid --format '%s' (valid: csv, json)", *format)
	}
	if *compress != history.CompressionNone && *compress != history.CompressionZstd {
		return fmt.Errorf("invalid --compress '%s' (valid: zstd)", *compress)
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

	if err := rt.ensureSession(c.ctx); err != nil {
		return err
	}

	w := c.output
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	n, err := rt.history.EndpointFor(fc).ExportTo(c.ctx, w, *format, criteria.Query(0, 0), *compress)
	if err != nil {
		return fmt.Errorf("export %s: %w", fc.Name, err)
	}

	rt.logger.Info("msg", "Export written",
		"component", "export",
		"feed", fc.Name,
		"format", *format,
		"compression", *compress,
		"bytes", n,
		"out", coalesceString(*out, "stdout"))
	if *out != "" {
		fmt.Fprintf(c.errOut, "Wrote %d bytes to %s\n", n, *out)
	}
	return nil
}

func (c *ExportCommand) Description() string {
	return "Export feed history as CSV or JSON"
}

func (c *ExportCommand) Help() string {
	return `Export Command - Export feed history

Usage:
  adminfeed export [options]

Options:
  --feed <name>        Feed to export (default: first configured feed)
  --format <fmt>       csv or json (default: csv)
  --compress zstd      Compress the output with zstd
  --out <file>         Output file (default: stdout)
  --category, --search, --since, --until   Same filters as query

Examples:
  adminfeed export --feed=audit --since=24h --out=audit.csv
  adminfeed export --format=json --compress=zstd --out=logs.json.zst
`
}
