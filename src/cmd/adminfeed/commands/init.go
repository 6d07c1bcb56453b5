// FILE: adminfeed/src/cmd/adminfeed/commands/init.go
package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"adminfeed/src/internal/config"
)

// InitCommand writes a starter configuration file
type InitCommand struct {
	output io.Writer
	errOut io.Writer
}

func NewInitCommand() *InitCommand {
	return &InitCommand{output: os.Stdout, errOut: os.Stderr}
}

func (c *InitCommand) Execute(args []string) error {
	fs := newFlagSet("init", c.errOut)
	out := fs.String("out", "", "Config file to write (default: resolved config path)")
	force := fs.Bool("force", false, "Overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := coalesceString(*out, config.GetConfigPath())
	if err := config.Defaults().SaveToFile(path, *force); err != nil {
		if errors.Is(err, config.ErrConfigExists) {
			return fmt.Errorf("%w (use --force to overwrite)", err)
		}
		return err
	}
	fmt.Fprintf(c.output, "Wrote default configuration to %s\n", path)
	fmt.Fprintln(c.output, "Set [auth] credentials and the backend URLs before running 'adminfeed tail'.")
	return nil
}

func (c *InitCommand) Description() string {
	return "Write a starter configuration file"
}

func (c *InitCommand) Help() string {
	return `Init Command - Write a starter configuration file

Usage:
  adminfeed init [--out <path>] [--force]

The file holds the built-in defaults: a 'logs' feed (log:new) and an
'audit' feed (audit:new), token authentication and local backend URLs.
`
}
