// FILE: adminfeed/src/cmd/adminfeed/commands/version.go
package commands

import (
	"fmt"
	"io"
	"os"

	"adminfeed/src/internal/version"
)

// VersionCommand prints build information
type VersionCommand struct {
	output io.Writer
}

func NewVersionCommand() *VersionCommand {
	return &VersionCommand{output: os.Stdout}
}

func (c *VersionCommand) Execute(args []string) error {
	fs := newFlagSet("version", os.Stderr)
	short := fs.Bool("short", false, "Print only the version tag")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *short {
		fmt.Fprintln(c.output, version.Short())
		return nil
	}
	fmt.Fprintf(c.output, "adminfeed %s\n", version.String())
	fmt.Fprintf(c.output, "  %s\n", version.Platform())
	return nil
}

func (c *VersionCommand) Description() string {
	return "Show version information"
}

func (c *VersionCommand) Help() string {
	return `Version Command - Show adminfeed build information

Usage:
  adminfeed version [--short]

Options:
  --short              Print only the version tag (for scripts)
`
}
