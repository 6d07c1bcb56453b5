// FILE: adminfeed/src/cmd/adminfeed/commands/help.go
package commands

import (
	"fmt"
	"strings"
)

// generalHelpTemplate is the default help message shown when no specific command is requested.
const generalHelpTemplate = `adminfeed: live operational and audit log feeds for the admin backend.

Usage:
  adminfeed [command] [options]
  adminfeed [options]              Same as 'adminfeed tail'

Commands:
%s

Common Options:
  -c, --config <path>      Path to configuration file (default: ~/.config/adminfeed.toml)
  -q, --quiet              Disable logging output
  --<section>.<key>=<val>  Override any configuration value, e.g. --transport.url=wss://admin/ws

For command-specific help:
  adminfeed help <command>
  adminfeed <command> --help

Configuration Sources (Precedence: CLI > Env > File > Defaults):
  - CLI flags override all other settings
  - Environment variables (ADMINFEED_TRANSPORT_URL, ...) override file settings
  - TOML configuration file is the primary method

Examples:
  # Write a starter config
  adminfeed init

  # Follow the audit feed, warnings only
  adminfeed tail --feed=audit --category=warn

  # Last hour of errors as plain text
  adminfeed query --category=error --since=1h --plain

  # Newline-delimited JSON for scripts
  adminfeed tail --plain --output.format=json | jq .message
`

// HelpCommand handles the display of general or command-specific help messages.
type HelpCommand struct {
	router *CommandRouter
}

// NewHelpCommand creates a new help command handler.
func NewHelpCommand(router *CommandRouter) *HelpCommand {
	return &HelpCommand{router: router}
}

// Execute displays the appropriate help message based on the provided arguments.
func (c *HelpCommand) Execute(args []string) error {
	if len(args) > 0 && args[0] != "" {
		cmdName := args[0]

		if handler, exists := c.router.GetCommand(cmdName); exists {
			fmt.Fprint(c.router.output, handler.Help())
			return nil
		}

		return fmt.Errorf("unknown command: %s", cmdName)
	}

	fmt.Fprintf(c.router.output, generalHelpTemplate, c.formatCommandList())
	return nil
}

func (c *HelpCommand) Description() string {
	return "Display help information"
}

func (c *HelpCommand) Help() string {
	return `Help Command - Display help information

Usage:
  adminfeed help              Show general help
  adminfeed help <command>    Show help for a specific command

Examples:
  adminfeed help              # Show general help
  adminfeed help query        # Show query command help
  adminfeed query --help      # Alternative way to get command help
`
}

// formatCommandList renders one aligned line per command, marking the default
func (c *HelpCommand) formatCommandList() string {
	names := c.router.Names()
	width := 0
	for _, name := range names {
		width = max(width, len(name))
	}

	lines := make([]string, 0, len(names))
	for _, name := range names {
		handler, _ := c.router.GetCommand(name)
		desc := handler.Description()
		if name == DefaultCommand {
			desc += " (default)"
		}
		lines = append(lines, fmt.Sprintf("  %-*s  %s", width, name, desc))
	}
	return strings.Join(lines, "\n")
}
