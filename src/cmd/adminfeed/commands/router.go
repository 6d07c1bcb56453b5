// FILE: adminfeed/src/cmd/adminfeed/commands/router.go
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
)

// DefaultCommand runs when no command is named
const DefaultCommand = "tail"

// Handler defines the interface required for all subcommands.
type Handler interface {
	Execute(args []string) error
	Description() string
	Help() string
}

// CommandRouter routes CLI arguments to the matching subcommand handler.
type CommandRouter struct {
	commands map[string]Handler
	output   io.Writer
	errOut   io.Writer
}

// NewCommandRouter creates the router with all available commands; ctx bounds long-running commands
func NewCommandRouter(ctx context.Context) *CommandRouter {
	router := &CommandRouter{
		commands: make(map[string]Handler),
		output:   os.Stdout,
		errOut:   os.Stderr,
	}

	router.commands["tail"] = NewTailCommand(ctx)
	router.commands["query"] = NewQueryCommand(ctx)
	router.commands["export"] = NewExportCommand(ctx)
	router.commands["auth"] = NewAuthCommand()
	router.commands["init"] = NewInitCommand()
	router.commands["version"] = NewVersionCommand()
	router.commands["help"] = NewHelpCommand(router)

	return router
}

// Route executes the subcommand named by args[1], or the default command when
// args[1] is absent or a flag. args[0] is the program name.
func (r *CommandRouter) Route(args []string) error {
	if len(args) < 2 {
		return r.commands[DefaultCommand].Execute(nil)
	}

	cmdName := args[1]
	rest := args[2:]

	if cmdName == "" || cmdName[0] == '-' {
		cmdName = DefaultCommand
		rest = args[1:]
	}

	handler, exists := r.commands[cmdName]
	if !exists {
		return fmt.Errorf("unknown command: %s\n\nRun 'adminfeed help' for usage", cmdName)
	}

	// Help flag at any position shows command help
	for _, arg := range rest {
		if arg == "-h" || arg == "--help" {
			if cmdName == "help" || cmdName != args[1] {
				return r.commands["help"].Execute(nil)
			}
			fmt.Fprint(r.output, handler.Help())
			return nil
		}
	}

	return handler.Execute(rest)
}

// GetCommand returns a specific command handler by its name.
func (r *CommandRouter) GetCommand(name string) (Handler, bool) {
	cmd, exists := r.commands[name]
	return cmd, exists
}

// Names returns the registered command names in sorted order
func (r *CommandRouter) Names() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// coalesceString returns the first non-empty string from a list of arguments.
func coalesceString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
