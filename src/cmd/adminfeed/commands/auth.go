// FILE: adminfeed/src/cmd/adminfeed/commands/auth.go
package commands

import (
	"adminfeed/src/internal/auth"
)

// AuthCommand generates SCRAM credential records and JWT signing keys
type AuthCommand struct {
	gen *auth.GeneratorCommand
}

func NewAuthCommand() *AuthCommand {
	return &AuthCommand{gen: auth.NewGeneratorCommand()}
}

func (c *AuthCommand) Execute(args []string) error {
	return c.gen.Execute(args)
}

func (c *AuthCommand) Description() string {
	return "Generate authentication credentials"
}

func (c *AuthCommand) Help() string {
	return `Auth Command - Generate authentication material

Usage:
  adminfeed auth -u <user> [-p <password>]   SCRAM credential record for the backend
  adminfeed auth -k [-l <bytes>]             JWT signing key for [auth.jwt]

Options:
  -u    Username for the SCRAM credential
  -p    Password (prompted without echo when omitted)
  -k    Generate a random JWT signing key
  -l    Signing key length in bytes (default 48, min 32)

Examples:
  adminfeed auth -u ops
  adminfeed auth -k -l 64
`
}
