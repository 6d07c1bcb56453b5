// FILE: adminfeed/src/internal/auth/generator.go
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"io"
	"os"
	"syscall"

	"golang.org/x/term"
)

// GeneratorCommand produces credentials for the admin backend and adminfeed config
type GeneratorCommand struct {
	output io.Writer
	errOut io.Writer

	// Reads a password without echo; replaced in tests
	readPassword func(prompt string) (string, error)
}

func NewGeneratorCommand() *GeneratorCommand {
	g := &GeneratorCommand{
		output: os.Stdout,
		errOut: os.Stderr,
	}
	g.readPassword = func(prompt string) (string, error) {
		return PromptPassword(g.errOut, prompt)
	}
	return g
}

func (g *GeneratorCommand) Execute(args []string) error {
	cmd := flag.NewFlagSet("auth", flag.ContinueOnError)
	cmd.SetOutput(g.errOut)

	var (
		username = cmd.String("u", "", "Username for a SCRAM credential record")
		password = cmd.String("p", "", "Password (will prompt if not provided)")
		genKey   = cmd.Bool("k", false, "Generate random JWT signing key")
		keyLen   = cmd.Int("l", 48, "Signing key length in bytes")
	)

	cmd.Usage = func() {
		fmt.Fprintln(g.errOut, "Generate authentication material for adminfeed")
		fmt.Fprintln(g.errOut, "\nUsage: adminfeed auth [options]")
		fmt.Fprintln(g.errOut, "\nExamples:")
		fmt.Fprintln(g.errOut, "  # Derive SCRAM credential record for user")
		fmt.Fprintln(g.errOut, "  adminfeed auth -u ops")
		fmt.Fprintln(g.errOut, "  ")
		fmt.Fprintln(g.errOut, "  # Generate 64-byte JWT signing key")
		fmt.Fprintln(g.errOut, "  adminfeed auth -k -l 64")
		fmt.Fprintln(g.errOut, "\nOptions:")
		cmd.PrintDefaults()
	}

	if err := cmd.Parse(args); err != nil {
		return err
	}

	if *genKey {
		return g.generateSigningKey(*keyLen)
	}

	if *username == "" {
		cmd.Usage()
		return fmt.Errorf("username required for credential generation")
	}

	return g.generateCredential(*username, *password)
}

func (g *GeneratorCommand) generateCredential(username, password string) error {
	if password == "" {
		pass1, err := g.readPassword("Enter password: ")
		if err != nil {
			return err
		}
		pass2, err := g.readPassword("Confirm password: ")
		if err != nil {
			return err
		}
		if pass1 != pass2 {
			return fmt.Errorf("passwords don't match")
		}
		password = pass1
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	cred, err := DeriveCredential(username, password, salt, argon2Time, argon2Memory, argon2Threads)
	if err != nil {
		return err
	}

	verifier := cred.Verifier()
	if err := checkVerifier(username, password, verifier); err != nil {
		return fmt.Errorf("generated verifier failed login check: %w", err)
	}

	fmt.Fprintln(g.output, "\n# Backend SCRAM verifier (store against the user, never the password):")
	fmt.Fprintf(g.output, "%s %s\n\n", cred.Username, verifier)

	fmt.Fprintln(g.output, "# adminfeed.toml:")
	fmt.Fprintln(g.output, "[auth]")
	fmt.Fprintf(g.output, "method = %q\n", "scram")
	fmt.Fprintln(g.output, "[auth.scram]")
	fmt.Fprintf(g.output, "username = %q\n", cred.Username)

	return nil
}

// checkVerifier runs a full SCRAM login of username/password against the
// encoded verifier, as the backend would after storing it
func checkVerifier(username, password, verifier string) error {
	cred, err := ParseVerifier(username, verifier)
	if err != nil {
		return err
	}
	server := NewScramServer()
	server.AddCredential(cred)

	client := NewScramClient(username, password)
	first, err := client.StartAuthentication()
	if err != nil {
		return err
	}
	challenge, err := server.HandleClientFirst(first)
	if err != nil {
		return err
	}
	proof, err := client.ProcessServerFirst(challenge)
	if err != nil {
		return err
	}
	final, err := server.HandleClientFinal(proof)
	if err != nil {
		return err
	}
	return client.VerifyServerFinal(final)
}

func (g *GeneratorCommand) generateSigningKey(length int) error {
	if length < 32 {
		return fmt.Errorf("signing key must be at least 32 bytes")
	}
	if length > 512 {
		return fmt.Errorf("signing key length exceeds maximum (512 bytes)")
	}

	key := make([]byte, length)
	if _, err := rand.Read(key); err != nil {
		return fmt.Errorf("failed to generate random bytes: %w", err)
	}

	b64 := base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(key)

	fmt.Fprintln(g.output, "\n# TOML Configuration (add to adminfeed.toml):")
	fmt.Fprintln(g.output, "[auth]")
	fmt.Fprintf(g.output, "method = %q\n", "jwt")
	fmt.Fprintln(g.output, "[auth.jwt]")
	fmt.Fprintf(g.output, "signing_key = %q\n", b64)

	return nil
}

// PromptPassword reads a password from the terminal without echo
func PromptPassword(errOut io.Writer, prompt string) (string, error) {
	fmt.Fprint(errOut, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(errOut)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}

// IsTerminal reports whether stdin is an interactive terminal
func IsTerminal() bool {
	return term.IsTerminal(int(syscall.Stdin))
}
