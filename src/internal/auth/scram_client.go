// FILE: adminfeed/src/internal/auth/scram_client.go
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrServerSignature is returned when the server fails mutual authentication
var ErrServerSignature = errors.New("server signature mismatch")

// Upper bounds on server-chosen KDF cost, a hostile server must not exhaust client memory
const (
	maxArgonTime   = 10
	maxArgonMemory = 256 * 1024 // KiB
)

// ScramAccount holds SCRAM login credentials
type ScramAccount struct {
	Username string
	Password string
}

// NewClient starts a fresh single-use handshake for the account
func (a ScramAccount) NewClient() *ScramClient {
	return NewScramClient(a.Username, a.Password)
}

// ScramClient runs one client-side SCRAM handshake
type ScramClient struct {
	Username string
	Password string

	// Handshake state
	clientFirst *ClientFirst
	authMessage string
	serverKey   []byte
}

// NewScramClient creates SCRAM client
func NewScramClient(username, password string) *ScramClient {
	return &ScramClient{
		Username: username,
		Password: password,
	}
}

// StartAuthentication generates ClientFirst message
func (c *ScramClient) StartAuthentication() (*ClientFirst, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	c.clientFirst = &ClientFirst{
		Username:    c.Username,
		ClientNonce: base64.StdEncoding.EncodeToString(nonce),
	}
	return c.clientFirst, nil
}

// ProcessServerFirst handles server challenge and computes the client proof
func (c *ScramClient) ProcessServerFirst(msg *ServerFirst) (*ClientFinal, error) {
	if c.clientFirst == nil {
		return nil, fmt.Errorf("invalid handshake state")
	}
	if msg == nil {
		return nil, fmt.Errorf("empty server challenge")
	}

	// Server nonce must extend ours
	if !strings.HasPrefix(msg.FullNonce, c.clientFirst.ClientNonce) ||
		len(msg.FullNonce) == len(c.clientFirst.ClientNonce) {
		return nil, fmt.Errorf("server nonce does not extend client nonce")
	}
	if msg.ArgonTime == 0 || msg.ArgonTime > maxArgonTime ||
		msg.ArgonMemory == 0 || msg.ArgonMemory > maxArgonMemory ||
		msg.ArgonThreads == 0 {
		return nil, fmt.Errorf("unacceptable argon2 parameters t=%d m=%d p=%d",
			msg.ArgonTime, msg.ArgonMemory, msg.ArgonThreads)
	}

	salt, err := base64.StdEncoding.DecodeString(msg.Salt)
	if err != nil {
		return nil, fmt.Errorf("invalid salt encoding: %w", err)
	}

	keys := deriveKeys(c.Password, salt, msg.ArgonTime, msg.ArgonMemory, msg.ArgonThreads)
	c.authMessage = authMessage(c.clientFirst, msg)

	clientSignature := computeHMAC(keys.stored, []byte(c.authMessage))
	clientProof, err := xorBytes(keys.client, clientSignature)
	if err != nil {
		return nil, err
	}

	// Kept for verifying the server's final message
	c.serverKey = keys.server

	return &ClientFinal{
		FullNonce:   msg.FullNonce,
		ClientProof: base64.StdEncoding.EncodeToString(clientProof),
	}, nil
}

// VerifyServerFinal validates server signature
func (c *ScramClient) VerifyServerFinal(msg *ServerFinal) error {
	if c.authMessage == "" || c.serverKey == nil {
		return fmt.Errorf("invalid handshake state")
	}
	if msg == nil {
		return fmt.Errorf("empty server final message")
	}

	expectedSig := computeHMAC(c.serverKey, []byte(c.authMessage))

	receivedSig, err := base64.StdEncoding.DecodeString(msg.ServerSignature)
	if err != nil {
		return fmt.Errorf("invalid signature encoding: %w", err)
	}

	if subtle.ConstantTimeCompare(expectedSig, receivedSig) != 1 {
		return ErrServerSignature
	}

	return nil
}
