// FILE: adminfeed/src/internal/auth/scram.go
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id cost for newly generated credentials
const (
	argon2Time    = 3
	argon2Memory  = 64 * 1024 // KiB
	argon2Threads = 4
	argon2SaltLen = 16
	argon2KeyLen  = 32
)

// verifierPrefix tags the single-line credential encoding handed to backend operators
const verifierPrefix = "$scram-argon2id$"

// Wire messages of the SCRAM exchange, carried as the data of scram_* frames

// ClientFirst opens a login
type ClientFirst struct {
	Username    string `json:"u"`
	ClientNonce string `json:"n"`
}

// ServerFirst is the server challenge
type ServerFirst struct {
	FullNonce    string `json:"r"` // client nonce + server nonce
	Salt         string `json:"s"` // base64
	ArgonTime    uint32 `json:"t"`
	ArgonMemory  uint32 `json:"m"`
	ArgonThreads uint8  `json:"p"`
}

// ClientFinal carries the client proof
type ClientFinal struct {
	FullNonce   string `json:"r"`
	ClientProof string `json:"p"` // base64
}

// ServerFinal carries the server signature and the granted session id,
// which doubles as the bearer token for history requests
type ServerFinal struct {
	ServerSignature string `json:"v"` // base64
	SessionID       string `json:"sid,omitempty"`
}

// authMessage is the transcript both sides sign
func authMessage(cf *ClientFirst, sf *ServerFirst) string {
	return fmt.Sprintf("u=%s,n=%s,r=%s,s=%s,t=%d,m=%d,p=%d,r=%s",
		cf.Username, cf.ClientNonce,
		sf.FullNonce, sf.Salt, sf.ArgonTime, sf.ArgonMemory, sf.ArgonThreads,
		sf.FullNonce)
}

// scramKeys are the keys derived from a password
type scramKeys struct {
	client []byte
	stored []byte // SHA256(client)
	server []byte
}

func deriveKeys(password string, salt []byte, time, memory uint32, threads uint8) scramKeys {
	salted := argon2.IDKey([]byte(password), salt, time, memory, threads, argon2KeyLen)
	k := scramKeys{
		client: computeHMAC(salted, []byte("Client Key")),
		server: computeHMAC(salted, []byte("Server Key")),
	}
	stored := sha256.Sum256(k.client)
	k.stored = stored[:]
	return k
}

// Credential is the server-side record of one SCRAM user; it holds no password
type Credential struct {
	Username     string
	Salt         []byte
	ArgonTime    uint32
	ArgonMemory  uint32 // KiB
	ArgonThreads uint8
	StoredKey    []byte
	ServerKey    []byte
}

// DeriveCredential builds the record for username from a password
func DeriveCredential(username, password string, salt []byte, time, memory uint32, threads uint8) (*Credential, error) {
	if len(salt) < argon2SaltLen {
		return nil, fmt.Errorf("salt must be at least %d bytes", argon2SaltLen)
	}

	keys := deriveKeys(password, salt, time, memory, threads)
	return &Credential{
		Username:     username,
		Salt:         salt,
		ArgonTime:    time,
		ArgonMemory:  memory,
		ArgonThreads: threads,
		StoredKey:    keys.stored,
		ServerKey:    keys.server,
	}, nil
}

// Verifier encodes the credential without its username:
// $scram-argon2id$t=3,m=65536,p=4$<salt>$<stored key>$<server key>
func (c *Credential) Verifier() string {
	b64 := base64.RawStdEncoding.EncodeToString
	return fmt.Sprintf("%st=%d,m=%d,p=%d$%s$%s$%s",
		verifierPrefix, c.ArgonTime, c.ArgonMemory, c.ArgonThreads,
		b64(c.Salt), b64(c.StoredKey), b64(c.ServerKey))
}

// ParseVerifier decodes a Verifier string into a credential for username
func ParseVerifier(username, verifier string) (*Credential, error) {
	rest, ok := strings.CutPrefix(verifier, verifierPrefix)
	if !ok {
		return nil, fmt.Errorf("verifier must start with %s", verifierPrefix)
	}
	parts := strings.Split(rest, "$")
	if len(parts) != 4 {
		return nil, fmt.Errorf("verifier has %d sections, want 4", len(parts))
	}

	c := &Credential{Username: username}
	for _, param := range strings.Split(parts[0], ",") {
		key, value, _ := strings.Cut(param, "=")
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("verifier parameter %q: %w", param, err)
		}
		switch key {
		case "t":
			c.ArgonTime = uint32(n)
		case "m":
			c.ArgonMemory = uint32(n)
		case "p":
			if n > 255 {
				return nil, fmt.Errorf("verifier parallelism %d out of range", n)
			}
			c.ArgonThreads = uint8(n)
		default:
			return nil, fmt.Errorf("unknown verifier parameter %q", key)
		}
	}
	if c.ArgonTime == 0 || c.ArgonMemory == 0 || c.ArgonThreads == 0 {
		return nil, fmt.Errorf("verifier is missing argon2 parameters")
	}

	fields := []*[]byte{&c.Salt, &c.StoredKey, &c.ServerKey}
	for i, field := range fields {
		b, err := base64.RawStdEncoding.DecodeString(parts[i+1])
		if err != nil {
			return nil, fmt.Errorf("verifier section %d: %w", i+2, err)
		}
		*field = b
	}
	if len(c.Salt) < argon2SaltLen || len(c.StoredKey) != sha256.Size || len(c.ServerKey) != sha256.Size {
		return nil, fmt.Errorf("verifier key material has the wrong length")
	}
	return c, nil
}

func computeHMAC(key, message []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return mac.Sum(nil)
}

func xorBytes(a, b []byte) ([]byte, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("xor length mismatch: %d != %d", len(a), len(b))
	}
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out, nil
}
