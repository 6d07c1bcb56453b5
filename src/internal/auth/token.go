// FILE: adminfeed/src/internal/auth/token.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"adminfeed/src/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoToken is returned when a source has no credential to hand out
	ErrNoToken = errors.New("no token available")
)

// TokenSource hands out the bearer credential used to authenticate the push
// connection and history requests. Implementations must be safe for concurrent use.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed bearer token
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", ErrNoToken
	}
	return string(t), nil
}

// FileToken reads the token from a file on every call, so rotated tokens are picked up
type FileToken struct {
	Path string
}

func (f FileToken) Token(context.Context) (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("token file %s: %w", f.Path, ErrNoToken)
	}
	return token, nil
}

// JWTIssuer mints short-lived HS256 service tokens.
// A token is reused until 80% of its lifetime has passed.
type JWTIssuer struct {
	key     []byte
	issuer  string
	subject string
	ttl     time.Duration
	now     func() time.Time

	mu        sync.Mutex
	cached    string
	refreshAt time.Time
}

// NewJWTIssuer creates an issuer from configuration
func NewJWTIssuer(cfg *config.JWTConfig) (*JWTIssuer, error) {
	if cfg == nil || cfg.SigningKey == "" {
		return nil, fmt.Errorf("jwt signing key required")
	}
	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &JWTIssuer{
		key:     []byte(cfg.SigningKey),
		issuer:  cfg.Issuer,
		subject: cfg.Subject,
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

func (j *JWTIssuer) Token(context.Context) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	if j.cached != "" && now.Before(j.refreshAt) {
		return j.cached, nil
	}

	claims := jwt.RegisteredClaims{
		Issuer:    j.issuer,
		Subject:   j.subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	j.cached = signed
	j.refreshAt = now.Add(j.ttl * 8 / 10)
	return signed, nil
}

// SessionToken holds the session id granted by a SCRAM login.
// It is empty until the transport completes its first SCRAM handshake.
type SessionToken struct {
	mu    sync.RWMutex
	token string
}

// Set stores the session id
func (s *SessionToken) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *SessionToken) Token(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", fmt.Errorf("scram session not established: %w", ErrNoToken)
	}
	return s.token, nil
}

// NewTokenSource builds the bearer token source for the configured auth method.
// For scram the returned source is a *SessionToken populated by the transport.
func NewTokenSource(cfg *config.AuthConfig) (TokenSource, error) {
	switch cfg.Method {
	case config.AuthMethodToken, "":
		if cfg.TokenFile != "" {
			return FileToken{Path: cfg.TokenFile}, nil
		}
		return StaticToken(cfg.Token), nil
	case config.AuthMethodJWT:
		return NewJWTIssuer(cfg.JWT)
	case config.AuthMethodScram:
		return &SessionToken{}, nil
	default:
		return nil, fmt.Errorf("unknown auth method: %s", cfg.Method)
	}
}
