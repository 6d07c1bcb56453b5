// FILE: adminfeed/src/internal/auth/scram_server.go
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrInvalidCredentials hides whether the user or the proof was wrong
var ErrInvalidCredentials = errors.New("invalid credentials")

const handshakeTTL = 60 * time.Second

// ScramServer verifies SCRAM logins against registered credentials. It runs the
// backend side of the exchange for the auth command's verifier check and for local test servers.
type ScramServer struct {
	credentials map[string]*Credential
	handshakes  map[string]*handshakeState
	mu          sync.Mutex
}

type handshakeState struct {
	clientFirst ClientFirst
	serverFirst ServerFirst
	credential  *Credential
	createdAt   time.Time
}

// NewScramServer creates SCRAM server
func NewScramServer() *ScramServer {
	return &ScramServer{
		credentials: make(map[string]*Credential),
		handshakes:  make(map[string]*handshakeState),
	}
}

// AddCredential registers user credential
func (s *ScramServer) AddCredential(cred *Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[cred.Username] = cred
}

// HandleClientFirst answers a login request with a challenge.
// Unknown users still get a plausible challenge alongside ErrInvalidCredentials.
func (s *ScramServer) HandleClientFirst(msg *ClientFirst) (*ServerFirst, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, exists := s.credentials[msg.Username]
	if !exists {
		salt := make([]byte, argon2SaltLen)
		rand.Read(salt)
		return &ServerFirst{
			FullNonce:    msg.ClientNonce + generateNonce(),
			Salt:         base64.StdEncoding.EncodeToString(salt),
			ArgonTime:    argon2Time,
			ArgonMemory:  argon2Memory,
			ArgonThreads: argon2Threads,
		}, ErrInvalidCredentials
	}

	sf := ServerFirst{
		FullNonce:    msg.ClientNonce + generateNonce(),
		Salt:         base64.StdEncoding.EncodeToString(cred.Salt),
		ArgonTime:    cred.ArgonTime,
		ArgonMemory:  cred.ArgonMemory,
		ArgonThreads: cred.ArgonThreads,
	}
	s.handshakes[sf.FullNonce] = &handshakeState{
		clientFirst: *msg,
		serverFirst: sf,
		credential:  cred,
		createdAt:   time.Now(),
	}

	s.cleanupHandshakes()

	return &sf, nil
}

// HandleClientFinal verifies client proof and returns the server signature
func (s *ScramServer) HandleClientFinal(msg *ClientFinal) (*ServerFinal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, exists := s.handshakes[msg.FullNonce]
	if !exists {
		return nil, fmt.Errorf("invalid nonce or expired handshake")
	}
	delete(s.handshakes, msg.FullNonce)

	if time.Since(state.createdAt) > handshakeTTL {
		return nil, fmt.Errorf("handshake timeout")
	}

	clientProof, err := base64.StdEncoding.DecodeString(msg.ClientProof)
	if err != nil {
		return nil, fmt.Errorf("invalid proof encoding")
	}

	authMsg := authMessage(&state.clientFirst, &state.serverFirst)

	clientSignature := computeHMAC(state.credential.StoredKey, []byte(authMsg))
	clientKey, err := xorBytes(clientProof, clientSignature)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	computedStoredKey := sha256.Sum256(clientKey)
	if subtle.ConstantTimeCompare(computedStoredKey[:], state.credential.StoredKey) != 1 {
		return nil, ErrInvalidCredentials
	}

	serverSignature := computeHMAC(state.credential.ServerKey, []byte(authMsg))

	return &ServerFinal{
		ServerSignature: base64.StdEncoding.EncodeToString(serverSignature),
		SessionID:       generateNonce(),
	}, nil
}

func (s *ScramServer) cleanupHandshakes() {
	cutoff := time.Now().Add(-handshakeTTL)
	for nonce, state := range s.handshakes {
		if state.createdAt.Before(cutoff) {
			delete(s.handshakes, nonce)
		}
	}
}

func generateNonce() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.StdEncoding.EncodeToString(b)
}
