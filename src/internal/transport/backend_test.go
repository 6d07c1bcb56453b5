// FILE: adminfeed/src/internal/transport/backend_test.go
package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"adminfeed/src/internal/auth"

	"github.com/gorilla/websocket"
)

// fakeBackend speaks the admin push protocol over an httptest server
type fakeBackend struct {
	t        *testing.T
	server   *httptest.Server
	upgrader websocket.Upgrader

	token      string
	scram      *auth.ScramServer
	rejectJoin bool
	stallAuth  bool
	noise      bool // push a log event before answering authenticate

	accepted  atomic.Int32
	mu        sync.Mutex
	conn      *websocket.Conn
	userAgent string
	writeMu   sync.Mutex
	received  chan Frame
	joins     chan joinPayload
}

func newFakeBackend(t *testing.T, token string) *fakeBackend {
	b := &fakeBackend{
		t:        t,
		token:    token,
		received: make(chan Frame, 64),
		joins:    make(chan joinPayload, 16),
	}
	b.server = httptest.NewServer(http.HandlerFunc(b.handle))
	t.Cleanup(b.server.Close)
	return b
}

// newTLSFakeBackend serves the protocol over wss:// with a self-signed certificate
func newTLSFakeBackend(t *testing.T, token string) *fakeBackend {
	b := &fakeBackend{
		t:        t,
		token:    token,
		received: make(chan Frame, 64),
		joins:    make(chan joinPayload, 16),
	}
	b.server = httptest.NewTLSServer(http.HandlerFunc(b.handle))
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBackend) url() string {
	return "ws" + strings.TrimPrefix(b.server.URL, "http")
}

func (b *fakeBackend) handle(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.userAgent = r.UserAgent()
	b.mu.Unlock()

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	b.accepted.Add(1)
	defer conn.Close()

	joined := false
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var f Frame
		if err := json.Unmarshal(msg, &f); err != nil {
			return
		}

		if joined {
			b.received <- f
			continue
		}

		switch f.Event {
		case eventAuthenticate:
			if b.stallAuth {
				continue
			}
			if b.noise {
				b.send(conn, "log:new", map[string]any{"id": "early", "message": "pre-join"})
			}
			var p authenticatePayload
			_ = json.Unmarshal(f.Data, &p)
			if p.Token != b.token {
				b.send(conn, eventUnauthorized, map[string]string{"message": "bad token"})
				continue
			}
			b.send(conn, eventAuthenticated, nil)

		case eventScramFirst:
			var cf auth.ClientFirst
			_ = json.Unmarshal(f.Data, &cf)
			sf, err := b.scram.HandleClientFirst(&cf)
			if err != nil {
				b.send(conn, eventScramFail, map[string]string{"message": err.Error()})
				continue
			}
			b.send(conn, eventScramChallenge, sf)

		case eventScramProof:
			var cf auth.ClientFinal
			_ = json.Unmarshal(f.Data, &cf)
			fin, err := b.scram.HandleClientFinal(&cf)
			if err != nil {
				b.send(conn, eventScramFail, map[string]string{"message": err.Error()})
				continue
			}
			b.send(conn, eventScramOK, fin)

		case eventJoin:
			var p joinPayload
			_ = json.Unmarshal(f.Data, &p)
			b.joins <- p
			if b.rejectJoin {
				b.send(conn, eventJoinError, map[string]string{"message": "group closed"})
				continue
			}
			b.mu.Lock()
			b.conn = conn
			b.mu.Unlock()
			joined = true
			b.send(conn, eventJoined, nil)
		}
	}
}

func (b *fakeBackend) send(conn *websocket.Conn, event string, data any) {
	msg, err := encodeFrame(event, data)
	if err != nil {
		b.t.Errorf("encode %s: %v", event, err)
		return
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	_ = conn.WriteMessage(websocket.TextMessage, msg)
}

// push sends an event on the most recently joined connection
func (b *fakeBackend) push(event string, data any) {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		b.t.Fatalf("push %s: no joined connection", event)
	}
	b.send(conn, event, data)
}

// pushRaw sends an unframed message
func (b *fakeBackend) pushRaw(msg string) {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	_ = conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

// drop closes the joined connection from the server side
func (b *fakeBackend) drop() {
	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (b *fakeBackend) awaitFrame(t *testing.T) Frame {
	t.Helper()
	select {
	case f := <-b.received:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for client frame")
		return Frame{}
	}
}
