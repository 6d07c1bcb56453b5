// FILE: adminfeed/src/internal/transport/client.go
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"adminfeed/src/internal/auth"
	"adminfeed/src/internal/config"
	"adminfeed/src/internal/core"
	"adminfeed/src/internal/version"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lixenwraith/log"
	"github.com/valyala/fastjson"
	"golang.org/x/time/rate"
)

var (
	// ErrConnectThrottled is returned when a connection attempt is refused by the attempt limiter
	ErrConnectThrottled = errors.New("connection attempt throttled")
	// ErrAuthRejected is returned when the backend refuses the credential
	ErrAuthRejected = errors.New("authentication rejected")
	// ErrJoinRejected is returned when the backend refuses the group join
	ErrJoinRejected = errors.New("group join rejected")
	// ErrHandshakeTimeout is returned when dial, authentication and join do not complete in time
	ErrHandshakeTimeout = errors.New("handshake timeout")
	// ErrClosed is returned after Close
	ErrClosed = errors.New("transport closed")
)

const writeTimeout = 10 * time.Second

// Listener receives the raw JSON data of a pushed event
type Listener func(payload []byte)

// ListenerID identifies a registered listener
type ListenerID uint64

// Options configures a Client
type Options struct {
	URL   string
	Group string

	// Bound on dial + authenticate + join
	HandshakeTimeout time.Duration

	// Keep-alive ping interval, 0 disables pings and read deadlines
	PingInterval time.Duration

	// Attempt limiter
	ConnectInterval time.Duration
	ConnectBurst    int

	// Bearer credential for the token handshake
	Tokens auth.TokenSource

	// When set, SCRAM replaces the token handshake
	Scram *auth.ScramAccount

	// Receives the session id granted by a SCRAM login
	Session *auth.SessionToken

	// Sent with join; a random id is generated when empty
	ClientID string

	// Extra headers for the upgrade request
	Header http.Header

	// TLS settings for wss:// URLs, nil uses the system defaults
	TLSConfig *tls.Config
}

// OptionsFromConfig maps the transport section onto Options; credentials are set by the caller
func OptionsFromConfig(cfg *config.TransportConfig) Options {
	return Options{
		URL:              cfg.URL,
		Group:            cfg.Group,
		HandshakeTimeout: time.Duration(cfg.HandshakeTimeoutMS) * time.Millisecond,
		PingInterval:     time.Duration(cfg.PingIntervalMS) * time.Millisecond,
		ConnectInterval:  time.Duration(cfg.ConnectIntervalMS) * time.Millisecond,
		ConnectBurst:     int(cfg.ConnectBurst),
	}
}

// session is one joined connection
type session struct {
	conn     *websocket.Conn
	done     chan struct{}
	once     sync.Once
	joinedAt time.Time
}

func (s *session) close() {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// Client owns the single push connection to the admin backend.
// It is constructed once and shared by every feed; use Retain/Release to count owners.
type Client struct {
	opts    Options
	logger  *log.Logger
	limiter *rate.Limiter
	dialer  *websocket.Dialer

	ctx    context.Context
	cancel context.CancelFunc

	state     atomic.Int32
	connectMu sync.Mutex // serializes connection attempts
	connMu    sync.Mutex // guards sess
	sess      *session
	writeMu   sync.Mutex

	listenersMu  sync.RWMutex
	listeners    map[string]map[ListenerID]Listener
	nextListener atomic.Uint64

	watchersMu  sync.Mutex
	watchers    map[uint64]func(core.ConnectionState)
	nextWatcher uint64

	owners atomic.Int32
	closed atomic.Bool
	wg     sync.WaitGroup

	// Statistics
	totalAttempts    atomic.Uint64
	totalFailures    atomic.Uint64
	totalThrottled   atomic.Uint64
	totalJoins       atomic.Uint64
	totalDisconnects atomic.Uint64
	framesReceived   atomic.Uint64
	framesDropped    atomic.Uint64
	emitsSent        atomic.Uint64
	emitsDropped     atomic.Uint64
	lastError        atomic.Value // string
}

// New creates a disconnected client
func New(opts Options, logger *log.Logger) (*Client, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("transport url required")
	}
	if opts.Scram == nil && opts.Tokens == nil {
		return nil, fmt.Errorf("transport requires a token source or scram account")
	}
	if opts.Group == "" {
		opts.Group = core.DefaultGroup
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = core.DefaultHandshakeTimeout
	}
	if opts.ConnectInterval <= 0 {
		opts.ConnectInterval = core.DefaultConnectInterval
	}
	if opts.ConnectBurst <= 0 {
		opts.ConnectBurst = core.DefaultConnectBurst
	}
	if opts.ClientID == "" {
		opts.ClientID = uuid.NewString()
	}
	opts.Header = opts.Header.Clone()
	if opts.Header == nil {
		opts.Header = make(http.Header)
	}
	if opts.Header.Get("User-Agent") == "" {
		opts.Header.Set("User-Agent", version.UserAgent())
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		opts:      opts,
		logger:    logger,
		limiter:   rate.NewLimiter(rate.Every(opts.ConnectInterval), opts.ConnectBurst),
		dialer: &websocket.Dialer{
			HandshakeTimeout: opts.HandshakeTimeout,
			Proxy:            http.ProxyFromEnvironment,
			TLSClientConfig:  opts.TLSConfig,
		},
		ctx:       ctx,
		cancel:    cancel,
		listeners: make(map[string]map[ListenerID]Listener),
		watchers:  make(map[uint64]func(core.ConnectionState)),
	}
	c.lastError.Store("")
	return c, nil
}

// Connect establishes and joins the connection. It returns nil at once when a
// connection already exists. Failures leave the client Disconnected and are
// returned for information only; no retry is scheduled.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if c.State() >= core.StateConnected {
		return nil
	}

	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	if c.closed.Load() {
		return ErrClosed
	}
	// Established by a concurrent caller
	if c.State() >= core.StateConnected {
		return nil
	}

	if !c.limiter.Allow() {
		c.totalThrottled.Add(1)
		c.logger.Debug("msg", "Connection attempt throttled",
			"component", "transport",
			"url", c.opts.URL)
		return ErrConnectThrottled
	}

	c.totalAttempts.Add(1)
	if err := c.connect(ctx); err != nil {
		c.totalFailures.Add(1)
		c.lastError.Store(err.Error())
		c.setState(core.StateDisconnected)
		c.logger.Warn("msg", "Connection attempt failed",
			"component", "transport",
			"url", c.opts.URL,
			"error", err)
		return err
	}
	return nil
}

func (c *Client) connect(ctx context.Context) error {
	hctx, cancel := context.WithTimeout(ctx, c.opts.HandshakeTimeout)
	defer cancel()
	// Close aborts an attempt in progress
	stopOnClose := context.AfterFunc(c.ctx, cancel)
	defer stopOnClose()

	c.setState(core.StateConnecting)

	conn, resp, err := c.dialer.DialContext(hctx, c.opts.URL, c.opts.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return c.handshakeError(hctx, fmt.Errorf("dial failed: %w", err))
	}
	c.setState(core.StateConnected)

	// Unblock handshake reads when the attempt is cancelled or times out
	stopDeadline := context.AfterFunc(hctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})

	fail := func(err error) error {
		stopDeadline()
		_ = conn.Close()
		return c.handshakeError(hctx, err)
	}

	var parser fastjson.Parser
	if err := c.authenticate(hctx, conn, &parser); err != nil {
		return fail(err)
	}
	c.setState(core.StateAuthenticated)

	if err := c.join(conn, &parser); err != nil {
		return fail(err)
	}

	if !stopDeadline() {
		// Deadline fired after the join reply arrived; the socket is no longer usable
		return fail(hctx.Err())
	}
	if c.closed.Load() {
		_ = conn.Close()
		return ErrClosed
	}

	c.startSession(conn)
	return nil
}

// handshakeError maps context expiry onto the transport sentinels
func (c *Client) handshakeError(hctx context.Context, err error) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if errors.Is(hctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrHandshakeTimeout, err)
	}
	if hctx.Err() != nil {
		return fmt.Errorf("%w: %v", hctx.Err(), err)
	}
	return err
}

func (c *Client) startSession(conn *websocket.Conn) {
	sess := &session{
		conn:     conn,
		done:     make(chan struct{}),
		joinedAt: time.Now(),
	}

	readTimeout := 2 * c.opts.PingInterval
	if c.opts.PingInterval > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(readTimeout))
		})
	} else {
		_ = conn.SetReadDeadline(time.Time{})
	}

	c.connMu.Lock()
	c.sess = sess
	c.connMu.Unlock()

	c.totalJoins.Add(1)
	c.setState(core.StateJoined)

	c.logger.Info("msg", "Joined broadcast group",
		"component", "transport",
		"url", c.opts.URL,
		"group", c.opts.Group,
		"client_id", c.opts.ClientID)

	c.wg.Add(1)
	go c.readLoop(sess, readTimeout)

	if c.opts.PingInterval > 0 {
		c.wg.Add(1)
		go c.pingLoop(sess)
	}
}

func (c *Client) readLoop(sess *session, readTimeout time.Duration) {
	defer c.wg.Done()

	var parser fastjson.Parser
	for {
		_, msg, err := sess.conn.ReadMessage()
		if err != nil {
			c.endSession(sess, err)
			return
		}
		c.framesReceived.Add(1)

		if readTimeout > 0 {
			_ = sess.conn.SetReadDeadline(time.Now().Add(readTimeout))
		}

		event, data, err := decodeFrame(&parser, msg)
		if err != nil {
			c.framesDropped.Add(1)
			c.logger.Debug("msg", "Dropping undecodable frame",
				"component", "transport",
				"error", err)
			continue
		}

		c.dispatch(event, data)
	}
}

func (c *Client) pingLoop(sess *session) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sess.done:
			return
		case <-ticker.C:
			if err := sess.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				c.logger.Debug("msg", "Ping failed",
					"component", "transport",
					"error", err)
				// The read loop observes the broken connection
				return
			}
		}
	}
}

// endSession is called by the read loop when its connection fails
func (c *Client) endSession(sess *session, err error) {
	c.connMu.Lock()
	current := c.sess == sess
	if current {
		c.sess = nil
	}
	c.connMu.Unlock()

	sess.close()

	if !current {
		// Closed on purpose by Release or Close
		return
	}

	c.totalDisconnects.Add(1)
	c.lastError.Store(err.Error())
	c.setState(core.StateDisconnected)

	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || errors.Is(err, net.ErrClosed) {
		c.logger.Info("msg", "Connection closed",
			"component", "transport",
			"url", c.opts.URL,
			"uptime", time.Since(sess.joinedAt))
		return
	}
	c.logger.Warn("msg", "Connection lost",
		"component", "transport",
		"url", c.opts.URL,
		"uptime", time.Since(sess.joinedAt),
		"error", err)
}

// disconnect closes the current session, leaving the client reusable
func (c *Client) disconnect() {
	c.connMu.Lock()
	sess := c.sess
	c.sess = nil
	c.connMu.Unlock()

	if sess == nil {
		return
	}

	c.writeMu.Lock()
	_ = sess.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	sess.close()
	c.setState(core.StateDisconnected)

	c.logger.Info("msg", "Connection released",
		"component", "transport",
		"url", c.opts.URL)
}

func (c *Client) dispatch(event string, data []byte) {
	c.listenersMu.RLock()
	set := c.listeners[event]
	listeners := make([]Listener, 0, len(set))
	for _, l := range set {
		listeners = append(listeners, l)
	}
	c.listenersMu.RUnlock()

	for _, l := range listeners {
		l(data)
	}
}

// On registers a listener for pushed events of the given type.
// A disconnected client starts connecting in the background.
func (c *Client) On(event string, l Listener) ListenerID {
	id := ListenerID(c.nextListener.Add(1))

	c.listenersMu.Lock()
	set, ok := c.listeners[event]
	if !ok {
		set = make(map[ListenerID]Listener)
		c.listeners[event] = set
	}
	set[id] = l
	c.listenersMu.Unlock()

	if c.State() == core.StateDisconnected && !c.closed.Load() {
		go func() {
			if err := c.Connect(c.ctx); err != nil {
				c.logger.Debug("msg", "Background connect failed",
					"component", "transport",
					"event", event,
					"error", err)
			}
		}()
	}
	return id
}

// Off removes the listener with the given id; unknown ids are ignored
func (c *Client) Off(event string, id ListenerID) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()

	set, ok := c.listeners[event]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(c.listeners, event)
	}
}

// ListenerCount returns the number of listeners registered for event
func (c *Client) ListenerCount(event string) int {
	c.listenersMu.RLock()
	defer c.listenersMu.RUnlock()
	return len(c.listeners[event])
}

// Emit sends an event when joined; otherwise it is dropped
func (c *Client) Emit(event string, payload any) {
	c.connMu.Lock()
	sess := c.sess
	c.connMu.Unlock()

	if sess == nil || c.State() != core.StateJoined {
		c.emitsDropped.Add(1)
		c.logger.Debug("msg", "Emit dropped, not joined",
			"component", "transport",
			"event", event)
		return
	}

	if err := c.writeFrame(sess.conn, event, payload); err != nil {
		c.emitsDropped.Add(1)
		c.logger.Debug("msg", "Emit failed",
			"component", "transport",
			"event", event,
			"error", err)
		return
	}
	c.emitsSent.Add(1)
}

func (c *Client) writeFrame(conn *websocket.Conn, event string, payload any) error {
	b, err := encodeFrame(event, payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	return nil
}

// State returns the current connection state
func (c *Client) State() core.ConnectionState {
	return core.ConnectionState(c.state.Load())
}

// WatchState registers fn for state transitions. fn runs on the goroutine that
// changed the state and must not block or call Connect.
func (c *Client) WatchState(fn func(core.ConnectionState)) (cancel func()) {
	c.watchersMu.Lock()
	id := c.nextWatcher
	c.nextWatcher++
	c.watchers[id] = fn
	c.watchersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.watchersMu.Lock()
			delete(c.watchers, id)
			c.watchersMu.Unlock()
		})
	}
}

func (c *Client) setState(s core.ConnectionState) {
	old := core.ConnectionState(c.state.Swap(int32(s)))
	if old == s {
		return
	}

	c.logger.Debug("msg", "Connection state changed",
		"component", "transport",
		"from", old.String(),
		"to", s.String())

	c.watchersMu.Lock()
	watchers := make([]func(core.ConnectionState), 0, len(c.watchers))
	for _, fn := range c.watchers {
		watchers = append(watchers, fn)
	}
	c.watchersMu.Unlock()

	for _, fn := range watchers {
		fn(s)
	}
}

// Retain registers an owner of the connection
func (c *Client) Retain() {
	c.owners.Add(1)
}

// Release drops an owner; the last release closes the connection.
// The client stays usable and reconnects on the next Connect or On.
func (c *Client) Release() {
	n := c.owners.Add(-1)
	if n < 0 {
		c.owners.Store(0)
		c.logger.Warn("msg", "Release without matching Retain",
			"component", "transport")
		return
	}
	if n == 0 {
		c.disconnect()
	}
}

// Owners returns the current owner count
func (c *Client) Owners() int {
	return int(c.owners.Load())
}

// Close shuts the client down permanently
func (c *Client) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.cancel()

	// Wait out an attempt in progress
	c.connectMu.Lock()
	c.disconnect()
	c.connectMu.Unlock()

	c.wg.Wait()
	c.setState(core.StateDisconnected)

	c.logger.Info("msg", "Transport closed",
		"component", "transport",
		"total_joins", c.totalJoins.Load(),
		"total_disconnects", c.totalDisconnects.Load())
}

// GetStats returns transport statistics
func (c *Client) GetStats() map[string]any {
	var uptime time.Duration
	c.connMu.Lock()
	if c.sess != nil {
		uptime = time.Since(c.sess.joinedAt)
	}
	c.connMu.Unlock()

	c.listenersMu.RLock()
	events := len(c.listeners)
	c.listenersMu.RUnlock()

	lastErr, _ := c.lastError.Load().(string)

	return map[string]any{
		"url":               c.opts.URL,
		"group":             c.opts.Group,
		"state":             c.State().String(),
		"owners":            c.owners.Load(),
		"listened_events":   events,
		"session_uptime":    uptime.Seconds(),
		"total_attempts":    c.totalAttempts.Load(),
		"total_failures":    c.totalFailures.Load(),
		"total_throttled":   c.totalThrottled.Load(),
		"total_joins":       c.totalJoins.Load(),
		"total_disconnects": c.totalDisconnects.Load(),
		"frames_received":   c.framesReceived.Load(),
		"frames_dropped":    c.framesDropped.Load(),
		"emits_sent":        c.emitsSent.Load(),
		"emits_dropped":     c.emitsDropped.Load(),
		"last_error":        lastErr,
	}
}
