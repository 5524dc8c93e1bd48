package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/predict-core/internal/api"
	"github.com/rickgao/predict-core/internal/auth"
)

// MessageObserver is notified of every frame by type.
type MessageObserver interface {
	ObserveFeedMessage(msgType string)
}

// Client is a single orderbook stream connection.
type Client struct {
	cfg         Config
	credentials api.CredentialSource
	logger      *slog.Logger
	observer    MessageObserver

	conn *websocket.Conn

	// Output channels
	updates chan Update
	errors  chan error
	done    chan struct{}

	// Write serialization
	writeMu sync.Mutex
	nextID  atomic.Int64

	// State
	mu         sync.RWMutex
	connected  bool
	dialed     bool
	closed     bool
	lastPongAt time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithObserver sets a message observer (metrics).
func WithObserver(o MessageObserver) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// NewClient creates a stream client. credentials may be nil for public
// streams. Zero config fields take defaults.
func NewClient(cfg Config, credentials api.CredentialSource, opts ...Option) *Client {
	def := DefaultConfig()
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = def.PingTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}

	c := &Client{
		cfg:         cfg,
		credentials: credentials,
		logger:      slog.Default(),
		updates:     make(chan Update, cfg.BufferSize),
		errors:      make(chan error, 1),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect dials the stream. A Client connects at most once.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	if c.dialed {
		c.mu.Unlock()
		return ErrAlreadyDialed
	}
	c.dialed = true
	c.mu.Unlock()

	// Build headers
	header := http.Header{}
	header.Set("Accept", "application/json")
	if c.credentials != nil {
		value, ok, err := c.credentials.Read()
		if err != nil {
			c.logger.Warn("credential read failed, dialing unauthenticated", "error", err)
		} else if ok {
			header.Set("Authorization", auth.BearerHeader(value))
		}
	}

	// Dial with context
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, resp, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return &api.Error{Kind: api.KindAuthenticationRequired, StatusCode: resp.StatusCode}
		}
		return &api.Error{Kind: api.KindNetwork, Err: fmt.Errorf("dial feed: %w", err)}
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.lastPongAt = time.Now()
	c.mu.Unlock()

	// Server pings count as liveness too.
	conn.SetPingHandler(func(data string) error {
		c.touch()
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})
	conn.SetPongHandler(func(string) error {
		c.touch()
		return nil
	})

	go c.readLoop()
	go c.heartbeatLoop()

	c.logger.Debug("feed connected", "url", c.cfg.URL)
	return nil
}

// Subscribe asks for orderbook snapshots for marketIDs.
func (c *Client) Subscribe(marketIDs ...uint64) error {
	if len(marketIDs) == 0 {
		return nil
	}

	data, err := json.Marshal(Command{
		ID:  c.nextID.Add(1),
		Cmd: "subscribe",
		Params: SubscribeParams{
			Channels:  []string{ChannelOrderbook},
			MarketIDs: marketIDs,
		},
	})
	if err != nil {
		return fmt.Errorf("encode subscribe: %w", err)
	}
	return c.send(data)
}

// Updates returns the snapshot channel. It is never closed; select on Done.
func (c *Client) Updates() <-chan Update {
	return c.updates
}

// Errors returns the connection error channel. At most one error is
// delivered; the connection is unusable afterwards.
func (c *Client) Errors() <-chan error {
	return c.errors
}

// Done is closed by Close.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Close gracefully closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	conn := c.conn
	c.mu.Unlock()

	// Signal goroutines to stop
	close(c.done)

	if conn == nil {
		return nil
	}

	c.writeMu.Lock()
	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.writeMu.Unlock()
	return conn.Close()
}

func (c *Client) send(data []byte) error {
	c.mu.RLock()
	if !c.connected {
		c.mu.RUnlock()
		return ErrNotConnected
	}
	conn := c.conn
	c.mu.RUnlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) touch() {
	c.mu.Lock()
	c.lastPongAt = time.Now()
	c.mu.Unlock()
}

// fail reports err once and marks the connection down.
func (c *Client) fail(err error) {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()

	select {
	case c.errors <- err:
	default:
	}
}

// readLoop decodes frames until the connection ends.
func (c *Client) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		receivedAt := time.Now() // Capture timestamp immediately

		if err != nil {
			// Ignore errors after Close() is called
			select {
			case <-c.done:
			default:
				c.fail(err)
			}
			return
		}

		c.touch()
		c.handleFrame(data, receivedAt)
	}
}

func (c *Client) handleFrame(data []byte, receivedAt time.Time) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Warn("dropping undecodable frame", "error", err)
		c.observe("invalid")
		return
	}
	c.observe(env.Type)

	switch env.Type {
	case TypeOrderbookSnapshot:
		var book api.APIOrderbook
		if err := json.Unmarshal(env.Msg, &book); err != nil || book.MarketID == 0 {
			c.logger.Warn("dropping malformed orderbook snapshot", "error", err)
			return
		}

		update := Update{
			MarketID:   book.MarketID,
			Snapshot:   book.ToSnapshot(),
			Anchor:     book.Anchor(),
			ReceivedAt: receivedAt,
		}

		select {
		case c.updates <- update:
		case <-c.done:
		default:
			c.logger.Warn("update buffer full, dropping snapshot", "market_id", book.MarketID)
		}

	case TypeSubscribed:
		c.logger.Debug("feed subscribed", "id", env.ID)

	case TypeError:
		var msg ErrorMsg
		json.Unmarshal(env.Msg, &msg)
		c.logger.Warn("feed error", "id", env.ID, "code", msg.Code, "message", msg.Message)

	default:
		c.logger.Debug("ignoring feed frame", "type", env.Type)
	}
}

// heartbeatLoop pings and detects stale connections.
func (c *Client) heartbeatLoop() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.RLock()
			conn := c.conn
			lastPong := c.lastPongAt
			connected := c.connected
			c.mu.RUnlock()

			if !connected {
				return
			}

			if time.Since(lastPong) > c.cfg.PingTimeout {
				c.logger.Warn("no pong received, connection stale",
					"last_pong", lastPong,
					"timeout", c.cfg.PingTimeout,
				)
				c.fail(ErrStaleConnection)
				conn.Close()
				return
			}

			c.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), time.Now().Add(c.cfg.WriteTimeout))
			c.writeMu.Unlock()
			if err != nil {
				c.logger.Debug("failed to send ping", "error", err)
			}
		}
	}
}

func (c *Client) observe(msgType string) {
	if c.observer != nil {
		c.observer.ObserveFeedMessage(msgType)
	}
}
