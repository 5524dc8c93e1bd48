package feed

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/rickgao/predict-core/internal/ladder"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no pong)")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrAlreadyDialed   = errors.New("already connected")
)

// Message types.
const (
	TypeOrderbookSnapshot = "orderbook_snapshot"
	TypeSubscribed        = "subscribed"
	TypeError             = "error"

	ChannelOrderbook = "orderbook"
)

// Update is one decoded orderbook snapshot.
type Update struct {
	MarketID   uint64
	Snapshot   ladder.Snapshot
	Anchor     ladder.Anchor // Fallback for empty sides
	ReceivedAt time.Time     // Local time the frame was read
}

// Command is a command sent to the server.
type Command struct {
	ID     int64  `json:"id"`
	Cmd    string `json:"cmd"`
	Params any    `json:"params"`
}

// SubscribeParams are parameters for a subscribe command.
type SubscribeParams struct {
	Channels  []string `json:"channels"`
	MarketIDs []uint64 `json:"market_ids"`
}

// Envelope is any server frame.
type Envelope struct {
	ID   int64           `json:"id,omitempty"`
	Type string          `json:"type"`
	Msg  json.RawMessage `json:"msg"`
}

// ErrorMsg is the content of an "error" frame.
type ErrorMsg struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Config configures a Client.
type Config struct {
	URL          string        // e.g. wss://api.example.com/ws
	PingInterval time.Duration // How often we ping
	PingTimeout  time.Duration // Max time without a pong before the connection is stale
	WriteTimeout time.Duration // Write deadline for sends
	BufferSize   int           // Update channel buffer size
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		PingInterval: 10 * time.Second,
		PingTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Second,
		BufferSize:   256,
	}
}
