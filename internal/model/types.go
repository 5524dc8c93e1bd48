package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Identity
// -----------------------------------------------------------------------------

// User is an account as reported by the backend.
type User struct {
	ID          uint64 // Backend user id
	Email       string // Login email
	DisplayName string // Name shown in the UI
	Balance     *int64 // Cash balance in cents, nil when not reported
}

// Session pairs a bearer credential with the identity it authenticates.
// Sessions are replaced whole, never edited field by field.
type Session struct {
	Credential string
	User       User
}

// Valid reports whether the session carries both a credential and a user id.
func (s Session) Valid() bool {
	return s.Credential != "" && s.User.ID != 0
}

// -----------------------------------------------------------------------------
// Markets
// -----------------------------------------------------------------------------

// Event groups related markets (e.g., "2028 Presidential Election").
type Event struct {
	ID          uint64
	Title       string
	Description string
	Category    string
	Status      string
	EndsAt      time.Time
	Markets     []Market
}

// Market is a single binary outcome within an event.
type Market struct {
	ID       uint64
	EventID  uint64
	Question string
	Status   string

	// Probabilities derived from cent prices; a missing side defaults to 0.5.
	YesProbability decimal.Decimal
	NoProbability  decimal.Decimal

	Volume int64
}

// -----------------------------------------------------------------------------
// Trading
// -----------------------------------------------------------------------------

// Order is a limit order submitted by the user.
type Order struct {
	ID            uint64
	ClientOrderID uuid.UUID // Generated client side for idempotent submission
	MarketID      uint64
	Side          string // "yes" or "no"
	Action        string // "buy" or "sell"
	Price         int    // Limit price in cents
	Quantity      int64
	Filled        int64
	Status        string // open, filled, cancelled
	CreatedAt     time.Time
}

// Remaining returns the unfilled quantity.
func (o Order) Remaining() int64 {
	if o.Filled >= o.Quantity {
		return 0
	}
	return o.Quantity - o.Filled
}

// Position is the user's net holding in one market side.
type Position struct {
	MarketID     uint64
	Side         string
	Quantity     int64
	AveragePrice decimal.Decimal // Cents, fractional
}

// Trade is an execution against one of the user's orders.
type Trade struct {
	ID         uint64
	OrderID    uint64
	MarketID   uint64
	Side       string
	Price      int // Cents
	Quantity   int64
	ExecutedAt time.Time
}

// Balance is the user's available cash.
type Balance struct {
	Available int64 // Cents
}
