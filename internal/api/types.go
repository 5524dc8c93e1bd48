package api

import "github.com/shopspring/decimal"

// Envelope is the backend's success wrapper.
type Envelope[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// SignUpRequest is the body of POST /signup.
type SignUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"name"`
}

// SignInRequest is the body of POST /signin.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is the payload of a successful sign-in or sign-up.
type AuthResponse struct {
	Token string  `json:"token"`
	User  APIUser `json:"user"`
}

// APIUser represents a user from GET /users/{id}.
type APIUser struct {
	ID          uint64 `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"name"`
	Balance     *int64 `json:"balance,omitempty"`
}

// APIEvent represents an event from GET /events.
type APIEvent struct {
	ID          uint64      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Status      string      `json:"status"`
	EndDate     string      `json:"end_date"`
	Markets     []APIMarket `json:"markets"`
}

// APIMarket represents a market nested in an event.
type APIMarket struct {
	ID       uint64 `json:"id"`
	EventID  uint64 `json:"event_id"`
	Question string `json:"question"`
	Status   string `json:"status"`

	// Prices in cents, absent when a side has no quotes
	YesPrice *int `json:"yes_price"`
	NoPrice  *int `json:"no_price"`

	Volume int64 `json:"volume"`
}

// APIOrderbook represents GET /orderbooks/market/{id}.
type APIOrderbook struct {
	MarketID uint64 `json:"market_id"`

	// Levels as [price_cents, quantity] pairs
	Bids [][]int64 `json:"bids"`
	Asks [][]int64 `json:"asks"`
}

// PlaceOrderRequest is the body of POST /orders.
type PlaceOrderRequest struct {
	ClientOrderID string `json:"client_order_id"`
	MarketID      uint64 `json:"market_id"`
	Side          string `json:"side"`
	Action        string `json:"action"`
	Price         int    `json:"price"`
	Quantity      int64  `json:"quantity"`
}

// APIOrder represents an order from /orders.
type APIOrder struct {
	ID            uint64 `json:"id"`
	ClientOrderID string `json:"client_order_id"`
	MarketID      uint64 `json:"market_id"`
	Side          string `json:"side"`
	Action        string `json:"action"`
	Price         int    `json:"price"`
	Quantity      int64  `json:"quantity"`
	Filled        int64  `json:"filled"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
}

// APIPosition represents a position from GET /positions.
type APIPosition struct {
	MarketID     uint64          `json:"market_id"`
	Side         string          `json:"side"`
	Quantity     int64           `json:"quantity"`
	AveragePrice decimal.Decimal `json:"avg_price"`
}

// APITrade represents a trade from GET /trades.
type APITrade struct {
	ID         uint64 `json:"id"`
	OrderID    uint64 `json:"order_id"`
	MarketID   uint64 `json:"market_id"`
	Side       string `json:"side"`
	Price      int    `json:"price"`
	Quantity   int64  `json:"quantity"`
	ExecutedAt string `json:"executed_at"`
}

// APIBalance represents GET /get-balance and POST /onramp responses.
type APIBalance struct {
	Balance int64 `json:"balance"`
}

// OnrampRequest is the body of POST /onramp.
type OnrampRequest struct {
	Amount int64 `json:"amount"` // Cents
}

// HealthResponse from GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// GetEventsOptions configures a GetEvents request.
type GetEventsOptions struct {
	Limit    int
	Offset   int
	Category string
	Status   string
}

// GetOrdersOptions configures a GetOrders request.
type GetOrdersOptions struct {
	MarketID uint64
	Status   string
}
