package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/rickgao/predict-core/internal/version"
)

// Default timeouts.
const (
	DefaultTimeout       = 10 * time.Second
	DefaultHealthTimeout = 3 * time.Second
)

// CredentialSource supplies the bearer credential for authenticated requests.
type CredentialSource interface {
	Read() (value string, ok bool, err error)
}

// RequestObserver is notified once per completed request.
type RequestObserver interface {
	ObserveRequest(operation, outcome string, status int, elapsed time.Duration)
}

// Client provides access to the trading backend REST API.
type Client struct {
	baseURL     string
	credentials CredentialSource
	httpClient  *http.Client
	logger      *slog.Logger

	timeout       time.Duration
	healthTimeout time.Duration
	userAgent     string
	limiter       *rate.Limiter
	observer      RequestObserver
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new REST API client. credentials may be nil when only
// unauthenticated endpoints are used.
func NewClient(baseURL string, credentials CredentialSource, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		credentials:   credentials,
		httpClient:    &http.Client{},
		logger:        slog.Default(),
		timeout:       DefaultTimeout,
		healthTimeout: DefaultHealthTimeout,
		userAgent:     version.UserAgent(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the per-request timeout for domain calls.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHealthTimeout sets the timeout for health checks.
func WithHealthTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.healthTimeout = d
		}
	}
}

// WithRateLimit throttles outgoing requests to rps with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithObserver sets a request observer (metrics).
func WithObserver(o RequestObserver) ClientOption {
	return func(c *Client) {
		c.observer = o
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}
