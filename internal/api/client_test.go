package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// staticCredential is a CredentialSource for tests.
type staticCredential struct {
	value string
	err   error
}

func (s staticCredential) Read() (string, bool, error) {
	if s.err != nil {
		return "", false, s.err
	}
	return s.value, s.value != "", nil
}

type observed struct {
	operation string
	outcome   string
	status    int
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []observed
}

func (r *recordingObserver) ObserveRequest(operation, outcome string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, observed{operation, outcome, status})
}

func TestNewClient(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewClient("https://api.example.com/", nil)

		if c.baseURL != "https://api.example.com" {
			t.Errorf("baseURL = %q, want %q", c.baseURL, "https://api.example.com")
		}
		if c.timeout != DefaultTimeout {
			t.Errorf("timeout = %v, want %v", c.timeout, DefaultTimeout)
		}
		if c.healthTimeout != DefaultHealthTimeout {
			t.Errorf("healthTimeout = %v, want %v", c.healthTimeout, DefaultHealthTimeout)
		}
		if c.limiter != nil {
			t.Error("limiter should be nil by default")
		}
		if c.logger == nil {
			t.Error("logger should not be nil")
		}
		if !strings.HasPrefix(c.userAgent, "predict-core/") {
			t.Errorf("userAgent = %q, want predict-core/ prefix", c.userAgent)
		}
	})

	t.Run("with options", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		c := NewClient("https://api.example.com", nil,
			WithTimeout(5*time.Second),
			WithHealthTimeout(time.Second),
			WithRateLimit(10, 0),
			WithUserAgent("test-agent"),
			WithLogger(logger),
		)

		if c.timeout != 5*time.Second {
			t.Errorf("timeout = %v, want %v", c.timeout, 5*time.Second)
		}
		if c.healthTimeout != time.Second {
			t.Errorf("healthTimeout = %v, want %v", c.healthTimeout, time.Second)
		}
		if c.limiter == nil || c.limiter.Burst() != 1 {
			t.Error("limiter should be set with burst 1")
		}
		if c.userAgent != "test-agent" {
			t.Errorf("userAgent = %q, want %q", c.userAgent, "test-agent")
		}
		if c.logger != logger {
			t.Error("logger should be set to custom logger")
		}
	})

	t.Run("non-positive timeout ignored", func(t *testing.T) {
		c := NewClient("https://api.example.com", nil, WithTimeout(0))
		if c.timeout != DefaultTimeout {
			t.Errorf("timeout = %v, want %v", c.timeout, DefaultTimeout)
		}
	})
}

func TestSendAuthRequired(t *testing.T) {
	tests := []struct {
		name  string
		creds CredentialSource
	}{
		{"nil source", nil},
		{"absent", staticCredential{}},
		{"read failure", staticCredential{err: errors.New("keychain locked")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&hits, 1)
				w.Write([]byte(`{}`))
			}))
			defer server.Close()

			c := NewClient(server.URL, tt.creds)
			_, err := c.Send(context.Background(), RequestSpec{
				Method:       http.MethodGet,
				Path:         "/positions",
				RequiresAuth: true,
			})

			if !errors.Is(err, ErrAuthenticationRequired) {
				t.Errorf("err = %v, want ErrAuthenticationRequired", err)
			}
			if got := atomic.LoadInt32(&hits); got != 0 {
				t.Errorf("network calls = %d, want 0", got)
			}
		})
	}
}

func TestSendHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, staticCredential{value: "tok"}, WithUserAgent("ua-test"))

	t.Run("defaults and auth precedence", func(t *testing.T) {
		_, err := c.Send(context.Background(), RequestSpec{
			Method: http.MethodPost,
			Path:   "/orders",
			Body:   []byte(`{"a":1}`),
			Header: http.Header{
				"Authorization": {"Bearer caller"},
				"Accept":        {"text/plain"},
				"X-Trace":       {"abc"},
			},
			RequiresAuth: true,
		})
		if err != nil {
			t.Fatalf("Send() error = %v", err)
		}

		if v := got.Get("Authorization"); v != "Bearer tok" {
			t.Errorf("Authorization = %q, want %q", v, "Bearer tok")
		}
		if v := got.Get("Accept"); v != "text/plain" {
			t.Errorf("Accept = %q, want caller override %q", v, "text/plain")
		}
		if v := got.Get("Content-Type"); v != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", v)
		}
		if v := got.Get("User-Agent"); v != "ua-test" {
			t.Errorf("User-Agent = %q, want %q", v, "ua-test")
		}
		if v := got.Get("X-Trace"); v != "abc" {
			t.Errorf("X-Trace = %q, want %q", v, "abc")
		}
		if got.Get("X-Request-ID") == "" {
			t.Error("X-Request-ID should be set")
		}
	})

	t.Run("no body no content type", func(t *testing.T) {
		_, err := c.Send(context.Background(), RequestSpec{Method: http.MethodGet, Path: "/events"})
		if err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		if v := got.Get("Content-Type"); v != "" {
			t.Errorf("Content-Type = %q, want empty", v)
		}
		if v := got.Get("Authorization"); v != "" {
			t.Errorf("Authorization = %q, want empty for unauthenticated call", v)
		}
	})
}

func TestSendInvalidRequest(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()

	tests := []struct {
		name    string
		baseURL string
		spec    RequestSpec
	}{
		{"empty path", server.URL, RequestSpec{Method: http.MethodGet, Path: ""}},
		{"path without slash", server.URL, RequestSpec{Method: http.MethodGet, Path: "events"}},
		{"unsupported method", server.URL, RequestSpec{Method: http.MethodPatch, Path: "/events"}},
		{"no scheme", "api.example.com", RequestSpec{Method: http.MethodGet, Path: "/events"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(tt.baseURL, nil)
			_, err := c.Send(context.Background(), tt.spec)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Errorf("err = %v, want ErrInvalidRequest", err)
			}
		})
	}

	if got := atomic.LoadInt32(&hits); got != 0 {
		t.Errorf("network calls = %d, want 0", got)
	}
}

func TestSendStatusErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantKind    Kind
		wantMessage string
		retryable   bool
	}{
		{"401 with message", 401, `{"message":"token expired"}`, KindAuthenticationRequired, "", false},
		{"400 message", 400, `{"message":"bad price","status":"error"}`, KindServer, "bad price", false},
		{"404 status fallback", 404, `{"status":"not found"}`, KindServer, "not found", false},
		{"500 raw text", 500, "  upstream exploded \n", KindServer, "upstream exploded", true},
		{"503 empty", 503, "", KindServer, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewClient(server.URL, nil)
			_, err := c.Send(context.Background(), RequestSpec{Method: http.MethodGet, Path: "/x"})

			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *Error", err)
			}
			if apiErr.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", apiErr.Kind, tt.wantKind)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMessage)
			}
			if got := IsRetryableNetworkError(err); got != tt.retryable {
				t.Errorf("IsRetryableNetworkError() = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestDoDecoding(t *testing.T) {
	type user struct {
		ID    uint64 `json:"id"`
		Email string `json:"email"`
	}

	serve := func(body string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))
	}

	t.Run("64-bit id exact", func(t *testing.T) {
		server := serve(`{"id":18446744073709551615,"email":"a@b.c"}`)
		defer server.Close()

		c := NewClient(server.URL, nil)
		got, err := Do[user](context.Background(), c, RequestSpec{Method: http.MethodGet, Path: "/users/1"})
		if err != nil {
			t.Fatalf("Do() error = %v", err)
		}
		if got.ID != 18446744073709551615 {
			t.Errorf("ID = %d, want %d", got.ID, uint64(18446744073709551615))
		}
	})

	t.Run("empty body", func(t *testing.T) {
		server := serve("")
		defer server.Close()

		c := NewClient(server.URL, nil)
		_, err := Do[user](context.Background(), c, RequestSpec{Method: http.MethodGet, Path: "/users/1"})
		if !errors.Is(err, ErrDecoding) {
			t.Errorf("err = %v, want ErrDecoding", err)
		}
	})

	t.Run("empty body no content", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		c := NewClient(server.URL, nil)
		if _, err := Do[NoContent](context.Background(), c, RequestSpec{Method: http.MethodDelete, Path: "/orders/1"}); err != nil {
			t.Errorf("Do[NoContent]() error = %v", err)
		}
	})

	t.Run("shape mismatch", func(t *testing.T) {
		server := serve(`{"id":"not-a-number"}`)
		defer server.Close()

		c := NewClient(server.URL, nil)
		_, err := Do[user](context.Background(), c, RequestSpec{Method: http.MethodGet, Path: "/users/1"})
		if !errors.Is(err, ErrDecoding) {
			t.Errorf("err = %v, want ErrDecoding", err)
		}
		if IsRetryableNetworkError(err) {
			t.Error("decoding error should not be retryable")
		}
	})
}

func TestSendNetworkErrors(t *testing.T) {
	t.Run("timeout is retryable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}))
		defer server.Close()

		c := NewClient(server.URL, nil, WithTimeout(20*time.Millisecond))
		_, err := c.Send(context.Background(), RequestSpec{Method: http.MethodGet, Path: "/slow"})
		if !errors.Is(err, ErrNetwork) {
			t.Fatalf("err = %v, want ErrNetwork", err)
		}
		if !IsRetryableNetworkError(err) {
			t.Error("timeout should be retryable")
		}
	})

	t.Run("caller cancel not retryable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		c := NewClient(server.URL, nil)
		_, err := c.Send(ctx, RequestSpec{Method: http.MethodGet, Path: "/x"})
		if !errors.Is(err, ErrNetwork) {
			t.Fatalf("err = %v, want ErrNetwork", err)
		}
		if IsRetryableNetworkError(err) {
			t.Error("cancellation should not be retryable")
		}
	})

	t.Run("connection refused", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		c := NewClient(url, nil)
		_, err := c.Send(context.Background(), RequestSpec{Method: http.MethodGet, Path: "/x"})
		if !IsRetryableNetworkError(err) {
			t.Errorf("err = %v, want retryable network error", err)
		}
	})
}

func TestSendSingleAttempt(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewClient(server.URL, nil)
	_, err := c.Send(context.Background(), RequestSpec{Method: http.MethodGet, Path: "/x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
}

func TestSendQueryAndBody(t *testing.T) {
	var gotQuery, gotBody, gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = r.URL.RawQuery
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, nil)
	body, err := JSONBody(map[string]int{"amount": 5})
	if err != nil {
		t.Fatalf("JSONBody() error = %v", err)
	}
	_, err = c.Send(context.Background(), RequestSpec{
		Method: http.MethodPut,
		Path:   "/things",
		Query:  map[string][]string{"q": {"a b"}, "limit": {"2"}},
		Body:   body,
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if gotMethod != http.MethodPut {
		t.Errorf("method = %q, want PUT", gotMethod)
	}
	if gotQuery != "limit=2&q=a+b" {
		t.Errorf("query = %q, want %q", gotQuery, "limit=2&q=a+b")
	}
	if gotBody != `{"amount":5}` {
		t.Errorf("body = %q, want %q", gotBody, `{"amount":5}`)
	}
}

func TestObserver(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	obs := &recordingObserver{}
	c := NewClient(server.URL, nil, WithObserver(obs))

	c.Send(context.Background(), RequestSpec{Method: http.MethodGet, Path: "/ok", Operation: "ok_op"})
	c.Send(context.Background(), RequestSpec{Method: http.MethodGet, Path: "/fail"})

	want := []observed{
		{"ok_op", "ok", 200},
		{"GET /fail", "server", 500},
	}
	if len(obs.calls) != len(want) {
		t.Fatalf("observer calls = %d, want %d", len(obs.calls), len(want))
	}
	for i := range want {
		if obs.calls[i] != want[i] {
			t.Errorf("call[%d] = %+v, want %+v", i, obs.calls[i], want[i])
		}
	}
}

func TestRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, nil, WithRateLimit(20, 1))

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := c.Send(context.Background(), RequestSpec{Method: http.MethodGet, Path: "/x"}); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}
	// Burst 1 at 20/s: two waits of ~50ms.
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("elapsed = %v, want >= 80ms", elapsed)
	}
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{&Error{Kind: KindServer, StatusCode: 400, Message: "bad"}, "server error 400: bad"},
		{&Error{Kind: KindServer, StatusCode: 502}, "server error 502"},
		{&Error{Kind: KindAuthenticationRequired}, "authentication required"},
		{&Error{Kind: KindDecoding, Err: errors.New("eof")}, "decoding error: eof"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != KindUnknown {
		t.Errorf("KindOf(plain) = %v, want %v", got, KindUnknown)
	}
	wrapped := errors.Join(errors.New("ctx"), &Error{Kind: KindNetwork})
	if got := KindOf(wrapped); got != KindNetwork {
		t.Errorf("KindOf(wrapped) = %v, want %v", got, KindNetwork)
	}
}

func TestEndpoints(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		write := func(data any) {
			json.NewEncoder(w).Encode(map[string]any{"status": "success", "data": data})
		}

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/signin":
			var req SignInRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.Password != "pw" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			write(map[string]any{"token": "tok", "user": map[string]any{"id": 7, "email": req.Email, "name": "Ann"}})
		case r.URL.Path == "/users/7":
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			write(map[string]any{"id": 7, "email": "a@b.c", "name": "Ann", "balance": 1500})
		case r.URL.Path == "/events/search":
			write([]map[string]any{{"id": 1, "title": r.URL.Query().Get("q")}})
		case r.URL.Path == "/orderbooks/market/3":
			write(map[string]any{"bids": [][]int{{48, 10}}, "asks": [][]int{}})
		case r.Method == http.MethodPost && r.URL.Path == "/orders":
			var req PlaceOrderRequest
			json.NewDecoder(r.Body).Decode(&req)
			write(map[string]any{"id": 99, "client_order_id": req.ClientOrderID, "market_id": req.MarketID, "price": req.Price, "quantity": req.Quantity, "status": "open"})
		case r.Method == http.MethodDelete && r.URL.Path == "/orders/99":
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/health":
			w.Write([]byte("OK\n"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	ctx := context.Background()

	t.Run("sign in", func(t *testing.T) {
		c := NewClient(server.URL, nil)
		resp, err := c.SignIn(ctx, SignInRequest{Email: "a@b.c", Password: "pw"})
		if err != nil {
			t.Fatalf("SignIn() error = %v", err)
		}
		if resp.Token != "tok" || resp.User.ID != 7 {
			t.Errorf("SignIn() = %+v, want token tok user 7", resp)
		}

		_, err = c.SignIn(ctx, SignInRequest{Email: "a@b.c", Password: "wrong"})
		if !errors.Is(err, ErrAuthenticationRequired) {
			t.Errorf("err = %v, want ErrAuthenticationRequired", err)
		}
	})

	t.Run("get user", func(t *testing.T) {
		c := NewClient(server.URL, staticCredential{value: "tok"})
		user, err := c.GetUser(ctx, 7)
		if err != nil {
			t.Fatalf("GetUser() error = %v", err)
		}
		m := user.ToModel()
		if m.Balance == nil || *m.Balance != 1500 {
			t.Errorf("Balance = %v, want 1500", m.Balance)
		}
	})

	t.Run("search events", func(t *testing.T) {
		c := NewClient(server.URL, nil)
		events, err := c.SearchEvents(ctx, "election night")
		if err != nil {
			t.Fatalf("SearchEvents() error = %v", err)
		}
		if len(events) != 1 || events[0].Title != "election night" {
			t.Errorf("SearchEvents() = %+v", events)
		}
		if _, err := c.SearchEvents(ctx, ""); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("empty query err = %v, want ErrInvalidRequest", err)
		}
	})

	t.Run("orderbook", func(t *testing.T) {
		c := NewClient(server.URL, nil)
		book, err := c.GetMarketOrderbook(ctx, 3)
		if err != nil {
			t.Fatalf("GetMarketOrderbook() error = %v", err)
		}
		if book.MarketID != 3 {
			t.Errorf("MarketID = %d, want 3", book.MarketID)
		}
		if len(book.ToSnapshot().Bids) != 1 {
			t.Errorf("bids = %d, want 1", len(book.ToSnapshot().Bids))
		}
	})

	t.Run("place and cancel order", func(t *testing.T) {
		c := NewClient(server.URL, staticCredential{value: "tok"})
		order, err := c.PlaceOrder(ctx, PlaceOrderRequest{MarketID: 3, Side: "yes", Action: "buy", Price: 45, Quantity: 10})
		if err != nil {
			t.Fatalf("PlaceOrder() error = %v", err)
		}
		if order.ToModel().ClientOrderID.String() != order.ClientOrderID {
			t.Errorf("ClientOrderID = %q, want generated uuid", order.ClientOrderID)
		}
		if err := c.CancelOrder(ctx, 99); err != nil {
			t.Errorf("CancelOrder() error = %v", err)
		}
		if _, err := c.PlaceOrder(ctx, PlaceOrderRequest{MarketID: 3, Price: 0, Quantity: 1}); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("bad price err = %v, want ErrInvalidRequest", err)
		}
	})

	t.Run("authenticated without credential", func(t *testing.T) {
		c := NewClient(server.URL, nil)
		if _, err := c.GetPositions(ctx); !errors.Is(err, ErrAuthenticationRequired) {
			t.Errorf("err = %v, want ErrAuthenticationRequired", err)
		}
	})

	t.Run("health plain text", func(t *testing.T) {
		c := NewClient(server.URL, nil)
		h, err := c.Health(ctx)
		if err != nil {
			t.Fatalf("Health() error = %v", err)
		}
		if h.Status != "OK" {
			t.Errorf("Status = %q, want %q", h.Status, "OK")
		}
	})
}
