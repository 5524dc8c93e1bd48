// Package backendtest runs an in-process fake of the trading backend for
// tests. Routes mirror the real REST surface closely enough for the session
// manager, poller and CLI to run against it.
package backendtest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"github.com/rickgao/predict-core/internal/api"
)

// Server is a fake backend. All methods are safe for concurrent use.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	users      map[uint64]*account
	byEmail    map[string]uint64
	tokens     map[string]uint64
	orderbooks map[uint64]api.APIOrderbook
	events     []api.APIEvent
	failures   map[string]int // route -> forced status
	calls      map[string]int
	nextID     uint64
}

type account struct {
	user     api.APIUser
	password string
}

// New starts a fake backend. Callers must Close it.
func New() *Server {
	s := &Server{
		users:      make(map[uint64]*account),
		byEmail:    make(map[string]uint64),
		tokens:     make(map[string]uint64),
		orderbooks: make(map[uint64]api.APIOrderbook),
		failures:   make(map[string]int),
		calls:      make(map[string]int),
		nextID:     1000,
	}

	r := mux.NewRouter()
	r.HandleFunc("/signup", s.route("signup", s.handleSignUp)).Methods(http.MethodPost)
	r.HandleFunc("/signin", s.route("signin", s.handleSignIn)).Methods(http.MethodPost)
	r.HandleFunc("/users/{id:[0-9]+}", s.route("get_user", s.authed(s.handleGetUser))).Methods(http.MethodGet)
	r.HandleFunc("/get-balance", s.route("get_balance", s.authed(s.handleGetBalance))).Methods(http.MethodGet)
	r.HandleFunc("/events", s.route("get_events", s.handleEvents)).Methods(http.MethodGet)
	r.HandleFunc("/orderbooks/market/{id:[0-9]+}", s.route("get_orderbook", s.handleOrderbook)).Methods(http.MethodGet)
	r.HandleFunc("/health", s.route("health", s.handleHealth)).Methods(http.MethodGet)

	s.Server = httptest.NewServer(r)
	return s
}

// AddUser registers an account and returns a credential for it.
func (s *Server) AddUser(id uint64, email, password, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	balance := int64(10000)
	s.users[id] = &account{
		user:     api.APIUser{ID: id, Email: email, DisplayName: name, Balance: &balance},
		password: password,
	}
	s.byEmail[email] = id

	token := MakeToken(id)
	s.tokens[token] = id
	return token
}

// IssueToken makes token a valid credential for id.
func (s *Server) IssueToken(id uint64, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = id
}

// RemoveUser deletes an account so lookups return 404.
func (s *Server) RemoveUser(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.users[id]; ok {
		delete(s.byEmail, a.user.Email)
	}
	delete(s.users, id)
}

// RevokeTokens invalidates every issued credential.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]uint64)
}

// Rename changes a user's display name server-side.
func (s *Server) Rename(id uint64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.users[id]; ok {
		a.user.DisplayName = name
	}
}

// SetOrderbook sets the book returned for a market.
func (s *Server) SetOrderbook(marketID uint64, book api.APIOrderbook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	book.MarketID = marketID
	s.orderbooks[marketID] = book
}

// SetEvents replaces the event list served by /events.
func (s *Server) SetEvents(events []api.APIEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append([]api.APIEvent(nil), events...)
}

// Fail forces every call to route to reply with status. Zero clears it.
func (s *Server) Fail(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, route)
		return
	}
	s.failures[route] = status
}

// Calls returns how many requests hit route.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// MakeToken builds an unsigned three-part credential whose payload carries
// sub as a JSON number.
func MakeToken(sub uint64) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":` + strconv.FormatUint(sub, 10) + `}`))
	return header + "." + payload + ".sig"
}

func (s *Server) route(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[name]++
		status := s.failures[name]
		s.mu.Unlock()

		if status != 0 {
			writeError(w, status, http.StatusText(status))
			return
		}
		h(w, r)
	}
}

func (s *Server) authed(h func(http.ResponseWriter, *http.Request, uint64)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		s.mu.Lock()
		caller, ok := s.tokens[token]
		s.mu.Unlock()

		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		h(w, r, caller)
	}
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req api.SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	s.mu.Lock()
	if _, exists := s.byEmail[req.Email]; exists {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "email already registered")
		return
	}
	s.nextID++
	id := s.nextID
	s.mu.Unlock()

	token := s.AddUser(id, req.Email, req.Password, req.DisplayName)
	s.writeAuth(w, id, token)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req api.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}

	s.mu.Lock()
	id, ok := s.byEmail[req.Email]
	var a *account
	if ok {
		a = s.users[id]
	}
	s.mu.Unlock()

	if !ok || a.password != req.Password {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token := MakeToken(id)
	s.mu.Lock()
	s.tokens[token] = id
	s.mu.Unlock()

	s.writeAuth(w, id, token)
}

func (s *Server) writeAuth(w http.ResponseWriter, id uint64, token string) {
	s.mu.Lock()
	user := s.users[id].user
	s.mu.Unlock()

	writeData(w, http.StatusOK, api.AuthResponse{Token: token, User: user})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request, _ uint64) {
	id, _ := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)

	s.mu.Lock()
	a, ok := s.users[id]
	var user api.APIUser
	if ok {
		user = a.user
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("user %d not found", id))
		return
	}
	writeData(w, http.StatusOK, user)
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request, caller uint64) {
	s.mu.Lock()
	a, ok := s.users[caller]
	var balance int64
	if ok && a.user.Balance != nil {
		balance = *a.user.Balance
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeData(w, http.StatusOK, api.APIBalance{Balance: balance})
}

func (s *Server) handleOrderbook(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)

	s.mu.Lock()
	book, ok := s.orderbooks[id]
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("market %d not found", id))
		return
	}
	writeData(w, http.StatusOK, book)
}

// handleEvents pages with limit/offset and filters by event status.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	status := q.Get("status")

	s.mu.Lock()
	var matched []api.APIEvent
	for _, e := range s.events {
		if status == "" || e.Status == status {
			matched = append(matched, e)
		}
	}
	s.mu.Unlock()

	if offset > len(matched) {
		offset = len(matched)
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	if matched == nil {
		matched = []api.APIEvent{}
	}
	writeData(w, http.StatusOK, matched)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"status": "success", "data": data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"status": "error", "message": message})
}
