package market

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/rickgao/predict-core/internal/api"
	"github.com/rickgao/predict-core/internal/model"
)

// Change event types.
const (
	ChangeCreated      = "created"
	ChangeStatusChange = "status_change"
)

// EventLister pages through backend events.
type EventLister interface {
	GetEvents(ctx context.Context, opts api.GetEventsOptions) ([]api.APIEvent, error)
}

// Change describes a market that appeared or changed status.
type Change struct {
	MarketID  uint64
	EventType string
	OldStatus string
	NewStatus string
	Market    model.Market
}

// Config holds Registry configuration.
type Config struct {
	ReconcileInterval time.Duration
	PageSize          int
	EventStatus       string // Server-side event filter, empty for all
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReconcileInterval: 5 * time.Minute,
		PageSize:          100,
	}
}

// Registry tracks markets by id.
type Registry struct {
	cfg    Config
	lister EventLister
	logger *slog.Logger

	mu         sync.RWMutex
	markets    map[uint64]model.Market
	activeSet  map[uint64]struct{}
	lastSyncAt time.Time
	changes    chan Change

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRegistry creates a Registry. Zero config fields take defaults.
func NewRegistry(cfg Config, lister EventLister, logger *slog.Logger) *Registry {
	def := DefaultConfig()
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = def.ReconcileInterval
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		cfg:       cfg,
		lister:    lister,
		logger:    logger,
		markets:   make(map[uint64]model.Market),
		activeSet: make(map[uint64]struct{}),
		changes:   make(chan Change, 1000),
	}
}

// Start runs a blocking initial sync, then reconciles in the background.
func (r *Registry) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	if err := r.Sync(r.ctx); err != nil {
		r.cancel()
		return err
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.reconciliationLoop(r.ctx)
	}()

	r.mu.RLock()
	r.logger.Info("market registry started",
		"active_markets", len(r.activeSet),
		"total_markets", len(r.markets),
	)
	r.mu.RUnlock()

	return nil
}

// Stop gracefully shuts down.
func (r *Registry) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("market registry stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ActiveMarkets returns markets currently open for trading, ordered by id.
func (r *Registry) ActiveMarkets() []model.Market {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Market, 0, len(r.activeSet))
	for id := range r.activeSet {
		out = append(out, r.markets[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MarketIDs returns the active market ids in ascending order.
func (r *Registry) MarketIDs() []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]uint64, 0, len(r.activeSet))
	for id := range r.activeSet {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Market returns a market by id.
func (r *Registry) Market(id uint64) (model.Market, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.markets[id]
	return m, ok
}

// LastSync returns when the last successful sync finished.
func (r *Registry) LastSync() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastSyncAt
}

// Changes returns a channel of market changes. Changes are dropped when the
// buffer is full.
func (r *Registry) Changes() <-chan Change {
	return r.changes
}

// isActive reports whether a market status accepts orders.
func isActive(status string) bool {
	switch status {
	case "open", "active":
		return true
	default:
		return false
	}
}

// upsertLocked stores m and returns the change it caused, if any.
func (r *Registry) upsertLocked(m model.Market) (Change, bool) {
	existing, seen := r.markets[m.ID]
	r.markets[m.ID] = m

	if isActive(m.Status) {
		r.activeSet[m.ID] = struct{}{}
	} else {
		delete(r.activeSet, m.ID)
	}

	switch {
	case !seen:
		return Change{MarketID: m.ID, EventType: ChangeCreated, NewStatus: m.Status, Market: m}, true
	case existing.Status != m.Status:
		return Change{
			MarketID:  m.ID,
			EventType: ChangeStatusChange,
			OldStatus: existing.Status,
			NewStatus: m.Status,
			Market:    m,
		}, true
	default:
		return Change{}, false
	}
}

func (r *Registry) notify(c Change) {
	select {
	case r.changes <- c:
	default:
		r.logger.Warn("market change dropped, buffer full", "market_id", c.MarketID)
	}
}
