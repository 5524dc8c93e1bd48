package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/predict-core/internal/api"
	"github.com/rickgao/predict-core/internal/ladder"
)

// OrderbookFetcher fetches one market's book.
type OrderbookFetcher interface {
	GetMarketOrderbook(ctx context.Context, marketID uint64) (*api.APIOrderbook, error)
}

// MarketSource provides the markets to poll each cycle.
type MarketSource interface {
	MarketIDs() []uint64
}

// StaticMarkets is a fixed MarketSource.
type StaticMarkets []uint64

func (s StaticMarkets) MarketIDs() []uint64 { return s }

// Update is one normalized poll result.
type Update struct {
	MarketID  uint64
	Ladder    ladder.Ladder
	FetchedAt time.Time
}

// LadderHandler receives normalized ladders.
type LadderHandler interface {
	HandleLadder(update Update) error
}

// LadderHandlerFunc is a function adapter for LadderHandler.
type LadderHandlerFunc func(Update) error

func (f LadderHandlerFunc) HandleLadder(u Update) error {
	return f(u)
}

// PollObserver is notified of each market result.
type PollObserver interface {
	ObservePoll(outcome string)
}

// Config holds poller configuration.
type Config struct {
	Interval    time.Duration // Poll interval (default: 5s)
	Concurrency int           // Max concurrent requests (default: 4)
	Depth       int           // Ladder levels per side (default: 10)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    5 * time.Second,
		Concurrency: 4,
		Depth:       10,
	}
}

// Poller periodically fetches orderbooks and hands out display ladders.
type Poller struct {
	cfg        Config
	fetcher    OrderbookFetcher
	markets    MarketSource
	normalizer *ladder.Normalizer
	handler    LadderHandler
	observer   PollObserver
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Poller.
type Option func(*Poller)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) {
		p.logger = logger
	}
}

// WithObserver sets a poll observer (metrics).
func WithObserver(o PollObserver) Option {
	return func(p *Poller) {
		p.observer = o
	}
}

// New creates a new Poller. Zero config fields take defaults.
func New(cfg Config, fetcher OrderbookFetcher, markets MarketSource, normalizer *ladder.Normalizer, handler LadderHandler, opts ...Option) *Poller {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.Depth <= 0 {
		cfg.Depth = def.Depth
	}
	if normalizer == nil {
		normalizer = ladder.New(ladder.DefaultConfig())
	}

	p := &Poller{
		cfg:        cfg,
		fetcher:    fetcher,
		markets:    markets,
		normalizer: normalizer,
		handler:    handler,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("orderbook poller started",
		"interval", p.cfg.Interval,
		"concurrency", p.cfg.Concurrency,
		"depth", p.cfg.Depth,
	)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("orderbook poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	p.PollOnce(p.ctx)

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.PollOnce(p.ctx)
		}
	}
}

// PollOnce runs one cycle over every market and returns how many succeeded.
// Market failures are logged and counted, never returned.
func (p *Poller) PollOnce(ctx context.Context) int {
	start := time.Now()

	ids := p.markets.MarketIDs()
	if len(ids) == 0 {
		p.logger.Debug("no markets to poll")
		return 0
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)

	var fetched, failed atomic.Int64

	for _, id := range ids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := p.pollMarket(gctx, id); err != nil {
				p.logger.Warn("failed to poll market",
					"market_id", id,
					"err", err,
				)
				failed.Add(1)
				p.observe("error")
				return nil
			}
			fetched.Add(1)
			p.observe("ok")
			return nil
		})
	}

	g.Wait()

	p.logger.Info("poll cycle complete",
		"markets", len(ids),
		"fetched", fetched.Load(),
		"errors", failed.Load(),
		"duration", time.Since(start),
	)

	return int(fetched.Load())
}

// pollMarket fetches, normalizes and hands off a single market.
func (p *Poller) pollMarket(ctx context.Context, marketID uint64) error {
	book, err := p.fetcher.GetMarketOrderbook(ctx, marketID)
	if err != nil {
		return err
	}

	snapshot := book.ToSnapshot()
	update := Update{
		MarketID:  marketID,
		Ladder:    p.normalizer.ToLadder(&snapshot, p.cfg.Depth, book.Anchor()),
		FetchedAt: time.Now(),
	}

	if p.handler != nil {
		if err := p.handler.HandleLadder(update); err != nil {
			return err
		}
	}

	return nil
}

func (p *Poller) observe(outcome string) {
	if p.observer != nil {
		p.observer.ObservePoll(outcome)
	}
}
