package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rickgao/predict-core/internal/api"
	"github.com/rickgao/predict-core/internal/feed"
	"github.com/rickgao/predict-core/internal/market"
	"github.com/rickgao/predict-core/internal/poller"
	"github.com/rickgao/predict-core/internal/session"
)

// EnvPassword supplies the password when -password is not given.
const EnvPassword = "PREDICT_PASSWORD"

var errNotSignedIn = errors.New("not signed in (run predictctl signin)")

func (a *app) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "signin":
		return a.signIn(ctx, args)
	case "signup":
		return a.signUp(ctx, args)
	case "signout":
		a.manager.SignOut()
		fmt.Fprintln(a.out, "signed out")
		return nil
	case "whoami":
		return a.whoami(ctx)
	case "health":
		return a.health(ctx)
	case "events":
		return a.events(ctx, args)
	case "markets":
		return a.markets(ctx, args)
	case "ladder":
		return a.ladder(ctx, args)
	case "balance":
		return a.balance(ctx)
	case "positions":
		return a.positions(ctx)
	case "orders":
		return a.orders(ctx, args)
	case "place":
		return a.place(ctx, args)
	case "cancel":
		return a.cancel(ctx, args)
	case "onramp":
		return a.onramp(ctx, args)
	case "poll":
		return a.poll(ctx, args)
	case "watch":
		return a.watch(ctx, args)
	default:
		return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func passwordOrEnv(p string) string {
	if p != "" {
		return p
	}
	return os.Getenv(EnvPassword)
}

func (a *app) signIn(ctx context.Context, args []string) error {
	fs := newFlagSet("signin")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (or "+EnvPassword+")")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("signin: -email is required")
	}

	s, err := a.manager.SignIn(ctx, *email, passwordOrEnv(*password))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "signed in as %s (%d)\n", s.User.Email, s.User.ID)
	return nil
}

func (a *app) signUp(ctx context.Context, args []string) error {
	fs := newFlagSet("signup")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (or "+EnvPassword+")")
	name := fs.String("name", "", "display name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("signup: -email is required")
	}

	s, err := a.manager.SignUp(ctx, *email, passwordOrEnv(*password), *name)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "created account %s (%d)\n", s.User.Email, s.User.ID)
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	if err := a.manager.RestoreSessionIfNeeded(ctx); err != nil {
		return err
	}
	s, ok := a.manager.Session()
	if !ok {
		fmt.Fprintln(a.out, session.SignedOut.String())
		return nil
	}
	renderUser(a.out, s)
	return nil
}

// requireSession restores a stored session and fails when none is valid.
func (a *app) requireSession(ctx context.Context) error {
	if err := a.manager.RestoreSessionIfNeeded(ctx); err != nil {
		return err
	}
	if _, ok := a.manager.Session(); !ok {
		return errNotSignedIn
	}
	return nil
}

// authed runs fn with a restored session and signs out when the backend
// rejects the credential.
func (a *app) authed(ctx context.Context, fn func() error) error {
	if err := a.requireSession(ctx); err != nil {
		return err
	}
	err := fn()
	if a.manager.HandleAuthError(err) {
		return fmt.Errorf("%w: session expired, signed out", err)
	}
	return err
}

func (a *app) health(ctx context.Context) error {
	resp, err := a.client.Health(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, resp.Status)
	return nil
}

func (a *app) events(ctx context.Context, args []string) error {
	fs := newFlagSet("events")
	query := fs.String("q", "", "search text")
	category := fs.String("category", "", "filter by category")
	status := fs.String("status", "", "filter by status")
	limit := fs.Int("limit", 0, "max events")
	offset := fs.Int("offset", 0, "skip events")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		events []api.APIEvent
		err    error
	)
	if *query != "" {
		events, err = a.client.SearchEvents(ctx, *query)
	} else {
		events, err = a.client.GetEvents(ctx, api.GetEventsOptions{
			Limit:    *limit,
			Offset:   *offset,
			Category: *category,
			Status:   *status,
		})
	}
	if err != nil {
		return err
	}

	renderEvents(a.out, events)
	return nil
}

func (a *app) markets(ctx context.Context, args []string) error {
	fs := newFlagSet("markets")
	status := fs.String("status", "", "event status filter")
	if err := fs.Parse(args); err != nil {
		return err
	}

	registry := market.NewRegistry(market.Config{EventStatus: *status}, a.client, a.logger)
	if err := registry.Sync(ctx); err != nil {
		return err
	}
	renderMarkets(a.out, registry.ActiveMarkets())
	return nil
}

func (a *app) ladder(ctx context.Context, args []string) error {
	fs := newFlagSet("ladder")
	marketID := fs.Uint64("market", 0, "market id")
	depth := fs.Int("depth", a.cfg.Ladder.Depth, "levels per side")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *marketID == 0 {
		return errors.New("ladder: -market is required")
	}
	if *depth < 1 {
		return errors.New("ladder: -depth must be >= 1")
	}

	book, err := a.client.GetMarketOrderbook(ctx, *marketID)
	if err != nil {
		return err
	}
	snap := book.ToSnapshot()
	renderLadder(a.out, *marketID, a.normalizer.ToLadder(&snap, *depth, book.Anchor()))
	return nil
}

func (a *app) balance(ctx context.Context) error {
	return a.authed(ctx, func() error {
		b, err := a.client.GetBalance(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, formatCents(b.Balance))
		return nil
	})
}

func (a *app) positions(ctx context.Context) error {
	return a.authed(ctx, func() error {
		positions, err := a.client.GetPositions(ctx)
		if err != nil {
			return err
		}
		renderPositions(a.out, positions)
		return nil
	})
}

func (a *app) orders(ctx context.Context, args []string) error {
	fs := newFlagSet("orders")
	marketID := fs.Uint64("market", 0, "filter by market id")
	status := fs.String("status", "", "filter by status")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return a.authed(ctx, func() error {
		orders, err := a.client.GetOrders(ctx, api.GetOrdersOptions{MarketID: *marketID, Status: *status})
		if err != nil {
			return err
		}
		renderOrders(a.out, orders)
		return nil
	})
}

func (a *app) place(ctx context.Context, args []string) error {
	fs := newFlagSet("place")
	marketID := fs.Uint64("market", 0, "market id")
	side := fs.String("side", "yes", "yes or no")
	action := fs.String("action", "buy", "buy or sell")
	price := fs.Int("price", 0, "limit price in cents (1-99)")
	qty := fs.Int64("qty", 0, "contracts")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return a.authed(ctx, func() error {
		order, err := a.client.PlaceOrder(ctx, api.PlaceOrderRequest{
			MarketID: *marketID,
			Side:     *side,
			Action:   *action,
			Price:    *price,
			Quantity: *qty,
		})
		if err != nil {
			return err
		}
		renderOrders(a.out, []api.APIOrder{*order})
		return nil
	})
}

func (a *app) cancel(ctx context.Context, args []string) error {
	fs := newFlagSet("cancel")
	orderID := fs.Uint64("order", 0, "order id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *orderID == 0 {
		return errors.New("cancel: -order is required")
	}

	return a.authed(ctx, func() error {
		if err := a.client.CancelOrder(ctx, *orderID); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "cancelled order %d\n", *orderID)
		return nil
	})
}

func (a *app) onramp(ctx context.Context, args []string) error {
	fs := newFlagSet("onramp")
	amount := fs.Int64("amount", 0, "amount in cents")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return a.authed(ctx, func() error {
		b, err := a.client.Onramp(ctx, *amount)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, formatCents(b.Balance))
		return nil
	})
}

func (a *app) poll(ctx context.Context, args []string) error {
	fs := newFlagSet("poll")
	markets := fs.String("markets", "", "comma-separated market ids (defaults to poller.markets)")
	depth := fs.Int("depth", a.cfg.Ladder.Depth, "levels per side")
	once := fs.Bool("once", false, "run a single cycle and exit")
	discover := fs.Bool("discover", false, "poll every active market from the event listing")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var source poller.MarketSource
	if *discover {
		registry := market.NewRegistry(market.Config{}, a.client, a.logger)
		if err := registry.Start(ctx); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			registry.Stop(stopCtx)
		}()
		source = registry
	} else {
		ids := a.cfg.Poller.Markets
		if *markets != "" {
			parsed, err := parseMarketIDs(*markets)
			if err != nil {
				return err
			}
			ids = parsed
		}
		if len(ids) == 0 {
			return errors.New("poll: no markets (use -markets, -discover or poller.markets)")
		}
		source = poller.StaticMarkets(ids)
	}

	var mu sync.Mutex
	handler := poller.LadderHandlerFunc(func(u poller.Update) error {
		mu.Lock()
		defer mu.Unlock()
		renderLadder(a.out, u.MarketID, u.Ladder)
		return nil
	})

	p := poller.New(poller.Config{
		Interval:    a.cfg.Poller.Interval,
		Concurrency: a.cfg.Poller.Concurrency,
		Depth:       *depth,
	}, a.client, source, a.normalizer, handler,
		poller.WithLogger(a.logger),
		poller.WithObserver(a.metrics),
	)

	if *once {
		if n := p.PollOnce(ctx); n == 0 {
			return errors.New("poll: no market could be fetched")
		}
		return nil
	}

	if err := p.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return p.Stop(stopCtx)
}

func (a *app) watch(ctx context.Context, args []string) error {
	fs := newFlagSet("watch")
	markets := fs.String("markets", "", "comma-separated market ids (defaults to poller.markets)")
	depth := fs.Int("depth", a.cfg.Ladder.Depth, "levels per side")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ids := a.cfg.Poller.Markets
	if *markets != "" {
		parsed, err := parseMarketIDs(*markets)
		if err != nil {
			return err
		}
		ids = parsed
	}
	if len(ids) == 0 {
		return errors.New("watch: no markets (use -markets or poller.markets)")
	}

	feedURL := a.cfg.Feed.URL
	if feedURL == "" {
		derived, err := streamURL(a.cfg.API.BaseURL)
		if err != nil {
			return err
		}
		feedURL = derived
	}

	cfg := feed.DefaultConfig()
	cfg.URL = feedURL
	cfg.PingTimeout = a.cfg.Feed.PingTimeout
	cfg.WriteTimeout = a.cfg.Feed.WriteTimeout
	cfg.BufferSize = a.cfg.Feed.BufferSize

	client := feed.NewClient(cfg, a.creds,
		feed.WithLogger(a.logger),
		feed.WithObserver(a.metrics),
	)
	if err := client.Connect(ctx); err != nil {
		a.manager.HandleAuthError(err)
		return err
	}
	defer client.Close()

	if err := client.Subscribe(ids...); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-client.Errors():
			return err
		case <-client.Done():
			return nil
		case u := <-client.Updates():
			renderLadder(a.out, u.MarketID, a.normalizer.ToLadder(&u.Snapshot, *depth, u.Anchor))
		}
	}
}

func parseMarketIDs(s string) ([]uint64, error) {
	var ids []uint64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("invalid market id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// streamURL derives the WebSocket endpoint from the REST base URL.
func streamURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

