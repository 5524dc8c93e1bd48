package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/rickgao/predict-core/internal/api"
	"github.com/rickgao/predict-core/internal/config"
	"github.com/rickgao/predict-core/internal/credential"
	"github.com/rickgao/predict-core/internal/ladder"
	"github.com/rickgao/predict-core/internal/logging"
	"github.com/rickgao/predict-core/internal/metrics"
	"github.com/rickgao/predict-core/internal/session"
	"github.com/rickgao/predict-core/internal/storage"
	"github.com/rickgao/predict-core/internal/version"
)

const usage = `usage: predictctl [-config file] [-env file] <command> [flags]

commands:
  signin      sign in and store the credential
  signup      create an account
  signout     clear the stored credential and session
  whoami      restore and print the current session
  health      check the backend
  events      list or search events
  markets     list active markets
  ladder      print a market's display ladder
  balance     print the available balance
  positions   list open positions
  orders      list orders
  place       place a limit order
  cancel      cancel an order
  onramp      add funds
  poll        poll orderbooks and print ladders until interrupted
  watch       stream orderbooks and print ladders until interrupted
  version     print the build version
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "predictctl:", err)
		os.Exit(1)
	}
}

// app holds the wired components for one invocation.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	out        io.Writer
	client     *api.Client
	creds      *credential.Store
	manager    *session.Manager
	normalizer *ladder.Normalizer
	metrics    *metrics.Metrics
	registry   *prometheus.Registry
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("predictctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "path to config file (defaults and environment only when empty)")
	envFile := fs.String("env", ".env", "dotenv file loaded before config")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w\n\n%s", err, usage)
	}

	if fs.NArg() == 0 {
		return errors.New(usage)
	}
	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]

	if cmd == "version" {
		fmt.Fprintln(out, version.String())
		return nil
	}

	if err := loadEnv(*envFile); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("set up logging: %w", err)
	}
	defer closer.Close()

	a, err := newApp(cfg, logger, out)
	if err != nil {
		return err
	}

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, cfg.Metrics.Path, a.registry, logger); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	return a.dispatch(ctx, cmd, cmdArgs)
}

func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.FromEnv()
	}
	return config.LoadAndValidate(path)
}

func newApp(cfg *config.Config, logger *slog.Logger, out io.Writer) (*app, error) {
	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	if err != nil {
		return nil, err
	}
	if err := metrics.RegisterRuntime(registry); err != nil {
		return nil, err
	}

	backend, err := credentialBackend(cfg.Storage)
	if err != nil {
		return nil, err
	}
	creds := credential.NewStore(backend, cfg.Storage.KeyringService, cfg.Storage.KeyringAccount,
		credential.WithLogger(logger))

	store, err := storage.NewFileStore(cfg.Storage.Dir)
	if err != nil {
		return nil, err
	}

	opts := []api.ClientOption{
		api.WithLogger(logger),
		api.WithObserver(m),
		api.WithTimeout(cfg.API.Timeout),
		api.WithHealthTimeout(cfg.API.HealthTimeout),
		api.WithRateLimit(cfg.API.RateLimit.RPS, cfg.API.RateLimit.Burst),
	}
	if cfg.API.UserAgent != "" {
		opts = append(opts, api.WithUserAgent(cfg.API.UserAgent))
	}
	client := api.NewClient(cfg.API.BaseURL, creds, opts...)

	manager := session.NewManager(client, creds, session.NewSnapshotStore(store, cfg.Storage.SnapshotKey),
		session.WithLogger(logger),
		session.WithObserver(m),
	)

	normalizer := ladder.New(ladder.Config{
		Tick:           decimal.NewFromFloat(cfg.Ladder.Tick),
		Growth:         decimal.NewFromFloat(cfg.Ladder.Growth),
		BaseQuantity:   decimal.NewFromFloat(cfg.Ladder.BaseQuantity),
		QuantityPlaces: 2,
	})

	return &app{
		cfg:        cfg,
		logger:     logger,
		out:        out,
		client:     client,
		creds:      creds,
		manager:    manager,
		normalizer: normalizer,
		metrics:    m,
		registry:   registry,
	}, nil
}

func credentialBackend(cfg config.StorageConfig) (credential.Backend, error) {
	switch cfg.CredentialBackend {
	case config.BackendKeyring:
		return credential.KeyringBackend{}, nil
	case config.BackendFile:
		b, err := credential.NewFileBackend(filepath.Join(cfg.Dir, "credentials"))
		if err != nil {
			return nil, err
		}
		return b, nil
	case config.BackendMemory:
		return credential.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown credential backend %q", cfg.CredentialBackend)
	}
}
