package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/five82/tern/internal/clock"
	"github.com/five82/tern/internal/config"
	"github.com/five82/tern/internal/logging"
	"github.com/five82/tern/internal/operate"
	"github.com/five82/tern/internal/state"
)

// Options configure a tern session.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/tern/prefs.toml
	Scope      string // empty reopens the last scope from prefs
	APIURL     string // overrides config and environment when set
	LogLevel   string // overrides config when set
	LogFile    string // overrides config when set; "-" logs to stderr
	Verbose    bool

	// Backend and Clock replace the HTTP client and real clock, for tests.
	Backend operate.VariableService
	Clock   clock.Clock
}

// Session is the composition root shared by the TUI and the headless
// commands: config, logger, API client and variable store.
type Session struct {
	Config config.Config
	Logger *zap.Logger
	Store  *state.Store
	Clock  clock.Clock
}

// Open loads configuration and builds a Session. Outcome notifications from
// the store go to notifier.
func Open(opts Options, notifier state.Notifier) (*Session, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if v := strings.TrimSpace(opts.APIURL); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(opts.LogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(opts.LogFile); v != "" {
		cfg.LogFile = v
	}

	logger, err := logging.New(logging.Options{File: cfg.LogFile, Level: cfg.LogLevel, Verbose: opts.Verbose})
	if err != nil {
		return nil, err
	}

	backend := opts.Backend
	if backend == nil {
		client, err := operate.NewClient(cfg.APIURL, operate.WithToken(cfg.Token))
		if err != nil {
			_ = logger.Sync()
			return nil, fmt.Errorf("init api client: %w", err)
		}
		backend = client
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}

	store := state.New(backend,
		state.WithClock(clk),
		state.WithNotifier(notifier),
		state.WithLogger(logger.Named("state")),
		state.WithOperationPolling(cfg.OperationPollInterval, cfg.OperationPollAttempts),
		state.WithPageSize(cfg.PageSize),
		state.WithMaxItems(cfg.MaxItems),
	)

	logger.Debug("session opened",
		zap.String("api_url", cfg.APIURL),
		zap.String("config", cfg.Path),
		zap.Duration("refresh_interval", cfg.RefreshInterval))

	return &Session{Config: cfg, Logger: logger, Store: store, Clock: clk}, nil
}

// Close disposes the store and flushes the logger.
func (s *Session) Close() {
	s.Store.Dispose()
	_ = s.Logger.Sync()
}

// ignorable reports errors a caller has nothing to do about: the result was
// superseded by a newer request or the store is shutting down.
func ignorable(err error) bool {
	return errors.Is(err, state.ErrSuperseded) || errors.Is(err, state.ErrDisposed) || errors.Is(err, context.Canceled)
}
