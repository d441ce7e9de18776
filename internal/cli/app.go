package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/notevault/internal/badgerstore"
	"github.com/roach88/notevault/internal/config"
	"github.com/roach88/notevault/internal/engine"
	"github.com/roach88/notevault/internal/remote"
	"github.com/roach88/notevault/internal/repository"
	"github.com/roach88/notevault/internal/store"
)

// app is one CLI session: an open remote store with the repository and
// engine built over it.
type app struct {
	cfg       config.Config
	store     remote.Store
	ledger    *store.Store // set for the sqlite backend only
	repo      *repository.Repository
	engine    *engine.Engine
	formatter *OutputFormatter
	closeFn   func() error
}

// openApp resolves configuration (file, then flag overrides), configures
// logging and opens the selected backend.
func openApp(opts *RootOptions, cmd *cobra.Command) (*app, error) {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	applyFlagOverrides(&cfg, opts, cmd)
	if err := cfg.Validate(); err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}

	logLevel := cfg.LogLevel
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	a := &app{cfg: cfg, formatter: formatter}

	slog.Debug("opening remote store", "backend", cfg.Backend, "path", cfg.Path)
	switch cfg.Backend {
	case config.BackendSQLite:
		st, err := store.Open(cfg.Path,
			store.WithConfirmLatency(cfg.ConfirmLatency),
			store.WithLogger(logger),
		)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		a.store, a.ledger, a.closeFn = st, st, st.Close
	case config.BackendBadger:
		bcfg := badgerstore.DefaultConfig(cfg.Path)
		bcfg.Logger = logger.With("component", "badger")
		bs, err := badgerstore.Open(bcfg)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		a.store, a.closeFn = bs, bs.Close
	case config.BackendMemory:
		a.store = remote.NewMemory(remote.WithLatency(cfg.ConfirmLatency))
		a.closeFn = func() error { return nil }
	default:
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown backend %q", cfg.Backend))
	}

	a.repo = repository.New(a.store,
		repository.WithLoadConcurrency(cfg.LoadConcurrency),
		repository.WithLogger(logger),
	)
	// Read commands run without an owner; mutations check requireSession.
	session := engine.Session{Owner: cfg.Owner, Subject: cfg.Subject}
	if s, err := engine.NewSession(cfg.Owner, cfg.Subject); err == nil {
		session = s
	}
	a.engine = engine.New(a.repo, session,
		engine.WithObservationWindows(cfg.SuccessWindow, cfg.FailureWindow),
		engine.WithLogger(logger),
	)
	return a, nil
}

// requireSession validates that the configured identities can author
// mutations.
func (a *app) requireSession() error {
	if _, err := engine.NewSession(a.cfg.Owner, a.cfg.Subject); err != nil {
		_ = a.formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "mutations need an owner (--owner or config owner)", err)
	}
	return nil
}

// Close tears down the engine session and the store.
func (a *app) Close() {
	a.engine.Close()
	if err := a.closeFn(); err != nil {
		slog.Error("error closing store", "error", err)
	}
}

func applyFlagOverrides(cfg *config.Config, opts *RootOptions, cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = config.Backend(opts.Backend)
	}
	if flags.Changed("path") {
		cfg.Path = opts.Path
	}
	if flags.Changed("owner") {
		cfg.Owner = opts.Owner
	}
	if flags.Changed("subject") {
		cfg.Subject = opts.Subject
	}
}
