package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/riddle-labs/bountyd/bounty-server-app/config"
	"github.com/riddle-labs/bountyd/metrics"
	apisrv "github.com/riddle-labs/bountyd/server/api"
	apimw "github.com/riddle-labs/bountyd/server/api/middleware"
	"github.com/riddle-labs/bountyd/x/arbiter"
	claimhttp "github.com/riddle-labs/bountyd/x/arbiter/http"
	"github.com/riddle-labs/bountyd/x/bounty"
	"github.com/riddle-labs/bountyd/x/payout"
	"github.com/riddle-labs/bountyd/x/verify"
)

// App represents the bounty server application
type App struct {
	cfg *config.Config
	log zerolog.Logger

	pool      *pgxpool.Pool
	apiServer *apisrv.Server

	cancel context.CancelFunc
}

// NewApp creates a new application instance
func NewApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	app := &App{
		cfg: cfg,
		log: log.With().Str("component", "app").Logger(),
	}

	if err := app.initialize(ctx, log); err != nil {
		return nil, fmt.Errorf("failed to initialize app: %w", err)
	}

	return app, nil
}

func (a *App) initialize(ctx context.Context, log zerolog.Logger) error {
	store, err := a.initializeStore(ctx, log)
	if err != nil {
		return err
	}

	arb, err := a.initializeArbiter(log, store)
	if err != nil {
		return err
	}

	a.initializeAPIServer(log, arb, store)
	return nil
}

func (a *App) initializeStore(ctx context.Context, log zerolog.Logger) (bounty.Store, error) {
	poolCfg, err := pgxpool.ParseConfig(a.cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse store dsn: %w", err)
	}
	poolCfg.MaxConns = a.cfg.Store.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to store: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping store: %w", err)
	}

	a.pool = pool
	return bounty.NewPostgresStore(pool, log), nil
}

func (a *App) initializeArbiter(log zerolog.Logger, store bounty.Store) (*arbiter.Arbiter, error) {
	verifier, err := verify.NewTurnstile(a.cfg.Verify, log)
	if err != nil {
		return nil, fmt.Errorf("initialize verifier: %w", err)
	}

	dispatcher, err := payout.NewERC20Dispatcher(a.cfg.Payout, log)
	if err != nil {
		return nil, fmt.Errorf("initialize payout dispatcher: %w", err)
	}

	arb, err := arbiter.New(arbiter.Config{
		Logger:           log,
		Store:            store,
		Verifier:         verifier,
		Dispatcher:       dispatcher,
		Metrics:          arbiter.NewMetrics(),
		DefaultAmountUSD: a.cfg.Claim.DefaultAmountUSD,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize arbiter: %w", err)
	}
	return arb, nil
}

func (a *App) initializeAPIServer(log zerolog.Logger, arb *arbiter.Arbiter, store bounty.Store) {
	srv := apisrv.NewServer(a.cfg.API, log)
	srv.Use(apimw.RequestID())
	srv.Use(apimw.RealIP())
	srv.Use(apimw.Logger(log))
	srv.Use(apimw.Recover(log))
	srv.EnableCORS()

	claimhttp.NewHandler(arb, store, log).RegisterMux(srv.Router)
	a.apiServer = srv
}

// Run starts the servers and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			a.log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
			cancel()
		case <-runCtx.Done():
		}
	}()

	if a.cfg.Metrics.Enabled {
		go a.serveMetrics(runCtx)
	}

	err := a.apiServer.Start(runCtx)

	a.pool.Close()
	a.log.Info().Msg("application stopped")
	return err
}

func (a *App) serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle(a.cfg.Metrics.Path, metrics.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Metrics.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	a.log.Info().Int("port", a.cfg.Metrics.Port).Str("path", a.cfg.Metrics.Path).Msg("metrics server starting")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		a.log.Error().Err(err).Msg("metrics server failed")
	}
}
