package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	httpadapter "github.com/randomtoy/wheel-go/internal/adapters/http"
	"github.com/randomtoy/wheel-go/internal/adapters/llm/openrouter"
	"github.com/randomtoy/wheel-go/internal/adapters/memory"
	"github.com/randomtoy/wheel-go/internal/adapters/postgres"
	"github.com/randomtoy/wheel-go/internal/adapters/presets"
	"github.com/randomtoy/wheel-go/internal/adapters/sqlite"
	"github.com/randomtoy/wheel-go/internal/app"
	"github.com/randomtoy/wheel-go/internal/config"
	"github.com/randomtoy/wheel-go/internal/domain"
	"github.com/randomtoy/wheel-go/internal/ports"
)

// storage bundles the store ports backed by one engine.
type storage struct {
	wheels  ports.WheelStore
	history ports.HistoryStore
	tx      ports.TxManager
	closer  io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func openStorage(ctx context.Context, cfg config.Config) (storage, error) {
	switch cfg.Storage {
	case config.StorageSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return storage{}, err
		}
		return storage{wheels: s, history: s, tx: s, closer: s}, nil
	case config.StoragePostgres:
		s, err := postgres.Open(ctx, cfg.PGDSN)
		if err != nil {
			return storage{}, err
		}
		m, err := s.Manager()
		if err != nil {
			s.Close()
			return storage{}, err
		}
		return storage{wheels: s, history: s, tx: m, closer: closerFunc(func() error { s.Close(); return nil })}, nil
	default:
		s := memory.NewStore()
		return storage{wheels: s, history: s, tx: s, closer: closerFunc(func() error { return nil })}, nil
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", cfg.Storage, err)
	}
	defer store.closer.Close()

	var rng domain.RandomSource = domain.NewSecureSource(nil)
	if cfg.SpinSeed != nil {
		logger.Warn("SPIN_SEED set, spins are reproducible and not cryptographically secure", "seed", *cfg.SpinSeed)
		rng = domain.NewSeededSource(*cfg.SpinSeed)
	}

	var facts ports.FactTeller
	if cfg.FactsEnabled() {
		facts = openrouter.NewClient(
			&http.Client{Timeout: cfg.LLMTimeout},
			cfg.OpenRouterAPIKey,
			cfg.OpenRouterBaseURL,
			cfg.LLMModel,
			cfg.LLMFallbackModels,
			logger,
		)
	} else {
		logger.Info("OPENROUTER_API_KEY not set, fun facts disabled")
	}

	svc := app.NewWheelService(app.Deps{
		Wheels:  store.wheels,
		History: store.history,
		Tx:      store.tx,
		Presets: presets.NewEmbeddedStore(),
		Random:  rng,
		Facts:   facts,
		Logger:  logger,
	}, app.Options{
		Defaults: domain.Settings{
			SpinConfig: domain.SpinConfig{
				MinFullRotations:       cfg.MinFullRotations,
				PreventImmediateRepeat: cfg.PreventImmediateRepeat,
			},
			PointerOffsetDeg: cfg.PointerOffsetDeg,
			DurationMS:       int(cfg.SpinDuration.Milliseconds()),
		},
		MaxItems:      cfg.MaxItems,
		MaxItemLength: cfg.MaxItemLength,
		HistoryLimit:  cfg.HistoryLimit,
		DefaultPreset: presets.DefaultID,
		StaleGrace:    cfg.StaleSpinGrace,
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(httpadapter.RequestIDMiddleware())
	e.Use(httpadapter.LoggingMiddleware(logger))
	e.Use(httpadapter.CORSMiddleware(cfg.CORSOrigins))

	httpadapter.NewHandler(svc, logger).Register(e)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.HTTPAddr, "storage", cfg.Storage)
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
