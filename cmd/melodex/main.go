package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tidewave/melodex/internal/adapters/http/api"
	"github.com/tidewave/melodex/internal/adapters/http/swagger"
	repository "github.com/tidewave/melodex/internal/adapters/repository"
	app "github.com/tidewave/melodex/internal/app"
	"github.com/tidewave/melodex/internal/config"
	"github.com/tidewave/melodex/pkg/logger"
	"github.com/tidewave/melodex/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	catalogMetricsInterval = 10 * time.Second
)

func main() {
	// The custom registry carries only domain metrics; drop the default
	// Go and process collectors to avoid duplicates.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env).
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input).
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		os.Stderr.WriteString("failed to open catalog store: " + err.Error() + "\n")
		return
	}

	svc := app.New(store,
		app.WithLogger(log),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.PlayQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithDistrustedGenre(cfg.DistrustGenreKey, cfg.DistrustGenreID),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	go catalogMetricsUpdater(ctx, store)

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	apiServer := api.NewServer(svc, svc, cfg.MaxRadioLimit, cfg.MaxShelfLimit)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// openStore loads the catalog dump when configured, otherwise starts empty.
func openStore(ctx context.Context, cfg *config.Config) (*repository.MemoryStore, error) {
	if cfg.CatalogPath == "" {
		logger.Get().Warn(ctx, "no catalog_path configured; starting with an empty catalog")
		return repository.NewMemoryStore(), nil
	}

	store, err := repository.LoadCatalogFile(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	tracks, albums, artists, _ := store.Counts()
	logger.Get().Info(ctx, "catalog loaded",
		logger.String("path", cfg.CatalogPath),
		logger.Int("tracks", tracks),
		logger.Int("albums", albums),
		logger.Int("artists", artists),
	)
	return store, nil
}

// catalogMetricsUpdater keeps the catalog gauges current.
func catalogMetricsUpdater(ctx context.Context, store *repository.MemoryStore) {
	ticker := time.NewTicker(catalogMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tracks, albums, artists, listeners := store.Counts()
			metrics.UpdateCatalogCounts(tracks, albums, artists, listeners)
		}
	}
}
