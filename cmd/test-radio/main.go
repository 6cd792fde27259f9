package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tidewave/melodex/internal/simulate"
	"github.com/tidewave/melodex/pkg/logger"
)

func main() {
	cfg := &simulate.Config{}

	var generateOnly bool
	flag.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "base URL of the service")
	flag.StringVar(&cfg.CatalogOut, "catalog", "catalog.json", "path the generated catalog dump is written to")
	flag.Int64Var(&cfg.Seed, "seed", 1, "RNG seed; the server must load the catalog generated with the same seed")
	flag.IntVar(&cfg.Artists, "artists", 40, "synthetic artists")
	flag.IntVar(&cfg.AlbumsPerArtist, "albums", 3, "albums per artist")
	flag.IntVar(&cfg.TracksPerAlbum, "tracks", 8, "tracks per album")
	flag.IntVar(&cfg.EmbeddingDim, "dim", 16, "embedding dimensionality")
	flag.IntVar(&cfg.Listeners, "listeners", 5, "simulated listeners")
	flag.IntVar(&cfg.PlaysPerUser, "plays", 30, "plays per listener")
	flag.IntVar(&cfg.LikesPerUser, "likes", 12, "likes per listener")
	flag.IntVar(&cfg.SavesPerUser, "saves", 4, "album saves per listener")
	flag.IntVar(&cfg.FollowsPerUser, "follows", 3, "artist follows per listener")
	flag.IntVar(&cfg.RadioPages, "pages", 5, "radio pages to paginate per seed")
	flag.IntVar(&cfg.RadioPageSize, "page-size", 20, "tracks per radio page")
	flag.DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "HTTP request timeout")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "verbose logging")
	flag.BoolVar(&generateOnly, "generate-only", false, "write the catalog dump and exit without driving the server")
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if cfg.Verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.Get()
	log.Info(ctx, "radio simulation starting",
		logger.String("url", cfg.BaseURL),
		logger.Int("gomaxprocs", runtime.GOMAXPROCS(0)),
	)

	if err := simulate.WriteCatalog(ctx, cfg); err != nil {
		log.Error(ctx, "catalog generation failed", logger.Error(err))
		os.Exit(1)
	}
	if generateOnly {
		return
	}

	stats, err := simulate.Run(ctx, cfg)
	if err != nil {
		log.Error(ctx, "simulation failed", logger.Error(err))
		os.Exit(1)
	}
	if stats.ViolationCount > 0 {
		log.Error(ctx, "simulation found invariant violations", logger.Int("count", stats.ViolationCount))
		os.Exit(1)
	}
	log.Info(ctx, "simulation passed", logger.Any("duration", stats.Duration.String()))
}
