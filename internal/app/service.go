// Package service provides the core business service that implements
// the dependencies required by the HTTP API: the recommendation engines
// plus the play-telemetry ingestion pipeline.
package service

import (
	"context"
	"math/rand"
	"sync"
	"time"

	playqueue "github.com/tidewave/melodex/internal/adapters/mq/queue"
	workerpool "github.com/tidewave/melodex/internal/adapters/mq/worker"
	repository "github.com/tidewave/melodex/internal/adapters/repository"
	"github.com/tidewave/melodex/internal/domain/dedupe"
	"github.com/tidewave/melodex/internal/domain/genre"
	"github.com/tidewave/melodex/internal/domain/model"
	"github.com/tidewave/melodex/internal/domain/scoring"
	"github.com/tidewave/melodex/pkg/logger"
	"github.com/tidewave/melodex/pkg/metrics"
)

// Service wires the recommendation engines to the catalog store and runs
// the play ingestion pipeline.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	deduper dedupe.Deduper
	queue   playqueue.Queue
	pool    *workerpool.Pool
	scorer  *scoring.MetadataScorer
	graph   *genre.Graph

	// Configuration
	workerCount int
	queueSize   int
	dedupeSize  int

	// DistrustedGenreKey/ID identify the provider genre whose precomputed
	// radio key is known to be a poisoned ingestion default.
	distrustGenreKey string
	distrustGenreID  string

	// Test seams
	now func() time.Time
	rng *rand.Rand

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of play recording workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the play event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the play deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithScorer replaces the metadata scorer. Tests use it to disable jitter.
func WithScorer(sc *scoring.MetadataScorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// WithDistrustedGenre overrides which provider genre key/id pair is treated
// as an untrusted ingestion default during radio category resolution.
func WithDistrustedGenre(key, id string) Option {
	return func(s *Service) {
		s.distrustGenreKey = key
		s.distrustGenreID = id
	}
}

// WithClock injects the time source used for recency decay. Tests use it to
// pin "now".
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a Service backed by the given store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:            store,
		scorer:           scoring.NewMetadataScorer(),
		graph:            genre.NewGraph(),
		workerCount:      0, // pool derives a CPU-based default
		queueSize:        100_000,
		dedupeSize:       50_000,
		distrustGenreKey: "pop",
		distrustGenreID:  "132",
		now:              time.Now,
		rng:              rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // shuffling, not security
		logger:           logger.Get().Named("service"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start brings up the ingestion pipeline: deduper, queue, worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = playqueue.NewInMemoryQueue(playqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.store)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "service started",
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains the pipeline and shuts the workers down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	if err := s.queue.Close(); err != nil {
		s.logger.Warn(context.Background(), "closing play queue", logger.Error(err))
	}
	s.pool.Stop()
	s.started = false
	s.logger.Info(context.Background(), "service stopped")
}

// SeenAndRecord reports whether the play event id was already ingested,
// recording it when not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordPlayDuplicate()
	}
	return seen
}

// Unrecord forgets a play event id so the client can retry it.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Enqueue hands a play event to the recording pipeline. Returns false when
// the queue is saturated or the service is not running.
func (s *Service) Enqueue(ctx context.Context, e model.PlayEvent) bool {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return false
	}
	return s.queue.Enqueue(ctx, e)
}

// LikeTrack records a track into the listener's liked collection.
func (s *Service) LikeTrack(ctx context.Context, listenerID, trackID string) error {
	return s.store.LikeTrack(ctx, listenerID, trackID)
}

// SaveAlbum records an album into the listener's saved collection.
func (s *Service) SaveAlbum(ctx context.Context, listenerID, albumID string) error {
	return s.store.SaveAlbum(ctx, listenerID, albumID)
}

// FollowArtist records an artist follow for the listener.
func (s *Service) FollowArtist(ctx context.Context, listenerID, artistID string) error {
	return s.store.FollowArtist(ctx, listenerID, artistID)
}

// GetStats returns operational counters for the stats endpoint.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":      s.started,
		"worker_count": s.workerCount,
		"queue_size":   s.queueSize,
		"dedupe_size":  s.dedupeSize,
	}
	if s.started {
		stats["queue_len"] = s.queue.Len(context.Background())
		stats["dedupe_len"] = s.deduper.Size()
	}
	return stats
}
