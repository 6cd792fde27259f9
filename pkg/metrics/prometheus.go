// Package metrics provides Prometheus metrics for the melodex discovery
// service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus metric the service emits.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Engine metrics.
	radioRequests     *prometheus.CounterVec
	shelfRequests     prometheus.Counter
	engineLatency     *prometheus.HistogramVec
	candidatePoolSize *prometheus.HistogramVec
	engineFallbacks   *prometheus.CounterVec

	// Play telemetry pipeline.
	playsRecorded        prometheus.Counter
	playsDuplicate       prometheus.Counter
	playRecordErrors     prometheus.Counter
	playQueueSize        prometheus.Gauge
	playQueueCapacity    prometheus.Gauge
	playQueueEnqueueErrs prometheus.Counter
	playWorkerCount      prometheus.Gauge

	// Catalog scale.
	catalogTracks    prometheus.Gauge
	catalogAlbums    prometheus.Gauge
	catalogArtists   prometheus.Gauge
	catalogListeners prometheus.Gauge

	// HTTP metrics.
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// globalManager is the process-wide manager backing the package helpers.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// customRegistry avoids the default Go collectors.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "melodex",
		subsystem:        "discovery",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.radioRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "radio_requests_total",
		Help:      "Total seeded-radio requests by seed type",
	}, []string{"seed_type"})

	m.shelfRequests = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "shelf_requests_total",
		Help:      "Total personalized-shelf requests",
	})

	m.engineLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "engine_latency_milliseconds",
		Help:      "Recommendation engine latency in milliseconds by mode",
		Buckets:   m.histogramBuckets,
	}, []string{"mode"})

	m.candidatePoolSize = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "candidate_pool_size",
		Help:      "Candidate pool size per ranking pass by mode",
		Buckets:   []float64{10, 50, 100, 300, 600, 1200, 2500, 5000},
	}, []string{"mode"})

	m.engineFallbacks = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "engine_fallbacks_total",
		Help:      "Times the engine degraded to a fallback path, by reason",
	}, []string{"reason"})

	m.playsRecorded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "plays_recorded_total",
		Help:      "Play events written to the listener library",
	})

	m.playsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "plays_duplicate_total",
		Help:      "Duplicate play events dropped by idempotency tracking",
	})

	m.playRecordErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "play_record_errors_total",
		Help:      "Play events that failed to persist",
	})

	m.playQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "play_queue_size",
		Help:      "Current depth of the play-event queue",
	})

	m.playQueueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "play_queue_capacity",
		Help:      "Configured capacity of the play-event queue",
	})

	m.playQueueEnqueueErrs = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "play_queue_enqueue_errors_total",
		Help:      "Play events rejected at enqueue (backpressure or closed)",
	})

	m.playWorkerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "play_worker_count",
		Help:      "Number of play-recording workers",
	})

	m.catalogTracks = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "catalog_tracks",
		Help:      "Tracks in the catalog store",
	})

	m.catalogAlbums = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "catalog_albums",
		Help:      "Albums in the catalog store",
	})

	m.catalogArtists = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "catalog_artists",
		Help:      "Artists in the catalog store",
	})

	m.catalogListeners = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "catalog_listeners",
		Help:      "Listeners with library state",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
}

// GetRegistry returns the registry backing the global manager, for /healthz.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Package-level helpers delegating to the global manager.

func RecordRadioRequest(seedType string) { globalManager.radioRequests.WithLabelValues(seedType).Inc() }
func RecordShelfRequest()               { globalManager.shelfRequests.Inc() }

func ObserveEngineLatency(mode string, ms float64) {
	globalManager.engineLatency.WithLabelValues(mode).Observe(ms)
}

func ObserveCandidatePoolSize(mode string, n int) {
	globalManager.candidatePoolSize.WithLabelValues(mode).Observe(float64(n))
}

func RecordEngineFallback(reason string) {
	globalManager.engineFallbacks.WithLabelValues(reason).Inc()
}

func RecordPlayRecorded()          { globalManager.playsRecorded.Inc() }
func RecordPlayDuplicate()         { globalManager.playsDuplicate.Inc() }
func RecordPlayRecordError()       { globalManager.playRecordErrors.Inc() }
func RecordPlayQueueEnqueueError() { globalManager.playQueueEnqueueErrs.Inc() }

func UpdatePlayQueueSize(n int)     { globalManager.playQueueSize.Set(float64(n)) }
func UpdatePlayQueueCapacity(n int) { globalManager.playQueueCapacity.Set(float64(n)) }
func UpdatePlayWorkerCount(n int)   { globalManager.playWorkerCount.Set(float64(n)) }

// UpdateCatalogCounts refreshes the catalog scale gauges.
func UpdateCatalogCounts(tracks, albums, artists, listeners int) {
	globalManager.catalogTracks.Set(float64(tracks))
	globalManager.catalogAlbums.Set(float64(albums))
	globalManager.catalogArtists.Set(float64(artists))
	globalManager.catalogListeners.Set(float64(listeners))
}

func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}
