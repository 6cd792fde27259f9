// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults, Load(ctx) to layer file/env.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// CatalogPath points at a JSON catalog dump loaded into the in-memory
	// store at startup. Empty starts with an empty catalog.
	CatalogPath string `koanf:"catalog_path"`

	// PlayQueueSize bounds the in-memory play event queue.
	PlayQueueSize int `koanf:"play_queue_size"`

	// WorkerCount sets the number of play recording workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the play event deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxRadioLimit caps the limit accepted by the radio endpoint.
	MaxRadioLimit int `koanf:"max_radio_limit"`

	// MaxShelfLimit caps the per-shelf limit accepted by the home endpoint.
	MaxShelfLimit int `koanf:"max_shelf_limit"`

	// DistrustGenreKey and DistrustGenreID identify the provider genre whose
	// assignment is too noisy to trust when resolving a seed's category.
	DistrustGenreKey string `koanf:"distrust_genre_key"`
	DistrustGenreID  string `koanf:"distrust_genre_id"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9080",
		CatalogPath:      "",
		PlayQueueSize:    100_000,
		WorkerCount:      runtime.NumCPU() * 2,
		DedupeSize:       50_000,
		MaxRadioLimit:    100,
		MaxShelfLimit:    60,
		DistrustGenreKey: "pop",
		DistrustGenreID:  "132",
	}
}
