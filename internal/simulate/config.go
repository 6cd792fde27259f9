package simulate

import "time"

// Config holds configuration for the radio simulation run.
type Config struct {
	BaseURL string // Base URL of the service

	// Catalog generation shape.
	Artists         int
	AlbumsPerArtist int
	TracksPerAlbum  int
	EmbeddingDim    int
	CatalogOut      string // File the generated catalog dump is written to
	Seed            int64  // RNG seed; zero means time-based

	// Listener simulation shape.
	Listeners      int
	PlaysPerUser   int
	LikesPerUser   int
	SavesPerUser   int
	FollowsPerUser int

	// Radio drive shape.
	RadioPages    int
	RadioPageSize int

	Timeout time.Duration // HTTP request timeout
	Verbose bool
}

// Stats holds simulation statistics.
type Stats struct {
	TracksGenerated int
	PlaysSubmitted  int
	PlaysDuplicate  int
	PlaysFailed     int

	RadioPagesFetched int
	RadioTracksSeen   int
	ShelvesFetched    int

	ViolationCount int

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}
