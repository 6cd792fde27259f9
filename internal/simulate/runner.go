package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	repository "github.com/tidewave/melodex/internal/adapters/repository"
	"github.com/tidewave/melodex/pkg/logger"
)

const (
	catalogFilePermission = 0o600
	healthCheckAttempts   = 30
	healthCheckInterval   = time.Second
)

// WriteCatalog generates a synthetic catalog and writes the dump to
// cfg.CatalogOut for the server to load at startup.
func WriteCatalog(ctx context.Context, cfg *Config) error {
	dump := GenerateCatalog(ctx, cfg)

	data, err := json.MarshalIndent(dump, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	if err := os.WriteFile(cfg.CatalogOut, data, catalogFilePermission); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}

	logger.Get().Info(ctx, "catalog written", logger.String("path", cfg.CatalogOut))
	return nil
}

// Run drives a full simulation against a live server: listener activity,
// radio pagination, home shelves, and invariant verification.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	defer func() {
		stats.EndTime = time.Now()
		stats.Duration = stats.EndTime.Sub(stats.StartTime)
	}()

	c := newClient(cfg.BaseURL, cfg.Timeout)
	if err := waitHealthy(ctx, c); err != nil {
		return stats, err
	}

	// The generator is deterministic per seed, so the driver regenerates
	// the same catalog the server was booted with.
	dump := GenerateCatalog(ctx, cfg)
	stats.TracksGenerated = len(dump.Tracks)
	if len(dump.Tracks) == 0 {
		return stats, fmt.Errorf("generated catalog is empty")
	}

	seedVal := cfg.Seed
	if seedVal == 0 {
		seedVal = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seedVal + 1)) //nolint:gosec // simulation only

	v := &violations{}

	likedByListener, err := simulateListeners(ctx, c, cfg, dump, rng, stats)
	if err != nil {
		return stats, err
	}

	if err := driveRadio(ctx, c, cfg, dump, rng, stats, v); err != nil {
		return stats, err
	}
	if err := driveShelves(ctx, c, cfg, likedByListener, stats, v); err != nil {
		return stats, err
	}

	stats.ViolationCount = v.report(ctx)
	logger.Get().Info(ctx, "simulation finished",
		logger.Int("plays", stats.PlaysSubmitted),
		logger.Int("radioPages", stats.RadioPagesFetched),
		logger.Int("shelves", stats.ShelvesFetched),
		logger.Int("violations", stats.ViolationCount),
	)
	return stats, nil
}

// waitHealthy polls /healthz until the server answers.
func waitHealthy(ctx context.Context, c *client) error {
	for i := 0; i < healthCheckAttempts; i++ {
		status, err := c.getJSON(ctx, "/healthz", nil)
		if err == nil && status == http.StatusOK {
			logger.Get().Info(ctx, "service is healthy")
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(healthCheckInterval):
		}
	}
	return fmt.Errorf("service did not become healthy")
}

// simulateListeners submits plays and library writes for each synthetic
// listener, biased toward one genre so shelves have a preference to find.
// Returns each listener's liked track ids for throttle verification.
func simulateListeners(
	ctx context.Context,
	c *client,
	cfg *Config,
	dump *repository.CatalogDump,
	rng *rand.Rand,
	stats *Stats,
) (map[string]map[string]struct{}, error) {
	liked := make(map[string]map[string]struct{}, cfg.Listeners)

	for l := 0; l < cfg.Listeners; l++ {
		listenerID := fmt.Sprintf("listener-%03d", l)
		liked[listenerID] = make(map[string]struct{})

		// Bias this listener toward tracks of one genre.
		genre := catalogGenres[l%len(catalogGenres)]
		var biased []int
		for i := range dump.Tracks {
			if dump.Tracks[i].GenreKey == genre {
				biased = append(biased, i)
			}
		}
		if len(biased) == 0 {
			continue
		}
		pick := func() int { return biased[rng.Intn(len(biased))] }

		for p := 0; p < cfg.PlaysPerUser; p++ {
			track := dump.Tracks[pick()]
			req := playRequest{
				EventID:    uuid.New().String(),
				ListenerID: listenerID,
				TrackID:    track.ID,
				PlayedAt:   time.Now().Add(-time.Duration(rng.Intn(72)) * time.Hour).Format(time.RFC3339),
			}
			var ack ackResponse
			status, err := c.postJSON(ctx, "/v1/plays", req, &ack)
			stats.PlaysSubmitted++
			switch {
			case err != nil || status >= http.StatusBadRequest:
				stats.PlaysFailed++
			case ack.Duplicate:
				stats.PlaysDuplicate++
			}
		}

		for i := 0; i < cfg.LikesPerUser; i++ {
			track := dump.Tracks[pick()]
			if _, err := c.postJSON(ctx, "/v1/library/likes", libraryRequest{ListenerID: listenerID, ID: track.ID}, nil); err != nil {
				return nil, err
			}
			liked[listenerID][track.ID] = struct{}{}
		}
		for i := 0; i < cfg.SavesPerUser; i++ {
			track := dump.Tracks[pick()]
			if _, err := c.postJSON(ctx, "/v1/library/albums", libraryRequest{ListenerID: listenerID, ID: track.AlbumID}, nil); err != nil {
				return nil, err
			}
		}
		for i := 0; i < cfg.FollowsPerUser; i++ {
			track := dump.Tracks[pick()]
			if _, err := c.postJSON(ctx, "/v1/library/artists", libraryRequest{ListenerID: listenerID, ID: track.ArtistID}, nil); err != nil {
				return nil, err
			}
		}
	}
	return liked, nil
}

// driveRadio paginates track- and artist-seeded radio and verifies the
// no-repeat and artist-run invariants.
func driveRadio(
	ctx context.Context,
	c *client,
	cfg *Config,
	dump *repository.CatalogDump,
	rng *rand.Rand,
	stats *Stats,
	v *violations,
) error {
	seeds := []struct {
		kind   string
		id     string
		runCap int
	}{
		{"track", dump.Tracks[rng.Intn(len(dump.Tracks))].ID, 2},
		{"artist", dump.Artists[rng.Intn(len(dump.Artists))].ID, 1},
	}

	for _, sd := range seeds {
		var (
			pages   [][]trackDTO
			exclude []string
		)
		for p := 0; p < cfg.RadioPages; p++ {
			req := radioRequest{
				SeedType:        sd.kind,
				SeedID:          sd.id,
				ExcludeTrackIDs: exclude,
				Limit:           cfg.RadioPageSize,
			}
			var resp radioResponse
			status, err := c.postJSON(ctx, "/v1/radio", req, &resp)
			if err != nil {
				return err
			}
			if status != http.StatusOK {
				return fmt.Errorf("radio returned status %d", status)
			}
			stats.RadioPagesFetched++
			stats.RadioTracksSeen += len(resp.Tracks)

			pages = append(pages, resp.Tracks)
			for _, t := range resp.Tracks {
				exclude = append(exclude, t.ID)
			}
			if len(resp.Tracks) == 0 {
				break
			}
		}

		seedName := sd.kind + ":" + sd.id
		checkNoRepeats(v, seedName, pages)
		checkArtistRuns(v, seedName, pages, sd.runCap)
	}
	return nil
}

// driveShelves fetches home shelves for each simulated listener and checks
// the liked throttle and shelf sizes.
func driveShelves(
	ctx context.Context,
	c *client,
	cfg *Config,
	liked map[string]map[string]struct{},
	stats *Stats,
	v *violations,
) error {
	const (
		trackLimit  = 20
		albumLimit  = 18
		artistLimit = 18
	)

	for listenerID, likedSet := range liked {
		path := fmt.Sprintf("/v1/home?listener_id=%s&track_limit=%d&album_limit=%d&artist_limit=%d",
			listenerID, trackLimit, albumLimit, artistLimit)
		var home homeResponse
		status, err := c.getJSON(ctx, path, &home)
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			return fmt.Errorf("home returned status %d for %s", status, listenerID)
		}
		stats.ShelvesFetched++

		checkShelfSizes(v, listenerID, &home, trackLimit, albumLimit, artistLimit)
		checkLikedThrottle(v, listenerID, home.Tracks, likedSet)
	}
	return nil
}
