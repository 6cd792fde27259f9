package simulate

import (
	"context"
	"fmt"

	"github.com/tidewave/melodex/pkg/logger"
)

// violations accumulates invariant failures across one simulation run.
type violations struct {
	items []string
}

func (v *violations) addf(format string, args ...any) {
	v.items = append(v.items, fmt.Sprintf(format, args...))
}

func (v *violations) report(ctx context.Context) int {
	for _, item := range v.items {
		logger.Get().Error(ctx, "invariant violation", logger.String("detail", item))
	}
	return len(v.items)
}

// checkNoRepeats verifies radio pagination never re-serves a track.
func checkNoRepeats(v *violations, seed string, pages [][]trackDTO) {
	seen := make(map[string]int)
	for pageNo, page := range pages {
		for _, t := range page {
			if prev, dup := seen[t.ID]; dup {
				v.addf("radio seed %s: track %s repeated on page %d (first on page %d)", seed, t.ID, pageNo, prev)
				continue
			}
			seen[t.ID] = pageNo
		}
	}
}

// checkArtistRuns verifies no page carries a same-artist run longer than cap.
func checkArtistRuns(v *violations, seed string, pages [][]trackDTO, runCap int) {
	for pageNo, page := range pages {
		run, runArtist := 0, ""
		for _, t := range page {
			if t.ArtistID == runArtist {
				run++
			} else {
				runArtist, run = t.ArtistID, 1
			}
			if run > runCap {
				v.addf("radio seed %s: page %d has a same-artist run of %d (cap %d, artist %s)",
					seed, pageNo, run, runCap, t.ArtistID)
			}
		}
	}
}

// checkLikedThrottle verifies the home track shelf carries at most
// max(1, round(len * 0.10)) already-liked tracks.
func checkLikedThrottle(v *violations, listener string, shelf []trackDTO, liked map[string]struct{}) {
	if len(shelf) == 0 {
		return
	}
	maxLiked := (len(shelf) + 5) / 10 // round(len * 0.10)
	if maxLiked < 1 {
		maxLiked = 1
	}
	count := 0
	for _, t := range shelf {
		if _, ok := liked[t.ID]; ok {
			count++
		}
	}
	if count > maxLiked {
		v.addf("listener %s: shelf of %d holds %d liked tracks (cap %d)", listener, len(shelf), count, maxLiked)
	}
}

// checkShelfSizes verifies every shelf respects its requested size.
func checkShelfSizes(v *violations, listener string, home *homeResponse, trackLimit, albumLimit, artistLimit int) {
	if len(home.Tracks) > trackLimit {
		v.addf("listener %s: track shelf %d exceeds limit %d", listener, len(home.Tracks), trackLimit)
	}
	if len(home.Albums) > albumLimit {
		v.addf("listener %s: album shelf %d exceeds limit %d", listener, len(home.Albums), albumLimit)
	}
	if len(home.Artists) > artistLimit {
		v.addf("listener %s: artist shelf %d exceeds limit %d", listener, len(home.Artists), artistLimit)
	}
}
