package service

import (
	"context"
	"errors"
	"sort"

	repository "github.com/tidewave/melodex/internal/adapters/repository"
	"github.com/tidewave/melodex/internal/domain/genre"
	"github.com/tidewave/melodex/internal/domain/model"
	"github.com/tidewave/melodex/internal/domain/seed"
	"github.com/tidewave/melodex/internal/domain/vector"
	"github.com/tidewave/melodex/pkg/metrics"
)

// Radio tuning. These are tuned values; change only with re-tuning evidence.
const (
	// Retrieval tier caps bound catalog reads per request.
	radioArtistTierCap   = 200
	radioCategoryTierCap = 600
	radioNeighborTierCap = 600
	radioWidenedCap      = 800

	// Top-up target: max(limit * radioTopUpPerLimit, radioTopUpFloor).
	radioTopUpPerLimit = 25
	radioTopUpFloor    = 300

	// Genre neighborhood threshold shared by retrieval and gating.
	radioGenreThreshold = 0.45

	// Score blend over min-max normalized channels.
	radioMetadataBlend  = 0.6
	radioEmbeddingBlend = 0.4

	// Gating floors: strict for the first accepted slice, relaxed after.
	radioGateStrictFloor = 0.45
	radioGateStrictCount = 25
	radioGateRelaxFloor  = 0.35

	// Diversification: consecutive-run cap and overall per-artist cap.
	radioRunCap           = 2
	radioArtistSeedRunCap = 1
	radioPerArtistCap     = 5

	// Bounded samples backing album/artist majority-genre evidence.
	radioAlbumEvidenceCap  = 60
	radioArtistEvidenceCap = 120
)

// scoredTrack pairs a candidate with its per-channel scores for one pass.
type scoredTrack struct {
	track model.Track

	meta     float64
	embed    float64
	hasEmbed bool

	combined float64
}

// Radio produces an ordered page of radio tracks for the given seed.
// excludeIDs carries every track already served to this radio session;
// previously served tracks never reappear. An unresolvable seed yields an
// empty result, not an error.
func (s *Service) Radio(ctx context.Context, sd seed.Seed, excludeIDs []string, limit int) ([]model.Track, error) {
	metrics.RecordRadioRequest(sd.Kind.String())
	start := s.now()
	defer func() {
		metrics.ObserveEngineLatency("radio", float64(s.now().Sub(start).Milliseconds()))
	}()

	if limit <= 0 {
		return nil, nil
	}

	prof, err := seed.Build(ctx, s.store, sd)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.RecordEngineFallback("seed_not_found")
			return []model.Track{}, nil
		}
		return nil, err
	}

	exclude := make(map[string]struct{}, len(excludeIDs)+1)
	for _, id := range excludeIDs {
		if id != "" {
			exclude[id] = struct{}{}
		}
	}
	if sd.Kind == seed.KindTrack && prof.Track != nil {
		exclude[prof.Track.ID] = struct{}{}
	}

	resolved := s.resolveCategory(ctx, prof)
	allow := s.allowedGenreSet(resolved)

	pool, err := s.retrieveRadioPool(ctx, prof, resolved, allow, exclude, limit)
	if err != nil {
		return nil, err
	}
	metrics.ObserveCandidatePoolSize("radio", len(pool))
	if len(pool) == 0 {
		metrics.RecordEngineFallback("empty_radio_pool")
		return []model.Track{}, nil
	}

	scored, err := s.scoreRadioPool(ctx, pool, prof, sd.Kind)
	if err != nil {
		return nil, err
	}
	normalizeAndBlend(scored)

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].combined > scored[j].combined
	})

	return s.selectRadioTracks(scored, prof, resolved, allow, sd.Kind, limit), nil
}

// resolveCategory walks the priority-ordered evidence chain for the genre
// anchoring retrieval and gating. Empty means no usable evidence.
func (s *Service) resolveCategory(ctx context.Context, prof *seed.Profile) string {
	if key, ok := prof.RadioGenreKey(); ok && !s.distrustedGenreKey(prof, key) {
		return genre.Normalize(key)
	}

	if slug, ok := prof.CategorySlug(); ok && !genre.IsGenericCategory(slug) {
		return genre.Normalize(slug)
	}

	if prof.Album != nil && prof.Album.Genre != "" && !genre.IsGenericCategory(prof.Album.Genre) {
		return genre.Normalize(prof.Album.Genre)
	}

	if albumID, ok := prof.AlbumID(); ok {
		if key := s.majorityGenreKey(ctx, albumKind, albumID); key != "" {
			return key
		}
	}

	if artistID, ok := prof.ArtistID(); ok {
		if key := s.majorityGenreKey(ctx, artistKind, artistID); key != "" {
			return key
		}
	}

	return ""
}

// distrustedGenreKey reports whether the seed's precomputed radio key is the
// known poisoned ingestion default: the distrusted key backed only by a
// generic category placeholder and the distrusted provider id.
func (s *Service) distrustedGenreKey(prof *seed.Profile, key string) bool {
	if genre.Normalize(key) != genre.Normalize(s.distrustGenreKey) {
		return false
	}
	if slug, ok := prof.CategorySlug(); ok && !genre.IsGenericCategory(slug) {
		return false
	}
	id, _ := prof.GenreID()
	return id == s.distrustGenreID
}

type evidenceKind int

const (
	albumKind evidenceKind = iota
	artistKind
)

// majorityGenreKey votes over a bounded sample of an album's or artist's
// tracks and returns the most common non-empty radio genre key.
func (s *Service) majorityGenreKey(ctx context.Context, kind evidenceKind, id string) string {
	var (
		tracks []model.Track
		err    error
	)
	switch kind {
	case albumKind:
		tracks, err = s.store.TracksByAlbum(ctx, id, radioAlbumEvidenceCap)
	case artistKind:
		tracks, err = s.store.TracksByArtist(ctx, id, radioArtistEvidenceCap)
	}
	if err != nil || len(tracks) == 0 {
		return ""
	}

	counts := make(map[string]int)
	for i := range tracks {
		key := genre.Normalize(tracks[i].GenreKey)
		if key == "" {
			continue
		}
		counts[key]++
	}

	best, bestCount := "", 0
	for key, n := range counts {
		if n > bestCount || (n == bestCount && key < best) {
			best, bestCount = key, n
		}
	}
	return best
}

// allowedGenreSet is the resolved category plus its graph neighborhood.
// Empty when no category resolved.
func (s *Service) allowedGenreSet(resolved string) map[string]struct{} {
	if resolved == "" {
		return nil
	}
	allow := map[string]struct{}{resolved: {}}
	for _, key := range s.graph.Neighbors(resolved, radioGenreThreshold) {
		allow[key] = struct{}{}
	}
	return allow
}

// retrieveRadioPool assembles the deduplicated candidate pool from tiered
// catalog queries, widening and topping up as needed.
func (s *Service) retrieveRadioPool(
	ctx context.Context,
	prof *seed.Profile,
	resolved string,
	allow map[string]struct{},
	exclude map[string]struct{},
	limit int,
) ([]model.Track, error) {
	filter := repository.TrackFilter{Exclude: exclude, RequireAudio: true}

	var pool []model.Track
	seen := make(map[string]struct{})
	merge := func(tracks []model.Track) {
		for i := range tracks {
			if _, dup := seen[tracks[i].ID]; dup {
				continue
			}
			seen[tracks[i].ID] = struct{}{}
			pool = append(pool, tracks[i])
		}
	}

	// Tier 1: the seed's own artist.
	if artistID, ok := prof.ArtistID(); ok {
		tracks, err := s.store.TracksByArtists(ctx, []string{artistID}, filter, radioArtistTierCap)
		if err != nil {
			return nil, err
		}
		merge(tracks)
	}

	// Tier 2: the resolved category, when informative.
	if resolved != "" && !genre.IsGenericCategory(resolved) {
		tracks, err := s.store.TracksByCategory(ctx, resolved, filter, radioCategoryTierCap)
		if err != nil {
			return nil, err
		}
		merge(tracks)
	}

	// Tier 3: graph neighbors of the resolved category, by radio genre key.
	// The resolved key itself rides along since tier 2 matched on the
	// category slug, which is a distinct field.
	if len(allow) > 0 {
		tracks, err := s.store.TracksByGenreKeys(ctx, setToSlice(allow), filter, radioNeighborTierCap)
		if err != nil {
			return nil, err
		}
		merge(tracks)
	}

	// Widen when everything above came back empty.
	if len(pool) == 0 {
		metrics.RecordEngineFallback("radio_pool_widened")
		widened, err := s.widenedRadioSlice(ctx, allow, filter, radioWidenedCap)
		if err != nil {
			return nil, err
		}
		merge(widened)
	}

	// Top up so diversification has enough material to choose from.
	target := limit * radioTopUpPerLimit
	if target < radioTopUpFloor {
		target = radioTopUpFloor
	}
	if len(pool) < target {
		topUp, err := s.widenedRadioSlice(ctx, allow, filter, target-len(pool))
		if err != nil {
			return nil, err
		}
		merge(topUp)
	}

	return pool, nil
}

// widenedRadioSlice pulls genre-tagged material restricted to the allow set
// when one exists, or any genre-tagged track otherwise.
func (s *Service) widenedRadioSlice(
	ctx context.Context,
	allow map[string]struct{},
	filter repository.TrackFilter,
	n int,
) ([]model.Track, error) {
	if n <= 0 {
		return nil, nil
	}
	if len(allow) > 0 {
		return s.store.TracksByGenreKeys(ctx, setToSlice(allow), filter, n)
	}
	widened := filter
	widened.RequireGenre = true
	return s.store.RandomTracks(ctx, n, widened)
}

// scoreRadioPool computes the metadata and embedding channels for every
// candidate. Candidate albums are resolved in one batch for the release-year
// component.
func (s *Service) scoreRadioPool(ctx context.Context, pool []model.Track, prof *seed.Profile, kind seed.Kind) ([]scoredTrack, error) {
	albumIDs := make([]string, 0, len(pool))
	wanted := make(map[string]struct{})
	for i := range pool {
		if pool[i].AlbumID == "" {
			continue
		}
		if _, ok := wanted[pool[i].AlbumID]; ok {
			continue
		}
		wanted[pool[i].AlbumID] = struct{}{}
		albumIDs = append(albumIDs, pool[i].AlbumID)
	}

	albums := make(map[string]*model.Album, len(albumIDs))
	if len(albumIDs) > 0 {
		rows, err := s.store.AlbumsByIDs(ctx, albumIDs)
		if err != nil {
			return nil, err
		}
		for i := range rows {
			albums[rows[i].ID] = &rows[i]
		}
	}

	seedVec := prof.Embedding()
	scored := make([]scoredTrack, 0, len(pool))
	for i := range pool {
		st := scoredTrack{track: pool[i]}
		st.meta = s.scorer.Score(&pool[i], albums[pool[i].AlbumID], prof, kind)
		if len(seedVec) > 0 && pool[i].HasEmbedding() {
			st.embed = vector.Cosine(seedVec, pool[i].Embedding)
			st.hasEmbed = true
		}
		scored = append(scored, st)
	}
	return scored, nil
}

// normalizeAndBlend min-max normalizes each score channel independently and
// combines them. A channel with zero range maps every present value to 0.5;
// absent embedding values contribute 0.
func normalizeAndBlend(scored []scoredTrack) {
	if len(scored) == 0 {
		return
	}

	metaMin, metaMax := scored[0].meta, scored[0].meta
	embedMin, embedMax := 0.0, 0.0
	embedSeen := false
	for i := range scored {
		if scored[i].meta < metaMin {
			metaMin = scored[i].meta
		}
		if scored[i].meta > metaMax {
			metaMax = scored[i].meta
		}
		if !scored[i].hasEmbed {
			continue
		}
		if !embedSeen {
			embedMin, embedMax = scored[i].embed, scored[i].embed
			embedSeen = true
			continue
		}
		if scored[i].embed < embedMin {
			embedMin = scored[i].embed
		}
		if scored[i].embed > embedMax {
			embedMax = scored[i].embed
		}
	}

	for i := range scored {
		meta := minMax(scored[i].meta, metaMin, metaMax)
		embed := 0.0
		if scored[i].hasEmbed {
			embed = minMax(scored[i].embed, embedMin, embedMax)
		}
		scored[i].combined = radioMetadataBlend*meta + radioEmbeddingBlend*embed
	}
}

func minMax(v, lo, hi float64) float64 {
	if hi == lo {
		return 0.5
	}
	return (v - lo) / (hi - lo)
}

// selectRadioTracks walks the score-ordered candidates applying the genre
// gate and the artist diversification caps.
func (s *Service) selectRadioTracks(
	scored []scoredTrack,
	prof *seed.Profile,
	resolved string,
	allow map[string]struct{},
	kind seed.Kind,
	limit int,
) []model.Track {
	seedArtistID, _ := prof.ArtistID()

	runCap := radioRunCap
	if kind == seed.KindArtist {
		runCap = radioArtistSeedRunCap
	}

	// A mono-artist pool would starve under the caps; disable them.
	uniqueArtists := make(map[string]struct{})
	for i := range scored {
		uniqueArtists[scored[i].track.ArtistID] = struct{}{}
		if len(uniqueArtists) > 1 {
			break
		}
	}
	capsEnabled := len(uniqueArtists) > 1

	out := make([]model.Track, 0, limit)
	artistCounts := make(map[string]int)
	runArtist := ""
	runLen := 0

	for i := range scored {
		t := &scored[i].track

		if !s.passesGenreGate(t, seedArtistID, resolved, allow, len(out)) {
			continue
		}

		if capsEnabled {
			if runArtist == t.ArtistID && runLen >= runCap {
				continue
			}
			if artistCounts[t.ArtistID] >= radioPerArtistCap {
				continue
			}
		}

		out = append(out, *t)
		artistCounts[t.ArtistID]++
		if runArtist == t.ArtistID {
			runLen++
		} else {
			runArtist = t.ArtistID
			runLen = 1
		}

		if len(out) >= limit {
			break
		}
	}

	return out
}

// passesGenreGate keeps a candidate when it shares the seed's artist, when
// its genre key sits in the allow set, or when its similarity to the
// resolved category clears the floor for the current fill level. Candidates
// with no genre key fail unless the same-artist override applies. With no
// resolved category at all there is nothing to gate against.
func (s *Service) passesGenreGate(t *model.Track, seedArtistID, resolved string, allow map[string]struct{}, accepted int) bool {
	if seedArtistID != "" && t.ArtistID == seedArtistID {
		return true
	}
	if resolved == "" {
		return true
	}

	key := genre.Normalize(t.GenreKey)
	if key == "" {
		return false
	}
	if _, ok := allow[key]; ok {
		return true
	}

	floor := radioGateStrictFloor
	if accepted >= radioGateStrictCount {
		floor = radioGateRelaxFloor
	}
	return s.graph.Similarity(key, resolved) >= floor
}

func setToSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
