package service

import (
	"context"
	"math"
	"sort"

	repository "github.com/tidewave/melodex/internal/adapters/repository"
	"github.com/tidewave/melodex/internal/domain/genre"
	"github.com/tidewave/melodex/internal/domain/model"
	"github.com/tidewave/melodex/internal/domain/vector"
	"github.com/tidewave/melodex/pkg/metrics"
)

// Personal shelf tuning. Tuned values; change only with re-tuning evidence.
const (
	// Signal sample caps.
	likedSignalCap       = 140
	savedAlbumSignalCap  = 60
	followedArtistCap    = 60
	recentPlaySignalCap  = 60
	albumTrackSampleCap  = 90
	artistTrackSampleCap = 90

	// Source confidence weights, merged per track with max().
	likedWeight      = 1.0
	savedAlbumWeight = 0.7
	followedWeight   = 0.6
	recentBaseWeight = 0.18
	recentDecayDays  = 3.0

	// Candidate tier caps.
	genreTierCap       = 1600
	artistTierCap      = 900
	albumTierCap       = 650
	explorationTierCap = 420

	// Allowed-genre expansion.
	topGenresForAllow  = 3
	personalGenreFloor = 0.45

	// Track shelf diversification.
	shelfPerArtistCap  = 2
	shelfPerAlbumCap   = 2
	topGenresForQuota  = 4
	genreQuotaShareCap = 0.45
	likedShelfShare    = 0.10

	// Redundancy penalty.
	mmrPenalty       = 0.15
	mmrScoreFloor    = 0.25
	mmrFullThreshold = 0.6

	// Album/artist aggregation.
	aggregationTopN       = 500
	albumWorkingSetFloor  = 60
	artistWorkingSetFloor = 80
	workingSetPerLimit    = 4
	albumShelfArtistCap   = 2
)

// listenerSignals bundles everything the personal pipeline derives from one
// listener's history. Built once per call, never persisted.
type listenerSignals struct {
	likedTrackIDs     []string
	savedAlbumIDs     []string
	followedArtistIDs []string

	likedSet map[string]struct{}
	exclude  map[string]struct{}

	genreCounts   map[string]int
	allowedGenres []string
	profileVec    []float64
}

// scoredCandidate is one embedding-ranked personal candidate.
type scoredCandidate struct {
	track model.Track
	score float64
}

// HomeShelves produces the listener's personalized track/album/artist
// shelves. Listeners with no usable history receive randomized fallback
// shelves rather than an error.
func (s *Service) HomeShelves(ctx context.Context, listenerID string, trackLimit, albumLimit, artistLimit int) (*model.Shelves, error) {
	metrics.RecordShelfRequest()
	start := s.now()
	defer func() {
		metrics.ObserveEngineLatency("shelves", float64(s.now().Sub(start).Milliseconds()))
	}()

	sig, err := s.collectSignals(ctx, listenerID)
	if err != nil {
		return nil, err
	}

	if len(sig.profileVec) == 0 {
		metrics.RecordEngineFallback("no_profile_embedding")
		return s.fallbackShelves(ctx, sig.exclude, trackLimit, albumLimit, artistLimit)
	}

	pool, err := s.buildPersonalPool(ctx, sig)
	if err != nil {
		return nil, err
	}
	metrics.ObserveCandidatePoolSize("shelves", len(pool))
	if len(pool) == 0 {
		metrics.RecordEngineFallback("empty_shelf_pool")
		return s.fallbackShelves(ctx, sig.exclude, trackLimit, albumLimit, artistLimit)
	}

	// Rank by embedding similarity alone. Candidates without a vector
	// cannot be ranked and are dropped here.
	scored := make([]scoredCandidate, 0, len(pool))
	for i := range pool {
		if !pool[i].HasEmbedding() {
			continue
		}
		scored = append(scored, scoredCandidate{
			track: pool[i],
			score: vector.Cosine(sig.profileVec, pool[i].Embedding),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	tracks := s.diversifyTracks(scored, trackLimit, sig)

	top := scored
	if len(top) > aggregationTopN {
		top = top[:aggregationTopN]
	}
	albums, err := s.albumShelf(ctx, top, sig, albumLimit)
	if err != nil {
		return nil, err
	}
	artists, err := s.artistShelf(ctx, top, sig, artistLimit)
	if err != nil {
		return nil, err
	}

	return &model.Shelves{Tracks: tracks, Albums: albums, Artists: artists}, nil
}

// collectSignals gathers the listener's history, merges it into a weight map
// with max() across sources, and derives the genre histogram, allowed-genre
// set and profile embedding.
func (s *Service) collectSignals(ctx context.Context, listenerID string) (*listenerSignals, error) {
	sig := &listenerSignals{
		likedSet:    make(map[string]struct{}),
		exclude:     make(map[string]struct{}),
		genreCounts: make(map[string]int),
	}

	liked, err := s.store.LikedTrackIDs(ctx, listenerID, likedSignalCap)
	if err != nil {
		return nil, err
	}
	sig.likedTrackIDs = liked
	for _, id := range liked {
		sig.likedSet[id] = struct{}{}
		sig.exclude[id] = struct{}{}
	}

	sig.savedAlbumIDs, err = s.store.SavedAlbumIDs(ctx, listenerID, savedAlbumSignalCap)
	if err != nil {
		return nil, err
	}
	sig.followedArtistIDs, err = s.store.FollowedArtistIDs(ctx, listenerID, followedArtistCap)
	if err != nil {
		return nil, err
	}
	recent, err := s.store.RecentPlays(ctx, listenerID, recentPlaySignalCap)
	if err != nil {
		return nil, err
	}
	for _, p := range recent {
		sig.exclude[p.TrackID] = struct{}{}
	}

	weights := make(map[string]float64)
	bump := func(id string, w float64) {
		if w > weights[id] {
			weights[id] = w
		}
	}
	for _, id := range liked {
		bump(id, likedWeight)
	}

	audioOnly := repository.TrackFilter{RequireAudio: true}
	if len(sig.savedAlbumIDs) > 0 {
		sampled, err := s.store.TracksByAlbums(ctx, sig.savedAlbumIDs, audioOnly, albumTrackSampleCap)
		if err != nil {
			return nil, err
		}
		for i := range sampled {
			bump(sampled[i].ID, savedAlbumWeight)
		}
	}
	if len(sig.followedArtistIDs) > 0 {
		sampled, err := s.store.TracksByArtists(ctx, sig.followedArtistIDs, audioOnly, artistTrackSampleCap)
		if err != nil {
			return nil, err
		}
		for i := range sampled {
			bump(sampled[i].ID, followedWeight)
		}
	}
	now := s.now()
	for _, p := range recent {
		days := now.Sub(p.PlayedAt).Hours() / 24.0
		if days < 0 {
			days = 0
		}
		bump(p.TrackID, recentBaseWeight*math.Exp(-days/recentDecayDays))
	}

	if len(weights) == 0 {
		return sig, nil
	}

	ids := make([]string, 0, len(weights))
	for id := range weights {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	seedTracks, err := s.store.TracksByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	for i := range seedTracks {
		key := seedTracks[i].GenreKey
		if key == "" {
			key = seedTracks[i].GenreID
		}
		// The distrusted provider code is a poisoned ingestion default and
		// would swamp the histogram.
		if key == "" || key == s.distrustGenreID {
			continue
		}
		sig.genreCounts[genre.Normalize(key)]++
	}

	vecs := make([][]float64, 0, len(seedTracks))
	vecWeights := make([]float64, 0, len(seedTracks))
	for i := range seedTracks {
		if !seedTracks[i].HasEmbedding() {
			continue
		}
		vecs = append(vecs, seedTracks[i].Embedding)
		vecWeights = append(vecWeights, weights[seedTracks[i].ID])
	}
	sig.profileVec = vector.WeightedMean(vecs, vecWeights)
	sig.allowedGenres = s.allowedGenresFromCounts(sig.genreCounts)

	return sig, nil
}

// allowedGenresFromCounts expands the top listener genres through the graph.
func (s *Service) allowedGenresFromCounts(counts map[string]int) []string {
	if len(counts) == 0 {
		return nil
	}

	top := topGenres(counts, topGenresForAllow)
	allowed := make(map[string]struct{})
	for _, g := range top {
		allowed[g] = struct{}{}
		for _, key := range s.graph.Keys() {
			if s.graph.Similarity(g, key) >= personalGenreFloor {
				allowed[key] = struct{}{}
			}
		}
	}
	return setToSlice(allowed)
}

// topGenres returns up to n genre keys by descending count, ties broken
// lexicographically for stable output.
func topGenres(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// buildPersonalPool merges the independently capped candidate tiers. Every
// tier requires playable audio and an embedding and honors the exclusions.
func (s *Service) buildPersonalPool(ctx context.Context, sig *listenerSignals) ([]model.Track, error) {
	filter := repository.TrackFilter{
		Exclude:          sig.exclude,
		RequireAudio:     true,
		RequireEmbedding: true,
	}

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

	if len(sig.allowedGenres) > 0 {
		tracks, err := s.store.TracksByGenreKeys(ctx, sig.allowedGenres, filter, genreTierCap)
		if err != nil {
			return nil, err
		}
		merge(tracks)
	}
	if len(sig.followedArtistIDs) > 0 {
		tracks, err := s.store.TracksByArtists(ctx, sig.followedArtistIDs, filter, artistTierCap)
		if err != nil {
			return nil, err
		}
		merge(tracks)
	}
	if len(sig.savedAlbumIDs) > 0 {
		tracks, err := s.store.TracksByAlbums(ctx, sig.savedAlbumIDs, filter, albumTierCap)
		if err != nil {
			return nil, err
		}
		merge(tracks)
	}

	// Exploration: always mix in a random slice so niche material can
	// surface.
	random, err := s.store.RandomTracks(ctx, explorationTierCap, filter)
	if err != nil {
		return nil, err
	}
	merge(random)

	return pool, nil
}

// diversifyTracks walks the score-ordered candidates applying the per-artist,
// per-album and per-genre caps, the liked throttle and the redundancy
// penalty, then tops up in score order if constraints under-filled the shelf.
func (s *Service) diversifyTracks(scored []scoredCandidate, limit int, sig *listenerSignals) []model.Track {
	if limit <= 0 {
		return nil
	}

	quota := genreQuotas(sig.genreCounts, limit)
	maxLiked := int(math.Round(float64(limit) * likedShelfShare))
	if maxLiked < 1 {
		maxLiked = 1
	}
	fullEnough := int(math.Round(float64(limit) * mmrFullThreshold))

	selected := make([]model.Track, 0, limit)
	selectedIDs := make(map[string]struct{}, limit)
	selectedVecs := make([][]float64, 0, limit)
	artistCounts := make(map[string]int)
	albumCounts := make(map[string]int)
	genreCounts := make(map[string]int)
	likedUsed := 0

	for i := range scored {
		t := &scored[i].track

		if artistCounts[t.ArtistID] >= shelfPerArtistCap {
			continue
		}
		if t.AlbumID != "" && albumCounts[t.AlbumID] >= shelfPerAlbumCap {
			continue
		}

		key := genre.Normalize(t.GenreKey)
		if key != "" {
			if q, ok := quota[key]; ok && genreCounts[key] >= q {
				continue
			}
		}

		_, isLiked := sig.likedSet[t.ID]
		if isLiked && likedUsed >= maxLiked {
			continue
		}

		maxSim := 0.0
		for _, v := range selectedVecs {
			if sim := vector.Cosine(t.Embedding, v); sim > maxSim {
				maxSim = sim
			}
		}
		if scored[i].score-mmrPenalty*maxSim < mmrScoreFloor && len(selected) >= fullEnough {
			continue
		}

		selected = append(selected, *t)
		selectedIDs[t.ID] = struct{}{}
		selectedVecs = append(selectedVecs, t.Embedding)
		artistCounts[t.ArtistID]++
		if t.AlbumID != "" {
			albumCounts[t.AlbumID]++
		}
		if key != "" {
			genreCounts[key]++
		}
		if isLiked {
			likedUsed++
		}

		if len(selected) >= limit {
			break
		}
	}

	// Sparse embedding coverage can leave the shelf short; fill with the
	// best remaining regardless of caps.
	if len(selected) < limit {
		for i := range scored {
			if _, dup := selectedIDs[scored[i].track.ID]; dup {
				continue
			}
			selected = append(selected, scored[i].track)
			selectedIDs[scored[i].track.ID] = struct{}{}
			if len(selected) >= limit {
				break
			}
		}
	}

	return selected
}

// genreQuotas derives per-genre caps for the top listener genres,
// proportional to their share of the histogram.
func genreQuotas(counts map[string]int, limit int) map[string]int {
	if len(counts) == 0 {
		return nil
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		total = 1
	}

	quota := make(map[string]int)
	for _, g := range topGenres(counts, topGenresForQuota) {
		share := float64(counts[g]) / float64(total)
		if share > genreQuotaShareCap {
			share = genreQuotaShareCap
		}
		q := int(math.Round(float64(limit) * share))
		if q < 2 {
			q = 2
		}
		quota[g] = q
	}
	return quota
}

// albumShelf aggregates the top candidates to album level by max track
// score, skipping albums the listener already saved, then walks the ranked
// working set with a per-artist cap.
func (s *Service) albumShelf(ctx context.Context, top []scoredCandidate, sig *listenerSignals, limit int) ([]model.Album, error) {
	if limit <= 0 {
		return nil, nil
	}

	saved := make(map[string]struct{}, len(sig.savedAlbumIDs))
	for _, id := range sig.savedAlbumIDs {
		saved[id] = struct{}{}
	}

	best := make(map[string]float64)
	for i := range top {
		albumID := top[i].track.AlbumID
		if albumID == "" {
			continue
		}
		if _, skip := saved[albumID]; skip {
			continue
		}
		if top[i].score > best[albumID] {
			best[albumID] = top[i].score
		}
	}
	if len(best) == 0 {
		return nil, nil
	}

	working := albumWorkingSetFloor
	if n := limit * workingSetPerLimit; n > working {
		working = n
	}
	ranked := rankedIDs(best, working)

	rows, err := s.store.AlbumsByIDs(ctx, ranked)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Album, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}

	out := make([]model.Album, 0, limit)
	artistCounts := make(map[string]int)
	for _, id := range ranked {
		album := byID[id]
		if album == nil {
			continue
		}
		if artistCounts[album.ArtistID] >= albumShelfArtistCap {
			continue
		}
		out = append(out, *album)
		artistCounts[album.ArtistID]++
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// artistShelf mirrors albumShelf at artist granularity. No further diversity
// cap applies since the artist is already the aggregation key.
func (s *Service) artistShelf(ctx context.Context, top []scoredCandidate, sig *listenerSignals, limit int) ([]model.Artist, error) {
	if limit <= 0 {
		return nil, nil
	}

	followed := make(map[string]struct{}, len(sig.followedArtistIDs))
	for _, id := range sig.followedArtistIDs {
		followed[id] = struct{}{}
	}

	best := make(map[string]float64)
	for i := range top {
		artistID := top[i].track.ArtistID
		if artistID == "" {
			continue
		}
		if _, skip := followed[artistID]; skip {
			continue
		}
		if top[i].score > best[artistID] {
			best[artistID] = top[i].score
		}
	}
	if len(best) == 0 {
		return nil, nil
	}

	working := artistWorkingSetFloor
	if n := limit * workingSetPerLimit; n > working {
		working = n
	}
	ranked := rankedIDs(best, working)

	rows, err := s.store.ArtistsByIDs(ctx, ranked)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Artist, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}

	out := make([]model.Artist, 0, limit)
	for _, id := range ranked {
		artist := byID[id]
		if artist == nil {
			continue
		}
		out = append(out, *artist)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// rankedIDs sorts the score map descending (ids ascending on ties) and caps
// the result.
func rankedIDs(best map[string]float64, n int) []string {
	ids := make([]string, 0, len(best))
	for id := range best {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if best[ids[i]] != best[ids[j]] {
			return best[ids[i]] > best[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > n {
		ids = ids[:n]
	}
	return ids
}

// fallbackShelves samples the catalog uniformly for listeners the ranking
// pipeline cannot serve.
func (s *Service) fallbackShelves(ctx context.Context, exclude map[string]struct{}, trackLimit, albumLimit, artistLimit int) (*model.Shelves, error) {
	tracks, err := s.store.RandomTracks(ctx, trackLimit, repository.TrackFilter{
		Exclude:      exclude,
		RequireAudio: true,
	})
	if err != nil {
		return nil, err
	}
	albums, err := s.store.RandomAlbums(ctx, albumLimit)
	if err != nil {
		return nil, err
	}
	artists, err := s.store.RandomArtists(ctx, artistLimit)
	if err != nil {
		return nil, err
	}
	return &model.Shelves{Tracks: tracks, Albums: albums, Artists: artists}, nil
}
