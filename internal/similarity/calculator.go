// Dual Gravity - Competitive Music Discovery Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dualgravity

package similarity

import (
	"math"

	"github.com/tomtom215/dualgravity/internal/models"
)

// Artist-level attraction weights. They sum to 1.0.
const (
	artistGenreWeight     = 0.40
	artistRelationWeight  = 0.30
	artistPopWeight       = 0.15
	artistFollowersWeight = 0.15
)

// Track-level scoring weights. They sum to 1.0. Genre and relationship
// contribute less than at the artist level to make room for the two
// track-local factors.
const (
	trackGenreWeight     = 0.25
	trackRelationWeight  = 0.20
	trackPopWeight       = 0.15
	trackEraWeight       = 0.15
	trackFollowersWeight = 0.15
	trackArtistPopWeight = 0.10
)

// Relationship fallback: when B is not in A's related set, genre overlap
// is rescaled into [relationFloor, 1.0] so unrelated-but-genre-similar
// artists still score above neutral.
const (
	relationFloor       = 0.3
	relationGenreFactor = 0.7
)

// followerLogSpan is the log10 follower gap that maps to zero follower
// similarity. A 1000x audience difference is treated as total mismatch.
const followerLogSpan = 3.0

// eraSpanYears is the release-year gap that maps to zero era similarity.
const eraSpanYears = 30.0

// RelatedSet answers "is B in A's related-artist set" in O(1). Keys are
// artist IDs; the inner set holds the related IDs fetched for that artist.
type RelatedSet map[string]map[string]struct{}

// Add records that other is related to artistID.
func (r RelatedSet) Add(artistID, other string) {
	if r[artistID] == nil {
		r[artistID] = make(map[string]struct{})
	}
	r[artistID][other] = struct{}{}
}

// Related reports whether b appears in a's related set, in either
// direction. Relationship edges from the catalog are not guaranteed to
// be symmetric, so both orientations count.
func (r RelatedSet) Related(a, b string) bool {
	if _, ok := r[a][b]; ok {
		return true
	}
	_, ok := r[b][a]
	return ok
}

// Result is a similarity score plus the per-factor breakdown behind it.
type Result struct {
	Score      float64
	Components models.ScoreComponents
}

// Calculator computes artist attraction and candidate-track similarity.
// It is stateless apart from the genre graph and safe for concurrent use.
type Calculator struct {
	genres *GenreGraph
}

// NewCalculator creates a calculator over the given genre graph. A nil
// graph gets the default seeded graph.
func NewCalculator(genres *GenreGraph) *Calculator {
	if genres == nil {
		genres = NewGenreGraph()
	}
	return &Calculator{genres: genres}
}

// ArtistSimilarity computes the attraction of artist a toward artist b.
//
// Identical IDs short-circuit to a perfect score with every component 1.0.
// A nil profile on either side short-circuits to zero with all-zero
// components; callers must treat that as "no information", not an error.
func (c *Calculator) ArtistSimilarity(a, b *models.ArtistProfile, related RelatedSet) Result {
	if a == nil || b == nil {
		return Result{}
	}
	if a.ID != "" && a.ID == b.ID {
		return identityResult()
	}

	genre := clamp01(c.genres.Similarity(a.Genres, b.Genres))
	relation := c.relationshipScore(a, b, genre, related)
	pop := popularitySimilarity(a, b)
	followers := followerSimilarity(a, b)

	score := artistGenreWeight*genre +
		artistRelationWeight*relation +
		artistPopWeight*pop +
		artistFollowersWeight*followers

	return Result{
		Score: clamp01(score),
		Components: models.ScoreComponents{
			Genre:        genre,
			Relationship: relation,
			ArtistPop:    pop,
			Followers:    followers,
		},
	}
}

// TrackSimilarity computes the full candidate-track score: the candidate
// artist's attraction toward the target, extended with track popularity
// and release-era proximity against the currently playing track.
func (c *Calculator) TrackSimilarity(candidate *models.TrackDetails, candidateArtist *models.ArtistProfile, current *models.TrackDetails, target *models.ArtistProfile, related RelatedSet) Result {
	if candidateArtist == nil || target == nil {
		return Result{}
	}

	// The artist-level factors max out when the candidate IS the target,
	// but the two track-local factors still differentiate that artist's
	// own tracks from each other.
	var genre, relation, artistPop, followers float64
	if candidateArtist.ID != "" && candidateArtist.ID == target.ID {
		genre, relation, artistPop, followers = 1.0, 1.0, 1.0, 1.0
	} else {
		genre = clamp01(c.genres.Similarity(candidateArtist.Genres, target.Genres))
		relation = c.relationshipScore(candidateArtist, target, genre, related)
		artistPop = popularitySimilarity(candidateArtist, target)
		followers = followerSimilarity(candidateArtist, target)
	}
	trackPop := trackPopularitySimilarity(candidate, current)
	era := eraSimilarity(candidate, current)

	score := trackGenreWeight*genre +
		trackRelationWeight*relation +
		trackPopWeight*trackPop +
		trackEraWeight*era +
		trackFollowersWeight*followers +
		trackArtistPopWeight*artistPop

	return Result{
		Score: clamp01(score),
		Components: models.ScoreComponents{
			Genre:        genre,
			Relationship: relation,
			TrackPop:     trackPop,
			ArtistPop:    artistPop,
			Era:          era,
			Followers:    followers,
		},
	}
}

// relationshipScore is 1.0 for a known related-artist edge, otherwise a
// genre-overlap fallback rescaled into [relationFloor, 1.0].
func (c *Calculator) relationshipScore(a, b *models.ArtistProfile, genreSim float64, related RelatedSet) float64 {
	if a.ID != "" && a.ID == b.ID {
		return 1.0
	}
	if related.Related(a.ID, b.ID) {
		return 1.0
	}
	fallback := genreSim*relationGenreFactor + relationFloor
	if fallback < relationFloor {
		fallback = relationFloor
	}
	return clamp01(fallback)
}

// popularitySimilarity is 1 - |p1-p2|/100, or exactly 0.5 when either
// side has no usable popularity.
func popularitySimilarity(a, b *models.ArtistProfile) float64 {
	if !a.HasPopularity() || !b.HasPopularity() {
		return 0.5
	}
	return clamp01(1 - math.Abs(float64(a.Popularity-b.Popularity))/100)
}

// followerSimilarity compares audiences on a log10 scale, or returns
// exactly 0.5 when either side has no usable follower count.
func followerSimilarity(a, b *models.ArtistProfile) float64 {
	if !a.HasFollowers() || !b.HasFollowers() {
		return 0.5
	}
	gap := math.Abs(math.Log10(float64(a.Followers)) - math.Log10(float64(b.Followers)))
	return clamp01(1 - math.Min(gap/followerLogSpan, 1))
}

func trackPopularitySimilarity(a, b *models.TrackDetails) float64 {
	if a == nil || b == nil || a.Popularity <= 0 || b.Popularity <= 0 {
		return 0.5
	}
	return clamp01(1 - math.Abs(float64(a.Popularity-b.Popularity))/100)
}

func eraSimilarity(a, b *models.TrackDetails) float64 {
	if !a.HasReleaseYear() || !b.HasReleaseYear() {
		return 0.5
	}
	diff := math.Abs(float64(a.ReleaseYear - b.ReleaseYear))
	return clamp01(math.Max(0, 1-diff/eraSpanYears))
}

func identityResult() Result {
	return Result{
		Score: 1.0,
		Components: models.ScoreComponents{
			Genre:        1.0,
			Relationship: 1.0,
			TrackPop:     1.0,
			ArtistPop:    1.0,
			Era:          1.0,
			Followers:    1.0,
		},
	}
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
