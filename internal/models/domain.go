// Dual Gravity - Competitive Music Discovery Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dualgravity

// Package models defines the validated data structures shared across the
// Dual Gravity pipeline stages. Stage boundaries parse-and-validate once;
// everything downstream operates only on these shapes.
package models

import "strings"

// SelectionCategory classifies a candidate track relative to the acting
// player's target: did selecting it move the game closer to, away from,
// or roughly parallel to the target artist.
type SelectionCategory string

// Selection categories assigned during scoring.
const (
	CategoryCloser  SelectionCategory = "closer"
	CategoryNeutral SelectionCategory = "neutral"
	CategoryFurther SelectionCategory = "further"
)

// Valid reports whether c is one of the three known categories.
func (c SelectionCategory) Valid() bool {
	switch c {
	case CategoryCloser, CategoryNeutral, CategoryFurther:
		return true
	}
	return false
}

// PopularityBand buckets track popularity for debug and selection balancing.
type PopularityBand string

// Popularity bands. Boundaries: low < 40, mid 40-69, high >= 70.
const (
	BandLow  PopularityBand = "low"
	BandMid  PopularityBand = "mid"
	BandHigh PopularityBand = "high"
)

// BandForPopularity returns the band for a 0-100 popularity value.
func BandForPopularity(pop int) PopularityBand {
	switch {
	case pop >= 70:
		return BandHigh
	case pop >= 40:
		return BandMid
	default:
		return BandLow
	}
}

// SeedSource records which acquisition branch produced a candidate seed.
type SeedSource string

// Seed sources, in rough order of how deliberate the acquisition was.
const (
	SourceTargetInsertion  SeedSource = "target_insertion"
	SourceEmbedding        SeedSource = "embedding"
	SourceRecommendations  SeedSource = "recommendations"
	SourceRelatedTopTracks SeedSource = "related_top_tracks"
)

// Player identifiers. The game is strictly two-player.
const (
	Player1 = "player1"
	Player2 = "player2"
)

// ArtistProfile is the cached representation of a catalog artist.
// Profiles are created by the enrichment pipeline the first time an artist
// is observed, mutated only by genre-backfill and popularity refresh jobs,
// and never deleted in normal operation.
//
// Popularity and Followers use zero as "unknown": the catalog never
// reports a popularity of exactly zero for a real artist, and a
// zero-follower artist carries no usable audience signal either way.
// Similarity code treats unknown values as neutral (0.5), not as errors.
type ArtistProfile struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Genres     []string `json:"genres"`
	Popularity int      `json:"popularity"`
	Followers  int      `json:"followers"`
}

// HasPopularity reports whether the profile carries a usable popularity.
func (p *ArtistProfile) HasPopularity() bool {
	return p != nil && p.Popularity > 0
}

// HasFollowers reports whether the profile carries a usable follower count.
func (p *ArtistProfile) HasFollowers() bool {
	return p != nil && p.Followers > 0
}

// TrackDetails carries the track metadata the engine scores against.
type TrackDetails struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ArtistID    string `json:"artist_id"`
	ArtistName  string `json:"artist_name"`
	AlbumName   string `json:"album_name,omitempty"`
	Popularity  int    `json:"popularity"`
	ReleaseYear int    `json:"release_year"`
	DurationMS  int    `json:"duration_ms,omitempty"`
}

// HasReleaseYear reports whether the track carries a usable release year.
func (t *TrackDetails) HasReleaseYear() bool {
	return t != nil && t.ReleaseYear > 0
}

// TargetProfile is a player's resolved round goal: the artist they are
// trying to make play next, with the full profile needed for attraction
// scoring. Replaced each round or on manual re-target.
type TargetProfile struct {
	PlayerID string        `json:"player_id"`
	Profile  ArtistProfile `json:"profile"`
}

// CandidateSeed is one candidate track entering Stage 3 scoring.
// Seeds are produced fresh each turn and never persisted.
type CandidateSeed struct {
	Track        TrackDetails `json:"track"`
	SeedArtistID string       `json:"seed_artist_id"`
	Source       SeedSource   `json:"source"`
}

// ScoreComponents exposes the per-factor sub-scores behind a similarity
// result so selection decisions stay debuggable. Every value is in [0,1].
type ScoreComponents struct {
	Genre        float64 `json:"genre"`
	Relationship float64 `json:"relationship"`
	TrackPop     float64 `json:"track_pop"`
	ArtistPop    float64 `json:"artist_pop"`
	Era          float64 `json:"era"`
	Followers    float64 `json:"followers"`
}

// CandidateTrackMetrics is the scoring output for one candidate track.
// One batch is produced per turn and discarded after selection.
type CandidateTrackMetrics struct {
	Track                 TrackDetails      `json:"track"`
	ArtistID              string            `json:"artist_id"`
	ArtistName            string            `json:"artist_name"`
	SimScore              float64           `json:"sim_score"`
	AAttraction           float64           `json:"a_attraction"`
	BAttraction           float64           `json:"b_attraction"`
	CurrentSongAttraction float64           `json:"current_song_attraction"`
	Delta                 float64           `json:"delta"`
	SelectionCategory     SelectionCategory `json:"selection_category"`
	IsTargetArtist        bool              `json:"is_target_artist"`
	FinalScore            float64           `json:"final_score"`
	Components            ScoreComponents   `json:"score_components"`
	PopularityBand        PopularityBand    `json:"popularity_band"`
	Source                SeedSource        `json:"source"`
}

// catalogIDLength is the fixed length of a catalog artist/track ID.
const catalogIDLength = 22

// ValidCatalogID reports whether s looks like a catalog ID: exactly 22
// alphanumeric characters, no hyphens. Anything else (typically a
// UUID-shaped internal database key) must be rejected before it reaches
// the catalog API.
func ValidCatalogID(s string) bool {
	if len(s) != catalogIDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
			continue
		}
		return false
	}
	return true
}

// SameArtistName compares artist names the way the target-artist check
// does: case-insensitive after trimming surrounding whitespace.
func SameArtistName(a, b string) bool {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}
