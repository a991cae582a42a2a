// Dual Gravity - Competitive Music Discovery Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dualgravity

package models

// PlayerGravities is the per-player influence state. Values live in
// [GravityMin, GravityMax] (held in internal/gravity); NaN never survives
// a stage boundary because every consumer normalizes first.
type PlayerGravities struct {
	Player1 float64 `json:"player1"`
	Player2 float64 `json:"player2"`
}

// Get returns the gravity for a player ID, Player1 by default.
func (g PlayerGravities) Get(playerID string) float64 {
	if playerID == Player2 {
		return g.Player2
	}
	return g.Player1
}

// Set returns a copy with the given player's gravity replaced.
func (g PlayerGravities) Set(playerID string, v float64) PlayerGravities {
	if playerID == Player2 {
		g.Player2 = v
	} else {
		g.Player1 = v
	}
	return g
}

// TargetRef names a player's target artist before resolution.
type TargetRef struct {
	ArtistID   string `json:"artist_id" validate:"omitempty,catalogid"`
	ArtistName string `json:"artist_name"`
}

// PlaybackState describes the currently playing track at turn start.
type PlaybackState struct {
	CurrentTrack TrackDetails `json:"current_track" validate:"required"`
}

// Stage1Request starts a turn: resolve targets, update gravity, and
// acquire the candidate artist pool.
type Stage1Request struct {
	RoundNumber     int                   `json:"round_number" validate:"min=0"`
	CurrentPlayerID string                `json:"current_player_id" validate:"required,oneof=player1 player2"`
	SessionID       string                `json:"session_id" validate:"required"`
	PlayerTargets   map[string]*TargetRef `json:"player_targets"`
	PlaybackState   PlaybackState         `json:"playback_state"`

	// PrevSelectionCategory is the category assigned to the track the
	// acting player queued last turn. Empty on the first turn.
	PrevSelectionCategory SelectionCategory `json:"prev_selection_category,omitempty"`
}

// BranchResult is the outcome of one acquisition branch.
type BranchResult struct {
	ArtistIDs []string `json:"artist_ids"`
	Skipped   bool     `json:"skipped,omitempty"`
	Failed    bool     `json:"failed,omitempty"`
}

// Stage1Response is the acquired candidate-artist pool plus the turn's
// resolved state.
type Stage1Response struct {
	ArtistIDs             []string                 `json:"artist_ids"`
	RelatedToCurrent      BranchResult             `json:"related_to_current"`
	RelatedToTarget       map[string]BranchResult  `json:"related_to_target"`
	RandomArtists         []string                 `json:"random_artists"`
	TargetProfiles        map[string]TargetProfile `json:"target_profiles"`
	SeedArtistID          string                   `json:"seed_artist_id"`
	SeedArtistName        string                   `json:"seed_artist_name"`
	UpdatedGravities      PlayerGravities          `json:"updated_gravities"`
	ExplorationPhase      bool                     `json:"exploration_phase"`
	HardConvergenceActive bool                     `json:"hard_convergence_active"`
	Debug                 *StageDebug              `json:"debug,omitempty"`
}

// SelectedArtist is one artist chosen for track fetching in Stage 2,
// with the scoring context that chose it.
type SelectedArtist struct {
	ArtistID        string            `json:"artist_id" validate:"required,catalogid"`
	ArtistName      string            `json:"artist_name"`
	Category        SelectionCategory `json:"category" validate:"required,oneof=closer neutral further"`
	AttractionScore float64           `json:"attraction_score"`
	Delta           float64           `json:"delta"`
}

// Stage2Request fetches representative tracks for the selected artists.
type Stage2Request struct {
	SelectedArtists []SelectedArtist         `json:"selected_artists" validate:"required,dive"`
	BackupArtists   []SelectedArtist         `json:"backup_artists" validate:"dive"`
	CurrentTrack    TrackDetails             `json:"current_track" validate:"required"`
	PlayedTrackIDs  []string                 `json:"played_track_ids"`
	TargetProfiles  map[string]TargetProfile `json:"target_profiles"`
	RoundNumber     int                      `json:"round_number" validate:"min=0"`
}

// CandidateTrack is one playable option produced by Stage 2.
type CandidateTrack struct {
	Track    TrackDetails      `json:"track"`
	Category SelectionCategory `json:"category"`
	Source   SeedSource        `json:"source"`
}

// Stage2Response is the bounded option set (target size 9).
type Stage2Response struct {
	Options []CandidateTrack `json:"options"`
	Debug   *StageDebug      `json:"debug,omitempty"`
}

// Stage3Request scores a candidate seed batch against both targets.
type Stage3Request struct {
	Seeds                 []CandidateSeed          `json:"seeds" validate:"dive"`
	Profiles              map[string]ArtistProfile `json:"profiles"`
	TargetProfiles        map[string]TargetProfile `json:"target_profiles"`
	PlayerGravities       PlayerGravities          `json:"player_gravities"`
	CurrentTrack          TrackDetails             `json:"current_track" validate:"required"`
	RelatedArtistIDs      []string                 `json:"related_artist_ids"`
	RoundNumber           int                      `json:"round_number" validate:"min=0"`
	CurrentPlayerID       string                   `json:"current_player_id" validate:"required,oneof=player1 player2"`
	OgDrift               float64                  `json:"og_drift"`
	HardConvergenceActive bool                     `json:"hard_convergence_active"`
}

// Stage3Response carries the scored, diversity-selected option tracks.
type Stage3Response struct {
	OptionTracks []CandidateTrackMetrics `json:"option_tracks"`
	Debug        *StageDebug             `json:"debug,omitempty"`
}

// StageDebug carries selection telemetry that is safe to log but is
// never surfaced to the player-facing result.
type StageDebug struct {
	PoolSize            int               `json:"pool_size,omitempty"`
	BackfillCount       int               `json:"backfill_count,omitempty"`
	FilteredArtistNames []string          `json:"filtered_artist_names,omitempty"`
	CategoryCounts      map[string]int    `json:"category_counts,omitempty"`
	GravityZones        map[string]string `json:"gravity_zones,omitempty"`
	Notes               []string          `json:"notes,omitempty"`
}
