// Dual Gravity - Competitive Music Discovery Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dualgravity

// Package scoring turns a candidate seed batch into scored, categorized
// option tracks and selects the final diverse option set. Absence of
// data never fails scoring here, it only degrades it: a missing profile
// scores zero attraction and a missing target scores neutral.
package scoring

import (
	"math"

	"github.com/tomtom215/dualgravity/internal/gravity"
	"github.com/tomtom215/dualgravity/internal/models"
	"github.com/tomtom215/dualgravity/internal/similarity"
)

// DeltaThreshold is the symmetric band around zero inside which an
// attraction delta counts as noise rather than a directional move.
const DeltaThreshold = 0.05

// hardConvergenceBoost is added to a target artist's final score while
// hard convergence is active, making the win path hard to miss.
const hardConvergenceBoost = 0.15

// Scorer computes per-track metrics for Stage 3.
type Scorer struct {
	calc *similarity.Calculator
}

// NewScorer creates a scorer. A nil calculator gets the default one.
func NewScorer(calc *similarity.Calculator) *Scorer {
	if calc == nil {
		calc = similarity.NewCalculator(nil)
	}
	return &Scorer{calc: calc}
}

// Score computes metrics for every seed in the request. An empty seed
// list yields an empty (never nil) slice.
func (s *Scorer) Score(req *models.Stage3Request) []models.CandidateTrackMetrics {
	related := buildRelatedSet(req)
	targets := targetPair(req)

	currentArtist := profileFor(req, req.CurrentTrack.ArtistID)
	actingTarget := targets[req.CurrentPlayerID]

	// Baseline: how attractive the currently playing artist already is to
	// the acting player, drifted by any accumulated original-gravity skew.
	baseline := s.calc.ArtistSimilarity(currentArtist, actingTarget, related).Score
	baseline = clamp01(baseline + req.OgDrift)

	metrics := make([]models.CandidateTrackMetrics, 0, len(req.Seeds))
	for i := range req.Seeds {
		metrics = append(metrics, s.scoreSeed(req, &req.Seeds[i], targets, related, baseline))
	}
	return metrics
}

func (s *Scorer) scoreSeed(req *models.Stage3Request, seed *models.CandidateSeed, targets map[string]*models.ArtistProfile, related similarity.RelatedSet, baseline float64) models.CandidateTrackMetrics {
	artist := profileFor(req, seed.Track.ArtistID)

	aAttraction := s.calc.ArtistSimilarity(artist, targets[models.Player1], related).Score
	bAttraction := s.calc.ArtistSimilarity(artist, targets[models.Player2], related).Score

	acting := aAttraction
	if req.CurrentPlayerID == models.Player2 {
		acting = bAttraction
	}
	delta := acting - baseline

	trackSim := s.calc.TrackSimilarity(&seed.Track, artist, &req.CurrentTrack, targets[req.CurrentPlayerID], related)

	isTarget := isTargetArtist(seed, artist, targets)
	finalScore := trackSim.Score
	if isTarget && req.HardConvergenceActive {
		finalScore = clamp01(finalScore + hardConvergenceBoost)
	}

	return models.CandidateTrackMetrics{
		Track:                 seed.Track,
		ArtistID:              seed.Track.ArtistID,
		ArtistName:            seed.Track.ArtistName,
		SimScore:              trackSim.Score,
		AAttraction:           aAttraction,
		BAttraction:           bAttraction,
		CurrentSongAttraction: baseline,
		Delta:                 delta,
		SelectionCategory:     Classify(delta),
		IsTargetArtist:        isTarget,
		FinalScore:            finalScore,
		Components:            trackSim.Components,
		PopularityBand:        models.BandForPopularity(seed.Track.Popularity),
		Source:                seed.Source,
	}
}

// Classify maps an attraction delta onto a selection category. The band
// is symmetric around zero so noise never reads as a directional move.
func Classify(delta float64) models.SelectionCategory {
	switch {
	case math.IsNaN(delta):
		return models.CategoryNeutral
	case delta > DeltaThreshold:
		return models.CategoryCloser
	case delta < -DeltaThreshold:
		return models.CategoryFurther
	default:
		return models.CategoryNeutral
	}
}

// isTargetArtist matches on catalog ID first and falls back to a
// trimmed case-insensitive name match when the ID is absent.
func isTargetArtist(seed *models.CandidateSeed, artist *models.ArtistProfile, targets map[string]*models.ArtistProfile) bool {
	for _, target := range targets {
		if target == nil || target.ID == "" {
			continue
		}
		if seed.Track.ArtistID != "" && seed.Track.ArtistID == target.ID {
			return true
		}
		if seed.Track.ArtistID == "" && models.SameArtistName(seed.Track.ArtistName, target.Name) {
			return true
		}
		if artist != nil && artist.ID == target.ID {
			return true
		}
	}
	return false
}

// GravityZones summarizes both players' zones for debug output.
func GravityZones(gravities models.PlayerGravities) map[string]string {
	return map[string]string{
		models.Player1: string(gravity.ZoneFor(gravities.Player1)),
		models.Player2: string(gravity.ZoneFor(gravities.Player2)),
	}
}

func profileFor(req *models.Stage3Request, artistID string) *models.ArtistProfile {
	if artistID == "" {
		return nil
	}
	if p, ok := req.Profiles[artistID]; ok {
		return &p
	}
	return nil
}

func targetPair(req *models.Stage3Request) map[string]*models.ArtistProfile {
	out := map[string]*models.ArtistProfile{
		models.Player1: nil,
		models.Player2: nil,
	}
	for _, player := range []string{models.Player1, models.Player2} {
		if tp, ok := req.TargetProfiles[player]; ok && tp.Profile.ID != "" {
			profile := tp.Profile
			out[player] = &profile
		}
	}
	return out
}

func buildRelatedSet(req *models.Stage3Request) similarity.RelatedSet {
	if len(req.RelatedArtistIDs) == 0 {
		return nil
	}
	related := similarity.RelatedSet{}
	for _, id := range req.RelatedArtistIDs {
		related.Add(req.CurrentTrack.ArtistID, id)
	}
	return related
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
