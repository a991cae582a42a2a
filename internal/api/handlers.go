// Dual Gravity - Competitive Music Discovery Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dualgravity

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/dualgravity/internal/catalog"
	"github.com/tomtom215/dualgravity/internal/gravity"
	"github.com/tomtom215/dualgravity/internal/healing"
	"github.com/tomtom215/dualgravity/internal/logging"
	"github.com/tomtom215/dualgravity/internal/metrics"
	"github.com/tomtom215/dualgravity/internal/models"
	"github.com/tomtom215/dualgravity/internal/pipeline"
	"github.com/tomtom215/dualgravity/internal/scoring"
	"github.com/tomtom215/dualgravity/internal/store"
)

// Server holds the stage handlers and their collaborators.
type Server struct {
	acquirer *pipeline.Acquirer
	scorer   *scoring.Scorer
	catalog  catalog.Client
	profiles *store.Store
	healer   *healing.Queue
	tracker  *gravity.Tracker
	log      zerolog.Logger
}

// NewServer wires the stage handlers. healer may be nil when the lazy
// enrichment queue is disabled.
func NewServer(acquirer *pipeline.Acquirer, scorer *scoring.Scorer, cat catalog.Client, profiles *store.Store, healer *healing.Queue, tracker *gravity.Tracker) *Server {
	return &Server{
		acquirer: acquirer,
		scorer:   scorer,
		catalog:  cat,
		profiles: profiles,
		healer:   healer,
		tracker:  tracker,
		log:      logging.With().Str("component", "api").Logger(),
	}
}

// handleStage1Artists resolves targets, updates gravity, and acquires
// the candidate artist pool for the turn.
func (s *Server) handleStage1Artists(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	defer metrics.ObserveStage("stage1_artists", started)

	var req models.Stage1Request
	if !decodeAndValidate(w, r, &req) {
		metrics.StageErrors.WithLabelValues("stage1_artists", models.ErrCodeValidation).Inc()
		return
	}

	resp, err := s.acquirer.AcquireArtists(r.Context(), bearerToken(r), &req)
	if err != nil {
		s.stage1Error(w, r, err)
		return
	}

	metrics.CandidatePoolSize.Observe(float64(len(resp.ArtistIDs)))
	if resp.Debug != nil {
		metrics.BackfillCount.Observe(float64(resp.Debug.BackfillCount))
	}
	if resp.HardConvergenceActive {
		metrics.HardConvergenceTurns.Inc()
	}
	respondJSON(w, r, http.StatusOK, resp, started)
}

func (s *Server) stage1Error(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, pipeline.ErrInvalidSeedArtist):
		metrics.StageErrors.WithLabelValues("stage1_artists", models.ErrCodeInvalidSeedArtist).Inc()
		respondError(w, r, http.StatusBadRequest, models.ErrCodeInvalidSeedArtist,
			"current track's artist ID is not a valid catalog ID", err)
	case errors.Is(err, pipeline.ErrMissingCurrentTrack):
		metrics.StageErrors.WithLabelValues("stage1_artists", models.ErrCodeMissingCurrentTrack).Inc()
		respondError(w, r, http.StatusBadRequest, models.ErrCodeMissingCurrentTrack,
			"playback state carries no current track", err)
	default:
		metrics.StageErrors.WithLabelValues("stage1_artists", models.ErrCodePipeline).Inc()
		respondError(w, r, http.StatusInternalServerError, models.ErrCodePipeline,
			"candidate acquisition failed", err)
	}
}

// handleStage2Tracks fetches the bounded option set for the selected
// artists. Partial results are a success, not an error.
func (s *Server) handleStage2Tracks(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	defer metrics.ObserveStage("stage2_tracks", started)

	var req models.Stage2Request
	if !decodeAndValidate(w, r, &req) {
		metrics.StageErrors.WithLabelValues("stage2_tracks", models.ErrCodeValidation).Inc()
		return
	}

	resp, err := s.acquirer.FetchTracks(r.Context(), bearerToken(r), &req)
	if err != nil {
		if errors.Is(err, pipeline.ErrMissingCurrentTrack) {
			metrics.StageErrors.WithLabelValues("stage2_tracks", models.ErrCodeMissingCurrentTrack).Inc()
			respondError(w, r, http.StatusBadRequest, models.ErrCodeMissingCurrentTrack,
				"request carries no current track", err)
			return
		}
		metrics.StageErrors.WithLabelValues("stage2_tracks", models.ErrCodePipeline).Inc()
		respondError(w, r, http.StatusInternalServerError, models.ErrCodePipeline,
			"track fetching failed", err)
		return
	}

	metrics.OptionCount.Observe(float64(len(resp.Options)))
	respondJSON(w, r, http.StatusOK, resp, started)
}

// handleStage3Score scores the seed batch, heals category shortfalls
// with target top tracks when possible, and applies the diversity
// constraints to produce the final option set.
func (s *Server) handleStage3Score(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	defer metrics.ObserveStage("stage3_score", started)

	var req models.Stage3Request
	if !decodeAndValidate(w, r, &req) {
		metrics.StageErrors.WithLabelValues("stage3_score", models.ErrCodeValidation).Inc()
		return
	}

	scored := s.scorer.Score(&req)
	if shortfalls := scoring.CategoryShortfalls(scored); len(shortfalls) > 0 {
		extras := s.scoreShortfallExtras(r, &req, scored)
		scored = scoring.EnsureTargetDiversity(scored, extras)
	}

	sel := scoring.ApplyDiversityConstraints(scored)
	resp := &models.Stage3Response{
		OptionTracks: sel.Selected,
		Debug: &models.StageDebug{
			PoolSize:            len(scored),
			FilteredArtistNames: sel.FilteredArtistNames,
			CategoryCounts:      sel.CategoryCounts,
			GravityZones:        scoring.GravityZones(req.PlayerGravities),
		},
	}
	respondJSON(w, r, http.StatusOK, resp, started)
}

// scoreShortfallExtras fetches and scores extra candidates to fill
// diversity shortfalls: the acting player's target top tracks are the
// cheapest source of closer-leaning seeds. Failures are logged and
// produce no extras; a partial option set is acceptable.
func (s *Server) scoreShortfallExtras(r *http.Request, req *models.Stage3Request, scored []models.CandidateTrackMetrics) []models.CandidateTrackMetrics {
	if s.catalog == nil {
		return nil
	}
	target, ok := req.TargetProfiles[req.CurrentPlayerID]
	if !ok || !models.ValidCatalogID(target.Profile.ID) {
		return nil
	}

	tracks, err := s.catalog.GetTopTracks(r.Context(), bearerToken(r), target.Profile.ID)
	if err != nil {
		s.log.Warn().Err(err).
			Str("artist_id", target.Profile.ID).
			Msg("shortfall extras fetch failed")
		if s.healer != nil {
			s.healer.Enqueue(healing.JobArtistProfile, target.Profile.ID, bearerToken(r))
		}
		return nil
	}

	seen := make(map[string]struct{}, len(scored))
	for i := range scored {
		seen[scored[i].Track.ID] = struct{}{}
	}
	extra := *req
	extra.Seeds = nil
	for _, t := range tracks {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		extra.Seeds = append(extra.Seeds, models.CandidateSeed{
			Track:        t,
			SeedArtistID: target.Profile.ID,
			Source:       models.SourceTargetInsertion,
		})
	}
	if len(extra.Seeds) == 0 {
		return nil
	}
	return s.scorer.Score(&extra)
}

// healthStatus is the health endpoint payload.
type healthStatus struct {
	Status       string `json:"status"`
	ArtistCount  int    `json:"artist_count"`
	GenreCount   int    `json:"genre_count"`
	HealingDepth int    `json:"healing_depth"`
	BreakerState string `json:"breaker_state,omitempty"`
	Sessions     int    `json:"sessions"`
}

// handleHealth reports liveness plus a few cheap readiness signals.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	status := healthStatus{Status: "ok"}

	if s.profiles != nil {
		if n, err := s.profiles.CountArtists(r.Context()); err == nil {
			status.ArtistCount = n
		} else {
			status.Status = "degraded"
		}
		if stats, err := s.profiles.GetGenreStatistics(r.Context()); err == nil {
			status.GenreCount = len(stats)
		}
	}
	if s.healer != nil {
		if depth, err := s.healer.Depth(); err == nil {
			status.HealingDepth = depth
			metrics.HealingQueueDepth.Set(float64(depth))
		}
	}
	if hc, ok := s.catalog.(*catalog.HTTPClient); ok && hc != nil {
		status.BreakerState = hc.BreakerState()
		metrics.SetBreakerState(status.BreakerState)
	}
	if s.tracker != nil {
		status.Sessions = s.tracker.Len()
	}

	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, r, code, status, started)
}
