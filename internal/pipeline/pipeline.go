// Dual Gravity - Competitive Music Discovery Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dualgravity

// Package pipeline implements the per-turn candidate acquisition state
// machine:
//
//	ResolveTargets -> DetermineSeedArtist ->
//	FetchRelatedToCurrent || FetchRelatedToTarget ->
//	BackfillRandom -> FetchTopTracks(retry) -> done
//
// Upstream failures inside a turn are non-fatal: they shrink the pool,
// enqueue healing jobs, and the turn carries on. Only a missing current
// track or an invalid seed artist fails a turn outright.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/dualgravity/internal/cache"
	"github.com/tomtom215/dualgravity/internal/catalog"
	"github.com/tomtom215/dualgravity/internal/gravity"
	"github.com/tomtom215/dualgravity/internal/healing"
	"github.com/tomtom215/dualgravity/internal/logging"
	"github.com/tomtom215/dualgravity/internal/metrics"
	"github.com/tomtom215/dualgravity/internal/models"
	"github.com/tomtom215/dualgravity/internal/store"
)

// Hard-failure sentinels for turn validation.
var (
	ErrMissingCurrentTrack = errors.New("pipeline: playback state has no current track")
	ErrInvalidSeedArtist   = errors.New("pipeline: seed artist id is not a valid catalog id")
)

// Config tunes the acquisition pipeline.
type Config struct {
	// MinTotalArtists is the guaranteed candidate pool size. Default: 100.
	MinTotalArtists int `koanf:"min_total_artists"`
	// RelatedToCurrentCap bounds branch 1. Default: 50.
	RelatedToCurrentCap int `koanf:"related_to_current_cap"`
	// RelatedToTargetCap bounds branch 2, per player. Default: 20.
	RelatedToTargetCap int `koanf:"related_to_target_cap"`
	// DesperationTargetCap replaces RelatedToTargetCap for a player in
	// the desperation zone, widening their path back to the target.
	// Default: 40.
	DesperationTargetCap int `koanf:"desperation_target_cap"`
	// TurnBudget bounds a whole Stage 1 turn. Default: 10s.
	TurnBudget time.Duration `koanf:"turn_budget"`
	// HealingReserve is the leftover budget required before opportunistic
	// healing runs at the end of a turn. Default: 1s.
	HealingReserve time.Duration `koanf:"healing_reserve"`
	// ExplorationRounds is how many early rounds count as the exploration
	// phase. Default: 3.
	ExplorationRounds int `koanf:"exploration_rounds"`

	// Retry tunes Stage 2 shortfall refills.
	Retry RetryPolicy `koanf:"retry"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MinTotalArtists:      100,
		RelatedToCurrentCap:  50,
		RelatedToTargetCap:   20,
		DesperationTargetCap: 40,
		TurnBudget:           10 * time.Second,
		HealingReserve:       time.Second,
		ExplorationRounds:    3,
		Retry:                DefaultRetryPolicy(),
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.MinTotalArtists <= 0 {
		c.MinTotalArtists = d.MinTotalArtists
	}
	if c.RelatedToCurrentCap <= 0 {
		c.RelatedToCurrentCap = d.RelatedToCurrentCap
	}
	if c.RelatedToTargetCap <= 0 {
		c.RelatedToTargetCap = d.RelatedToTargetCap
	}
	if c.DesperationTargetCap <= 0 {
		c.DesperationTargetCap = d.DesperationTargetCap
	}
	if c.TurnBudget <= 0 {
		c.TurnBudget = d.TurnBudget
	}
	if c.HealingReserve <= 0 {
		c.HealingReserve = d.HealingReserve
	}
	if c.ExplorationRounds <= 0 {
		c.ExplorationRounds = d.ExplorationRounds
	}
	c.Retry.applyDefaults()
}

// Acquirer runs Stage 1 and Stage 2 of a turn.
type Acquirer struct {
	cfg      Config
	catalog  catalog.Client
	profiles *store.Store
	cache    *cache.ProfileLRU
	healer   *healing.Queue
	tracker  *gravity.Tracker
	log      zerolog.Logger
}

// NewAcquirer wires the pipeline. All collaborators are required except
// the healer, which may be nil in tests that don't exercise healing.
func NewAcquirer(cfg Config, cat catalog.Client, profiles *store.Store, lru *cache.ProfileLRU, healer *healing.Queue, tracker *gravity.Tracker) *Acquirer {
	cfg.applyDefaults()
	return &Acquirer{
		cfg:      cfg,
		catalog:  cat,
		profiles: profiles,
		cache:    lru,
		healer:   healer,
		tracker:  tracker,
		log:      logging.With().Str("component", "pipeline").Logger(),
	}
}

// AcquireArtists runs Stage 1 for one turn.
func (a *Acquirer) AcquireArtists(ctx context.Context, token string, req *models.Stage1Request) (*models.Stage1Response, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.TurnBudget)
	defer cancel()
	turnStart := time.Now()

	current := req.PlaybackState.CurrentTrack
	if current.ID == "" || current.ArtistID == "" {
		return nil, ErrMissingCurrentTrack
	}
	if !models.ValidCatalogID(current.ArtistID) {
		return nil, ErrInvalidSeedArtist
	}

	// Gravity first: the previous turn's selection category lands before
	// this turn's zone decisions are made.
	gravities := a.tracker.Get(req.SessionID)
	if req.PrevSelectionCategory.Valid() {
		gravities = a.tracker.Apply(req.SessionID, req.PrevSelectionCategory, req.CurrentPlayerID)
	}

	targets := a.resolveTargets(ctx, token, req)

	resp := &models.Stage1Response{
		RelatedToTarget:  make(map[string]models.BranchResult),
		TargetProfiles:   targets,
		SeedArtistID:     current.ArtistID,
		SeedArtistName:   current.ArtistName,
		UpdatedGravities: gravities,
		ExplorationPhase: req.RoundNumber < a.cfg.ExplorationRounds,
		HardConvergenceActive: gravity.HardConvergence(
			gravities.Get(req.CurrentPlayerID), req.RoundNumber),
		Debug: &models.StageDebug{
			GravityZones: map[string]string{
				models.Player1: string(gravity.ZoneFor(gravities.Player1)),
				models.Player2: string(gravity.ZoneFor(gravities.Player2)),
			},
		},
	}

	// Branch 1 and branch 2 run in parallel; Stage 2 never starts until
	// both have landed.
	var (
		wg            sync.WaitGroup
		currentBranch models.BranchResult
		targetBranch  = make(map[string]models.BranchResult, len(targets))
		targetMu      sync.Mutex
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		currentBranch = a.fetchRelatedToCurrent(ctx, token, current.ArtistID)
	}()

	for player := range targets {
		wg.Add(1)
		go func(player string) {
			defer wg.Done()
			branch := a.fetchRelatedToTarget(ctx, token, targets[player],
				gravities.Get(player), req.RoundNumber)
			targetMu.Lock()
			targetBranch[player] = branch
			targetMu.Unlock()
		}(player)
	}
	wg.Wait()

	resp.RelatedToCurrent = currentBranch
	for player, branch := range targetBranch {
		resp.RelatedToTarget[player] = branch
	}

	// Union all branches, then backfill to the minimum pool size.
	seen := make(map[string]struct{})
	add := func(ids []string) {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			resp.ArtistIDs = append(resp.ArtistIDs, id)
		}
	}
	add(currentBranch.ArtistIDs)
	for _, branch := range targetBranch {
		add(branch.ArtistIDs)
	}

	if needed := a.cfg.MinTotalArtists - len(resp.ArtistIDs); needed > 0 {
		random := a.backfillRandom(ctx, needed, resp.ArtistIDs)
		resp.RandomArtists = random
		resp.Debug.BackfillCount = len(random)
		add(random)
	}
	resp.Debug.PoolSize = len(resp.ArtistIDs)

	if len(resp.ArtistIDs) < a.cfg.MinTotalArtists {
		a.log.Warn().
			Int("pool_size", len(resp.ArtistIDs)).
			Int("minimum", a.cfg.MinTotalArtists).
			Msg("candidate pool below minimum, store still warming up")
		resp.Debug.Notes = append(resp.Debug.Notes, "pool below minimum")
	}

	a.healOpportunistically(token, turnStart)

	return resp, nil
}

// resolveTargets loads the full profile for each player target in
// parallel. A failed resolution drops the target for this turn and
// queues a healing job; it never fails the turn.
func (a *Acquirer) resolveTargets(ctx context.Context, token string, req *models.Stage1Request) map[string]models.TargetProfile {
	out := make(map[string]models.TargetProfile)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for player, ref := range req.PlayerTargets {
		if ref == nil || (ref.ArtistID == "" && ref.ArtistName == "") {
			continue
		}
		wg.Add(1)
		go func(player string, ref models.TargetRef) {
			defer wg.Done()
			profile, err := a.resolveTarget(ctx, token, ref)
			if err != nil {
				a.log.Warn().Err(err).
					Str("player", player).
					Str("artist_id", ref.ArtistID).
					Msg("target resolution failed, dropping target for this turn")
				if a.healer != nil {
					a.healer.Enqueue(healing.JobArtistProfile, ref.ArtistID, token)
				}
				return
			}
			mu.Lock()
			out[player] = models.TargetProfile{PlayerID: player, Profile: *profile}
			mu.Unlock()
		}(player, *ref)
	}
	wg.Wait()
	return out
}

// resolveTarget resolves a target reference to a full profile. ID-based
// refs go through the cache hierarchy; name-only refs need a catalog
// search.
func (a *Acquirer) resolveTarget(ctx context.Context, token string, ref models.TargetRef) (*models.ArtistProfile, error) {
	if ref.ArtistID != "" {
		return a.resolveProfile(ctx, token, ref.ArtistID)
	}
	found, err := a.catalog.SearchArtists(ctx, token, ref.ArtistName, 1)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", ref.ArtistName, err)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("search %q: %w", ref.ArtistName, catalog.ErrNotFound)
	}
	p := found[0]
	a.remember(ctx, &p)
	return &p, nil
}

// resolveProfile loads one artist profile: LRU cache, then store, then
// catalog. A catalog hit enriches both cache layers.
func (a *Acquirer) resolveProfile(ctx context.Context, token, artistID string) (*models.ArtistProfile, error) {
	if p, ok := a.cache.Get(artistID); ok {
		metrics.ProfileCacheHits.Inc()
		return p, nil
	}
	metrics.ProfileCacheMisses.Inc()
	if p, err := a.profiles.GetArtistProfile(ctx, artistID); err == nil {
		a.cache.Set(p)
		return p, nil
	}
	p, err := a.catalog.GetArtist(ctx, token, artistID)
	if err != nil {
		return nil, err
	}
	a.remember(ctx, p)
	return p, nil
}

// fetchRelatedToCurrent is branch 1: artists related to the seed.
func (a *Acquirer) fetchRelatedToCurrent(ctx context.Context, token, seedID string) models.BranchResult {
	related, err := a.catalog.GetRelatedArtists(ctx, token, seedID)
	if err != nil {
		a.log.Warn().Err(err).Str("seed", seedID).Msg("related-to-current fetch failed")
		if a.healer != nil {
			a.healer.Enqueue(healing.JobArtistProfile, seedID, token)
		}
		return models.BranchResult{Failed: true}
	}
	if len(related) > a.cfg.RelatedToCurrentCap {
		related = related[:a.cfg.RelatedToCurrentCap]
	}
	return a.branchFromProfiles(ctx, related)
}

// fetchRelatedToTarget is branch 2 for one player. The dead zone skips
// the related-artist fetch; hard convergence appends the target itself
// regardless of zone, so a late round still steers toward the target.
func (a *Acquirer) fetchRelatedToTarget(ctx context.Context, token string, target models.TargetProfile, playerGravity float64, round int) models.BranchResult {
	if gravity.InDeadZone(playerGravity) {
		branch := models.BranchResult{Skipped: true}
		if gravity.HardConvergence(playerGravity, round) {
			branch.ArtistIDs = []string{target.Profile.ID}
		}
		return branch
	}

	related, err := a.catalog.GetRelatedArtists(ctx, token, target.Profile.ID)
	if err != nil {
		a.log.Warn().Err(err).
			Str("target", target.Profile.ID).
			Msg("related-to-target fetch failed")
		if a.healer != nil {
			a.healer.Enqueue(healing.JobArtistProfile, target.Profile.ID, token)
		}
		return models.BranchResult{Failed: true}
	}
	limit := a.cfg.RelatedToTargetCap
	if gravity.ZoneFor(playerGravity) == gravity.ZoneDesperation {
		limit = a.cfg.DesperationTargetCap
	}
	if len(related) > limit {
		related = related[:limit]
	}

	branch := a.branchFromProfiles(ctx, related)
	if gravity.HardConvergence(playerGravity, round) {
		branch.ArtistIDs = appendUnique(branch.ArtistIDs, target.Profile.ID)
	}
	return branch
}

// branchFromProfiles records fetched profiles in both cache layers and
// returns their IDs as a branch result.
func (a *Acquirer) branchFromProfiles(ctx context.Context, profiles []models.ArtistProfile) models.BranchResult {
	ids := make([]string, 0, len(profiles))
	for i := range profiles {
		ids = append(ids, profiles[i].ID)
		a.remember(ctx, &profiles[i])
	}
	return models.BranchResult{ArtistIDs: ids}
}

// backfillRandom tops the pool up from the local store.
func (a *Acquirer) backfillRandom(ctx context.Context, needed int, exclude []string) []string {
	random, err := a.profiles.FetchRandomArtists(ctx, needed, exclude)
	if err != nil {
		a.log.Error().Err(err).Msg("random backfill failed")
		return nil
	}
	ids := make([]string, 0, len(random))
	for i := range random {
		ids = append(ids, random[i].ID)
		a.cache.Set(&random[i])
	}
	return ids
}

// remember enriches both cache layers with a freshly observed profile.
func (a *Acquirer) remember(ctx context.Context, p *models.ArtistProfile) {
	a.cache.Set(p)
	if err := a.profiles.UpsertArtistProfile(ctx, p); err != nil {
		a.log.Warn().Err(err).Str("artist_id", p.ID).Msg("profile upsert failed")
	}
}

// healOpportunistically drains a small healing batch when enough of the
// turn budget is left. It runs detached: the interactive path never
// waits on it.
func (a *Acquirer) healOpportunistically(token string, turnStart time.Time) {
	if a.healer == nil {
		return
	}
	remaining := a.cfg.TurnBudget - time.Since(turnStart)
	if remaining <= a.cfg.HealingReserve {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), remaining-a.cfg.HealingReserve/2)
		defer cancel()
		if _, err := a.healer.ProcessBatch(ctx, token, healing.DefaultBatchSize); err != nil && ctx.Err() == nil {
			a.log.Debug().Err(err).Msg("opportunistic healing pass failed")
		}
	}()
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
