// Dual Gravity - Competitive Music Discovery Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dualgravity

package pipeline

import (
	"context"
	"sort"

	"github.com/tomtom215/dualgravity/internal/gravity"
	"github.com/tomtom215/dualgravity/internal/healing"
	"github.com/tomtom215/dualgravity/internal/models"
)

// TargetOptionCount is the option set size Stage 2 aims for.
const TargetOptionCount = 9

// perCategoryTarget is the ideal per-category share of the option set.
const perCategoryTarget = TargetOptionCount / 3

// RetryPolicy bounds the Stage 2 shortfall refill loop. It is a plain
// value so tests can exercise the refill strategy without any network.
type RetryPolicy struct {
	// MaxAttempts bounds refill rounds after the initial pass. Default: 3.
	MaxAttempts int `koanf:"max_attempts"`
	// TracksPerArtist is how many non-excluded tracks one artist may
	// contribute. Default: 1.
	TracksPerArtist int `koanf:"tracks_per_artist"`
}

// DefaultRetryPolicy returns the documented bounds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, TracksPerArtist: 1}
}

func (p *RetryPolicy) applyDefaults() {
	d := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.TracksPerArtist <= 0 {
		p.TracksPerArtist = d.TracksPerArtist
	}
}

// FetchTracks runs Stage 2: fetch representative tracks for the selected
// artists, excluding anything already played or currently playing. When
// the option set comes up short, backup artists refill it with priority
// on whichever category is furthest under its share, for a bounded
// number of rounds. A partial result is returned rather than looping.
func (a *Acquirer) FetchTracks(ctx context.Context, token string, req *models.Stage2Request) (*models.Stage2Response, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.TurnBudget)
	defer cancel()

	if req.CurrentTrack.ID == "" {
		return nil, ErrMissingCurrentTrack
	}

	exclude := make(map[string]struct{}, len(req.PlayedTrackIDs)+1)
	exclude[req.CurrentTrack.ID] = struct{}{}
	for _, id := range req.PlayedTrackIDs {
		exclude[id] = struct{}{}
	}

	resp := &models.Stage2Response{
		Options: make([]models.CandidateTrack, 0, TargetOptionCount),
		Debug:   &models.StageDebug{},
	}
	usedArtists := make(map[string]struct{})

	a.fillFromArtists(ctx, token, req.SelectedArtists, exclude, usedArtists, models.SourceRelatedTopTracks, resp)

	// From the convergence round on, short sets refill from the player
	// targets before the generic backups.
	targets := targetRefillArtists(req.TargetProfiles)
	if req.RoundNumber >= gravity.ConvergenceRound {
		a.fillFromArtists(ctx, token, targets, exclude, usedArtists, models.SourceTargetInsertion, resp)
		targets = nil
	}

	// Shortfall refill: bounded rounds, category-priority backups first.
	backups := req.BackupArtists
	for attempt := 0; attempt < a.cfg.Retry.MaxAttempts && len(resp.Options) < TargetOptionCount && len(backups) > 0; attempt++ {
		ordered := orderByShortfall(backups, resp.Options)
		take := TargetOptionCount - len(resp.Options)
		if take > len(ordered) {
			take = len(ordered)
		}
		a.fillFromArtists(ctx, token, ordered[:take], exclude, usedArtists, models.SourceRelatedTopTracks, resp)
		backups = ordered[take:]
	}

	// Last resort in earlier rounds: the targets themselves.
	if len(resp.Options) < TargetOptionCount {
		a.fillFromArtists(ctx, token, targets, exclude, usedArtists, models.SourceTargetInsertion, resp)
	}

	resp.Debug.CategoryCounts = countCategories(resp.Options)
	if len(resp.Options) < TargetOptionCount {
		a.log.Warn().
			Int("options", len(resp.Options)).
			Int("target", TargetOptionCount).
			Msg("track fetch produced a partial option set")
		resp.Debug.Notes = append(resp.Debug.Notes, "partial option set")
	}
	return resp, nil
}

// fillFromArtists fetches top tracks per artist and appends the first
// non-excluded tracks. Fetch failures enqueue healing and move on.
func (a *Acquirer) fillFromArtists(ctx context.Context, token string, artists []models.SelectedArtist, exclude map[string]struct{}, usedArtists map[string]struct{}, source models.SeedSource, resp *models.Stage2Response) {
	for _, sel := range artists {
		if len(resp.Options) >= TargetOptionCount || ctx.Err() != nil {
			return
		}
		if _, ok := usedArtists[sel.ArtistID]; ok {
			continue
		}
		usedArtists[sel.ArtistID] = struct{}{}

		tracks, err := a.catalog.GetTopTracks(ctx, token, sel.ArtistID)
		if err != nil {
			a.log.Warn().Err(err).Str("artist_id", sel.ArtistID).Msg("top-track fetch failed")
			if a.healer != nil {
				a.healer.Enqueue(healing.JobArtistProfile, sel.ArtistID, token)
			}
			continue
		}

		contributed := 0
		for i := range tracks {
			if contributed >= a.cfg.Retry.TracksPerArtist || len(resp.Options) >= TargetOptionCount {
				break
			}
			if _, played := exclude[tracks[i].ID]; played {
				continue
			}
			exclude[tracks[i].ID] = struct{}{}
			resp.Options = append(resp.Options, models.CandidateTrack{
				Track:    tracks[i],
				Category: sel.Category,
				Source:   source,
			})
			contributed++
		}
	}
}

// targetRefillArtists presents the player targets as refill candidates,
// ordered by player ID so refill order is stable across turns.
func targetRefillArtists(targets map[string]models.TargetProfile) []models.SelectedArtist {
	players := make([]string, 0, len(targets))
	for player := range targets {
		players = append(players, player)
	}
	sort.Strings(players)

	out := make([]models.SelectedArtist, 0, len(targets))
	for _, player := range players {
		t := targets[player]
		out = append(out, models.SelectedArtist{
			ArtistID:   t.Profile.ID,
			ArtistName: t.Profile.Name,
			Category:   models.CategoryCloser,
		})
	}
	return out
}

// orderByShortfall sorts backup artists so those refilling the most
// underfilled category come first. Order within a category is preserved.
func orderByShortfall(backups []models.SelectedArtist, options []models.CandidateTrack) []models.SelectedArtist {
	counts := map[models.SelectionCategory]int{}
	for _, o := range options {
		counts[o.Category]++
	}
	shortfall := func(c models.SelectionCategory) int {
		s := perCategoryTarget - counts[c]
		if s < 0 {
			return 0
		}
		return s
	}

	ordered := make([]models.SelectedArtist, 0, len(backups))
	remaining := make([]models.SelectedArtist, len(backups))
	copy(remaining, backups)

	for len(remaining) > 0 {
		// Pick the category with the largest current shortfall.
		best := 0
		for i := 1; i < len(remaining); i++ {
			if shortfall(remaining[i].Category) > shortfall(remaining[best].Category) {
				best = i
			}
		}
		pick := remaining[best]
		ordered = append(ordered, pick)
		remaining = append(remaining[:best], remaining[best+1:]...)
		counts[pick.Category]++
	}
	return ordered
}

func countCategories(options []models.CandidateTrack) map[string]int {
	counts := make(map[string]int)
	for _, o := range options {
		counts[string(o.Category)]++
	}
	return counts
}
