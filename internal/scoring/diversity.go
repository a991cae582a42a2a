// Dual Gravity - Competitive Music Discovery Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dualgravity

package scoring

import (
	"sort"

	"github.com/tomtom215/dualgravity/internal/models"
)

// TargetOptions is the option count presented to the player each turn.
const TargetOptions = 9

// perCategoryTarget is the ideal split: 3 closer, 3 neutral, 3 further.
const perCategoryTarget = TargetOptions / 3

// Selection is the result of the diversity pass.
type Selection struct {
	// Selected holds up to TargetOptions tracks, best-score first within
	// each category.
	Selected []models.CandidateTrackMetrics
	// FilteredArtistNames records which artists were scored but dropped,
	// for debug only.
	FilteredArtistNames []string
	// CategoryCounts is the per-category tally of the selected set.
	CategoryCounts map[string]int
}

// ApplyDiversityConstraints selects up to TargetOptions tracks aiming
// for an even closer/neutral/further split. Short categories hand their
// slots to the best remaining tracks regardless of category. An empty
// pool returns an empty selection, never an error.
func ApplyDiversityConstraints(metrics []models.CandidateTrackMetrics) Selection {
	byCategory := map[models.SelectionCategory][]models.CandidateTrackMetrics{}
	for _, m := range metrics {
		byCategory[m.SelectionCategory] = append(byCategory[m.SelectionCategory], m)
	}
	for cat := range byCategory {
		sortByFinalScore(byCategory[cat])
	}

	selected := make([]models.CandidateTrackMetrics, 0, TargetOptions)
	var leftovers []models.CandidateTrackMetrics

	for _, cat := range []models.SelectionCategory{models.CategoryCloser, models.CategoryNeutral, models.CategoryFurther} {
		pool := byCategory[cat]
		take := perCategoryTarget
		if take > len(pool) {
			take = len(pool)
		}
		selected = append(selected, pool[:take]...)
		leftovers = append(leftovers, pool[take:]...)
	}

	// Fill shortfall with the best remaining tracks, category-blind.
	if len(selected) < TargetOptions && len(leftovers) > 0 {
		sortByFinalScore(leftovers)
		need := TargetOptions - len(selected)
		if need > len(leftovers) {
			need = len(leftovers)
		}
		selected = append(selected, leftovers[:need]...)
		leftovers = leftovers[need:]
	}

	sel := Selection{
		Selected:       selected,
		CategoryCounts: map[string]int{},
	}
	for _, m := range selected {
		sel.CategoryCounts[string(m.SelectionCategory)]++
	}

	chosen := make(map[string]struct{}, len(selected))
	for _, m := range selected {
		chosen[m.Track.ID] = struct{}{}
	}
	for _, m := range metrics {
		if _, ok := chosen[m.Track.ID]; !ok {
			sel.FilteredArtistNames = append(sel.FilteredArtistNames, m.ArtistName)
		}
	}
	return sel
}

// CategoryShortfalls returns how many tracks each category is missing
// against its per-category target, largest shortfall first. Used to
// prioritize backup-artist refills and diversity injection.
func CategoryShortfalls(metrics []models.CandidateTrackMetrics) []models.SelectionCategory {
	counts := map[models.SelectionCategory]int{}
	for _, m := range metrics {
		counts[m.SelectionCategory]++
	}

	cats := []models.SelectionCategory{models.CategoryCloser, models.CategoryNeutral, models.CategoryFurther}
	sort.SliceStable(cats, func(i, j int) bool {
		return perCategoryTarget-counts[cats[i]] > perCategoryTarget-counts[cats[j]]
	})

	var short []models.SelectionCategory
	for _, c := range cats {
		if counts[c] < perCategoryTarget {
			short = append(short, c)
		}
	}
	return short
}

// EnsureTargetDiversity merges extra scored candidates into a pool that
// was too homogeneous to satisfy the category split. Extras only join
// for categories that are short, and never duplicate a track already in
// the pool.
func EnsureTargetDiversity(pool, extras []models.CandidateTrackMetrics) []models.CandidateTrackMetrics {
	short := CategoryShortfalls(pool)
	if len(short) == 0 || len(extras) == 0 {
		return pool
	}
	wanted := make(map[models.SelectionCategory]struct{}, len(short))
	for _, c := range short {
		wanted[c] = struct{}{}
	}

	seen := make(map[string]struct{}, len(pool))
	for _, m := range pool {
		seen[m.Track.ID] = struct{}{}
	}

	for _, m := range extras {
		if _, ok := wanted[m.SelectionCategory]; !ok {
			continue
		}
		if _, dup := seen[m.Track.ID]; dup {
			continue
		}
		pool = append(pool, m)
		seen[m.Track.ID] = struct{}{}
	}
	return pool
}

func sortByFinalScore(metrics []models.CandidateTrackMetrics) {
	sort.SliceStable(metrics, func(i, j int) bool {
		return metrics[i].FinalScore > metrics[j].FinalScore
	})
}
