// Dual Gravity - Competitive Music Discovery Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dualgravity

// Package gravity holds the per-player influence state and its update
// rules. Gravity is the only long-lived mutable state in the engine:
// everything else is rebuilt fresh each turn.
package gravity

import (
	"math"

	"github.com/tomtom215/dualgravity/internal/models"
)

// Limits bound every gravity value the engine ever stores or returns.
type Limits struct {
	Min float64
	Max float64
}

// DefaultLimits is the documented gravity range.
var DefaultLimits = Limits{Min: 0.0, Max: 0.8}

// Default is the gravity assigned to a player with no history. It sits
// inside the dead zone on purpose: a fresh player has to earn target
// seeding by making closer selections.
const Default = 0.3

// Step is the gravity delta applied per directional selection. Small
// enough that several rounds are needed to cross a zone boundary.
const Step = 0.05

// Zone thresholds. See Zone for their semantics.
const (
	desperationBelow = 0.2
	goodFrom         = 0.5
	highAbove        = 0.59
)

// ConvergenceRound is the round number at which hard convergence
// activates regardless of gravity.
const ConvergenceRound = 10

// Zone is the downstream interpretation of a gravity value.
type Zone string

const (
	// ZoneDesperation (< 0.2): the player is losing badly; target-related
	// candidates are fetched aggressively to help them catch up.
	ZoneDesperation Zone = "desperation"
	// ZoneDead (0.2-0.49): target-artist seeding is skipped entirely to
	// avoid runaway easy wins.
	ZoneDead Zone = "dead_zone"
	// ZoneGood (>= 0.5): target-related candidates are fetched normally.
	ZoneGood Zone = "good"
	// ZoneHigh (> 0.59): the target artist itself is injected into the
	// pool as a near-guaranteed win path.
	ZoneHigh Zone = "high"
)

// ZoneFor classifies a gravity value. NaN classifies as the default's zone.
func ZoneFor(g float64) Zone {
	if math.IsNaN(g) {
		g = Default
	}
	switch {
	case g > highAbove:
		return ZoneHigh
	case g >= goodFrom:
		return ZoneGood
	case g >= desperationBelow:
		return ZoneDead
	default:
		return ZoneDesperation
	}
}

// InDeadZone reports whether target seeding must be suppressed for g.
func InDeadZone(g float64) bool {
	return ZoneFor(g) == ZoneDead
}

// HardConvergence reports whether the target artist itself must be
// injected into the candidate pool: high gravity, or a late round.
func HardConvergence(g float64, round int) bool {
	return ZoneFor(g) == ZoneHigh || round >= ConvergenceRound
}

// Update applies one selection outcome to a player's gravity and returns
// the new map. A closer selection raises the acting player's gravity by
// Step, further lowers it by Step, and neutral nudges it half a step back
// toward Default. NaN inputs are replaced with Default before the update.
// The result is always clamped into DefaultLimits.
func Update(prev models.PlayerGravities, category models.SelectionCategory, playerID string) models.PlayerGravities {
	g := sanitize(prev.Get(playerID))

	switch category {
	case models.CategoryCloser:
		g += Step
	case models.CategoryFurther:
		g -= Step
	case models.CategoryNeutral:
		g = nudgeTowardDefault(g)
	}

	return sanitizeAll(prev.Set(playerID, clamp(g)))
}

// nudgeTowardDefault moves g half a step toward Default without
// overshooting it.
func nudgeTowardDefault(g float64) float64 {
	const half = Step / 2
	diff := Default - g
	if math.Abs(diff) <= half {
		return Default
	}
	if diff > 0 {
		return g + half
	}
	return g - half
}

func sanitize(g float64) float64 {
	if math.IsNaN(g) {
		return Default
	}
	return clamp(g)
}

func sanitizeAll(gravities models.PlayerGravities) models.PlayerGravities {
	gravities.Player1 = sanitize(gravities.Player1)
	gravities.Player2 = sanitize(gravities.Player2)
	return gravities
}

func clamp(g float64) float64 {
	if g < DefaultLimits.Min {
		return DefaultLimits.Min
	}
	if g > DefaultLimits.Max {
		return DefaultLimits.Max
	}
	return g
}
