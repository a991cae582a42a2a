// Dual Gravity - Competitive Music Discovery Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dualgravity

// Package similarity computes attraction scores between artists and
// candidate tracks.
//
// Two levels of similarity exist:
//
//   - Artist similarity ("attraction") compares two artist profiles
//     using genre-graph similarity, relationship lookups, popularity
//     proximity, and follower proximity. This is the signal gravity
//     updates and selection categories are derived from.
//
//   - Track similarity extends artist similarity with track popularity
//     and release-era proximity against the currently playing track,
//     and is used for full candidate-track scoring.
//
// All sub-scores are clamped to [0,1]. Missing popularity, follower,
// or release-year data yields an exactly neutral 0.5 for that factor,
// never an error. A missing profile on either side short-circuits the
// whole comparison to zero.
package similarity
