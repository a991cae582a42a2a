// Dual Gravity - Competitive Music Discovery Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dualgravity

package similarity

import "strings"

// sharedTokenWeight is the fallback score when two genre labels share a
// word ("indie rock" vs "rock") without an explicit graph edge.
const sharedTokenWeight = 0.6

// GenreGraph scores genre-list similarity through a weighted adjacency
// table rather than plain set overlap, so "indie rock" and "shoegaze"
// count as near-matches instead of total misses.
type GenreGraph struct {
	edges map[string]map[string]float64
}

// NewGenreGraph builds a graph seeded with the default genre adjacency
// table. The table is intentionally small; unlisted pairs fall back to
// token overlap.
func NewGenreGraph() *GenreGraph {
	g := &GenreGraph{edges: make(map[string]map[string]float64)}
	for _, e := range defaultGenreEdges {
		g.addEdge(e.a, e.b, e.w)
	}
	return g
}

type genreEdge struct {
	a, b string
	w    float64
}

// defaultGenreEdges is the seed adjacency table. Weights express how
// interchangeable two genres are for discovery purposes, not musicological
// taxonomy.
var defaultGenreEdges = []genreEdge{
	{"rock", "indie rock", 0.85},
	{"rock", "alternative rock", 0.85},
	{"rock", "classic rock", 0.8},
	{"rock", "hard rock", 0.8},
	{"rock", "punk", 0.65},
	{"indie rock", "indie pop", 0.75},
	{"indie rock", "shoegaze", 0.7},
	{"alternative rock", "grunge", 0.8},
	{"hard rock", "metal", 0.75},
	{"metal", "heavy metal", 0.9},
	{"metal", "metalcore", 0.75},
	{"punk", "pop punk", 0.8},
	{"punk", "hardcore", 0.75},
	{"pop", "indie pop", 0.75},
	{"pop", "synth-pop", 0.75},
	{"pop", "dance pop", 0.85},
	{"pop", "electropop", 0.8},
	{"pop", "k-pop", 0.65},
	{"hip hop", "rap", 0.95},
	{"hip hop", "trap", 0.8},
	{"hip hop", "r&b", 0.65},
	{"rap", "trap", 0.8},
	{"r&b", "soul", 0.85},
	{"r&b", "neo soul", 0.8},
	{"soul", "funk", 0.75},
	{"funk", "disco", 0.7},
	{"electronic", "house", 0.8},
	{"electronic", "techno", 0.8},
	{"electronic", "edm", 0.85},
	{"electronic", "ambient", 0.6},
	{"electronic", "drum and bass", 0.7},
	{"house", "techno", 0.75},
	{"house", "disco", 0.65},
	{"edm", "dance pop", 0.65},
	{"jazz", "blues", 0.7},
	{"jazz", "bossa nova", 0.65},
	{"jazz", "soul", 0.6},
	{"blues", "classic rock", 0.6},
	{"folk", "singer-songwriter", 0.8},
	{"folk", "country", 0.7},
	{"folk", "americana", 0.8},
	{"country", "americana", 0.8},
	{"classical", "soundtrack", 0.6},
	{"classical", "ambient", 0.5},
	{"latin", "reggaeton", 0.8},
	{"latin", "salsa", 0.75},
	{"reggae", "ska", 0.75},
	{"reggae", "dub", 0.8},
}

func (g *GenreGraph) addEdge(a, b string, w float64) {
	a, b = normalizeGenre(a), normalizeGenre(b)
	if g.edges[a] == nil {
		g.edges[a] = make(map[string]float64)
	}
	if g.edges[b] == nil {
		g.edges[b] = make(map[string]float64)
	}
	g.edges[a][b] = w
	g.edges[b][a] = w
}

func normalizeGenre(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// PairScore scores a single genre pair: 1.0 for an exact match, the edge
// weight for a graph neighbor, a token-overlap fallback otherwise.
func (g *GenreGraph) PairScore(a, b string) float64 {
	a, b = normalizeGenre(a), normalizeGenre(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1.0
	}
	if w, ok := g.edges[a][b]; ok {
		return w
	}
	if sharesToken(a, b) {
		return sharedTokenWeight
	}
	return 0
}

// sharesToken reports whether two genre labels share any word.
func sharesToken(a, b string) bool {
	bTokens := strings.Fields(b)
	for _, ta := range strings.Fields(a) {
		for _, tb := range bTokens {
			if ta == tb {
				return true
			}
		}
	}
	return false
}

// Similarity computes average-max similarity between two genre lists:
// for each genre on one side, take its best match on the other side,
// then average. Both directions are averaged so the result is symmetric.
// Either list being empty yields 0.
func (g *GenreGraph) Similarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	return (g.directional(a, b) + g.directional(b, a)) / 2
}

func (g *GenreGraph) directional(from, to []string) float64 {
	var sum float64
	for _, fa := range from {
		var best float64
		for _, tb := range to {
			if s := g.PairScore(fa, tb); s > best {
				best = s
				if best == 1.0 {
					break
				}
			}
		}
		sum += best
	}
	return sum / float64(len(from))
}
