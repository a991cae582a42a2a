// Dual Gravity - Competitive Music Discovery Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dualgravity

package similarity

import (
	"math"
	"testing"

	"github.com/tomtom215/dualgravity/internal/models"
)

func testProfile(id, name string, genres []string, pop, followers int) *models.ArtistProfile {
	return &models.ArtistProfile{
		ID:         id,
		Name:       name,
		Genres:     genres,
		Popularity: pop,
		Followers:  followers,
	}
}

func TestArtistSimilarityIdentity(t *testing.T) {
	c := NewCalculator(nil)
	a := testProfile("4iV5W9uYEdYUVa79Axb7Rh", "A", []string{"rock"}, 70, 100000)

	res := c.ArtistSimilarity(a, a, nil)
	if res.Score != 1.0 {
		t.Errorf("identity score = %v, want 1.0", res.Score)
	}
	comps := []float64{
		res.Components.Genre,
		res.Components.Relationship,
		res.Components.TrackPop,
		res.Components.ArtistPop,
		res.Components.Era,
		res.Components.Followers,
	}
	for i, v := range comps {
		if v != 1.0 {
			t.Errorf("identity component %d = %v, want 1.0", i, v)
		}
	}
}

func TestArtistSimilarityMissingProfile(t *testing.T) {
	c := NewCalculator(nil)
	a := testProfile("4iV5W9uYEdYUVa79Axb7Rh", "A", []string{"rock"}, 70, 100000)

	for _, res := range []Result{
		c.ArtistSimilarity(nil, a, nil),
		c.ArtistSimilarity(a, nil, nil),
		c.ArtistSimilarity(nil, nil, nil),
	} {
		if res.Score != 0 {
			t.Errorf("missing profile score = %v, want 0", res.Score)
		}
		if res.Components != (models.ScoreComponents{}) {
			t.Errorf("missing profile components = %+v, want zero", res.Components)
		}
	}
}

func TestArtistSimilaritySymmetry(t *testing.T) {
	c := NewCalculator(nil)
	a := testProfile("aaaaaaaaaaaaaaaaaaaaaa", "A", []string{"indie rock", "shoegaze"}, 55, 120000)
	b := testProfile("bbbbbbbbbbbbbbbbbbbbbb", "B", []string{"rock", "grunge"}, 70, 900000)

	ab := c.ArtistSimilarity(a, b, nil)
	ba := c.ArtistSimilarity(b, a, nil)
	if math.Abs(ab.Score-ba.Score) > 1e-12 {
		t.Errorf("sim(A,B)=%v != sim(B,A)=%v", ab.Score, ba.Score)
	}
}

func TestArtistSimilarityBounds(t *testing.T) {
	c := NewCalculator(nil)
	profiles := []*models.ArtistProfile{
		testProfile("aaaaaaaaaaaaaaaaaaaaaa", "A", []string{"rock"}, 100, 50000000),
		testProfile("bbbbbbbbbbbbbbbbbbbbbb", "B", []string{"classical"}, 1, 10),
		testProfile("cccccccccccccccccccccc", "C", nil, 0, 0),
	}
	for _, a := range profiles {
		for _, b := range profiles {
			res := c.ArtistSimilarity(a, b, nil)
			if res.Score < 0 || res.Score > 1 {
				t.Errorf("sim(%s,%s) = %v out of [0,1]", a.Name, b.Name, res.Score)
			}
		}
	}
}

func TestArtistSimilarityNeutralDefaults(t *testing.T) {
	c := NewCalculator(nil)
	known := testProfile("aaaaaaaaaaaaaaaaaaaaaa", "A", []string{"rock"}, 70, 100000)
	unknown := testProfile("bbbbbbbbbbbbbbbbbbbbbb", "B", []string{"rock"}, 0, 0)

	res := c.ArtistSimilarity(known, unknown, nil)
	if res.Components.ArtistPop != 0.5 {
		t.Errorf("ArtistPop with missing popularity = %v, want exactly 0.5", res.Components.ArtistPop)
	}
	if res.Components.Followers != 0.5 {
		t.Errorf("Followers with missing count = %v, want exactly 0.5", res.Components.Followers)
	}
}

func TestRelationshipScore(t *testing.T) {
	c := NewCalculator(nil)
	a := testProfile("aaaaaaaaaaaaaaaaaaaaaa", "A", []string{"rock"}, 70, 100000)
	b := testProfile("bbbbbbbbbbbbbbbbbbbbbb", "B", []string{"jazz"}, 70, 100000)

	related := RelatedSet{}
	related.Add(a.ID, b.ID)

	withEdge := c.ArtistSimilarity(a, b, related)
	if withEdge.Components.Relationship != 1.0 {
		t.Errorf("related-edge relationship = %v, want 1.0", withEdge.Components.Relationship)
	}

	// Reverse orientation still counts.
	reversed := c.ArtistSimilarity(b, a, related)
	if reversed.Components.Relationship != 1.0 {
		t.Errorf("reverse-edge relationship = %v, want 1.0", reversed.Components.Relationship)
	}

	noEdge := c.ArtistSimilarity(a, b, nil)
	if noEdge.Components.Relationship < 0.3 || noEdge.Components.Relationship > 1.0 {
		t.Errorf("fallback relationship = %v, want within [0.3, 1.0]", noEdge.Components.Relationship)
	}
}

func TestFollowerSimilarityLogScale(t *testing.T) {
	// A 1000x follower gap maps to exactly zero follower similarity.
	a := testProfile("aaaaaaaaaaaaaaaaaaaaaa", "A", nil, 50, 1000)
	b := testProfile("bbbbbbbbbbbbbbbbbbbbbb", "B", nil, 50, 1000000)
	if got := followerSimilarity(a, b); got != 0 {
		t.Errorf("1000x follower gap similarity = %v, want 0", got)
	}

	same := testProfile("cccccccccccccccccccccc", "C", nil, 50, 1000)
	if got := followerSimilarity(a, same); got != 1.0 {
		t.Errorf("equal follower similarity = %v, want 1.0", got)
	}
}

func TestGenreGraphSimilarity(t *testing.T) {
	g := NewGenreGraph()

	tests := []struct {
		name string
		a, b []string
		min  float64
		max  float64
	}{
		{"exact match", []string{"rock"}, []string{"rock"}, 1.0, 1.0},
		{"graph neighbors", []string{"rock"}, []string{"indie rock"}, 0.7, 1.0},
		{"token overlap", []string{"norwegian black metal"}, []string{"metal"}, 0.5, 0.7},
		{"unrelated", []string{"classical"}, []string{"trap"}, 0, 0},
		{"empty side", []string{"rock"}, nil, 0, 0},
		{"both empty", nil, nil, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.Similarity(tt.a, tt.b)
			if got < tt.min || got > tt.max {
				t.Errorf("Similarity(%v, %v) = %v, want within [%v, %v]", tt.a, tt.b, got, tt.min, tt.max)
			}
			if rev := g.Similarity(tt.b, tt.a); rev != got {
				t.Errorf("genre similarity not symmetric: %v vs %v", got, rev)
			}
		})
	}
}

func TestTrackSimilarity(t *testing.T) {
	c := NewCalculator(nil)
	target := testProfile("tttttttttttttttttttttt", "Target", []string{"rock"}, 70, 500000)
	artist := testProfile("aaaaaaaaaaaaaaaaaaaaaa", "A", []string{"indie rock"}, 60, 200000)

	current := &models.TrackDetails{ID: "cur", Popularity: 60, ReleaseYear: 2010}
	candidate := &models.TrackDetails{ID: "cand", ArtistID: artist.ID, Popularity: 65, ReleaseYear: 2012}

	res := c.TrackSimilarity(candidate, artist, current, target, nil)
	if res.Score <= 0 || res.Score > 1 {
		t.Errorf("track similarity = %v, want in (0,1]", res.Score)
	}
	if res.Components.Era <= 0.5 {
		t.Errorf("era similarity for 2-year gap = %v, want above neutral", res.Components.Era)
	}

	// Missing release year on the current track is neutral, not zero.
	noYear := &models.TrackDetails{ID: "cur2", Popularity: 60}
	res2 := c.TrackSimilarity(candidate, artist, noYear, target, nil)
	if res2.Components.Era != 0.5 {
		t.Errorf("era with missing year = %v, want exactly 0.5", res2.Components.Era)
	}
}
