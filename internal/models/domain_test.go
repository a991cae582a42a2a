// Dual Gravity - Competitive Music Discovery Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dualgravity

package models

import "testing"

func TestValidCatalogID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"valid 22-char alphanumeric", "4iV5W9uYEdYUVa79Axb7Rh", true},
		{"valid all digits", "1234567890123456789012", true},
		{"uuid-shaped database id rejected", "550e8400-e29b-41d4-a716-446655440000", false},
		{"too short", "4iV5W9uYEdYUVa79Axb7R", false},
		{"too long", "4iV5W9uYEdYUVa79Axb7RhX", false},
		{"hyphen inside", "4iV5W9uY-dYUVa79Axb7Rh", false},
		{"underscore inside", "4iV5W9uY_dYUVa79Axb7Rh", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidCatalogID(tt.id); got != tt.want {
				t.Errorf("ValidCatalogID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestBandForPopularity(t *testing.T) {
	tests := []struct {
		pop  int
		want PopularityBand
	}{
		{0, BandLow},
		{39, BandLow},
		{40, BandMid},
		{69, BandMid},
		{70, BandHigh},
		{100, BandHigh},
	}

	for _, tt := range tests {
		if got := BandForPopularity(tt.pop); got != tt.want {
			t.Errorf("BandForPopularity(%d) = %q, want %q", tt.pop, got, tt.want)
		}
	}
}

func TestSameArtistName(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"exact", "Radiohead", "Radiohead", true},
		{"case insensitive", "radiohead", "RADIOHEAD", true},
		{"trimmed", "  Radiohead ", "Radiohead", true},
		{"different", "Radiohead", "Muse", false},
		{"empty never matches", "", "", false},
		{"one empty", "Radiohead", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameArtistName(tt.a, tt.b); got != tt.want {
				t.Errorf("SameArtistName(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestPlayerGravitiesGetSet(t *testing.T) {
	g := PlayerGravities{Player1: 0.3, Player2: 0.5}

	if got := g.Get(Player1); got != 0.3 {
		t.Errorf("Get(player1) = %f, want 0.3", got)
	}
	if got := g.Get(Player2); got != 0.5 {
		t.Errorf("Get(player2) = %f, want 0.5", got)
	}

	g2 := g.Set(Player2, 0.6)
	if g2.Player2 != 0.6 {
		t.Errorf("Set(player2, 0.6).Player2 = %f, want 0.6", g2.Player2)
	}
	if g.Player2 != 0.5 {
		t.Errorf("Set mutated receiver: Player2 = %f, want 0.5", g.Player2)
	}
}

func TestSelectionCategoryValid(t *testing.T) {
	for _, c := range []SelectionCategory{CategoryCloser, CategoryNeutral, CategoryFurther} {
		if !c.Valid() {
			t.Errorf("%q should be valid", c)
		}
	}
	if SelectionCategory("sideways").Valid() {
		t.Error("unknown category should be invalid")
	}
}
