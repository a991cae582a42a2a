// Dual Gravity - Competitive Music Discovery Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dualgravity

package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/tomtom215/dualgravity/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("NewMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedProfiles(t *testing.T, s *Store, n int) []models.ArtistProfile {
	t.Helper()
	ctx := context.Background()
	out := make([]models.ArtistProfile, 0, n)
	for i := 0; i < n; i++ {
		p := models.ArtistProfile{
			ID:         fmt.Sprintf("artist%016d", i),
			Name:       fmt.Sprintf("Artist %d", i),
			Genres:     []string{"rock", "indie rock"},
			Popularity: 40 + i%40,
			Followers:  1000 * (i + 1),
		}
		if err := s.UpsertArtistProfile(ctx, &p); err != nil {
			t.Fatalf("UpsertArtistProfile() error = %v", err)
		}
		out = append(out, p)
	}
	return out
}

func TestUpsertAndGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	p := models.ArtistProfile{
		ID:         "4iV5W9uYEdYUVa79Axb7Rh",
		Name:       "Test Artist",
		Genres:     []string{"shoegaze"},
		Popularity: 61,
		Followers:  250000,
	}
	if err := s.UpsertArtistProfile(ctx, &p); err != nil {
		t.Fatalf("UpsertArtistProfile() error = %v", err)
	}

	got, err := s.GetArtistProfile(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetArtistProfile() error = %v", err)
	}
	if got.Name != p.Name || got.Popularity != p.Popularity || got.Followers != p.Followers {
		t.Errorf("GetArtistProfile() = %+v, want %+v", got, p)
	}
	if len(got.Genres) != 1 || got.Genres[0] != "shoegaze" {
		t.Errorf("Genres = %v, want [shoegaze]", got.Genres)
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	p := models.ArtistProfile{ID: "4iV5W9uYEdYUVa79Axb7Rh", Name: "A"}
	for i := 0; i < 3; i++ {
		if err := s.UpsertArtistProfile(ctx, &p); err != nil {
			t.Fatalf("upsert %d error = %v", i, err)
		}
	}

	n, err := s.CountArtists(ctx)
	if err != nil {
		t.Fatalf("CountArtists() error = %v", err)
	}
	if n != 1 {
		t.Errorf("CountArtists() = %d, want 1 after repeated upserts", n)
	}
}

func TestUpsertRefreshes(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	p := models.ArtistProfile{ID: "4iV5W9uYEdYUVa79Axb7Rh", Name: "Old", Popularity: 10}
	if err := s.UpsertArtistProfile(ctx, &p); err != nil {
		t.Fatal(err)
	}
	p.Name, p.Popularity = "New", 80
	if err := s.UpsertArtistProfile(ctx, &p); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetArtistProfile(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "New" || got.Popularity != 80 {
		t.Errorf("refresh lost: %+v", got)
	}
}

func TestGetMissingProfile(t *testing.T) {
	s := testStore(t)
	_, err := s.GetArtistProfile(context.Background(), "missing0000000000000mm")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestFetchRandomArtists(t *testing.T) {
	s := testStore(t)
	seeded := seedProfiles(t, s, 20)
	ctx := context.Background()

	got, err := s.FetchRandomArtists(ctx, 10, nil)
	if err != nil {
		t.Fatalf("FetchRandomArtists() error = %v", err)
	}
	if len(got) != 10 {
		t.Errorf("len = %d, want 10", len(got))
	}

	// Exclusions never come back.
	exclude := []string{seeded[0].ID, seeded[1].ID, seeded[2].ID}
	got, err = s.FetchRandomArtists(ctx, 20, exclude)
	if err != nil {
		t.Fatalf("FetchRandomArtists() error = %v", err)
	}
	if len(got) != 17 {
		t.Errorf("len = %d, want 17 with 3 excluded", len(got))
	}
	for _, p := range got {
		for _, ex := range exclude {
			if p.ID == ex {
				t.Errorf("excluded artist %s returned", ex)
			}
		}
	}

	// Asking for more than exists returns what's there.
	got, err = s.FetchRandomArtists(ctx, 100, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 20 {
		t.Errorf("len = %d, want 20 (all rows)", len(got))
	}
}

func TestGetGenreStatistics(t *testing.T) {
	s := testStore(t)
	seedProfiles(t, s, 5)
	ctx := context.Background()

	stats, err := s.GetGenreStatistics(ctx)
	if err != nil {
		t.Fatalf("GetGenreStatistics() error = %v", err)
	}
	if stats["rock"] != 5 || stats["indie rock"] != 5 {
		t.Errorf("stats = %v, want rock=5 indie rock=5", stats)
	}
}
