// Dual Gravity - Competitive Music Discovery Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dualgravity

package healing

import (
	"context"
	"errors"
	"testing"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/dualgravity/internal/catalog"
	"github.com/tomtom215/dualgravity/internal/models"
	"github.com/tomtom215/dualgravity/internal/store"
)

// fakeCatalog serves canned artists and records failures to inject.
type fakeCatalog struct {
	artists map[string]*models.ArtistProfile
	fail    map[string]error
	calls   int
}

func (f *fakeCatalog) GetArtist(ctx context.Context, token, id string) (*models.ArtistProfile, error) {
	f.calls++
	if err, ok := f.fail[id]; ok {
		return nil, err
	}
	if p, ok := f.artists[id]; ok {
		return p, nil
	}
	return nil, catalog.ErrNotFound
}

func (f *fakeCatalog) GetTrack(ctx context.Context, token, id string) (*models.TrackDetails, error) {
	return nil, catalog.ErrNotFound
}

func (f *fakeCatalog) GetRelatedArtists(ctx context.Context, token, id string) ([]models.ArtistProfile, error) {
	return nil, nil
}

func (f *fakeCatalog) GetTopTracks(ctx context.Context, token, id string) ([]models.TrackDetails, error) {
	return nil, nil
}

func (f *fakeCatalog) SearchArtists(ctx context.Context, token, query string, limit int) ([]models.ArtistProfile, error) {
	return nil, nil
}

func testQueue(t *testing.T, cat catalog.Client) (*Queue, *store.Store) {
	t.Helper()

	opts := badger.DefaultOptions(t.TempDir()).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("badger.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	profiles, err := store.NewMemory()
	if err != nil {
		t.Fatalf("store.NewMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = profiles.Close() })

	q := NewQueue(db, cat, profiles)
	t.Cleanup(func() { _ = q.Close() })
	return q, profiles
}

func TestEnqueueAndProcess(t *testing.T) {
	id := "4iV5W9uYEdYUVa79Axb7Rh"
	cat := &fakeCatalog{artists: map[string]*models.ArtistProfile{
		id: {ID: id, Name: "Healed Artist", Genres: []string{"rock"}, Popularity: 50, Followers: 1000},
	}}
	q, profiles := testQueue(t, cat)
	ctx := context.Background()

	q.Enqueue(JobArtistProfile, id, "token")

	depth, err := q.Depth()
	if err != nil {
		t.Fatal(err)
	}
	if depth != 1 {
		t.Fatalf("Depth() = %d, want 1", depth)
	}

	done, err := q.ProcessBatch(ctx, "token", 2)
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if done != 1 {
		t.Errorf("ProcessBatch() done = %d, want 1", done)
	}

	got, err := profiles.GetArtistProfile(ctx, id)
	if err != nil {
		t.Fatalf("healed profile not stored: %v", err)
	}
	if got.Name != "Healed Artist" {
		t.Errorf("stored profile = %+v", got)
	}

	if depth, _ = q.Depth(); depth != 0 {
		t.Errorf("Depth() after heal = %d, want 0", depth)
	}
}

func TestEnqueueDeduplicates(t *testing.T) {
	q, _ := testQueue(t, &fakeCatalog{})
	id := "4iV5W9uYEdYUVa79Axb7Rh"

	q.Enqueue(JobArtistProfile, id, "token")
	q.Enqueue(JobArtistProfile, id, "token")
	q.Enqueue(JobGenreBackfill, id, "token")

	depth, err := q.Depth()
	if err != nil {
		t.Fatal(err)
	}
	if depth != 2 {
		t.Errorf("Depth() = %d, want 2 (same type+id deduplicated)", depth)
	}
}

func TestEnqueueRejectsInvalidID(t *testing.T) {
	q, _ := testQueue(t, &fakeCatalog{})

	q.Enqueue(JobArtistProfile, "550e8400-e29b-41d4-a716-446655440000", "token")

	if depth, _ := q.Depth(); depth != 0 {
		t.Errorf("Depth() = %d, want 0 for UUID-shaped id", depth)
	}
}

func TestFailingJobDroppedAfterMaxAttempts(t *testing.T) {
	id := "4iV5W9uYEdYUVa79Axb7Rh"
	cat := &fakeCatalog{fail: map[string]error{id: errors.New("upstream down")}}
	q, _ := testQueue(t, cat)
	ctx := context.Background()

	q.Enqueue(JobArtistProfile, id, "token")

	for i := 0; i < MaxAttempts; i++ {
		if _, err := q.ProcessBatch(ctx, "token", 2); err != nil {
			t.Fatal(err)
		}
	}

	if depth, _ := q.Depth(); depth != 0 {
		t.Errorf("Depth() = %d, want 0 after %d failed attempts", depth, MaxAttempts)
	}
	if cat.calls != MaxAttempts {
		t.Errorf("catalog calls = %d, want %d", cat.calls, MaxAttempts)
	}
}

func TestMissingArtistDroppedImmediately(t *testing.T) {
	q, _ := testQueue(t, &fakeCatalog{})
	ctx := context.Background()

	q.Enqueue(JobArtistProfile, "gone0000000000000000gg", "token")

	done, err := q.ProcessBatch(ctx, "token", 2)
	if err != nil {
		t.Fatal(err)
	}
	if done != 1 {
		t.Errorf("done = %d, want 1 (dropped as permanent gap)", done)
	}
	if depth, _ := q.Depth(); depth != 0 {
		t.Errorf("Depth() = %d, want 0", depth)
	}
}

func TestProcessBatchRespectsBatchSize(t *testing.T) {
	cat := &fakeCatalog{artists: map[string]*models.ArtistProfile{}}
	ids := []string{
		"aaaaaaaaaaaaaaaaaaaaaa",
		"bbbbbbbbbbbbbbbbbbbbbb",
		"cccccccccccccccccccccc",
	}
	for _, id := range ids {
		cat.artists[id] = &models.ArtistProfile{ID: id, Name: id}
	}
	q, _ := testQueue(t, cat)
	ctx := context.Background()

	for _, id := range ids {
		q.Enqueue(JobArtistProfile, id, "token")
	}

	done, err := q.ProcessBatch(ctx, "token", DefaultBatchSize)
	if err != nil {
		t.Fatal(err)
	}
	if done != DefaultBatchSize {
		t.Errorf("done = %d, want %d", done, DefaultBatchSize)
	}
	if depth, _ := q.Depth(); depth != 1 {
		t.Errorf("Depth() = %d, want 1 remaining", depth)
	}
}
