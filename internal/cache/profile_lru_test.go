// Dual Gravity - Competitive Music Discovery Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dualgravity

package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/tomtom215/dualgravity/internal/models"
)

func profile(id string) *models.ArtistProfile {
	return &models.ArtistProfile{ID: id, Name: "artist-" + id}
}

func TestProfileLRUGetSet(t *testing.T) {
	c := NewProfileLRU(10, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("Get on empty cache should miss")
	}

	p := profile("4iV5W9uYEdYUVa79Axb7Rh")
	c.Set(p)

	got, ok := c.Get(p.ID)
	if !ok {
		t.Fatal("Get after Set should hit")
	}
	if got.Name != p.Name {
		t.Errorf("got %q, want %q", got.Name, p.Name)
	}
}

func TestProfileLRUEviction(t *testing.T) {
	c := NewProfileLRU(3, time.Minute)

	for i := 0; i < 3; i++ {
		c.Set(profile(fmt.Sprintf("artist%019d", i)))
	}

	// Touch artist0 so artist1 becomes least recently used.
	if _, ok := c.Get(fmt.Sprintf("artist%019d", 0)); !ok {
		t.Fatal("artist0 should be cached")
	}

	c.Set(profile(fmt.Sprintf("artist%019d", 3)))

	if _, ok := c.Get(fmt.Sprintf("artist%019d", 1)); ok {
		t.Error("least recently used entry should have been evicted")
	}
	if _, ok := c.Get(fmt.Sprintf("artist%019d", 0)); !ok {
		t.Error("recently used entry should survive eviction")
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
}

func TestProfileLRUExpiry(t *testing.T) {
	c := NewProfileLRU(10, 10*time.Millisecond)

	c.Set(profile("expiringArtist0000001A"))
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("expiringArtist0000001A"); ok {
		t.Error("expired entry should miss")
	}
}

func TestProfileLRUSnapshot(t *testing.T) {
	c := NewProfileLRU(10, time.Minute)
	c.Set(profile("a"))
	c.Set(profile("b"))

	snap := c.Snapshot([]string{"a", "b", "c"})
	if len(snap) != 2 {
		t.Errorf("Snapshot returned %d entries, want 2", len(snap))
	}
	if _, ok := snap["c"]; ok {
		t.Error("Snapshot should not invent missing entries")
	}
}

func TestProfileLRUStats(t *testing.T) {
	c := NewProfileLRU(10, time.Minute)
	c.Set(profile("a"))

	c.Get("a")
	c.Get("nope")

	stats := c.GetStats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("stats = %+v, want 1 hit / 1 miss", stats)
	}
}

func TestProfileLRUIgnoresNil(t *testing.T) {
	c := NewProfileLRU(10, time.Minute)
	c.Set(nil)
	c.Set(&models.ArtistProfile{})
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}
