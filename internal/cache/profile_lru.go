// Dual Gravity - Competitive Music Discovery Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dualgravity

// Package cache provides the in-process artist-profile cache shared by
// the pipeline stages. Within a turn the cache is treated as a
// read-mostly snapshot: each stage fetches once and passes references,
// so a profile is looked up upstream at most once per turn.
package cache

import (
	"sync"
	"time"

	"github.com/tomtom215/dualgravity/internal/models"
)

// entry is a node in the LRU's doubly-linked list.
type entry struct {
	key       string
	profile   *models.ArtistProfile
	prev      *entry
	next      *entry
	expiresAt time.Time
}

// ProfileLRU is a thread-safe Least Recently Used cache of artist
// profiles with TTL support. It provides O(1) Get, Set, and eviction
// using a doubly-linked list for ordering and a hashmap for lookup.
type ProfileLRU struct {
	mu sync.RWMutex

	// capacity is the maximum number of entries
	capacity int

	// ttl is the time-to-live for entries
	ttl time.Duration

	// items maps artist IDs to linked list nodes for O(1) lookup
	items map[string]*entry

	// head and tail are sentinel nodes for the doubly-linked list.
	// head.next is the most recently used, tail.prev the least.
	head *entry
	tail *entry

	hits   int64
	misses int64
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// NewProfileLRU creates a profile cache with the given capacity and TTL.
func NewProfileLRU(capacity int, ttl time.Duration) *ProfileLRU {
	if capacity <= 0 {
		capacity = 10000
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	c := &ProfileLRU{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*entry, capacity),
		head:     &entry{},
		tail:     &entry{},
	}

	c.head.next = c.tail
	c.tail.prev = c.head

	return c
}

// Get returns the cached profile for an artist ID, or nil and false if
// absent or expired. Expired entries are removed lazily.
func (c *ProfileLRU) Get(artistID string) (*models.ArtistProfile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[artistID]
	if !ok {
		c.misses++
		return nil, false
	}

	if time.Now().After(e.expiresAt) {
		c.removeLocked(e)
		c.misses++
		return nil, false
	}

	c.moveToFrontLocked(e)
	c.hits++
	return e.profile, true
}

// Set stores a profile, evicting the least recently used entry when at
// capacity. A nil profile is ignored.
func (c *ProfileLRU) Set(profile *models.ArtistProfile) {
	if profile == nil || profile.ID == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[profile.ID]; ok {
		e.profile = profile
		e.expiresAt = time.Now().Add(c.ttl)
		c.moveToFrontLocked(e)
		return
	}

	if len(c.items) >= c.capacity {
		c.removeLocked(c.tail.prev)
	}

	e := &entry{
		key:       profile.ID,
		profile:   profile,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.items[profile.ID] = e
	c.insertFrontLocked(e)
}

// Snapshot returns the cached profiles for the given IDs in one pass,
// keyed by artist ID. Missing and expired entries are simply absent.
func (c *ProfileLRU) Snapshot(artistIDs []string) map[string]*models.ArtistProfile {
	out := make(map[string]*models.ArtistProfile, len(artistIDs))
	for _, id := range artistIDs {
		if p, ok := c.Get(id); ok {
			out[id] = p
		}
	}
	return out
}

// Len returns the current number of entries, expired ones included.
func (c *ProfileLRU) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// GetStats returns hit/miss counters.
func (c *ProfileLRU) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{Hits: c.hits, Misses: c.misses, Entries: len(c.items)}
}

// Clear removes all entries.
func (c *ProfileLRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*entry, c.capacity)
	c.head.next = c.tail
	c.tail.prev = c.head
}

// insertFrontLocked places e right after head. Must hold mu.
func (c *ProfileLRU) insertFrontLocked(e *entry) {
	e.next = c.head.next
	e.prev = c.head
	c.head.next.prev = e
	c.head.next = e
}

// moveToFrontLocked promotes e to most recently used. Must hold mu.
func (c *ProfileLRU) moveToFrontLocked(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	c.insertFrontLocked(e)
}

// removeLocked unlinks e and deletes it from the map. Must hold mu.
func (c *ProfileLRU) removeLocked(e *entry) {
	if e == c.head || e == c.tail {
		return
	}
	e.prev.next = e.next
	e.next.prev = e.prev
	delete(c.items, e.key)
}
