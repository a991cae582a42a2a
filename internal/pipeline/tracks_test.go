// Dual Gravity - Competitive Music Discovery Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dualgravity

package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/tomtom215/dualgravity/internal/models"
)

func artistID(prefix string, i int) string {
	return fmt.Sprintf("%s%0*d", prefix, 22-len(prefix), i)
}

func selected(id string, cat models.SelectionCategory) models.SelectedArtist {
	return models.SelectedArtist{ArtistID: id, ArtistName: "a-" + id, Category: cat}
}

// tracksFor gives an artist n top tracks with predictable IDs.
func tracksFor(cat *fakeCatalog, id string, n int) {
	for i := 0; i < n; i++ {
		cat.topTracks[id] = append(cat.topTracks[id], models.TrackDetails{
			ID:       fmt.Sprintf("%s-track-%d", id, i),
			Name:     "Track",
			ArtistID: id,
		})
	}
}

func stage2Request(selectedArtists, backups []models.SelectedArtist) *models.Stage2Request {
	return &models.Stage2Request{
		SelectedArtists: selectedArtists,
		BackupArtists:   backups,
		CurrentTrack:    models.TrackDetails{ID: "cur-track", ArtistID: seedArtistID},
		RoundNumber:     1,
	}
}

func TestFetchTracksFullSet(t *testing.T) {
	cat := catalogWithTarget()
	var sel []models.SelectedArtist
	cats := []models.SelectionCategory{models.CategoryCloser, models.CategoryNeutral, models.CategoryFurther}
	for i := 0; i < 9; i++ {
		id := artistID("sel", i)
		tracksFor(cat, id, 3)
		sel = append(sel, selected(id, cats[i%3]))
	}

	acq, _ := testAcquirer(t, cat, 0)
	resp, err := acq.FetchTracks(context.Background(), "token", stage2Request(sel, nil))
	if err != nil {
		t.Fatalf("FetchTracks() error = %v", err)
	}
	if len(resp.Options) != TargetOptionCount {
		t.Errorf("options = %d, want %d", len(resp.Options), TargetOptionCount)
	}
	for _, c := range []string{"closer", "neutral", "further"} {
		if resp.Debug.CategoryCounts[c] != 3 {
			t.Errorf("category %s = %d, want 3", c, resp.Debug.CategoryCounts[c])
		}
	}
}

func TestFetchTracksExcludesPlayedAndCurrent(t *testing.T) {
	cat := catalogWithTarget()
	id := artistID("sel", 0)
	tracksFor(cat, id, 3)

	acq, _ := testAcquirer(t, cat, 0)
	req := stage2Request([]models.SelectedArtist{selected(id, models.CategoryCloser)}, nil)
	req.PlayedTrackIDs = []string{id + "-track-0"}
	req.CurrentTrack.ID = id + "-track-1"

	resp, err := acq.FetchTracks(context.Background(), "token", req)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Options) != 1 {
		t.Fatalf("options = %d, want 1", len(resp.Options))
	}
	if got := resp.Options[0].Track.ID; got != id+"-track-2" {
		t.Errorf("option track = %s, want the only non-excluded one", got)
	}
}

func TestFetchTracksBackupRefillPrioritizesShortCategory(t *testing.T) {
	cat := catalogWithTarget()

	// Selected artists only cover closer and neutral.
	var sel []models.SelectedArtist
	for i := 0; i < 3; i++ {
		id := artistID("cls", i)
		tracksFor(cat, id, 1)
		sel = append(sel, selected(id, models.CategoryCloser))
	}
	for i := 0; i < 3; i++ {
		id := artistID("neu", i)
		tracksFor(cat, id, 1)
		sel = append(sel, selected(id, models.CategoryNeutral))
	}

	// Backups offer one further artist and several more closers.
	furtherID := artistID("fur", 0)
	tracksFor(cat, furtherID, 1)
	backups := []models.SelectedArtist{selected(furtherID, models.CategoryFurther)}
	for i := 3; i < 8; i++ {
		id := artistID("cls", i)
		tracksFor(cat, id, 1)
		backups = append(backups, selected(id, models.CategoryCloser))
	}

	acq, _ := testAcquirer(t, cat, 0)
	resp, err := acq.FetchTracks(context.Background(), "token", stage2Request(sel, backups))
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Options) != TargetOptionCount {
		t.Fatalf("options = %d, want %d", len(resp.Options), TargetOptionCount)
	}
	if resp.Debug.CategoryCounts["further"] != 1 {
		t.Errorf("further count = %d, want the underfilled category refilled first", resp.Debug.CategoryCounts["further"])
	}
}

func TestFetchTracksTargetRefillWhenShort(t *testing.T) {
	cat := catalogWithTarget()
	id := artistID("sel", 0)
	tracksFor(cat, id, 1)
	tracksFor(cat, targetArtistID, 2)

	acq, _ := testAcquirer(t, cat, 0)
	req := stage2Request([]models.SelectedArtist{selected(id, models.CategoryCloser)}, nil)
	req.TargetProfiles = map[string]models.TargetProfile{
		models.Player1: {PlayerID: models.Player1, Profile: models.ArtistProfile{ID: targetArtistID, Name: "Target"}},
	}

	resp, err := acq.FetchTracks(context.Background(), "token", req)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Options) != 2 {
		t.Fatalf("options = %d, want selected plus one target track", len(resp.Options))
	}
	insertions := 0
	for _, o := range resp.Options {
		if o.Source == models.SourceTargetInsertion {
			insertions++
			if o.Track.ArtistID != targetArtistID {
				t.Errorf("insertion artist = %s, want %s", o.Track.ArtistID, targetArtistID)
			}
		}
	}
	if insertions != 1 {
		t.Errorf("target insertions = %d, want 1", insertions)
	}
}

func TestFetchTracksConvergenceRoundPrefersTargets(t *testing.T) {
	cat := catalogWithTarget()
	tracksFor(cat, targetArtistID, 1)

	// Backups alone could fill the shortfall; at the convergence round
	// the target still lands first.
	backupID := artistID("bak", 0)
	tracksFor(cat, backupID, 3)

	acq, _ := testAcquirer(t, cat, 0)
	req := stage2Request(nil, []models.SelectedArtist{selected(backupID, models.CategoryNeutral)})
	req.RoundNumber = 10
	req.TargetProfiles = map[string]models.TargetProfile{
		models.Player1: {PlayerID: models.Player1, Profile: models.ArtistProfile{ID: targetArtistID, Name: "Target"}},
	}

	resp, err := acq.FetchTracks(context.Background(), "token", req)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Options) == 0 {
		t.Fatal("no options returned")
	}
	first := resp.Options[0]
	if first.Source != models.SourceTargetInsertion || first.Track.ArtistID != targetArtistID {
		t.Errorf("first option = %s from %s, want a target insertion", first.Track.ArtistID, first.Source)
	}
}

func TestFetchTracksPartialResultOnFailure(t *testing.T) {
	cat := catalogWithTarget()
	cat.failAll = true

	var sel []models.SelectedArtist
	for i := 0; i < 9; i++ {
		sel = append(sel, selected(artistID("sel", i), models.CategoryCloser))
	}

	acq, _ := testAcquirer(t, cat, 0)
	resp, err := acq.FetchTracks(context.Background(), "token", stage2Request(sel, nil))
	if err != nil {
		t.Fatalf("FetchTracks() error = %v, want partial result not error", err)
	}
	if len(resp.Options) != 0 {
		t.Errorf("options = %d, want 0 when every fetch fails", len(resp.Options))
	}
	found := false
	for _, note := range resp.Debug.Notes {
		if note == "partial option set" {
			found = true
		}
	}
	if !found {
		t.Error("partial result not noted in debug output")
	}
}

func TestFetchTracksMissingCurrentTrack(t *testing.T) {
	acq, _ := testAcquirer(t, catalogWithTarget(), 0)
	req := stage2Request(nil, nil)
	req.CurrentTrack = models.TrackDetails{}

	if _, err := acq.FetchTracks(context.Background(), "token", req); err == nil {
		t.Error("expected hard failure for missing current track")
	}
}

func TestOrderByShortfall(t *testing.T) {
	options := []models.CandidateTrack{
		{Category: models.CategoryCloser},
		{Category: models.CategoryCloser},
		{Category: models.CategoryCloser},
		{Category: models.CategoryNeutral},
	}
	backups := []models.SelectedArtist{
		selected(artistID("cls", 0), models.CategoryCloser),
		selected(artistID("neu", 0), models.CategoryNeutral),
		selected(artistID("fur", 0), models.CategoryFurther),
	}

	ordered := orderByShortfall(backups, options)
	if ordered[0].Category != models.CategoryFurther {
		t.Errorf("first refill = %v, want further (shortfall 3)", ordered[0].Category)
	}
	if ordered[1].Category != models.CategoryNeutral {
		t.Errorf("second refill = %v, want neutral (shortfall 2)", ordered[1].Category)
	}
}
