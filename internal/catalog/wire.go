// Dual Gravity - Competitive Music Discovery Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dualgravity

package catalog

import (
	"strconv"
	"strings"

	"github.com/tomtom215/dualgravity/internal/models"
)

// wireArtist is the catalog API's artist shape.
type wireArtist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Genres     []string `json:"genres"`
	Popularity int      `json:"popularity"`
	Followers  struct {
		Total int `json:"total"`
	} `json:"followers"`
}

func (w wireArtist) toProfile() models.ArtistProfile {
	return models.ArtistProfile{
		ID:         w.ID,
		Name:       w.Name,
		Genres:     w.Genres,
		Popularity: w.Popularity,
		Followers:  w.Followers.Total,
	}
}

// wireTrack is the catalog API's track shape.
type wireTrack struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Popularity int    `json:"popularity"`
	DurationMS int    `json:"duration_ms"`
	Album      struct {
		Name        string `json:"name"`
		ReleaseDate string `json:"release_date"`
	} `json:"album"`
	Artists []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"artists"`
}

func (w wireTrack) toTrack() models.TrackDetails {
	t := models.TrackDetails{
		ID:          w.ID,
		Name:        w.Name,
		AlbumName:   w.Album.Name,
		Popularity:  w.Popularity,
		ReleaseYear: releaseYear(w.Album.ReleaseDate),
		DurationMS:  w.DurationMS,
	}
	if len(w.Artists) > 0 {
		t.ArtistID = w.Artists[0].ID
		t.ArtistName = w.Artists[0].Name
	}
	return t
}

// releaseYear extracts the year from a release date that may be a full
// date, year-month, or bare year. Unparseable input yields 0 (unknown).
func releaseYear(date string) int {
	year, _, _ := strings.Cut(date, "-")
	if len(year) != 4 {
		return 0
	}
	n, err := strconv.Atoi(year)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
