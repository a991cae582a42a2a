// Dual Gravity - Competitive Music Discovery Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dualgravity

// Package store persists enriched artist profiles in an embedded DuckDB
// database. It is the source of the random-backfill pool and the sink
// for every profile observed during a turn, so pool quality improves the
// longer the engine runs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/goccy/go-json"

	"github.com/tomtom215/dualgravity/internal/logging"
	"github.com/tomtom215/dualgravity/internal/models"
)

// ErrNotFound is returned when no profile exists for an artist ID.
var ErrNotFound = errors.New("store: artist profile not found")

// Config tunes the embedded database.
type Config struct {
	// Path is the database file. ":memory:" runs fully in-memory.
	Path string `koanf:"path"`
	// MaxMemory bounds DuckDB's memory use, e.g. "512MB". Default: 512MB.
	MaxMemory string `koanf:"max_memory"`
	// Threads caps DuckDB worker threads. Default: NumCPU.
	Threads int `koanf:"threads"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Path:      "data/dualgravity.db",
		MaxMemory: "512MB",
	}
}

// Store wraps the DuckDB connection and profile access methods.
type Store struct {
	conn *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS artist_profiles (
	id         VARCHAR PRIMARY KEY,
	name       VARCHAR NOT NULL,
	genres     VARCHAR NOT NULL DEFAULT '[]',
	popularity INTEGER NOT NULL DEFAULT 0,
	followers  BIGINT  NOT NULL DEFAULT 0,
	updated_at TIMESTAMP NOT NULL
);
`

// New opens (or creates) the database at cfg.Path and initializes the
// schema.
func New(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		cfg.Path = DefaultConfig().Path
	}
	if cfg.MaxMemory == "" {
		cfg.MaxMemory = DefaultConfig().MaxMemory
	}
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	if dir := filepath.Dir(cfg.Path); cfg.Path != ":memory:" && dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", dir, err)
		}
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, threads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// DuckDB is an in-process engine; a single writer connection avoids
	// transaction conflicts between concurrent upserts.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	log := logging.With().Str("component", "store").Logger()
	log.Info().
		Str("path", cfg.Path).
		Msg("artist profile store opened")

	return &Store{conn: conn}, nil
}

// NewMemory opens an in-memory store, used by tests.
func NewMemory() (*Store, error) {
	return New(Config{Path: ":memory:"})
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// GetArtistProfile loads one profile by catalog ID.
func (s *Store) GetArtistProfile(ctx context.Context, id string) (*models.ArtistProfile, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT id, name, genres, popularity, followers FROM artist_profiles WHERE id = ?`, id)

	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get artist profile %s: %w", id, err)
	}
	return p, nil
}

// UpsertArtistProfile inserts or refreshes a profile. Reapplying the
// same profile is a no-op, which keeps healing jobs idempotent.
func (s *Store) UpsertArtistProfile(ctx context.Context, p *models.ArtistProfile) error {
	if p == nil || p.ID == "" {
		return nil
	}
	genres, err := json.Marshal(p.Genres)
	if err != nil {
		return fmt.Errorf("upsert artist profile %s: encode genres: %w", p.ID, err)
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO artist_profiles (id, name, genres, popularity, followers, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			genres = excluded.genres,
			popularity = excluded.popularity,
			followers = excluded.followers,
			updated_at = excluded.updated_at`,
		p.ID, p.Name, string(genres), p.Popularity, p.Followers, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert artist profile %s: %w", p.ID, err)
	}
	return nil
}

// FetchRandomArtists returns up to limit random profiles, excluding the
// given IDs. It backs the minimum-pool guarantee, so an empty result is
// valid when the store is still cold.
func (s *Store) FetchRandomArtists(ctx context.Context, limit int, excludeIDs []string) ([]models.ArtistProfile, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `SELECT id, name, genres, popularity, followers FROM artist_profiles`
	args := make([]any, 0, len(excludeIDs)+1)
	if len(excludeIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(excludeIDs)), ",")
		query += ` WHERE id NOT IN (` + placeholders + `)`
		for _, id := range excludeIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY random() LIMIT ?`
	args = append(args, limit)

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch random artists: %w", err)
	}
	defer rows.Close()

	var out []models.ArtistProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("fetch random artists: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch random artists: %w", err)
	}
	return out, nil
}

// CountArtists returns the number of stored profiles.
func (s *Store) CountArtists(ctx context.Context) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, `SELECT count(*) FROM artist_profiles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count artists: %w", err)
	}
	return n, nil
}

// GetGenreStatistics returns how many stored artists carry each genre.
// Genres are stored as JSON text, so aggregation happens here rather
// than in SQL.
func (s *Store) GetGenreStatistics(ctx context.Context) (map[string]int, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT genres FROM artist_profiles`)
	if err != nil {
		return nil, fmt.Errorf("genre statistics: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("genre statistics: %w", err)
		}
		var genres []string
		if err := json.Unmarshal([]byte(raw), &genres); err != nil {
			continue
		}
		for _, g := range genres {
			g = strings.ToLower(strings.TrimSpace(g))
			if g != "" {
				stats[g]++
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("genre statistics: %w", err)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*models.ArtistProfile, error) {
	var (
		p   models.ArtistProfile
		raw string
	)
	if err := row.Scan(&p.ID, &p.Name, &raw, &p.Popularity, &p.Followers); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(raw), &p.Genres); err != nil {
		p.Genres = nil
	}
	return &p, nil
}
