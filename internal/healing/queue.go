// Dual Gravity - Competitive Music Discovery Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dualgravity

// Package healing implements the lazy enrichment queue. Upstream fetch
// failures during a turn enqueue a durable job here; jobs are drained
// opportunistically in leftover turn time and by a background worker,
// never on the interactive path.
package healing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/dualgravity/internal/catalog"
	"github.com/tomtom215/dualgravity/internal/logging"
	"github.com/tomtom215/dualgravity/internal/metrics"
	"github.com/tomtom215/dualgravity/internal/models"
	"github.com/tomtom215/dualgravity/internal/store"
)

// JobType names what a healing job should backfill.
type JobType string

// Job types.
const (
	JobArtistProfile JobType = "artist_profile"
	JobGenreBackfill JobType = "genre_backfill"
)

// Job is one pending enrichment. Jobs are keyed by type and catalog ID,
// so re-enqueueing the same gap overwrites rather than duplicates.
type Job struct {
	Type       JobType   `json:"type"`
	CatalogID  string    `json:"catalog_id"`
	Attempts   int       `json:"attempts"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

func (j Job) key() []byte {
	return []byte(jobKeyPrefix + string(j.Type) + ":" + j.CatalogID)
}

const (
	jobKeyPrefix = "healjob:"

	// wakeTopic is the in-process wake-up channel. The message payload is
	// empty; the bearer token rides in metadata and is never persisted.
	wakeTopic = "healing.enqueued"

	tokenMetadataKey = "token"

	// DefaultBatchSize is the number of jobs drained per opportunistic pass.
	DefaultBatchSize = 2

	// MaxAttempts bounds how often a failing job is retried before it is
	// dropped for good.
	MaxAttempts = 3
)

// Queue is the durable healing outbox. Enqueue is fire-and-forget and
// safe to call from the interactive path; draining happens elsewhere.
type Queue struct {
	db      *badger.DB
	pubsub  *gochannel.GoChannel
	catalog catalog.Client
	profile *store.Store
	log     zerolog.Logger
}

// NewQueue creates a healing queue over an open badger database.
func NewQueue(db *badger.DB, cat catalog.Client, profiles *store.Store) *Queue {
	return &Queue{
		db:      db,
		pubsub:  gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NopLogger{}),
		catalog: cat,
		profile: profiles,
		log:     logging.With().Str("component", "healing").Logger(),
	}
}

// Enqueue appends a job. It never returns an error and never blocks the
// caller beyond a single badger write: enqueue failures are logged and
// dropped, because a lost healing job only delays enrichment.
func (q *Queue) Enqueue(jobType JobType, catalogID, token string) {
	if !models.ValidCatalogID(catalogID) {
		q.log.Debug().Str("id", catalogID).Msg("skipping healing job for invalid catalog id")
		return
	}

	job := Job{Type: jobType, CatalogID: catalogID, EnqueuedAt: time.Now().UTC()}
	data, err := json.Marshal(job)
	if err != nil {
		q.log.Error().Err(err).Msg("failed to encode healing job")
		return
	}

	err = q.db.Update(func(txn *badger.Txn) error {
		// Keep the first enqueue's attempt count if the job already exists.
		if item, err := txn.Get(job.key()); err == nil {
			var existing Job
			if verr := item.Value(func(val []byte) error { return json.Unmarshal(val, &existing) }); verr == nil {
				return nil // already queued, nothing to do
			}
		}
		return txn.Set(job.key(), data)
	})
	if err != nil {
		q.log.Error().Err(err).Str("id", catalogID).Msg("failed to enqueue healing job")
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), nil)
	msg.Metadata.Set(tokenMetadataKey, token)
	if err := q.pubsub.Publish(wakeTopic, msg); err != nil {
		// The durable job survives; the worker's ticker will find it.
		q.log.Debug().Err(err).Msg("healing wake-up publish failed")
	}
}

// Depth returns the number of pending jobs.
func (q *Queue) Depth() (int, error) {
	var n int
	err := q.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(jobKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("healing queue depth: %w", err)
	}
	return n, nil
}

// ProcessBatch drains up to batchSize jobs using the given bearer token.
// Each job refreshes its artist profile from the catalog and upserts the
// result; reprocessing a healed job is a harmless upsert. Jobs that keep
// failing are dropped after MaxAttempts. Returns how many jobs were
// completed (healed or dropped).
func (q *Queue) ProcessBatch(ctx context.Context, token string, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	jobs, err := q.peek(batchSize)
	if err != nil {
		return 0, err
	}

	done := 0
	for _, job := range jobs {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		if q.heal(ctx, job, token) {
			done++
		}
	}
	return done, nil
}

// peek loads up to n jobs without removing them.
func (q *Queue) peek(n int) ([]Job, error) {
	var jobs []Job
	err := q.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(jobKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix) && len(jobs) < n; it.Next() {
			var job Job
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &job) }); err != nil {
				continue
			}
			jobs = append(jobs, job)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("healing queue peek: %w", err)
	}
	return jobs, nil
}

// heal runs one job. Returns true when the job left the queue, either
// healed or dropped as exhausted.
func (q *Queue) heal(ctx context.Context, job Job, token string) bool {
	profile, err := q.catalog.GetArtist(ctx, token, job.CatalogID)
	if err == nil {
		err = q.profile.UpsertArtistProfile(ctx, profile)
	}

	if err == nil {
		q.remove(job)
		metrics.HealingJobs.WithLabelValues("healed").Inc()
		q.log.Debug().Str("id", job.CatalogID).Str("type", string(job.Type)).Msg("healed")
		return true
	}

	// Permanent gaps are not worth retrying.
	if errors.Is(err, catalog.ErrNotFound) {
		q.remove(job)
		metrics.HealingJobs.WithLabelValues("dropped").Inc()
		q.log.Debug().Str("id", job.CatalogID).Msg("healing target no longer exists, dropping")
		return true
	}

	job.Attempts++
	if job.Attempts >= MaxAttempts {
		q.remove(job)
		metrics.HealingJobs.WithLabelValues("dropped").Inc()
		q.log.Warn().Err(err).Str("id", job.CatalogID).Int("attempts", job.Attempts).
			Msg("healing job exhausted, dropping")
		return true
	}
	metrics.HealingJobs.WithLabelValues("retried").Inc()

	data, merr := json.Marshal(job)
	if merr != nil {
		q.remove(job)
		return true
	}
	if uerr := q.db.Update(func(txn *badger.Txn) error { return txn.Set(job.key(), data) }); uerr != nil {
		q.log.Error().Err(uerr).Str("id", job.CatalogID).Msg("failed to record healing attempt")
	}
	return false
}

func (q *Queue) remove(job Job) {
	if err := q.db.Update(func(txn *badger.Txn) error { return txn.Delete(job.key()) }); err != nil {
		q.log.Error().Err(err).Str("id", job.CatalogID).Msg("failed to remove healing job")
	}
}

// Subscribe returns the wake-up message stream for the background worker.
func (q *Queue) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return q.pubsub.Subscribe(ctx, wakeTopic)
}

// Close shuts the wake-up channel down. The badger database is owned by
// the caller and stays open.
func (q *Queue) Close() error {
	return q.pubsub.Close()
}
