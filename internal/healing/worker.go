// Dual Gravity - Competitive Music Discovery Scoring Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dualgravity

package healing

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/dualgravity/internal/logging"
)

// WorkerConfig tunes the background drain loop.
type WorkerConfig struct {
	// BatchSize is jobs per drain pass. Default: DefaultBatchSize.
	BatchSize int `koanf:"batch_size"`
	// Interval is the fallback drain period when no wake-ups arrive.
	// Default: 30s.
	Interval time.Duration `koanf:"interval"`
}

// DefaultWorkerConfig returns the drain loop defaults.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		BatchSize: DefaultBatchSize,
		Interval:  30 * time.Second,
	}
}

// Worker drains the healing queue in the background. It wakes on queue
// activity and on a timer, so jobs enqueued while no turns are running
// still get healed eventually.
//
// Wake-up messages carry the enqueuing turn's bearer token; timer passes
// reuse the most recent token seen. Until a first token arrives the
// worker can only wait.
type Worker struct {
	queue *Queue
	cfg   WorkerConfig
	log   zerolog.Logger
}

// NewWorker creates a worker over the queue. Suture supervises it via
// Serve.
func NewWorker(queue *Queue, cfg WorkerConfig) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	return &Worker{
		queue: queue,
		cfg:   cfg,
		log:   logging.With().Str("component", "healing").Str("service", "healer").Logger(),
	}
}

// String names the service for supervisor logs.
func (w *Worker) String() string { return "healing-worker" }

// Serve implements the suture.Service interface.
func (w *Worker) Serve(ctx context.Context) error {
	wakeups, err := w.queue.Subscribe(ctx)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.log.Info().
		Int("batch_size", w.cfg.BatchSize).
		Dur("interval", w.cfg.Interval).
		Msg("healing worker running")

	var lastToken string
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("healing worker shutting down")
			return ctx.Err()

		case msg, ok := <-wakeups:
			if !ok {
				return nil
			}
			if token := msg.Metadata.Get(tokenMetadataKey); token != "" {
				lastToken = token
			}
			msg.Ack()
			w.drain(ctx, lastToken)

		case <-ticker.C:
			w.drain(ctx, lastToken)
		}
	}
}

func (w *Worker) drain(ctx context.Context, token string) {
	if token == "" {
		return
	}
	done, err := w.queue.ProcessBatch(ctx, token, w.cfg.BatchSize)
	if err != nil && ctx.Err() == nil {
		w.log.Warn().Err(err).Msg("healing drain failed")
		return
	}
	if done > 0 {
		w.log.Debug().Int("healed", done).Msg("healing drain pass complete")
	}
}
