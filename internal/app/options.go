package app

import (
	"time"

	"github.com/mmatheygr/lead-scoring/internal/adapters/mq/queue"
	"github.com/mmatheygr/lead-scoring/internal/adapters/repository"
	"github.com/mmatheygr/lead-scoring/internal/domain/dedupe"
	"github.com/mmatheygr/lead-scoring/internal/domain/scoring"
	"github.com/mmatheygr/lead-scoring/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger overrides the service logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithScorer sets the classifier used by the workers.
func WithScorer(sc scoring.Scorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// WithStore sets the ranking store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithQueue sets the job queue. Mostly useful in tests.
func WithQueue(q queue.Queue) Option {
	return func(s *Service) {
		if q != nil {
			s.queue = q
		}
	}
}

// WithDeduper sets the job deduper. Mostly useful in tests.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		if d != nil {
			s.deduper = d
		}
	}
}

// WithWorkerCount sets the number of scoring workers.
func WithWorkerCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workerCount = n
		}
	}
}

// WithQueueSize sets the job queue capacity.
func WithQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithDedupeSize bounds the dedupe tracker.
func WithDedupeSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.dedupeSize = n
		}
	}
}

// WithBatchTTL sets how long an uploaded batch is retained.
func WithBatchTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.batchTTL = ttl
		}
	}
}

// WithSweepInterval sets how often expired batches are collected.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// WithDefaultThreshold sets the threshold used when a summary request does
// not provide one.
func WithDefaultThreshold(t float64) Option {
	return func(s *Service) {
		if t >= 0 && t <= 1 {
			s.threshold = t
		}
	}
}

// WithMaxScoresLimit caps how many entries a scores request may return.
func WithMaxScoresLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxScoresLimit = n
		}
	}
}
