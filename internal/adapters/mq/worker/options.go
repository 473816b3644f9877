package worker

import "github.com/mmatheygr/lead-scoring/pkg/logger"

// Option applies a configuration option to an InMemoryWorker.
type Option func(*InMemoryWorker)

// WithLogger overrides the worker's logger.
func WithLogger(log logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if log != nil {
			w.log = log
		}
	}
}
