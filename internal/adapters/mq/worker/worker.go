// Package worker consumes scoring jobs from the queue, runs the classifier
// and pushes results into the ranking store.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/mmatheygr/lead-scoring/internal/adapters/mq/queue"
	"github.com/mmatheygr/lead-scoring/internal/domain/scoring"
	"github.com/mmatheygr/lead-scoring/pkg/logger"
	"github.com/mmatheygr/lead-scoring/pkg/metrics"
)

// Scorer produces a purchase probability for a single lead.
type Scorer interface {
	Score(ctx context.Context, in scoring.Input) (scoring.Result, error)
}

// Updater receives per-lead outcomes. RecordScore is called once per
// successfully scored lead, RecordFailure once per lead that could not be
// scored. Every dequeued job results in exactly one of the two calls.
type Updater interface {
	RecordScore(ctx context.Context, batchID, customerID string, probability float64) error
	RecordFailure(ctx context.Context, batchID, customerID string, scoreErr error)
}

// Worker processes jobs from a queue until it is shut down.
type Worker interface {
	Run(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker over the in-process queue.
type InMemoryWorker struct {
	queue   queue.Queue
	scorer  Scorer
	updater Updater
	log     logger.Logger

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

// NewInMemoryWorker creates a worker bound to a queue, scorer and updater.
func NewInMemoryWorker(q queue.Queue, s Scorer, u Updater, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:   q,
		scorer:  s,
		updater: u,
		log:     logger.Named("worker"),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run consumes jobs until the context is cancelled or the queue closes.
func (w *InMemoryWorker) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ErrAlreadyRunning
	}
	w.running = true
	w.mu.Unlock()

	defer close(w.done)

	metrics.AddWorkerActive(1)
	defer metrics.AddWorkerActive(-1)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job, ok := <-jobs:
			if !ok {
				return nil
			}
			w.processJob(ctx, job)
		}
	}
}

// Shutdown waits for the run loop to drain, bounded by ctx.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	running := w.running
	w.mu.Unlock()
	if !running {
		return nil
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *InMemoryWorker) processJob(ctx context.Context, job queue.Job) {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	res, err := w.scorer.Score(ctx, scoring.Input{
		CustomerID: job.Lead.CustomerID,
		Features:   job.Lead.Features,
	})
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordScoringError()
		w.log.Warn(ctx, "scoring failed",
			logger.String("batch_id", job.BatchID),
			logger.String("customer_id", job.Lead.CustomerID),
			logger.Error(err))
		w.updater.RecordFailure(ctx, job.BatchID, job.Lead.CustomerID, err)
		return
	}

	if err := w.updater.RecordScore(ctx, job.BatchID, res.CustomerID, res.Probability); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordRankingError()
		w.log.Error(ctx, "recording score failed",
			logger.String("batch_id", job.BatchID),
			logger.String("customer_id", res.CustomerID),
			logger.Error(err))
		w.updater.RecordFailure(ctx, job.BatchID, res.CustomerID, err)
		return
	}

	metrics.RecordLeadScored()
}

// Pool runs a fixed number of workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	log     logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewPool creates size workers sharing the queue, scorer and updater.
func NewPool(size int, q queue.Queue, s Scorer, u Updater, opts ...Option) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, 0, size),
		log:     logger.Named("worker-pool"),
	}
	for i := 0; i < size; i++ {
		p.workers = append(p.workers, NewInMemoryWorker(q, s, u, opts...))
	}
	return p
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start launches all workers. It returns immediately.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrAlreadyRunning
	}
	p.started = true

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	metrics.UpdateWorkerCount(len(p.workers))

	for i, w := range p.workers {
		p.wg.Add(1)
		go func(idx int, w *InMemoryWorker) {
			defer p.wg.Done()
			if err := w.Run(runCtx); err != nil && err != context.Canceled {
				p.log.Error(runCtx, "worker stopped",
					logger.Int("worker", idx),
					logger.Error(err))
			}
		}(i, w)
	}
	return nil
}

// Shutdown cancels all workers and waits for them to exit, bounded by ctx.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	cancel := p.cancel
	p.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		metrics.UpdateWorkerCount(0)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
