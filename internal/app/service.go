// Package app wires the scoring pipeline together: batches come in, jobs are
// deduplicated and queued, workers score them and the ranking store serves
// reads.
package app

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmatheygr/lead-scoring/internal/adapters/mq/queue"
	"github.com/mmatheygr/lead-scoring/internal/adapters/mq/worker"
	"github.com/mmatheygr/lead-scoring/internal/adapters/repository"
	"github.com/mmatheygr/lead-scoring/internal/domain/dedupe"
	"github.com/mmatheygr/lead-scoring/internal/domain/model"
	"github.com/mmatheygr/lead-scoring/internal/domain/scoring"
	"github.com/mmatheygr/lead-scoring/internal/domain/types"
	"github.com/mmatheygr/lead-scoring/pkg/logger"
	"github.com/mmatheygr/lead-scoring/pkg/metrics"
)

// Default service configuration.
const (
	defaultWorkerCount      = 4
	defaultQueueSize        = 10_000
	defaultDedupeSize       = 100_000
	defaultBatchTTL         = 30 * time.Minute
	defaultSweepInterval    = time.Minute
	defaultThreshold        = 0.5
	defaultMaxScoresLimit   = 1_000
	defaultHistogramBins    = 10
	maxHistogramBins        = 100
)

// batchStatus tracks where a batch is in its lifecycle.
type batchStatus int

const (
	statusPending batchStatus = iota
	statusScoring
	statusScored
)

// batchState is the per-batch bookkeeping behind the public operations.
type batchState struct {
	batch     *model.Batch
	leadIndex map[string]int // customer id -> index into batch.Leads
	expiresAt time.Time

	mu         sync.Mutex
	status     batchStatus
	pending    int
	failed     int
	duplicates int
	done       chan struct{}
}

// markOutcome accounts one finished job and flips the batch to scored when
// the last job lands. Exactly one call per dispatched lead.
func (st *batchState) markOutcome(failed, duplicate bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.status != statusScoring {
		return
	}
	if failed {
		st.failed++
	}
	if duplicate {
		st.duplicates++
	}
	st.pending--
	if st.pending <= 0 {
		st.status = statusScored
		close(st.done)
	}
}

// ScoreOutcome reports how a scoring run ended.
type ScoreOutcome = types.ScoreOutcome

// Stats is a point-in-time snapshot of the pipeline.
type Stats = types.Stats

// Service is the public facade over the scoring pipeline.
type Service struct {
	log     logger.Logger
	scorer  scoring.Scorer
	store   repository.Store
	queue   queue.Queue
	pool    *worker.Pool
	deduper dedupe.Deduper

	workerCount    int
	queueSize      int
	dedupeSize     int
	batchTTL       time.Duration
	sweepInterval  time.Duration
	threshold      float64
	maxScoresLimit int

	mu      sync.RWMutex
	batches map[string]*batchState
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a service with configuration options. Call Start before use.
func New(opts ...Option) *Service {
	s := &Service{
		log:            logger.Named("app"),
		workerCount:    defaultWorkerCount,
		queueSize:      defaultQueueSize,
		dedupeSize:     defaultDedupeSize,
		batchTTL:       defaultBatchTTL,
		sweepInterval:  defaultSweepInterval,
		threshold:      defaultThreshold,
		maxScoresLimit: defaultMaxScoresLimit,
		batches:        make(map[string]*batchState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds any missing collaborators and launches the worker pool and
// the batch expiry sweeper.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}

	if s.scorer == nil {
		s.scorer = scoring.NewLogisticScorer()
	}
	if s.store == nil {
		s.store = repository.NewTreapStore(ctx)
	}
	if s.queue == nil {
		s.queue = queue.NewInMemoryQueue(
			queue.WithCapacity(s.queueSize),
			queue.WithBufferSize(s.queueSize),
		)
	}
	if s.deduper == nil {
		s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	}

	s.pool = worker.NewPool(s.workerCount, s.queue, s.scorer, s)

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if err := s.pool.Start(runCtx); err != nil {
		cancel()
		return fmt.Errorf("start worker pool: %w", err)
	}

	s.wg.Add(1)
	go s.sweep(runCtx)

	s.started = true
	s.log.Info(ctx, "service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Duration("batch_ttl", s.batchTTL))
	return nil
}

// Stop drains the pipeline: no new jobs are accepted, running workers finish,
// bounded by ctx.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	if err := s.queue.Close(); err != nil {
		s.log.Warn(ctx, "closing queue", logger.Error(err))
	}
	if err := s.pool.Shutdown(ctx); err != nil {
		cancel()
		return fmt.Errorf("shutdown worker pool: %w", err)
	}
	cancel()
	s.wg.Wait()

	s.log.Info(ctx, "service stopped")
	return nil
}

// CreateBatch registers an uploaded lead table and returns its id. The batch
// expires after the configured TTL.
func (s *Service) CreateBatch(ctx context.Context, columns []string, leads []model.Lead) (*model.Batch, error) {
	if len(leads) == 0 {
		return nil, ErrEmptyBatch
	}

	batch := &model.Batch{
		ID:         uuid.NewString(),
		Columns:    columns,
		Leads:      leads,
		UploadedAt: time.Now(),
	}

	index := make(map[string]int, len(leads))
	for i := range leads {
		index[leads[i].CustomerID] = i
	}

	s.mu.Lock()
	s.batches[batch.ID] = &batchState{
		batch:     batch,
		leadIndex: index,
		expiresAt: batch.UploadedAt.Add(s.batchTTL),
	}
	active := len(s.batches)
	s.mu.Unlock()

	metrics.RecordBatchCreated()
	metrics.RecordUploadRows(len(leads))
	metrics.UpdateActiveBatches(active)

	s.log.Info(ctx, "batch created",
		logger.String("batch_id", batch.ID),
		logger.Int("leads", len(leads)))
	return batch, nil
}

// Batch returns a batch's metadata.
func (s *Service) Batch(ctx context.Context, batchID string) (*model.Batch, error) {
	st, err := s.state(batchID)
	if err != nil {
		return nil, err
	}
	return st.batch, nil
}

// ScoreBatch dispatches every lead of the batch through the queue and blocks
// until all jobs land or ctx expires. Calling it again on a scored batch
// returns the recorded outcome without rescoring.
func (s *Service) ScoreBatch(ctx context.Context, batchID string) (ScoreOutcome, error) {
	st, err := s.state(batchID)
	if err != nil {
		return ScoreOutcome{}, err
	}

	st.mu.Lock()
	switch st.status {
	case statusScored:
		out := s.outcomeLocked(st)
		out.AlreadyScored = true
		st.mu.Unlock()
		return out, nil
	case statusScoring:
		done := st.done
		st.mu.Unlock()
		return s.await(ctx, st, done)
	}
	st.status = statusScoring
	st.pending = len(st.batch.Leads)
	st.done = make(chan struct{})
	done := st.done
	st.mu.Unlock()

	for i := range st.batch.Leads {
		lead := st.batch.Leads[i]
		key := jobKey(batchID, lead.CustomerID)

		if s.deduper.SeenAndRecord(ctx, key) {
			metrics.RecordLeadDuplicate()
			st.markOutcome(false, true)
			continue
		}

		ok := s.queue.Enqueue(ctx, queue.Job{BatchID: batchID, Lead: lead})
		if !ok {
			s.deduper.Unrecord(ctx, key)
			s.log.Warn(ctx, "enqueue rejected",
				logger.String("batch_id", batchID),
				logger.String("customer_id", lead.CustomerID))
			st.markOutcome(true, false)
		}
	}

	return s.await(ctx, st, done)
}

// await blocks until the batch finishes scoring or ctx expires.
func (s *Service) await(ctx context.Context, st *batchState, done chan struct{}) (ScoreOutcome, error) {
	select {
	case <-done:
	case <-ctx.Done():
		st.mu.Lock()
		out := s.outcomeLocked(st)
		st.mu.Unlock()
		return out, fmt.Errorf("%w: %v", ErrScoringIncomplete, ctx.Err())
	}

	st.mu.Lock()
	out := s.outcomeLocked(st)
	st.mu.Unlock()
	return out, nil
}

// outcomeLocked snapshots a batch's scoring counters. Caller holds st.mu.
func (s *Service) outcomeLocked(st *batchState) ScoreOutcome {
	total := st.batch.LeadCount()
	return ScoreOutcome{
		BatchID:    st.batch.ID,
		TotalLeads: total,
		Scored:     total - st.pending - st.failed - st.duplicates,
		Failed:     st.failed,
		Duplicates: st.duplicates,
	}
}

// RecordScore implements worker.Updater: a lead was scored, rank it.
func (s *Service) RecordScore(ctx context.Context, batchID, customerID string, probability float64) error {
	if err := s.store.Record(ctx, batchID, customerID, scoring.Clamp(probability)); err != nil {
		return err
	}

	st, err := s.state(batchID)
	if err == nil {
		st.markOutcome(false, false)
	}
	return nil
}

// RecordFailure implements worker.Updater: a lead could not be scored.
func (s *Service) RecordFailure(ctx context.Context, batchID, customerID string, scoreErr error) {
	st, err := s.state(batchID)
	if err != nil {
		return
	}
	st.markOutcome(true, false)
}

// Scores returns the top ranked leads of a batch. A non-positive or
// oversized limit falls back to the configured maximum.
func (s *Service) Scores(ctx context.Context, batchID string, limit int) ([]types.Entry, error) {
	if _, err := s.state(batchID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.maxScoresLimit {
		limit = s.maxScoresLimit
	}

	entries, err := s.store.TopN(ctx, batchID, limit)
	if err == repository.ErrBatchUnknown {
		// Batch exists but nothing has been scored yet.
		return []types.Entry{}, nil
	}
	if err != nil {
		return nil, err
	}
	return toTypedEntries(entries), nil
}

// LeadScore returns one lead's rank, probability and gauge band.
func (s *Service) LeadScore(ctx context.Context, batchID, customerID string) (types.Entry, error) {
	st, err := s.state(batchID)
	if err != nil {
		return types.Entry{}, err
	}

	e, err := s.store.Rank(ctx, batchID, customerID)
	if err == repository.ErrBatchUnknown {
		// Nothing scored yet. Distinguish unknown lead from unscored lead.
		if _, known := st.leadIndex[customerID]; !known {
			return types.Entry{}, repository.ErrNotFound
		}
		return types.Entry{}, ErrNotScored
	}
	if err != nil {
		return types.Entry{}, err
	}

	return types.Entry{
		Rank:        e.Rank,
		CustomerID:  e.CustomerID,
		Probability: e.Probability,
		Band:        types.Band(e.Probability),
	}, nil
}

// Summary partitions a batch's scores against the threshold. NaN selects the
// configured default threshold.
func (s *Service) Summary(ctx context.Context, batchID string, threshold float64) (types.Summary, error) {
	st, err := s.state(batchID)
	if err != nil {
		return types.Summary{}, err
	}

	if math.IsNaN(threshold) {
		threshold = s.threshold
	}
	if threshold < 0 || threshold > 1 {
		return types.Summary{}, ErrInvalidThreshold
	}

	sum := types.Summary{
		BatchID:    batchID,
		Threshold:  threshold,
		TotalLeads: st.batch.LeadCount(),
	}

	scored := s.store.Count(ctx, batchID)
	sum.ScoredLeads = scored
	if scored == 0 {
		return sum, nil
	}

	high, err := s.store.CountAbove(ctx, batchID, threshold)
	if err != nil {
		return types.Summary{}, err
	}
	sum.HighValue = high
	sum.LowValue = scored - high

	entries, err := s.store.All(ctx, batchID)
	if err != nil {
		return types.Summary{}, err
	}
	var total float64
	for _, e := range entries {
		total += e.Probability
	}
	avg := total / float64(len(entries))
	// Entries arrive in ranking order, so max is first and min is last.
	max := entries[0].Probability
	min := entries[len(entries)-1].Probability
	sum.AvgProbability = &avg
	sum.MinProbability = &min
	sum.MaxProbability = &max

	return sum, nil
}

// Histogram buckets a batch's probabilities into bins equal-width bins over
// [0,1]. A probability of exactly 1 lands in the last bin.
func (s *Service) Histogram(ctx context.Context, batchID string, bins int) ([]types.HistogramBin, error) {
	if _, err := s.state(batchID); err != nil {
		return nil, err
	}
	if bins <= 0 {
		bins = defaultHistogramBins
	}
	if bins > maxHistogramBins {
		return nil, ErrInvalidBins
	}

	out := make([]types.HistogramBin, bins)
	width := 1.0 / float64(bins)
	for i := range out {
		out[i].Lower = float64(i) * width
		out[i].Upper = float64(i+1) * width
	}

	entries, err := s.store.All(ctx, batchID)
	if err == repository.ErrBatchUnknown {
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		idx := int(e.Probability * float64(bins))
		if idx >= bins {
			idx = bins - 1
		}
		out[idx].Count++
	}
	return out, nil
}

// Attribution explains one lead's score as per-feature contributions. Only
// available when the configured scorer supports it.
func (s *Service) Attribution(ctx context.Context, batchID, customerID string) ([]types.Contribution, error) {
	attributor, ok := s.scorer.(scoring.Attributor)
	if !ok {
		return nil, ErrAttributionUnavailable
	}

	st, err := s.state(batchID)
	if err != nil {
		return nil, err
	}

	idx, known := st.leadIndex[customerID]
	if !known {
		return nil, repository.ErrNotFound
	}

	lead := st.batch.Leads[idx]
	return attributor.Attribute(ctx, scoring.Input{
		CustomerID: lead.CustomerID,
		Features:   lead.Features,
	})
}

// GetStats snapshots the pipeline for the stats endpoint and the metrics
// updater.
func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	active := len(s.batches)
	uploaded := 0
	scored := 0
	batchIDs := make([]string, 0, active)
	for id, st := range s.batches {
		uploaded += st.batch.LeadCount()
		batchIDs = append(batchIDs, id)
	}
	s.mu.RUnlock()

	for _, id := range batchIDs {
		scored += s.store.Count(ctx, id)
	}

	st := Stats{
		ActiveBatches: active,
		UploadedLeads: uploaded,
		ScoredLeads:   scored,
		QueueDepth:    s.queue.Len(ctx),
		Workers:       s.pool.Size(),
		DedupeEntries: s.deduper.Size(),
	}

	metrics.UpdateActiveBatches(active)
	metrics.UpdateLeadsTracked(uploaded)
	return st, nil
}

// state returns the live batch state or ErrBatchUnknown.
func (s *Service) state(batchID string) (*batchState, error) {
	s.mu.RLock()
	st, ok := s.batches[batchID]
	s.mu.RUnlock()
	if !ok {
		return nil, repository.ErrBatchUnknown
	}
	return st, nil
}

// sweep drops expired batches on a fixed interval.
func (s *Service) sweep(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.expireBatches(ctx, now)
		}
	}
}

// expireBatches removes every batch past its TTL along with its ranking and
// dedupe state.
func (s *Service) expireBatches(ctx context.Context, now time.Time) {
	s.mu.Lock()
	var expired []string
	for id, st := range s.batches {
		if now.After(st.expiresAt) {
			expired = append(expired, id)
			delete(s.batches, id)
		}
	}
	active := len(s.batches)
	s.mu.Unlock()

	for _, id := range expired {
		if err := s.store.DropBatch(ctx, id); err != nil {
			s.log.Warn(ctx, "dropping expired batch", logger.String("batch_id", id), logger.Error(err))
		}
		s.deduper.Forget(ctx, jobKey(id, ""))
		metrics.RecordBatchExpired()
		s.log.Info(ctx, "batch expired", logger.String("batch_id", id))
	}
	if len(expired) > 0 {
		metrics.UpdateActiveBatches(active)
	}
}

// jobKey namespaces a customer id under its batch for dedupe tracking.
func jobKey(batchID, customerID string) string {
	return batchID + "/" + customerID
}

func toTypedEntries(entries []repository.Entry) []types.Entry {
	out := make([]types.Entry, len(entries))
	for i, e := range entries {
		out[i] = types.Entry{
			Rank:        e.Rank,
			CustomerID:  e.CustomerID,
			Probability: e.Probability,
			Band:        types.Band(e.Probability),
		}
	}
	return out
}
