package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mmatheygr/lead-scoring/internal/adapters/mq/queue"
	"github.com/mmatheygr/lead-scoring/internal/domain/model"
	"github.com/mmatheygr/lead-scoring/internal/domain/scoring"
)

var errInference = errors.New("inference failed")

// stubScorer scores each lead with its "p" feature and fails on demand.
type stubScorer struct {
	failFor map[string]bool
}

func (s *stubScorer) Score(_ context.Context, in scoring.Input) (scoring.Result, error) {
	if s.failFor[in.CustomerID] {
		return scoring.Result{}, errInference
	}
	return scoring.Result{CustomerID: in.CustomerID, Probability: in.Features["p"]}, nil
}

// recordingUpdater captures outcome calls for assertions.
type recordingUpdater struct {
	mu          sync.Mutex
	scores      map[string]float64
	failures    map[string]error
	rejectScore bool
}

func newRecordingUpdater() *recordingUpdater {
	return &recordingUpdater{
		scores:   make(map[string]float64),
		failures: make(map[string]error),
	}
}

func (u *recordingUpdater) RecordScore(_ context.Context, batchID, customerID string, probability float64) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.rejectScore {
		return errors.New("store rejected score")
	}
	u.scores[batchID+"/"+customerID] = probability
	return nil
}

func (u *recordingUpdater) RecordFailure(_ context.Context, batchID, customerID string, scoreErr error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.failures[batchID+"/"+customerID] = scoreErr
}

func (u *recordingUpdater) snapshot() (map[string]float64, map[string]error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	scores := make(map[string]float64, len(u.scores))
	for k, v := range u.scores {
		scores[k] = v
	}
	failures := make(map[string]error, len(u.failures))
	for k, v := range u.failures {
		failures[k] = v
	}
	return scores, failures
}

func enqueueLead(t *testing.T, q queue.Queue, batchID, customerID string, p float64) {
	t.Helper()
	job := queue.Job{
		BatchID: batchID,
		Lead:    model.Lead{CustomerID: customerID, Features: map[string]float64{"p": p}},
	}
	if !q.Enqueue(context.Background(), job) {
		t.Fatalf("enqueue of %s rejected", customerID)
	}
}

func TestInMemoryWorker_ProcessesJobs(t *testing.T) {
	q := queue.NewInMemoryQueue(queue.WithCapacity(10))
	u := newRecordingUpdater()
	w := NewInMemoryWorker(q, &stubScorer{}, u)

	enqueueLead(t, q, "b1", "c1", 0.9)
	enqueueLead(t, q, "b1", "c2", 0.3)
	if err := q.Close(); err != nil {
		t.Fatalf("close queue: %v", err)
	}

	// With the queue closed the run loop drains and returns on its own.
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("expected clean run, got %v", err)
	}

	scores, failures := u.snapshot()
	if len(failures) != 0 {
		t.Errorf("expected no failures, got %v", failures)
	}
	if got := scores["b1/c1"]; got != 0.9 {
		t.Errorf("expected c1 score 0.9, got %v", got)
	}
	if got := scores["b1/c2"]; got != 0.3 {
		t.Errorf("expected c2 score 0.3, got %v", got)
	}
}

func TestInMemoryWorker_ScoringFailure(t *testing.T) {
	q := queue.NewInMemoryQueue(queue.WithCapacity(10))
	u := newRecordingUpdater()
	w := NewInMemoryWorker(q, &stubScorer{failFor: map[string]bool{"c-bad": true}}, u)

	enqueueLead(t, q, "b1", "c-bad", 0.5)
	enqueueLead(t, q, "b1", "c-good", 0.5)
	if err := q.Close(); err != nil {
		t.Fatalf("close queue: %v", err)
	}

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("expected clean run, got %v", err)
	}

	scores, failures := u.snapshot()
	if _, ok := scores["b1/c-bad"]; ok {
		t.Error("expected no score for the failing lead")
	}
	if !errors.Is(failures["b1/c-bad"], errInference) {
		t.Errorf("expected inference error recorded, got %v", failures["b1/c-bad"])
	}
	if _, ok := scores["b1/c-good"]; !ok {
		t.Error("expected the healthy lead to still be scored")
	}
}

func TestInMemoryWorker_UpdaterFailure(t *testing.T) {
	q := queue.NewInMemoryQueue(queue.WithCapacity(10))
	u := newRecordingUpdater()
	u.rejectScore = true
	w := NewInMemoryWorker(q, &stubScorer{}, u)

	enqueueLead(t, q, "b1", "c1", 0.5)
	if err := q.Close(); err != nil {
		t.Fatalf("close queue: %v", err)
	}

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("expected clean run, got %v", err)
	}

	_, failures := u.snapshot()
	if _, ok := failures["b1/c1"]; !ok {
		t.Error("expected a recording failure to count the lead as failed")
	}
}

func TestInMemoryWorker_AlreadyRunning(t *testing.T) {
	q := queue.NewInMemoryQueue(queue.WithCapacity(10))
	u := newRecordingUpdater()
	w := NewInMemoryWorker(q, &stubScorer{}, u)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = w.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)

	if err := w.Run(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
	defer shutdownCancel()
	if err := w.Shutdown(shutdownCtx); err != nil {
		t.Errorf("expected clean shutdown, got %v", err)
	}
}

func TestPool_ProcessesAcrossWorkers(t *testing.T) {
	q := queue.NewInMemoryQueue(queue.WithCapacity(100))
	u := newRecordingUpdater()
	p := NewPool(4, q, &stubScorer{}, u)

	if p.Size() != 4 {
		t.Fatalf("expected pool size 4, got %d", p.Size())
	}

	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("start pool: %v", err)
	}
	if err := p.Start(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning on second start, got %v", err)
	}

	const n = 50
	for i := 0; i < n; i++ {
		enqueueLead(t, q, "b1", fmt.Sprintf("c%03d", i), 0.5)
	}

	deadline := time.After(2 * time.Second)
	for {
		scores, _ := u.snapshot()
		if len(scores) == n {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("expected %d scored leads, got %d", n, len(scores))
		case <-time.After(10 * time.Millisecond):
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Shutdown(shutdownCtx); err != nil {
		t.Errorf("expected clean pool shutdown, got %v", err)
	}
}

func TestPool_SizeFloor(t *testing.T) {
	q := queue.NewInMemoryQueue(queue.WithCapacity(10))
	p := NewPool(0, q, &stubScorer{}, newRecordingUpdater())

	if p.Size() != 1 {
		t.Errorf("expected pool size floor of 1, got %d", p.Size())
	}
}
