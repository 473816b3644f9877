package repository

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/mmatheygr/lead-scoring/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: probability DESC, then customer id ASC. The treap comparator
// treats "less" as "ranks earlier", so an in-order traversal yields leads
// from most to least likely to convert. Size-augmented nodes give O(log n)
// rank and count-above queries.

// probScale converts probabilities in [0,1] to fixed point so ordering and
// equality are exact.
const probScale = 1_000_000_000_000 // 12 decimal places

type probFP int64

func toFixedPoint(p float64) probFP {
	if math.IsNaN(p) {
		return 0
	}
	// Probabilities are clamped upstream; clamp again so a stray value
	// cannot corrupt the ordering.
	p = math.Max(0, math.Min(1, p))
	return probFP(math.Round(p * probScale))
}

func toFloat(p probFP) float64 {
	return float64(p) / probScale
}

// tnode is a treap node augmented with subtree size.
type tnode struct {
	id    string
	prob  probFP
	prio  uint64
	left  *tnode
	right *tnode
	size  int
}

func nsize(n *tnode) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *tnode) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less reports whether (aProb, aID) ranks earlier than (bProb, bID).
func less(aProb probFP, aID string, bProb probFP, bID string) bool {
	if aProb != bProb {
		return aProb > bProb // higher probability ranks earlier
	}
	return aID < bID // tie-breaker by id asc
}

func rotateRight(y *tnode) *tnode {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *tnode) *tnode {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

// batchRanking holds one batch's treap plus a probability index for O(1)
// lookups by customer id.
type batchRanking struct {
	root   *tnode
	byID   map[string]probFP
	rng    *rand.Rand
}

func (b *batchRanking) insert(n *tnode, id string, prob probFP) *tnode {
	if n == nil {
		return &tnode{id: id, prob: prob, prio: b.rng.Uint64(), size: 1}
	}
	if less(prob, id, n.prob, n.id) {
		n.left = b.insert(n.left, id, prob)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = b.insert(n.right, id, prob)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func (b *batchRanking) delete(n *tnode, id string, prob probFP) *tnode {
	if n == nil {
		return nil
	}
	switch {
	case id == n.id && prob == n.prob:
		switch {
		case n.left == nil:
			return n.right
		case n.right == nil:
			return n.left
		case n.left.prio > n.right.prio:
			n = rotateRight(n)
			n.right = b.delete(n.right, id, prob)
		default:
			n = rotateLeft(n)
			n.left = b.delete(n.left, id, prob)
		}
	case less(prob, id, n.prob, n.id):
		n.left = b.delete(n.left, id, prob)
	default:
		n.right = b.delete(n.right, id, prob)
	}
	fix(n)
	return n
}

// countBefore returns the number of nodes ranking strictly earlier than
// (prob, id).
func countBefore(n *tnode, prob probFP, id string) int {
	if n == nil {
		return 0
	}
	if less(n.prob, n.id, prob, id) {
		return nsize(n.left) + 1 + countBefore(n.right, prob, id)
	}
	return countBefore(n.left, prob, id)
}

// walkInOrder visits entries in ranking order until fn returns false.
func walkInOrder(n *tnode, fn func(id string, prob probFP) bool) bool {
	if n == nil {
		return true
	}
	if !walkInOrder(n.left, fn) {
		return false
	}
	if !fn(n.id, n.prob) {
		return false
	}
	return walkInOrder(n.right, fn)
}

// TreapStore implements Store with one treap per batch.
type TreapStore struct {
	mu      sync.RWMutex
	batches map[string]*batchRanking
	seed    int64
}

// NewTreapStore creates an empty in-memory ranking store.
func NewTreapStore(_ context.Context, opts ...TreapOption) *TreapStore {
	s := &TreapStore{
		batches: make(map[string]*batchRanking),
		seed:    time.Now().UnixNano(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TreapOption applies a configuration option to the TreapStore.
type TreapOption func(*TreapStore)

// WithSeed fixes the treap priority seed for reproducible shapes in tests.
func WithSeed(seed int64) TreapOption {
	return func(s *TreapStore) {
		s.seed = seed
	}
}

// Record stores a lead's probability, replacing any previous value.
func (s *TreapStore) Record(ctx context.Context, batchID, customerID string, probability float64) error {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	fp := toFixedPoint(probability)

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.batches[batchID]
	if !ok {
		b = &batchRanking{
			byID: make(map[string]probFP),
			rng:  rand.New(rand.NewSource(s.seed)), //nolint:gosec // treap priorities, not security
		}
		s.batches[batchID] = b
	}

	if old, exists := b.byID[customerID]; exists {
		b.root = b.delete(b.root, customerID, old)
	}
	b.root = b.insert(b.root, customerID, fp)
	b.byID[customerID] = fp

	metrics.RecordRankingUpdate()
	return nil
}

// Rank returns the current rank and probability for a lead.
func (s *TreapStore) Rank(ctx context.Context, batchID, customerID string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.batches[batchID]
	if !ok {
		return Entry{}, ErrBatchUnknown
	}
	fp, ok := b.byID[customerID]
	if !ok {
		return Entry{}, ErrNotFound
	}

	return Entry{
		Rank:        countBefore(b.root, fp, customerID) + 1,
		CustomerID:  customerID,
		Probability: toFloat(fp),
	}, nil
}

// TopN returns the first n entries of a batch in ranking order.
func (s *TreapStore) TopN(ctx context.Context, batchID string, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.batches[batchID]
	if !ok {
		return nil, ErrBatchUnknown
	}
	if n <= 0 {
		return []Entry{}, nil
	}

	entries := make([]Entry, 0, n)
	walkInOrder(b.root, func(id string, prob probFP) bool {
		entries = append(entries, Entry{
			Rank:        len(entries) + 1,
			CustomerID:  id,
			Probability: toFloat(prob),
		})
		return len(entries) < n
	})
	return entries, nil
}

// All returns every entry of a batch in ranking order.
func (s *TreapStore) All(ctx context.Context, batchID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.batches[batchID]
	if !ok {
		return nil, ErrBatchUnknown
	}

	entries := make([]Entry, 0, len(b.byID))
	walkInOrder(b.root, func(id string, prob probFP) bool {
		entries = append(entries, Entry{
			Rank:        len(entries) + 1,
			CustomerID:  id,
			Probability: toFloat(prob),
		})
		return true
	})
	return entries, nil
}

// CountAbove returns how many leads have probability >= threshold.
func (s *TreapStore) CountAbove(ctx context.Context, batchID string, threshold float64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.batches[batchID]
	if !ok {
		return 0, ErrBatchUnknown
	}

	// Nodes ranking before the sentinel (threshold - 1 ulp, "") are exactly
	// those with fixed-point probability >= threshold.
	sentinel := toFixedPoint(threshold) - 1
	return countBefore(b.root, sentinel, ""), nil
}

// Count returns the number of scored leads in a batch.
func (s *TreapStore) Count(ctx context.Context, batchID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.batches[batchID]
	if !ok {
		return 0
	}
	return len(b.byID)
}

// DropBatch removes a batch's ranking state.
func (s *TreapStore) DropBatch(ctx context.Context, batchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.batches, batchID)
	return nil
}
