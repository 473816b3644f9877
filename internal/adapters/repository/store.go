// Package repository defines the probability ranking store and its errors.
package repository

import "context"

// Entry is one scored lead in ranking order.
type Entry struct {
	Rank        int
	CustomerID  string
	Probability float64
}

// Store provides read/write access to per-batch probability rankings.
// Ordering is probability DESC, then customer id ASC (deterministic).
type Store interface {
	// Record stores a lead's probability, replacing any previous value.
	Record(ctx context.Context, batchID, customerID string, probability float64) error

	// Rank returns the current rank and probability for a lead.
	// Returns ErrNotFound if the batch or lead is unknown.
	Rank(ctx context.Context, batchID, customerID string) (Entry, error)

	// TopN returns the first n entries of a batch in ranking order.
	TopN(ctx context.Context, batchID string, n int) ([]Entry, error)

	// All returns every entry of a batch in ranking order.
	All(ctx context.Context, batchID string) ([]Entry, error)

	// CountAbove returns how many leads have probability >= threshold.
	CountAbove(ctx context.Context, batchID string, threshold float64) (int, error)

	// Count returns the number of scored leads in a batch.
	Count(ctx context.Context, batchID string) int

	// DropBatch removes a batch's ranking state.
	DropBatch(ctx context.Context, batchID string) error
}
