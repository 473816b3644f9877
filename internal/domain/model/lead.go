// Package model contains domain models passed between layers.
package model

import "time"

// Lead represents one prospective customer row from an uploaded CSV.
type Lead struct {
	CustomerID string             // identifier, unique within a batch
	Features   map[string]float64 // feature values keyed by normalized column name
}

// Job is a unit of scoring work flowing through the queue.
type Job struct {
	BatchID string
	Lead    Lead
}

// Batch is one uploaded lead table held for the lifetime of a session.
type Batch struct {
	ID         string
	Columns    []string // feature columns in upload order
	Leads      []Lead
	UploadedAt time.Time
}

// LeadCount returns the number of leads in the batch.
func (b *Batch) LeadCount() int {
	return len(b.Leads)
}

// CustomerIDs returns the identifiers in upload order.
func (b *Batch) CustomerIDs() []string {
	ids := make([]string, len(b.Leads))
	for i := range b.Leads {
		ids[i] = b.Leads[i].CustomerID
	}
	return ids
}
