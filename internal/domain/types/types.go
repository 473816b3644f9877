// Package types contains common types used across the application.
package types

// Gauge band edges, matching the dashboard gauge steps.
const (
	YellowBandStart = 0.2
	GreenBandStart  = 0.7
)

// Entry represents one scored lead in ranking order.
type Entry struct {
	Rank        int     `json:"rank"`
	CustomerID  string  `json:"customer_id"`
	Probability float64 `json:"probability"`
	Band        string  `json:"band"`
}

// Summary aggregates a batch's scores against a threshold.
type Summary struct {
	BatchID        string   `json:"batch_id"`
	Threshold      float64  `json:"threshold"`
	TotalLeads     int      `json:"total_leads"`
	ScoredLeads    int      `json:"scored_leads"`
	HighValue      int      `json:"high_value"`
	LowValue       int      `json:"low_value"`
	AvgProbability *float64 `json:"avg_probability,omitempty"`
	MinProbability *float64 `json:"min_probability,omitempty"`
	MaxProbability *float64 `json:"max_probability,omitempty"`
}

// HistogramBin is one probability bucket over [0,1].
type HistogramBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Contribution is one feature's share of a lead's score.
type Contribution struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
	Weight  float64 `json:"weight"`
	Effect  float64 `json:"effect"`
}

// ScoreOutcome reports how a batch scoring run ended.
type ScoreOutcome struct {
	BatchID       string `json:"batch_id"`
	TotalLeads    int    `json:"total_leads"`
	Scored        int    `json:"scored"`
	Failed        int    `json:"failed"`
	Duplicates    int    `json:"duplicates"`
	AlreadyScored bool   `json:"already_scored"`
}

// Stats is a point-in-time snapshot of the scoring pipeline.
type Stats struct {
	ActiveBatches int   `json:"active_batches"`
	UploadedLeads int   `json:"uploaded_leads"`
	ScoredLeads   int   `json:"scored_leads"`
	QueueDepth    int   `json:"queue_depth"`
	Workers       int   `json:"workers"`
	DedupeEntries int64 `json:"dedupe_entries"`
}

// Band classifies a probability into the gauge color bands used by the UI:
// red [0,0.2), yellow [0.2,0.7), green [0.7,1].
func Band(p float64) string {
	switch {
	case p >= GreenBandStart:
		return "green"
	case p >= YellowBandStart:
		return "yellow"
	default:
		return "red"
	}
}
