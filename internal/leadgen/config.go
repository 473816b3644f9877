// Package leadgen generates synthetic lead CSVs and exercises a running
// scoring service end to end.
package leadgen

import "time"

// Config holds configuration for a generator run.
type Config struct {
	BaseURL    string        // Base URL of the service
	NumLeads   int           // Number of leads to generate
	TopN       int           // Number of top entries to fetch after scoring
	Threshold  float64       // High-value threshold used for the summary
	Workers    int           // Number of concurrent generation workers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for the generated CSV
	Upload     bool          // Upload and score against the service
	Verbose    bool          // Enable verbose logging
}

// Lead is one synthetic CSV row.
type Lead struct {
	CustomerID      string
	Age             float64
	Income          float64
	Visits          float64
	EmailOpens      float64
	LastContactDays float64
}

// Stats holds run statistics.
type Stats struct {
	LeadsGenerated int
	RowsUploaded   int
	Scored         int
	Failed         int
	Duplicates     int
	HighValue      int
	LowValue       int
	TopEntries     int
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}
