package leadgen

import (
	"fmt"
	"os"

	"github.com/mmatheygr/lead-scoring/pkg/logger"
)

// SetupLogging initializes logging for the CLI.
func SetupLogging(verbose bool) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the lead generator tool.
func ShowHelp() {
	os.Stdout.WriteString(`Lead Generator
==============

Generates synthetic lead CSVs and optionally pushes them through a running
lead-scoring service: upload, score, summarize and verify.

Usage:
  go run cmd/leadgen/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8080")
  -leads int
        Number of leads to generate (default 1000)
  -top int
        Number of top entries to fetch after scoring (default 50)
  -threshold float
        High-value threshold for the summary (default 0.5)
  -workers int
        Number of concurrent generation workers (default CPU cores)
  -timeout duration
        HTTP request timeout (default 5m)
  -output string
        Output CSV file (default: generated_leads_TIMESTAMP.csv)
  -upload
        Upload the CSV to the service and score it
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Just generate a CSV
  go run cmd/leadgen/main.go -leads 5000

  # Full round trip against a local service
  go run cmd/leadgen/main.go -leads 5000 -upload -url http://localhost:8080
`)
}
