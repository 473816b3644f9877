package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/mmatheygr/lead-scoring/internal/leadgen"
)

// Default configuration constants.
const (
	defaultNumLeads   = 1000
	defaultTopN       = 50
	defaultThreshold  = 0.5
	defaultTimeout    = 5 * time.Minute
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:8080", "Base URL of the service")
		numLeads   = flag.Int("leads", defaultNumLeads, "Number of leads to generate")
		topN       = flag.Int("top", defaultTopN, "Number of top entries to fetch after scoring")
		threshold  = flag.Float64("threshold", defaultThreshold, "High-value threshold for the summary")
		workers    = flag.Int("workers", runtime.NumCPU(), "Number of concurrent generation workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Output CSV file (default: generated_leads_TIMESTAMP.csv)")
		upload     = flag.Bool("upload", false, "Upload the CSV to the service and score it")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		leadgen.ShowHelp()
		return
	}

	if err := leadgen.SetupLogging(*verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &leadgen.Config{
		BaseURL:    *baseURL,
		NumLeads:   *numLeads,
		TopN:       *topN,
		Threshold:  *threshold,
		Workers:    *workers,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		Upload:     *upload,
		Verbose:    *verbose,
	}

	if err := leadgen.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Run failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
