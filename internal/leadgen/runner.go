package leadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/mmatheygr/lead-scoring/pkg/logger"
)

// Response shapes mirrored from the service API.
type batchResponse struct {
	BatchID string   `json:"batch_id"`
	Leads   int      `json:"leads"`
	Columns []string `json:"columns"`
}

type scoreOutcome struct {
	BatchID    string `json:"batch_id"`
	TotalLeads int    `json:"total_leads"`
	Scored     int    `json:"scored"`
	Failed     int    `json:"failed"`
	Duplicates int    `json:"duplicates"`
}

type summaryResponse struct {
	Threshold   float64 `json:"threshold"`
	TotalLeads  int     `json:"total_leads"`
	ScoredLeads int     `json:"scored_leads"`
	HighValue   int     `json:"high_value"`
	LowValue    int     `json:"low_value"`
}

type entryResponse struct {
	Rank        int     `json:"rank"`
	CustomerID  string  `json:"customer_id"`
	Probability float64 `json:"probability"`
	Band        string  `json:"band"`
}

// Run executes the complete generator flow: generate, save, and optionally
// upload, score and verify against a running service.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting lead generator",
		logger.String("baseURL", config.BaseURL),
		logger.Int("leads", config.NumLeads),
		logger.Int("workers", config.Workers),
		logger.Float64("threshold", config.Threshold),
		logger.Any("upload", config.Upload))

	leads, err := generateLeads(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("lead generation failed: %w", err)
	}

	filename, err := saveLeadsToFile(ctx, config, leads)
	if err != nil {
		return fmt.Errorf("saving leads failed: %w", err)
	}

	if config.Upload {
		if err := uploadAndScore(ctx, config, leads, filename, stats); err != nil {
			return err
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	logger.Get().Info(ctx, "run completed successfully")
	return nil
}

// uploadAndScore pushes the CSV through the full pipeline and verifies the
// results the service reports.
func uploadAndScore(ctx context.Context, config *Config, leads []Lead, filename string, stats *Stats) error {
	client := newHTTPClient(config.Timeout)

	if err := checkServiceHealth(ctx, client, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	var buf bytes.Buffer
	if err := writeCSV(&buf, leads); err != nil {
		return fmt.Errorf("encoding upload failed: %w", err)
	}

	logger.Get().Info(ctx, "uploading batch", logger.Int("rows", len(leads)))
	resp, err := client.PostFile(ctx, config.BaseURL+"/batches", filename, buf.Bytes())
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return fmt.Errorf("reading upload response failed: %w", err)
	}
	if resp.StatusCode != statusCreated {
		return fmt.Errorf("upload rejected with status %d: %s", resp.StatusCode, body)
	}

	var batch batchResponse
	if err := json.Unmarshal(body, &batch); err != nil {
		return fmt.Errorf("parsing upload response failed: %w", err)
	}
	stats.RowsUploaded = batch.Leads
	logger.Get().Info(ctx, "batch created", logger.String("batchID", batch.BatchID))

	logger.Get().Info(ctx, "scoring batch")
	resp, err = client.Post(ctx, config.BaseURL+"/batches/"+batch.BatchID+"/score")
	if err != nil {
		return fmt.Errorf("scoring request failed: %w", err)
	}
	body, err = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return fmt.Errorf("reading score response failed: %w", err)
	}
	if resp.StatusCode != statusOK {
		return fmt.Errorf("scoring failed with status %d: %s", resp.StatusCode, body)
	}

	var outcome scoreOutcome
	if err := json.Unmarshal(body, &outcome); err != nil {
		return fmt.Errorf("parsing score response failed: %w", err)
	}
	stats.Scored = outcome.Scored
	stats.Failed = outcome.Failed
	stats.Duplicates = outcome.Duplicates

	summaryURL := fmt.Sprintf("%s/batches/%s/summary?threshold=%g", config.BaseURL, batch.BatchID, config.Threshold)
	var summary summaryResponse
	if err := getJSON(ctx, client, summaryURL, &summary); err != nil {
		return fmt.Errorf("summary retrieval failed: %w", err)
	}
	stats.HighValue = summary.HighValue
	stats.LowValue = summary.LowValue

	scoresURL := fmt.Sprintf("%s/batches/%s/scores?limit=%d", config.BaseURL, batch.BatchID, config.TopN)
	var entries []entryResponse
	if err := getJSON(ctx, client, scoresURL, &entries); err != nil {
		return fmt.Errorf("scores retrieval failed: %w", err)
	}
	stats.TopEntries = len(entries)

	return verifyResults(ctx, outcome, summary, entries)
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Any 200 counts as healthy; the endpoint serves Prometheus metrics.
	if resp.StatusCode != statusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// verifyResults checks the invariants the service promises.
func verifyResults(ctx context.Context, outcome scoreOutcome, summary summaryResponse, entries []entryResponse) error {
	if summary.HighValue+summary.LowValue != summary.ScoredLeads {
		return fmt.Errorf("partition mismatch: high %d + low %d != scored %d",
			summary.HighValue, summary.LowValue, summary.ScoredLeads)
	}

	prev := 2.0
	for _, e := range entries {
		if e.Probability < 0 || e.Probability > 1 {
			return fmt.Errorf("probability out of range for %s: %v", e.CustomerID, e.Probability)
		}
		if e.Probability > prev {
			return fmt.Errorf("ranking order violated at %s: %v after %v", e.CustomerID, e.Probability, prev)
		}
		prev = e.Probability
	}

	if outcome.Scored+outcome.Failed+outcome.Duplicates != outcome.TotalLeads {
		return fmt.Errorf("outcome mismatch: scored %d + failed %d + duplicates %d != total %d",
			outcome.Scored, outcome.Failed, outcome.Duplicates, outcome.TotalLeads)
	}

	logger.Get().Info(ctx, "verification passed",
		logger.Int("entriesChecked", len(entries)),
		logger.Int("highValue", summary.HighValue),
		logger.Int("lowValue", summary.LowValue))
	return nil
}

// displayFinalStats prints the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	logger.Get().Info(ctx, "final statistics",
		logger.Int("leadsGenerated", stats.LeadsGenerated),
		logger.Int("rowsUploaded", stats.RowsUploaded),
		logger.Int("scored", stats.Scored),
		logger.Int("failed", stats.Failed),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("highValue", stats.HighValue),
		logger.Int("lowValue", stats.LowValue),
		logger.Int("topEntries", stats.TopEntries),
		logger.String("duration", stats.Duration.String()))
}
