// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"math"
	"net/http"
	"strconv"
)

// ScoresDependencies defines the interface for ranked score listings.
type ScoresDependencies interface {
	Scores(ctx context.Context, batchID string, limit int) ([]Entry, error)
}

// ScoresHandler handles ranked score listing requests.
type ScoresHandler struct {
	deps     ScoresDependencies
	maxLimit int
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps ScoresDependencies, maxLimit int) *ScoresHandler {
	return &ScoresHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetScores handles GET /batches/{id}/scores?limit=N requests.
// Omitting limit returns up to the configured maximum.
func (h *ScoresHandler) HandleGetScores(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_scores"

	batchID := r.PathValue("id")
	limit := h.maxLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if n > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}

	entries, err := h.deps.Scores(r.Context(), batchID, limit)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// LeadDependencies defines the interface for single-lead lookups.
type LeadDependencies interface {
	LeadScore(ctx context.Context, batchID, customerID string) (Entry, error)
}

// LeadHandler handles single-lead score requests.
type LeadHandler struct {
	deps LeadDependencies
}

// NewLeadHandler creates a new lead handler.
func NewLeadHandler(deps LeadDependencies) *LeadHandler {
	return &LeadHandler{deps: deps}
}

// HandleGetLead handles GET /batches/{id}/scores/{customer_id} requests.
func (h *LeadHandler) HandleGetLead(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_lead"

	batchID := r.PathValue("id")
	customerID := r.PathValue("customer_id")
	if customerID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	entry, err := h.deps.LeadScore(r.Context(), batchID, customerID)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// SummaryDependencies defines the interface for batch summaries.
type SummaryDependencies interface {
	Summary(ctx context.Context, batchID string, threshold float64) (Summary, error)
}

// SummaryHandler handles batch summary requests.
type SummaryHandler struct {
	deps SummaryDependencies
}

// NewSummaryHandler creates a new summary handler.
func NewSummaryHandler(deps SummaryDependencies) *SummaryHandler {
	return &SummaryHandler{deps: deps}
}

// HandleGetSummary handles GET /batches/{id}/summary?threshold=T requests.
// Omitting threshold selects the configured default.
func (h *SummaryHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_summary"

	batchID := r.PathValue("id")
	threshold := math.NaN()
	if thresholdStr := r.URL.Query().Get("threshold"); thresholdStr != "" {
		// ParseFloat accepts "NaN" and "Inf"; neither is a usable threshold.
		t, err := strconv.ParseFloat(thresholdStr, 64)
		if err != nil || math.IsNaN(t) || math.IsInf(t, 0) {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		threshold = t
	}

	summary, err := h.deps.Summary(r.Context(), batchID, threshold)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// HistogramDependencies defines the interface for probability histograms.
type HistogramDependencies interface {
	Histogram(ctx context.Context, batchID string, bins int) ([]HistogramBin, error)
}

// HistogramHandler handles probability histogram requests.
type HistogramHandler struct {
	deps HistogramDependencies
}

// NewHistogramHandler creates a new histogram handler.
func NewHistogramHandler(deps HistogramDependencies) *HistogramHandler {
	return &HistogramHandler{deps: deps}
}

// HandleGetHistogram handles GET /batches/{id}/histogram?bins=N requests.
func (h *HistogramHandler) HandleGetHistogram(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_histogram"

	batchID := r.PathValue("id")
	bins := 0
	if binsStr := r.URL.Query().Get("bins"); binsStr != "" {
		n, err := strconv.Atoi(binsStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		bins = n
	}

	hist, err := h.deps.Histogram(r.Context(), batchID, bins)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}
