// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mmatheygr/lead-scoring/internal/domain/model"
	"github.com/mmatheygr/lead-scoring/internal/domain/types"
)

// Read shapes returned by scoring queries.
type (
	Entry        = types.Entry
	ScoreOutcome = types.ScoreOutcome
	Summary      = types.Summary
	HistogramBin = types.HistogramBin
	Contribution = types.Contribution
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Write operations feed the scoring pipeline.
	CreateBatch(ctx context.Context, columns []string, leads []model.Lead) (*model.Batch, error)
	ScoreBatch(ctx context.Context, batchID string) (ScoreOutcome, error)

	// Read operations expose ranking data.
	Scores(ctx context.Context, batchID string, limit int) ([]Entry, error)
	LeadScore(ctx context.Context, batchID, customerID string) (Entry, error)
	Summary(ctx context.Context, batchID string, threshold float64) (Summary, error)
	Histogram(ctx context.Context, batchID string, bins int) ([]HistogramBin, error)
	Attribution(ctx context.Context, batchID, customerID string) ([]Contribution, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	uploadHandler      *UploadHandler
	scoreHandler       *ScoreHandler
	scoresHandler      *ScoresHandler
	leadHandler        *LeadHandler
	summaryHandler     *SummaryHandler
	histogramHandler   *HistogramHandler
	attributionHandler *AttributionHandler
	dashboardHandler   *dashboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	cfg := newServerConfig(opts...)
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		uploadHandler:      NewUploadHandler(deps, cfg),
		scoreHandler:       NewScoreHandler(deps),
		scoresHandler:      NewScoresHandler(deps, cfg.maxScoresLimit),
		leadHandler:        NewLeadHandler(deps),
		summaryHandler:     NewSummaryHandler(deps),
		histogramHandler:   NewHistogramHandler(deps),
		attributionHandler: NewAttributionHandler(deps),
		dashboardHandler:   newDashboardHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /batches", MetricsMiddleware(s.uploadHandler.HandleUpload, "upload"))
	mux.HandleFunc("POST /batches/{id}/score", MetricsMiddleware(s.scoreHandler.HandleScore, "score"))
	mux.HandleFunc("GET /batches/{id}/scores", MetricsMiddleware(s.scoresHandler.HandleGetScores, "scores"))
	mux.HandleFunc("GET /batches/{id}/scores/{customer_id}", MetricsMiddleware(s.leadHandler.HandleGetLead, "lead"))
	mux.HandleFunc("GET /batches/{id}/summary", MetricsMiddleware(s.summaryHandler.HandleGetSummary, "summary"))
	mux.HandleFunc("GET /batches/{id}/histogram", MetricsMiddleware(s.histogramHandler.HandleGetHistogram, "histogram"))
	mux.HandleFunc("GET /batches/{id}/attribution/{customer_id}", MetricsMiddleware(s.attributionHandler.HandleGetAttribution, "attribution"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
