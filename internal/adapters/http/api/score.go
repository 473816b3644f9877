// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/mmatheygr/lead-scoring/internal/app"
)

// ScoreDependencies defines the interface for scoring operations.
type ScoreDependencies interface {
	ScoreBatch(ctx context.Context, batchID string) (ScoreOutcome, error)
}

// ScoreHandler handles batch scoring requests.
type ScoreHandler struct {
	deps ScoreDependencies
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps ScoreDependencies) *ScoreHandler {
	return &ScoreHandler{deps: deps}
}

// HandleScore handles POST /batches/{id}/score requests. The call blocks
// until every lead in the batch has been scored or the request times out.
func (h *ScoreHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.score_batch"

	batchID := r.PathValue("id")
	if batchID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	outcome, err := h.deps.ScoreBatch(r.Context(), batchID)
	if err != nil {
		// A timeout still carries the counters accumulated so far.
		if errors.Is(err, app.ErrScoringIncomplete) {
			writeJSON(w, http.StatusGatewayTimeout, scoreTimeoutResponse{
				Code:    "scoring_timeout",
				Message: Wrap(op, err).Error(),
				Outcome: outcome,
			})
			return
		}
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// scoreTimeoutResponse is the 504 body: the error envelope plus the partial
// scoring counters at the moment the request gave up.
type scoreTimeoutResponse struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Outcome ScoreOutcome `json:"outcome"`
}
