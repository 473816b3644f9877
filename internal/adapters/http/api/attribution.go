// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
)

// AttributionDependencies defines the interface for score explanations.
type AttributionDependencies interface {
	Attribution(ctx context.Context, batchID, customerID string) ([]Contribution, error)
}

// AttributionHandler handles score explanation requests.
type AttributionHandler struct {
	deps AttributionDependencies
}

// NewAttributionHandler creates a new attribution handler.
func NewAttributionHandler(deps AttributionDependencies) *AttributionHandler {
	return &AttributionHandler{deps: deps}
}

// HandleGetAttribution handles GET /batches/{id}/attribution/{customer_id}
// requests. Responds 501 when the configured scorer cannot explain scores.
func (h *AttributionHandler) HandleGetAttribution(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_attribution"

	batchID := r.PathValue("id")
	customerID := r.PathValue("customer_id")
	if customerID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	contributions, err := h.deps.Attribution(r.Context(), batchID, customerID)
	if err != nil {
		writeDomainError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, contributions)
}
