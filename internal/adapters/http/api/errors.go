package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"

	"github.com/mmatheygr/lead-scoring/internal/adapters/repository"
	"github.com/mmatheygr/lead-scoring/internal/app"
)

// Sentinel kinds for API errors.
var (
	ErrServe        = errors.New("serve failed")
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
)

// NewKind tags a sentinel with the operation that raised it.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind tags a sentinel with the operation and the underlying cause.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %v", op, kind, err)
}

// Wrap tags an error with the operation that raised it.
func Wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

// writeDomainError translates upstream errors to HTTP responses. Anything
// unrecognized becomes a 500.
func writeDomainError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, repository.ErrBatchUnknown):
		writeError(w, http.StatusNotFound, "batch_not_found", Wrap(op, err))
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "lead_not_found", Wrap(op, err))
	case errors.Is(err, app.ErrNotScored):
		writeError(w, http.StatusConflict, "not_scored", Wrap(op, err))
	case errors.Is(err, app.ErrInvalidThreshold), errors.Is(err, app.ErrInvalidBins):
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
	case errors.Is(err, app.ErrAttributionUnavailable):
		writeError(w, http.StatusNotImplemented, "attribution_unavailable", Wrap(op, err))
	case errors.Is(err, app.ErrScoringIncomplete):
		writeError(w, http.StatusGatewayTimeout, "scoring_timeout", Wrap(op, err))
	default:
		// Unrecognized errors are bugs, not client mistakes. Report them.
		sentry.CaptureException(Wrap(op, err))
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
