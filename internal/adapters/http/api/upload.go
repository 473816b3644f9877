// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/mmatheygr/lead-scoring/internal/domain/csvio"
	"github.com/mmatheygr/lead-scoring/internal/domain/model"
	"github.com/mmatheygr/lead-scoring/pkg/metrics"
)

// UploadDependencies defines the interface for batch creation.
type UploadDependencies interface {
	CreateBatch(ctx context.Context, columns []string, leads []model.Lead) (*model.Batch, error)
}

// UploadHandler handles CSV batch uploads.
type UploadHandler struct {
	deps     UploadDependencies
	reader   *csvio.Reader
	columns  []string
	limiter  *rate.Limiter
	maxBytes int64
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(deps UploadDependencies, cfg serverConfig) *UploadHandler {
	h := &UploadHandler{
		deps:     deps,
		reader:   csvio.NewReader(cfg.featureColumns, csvio.WithMaxRows(cfg.maxUploadRows)),
		columns:  cfg.featureColumns,
		maxBytes: cfg.maxUploadBytes,
	}
	if cfg.uploadRatePerMinute > 0 {
		h.limiter = rate.NewLimiter(rate.Limit(cfg.uploadRatePerMinute)/60, cfg.uploadRatePerMinute)
	}
	return h
}

// batchResponse mirrors the OpenAPI schema for POST /batches.
type batchResponse struct {
	BatchID string   `json:"batch_id"`
	Leads   int      `json:"leads"`
	Columns []string `json:"columns"`
}

// HandleUpload handles POST /batches requests. The lead table arrives either
// as a multipart form with a "file" field or as a raw text/csv body.
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	const op = "api.upload_batch"

	if h.limiter != nil && !h.limiter.Allow() {
		metrics.RecordUploadRejected()
		writeError(w, http.StatusTooManyRequests, "rate_limited", NewKind(op, ErrBackpressure))
		return
	}

	body, err := h.csvBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	defer func() { _ = body.Close() }()

	leads, err := h.reader.Read(body)
	if err != nil {
		h.writeReadError(w, op, err)
		return
	}

	batch, err := h.deps.CreateBatch(r.Context(), h.columns, leads)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	writeJSON(w, http.StatusCreated, batchResponse{
		BatchID: batch.ID,
		Leads:   batch.LeadCount(),
		Columns: batch.Columns,
	})
}

// csvBody extracts the CSV stream from the request, enforcing the size cap.
func (h *UploadHandler) csvBody(w http.ResponseWriter, r *http.Request) (io.ReadCloser, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		return r.Body, nil
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, errors.New("missing file field")
	}
	return file, nil
}

// writeReadError maps CSV parse failures to response codes.
func (h *UploadHandler) writeReadError(w http.ResponseWriter, op string, err error) {
	metrics.RecordUploadRejected()

	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		writeError(w, http.StatusRequestEntityTooLarge, "upload_too_large", Wrap(op, err))
	case errors.Is(err, csvio.ErrEmptyFile):
		writeError(w, http.StatusBadRequest, "empty_file", Wrap(op, err))
	case errors.Is(err, csvio.ErrMissingColumn):
		writeError(w, http.StatusBadRequest, "missing_column", Wrap(op, err))
	case errors.Is(err, csvio.ErrTooManyRows):
		writeError(w, http.StatusRequestEntityTooLarge, "too_many_rows", Wrap(op, err))
	case errors.Is(err, csvio.ErrInvalidLead):
		writeError(w, http.StatusBadRequest, "invalid_lead", Wrap(op, err))
	case errors.Is(err, csvio.ErrMalformedCSV):
		writeError(w, http.StatusBadRequest, "malformed_csv", Wrap(op, err))
	default:
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	}
}
