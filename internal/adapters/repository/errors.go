package repository

import "errors"

// Sentinel kinds for ranking store errors.
var (
	ErrNotFound     = errors.New("lead not found")
	ErrBatchUnknown = errors.New("batch not found")
	ErrStore        = errors.New("ranking store failure")
)
