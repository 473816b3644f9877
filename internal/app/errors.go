package app

import "errors"

// Sentinel kinds for service errors.
var (
	ErrAlreadyStarted         = errors.New("service already started")
	ErrEmptyBatch             = errors.New("batch has no leads")
	ErrScoringIncomplete      = errors.New("scoring did not complete")
	ErrNotScored              = errors.New("batch not scored yet")
	ErrInvalidThreshold       = errors.New("threshold must be between 0 and 1")
	ErrInvalidBins            = errors.New("bin count out of range")
	ErrAttributionUnavailable = errors.New("scorer does not support attribution")
)
