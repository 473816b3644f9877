package csvio

import "errors"

// Sentinel kinds for CSV decoding errors.
var (
	ErrEmptyFile     = errors.New("csv file contains no leads")
	ErrMalformedCSV  = errors.New("malformed csv")
	ErrMissingColumn = errors.New("missing expected column")
	ErrInvalidLead   = errors.New("invalid lead row")
	ErrTooManyRows   = errors.New("too many rows")
)
