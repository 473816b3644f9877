package worker

import "errors"

// Sentinel kinds for worker errors.
var (
	ErrAlreadyRunning = errors.New("worker already running")
)
