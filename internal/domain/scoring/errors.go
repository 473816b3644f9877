package scoring

import "errors"

// Sentinel kinds for scoring errors.
var (
	ErrModelLoad = errors.New("model load failed")
	ErrInference = errors.New("model inference failed")
)
