// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load() layers file and env on top.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Scorer backends.
const (
	ScorerLogistic = "logistic"
	ScorerONNX     = "onnx"
)

// Ranking store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Scorer selects the scoring backend: "logistic" or "onnx".
	Scorer string `koanf:"scorer"`

	// ModelPath points at the serialized pre-trained classifier (ONNX).
	ModelPath string `koanf:"model_path"`

	// ONNXLibraryPath points at the onnxruntime shared library. Empty means
	// the runtime default search path.
	ONNXLibraryPath string `koanf:"onnx_library_path"`

	// ModelInputName and ModelOutputName are the tensor names of the model graph.
	ModelInputName  string `koanf:"model_input_name"`
	ModelOutputName string `koanf:"model_output_name"`

	// FeatureColumns lists, in order, the feature columns the model was trained on.
	// Uploaded CSVs must contain all of them.
	FeatureColumns []string `koanf:"feature_columns"`

	// FeatureWeights and Bias parameterize the logistic scorer.
	FeatureWeights map[string]float64 `koanf:"feature_weights"`
	Bias           float64            `koanf:"bias"`

	// DefaultThreshold is the high-value cutoff used when a request does not
	// carry an explicit threshold. Must lie in [0,1].
	DefaultThreshold float64 `koanf:"default_threshold"`

	// JobQueueSize bounds the in-memory scoring job queue.
	JobQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of scoring workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the scoring-job idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// BatchTTLSeconds bounds how long an uploaded batch stays in memory.
	BatchTTLSeconds int `koanf:"batch_ttl_seconds"`

	// MaxUploadBytes caps the accepted CSV upload size.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// MaxUploadRows caps the accepted CSV row count.
	MaxUploadRows int `koanf:"max_upload_rows"`

	// MaxScoresLimit caps GET /batches/{id}/scores?limit.
	MaxScoresLimit int `koanf:"max_scores_limit"`

	// UploadRatePerMinute limits CSV uploads per client; 0 disables limiting.
	UploadRatePerMinute int `koanf:"upload_rate_per_minute"`

	// RankingStore selects the ranking backend: "memory" or "redis".
	RankingStore string `koanf:"ranking_store"`

	// RedisAddr is the Redis address used when RankingStore is "redis".
	RedisAddr string `koanf:"redis_addr"`

	// SentryDSN enables error reporting when non-empty.
	SentryDSN string `koanf:"sentry_dsn"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":8080",
		Scorer:          ScorerLogistic,
		ModelPath:       "model/lead_scoring_model.onnx",
		ModelInputName:  "input",
		ModelOutputName: "probabilities",
		FeatureColumns:  []string{"Age", "Income", "Visits", "EmailOpens", "LastContactDays"},
		FeatureWeights: map[string]float64{
			"Age":             0.01,
			"Income":          0.00002,
			"Visits":          0.12,
			"EmailOpens":      0.08,
			"LastContactDays": -0.03,
		},
		Bias:                -1.5,
		DefaultThreshold:    0.5,
		JobQueueSize:        10_000,
		WorkerCount:         runtime.NumCPU() * 2,
		DedupeSize:          100_000,
		BatchTTLSeconds:     1800,
		MaxUploadBytes:      10 << 20,
		MaxUploadRows:       50_000,
		MaxScoresLimit:      1000,
		UploadRatePerMinute: 30,
		RankingStore:        StoreMemory,
		RedisAddr:           "localhost:6379",
	}
}
