package api

// Default request limits.
const (
	defaultMaxUploadBytes      = 10 << 20 // 10 MiB
	defaultMaxUploadRows       = 50_000
	defaultMaxScoresLimit      = 1_000
	defaultUploadRatePerMinute = 30
)

// serverConfig carries handler limits set at construction.
type serverConfig struct {
	featureColumns      []string
	maxUploadBytes      int64
	maxUploadRows       int
	maxScoresLimit      int
	uploadRatePerMinute int
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*serverConfig)

func newServerConfig(opts ...ServerOption) serverConfig {
	cfg := serverConfig{
		maxUploadBytes:      defaultMaxUploadBytes,
		maxUploadRows:       defaultMaxUploadRows,
		maxScoresLimit:      defaultMaxScoresLimit,
		uploadRatePerMinute: defaultUploadRatePerMinute,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithFeatureColumns sets the feature columns expected in uploads.
func WithFeatureColumns(columns []string) ServerOption {
	return func(cfg *serverConfig) {
		if len(columns) > 0 {
			cfg.featureColumns = columns
		}
	}
}

// WithMaxUploadBytes caps the accepted upload body size.
func WithMaxUploadBytes(n int64) ServerOption {
	return func(cfg *serverConfig) {
		if n > 0 {
			cfg.maxUploadBytes = n
		}
	}
}

// WithMaxUploadRows caps the accepted number of lead rows per upload.
func WithMaxUploadRows(n int) ServerOption {
	return func(cfg *serverConfig) {
		if n > 0 {
			cfg.maxUploadRows = n
		}
	}
}

// WithMaxScoresLimit caps the limit parameter on scores requests.
func WithMaxScoresLimit(n int) ServerOption {
	return func(cfg *serverConfig) {
		if n > 0 {
			cfg.maxScoresLimit = n
		}
	}
}

// WithUploadRatePerMinute throttles uploads. Zero disables throttling.
func WithUploadRatePerMinute(n int) ServerOption {
	return func(cfg *serverConfig) {
		if n >= 0 {
			cfg.uploadRatePerMinute = n
		}
	}
}
