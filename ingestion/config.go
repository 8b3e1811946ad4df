package ingestion

import "time"

// Config holds configuration for ingestion.
type Config struct {
	// BatchSize is the number of spans written per transaction
	BatchSize int

	// ReportInterval is how often to report progress (number of spans)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per batch write
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      1000,
		ReportInterval: 5000,
		MaxRetries:     3,
		RetryDelay:     100 * time.Millisecond,
	}
}
