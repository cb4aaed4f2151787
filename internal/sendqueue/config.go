package sendqueue

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config tunes the executor. Zero values are replaced with defaults in
// NewExecutor, so the literal Config{} is usable.
type Config struct {
	Shards         int           `envconfig:"SHARDS" default:"4"`
	QueueSize      int           `envconfig:"QUEUE_SIZE" default:"128"`
	EnqueueTimeout time.Duration `envconfig:"ENQUEUE_TIMEOUT" default:"100ms"`
	MaxAttempts    int           `envconfig:"MAX_ATTEMPTS" default:"8"`
	BaseBackoff    time.Duration `envconfig:"BASE_BACKOFF" default:"100ms"`
	MaxInterval    time.Duration `envconfig:"MAX_INTERVAL" default:"20s"`

	// ErrorHandler observes terminal job failures. Optional.
	ErrorHandler func(error) `ignored:"true"`
}

// LoadConfig reads executor tuning from PARLEY_SQ_* environment
// variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("PARLEY_SQ", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
