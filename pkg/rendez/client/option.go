package client

import (
	"time"

	"github.com/go-logr/logr"
)

const (
	defaultTimeout = 5 * time.Second
)

type config struct {
	timeout time.Duration
	logger  logr.Logger
}

func newDefaultConfig() *config {
	return &config{
		timeout: defaultTimeout,
		logger:  logr.Discard(),
	}
}

type Option func(*config)

// WithTimeout bounds join requests and the wait for a declaration ack. The timeout must be greater than 0
func WithTimeout(timeout time.Duration) Option {
	return func(cfg *config) {
		cfg.timeout = timeout
	}
}

// WithLogger sets the logger to use for logging. The logger must implement the logr.Logger interface
func WithLogger(logger logr.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}
