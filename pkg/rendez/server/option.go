package server

import (
	"time"

	"github.com/go-logr/logr"

	"github.com/yago-123/punch-rendez/pkg/metrics"
)

const (
	defaultWriteTimeout = 5 * time.Second
)

type config struct {
	logger        logr.Logger
	trustProxy    bool
	externalIP    string
	metrics       *metrics.Metrics
	exposeMetrics bool
	writeTimeout  time.Duration
}

type Option func(*config)

func newDefaultConfig() *config {
	return &config{
		logger:       logr.Discard(),
		metrics:      metrics.New(),
		writeTimeout: defaultWriteTimeout,
	}
}

// WithLogger sets the logger to use for logging. The logger must implement the logr.Logger interface
func WithLogger(logger logr.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithTrustProxy makes the server take peer addresses from the X-Forwarded-For header. Only enable it when the
// server sits behind a proxy that overwrites the header
func WithTrustProxy(trust bool) Option {
	return func(cfg *config) {
		cfg.trustProxy = trust
	}
}

// WithExternalIP sets the address registered for hosts connecting from loopback
func WithExternalIP(ip string) Option {
	return func(cfg *config) {
		cfg.externalIP = ip
	}
}

// WithMetrics records into m and serves it under /metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(cfg *config) {
		cfg.metrics = m
		cfg.exposeMetrics = true
	}
}

// WithWriteTimeout bounds how long pushing a message to a host may take. The timeout must be greater than 0
func WithWriteTimeout(timeout time.Duration) Option {
	return func(cfg *config) {
		cfg.writeTimeout = timeout
	}
}
