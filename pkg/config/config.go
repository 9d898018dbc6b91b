package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvPort       = "PORT"
	EnvProxy      = "PROXY"
	EnvExternalIP = "EXTERNAL_IP"
	EnvMetrics    = "METRICS"
	EnvLogLevel   = "LOG_LEVEL"

	DefaultPort     = 3000
	DefaultLogLevel = "info"
)

type Config struct {
	Port int
	// TrustProxy makes the server take peer addresses from X-Forwarded-For
	TrustProxy bool
	// ExternalIP replaces the address of hosts connecting from loopback
	ExternalIP string
	Metrics    bool
	LogLevel   string
}

// Addr is the listen address of the rendezvous server
func (c *Config) Addr() string {
	return net.JoinHostPort("0.0.0.0", strconv.Itoa(c.Port))
}

// Load reads the configuration from the environment. Values in envFile are loaded first without overriding
// variables already set. A missing envFile is not an error
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	port, err := getEnvIntOrDefault(EnvPort, DefaultPort)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid %s: %d out of range", EnvPort, port)
	}

	return &Config{
		Port:       port,
		TrustProxy: getEnvBool(EnvProxy, false),
		ExternalIP: strings.TrimSpace(os.Getenv(EnvExternalIP)),
		Metrics:    getEnvBool(EnvMetrics, true),
		LogLevel:   getEnvOrDefault(EnvLogLevel, DefaultLogLevel),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return parsed, nil
}

// getEnvBool treats any non-empty value as true, except for the usual spellings of false
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}

	if parsed, err := strconv.ParseBool(value); err == nil {
		return parsed
	}
	return !strings.EqualFold(value, "no") && !strings.EqualFold(value, "off")
}
