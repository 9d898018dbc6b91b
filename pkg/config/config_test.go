package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvPort, EnvProxy, EnvExternalIP, EnvMetrics, EnvLogLevel} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.False(t, cfg.TrustProxy)
	assert.Empty(t, cfg.ExternalIP)
	assert.True(t, cfg.Metrics)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, "0.0.0.0:3000", cfg.Addr())
}

func TestLoad_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPort, "6923")
	t.Setenv(EnvProxy, "1")
	t.Setenv(EnvExternalIP, " 203.0.113.9 ")
	t.Setenv(EnvMetrics, "false")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 6923, cfg.Port)
	assert.True(t, cfg.TrustProxy)
	assert.Equal(t, "203.0.113.9", cfg.ExternalIP)
	assert.False(t, cfg.Metrics)
}

func TestLoad_ProxyAnyValue(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvProxy, "yes")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.TrustProxy)

	t.Setenv(EnvProxy, "off")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.False(t, cfg.TrustProxy)
}

func TestLoad_InvalidPort(t *testing.T) {
	clearEnv(t)

	t.Setenv(EnvPort, "http")
	_, err := Load("")
	require.Error(t, err)

	t.Setenv(EnvPort, "70000")
	_, err = Load("")
	require.Error(t, err)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv never overrides variables that are already set, even to empty
	require.NoError(t, os.Unsetenv(EnvPort))
	require.NoError(t, os.Unsetenv(EnvExternalIP))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=7000\nEXTERNAL_IP=203.0.113.9\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv(EnvPort)
		_ = os.Unsetenv(EnvExternalIP)
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "203.0.113.9", cfg.ExternalIP)
}

func TestLoad_MissingEnvFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)
}
