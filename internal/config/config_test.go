package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8731", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 48000.0, cfg.SampleRate)
	assert.Equal(t, 1024, cfg.BlockSize)
	assert.Equal(t, 2048, cfg.FFTSize)
	assert.Equal(t, 0.8, cfg.Smoothing)
	assert.Equal(t, 3, cfg.ReconcileMaxAttempts)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("TABEQ_LISTEN_ADDR", "0.0.0.0:9000")
	t.Setenv("TABEQ_BLOCK_SIZE", "512")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.ListenAddr)
	assert.Equal(t, 512, cfg.BlockSize)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tabeq.yaml")

	content := "listen_addr: 127.0.0.1:7000\nsmoothing: 0.5\nfft_size: 4096\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7000", cfg.ListenAddr)
	assert.Equal(t, 0.5, cfg.Smoothing)
	assert.Equal(t, 4096, cfg.FFTSize)
	// Untouched keys keep defaults.
	assert.Equal(t, 1024, cfg.BlockSize)
}

func TestMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidation(t *testing.T) {
	t.Setenv("TABEQ_SAMPLE_RATE", "-1")

	_, err := Load("")
	assert.Error(t, err)
}
