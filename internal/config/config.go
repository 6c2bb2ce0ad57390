// Package config loads daemon configuration from an optional YAML file
// and TABEQ_* environment variables, with sensible defaults for a
// 48 kHz loopback setup.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the daemon configuration.
type Config struct {
	ListenAddr string  `mapstructure:"listen_addr"`
	LogLevel   string  `mapstructure:"log_level"`
	SampleRate float64 `mapstructure:"sample_rate"`
	BlockSize  int     `mapstructure:"block_size"`
	FFTSize    int     `mapstructure:"fft_size"`
	Smoothing  float64 `mapstructure:"smoothing"`

	ReconcileMaxAttempts int `mapstructure:"reconcile_max_attempts"`
}

// Load reads configuration. path names an explicit config file; empty
// searches for tabeq.yaml in the working directory, and a missing file
// is not an error. Environment variables use the TABEQ_ prefix with
// underscores (TABEQ_LISTEN_ADDR, TABEQ_SAMPLE_RATE, ...).
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("listen_addr", "127.0.0.1:8731")
	v.SetDefault("log_level", "info")
	v.SetDefault("sample_rate", 48000.0)
	v.SetDefault("block_size", 1024)
	v.SetDefault("fft_size", 2048)
	v.SetDefault("smoothing", 0.8)
	v.SetDefault("reconcile_max_attempts", 3)

	v.SetEnvPrefix("TABEQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("tabeq")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %v", c.SampleRate)
	}

	if c.BlockSize <= 0 {
		return fmt.Errorf("block_size must be positive, got %d", c.BlockSize)
	}

	if c.Smoothing < 0 || c.Smoothing >= 1 {
		return fmt.Errorf("smoothing must be in [0, 1), got %v", c.Smoothing)
	}

	if c.ReconcileMaxAttempts < 0 {
		return fmt.Errorf("reconcile_max_attempts must not be negative, got %d", c.ReconcileMaxAttempts)
	}

	return nil
}
