// Package config provides configuration management for the avatar sync
// clients.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/MariaFayed/flames-avatar/internal/anim"
	"github.com/MariaFayed/flames-avatar/internal/logging"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Audio    AudioConfig    `mapstructure:"audio"`
	Tracking TrackingConfig `mapstructure:"tracking"`
	Anim     anim.Config    `mapstructure:"anim"`
	Render   RenderConfig   `mapstructure:"render"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      logging.Config `mapstructure:"log"`
}

// ServerConfig locates the session server.
type ServerConfig struct {
	URL            string        `mapstructure:"url"`
	Room           string        `mapstructure:"room"`
	Language       string        `mapstructure:"language"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

// AudioConfig describes the outbound PCM stream format.
type AudioConfig struct {
	SampleRate   int `mapstructure:"sample_rate"`   // 16000 Hz
	Channels     int `mapstructure:"channels"`      // mono
	BitDepth     int `mapstructure:"bit_depth"`     // 16-bit signed LE
	ChunkSamples int `mapstructure:"chunk_samples"` // samples per frame
}

// TrackingConfig tunes outbound pose telemetry.
type TrackingConfig struct {
	PoseInterval time.Duration `mapstructure:"pose_interval"` // min gap between pose records
}

// RenderConfig drives the animation tick.
type RenderConfig struct {
	TickRate int `mapstructure:"tick_rate"` // animation ticks per second
}

// MetricsConfig controls the optional Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:            "wss://localhost:8443",
			Room:           "default",
			Language:       "ar",
			ReconnectDelay: 3 * time.Second,
			MaxBackoff:     60 * time.Second,
		},
		Audio: AudioConfig{
			SampleRate:   16000,
			Channels:     1,
			BitDepth:     16,
			ChunkSamples: 4096,
		},
		Tracking: TrackingConfig{
			PoseInterval: 66 * time.Millisecond, // ~15 Hz
		},
		Anim:   anim.DefaultConfig(),
		Render: RenderConfig{TickRate: 60},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9290",
		},
		Log: *logging.DefaultConfig(),
	}
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configDir, err := Dir()
	if err != nil {
		return cfg, err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return cfg, err
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("FLAMESAVATAR")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
		// First run: persist the defaults so the file exists to edit.
		if err := Save(cfg); err != nil {
			return cfg, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Save writes the configuration to file
func Save(cfg *Config) error {
	configDir, err := Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	viper.Set("server", cfg.Server)
	viper.Set("audio", cfg.Audio)
	viper.Set("tracking", cfg.Tracking)
	viper.Set("anim", cfg.Anim)
	viper.Set("render", cfg.Render)
	viper.Set("metrics", cfg.Metrics)
	viper.Set("log", cfg.Log)

	return viper.WriteConfigAs(filepath.Join(configDir, "config.yaml"))
}

// Dir returns the configuration directory path
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".flamesavatar"), nil
}
