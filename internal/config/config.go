package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration.
type Config struct {
	Capture CaptureConfig `yaml:"capture"`
	Buffer  BufferConfig  `yaml:"buffer"`
	DSP     DSPConfig     `yaml:"dsp"`
	VAD     VADConfig     `yaml:"vad"`
	HTTP    HTTPConfig    `yaml:"http"`
	Logging LoggingConfig `yaml:"logging"`
}

// CaptureConfig selects and parameterizes the capture backend.
type CaptureConfig struct {
	Backend    string `yaml:"backend"`     // "portaudio"
	Device     string `yaml:"device"`      // empty = system default
	SampleRate int    `yaml:"sample_rate"` // Hz
	Channels   int    `yaml:"channels"`
}

// BufferConfig contains bounded buffer parameters.
type BufferConfig struct {
	MaxSizeBytes    int `yaml:"max_size_bytes"`
	BatchSize       int `yaml:"batch_size"`
	DrainIntervalMs int `yaml:"drain_interval_ms"`
}

// DSPConfig contains defaults for the auxiliary signal processing operations.
type DSPConfig struct {
	LowPassCutoff float64 `yaml:"lowpass_cutoff"` // Hz
}

// VADConfig contains voice activity detection parameters.
type VADConfig struct {
	Enabled         bool `yaml:"enabled"`
	Mode            int  `yaml:"mode"`              // 0 (lenient) - 3 (aggressive)
	FrameDurationMs int  `yaml:"frame_duration_ms"` // 10, 20 or 30
}

// HTTPConfig contains HTTP monitoring server configuration.
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the configuration used when no file overrides are given.
func Default() *Config {
	return &Config{
		Capture: CaptureConfig{
			Backend:    "portaudio",
			SampleRate: 24000,
			Channels:   1,
		},
		Buffer: BufferConfig{
			MaxSizeBytes:    5 * 1024 * 1024,
			BatchSize:       10,
			DrainIntervalMs: 100,
		},
		DSP: DSPConfig{
			LowPassCutoff: 8000,
		},
		VAD: VADConfig{
			Enabled:         true,
			Mode:            1,
			FrameDurationMs: 20,
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Address: "127.0.0.1",
			Port:    8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs validation of the full configuration.
func (c *Config) Validate() error {
	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}

	if err := c.Buffer.Validate(); err != nil {
		return fmt.Errorf("buffer config: %w", err)
	}

	if err := c.DSP.Validate(); err != nil {
		return fmt.Errorf("dsp config: %w", err)
	}

	if err := c.VAD.Validate(); err != nil {
		return fmt.Errorf("vad config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates capture configuration.
func (cc *CaptureConfig) Validate() error {
	switch cc.Backend {
	case "", "portaudio":
	default:
		return fmt.Errorf("backend must be 'portaudio', got '%s'", cc.Backend)
	}

	if cc.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", cc.SampleRate)
	}

	if cc.Channels < 1 {
		return fmt.Errorf("channels must be at least 1, got %d", cc.Channels)
	}

	return nil
}

// Validate validates buffer configuration. A zero max_size_bytes is allowed:
// the buffer then evicts everything on the next push.
func (b *BufferConfig) Validate() error {
	if b.MaxSizeBytes < 0 {
		return fmt.Errorf("max_size_bytes cannot be negative, got %d", b.MaxSizeBytes)
	}

	if b.BatchSize < 1 || b.BatchSize > 1000 {
		return fmt.Errorf("batch_size must be between 1 and 1000, got %d", b.BatchSize)
	}

	if b.DrainIntervalMs < 10 {
		return fmt.Errorf("drain_interval_ms must be at least 10, got %d", b.DrainIntervalMs)
	}

	return nil
}

// Validate validates DSP configuration.
func (d *DSPConfig) Validate() error {
	if d.LowPassCutoff <= 0 {
		return fmt.Errorf("lowpass_cutoff must be positive, got %f", d.LowPassCutoff)
	}

	return nil
}

// Validate validates VAD configuration.
func (v *VADConfig) Validate() error {
	if v.Mode < 0 || v.Mode > 3 {
		return fmt.Errorf("mode must be between 0 and 3, got %d", v.Mode)
	}

	switch v.FrameDurationMs {
	case 10, 20, 30:
	default:
		return fmt.Errorf("frame_duration_ms must be 10, 20 or 30, got %d", v.FrameDurationMs)
	}

	return nil
}

// Validate validates HTTP configuration.
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration.
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// DrainInterval returns the drain interval as a time.Duration.
func (b *BufferConfig) DrainInterval() time.Duration {
	return time.Duration(b.DrainIntervalMs) * time.Millisecond
}

// FrameDuration returns the VAD frame duration as a time.Duration.
func (v *VADConfig) FrameDuration() time.Duration {
	return time.Duration(v.FrameDurationMs) * time.Millisecond
}
