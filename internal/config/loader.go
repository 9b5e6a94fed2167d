package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Fields absent from the YAML keep the [DefaultConfig] values, so a partial
// file overrides only the tuning it names. Useful in tests where configs are
// constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
//
// Note that this is the application boundary's validation: the analyzers
// themselves accept whatever tuning they are handed, so this is the one
// place out-of-range values are caught.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	if cfg.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive, got %d", cfg.Audio.SampleRate))
	}
	if cfg.Audio.FrameMs <= 0 {
		errs = append(errs, fmt.Errorf("audio.frame_ms must be positive, got %d", cfg.Audio.FrameMs))
	}

	if cfg.Segmentation.Threshold < 0 || cfg.Segmentation.Threshold > 1 {
		errs = append(errs, fmt.Errorf("segmentation.threshold must be in [0, 1], got %v", cfg.Segmentation.Threshold))
	}
	if cfg.Segmentation.SilenceMs < 0 {
		errs = append(errs, fmt.Errorf("segmentation.silence_ms must not be negative, got %d", cfg.Segmentation.SilenceMs))
	}

	if cfg.BargeIn.Threshold < 0 || cfg.BargeIn.Threshold > 1 {
		errs = append(errs, fmt.Errorf("barge_in.threshold must be in [0, 1], got %v", cfg.BargeIn.Threshold))
	}
	if cfg.BargeIn.ConsecutiveFrames < 1 {
		errs = append(errs, fmt.Errorf("barge_in.consecutive_frames must be at least 1, got %d", cfg.BargeIn.ConsecutiveFrames))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %w", errors.Join(errs...))
	}
	return nil
}
