// Package config provides the configuration schema, loader, and hot-reload
// watcher for the Talkover analysis core.
package config

import (
	"time"

	"github.com/fluxtone/talkover/pkg/bargein"
	"github.com/fluxtone/talkover/pkg/vad"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for Talkover.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	Audio        AudioConfig        `yaml:"audio"`
	Segmentation SegmentationConfig `yaml:"segmentation"`
	BargeIn      BargeInConfig      `yaml:"barge_in"`
}

// AudioConfig describes the fixed frame format sessions normalize audio to.
type AudioConfig struct {
	// SampleRate is the analysis sample rate in Hz. Incoming frames at other
	// rates are resampled to this rate before analysis.
	SampleRate int `yaml:"sample_rate"`

	// FrameMs is the expected frame cadence in milliseconds. The barge-in
	// debounce counts frames, so this determines its wall-clock latency
	// (consecutive_frames × frame_ms).
	FrameMs int `yaml:"frame_ms"`
}

// SegmentationConfig holds the speech segmentation tuning.
type SegmentationConfig struct {
	// Threshold is the RMS level above which a frame counts as speech, in [0, 1].
	Threshold float64 `yaml:"threshold"`

	// SilenceMs is the continuous silence duration confirming a speech end.
	SilenceMs int `yaml:"silence_ms"`
}

// VADConfig converts the YAML tuning block into the segmenter's config type.
func (c SegmentationConfig) VADConfig() vad.Config {
	return vad.Config{
		Threshold:       c.Threshold,
		SilenceDuration: time.Duration(c.SilenceMs) * time.Millisecond,
	}
}

// BargeInConfig holds the barge-in detection tuning.
type BargeInConfig struct {
	// Threshold is the RMS level above which an inbound frame counts toward
	// an interruption, in [0, 1].
	Threshold float64 `yaml:"threshold"`

	// ConsecutiveFrames is the unbroken run of above-threshold frames that
	// confirms an interruption.
	ConsecutiveFrames int `yaml:"consecutive_frames"`
}

// DetectorConfig converts the YAML tuning block into the detector's config type.
func (c BargeInConfig) DetectorConfig() bargein.Config {
	return bargein.Config{
		Threshold:                  c.Threshold,
		RequiredConsecutiveSamples: c.ConsecutiveFrames,
	}
}

// DefaultConfig returns the standard telephony tuning: 8kHz mono at 20ms
// frames, a one second end-of-utterance silence window, and a three-frame
// barge-in debounce.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: LogInfo,
		Audio: AudioConfig{
			SampleRate: 8000,
			FrameMs:    20,
		},
		Segmentation: SegmentationConfig{
			Threshold: 0.01,
			SilenceMs: 1000,
		},
		BargeIn: BargeInConfig{
			Threshold:         0.015,
			ConsecutiveFrames: 3,
		},
	}
}
