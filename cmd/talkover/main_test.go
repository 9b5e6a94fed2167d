package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, usedDefaults, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if !usedDefaults {
		t.Error("usedDefaults: got false for a missing file")
	}
	if cfg.Audio.SampleRate != 8000 {
		t.Errorf("default sample rate: got %d, want 8000", cfg.Audio.SampleRate)
	}
}

func TestLoadConfig_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "talkover.yaml")
	if err := os.WriteFile(path, []byte("log_level: debug\nsegmentation:\n  threshold: 0.25\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, usedDefaults, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if usedDefaults {
		t.Error("usedDefaults: got true for an existing file")
	}
	if cfg.Segmentation.Threshold != 0.25 {
		t.Errorf("threshold: got %v, want 0.25", cfg.Segmentation.Threshold)
	}
}

func TestLoadConfig_InvalidFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "talkover.yaml")
	if err := os.WriteFile(path, []byte("segmentation:\n  threshold: 2.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := loadConfig(path); err == nil {
		t.Error("loadConfig succeeded on an out-of-range threshold, want error")
	}
}
