package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; the audio format
// is fixed for the life of a session and is deliberately absent.
type ConfigDiff struct {
	// SegmentationChanged is true when any segmentation tuning value changed.
	SegmentationChanged bool

	// BargeInChanged is true when any barge-in tuning value changed.
	BargeInChanged bool

	LogLevelChanged bool
	NewLogLevel     LogLevel
}

// Any reports whether the diff contains at least one change.
func (d ConfigDiff) Any() bool {
	return d.SegmentationChanged || d.BargeInChanged || d.LogLevelChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply to running sessions via the
// analyzers' runtime setters.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.LogLevel
	}

	if old.Segmentation != new.Segmentation {
		d.SegmentationChanged = true
	}

	if old.BargeIn != new.BargeIn {
		d.BargeInChanged = true
	}

	return d
}
