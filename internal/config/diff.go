package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked: provider wiring,
// listen address, and TLS changes all require a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// KeywordsChanged is true when the interview keyword list changed; the
	// transcript corrector can rebuild its matcher without a restart.
	KeywordsChanged bool
	NewKeywords     []string

	// RecordingChanged is true when any recording timing knob changed; new
	// sessions pick up the new values, running sessions keep the old ones.
	RecordingChanged bool
	NewRecording     RecordingConfig
}

// Any reports whether the diff contains at least one change.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.KeywordsChanged || d.RecordingChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if !slices.Equal(old.Interview.Keywords, new.Interview.Keywords) {
		d.KeywordsChanged = true
		d.NewKeywords = slices.Clone(new.Interview.Keywords)
	}

	if old.Recording != new.Recording {
		d.RecordingChanged = true
		d.NewRecording = new.Recording
	}

	return d
}
