package vad

import "time"

// EventType enumerates the speech boundary transitions a [Segmenter] can emit.
type EventType int

const (
	// EventNone indicates no boundary was crossed by this frame.
	EventNone EventType = iota

	// EventSpeechStart indicates speech has just begun.
	EventSpeechStart

	// EventSpeechEnd indicates speech has just ended.
	EventSpeechEnd
)

// String returns the human-readable name of the event type.
func (e EventType) String() string {
	switch e {
	case EventNone:
		return "NONE"
	case EventSpeechStart:
		return "SPEECH_START"
	case EventSpeechEnd:
		return "SPEECH_END"
	default:
		return "UNKNOWN"
	}
}

// Result is the per-frame outcome of [Segmenter.ProcessChunk]. It carries the
// instantaneous classification and the running silence duration for caller
// diagnostics and tuning; correctness does not depend on callers reading it.
type Result struct {
	// Event is the boundary transition caused by this frame, if any. Callers
	// that prefer driving side effects themselves can switch on this instead
	// of registering callbacks.
	Event EventType

	// IsSpeech reports whether this frame's level exceeded the threshold.
	IsSpeech bool

	// Level is the RMS energy of this frame, in [0, 1].
	Level float64

	// SilenceDuration is the elapsed time of the current sub-threshold run
	// while speaking, or zero when no silence run is pending.
	SilenceDuration time.Duration
}

// Config holds the tunable parameters for a [Segmenter].
type Config struct {
	// Threshold is the RMS level above which a frame counts as speech.
	// Range [0, 1]. Values are accepted as given; sane tuning is the
	// caller's responsibility.
	Threshold float64

	// SilenceDuration is the continuous sub-threshold duration required to
	// confirm a speech end.
	SilenceDuration time.Duration
}

// DefaultConfig returns the tuning used for 8kHz telephony audio at 20ms
// frames: a low onset threshold (false positives on onset are cheaper than
// added latency) and one second of silence to confirm an utterance end.
func DefaultConfig() Config {
	return Config{
		Threshold:       0.01,
		SilenceDuration: time.Second,
	}
}
