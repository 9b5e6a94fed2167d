// Package bargein detects a user interrupting assistant speech mid-playback.
//
// While the caller reports that assistant audio is playing, the detector
// watches the user's inbound frames and fires a single debounced event per
// genuine speech onset so playback can be cancelled immediately. The debounce
// counts consecutive above-threshold frames rather than wall-clock time:
// frame cadence is regular, a real interruption must be caught within a
// handful of frames, and a frame count is a simpler and more predictable
// proxy for a few tens of milliseconds of sustained energy than a timer at
// this granularity. The false-positive tolerance is lower here than in
// speech segmentation — cutting real assistant audio on a noise spike is
// costly — which is why onset is debounced at all.
//
// A Detector owns the state for exactly one session and must not be shared
// across sessions. Frames must arrive in order from a single goroutine;
// CheckForBargeIn does a bounded amount of arithmetic and never blocks.
package bargein

import "github.com/fluxtone/talkover/pkg/audio"

// Detector is the per-session barge-in state machine. The zero value is not
// usable; create one with [NewDetector].
//
// Not safe for concurrent use.
type Detector struct {
	threshold float64
	required  int

	armed           bool
	consecutiveHigh int

	onBargeIn func()
}

// Config holds the tunable parameters for a [Detector].
type Config struct {
	// Threshold is the RMS level above which an inbound frame counts toward
	// an interruption. Range [0, 1]. Values are accepted as given.
	Threshold float64

	// RequiredConsecutiveSamples is the count of consecutive above-threshold
	// frames needed to confirm a genuine interruption, guarding against
	// transient noise and echo spikes.
	RequiredConsecutiveSamples int
}

// DefaultConfig returns the standard barge-in tuning: a slightly higher
// threshold than speech segmentation and a three-frame debounce.
func DefaultConfig() Config {
	return Config{
		Threshold:                  0.015,
		RequiredConsecutiveSamples: 3,
	}
}

// NewDetector creates a Detector with the given tuning.
func NewDetector(cfg Config) *Detector {
	return &Detector{
		threshold: cfg.Threshold,
		required:  cfg.RequiredConsecutiveSamples,
	}
}

// SetOnBargeIn registers cb to run when an interruption is confirmed. Only
// one callback may be registered at a time; subsequent calls replace the
// previous registration. The callback runs synchronously inside
// [Detector.CheckForBargeIn], at most once per armed period, and must be fast
// and non-blocking.
func (d *Detector) SetOnBargeIn(cb func()) { d.onBargeIn = cb }

// SetThreshold updates the level threshold, effective on the next
// CheckForBargeIn call.
func (d *Detector) SetThreshold(threshold float64) { d.threshold = threshold }

// SetRequiredConsecutiveSamples updates the debounce length, effective on the
// next CheckForBargeIn call.
func (d *Detector) SetRequiredConsecutiveSamples(n int) { d.required = n }

// IsCurrentlySpeaking reports whether monitoring is armed, i.e. the assistant
// is believed to be speaking.
func (d *Detector) IsCurrentlySpeaking() bool { return d.armed }

// StartAssistantSpeech arms monitoring: assistant playback has begun. The
// consecutive-frame counter is zeroed. Calling it while already armed is a
// harmless restart of the debounce.
func (d *Detector) StartAssistantSpeech() {
	d.armed = true
	d.consecutiveHigh = 0
}

// StopAssistantSpeech disarms monitoring: playback has ended, naturally or
// because a trigger cancelled it. Idempotent.
func (d *Detector) StopAssistantSpeech() {
	d.armed = false
	d.consecutiveHigh = 0
}

// CheckForBargeIn analyses one inbound user frame of little-endian PCM16
// audio. It returns true exactly on the frame that confirms an interruption
// — the one completing the required consecutive run — and false in every
// other case, including when not armed. On confirmation the callback fires,
// monitoring disarms, and the counter resets; the caller is expected to
// re-arm via [Detector.StartAssistantSpeech] for the next playback.
func (d *Detector) CheckForBargeIn(frame []byte) bool {
	if !d.armed {
		return false
	}

	if audio.Level(frame) <= d.threshold {
		// The run must be unbroken.
		d.consecutiveHigh = 0
		return false
	}

	d.consecutiveHigh++
	if d.consecutiveHigh < d.required {
		return false
	}

	d.armed = false
	d.consecutiveHigh = 0
	if d.onBargeIn != nil {
		d.onBargeIn()
	}
	return true
}
