// Package vad implements energy-based speech segmentation for a single audio
// stream: a two-state hysteresis machine that turns per-frame RMS levels into
// discrete speech-start and speech-end events.
//
// Speech onset is reported the instant a frame's level exceeds the threshold
// — onset latency matters more than onset false positives, which downstream
// consumers tolerate cheaply. Speech end is only confirmed after a continuous
// sub-threshold run spanning the configured silence duration; a single frame
// back above the threshold restarts the wait.
//
// A Segmenter owns the state for exactly one stream and must not be shared
// across sessions. Frames must arrive in order from a single goroutine;
// ProcessChunk does a bounded amount of arithmetic and never blocks.
package vad

import (
	"time"

	"github.com/fluxtone/talkover/pkg/audio"
)

// Segmenter detects utterance boundaries in a stream of fixed-format PCM16
// frames. The zero value is not usable; create one with [NewSegmenter].
//
// Not safe for concurrent use.
type Segmenter struct {
	threshold       float64
	silenceDuration time.Duration

	speaking     bool
	silenceStart time.Time // zero when no silence run is pending

	onSpeechStart func()
	onSpeechEnd   func()

	// now is the clock used for silence timing. Injectable in tests so
	// hysteresis timing is deterministic.
	now func() time.Time
}

// NewSegmenter creates a Segmenter with the given tuning.
func NewSegmenter(cfg Config) *Segmenter {
	return &Segmenter{
		threshold:       cfg.Threshold,
		silenceDuration: cfg.SilenceDuration,
		now:             time.Now,
	}
}

// SetOnSpeechStart registers cb to run when speech begins. Only one callback
// may be registered at a time; subsequent calls replace the previous
// registration. The callback runs synchronously inside [Segmenter.ProcessChunk]
// and must be fast and non-blocking.
func (s *Segmenter) SetOnSpeechStart(cb func()) { s.onSpeechStart = cb }

// SetOnSpeechEnd registers cb to run when speech ends. Same registration and
// execution semantics as [Segmenter.SetOnSpeechStart].
func (s *Segmenter) SetOnSpeechEnd(cb func()) { s.onSpeechEnd = cb }

// SetThreshold updates the speech level threshold, effective on the next
// ProcessChunk call.
func (s *Segmenter) SetThreshold(threshold float64) { s.threshold = threshold }

// SetSilenceDuration updates the silence duration required to confirm a
// speech end, effective on the next ProcessChunk call.
func (s *Segmenter) SetSilenceDuration(d time.Duration) { s.silenceDuration = d }

// IsCurrentlySpeaking reports whether the stream is inside an utterance.
func (s *Segmenter) IsCurrentlySpeaking() bool { return s.speaking }

// Reset clears the segmenter back to the initial not-speaking state without
// firing callbacks. Use when a session restarts independent of a genuine
// speech end.
func (s *Segmenter) Reset() {
	s.speaking = false
	s.silenceStart = time.Time{}
}

// ProcessChunk analyses one frame of little-endian PCM16 audio and advances
// the state machine. It is the sole mutating entry point and must be called
// once per arriving frame, in arrival order.
//
// Silence timing samples the wall clock once at the start of a sub-threshold
// run and measures elapsed time on each subsequent call, so frames are
// assumed to be delivered promptly and regularly relative to real time.
func (s *Segmenter) ProcessChunk(frame []byte) Result {
	level := audio.Level(frame)
	res := Result{
		IsSpeech: level > s.threshold,
		Level:    level,
	}

	if res.IsSpeech {
		// Any above-threshold frame cancels a pending silence run.
		s.silenceStart = time.Time{}
		if !s.speaking {
			s.speaking = true
			res.Event = EventSpeechStart
			if s.onSpeechStart != nil {
				s.onSpeechStart()
			}
		}
		return res
	}

	if !s.speaking {
		return res
	}

	if s.silenceStart.IsZero() {
		s.silenceStart = s.now()
		return res
	}

	elapsed := s.now().Sub(s.silenceStart)
	res.SilenceDuration = elapsed
	if elapsed >= s.silenceDuration {
		s.speaking = false
		s.silenceStart = time.Time{}
		res.Event = EventSpeechEnd
		if s.onSpeechEnd != nil {
			s.onSpeechEnd()
		}
	}
	return res
}
