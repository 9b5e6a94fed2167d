package audio

import "time"

// AudioFrame represents a single frame of audio data flowing through the
// analysis pipeline. Frames are the atomic unit of transport — delivered by
// the caller's ingest loop, normalized by a [FormatConverter], and consumed
// by the speech analyzers. Frames are caller-owned; the analyzers never
// retain one past the call that delivers it.
type AudioFrame struct {
	// PCM audio data, little-endian 16-bit signed samples.
	Data []byte

	// SampleRate in Hz (e.g., 8000 for telephony, 16000 for wideband).
	SampleRate int

	// Channels: 1 for mono, 2 for interleaved stereo.
	Channels int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}
