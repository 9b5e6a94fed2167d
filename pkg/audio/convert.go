// Package audio provides the sample-format primitives shared by the speech
// analyzers: PCM16/float conversion, linear-interpolation resampling, RMS
// level computation, and a per-stream format converter that normalizes
// incoming frames to the single-channel rate the analyzers expect.
package audio

import (
	"log/slog"
	"sync"
)

// FormatConverter normalizes AudioFrames to mono at a target sample rate.
// The analyzers are single-channel, so stereo input is downmixed before
// resampling. It logs a warning on the first format mismatch and drops
// frames with corrupt (odd byte count) PCM data.
// Create one per stream; not designed for shared use across goroutines.
type FormatConverter struct {
	// TargetRate is the sample rate frames are converted to.
	TargetRate int

	warnedMismatch sync.Once
	warnedCorrupt  sync.Once
}

// Convert converts a frame to mono at the target rate. If the source already
// matches, the frame is returned unchanged (zero allocation).
func (c *FormatConverter) Convert(frame AudioFrame) AudioFrame {
	// Odd byte count cannot be int16 PCM.
	if len(frame.Data)%2 != 0 {
		c.warnedCorrupt.Do(func() {
			slog.Warn("audio format converter: odd byte count in PCM data, dropping frame",
				"bytes", len(frame.Data),
				"sampleRate", frame.SampleRate,
				"channels", frame.Channels,
			)
		})
		return AudioFrame{
			SampleRate: c.TargetRate,
			Channels:   1,
			Timestamp:  frame.Timestamp,
		}
	}

	// Fast path: already mono at the target rate.
	if frame.SampleRate == c.TargetRate && frame.Channels == 1 {
		return frame
	}

	c.warnedMismatch.Do(func() {
		slog.Warn("audio format mismatch: converting",
			"fromRate", frame.SampleRate,
			"fromChannels", frame.Channels,
			"toRate", c.TargetRate,
		)
	})

	pcm := frame.Data

	// Downmix first so resampling only ever runs on mono data.
	if frame.Channels == 2 {
		pcm = StereoToMono(pcm)
	}
	if frame.SampleRate != c.TargetRate {
		pcm = ResampleMono16(pcm, frame.SampleRate, c.TargetRate)
	}

	return AudioFrame{
		Data:       pcm,
		SampleRate: c.TargetRate,
		Channels:   1,
		Timestamp:  frame.Timestamp,
	}
}

// ConvertStream wraps an input channel with a conversion goroutine. It closes
// the returned channel when in closes. Uses cap(in) for the output channel
// buffer. Frames with empty data (e.g. from odd byte count) are dropped.
func ConvertStream(in <-chan AudioFrame, targetRate int) <-chan AudioFrame {
	out := make(chan AudioFrame, cap(in))
	go func() {
		defer close(out)
		conv := FormatConverter{TargetRate: targetRate}
		for frame := range in {
			converted := conv.Convert(frame)
			if len(converted.Data) == 0 {
				continue
			}
			out <- converted
		}
	}()
	return out
}

// StereoToMono averages L+R per stereo frame (4 bytes) to produce mono output.
// Averaging in int32 cannot overflow int16, so no clamping is needed beyond
// the divide.
func StereoToMono(pcm []byte) []byte {
	frames := len(pcm) / 4
	out := make([]byte, frames*2)
	for i := range frames {
		l := int32(int16(pcm[i*4]) | int16(pcm[i*4+1])<<8)
		r := int32(int16(pcm[i*4+2]) | int16(pcm[i*4+3])<<8)
		avg := (l + r) / 2
		out[i*2] = byte(avg)
		out[i*2+1] = byte(avg >> 8)
	}
	return out
}

// ResampleMono16 resamples 16-bit mono little-endian PCM from srcRate to
// dstRate. It is a byte-level convenience over [Resample]; see that function
// for the interpolation semantics. If srcRate == dstRate, the input is
// returned unchanged.
func ResampleMono16(pcm []byte, srcRate, dstRate int) []byte {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate || len(pcm) < 2 {
		return pcm
	}
	return Float32ToPCM16(Resample(PCM16ToFloat32(pcm), srcRate, dstRate))
}
