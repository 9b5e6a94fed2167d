package audio

import (
	"encoding/binary"
	"math"
)

// PCM16ToFloat32 decodes little-endian 16-bit signed PCM into normalized
// float32 samples in approximately [-1, 1] (each sample is divided by 32768).
// The input must contain an even number of bytes; trailing odd bytes are the
// caller's contract violation and are ignored.
func PCM16ToFloat32(pcm []byte) []float32 {
	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		samples[i] = float32(s) / 32768
	}
	return samples
}

// Float32ToPCM16 encodes normalized float32 samples as little-endian 16-bit
// signed PCM. Each sample is clamped to [-1, 1], scaled by 32767 and rounded
// to the nearest integer.
//
// This is the inverse of [PCM16ToFloat32] up to quantization: the asymmetric
// clamp range maps an original -32768 to -32767, and magnitudes above 16384
// may lose a single LSB to the 32768/32767 scale mismatch.
func Float32ToPCM16(samples []float32) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := float64(s)
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(math.Round(v*32767))))
	}
	return pcm
}

// Resample converts normalized samples from fromRate to toRate using linear
// interpolation. When the rates match the input is returned unchanged, so
// callers must not assume the result is a distinct slice. This is a simple
// non-band-limited resampler without an anti-aliasing filter; it trades
// fidelity for speed, which is sufficient for energy analysis and telephony
// audio.
func Resample(samples []float32, fromRate, toRate int) []float32 {
	if fromRate == toRate || len(samples) == 0 {
		return samples
	}
	ratio := float64(fromRate) / float64(toRate)
	outLen := int(math.Round(float64(len(samples)) / ratio))
	out := make([]float32, outLen)
	for i := range out {
		srcPos := float64(i) * ratio
		lo := int(srcPos)
		hi := lo + 1
		if hi >= len(samples) {
			hi = len(samples) - 1
		}
		if lo >= len(samples) {
			lo = len(samples) - 1
		}
		frac := float32(srcPos - float64(lo))
		out[i] = samples[lo]*(1-frac) + samples[hi]*frac
	}
	return out
}

// Level computes the RMS energy of a little-endian 16-bit PCM frame over
// samples normalized to [-1, 1]. The result is in [0, 1]. An empty frame
// yields 0.
func Level(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}
