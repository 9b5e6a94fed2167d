package audio_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/fluxtone/talkover/pkg/audio"
)

// samplesToBytes converts a slice of int16 samples to little-endian byte representation.
func samplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// bytesToSamples converts a little-endian byte slice to int16 samples.
func bytesToSamples(b []byte) []int16 {
	samples := make([]int16, len(b)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return samples
}

func TestPCM16ToFloat32(t *testing.T) {
	pcm := samplesToBytes([]int16{0, 16384, -16384, 32767, -32768})
	got := audio.PCM16ToFloat32(pcm)
	want := []float32{0, 0.5, -0.5, 32767.0 / 32768, -1}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFloat32ToPCM16_Clamping(t *testing.T) {
	pcm := audio.Float32ToPCM16([]float32{2, -2, 1, -1})
	got := bytesToSamples(pcm)
	want := []int16{32767, -32767, 32767, -32767}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestRoundTrip_AllValues(t *testing.T) {
	// Encode-after-decode must reproduce every input within one LSB.
	// Values up to half scale survive exactly; -32768 maps to -32767
	// because of the asymmetric clamp range.
	for v := -32768; v <= 32767; v++ {
		in := samplesToBytes([]int16{int16(v)})
		out := bytesToSamples(audio.Float32ToPCM16(audio.PCM16ToFloat32(in)))
		got := int(out[0])

		if v == -32768 {
			if got != -32767 {
				t.Fatalf("round trip of -32768: got %d, want -32767", got)
			}
			continue
		}
		diff := got - v
		if diff < 0 {
			diff = -diff
		}
		if diff > 1 {
			t.Fatalf("round trip of %d: got %d (off by %d)", v, got, diff)
		}
		if v >= -16384 && v <= 16384 && got != v {
			t.Fatalf("round trip of %d: got %d, want exact", v, got)
		}
	}
}

func TestResample_Identity(t *testing.T) {
	in := []float32{0.1, -0.2, 0.3, -0.4}
	out := audio.Resample(in, 16000, 16000)
	if len(out) != len(in) {
		t.Fatalf("length mismatch: got %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("sample %d: got %v, want %v", i, out[i], in[i])
		}
	}
}

func TestResample_Length(t *testing.T) {
	tests := []struct {
		name     string
		inLen    int
		from, to int
	}{
		{"upsample 8k to 16k", 160, 8000, 16000},
		{"downsample 48k to 16k", 480, 48000, 16000},
		{"downsample 24k to 16k", 240, 24000, 16000},
		{"upsample 16k to 44.1k", 320, 16000, 44100},
		{"single sample", 1, 8000, 16000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := make([]float32, tt.inLen)
			out := audio.Resample(in, tt.from, tt.to)
			want := int(math.Round(float64(tt.inLen) * float64(tt.to) / float64(tt.from)))
			diff := len(out) - want
			if diff < -1 || diff > 1 {
				t.Errorf("output length: got %d, want %d (±1)", len(out), want)
			}
		})
	}
}

func TestResample_Interpolation(t *testing.T) {
	// 2x upsampling places the midpoint between each source pair; the final
	// fractional position clamps to the last source sample.
	out := audio.Resample([]float32{0, 1}, 8000, 16000)
	want := []float32{0, 0.5, 1, 1}
	if len(out) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(out), len(want))
	}
	for i := range want {
		if math.Abs(float64(out[i]-want[i])) > 1e-6 {
			t.Errorf("sample %d: got %v, want %v", i, out[i], want[i])
		}
	}
}

func TestLevel_Silence(t *testing.T) {
	if got := audio.Level(samplesToBytes(make([]int16, 160))); got != 0 {
		t.Errorf("all-zero frame: got %v, want 0", got)
	}
}

func TestLevel_EmptyFrame(t *testing.T) {
	if got := audio.Level(nil); got != 0 {
		t.Errorf("empty frame: got %v, want 0", got)
	}
}

func TestLevel_FullScale(t *testing.T) {
	samples := make([]int16, 160)
	for i := range samples {
		samples[i] = -32768
	}
	if got := audio.Level(samplesToBytes(samples)); got != 1 {
		t.Errorf("full-scale frame: got %v, want 1", got)
	}
}

func TestLevel_Alternating(t *testing.T) {
	// A frame alternating s and -s has RMS exactly |s|/32768.
	const s = 12000
	samples := make([]int16, 160)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = s
		} else {
			samples[i] = -s
		}
	}
	got := audio.Level(samplesToBytes(samples))
	want := float64(s) / 32768
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("alternating frame: got %v, want %v", got, want)
	}
}
