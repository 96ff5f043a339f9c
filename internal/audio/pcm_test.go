package audio

import (
	"math"
	"testing"
)

func TestDownsample48to24(t *testing.T) {
	in := []int16{100, 200, -100, -300, 0, 1}
	out := Downsample48to24(in)
	want := []int16{150, -200, 0}
	if len(out) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(out))
	}
	for i, v := range want {
		if out[i] != v {
			t.Errorf("sample %d: got %d, want %d", i, out[i], v)
		}
	}
}

func TestDownsample48to24IntoMatchesAllocating(t *testing.T) {
	in := make([]int16, 960)
	for i := range in {
		in[i] = int16(i*37 - 5000)
	}
	dst := make([]int16, 480)
	got := Downsample48to24Into(in, dst)
	want := Downsample48to24(in)
	if len(got) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestDownmixStereoInto(t *testing.T) {
	// Interleaved L/R pairs.
	in := []int16{1000, 2000, -500, 500}
	dst := make([]int16, 2)
	out := DownmixStereoInto(in, dst)
	if out[0] != 1500 || out[1] != 0 {
		t.Errorf("got %v, want [1500 0]", out)
	}
}

func TestInt16BytesRoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 12345, -12345}
	back := BytesToInt16(Int16ToBytes(samples))
	if len(back) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(back))
	}
	for i, s := range samples {
		if back[i] != s {
			t.Errorf("sample %d: got %d, want %d", i, back[i], s)
		}
	}
}

func TestInt16ToBytesIntoMatchesAllocating(t *testing.T) {
	samples := []int16{7, -7, 300, -300}
	dst := make([]byte, len(samples)*2)
	got := Int16ToBytesInto(samples, dst)
	want := Int16ToBytes(samples)
	if string(got) != string(want) {
		t.Errorf("got % x, want % x", got, want)
	}
}

func TestBytesToFloat32(t *testing.T) {
	in := []float32{0, 0.5, -0.5, 1, -1}
	raw := make([]byte, len(in)*4)
	for i, f := range in {
		bits := math.Float32bits(f)
		raw[i*4] = byte(bits)
		raw[i*4+1] = byte(bits >> 8)
		raw[i*4+2] = byte(bits >> 16)
		raw[i*4+3] = byte(bits >> 24)
	}
	out := BytesToFloat32(raw)
	for i, f := range in {
		if out[i] != f {
			t.Errorf("sample %d: got %f, want %f", i, out[i], f)
		}
	}
}

func TestInt16ToFloat32Asymmetric(t *testing.T) {
	out := Int16ToFloat32([]int16{32767, -32768, 0})
	if out[0] != 1 {
		t.Errorf("32767: got %f, want 1", out[0])
	}
	if out[1] != -1 {
		t.Errorf("-32768: got %f, want -1", out[1])
	}
	if out[2] != 0 {
		t.Errorf("0: got %f, want 0", out[2])
	}
}
