package audio

import (
	"math"
	"strings"
	"testing"
)

func TestEncodeFrameRoundTrip(t *testing.T) {
	frame := []float32{0, 0.25, -0.25, 0.5, -0.5, 0.999, -0.999, 1, -1}

	decoded, err := DecodeChunk(EncodeFrame(frame))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != len(frame) {
		t.Fatalf("expected %d samples, got %d", len(frame), len(decoded))
	}

	for i, s := range frame {
		var want float64
		if s < 0 {
			want = float64(s) * 32768
		} else {
			want = float64(s) * 32767
		}
		if math.Abs(float64(decoded[i])-want) > 1 {
			t.Errorf("sample %d: got %d, want within 1 of %.1f", i, decoded[i], want)
		}
	}
}

func TestEncodeFrameClampsOutOfRange(t *testing.T) {
	decoded, err := DecodeChunk(EncodeFrame([]float32{2.5, -3.0, 100, -100}))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	want := []int16{32767, -32768, 32767, -32768}
	for i, v := range want {
		if decoded[i] != v {
			t.Errorf("sample %d: got %d, want %d (no wraparound)", i, decoded[i], v)
		}
	}
}

func TestEncodeFrameAsymmetricScaling(t *testing.T) {
	decoded, err := DecodeChunk(EncodeFrame([]float32{1, -1}))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded[0] != 32767 {
		t.Errorf("+1.0: got %d, want 32767", decoded[0])
	}
	if decoded[1] != -32768 {
		t.Errorf("-1.0: got %d, want -32768", decoded[1])
	}
}

func TestEncodeFrameLargerThanChunk(t *testing.T) {
	// Frame well past the base64 chunking boundary.
	frame := make([]float32, encodeChunkBytes)
	for i := range frame {
		frame[i] = float32(i%100) / 100
	}

	chunk := EncodeFrame(frame)
	if strings.ContainsAny(chunk, "\n\r") {
		t.Error("encoded chunk must be newline-free")
	}

	decoded, err := DecodeChunk(chunk)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != len(frame) {
		t.Fatalf("expected %d samples, got %d", len(frame), len(decoded))
	}
	for i := 0; i < len(frame); i += 997 {
		want := int16(float64(frame[i]) * 32767)
		if decoded[i] != want {
			t.Fatalf("sample %d: got %d, want %d", i, decoded[i], want)
		}
	}
}

func TestEncodeFrameEmpty(t *testing.T) {
	if got := EncodeFrame(nil); got != "" {
		t.Errorf("empty frame: got %q, want empty string", got)
	}
}

func TestDecodeChunkRejectsBadInput(t *testing.T) {
	if _, err := DecodeChunk("not base64!!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
	if _, err := DecodeChunk("QQ=="); err == nil {
		t.Error("expected error for odd byte count")
	}
}
