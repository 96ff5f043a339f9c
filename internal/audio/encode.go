package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"
)

// encodeChunkBytes bounds how much raw PCM is fed to the base64 encoder at
// once so arbitrarily large frames never build a single oversized buffer.
const encodeChunkBytes = 32768

// EncodeFrame converts one frame of float32 mono samples into the realtime
// wire format: little-endian 16-bit PCM, base64-encoded. Samples are clamped
// to [-1, 1] first. Negative samples scale by 32768 and non-negative by
// 32767; the asymmetric scaling matches the provider's expected integer
// range and is a fixed contract, not an accident.
func EncodeFrame(frame []float32) string {
	raw := make([]byte, len(frame)*2)
	for i, s := range frame {
		if s < -1 {
			s = -1
		} else if s > 1 {
			s = 1
		}
		var v int16
		if s < 0 {
			v = int16(s * 32768)
		} else {
			v = int16(s * 32767)
		}
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(v))
	}

	var b strings.Builder
	b.Grow(base64.StdEncoding.EncodedLen(len(raw)))
	enc := base64.NewEncoder(base64.StdEncoding, &b)
	for off := 0; off < len(raw); off += encodeChunkBytes {
		end := off + encodeChunkBytes
		if end > len(raw) {
			end = len(raw)
		}
		enc.Write(raw[off:end])
	}
	enc.Close()
	return b.String()
}

// DecodeChunk reverses the wire encoding back to int16 samples.
func DecodeChunk(chunk string) ([]int16, error) {
	raw, err := base64.StdEncoding.DecodeString(chunk)
	if err != nil {
		return nil, fmt.Errorf("decode audio chunk: %w", err)
	}
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("decode audio chunk: odd byte count %d", len(raw))
	}
	return BytesToInt16(raw), nil
}
