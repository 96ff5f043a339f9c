package audio

import (
	"encoding/binary"
	"math"
)

// SampleRate is the capture and wire sample rate for realtime sessions.
const SampleRate = 24000

// PlaybackSampleRate is the clock rate of the provider's Opus media track.
const PlaybackSampleRate = 48000

// Downsample48to24 converts 48kHz mono int16 samples to 24kHz
// by averaging each pair of consecutive samples.
func Downsample48to24(in []int16) []int16 {
	out := make([]int16, len(in)/2)
	for i := range out {
		sum := int32(in[i*2]) + int32(in[i*2+1])
		out[i] = int16(sum / 2)
	}
	return out
}

// Downsample48to24Into writes 24kHz samples into dst, avoiding allocation.
// dst must have capacity >= len(in)/2. Returns the used portion.
func Downsample48to24Into(in []int16, dst []int16) []int16 {
	n := len(in) / 2
	for i := 0; i < n; i++ {
		sum := int32(in[i*2]) + int32(in[i*2+1])
		dst[i] = int16(sum / 2)
	}
	return dst[:n]
}

// DownmixStereoInto averages interleaved stereo samples into mono.
// dst must have capacity >= len(in)/2. Returns the used portion.
func DownmixStereoInto(in []int16, dst []int16) []int16 {
	n := len(in) / 2
	for i := 0; i < n; i++ {
		sum := int32(in[i*2]) + int32(in[i*2+1])
		dst[i] = int16(sum / 2)
	}
	return dst[:n]
}

// Int16ToBytes converts int16 samples to s16le byte slice.
func Int16ToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// Int16ToBytesInto writes s16le bytes into dst, avoiding allocation.
// dst must have capacity >= len(samples)*2. Returns the used portion.
func Int16ToBytesInto(samples []int16, dst []byte) []byte {
	for i, s := range samples {
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(s))
	}
	return dst[:len(samples)*2]
}

// BytesToInt16 converts s16le byte slice to int16 samples.
func BytesToInt16(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}

// BytesToFloat32 converts an f32le byte slice to float32 samples.
func BytesToFloat32(data []byte) []float32 {
	samples := make([]float32, len(data)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		samples[i] = math.Float32frombits(bits)
	}
	return samples
}

// Int16ToFloat32 reverses the wire scaling: negative samples divide by 32768,
// non-negative by 32767.
func Int16ToFloat32(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		if s < 0 {
			out[i] = float32(s) / 32768
		} else {
			out[i] = float32(s) / 32767
		}
	}
	return out
}
