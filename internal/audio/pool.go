package audio

import "sync"

// MaxDecodedSamples is the largest Opus frame the decoder can produce:
// 120ms at 48kHz per channel.
const MaxDecodedSamples = 5760

// PlaybackBuffers holds pre-allocated buffers for the RTP decode→downmix→
// downsample→bytes pipeline. Used via sync.Pool to avoid per-packet
// allocations in the hot path.
type PlaybackBuffers struct {
	DecodeBuf []int16 // cap: MaxDecodedSamples * 2 (interleaved stereo)
	MonoBuf   []int16 // cap: MaxDecodedSamples
	OutBuf    []byte  // cap: MaxDecodedSamples (24kHz mono s16le)
}

var playbackPool = sync.Pool{
	New: func() interface{} {
		return &PlaybackBuffers{
			DecodeBuf: make([]int16, MaxDecodedSamples*2),
			MonoBuf:   make([]int16, MaxDecodedSamples),
			OutBuf:    make([]byte, MaxDecodedSamples),
		}
	},
}

// AcquirePlaybackBuffers gets a set of buffers from the pool.
func AcquirePlaybackBuffers() *PlaybackBuffers {
	return playbackPool.Get().(*PlaybackBuffers)
}

// ReleasePlaybackBuffers returns buffers to the pool.
func ReleasePlaybackBuffers(b *PlaybackBuffers) {
	playbackPool.Put(b)
}
