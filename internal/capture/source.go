package capture

import (
	"context"
	"io"
	"math"

	"github.com/croisantti/nutriwhisper-bot/internal/audio"
)

const (
	// FrameSamples is the fixed capture block size: every frame handed to
	// the recorder callback holds exactly this many float32 samples.
	FrameSamples = 4096

	bytesPerSample = 4 // f32le
)

// Source is the interface for any microphone-like audio source. Open
// acquires the underlying device and returns a stream of f32le, 24kHz, mono
// PCM. Closing the stream releases the device; Close must be idempotent.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	Name() string
}

// ToneSource generates a continuous sine wave. Used by tests and by the
// demo mode when no capture device is available.
type ToneSource struct {
	Frequency float64
}

// Name identifies the source in logs.
func (t *ToneSource) Name() string { return "tone" }

// Open returns an endless reader of f32le sine samples.
func (t *ToneSource) Open(ctx context.Context) (io.ReadCloser, error) {
	freq := t.Frequency
	if freq == 0 {
		freq = audio.ToneFrequency
	}
	return &toneReader{ctx: ctx, freq: freq}, nil
}

type toneReader struct {
	ctx    context.Context
	freq   float64
	phase  int
	closed bool
	// one second of samples, regenerated lazily
	cycle []byte
}

func (r *toneReader) Read(p []byte) (int, error) {
	if r.closed || r.ctx.Err() != nil {
		return 0, io.EOF
	}
	if r.cycle == nil {
		samples := audio.GenerateSine(1.0, r.freq)
		r.cycle = make([]byte, 0, len(samples)*bytesPerSample)
		for _, s := range samples {
			r.cycle = appendFloat32LE(r.cycle, s)
		}
	}
	n := 0
	for n < len(p) {
		c := copy(p[n:], r.cycle[r.phase:])
		n += c
		r.phase = (r.phase + c) % len(r.cycle)
	}
	return n, nil
}

func (r *toneReader) Close() error {
	r.closed = true
	return nil
}

func appendFloat32LE(b []byte, s float32) []byte {
	bits := math.Float32bits(s)
	return append(b, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24))
}
