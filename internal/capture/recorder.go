package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/croisantti/nutriwhisper-bot/internal/audio"
)

// ErrNotOpen is returned by Start when the device has not been acquired.
var ErrNotOpen = errors.New("capture device not open")

// FrameFunc receives one fixed-size frame of float32 mono samples. The frame
// is freshly allocated per call and is never reused by the recorder.
type FrameFunc func(frame []float32)

// Recorder acquires an audio source and slices its PCM stream into fixed
// 4096-sample frames. Open and Start are split so the caller can hold the
// device before the session is ready and begin streaming only afterwards.
type Recorder struct {
	src    Source
	logger *zap.Logger

	mu      sync.Mutex
	stream  io.ReadCloser
	running bool
	done    chan struct{}
}

// NewRecorder creates a recorder over the given source.
func NewRecorder(src Source, logger *zap.Logger) *Recorder {
	return &Recorder{src: src, logger: logger}
}

// Open acquires the capture device without starting the frame loop.
// Fails if the device is unavailable or already held by this recorder.
func (r *Recorder) Open(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stream != nil {
		return fmt.Errorf("capture source %s already open", r.src.Name())
	}
	stream, err := r.src.Open(ctx)
	if err != nil {
		return err
	}
	r.stream = stream
	return nil
}

// Start begins reading frames and invoking onFrame for each complete block.
// The device must have been acquired with Open first.
func (r *Recorder) Start(onFrame FrameFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stream == nil {
		return ErrNotOpen
	}
	if r.running {
		return fmt.Errorf("recorder already started")
	}
	r.running = true
	r.done = make(chan struct{})

	go r.readLoop(r.stream, r.done, onFrame)
	return nil
}

func (r *Recorder) readLoop(stream io.Reader, done chan struct{}, onFrame FrameFunc) {
	defer close(done)

	buf := make([]byte, FrameSamples*bytesPerSample)
	for {
		if _, err := io.ReadFull(stream, buf); err != nil {
			// EOF and closed-pipe errors are the normal Stop path.
			if r.logger != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				r.logger.Debug("capture read ended", zap.Error(err))
			}
			return
		}
		onFrame(audio.BytesToFloat32(buf))
	}
}

// Stop releases the device and stops the frame loop. Idempotent; safe to
// call whether or not Open or Start succeeded.
func (r *Recorder) Stop() {
	r.mu.Lock()
	stream := r.stream
	done := r.done
	r.stream = nil
	r.running = false
	r.done = nil
	r.mu.Unlock()

	if stream != nil {
		stream.Close()
	}
	if done != nil {
		<-done
	}
}
