package capture

import (
	"context"
	"errors"
	"io"
	"runtime"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/croisantti/nutriwhisper-bot/internal/testutil"
)

// byteSource serves a fixed byte slice and then EOF.
type byteSource struct {
	data    []byte
	openErr error
	opened  int
}

func (s *byteSource) Name() string { return "bytes" }

func (s *byteSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	s.opened++
	return &byteStream{data: s.data}, nil
}

type byteStream struct {
	mu     sync.Mutex
	data   []byte
	pos    int
	closed bool
}

func (s *byteStream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.pos >= len(s.data) {
		return 0, io.EOF
	}
	n := copy(p, s.data[s.pos:])
	s.pos += n
	return n, nil
}

func (s *byteStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func TestRecorderEmitsFixedFrames(t *testing.T) {
	// 2 complete frames plus a partial trailing block that must be dropped.
	frameBytes := FrameSamples * bytesPerSample
	src := &byteSource{data: make([]byte, 2*frameBytes+100)}
	rec := NewRecorder(src, zap.NewNop())

	if err := rec.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}

	var mu sync.Mutex
	var frames [][]float32
	err := rec.Start(func(frame []float32) {
		mu.Lock()
		frames = append(frames, frame)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if !testutil.WaitUntil(2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(frames) == 2
	}) {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	rec.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(frames) != 2 {
		t.Fatalf("partial trailing block must not produce a frame, got %d frames", len(frames))
	}
	for i, f := range frames {
		if len(f) != FrameSamples {
			t.Errorf("frame %d: got %d samples, want %d", i, len(f), FrameSamples)
		}
	}
}

func TestRecorderStartBeforeOpen(t *testing.T) {
	rec := NewRecorder(&byteSource{}, zap.NewNop())
	err := rec.Start(func([]float32) {})
	if !errors.Is(err, ErrNotOpen) {
		t.Errorf("expected ErrNotOpen, got %v", err)
	}
}

func TestRecorderOpenPropagatesDeviceError(t *testing.T) {
	wantErr := errors.New("device busy")
	rec := NewRecorder(&byteSource{openErr: wantErr}, zap.NewNop())
	if err := rec.Open(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("expected device error, got %v", err)
	}
}

func TestRecorderDoubleOpen(t *testing.T) {
	rec := NewRecorder(&byteSource{data: make([]byte, FrameSamples*bytesPerSample)}, zap.NewNop())
	if err := rec.Open(context.Background()); err != nil {
		t.Fatalf("first open: %v", err)
	}
	defer rec.Stop()
	if err := rec.Open(context.Background()); err == nil {
		t.Error("expected error on second open while held")
	}
}

func TestRecorderStopIdempotent(t *testing.T) {
	rec := NewRecorder(&byteSource{data: make([]byte, FrameSamples*bytesPerSample)}, zap.NewNop())

	// Stop without Open must be a no-op.
	rec.Stop()

	if err := rec.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := rec.Start(func([]float32) {}); err != nil {
		t.Fatalf("start: %v", err)
	}
	rec.Stop()
	rec.Stop()

	// Device is released, so Open must succeed again.
	if err := rec.Open(context.Background()); err != nil {
		t.Fatalf("reopen after stop: %v", err)
	}
	rec.Stop()
}

func TestRecorderNoGoroutineLeak(t *testing.T) {
	baseline := runtime.NumGoroutine()

	rec := NewRecorder(&ToneSource{}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := rec.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	got := make(chan struct{}, 1)
	if err := rec.Start(func([]float32) {
		select {
		case got <- struct{}{}:
		default:
		}
	}); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("no frames from tone source")
	}
	rec.Stop()

	testutil.AssertNoGoroutineLeaks(t, baseline, 2)
}

func TestToneSourceFramesInRange(t *testing.T) {
	src := &ToneSource{}
	rec := NewRecorder(src, zap.NewNop())
	if err := rec.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rec.Stop()

	frameCh := make(chan []float32, 1)
	if err := rec.Start(func(frame []float32) {
		select {
		case frameCh <- frame:
		default:
		}
	}); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case frame := <-frameCh:
		var nonZero bool
		for _, s := range frame {
			if s < -1 || s > 1 {
				t.Fatalf("sample out of range: %f", s)
			}
			if s != 0 {
				nonZero = true
			}
		}
		if !nonZero {
			t.Error("tone frame is all zeros")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
	}
}
