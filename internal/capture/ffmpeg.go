package capture

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"go.uber.org/zap"

	"github.com/croisantti/nutriwhisper-bot/internal/audio"
)

// FFmpegDeviceSource captures from an OS audio input device using ffmpeg,
// normalizing to f32le, 24kHz, mono on stdout. Echo cancellation and noise
// suppression are left to the OS capture stack.
//
// Format/device pairs are platform-specific: "alsa"/"default" on Linux,
// "avfoundation"/":0" on macOS, "dshow"/"audio=..." on Windows.
type FFmpegDeviceSource struct {
	Binary string
	Format string
	Device string
	Logger *zap.Logger
}

// Name identifies the source in logs.
func (f *FFmpegDeviceSource) Name() string {
	return fmt.Sprintf("%s:%s", f.Format, f.Device)
}

// Open starts ffmpeg against the capture device and returns its stdout.
// Closing the returned stream kills the process and waits for it to exit.
// The device stays held until the stream is closed.
func (f *FFmpegDeviceSource) Open(ctx context.Context) (io.ReadCloser, error) {
	bin := f.Binary
	if bin == "" {
		bin = "ffmpeg"
	}

	args := []string{
		"-nostdin",
		"-hide_banner", "-loglevel", "error",
		"-f", f.Format,
		"-i", f.Device,
		"-ac", "1",
		"-ar", fmt.Sprint(audio.SampleRate),
		"-f", "f32le",
		"pipe:1",
	}

	procCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(procCtx, bin, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("capture stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("open capture device %s: %w", f.Name(), err)
	}

	if f.Logger != nil {
		f.Logger.Info("capture device opened", zap.String("source", f.Name()))
	}

	return &processStream{rc: stdout, cmd: cmd, cancel: cancel}, nil
}

// processStream ties a subprocess lifetime to its stdout stream.
type processStream struct {
	rc     io.ReadCloser
	cmd    *exec.Cmd
	cancel context.CancelFunc
	once   sync.Once
}

func (p *processStream) Read(b []byte) (int, error) {
	return p.rc.Read(b)
}

func (p *processStream) Close() error {
	p.once.Do(func() {
		p.cancel()
		p.rc.Close()
		p.cmd.Wait()
	})
	return nil
}
