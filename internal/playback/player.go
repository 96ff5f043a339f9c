// Package playback renders the provider's audio: Opus RTP from the remote
// track (or raw PCM deltas on the WebSocket transport) is decoded, brought
// to 24kHz mono, buffered, and drained into a sink writer at realtime pace.
package playback

import (
	"io"
	"sync"
	"time"

	"github.com/hraban/opus"
	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/croisantti/nutriwhisper-bot/internal/audio"
	"github.com/croisantti/nutriwhisper-bot/internal/metrics"
	"github.com/croisantti/nutriwhisper-bot/internal/ringbuffer"
)

// drainInterval paces sink writes at 20ms of audio per tick.
const drainInterval = 20 * time.Millisecond

// drainChunkBytes is 20ms of 24kHz mono s16le.
const drainChunkBytes = ringbuffer.BytesPerSecond / 50

// Player buffers decoded provider audio and streams it to a sink.
type Player struct {
	sink   io.Writer
	rb     *ringbuffer.RingBuffer
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
	stop   chan struct{}
	done   chan struct{}
}

// NewPlayer creates a player draining into sink and starts its pacing loop.
// bufferSec bounds how much undrained audio is held before the oldest is
// dropped.
func NewPlayer(sink io.Writer, bufferSec int, logger *zap.Logger) *Player {
	if bufferSec <= 0 {
		bufferSec = 5
	}
	p := &Player{
		sink:   sink,
		rb:     ringbuffer.New(bufferSec),
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go p.drainLoop()
	return p
}

func (p *Player) drainLoop() {
	defer close(p.done)

	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()

	buf := make([]byte, drainChunkBytes)
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			n := p.rb.Read(buf)
			if n > 0 {
				if _, err := p.sink.Write(buf[:n]); err != nil {
					p.logger.Warn("playback sink write", zap.Error(err))
				}
			}
			metrics.PlaybackBufferedSeconds.Set(p.rb.Buffered())
		}
	}
}

// PlayTrack consumes the provider's remote Opus track until it ends.
// Intended to run as the transport's inbound-track handler, once per session.
func (p *Player) PlayTrack(track *webrtc.TrackRemote) {
	go p.trackLoop(track)
}

func (p *Player) trackLoop(track *webrtc.TrackRemote) {
	channels := int(track.Codec().Channels)
	if channels == 0 {
		channels = 1
	}

	dec, err := opus.NewDecoder(audio.PlaybackSampleRate, channels)
	if err != nil {
		p.logger.Error("create opus decoder", zap.Error(err))
		return
	}

	p.logger.Info("playback started",
		zap.String("codec", track.Codec().MimeType),
		zap.Int("channels", channels),
	)

	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			p.logger.Info("playback track ended", zap.Error(err))
			return
		}
		if len(pkt.Payload) == 0 {
			continue
		}

		bufs := audio.AcquirePlaybackBuffers()
		n, err := dec.Decode(pkt.Payload, bufs.DecodeBuf)
		if err != nil {
			metrics.OpusDecodeErrorsTotal.Inc()
			p.logger.Warn("opus decode", zap.Error(err))
			audio.ReleasePlaybackBuffers(bufs)
			continue
		}

		mono := bufs.DecodeBuf[:n*channels]
		if channels == 2 {
			mono = audio.DownmixStereoInto(mono, bufs.MonoBuf)
		}
		out := audio.Downsample48to24Into(mono, bufs.MonoBuf[:cap(bufs.MonoBuf)])
		p.rb.Write(audio.Int16ToBytesInto(out, bufs.OutBuf))
		audio.ReleasePlaybackBuffers(bufs)
	}
}

// EnqueuePCM buffers raw 24kHz mono s16le audio, the WebSocket transport's
// response.audio.delta payload.
func (p *Player) EnqueuePCM(pcm []byte) {
	p.rb.Write(pcm)
}

// Buffered returns the seconds of audio awaiting drain.
func (p *Player) Buffered() float64 {
	return p.rb.Buffered()
}

// Close stops the pacing loop. Idempotent.
func (p *Player) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.stop)
	<-p.done
}
