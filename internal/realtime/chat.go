package realtime

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/croisantti/nutriwhisper-bot/internal/audio"
	"github.com/croisantti/nutriwhisper-bot/internal/capture"
	"github.com/croisantti/nutriwhisper-bot/internal/config"
	"github.com/croisantti/nutriwhisper-bot/internal/metrics"
	"github.com/croisantti/nutriwhisper-bot/internal/token"
)

// Minter exchanges the caller's standing credentials for an ephemeral
// session credential scoped with the system prompt.
type Minter interface {
	Mint(ctx context.Context, instructions string) (token.Credential, error)
}

// FrameStreamer is the capture contract: acquire the device, stream fixed
// frames, release. Satisfied by capture.Recorder.
type FrameStreamer interface {
	Open(ctx context.Context) error
	Start(onFrame capture.FrameFunc) error
	Stop()
}

// TransportFactory builds a fresh transport wired to the given inbound
// handlers. A new transport is built per Init so a failed negotiation never
// leaves state behind for the next attempt.
type TransportFactory func(onMessage func(data []byte), onTrack func(track *webrtc.TrackRemote)) Transporter

// Options carries the caller-facing callback surface.
type Options struct {
	// OnMessage receives every inbound event verbatim, including types the
	// protocol logic does not recognize.
	OnMessage func(ev ServerEvent)
	// OnTranscript receives each partial transcript delta.
	OnTranscript func(delta string)
	// OnTrack receives the provider's audio track for playback (WebRTC
	// transport only).
	OnTrack func(track *webrtc.TrackRemote)
	// SystemPrompt scopes the minted credential. May be empty.
	SystemPrompt string
}

// Deps are the orchestrator's collaborators, injectable for tests.
type Deps struct {
	Minter       Minter
	Recorder     FrameStreamer
	NewTransport TransportFactory
}

// Chat is the realtime session orchestrator: it sequences credential
// exchange, microphone acquisition and connection negotiation, wires
// capture through the wire codec into the transport, and fans every inbound
// event out to the session manager, the transcript accumulator and the
// caller. At most one session is in flight per Chat.
type Chat struct {
	cfg    *config.Config
	logger *zap.Logger
	deps   Deps
	opts   Options

	mu         sync.Mutex
	active     bool
	transport  Transporter
	sm         *SessionManager
	transcript strings.Builder
}

// New creates a Chat with production collaborators chosen from cfg.
func New(cfg *config.Config, logger *zap.Logger, opts Options) *Chat {
	src := &capture.FFmpegDeviceSource{
		Binary: cfg.FFmpegBin,
		Format: cfg.CaptureFormat,
		Device: cfg.CaptureDevice,
		Logger: logger,
	}

	deps := Deps{
		Minter:   token.NewClient(cfg.TokenEndpoint, time.Duration(cfg.TokenTimeout)*time.Second),
		Recorder: capture.NewRecorder(src, logger),
	}
	if cfg.Transport == "websocket" {
		deps.NewTransport = func(onMessage func([]byte), _ func(*webrtc.TrackRemote)) Transporter {
			return NewWSTransport(cfg.RealtimeBaseURL, cfg.RealtimeModel, logger, onMessage)
		}
	} else {
		deps.NewTransport = func(onMessage func([]byte), onTrack func(*webrtc.TrackRemote)) Transporter {
			return NewTransport(TransportConfig{
				SignalingURL:     cfg.RealtimeBaseURL,
				Model:            cfg.RealtimeModel,
				STUNServers:      cfg.STUNServers,
				NegotiateTimeout: cfg.NegotiateTimeout(),
				ICEGatherTimeout: cfg.ICEGatherTimeout(),
			}, logger, onMessage, onTrack)
		}
	}

	return newChat(cfg, logger, deps, opts)
}

// NewForTest creates a Chat with injected collaborators.
func NewForTest(cfg *config.Config, logger *zap.Logger, deps Deps, opts Options) *Chat {
	return newChat(cfg, logger, deps, opts)
}

func newChat(cfg *config.Config, logger *zap.Logger, deps Deps, opts Options) *Chat {
	return &Chat{cfg: cfg, logger: logger, deps: deps, opts: opts}
}

// Init establishes a voice session: credential exchange, microphone
// acquisition, then connection negotiation, strictly in that order. The
// microphone track must exist before the offer is built. Any stage failing
// releases everything acquired so far before the error is returned.
// A second Init while one session is active fails with ErrSessionActive.
func (c *Chat) Init(ctx context.Context) error {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return ErrSessionActive
	}
	c.active = true
	c.transcript.Reset()
	c.mu.Unlock()

	cred, err := c.deps.Minter.Mint(ctx, c.opts.SystemPrompt)
	if err != nil {
		c.abort("credential")
		return fmt.Errorf("%w: %v", ErrCredential, err)
	}

	if err := c.deps.Recorder.Open(ctx); err != nil {
		c.abort("media")
		return fmt.Errorf("%w: %v", ErrMediaAccess, err)
	}

	transport := c.deps.NewTransport(c.handleRaw, c.opts.OnTrack)

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{
			MimeType:  webrtc.MimeTypeOpus,
			ClockRate: 48000,
			Channels:  2,
		},
		"mic-audio",
		"nutriwhisper",
	)
	if err == nil {
		err = transport.AddTrack(track)
	}
	if err != nil {
		c.deps.Recorder.Stop()
		transport.Close()
		c.abort("media")
		return fmt.Errorf("%w: attach microphone track: %v", ErrMediaAccess, err)
	}

	// The session manager must be receiving before Connect: session.created
	// can arrive the moment the data channel opens.
	sm := NewSessionManager(c.sessionConfig(), transport.SendData, c.startStreaming, c.logger)
	c.mu.Lock()
	c.transport = transport
	c.sm = sm
	c.mu.Unlock()

	if err := transport.Connect(ctx, cred.Value); err != nil {
		c.deps.Recorder.Stop()
		transport.Close()
		c.mu.Lock()
		c.transport = nil
		c.sm = nil
		c.active = false
		c.mu.Unlock()
		metrics.SessionFailuresTotal.WithLabelValues("negotiation").Inc()
		return err
	}

	// A Disconnect issued while Connect was in flight already tore the
	// session down; honor it instead of committing a half-dead session.
	c.mu.Lock()
	if !c.active || c.transport != transport {
		c.mu.Unlock()
		c.deps.Recorder.Stop()
		transport.Close()
		return fmt.Errorf("%w: session closed during negotiation", ErrNegotiation)
	}
	c.mu.Unlock()

	metrics.SessionsStartedTotal.Inc()
	metrics.SessionActive.Set(1)
	c.logger.Info("voice session initialized")
	return nil
}

func (c *Chat) abort(stage string) {
	metrics.SessionFailuresTotal.WithLabelValues(stage).Inc()
	c.mu.Lock()
	c.active = false
	c.mu.Unlock()
}

func (c *Chat) sessionConfig() SessionConfig {
	return SessionConfig{
		Modalities:        []string{"text", "audio"},
		InputAudioFormat:  "pcm16",
		OutputAudioFormat: "pcm16",
		TurnDetection: TurnDetection{
			Type:              "server_vad",
			Threshold:         c.cfg.VADThreshold,
			PrefixPaddingMs:   c.cfg.VADPrefixPaddingMs,
			SilenceDurationMs: c.cfg.VADSilenceDurationMs,
		},
	}
}

// startStreaming is the session manager's onReady hook: microphone frames
// begin flowing only after the session is configured, not merely when the
// channel opens.
func (c *Chat) startStreaming() {
	c.mu.Lock()
	transport := c.transport
	c.mu.Unlock()
	if transport == nil {
		return
	}

	err := c.deps.Recorder.Start(func(frame []float32) {
		transport.SendData(InputAudioAppend{
			Type:  TypeInputAudioBufferAppend,
			Audio: audio.EncodeFrame(frame),
		})
		metrics.AudioFramesSentTotal.Inc()
	})
	if err != nil {
		c.logger.Warn("start audio streaming", zap.Error(err))
		return
	}
	c.logger.Info("audio streaming started")
}

// handleRaw fans one inbound message out: session lifecycle, transcript
// accumulation, then the caller's message callback. A malformed message is
// dropped without touching the session.
func (c *Chat) handleRaw(data []byte) {
	ev, err := ParseServerEvent(data)
	if err != nil {
		metrics.MalformedEventsTotal.Inc()
		c.logger.Warn("dropping malformed event", zap.Error(err))
		return
	}
	metrics.EventsReceivedTotal.WithLabelValues(ev.Type).Inc()

	c.mu.Lock()
	sm := c.sm
	c.mu.Unlock()
	if sm != nil {
		sm.HandleMessage(ev)
	}

	if ev.Type == TypeTranscriptDelta && ev.Delta != "" {
		c.mu.Lock()
		c.transcript.WriteString(ev.Delta)
		c.mu.Unlock()
		if c.opts.OnTranscript != nil {
			c.opts.OnTranscript(ev.Delta)
		}
	}

	if c.opts.OnMessage != nil {
		c.opts.OnMessage(ev)
	}
}

// SendTextMessage injects a text turn into the live session, usable
// alongside voice once connected.
func (c *Chat) SendTextMessage(text string) error {
	c.mu.Lock()
	sm := c.sm
	c.mu.Unlock()
	if sm == nil {
		return ErrNotReady
	}
	return sm.SendTextMessage(text)
}

// Transcript returns the accumulated assistant transcript for the current
// session.
func (c *Chat) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript.String()
}

// Disconnect stops capture, closes the transport and resets session state
// so a fresh Init can follow. Safe to call repeatedly and at any state,
// including mid-negotiation and before Init.
func (c *Chat) Disconnect() {
	c.mu.Lock()
	transport := c.transport
	wasActive := c.active
	c.transport = nil
	c.sm = nil
	c.active = false
	c.mu.Unlock()

	if c.deps.Recorder != nil {
		c.deps.Recorder.Stop()
	}
	if transport != nil {
		transport.Close()
	}
	if wasActive {
		metrics.SessionActive.Set(0)
		c.logger.Info("voice session disconnected")
	}
}
