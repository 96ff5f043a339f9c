package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/croisantti/nutriwhisper-bot/internal/metrics"
)

// dataChannelLabel is the provider's event-exchange channel name.
const dataChannelLabel = "oai-events"

// Transport connection states.
const (
	StateIdle      = "idle"
	StateOffering  = "offering"
	StateAnswered  = "answered"
	StateConnected = "connected"
	StateClosed    = "closed"
)

// Transporter is the connection contract the orchestrator composes against.
// The WebRTC Transport and the WebSocket fallback both satisfy it.
type Transporter interface {
	// AddTrack attaches an outbound media track before negotiation.
	// Must be called before Connect to be included in the offer.
	AddTrack(track webrtc.TrackLocal) error
	// Connect negotiates the session using the ephemeral credential.
	Connect(ctx context.Context, credential string) error
	// SendData serializes payload as JSON onto the control channel.
	// No-ops with a warning if the channel is not open; never panics.
	SendData(v any)
	// Close tears the connection down. Idempotent, safe at any state.
	Close()
}

// TransportConfig carries the negotiation parameters.
type TransportConfig struct {
	// SignalingURL is the provider's SDP endpoint, e.g.
	// https://api.openai.com/v1/realtime.
	SignalingURL string
	// Model selects the remote speech model via query parameter.
	Model string
	// STUNServers configure ICE. At least one is expected in production;
	// tests run with none for host-only candidates.
	STUNServers []string
	// NegotiateTimeout bounds the signaling HTTP round trip. The reference
	// behavior had no timeout; this deviation is deliberate.
	NegotiateTimeout time.Duration
	// ICEGatherTimeout bounds local candidate gathering.
	ICEGatherTimeout time.Duration
}

// Transport negotiates a peer-to-peer media+data connection with the
// realtime provider: one outbound audio track, one inbound audio track
// handed to the playback sink, and the oai-events data channel.
type Transport struct {
	cfg       TransportConfig
	logger    *zap.Logger
	client    *http.Client
	onMessage func(data []byte)
	onTrack   func(track *webrtc.TrackRemote)

	mu     sync.Mutex
	state  string
	tracks []webrtc.TrackLocal
	pc     *webrtc.PeerConnection
	dc     *webrtc.DataChannel
}

// NewTransport creates an unconnected transport. onMessage receives every
// raw data channel message; onTrack receives the provider's audio track
// (may be nil to discard inbound audio).
func NewTransport(cfg TransportConfig, logger *zap.Logger,
	onMessage func(data []byte), onTrack func(track *webrtc.TrackRemote)) *Transport {

	if cfg.ICEGatherTimeout == 0 {
		cfg.ICEGatherTimeout = 10 * time.Second
	}
	return &Transport{
		cfg:       cfg,
		logger:    logger,
		client:    &http.Client{Timeout: cfg.NegotiateTimeout},
		onMessage: onMessage,
		onTrack:   onTrack,
		state:     StateIdle,
	}
}

// newAPI builds a WebRTC API with the Opus codec registered and the default
// interceptors configured.
func newAPI() (*webrtc.API, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType:    webrtc.MimeTypeOpus,
			ClockRate:   48000,
			Channels:    2,
			SDPFmtpLine: "minptime=10;useinbandfec=1",
		},
		PayloadType: 111,
	}, webrtc.RTPCodecTypeAudio); err != nil {
		return nil, fmt.Errorf("register opus codec: %w", err)
	}

	ir := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, ir); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}

	return webrtc.NewAPI(
		webrtc.WithMediaEngine(m),
		webrtc.WithInterceptorRegistry(ir),
	), nil
}

// AddTrack attaches an outbound media track before negotiation.
func (t *Transport) AddTrack(track webrtc.TrackLocal) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateIdle {
		return fmt.Errorf("add track in state %s: %w", t.state, ErrNegotiation)
	}
	t.tracks = append(t.tracks, track)
	return nil
}

// State returns the current connection state.
func (t *Transport) State() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Connect performs the full negotiation: local offer with audio and data
// channel, SDP exchange with the signaling endpoint authenticated by the
// ephemeral credential, and remote answer application.
func (t *Transport) Connect(ctx context.Context, credential string) error {
	t.mu.Lock()
	if t.state != StateIdle {
		state := t.state
		t.mu.Unlock()
		return fmt.Errorf("connect in state %s: %w", state, ErrNegotiation)
	}
	t.state = StateOffering
	tracks := t.tracks
	t.mu.Unlock()

	api, err := newAPI()
	if err != nil {
		t.fail()
		return fmt.Errorf("%w: %v", ErrNegotiation, err)
	}

	iceServers := []webrtc.ICEServer{}
	if len(t.cfg.STUNServers) > 0 {
		urls := make([]string, len(t.cfg.STUNServers))
		copy(urls, t.cfg.STUNServers)
		iceServers = append(iceServers, webrtc.ICEServer{URLs: urls})
	}

	pc, err := api.NewPeerConnection(webrtc.Configuration{ICEServers: iceServers})
	if err != nil {
		t.fail()
		return fmt.Errorf("%w: create peer connection: %v", ErrNegotiation, err)
	}

	pc.OnTrack(func(remote *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		t.logger.Info("inbound track",
			zap.String("codec", remote.Codec().MimeType),
			zap.Uint8("pt", uint8(remote.PayloadType())),
		)
		if t.onTrack != nil {
			t.onTrack(remote)
		}
	})

	pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		t.logger.Info("ICE state", zap.String("state", state.String()))
	})

	for _, track := range tracks {
		if _, err := pc.AddTrack(track); err != nil {
			pc.Close()
			t.fail()
			return fmt.Errorf("%w: add audio track: %v", ErrNegotiation, err)
		}
	}

	// Data channel must exist before CreateOffer so SCTP lands in the SDP.
	ordered := true
	dc, err := pc.CreateDataChannel(dataChannelLabel, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		pc.Close()
		t.fail()
		return fmt.Errorf("%w: create data channel: %v", ErrNegotiation, err)
	}
	dc.OnOpen(func() {
		t.logger.Info("data channel opened")
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if t.onMessage != nil {
			t.onMessage(msg.Data)
		}
	})

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		pc.Close()
		t.fail()
		return fmt.Errorf("%w: create offer: %v", ErrNegotiation, err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		pc.Close()
		t.fail()
		return fmt.Errorf("%w: set local description: %v", ErrNegotiation, err)
	}

	// Wait for ICE gathering so the offer carries candidates.
	gatherDone := webrtc.GatheringCompletePromise(pc)
	select {
	case <-gatherDone:
	case <-time.After(t.cfg.ICEGatherTimeout):
		t.logger.Warn("ICE gathering timed out, proceeding with partial candidates")
	case <-ctx.Done():
		pc.Close()
		t.fail()
		return fmt.Errorf("%w: %v", ErrNegotiation, ctx.Err())
	}

	sdp := pc.LocalDescription().SDP
	if !strings.Contains(sdp, "m=audio") {
		pc.Close()
		t.fail()
		return fmt.Errorf("%w: local offer has no audio section", ErrNegotiation)
	}

	// Publish the peer connection before the signaling round trip so a
	// concurrent Close can reach it mid-negotiation.
	t.mu.Lock()
	if t.state != StateOffering {
		t.mu.Unlock()
		pc.Close()
		return fmt.Errorf("%w: closed during negotiation", ErrNegotiation)
	}
	t.pc = pc
	t.mu.Unlock()

	start := time.Now()
	answer, err := t.exchangeSDP(ctx, sdp, credential)
	if err != nil {
		pc.Close()
		t.fail()
		return err
	}

	t.mu.Lock()
	if t.state != StateOffering {
		t.mu.Unlock()
		pc.Close()
		return fmt.Errorf("%w: closed during negotiation", ErrNegotiation)
	}
	t.state = StateAnswered
	t.mu.Unlock()

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answer,
	}); err != nil {
		pc.Close()
		t.fail()
		return fmt.Errorf("%w: set remote description: %v", ErrNegotiation, err)
	}

	metrics.NegotiationDuration.Observe(float64(time.Since(start).Milliseconds()))

	t.mu.Lock()
	if t.state != StateAnswered {
		t.mu.Unlock()
		pc.Close()
		return fmt.Errorf("%w: closed during negotiation", ErrNegotiation)
	}
	t.dc = dc
	t.state = StateConnected
	t.mu.Unlock()

	t.logger.Info("connection established", zap.Int("sdpLen", len(sdp)))
	return nil
}

// exchangeSDP posts the local offer to the signaling endpoint and returns
// the answer SDP. The credential is used as a bearer token and never logged.
func (t *Transport) exchangeSDP(ctx context.Context, offerSDP, credential string) (string, error) {
	endpoint := fmt.Sprintf("%s?model=%s", t.cfg.SignalingURL, url.QueryEscape(t.cfg.Model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(offerSDP))
	if err != nil {
		return "", fmt.Errorf("%w: build signaling request: %v", ErrNegotiation, err)
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Content-Type", "application/sdp")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: signaling request: %v", ErrNegotiation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read signaling response: %v", ErrNegotiation, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: signaling returned %d: %s", ErrNegotiation, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return string(body), nil
}

// SendData serializes payload to JSON and writes it to the data channel.
func (t *Transport) SendData(v any) {
	t.mu.Lock()
	dc := t.dc
	t.mu.Unlock()

	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		t.logger.Warn("data channel not ready, dropping message")
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		t.logger.Warn("marshal data channel message", zap.Error(err))
		return
	}
	if err := dc.SendText(string(data)); err != nil {
		t.logger.Warn("data channel send", zap.Error(err))
	}
}

// Close closes the data channel then the peer connection. Idempotent.
func (t *Transport) Close() {
	t.mu.Lock()
	dc := t.dc
	pc := t.pc
	t.dc = nil
	t.pc = nil
	t.state = StateClosed
	t.mu.Unlock()

	if dc != nil {
		dc.Close()
	}
	if pc != nil {
		pc.Close()
	}
}

func (t *Transport) fail() {
	t.mu.Lock()
	t.pc = nil
	t.dc = nil
	t.state = StateClosed
	t.mu.Unlock()
}
