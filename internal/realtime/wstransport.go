package realtime

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"
)

// WSTransport speaks the same realtime event protocol over a WebSocket
// instead of a peer connection, for networks where ICE/UDP is unreachable.
// There is no media plane: assistant audio arrives as response.audio.delta
// events and microphone audio flows as input_audio_buffer.append, so
// AddTrack is accepted and ignored.
type WSTransport struct {
	baseURL   string
	model     string
	logger    *zap.Logger
	onMessage func(data []byte)

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// NewWSTransport creates an unconnected WebSocket transport. baseURL is the
// provider's https realtime endpoint; the scheme is rewritten to wss.
func NewWSTransport(baseURL, model string, logger *zap.Logger, onMessage func(data []byte)) *WSTransport {
	return &WSTransport{baseURL: baseURL, model: model, logger: logger, onMessage: onMessage}
}

// AddTrack is a no-op: the WebSocket transport has no media plane.
func (t *WSTransport) AddTrack(_ webrtc.TrackLocal) error {
	t.logger.Debug("websocket transport ignores media tracks")
	return nil
}

// Connect dials the realtime endpoint with the ephemeral credential.
func (t *WSTransport) Connect(ctx context.Context, credential string) error {
	wsURL := strings.Replace(t.baseURL, "https://", "wss://", 1)
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	endpoint := fmt.Sprintf("%s?model=%s", wsURL, url.QueryEscape(t.model))

	header := http.Header{}
	header.Set("Authorization", "Bearer "+credential)
	header.Set("OpenAI-Beta", "realtime=v1")

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("%w: websocket dial returned %d: %v", ErrNegotiation, resp.StatusCode, err)
		}
		return fmt.Errorf("%w: websocket dial: %v", ErrNegotiation, err)
	}

	t.mu.Lock()
	t.conn = conn
	t.closed = false
	t.mu.Unlock()

	go t.readLoop(conn)

	t.logger.Info("websocket transport connected")
	return nil
}

func (t *WSTransport) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			closed := t.closed
			t.mu.Unlock()
			if !closed {
				t.logger.Warn("websocket read ended", zap.Error(err))
			}
			return
		}
		if t.onMessage != nil {
			t.onMessage(data)
		}
	}
}

// SendData writes payload as a JSON text message.
func (t *WSTransport) SendData(v any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil || t.closed {
		t.logger.Warn("websocket not ready, dropping message")
		return
	}
	if err := t.conn.WriteJSON(v); err != nil {
		t.logger.Warn("websocket send", zap.Error(err))
	}
}

// Close shuts the connection down. Idempotent.
func (t *WSTransport) Close() {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.closed = true
	t.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}
