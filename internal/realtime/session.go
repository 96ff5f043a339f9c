package realtime

import (
	"sync"

	"go.uber.org/zap"
)

// SessionManager owns the control-channel conversation: it waits for the
// session-ready signal, pushes the session configuration exactly once, and
// injects text turns. All sends go through the injected send function so the
// manager works identically over the WebRTC data channel and the WebSocket
// transport.
type SessionManager struct {
	cfg     SessionConfig
	send    func(v any)
	onReady func()
	logger  *zap.Logger

	mu         sync.Mutex
	configured bool
}

// NewSessionManager creates a manager that will configure the session with
// cfg on the first session.created event and then invoke onReady once.
func NewSessionManager(cfg SessionConfig, send func(v any), onReady func(), logger *zap.Logger) *SessionManager {
	return &SessionManager{cfg: cfg, send: send, onReady: onReady, logger: logger}
}

// HandleMessage inspects one inbound event for session lifecycle. Only the
// first session.created mutates state; repeats and every other event type
// pass through without effect.
func (m *SessionManager) HandleMessage(ev ServerEvent) {
	if ev.Type != TypeSessionCreated {
		return
	}

	m.mu.Lock()
	if m.configured {
		m.mu.Unlock()
		return
	}
	m.configured = true
	m.mu.Unlock()

	m.logger.Info("session created, sending configuration",
		zap.Float64("vadThreshold", m.cfg.TurnDetection.Threshold))
	m.send(NewSessionUpdate(m.cfg))

	if m.onReady != nil {
		m.onReady()
	}
}

// Ready reports whether the session has been configured.
func (m *SessionManager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.configured
}

// SendTextMessage injects a user text turn and triggers a response.
// Fails before the session is configured; nothing is sent in that case.
func (m *SessionManager) SendTextMessage(text string) error {
	if !m.Ready() {
		return ErrNotReady
	}
	m.send(NewTextTurn(text))
	m.send(NewResponseCreate())
	return nil
}
