// Package voiceui derives the presentation state of a voice session from
// the orchestrator's event stream.
package voiceui

import (
	"sync"

	"github.com/croisantti/nutriwhisper-bot/internal/realtime"
)

// State is the single display state of the voice UI.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateListening
	StateSpeaking
)

// String returns the display name of the state.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateListening:
		return "listening"
	case StateSpeaking:
		return "speaking"
	default:
		return "idle"
	}
}

// Tracker folds connection lifecycle and realtime events into independent
// listening/speaking flags and a single derived display state.
type Tracker struct {
	mu         sync.Mutex
	connecting bool
	connected  bool
	listening  bool
	speaking   bool
}

// NewTracker creates a tracker in the idle state.
func NewTracker() *Tracker {
	return &Tracker{}
}

// SetConnecting marks the session as negotiating.
func (t *Tracker) SetConnecting() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connecting = true
}

// SetConnected marks the session established.
func (t *Tracker) SetConnected() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connecting = false
	t.connected = true
}

// SetDisconnected resets everything to idle.
func (t *Tracker) SetDisconnected() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connecting = false
	t.connected = false
	t.listening = false
	t.speaking = false
}

// HandleEvent updates the flags for one realtime event. The speaking flag
// follows assistant audio; the listening flag follows server VAD. Unknown
// event types have no effect.
func (t *Tracker) HandleEvent(ev realtime.ServerEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch ev.Type {
	case realtime.TypeAudioDelta:
		t.speaking = true
	case realtime.TypeAudioDone:
		t.speaking = false
	case realtime.TypeSpeechStarted:
		t.listening = true
	case realtime.TypeSpeechStopped:
		t.listening = false
	}
}

// Listening reports whether the user is currently speaking per server VAD.
func (t *Tracker) Listening() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.listening
}

// Speaking reports whether assistant audio is currently streaming.
func (t *Tracker) Speaking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.speaking
}

// State derives the single display state. Speaking wins over listening;
// both win over the bare connection states.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case t.speaking:
		return StateSpeaking
	case t.listening:
		return StateListening
	case t.connected:
		return StateConnected
	case t.connecting:
		return StateConnecting
	default:
		return StateIdle
	}
}
