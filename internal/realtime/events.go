// Package realtime implements the client side of the provider's realtime
// voice protocol: WebRTC negotiation, the data channel event conversation,
// and the session orchestrator the UI talks to.
package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Server event types the protocol logic recognizes. Anything else passes
// through to the caller untouched.
const (
	TypeSessionCreated  = "session.created"
	TypeAudioDelta      = "response.audio.delta"
	TypeAudioDone       = "response.audio.done"
	TypeTranscriptDelta = "response.audio_transcript.delta"
	TypeSpeechStarted   = "turn_detection.speech_started"
	TypeSpeechStopped   = "turn_detection.speech_stopped"
	TypeError           = "error"
)

// Client event types.
const (
	TypeSessionUpdate          = "session.update"
	TypeInputAudioBufferAppend = "input_audio_buffer.append"
	TypeConversationItemCreate = "conversation.item.create"
	TypeResponseCreate         = "response.create"
)

// ServerEvent is one inbound message on the control channel. Type carries
// the discriminator, Delta the transcript/audio payload when present, and
// Raw the full message for callers that need fields the protocol logic
// doesn't look at.
type ServerEvent struct {
	Type  string
	Delta string
	Raw   json.RawMessage
}

// ParseServerEvent extracts the discriminator from a raw data channel
// message. Unknown types are not an error; malformed JSON is.
func ParseServerEvent(data []byte) (ServerEvent, error) {
	var probe struct {
		Type  string `json:"type"`
		Delta string `json:"delta"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return ServerEvent{}, fmt.Errorf("parse server event: %w", err)
	}
	if probe.Type == "" {
		return ServerEvent{}, fmt.Errorf("parse server event: missing type discriminator")
	}
	raw := make(json.RawMessage, len(data))
	copy(raw, data)
	return ServerEvent{Type: probe.Type, Delta: probe.Delta, Raw: raw}, nil
}

// TurnDetection holds the server-side VAD configuration.
type TurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms"`
	SilenceDurationMs int     `json:"silence_duration_ms"`
}

// SessionConfig is the session.update payload sent once after
// session.created. Immutable once sent.
type SessionConfig struct {
	Modalities        []string      `json:"modalities"`
	InputAudioFormat  string        `json:"input_audio_format"`
	OutputAudioFormat string        `json:"output_audio_format"`
	TurnDetection     TurnDetection `json:"turn_detection"`
}

// SessionUpdateEvent configures the session.
type SessionUpdateEvent struct {
	EventID string        `json:"event_id,omitempty"`
	Type    string        `json:"type"`
	Session SessionConfig `json:"session"`
}

// InputAudioAppend carries one encoded microphone frame.
type InputAudioAppend struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

// ContentPart is one piece of a conversation item.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ConversationItem is a user turn injected into the session.
type ConversationItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ConversationItemCreate injects a text turn.
type ConversationItemCreate struct {
	EventID string           `json:"event_id,omitempty"`
	Type    string           `json:"type"`
	Item    ConversationItem `json:"item"`
}

// ResponseCreate asks the model to generate a response.
type ResponseCreate struct {
	EventID string `json:"event_id,omitempty"`
	Type    string `json:"type"`
}

// NewSessionUpdate builds the configuration event with a fresh event ID.
func NewSessionUpdate(cfg SessionConfig) SessionUpdateEvent {
	return SessionUpdateEvent{
		EventID: uuid.NewString(),
		Type:    TypeSessionUpdate,
		Session: cfg,
	}
}

// NewTextTurn builds the user-turn event for a text message.
func NewTextTurn(text string) ConversationItemCreate {
	return ConversationItemCreate{
		EventID: uuid.NewString(),
		Type:    TypeConversationItemCreate,
		Item: ConversationItem{
			Type: "message",
			Role: "user",
			Content: []ContentPart{
				{Type: "input_text", Text: text},
			},
		},
	}
}

// NewResponseCreate builds the generate-response trigger.
func NewResponseCreate() ResponseCreate {
	return ResponseCreate{EventID: uuid.NewString(), Type: TypeResponseCreate}
}
