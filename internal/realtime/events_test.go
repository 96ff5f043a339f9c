package realtime

import (
	"encoding/json"
	"testing"
)

func TestParseServerEvent(t *testing.T) {
	ev, err := ParseServerEvent([]byte(`{"type":"session.created","session":{"id":"sess_1"}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.Type != TypeSessionCreated {
		t.Errorf("type: got %q, want %q", ev.Type, TypeSessionCreated)
	}

	// Raw must carry the full original message.
	var full struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
	}
	if err := json.Unmarshal(ev.Raw, &full); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if full.Session.ID != "sess_1" {
		t.Errorf("raw session id: got %q", full.Session.ID)
	}
}

func TestParseServerEventDelta(t *testing.T) {
	ev, err := ParseServerEvent([]byte(`{"type":"response.audio_transcript.delta","delta":"hello"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.Delta != "hello" {
		t.Errorf("delta: got %q, want %q", ev.Delta, "hello")
	}
}

func TestParseServerEventUnknownTypePasses(t *testing.T) {
	ev, err := ParseServerEvent([]byte(`{"type":"rate_limits.updated"}`))
	if err != nil {
		t.Fatalf("unknown type must not error: %v", err)
	}
	if ev.Type != "rate_limits.updated" {
		t.Errorf("type: got %q", ev.Type)
	}
}

func TestParseServerEventMalformed(t *testing.T) {
	if _, err := ParseServerEvent([]byte(`{not json`)); err == nil {
		t.Error("expected error for malformed JSON")
	}
	if _, err := ParseServerEvent([]byte(`{"delta":"x"}`)); err == nil {
		t.Error("expected error for missing type")
	}
}

func TestNewSessionUpdateShape(t *testing.T) {
	ev := NewSessionUpdate(SessionConfig{
		Modalities:        []string{"text", "audio"},
		InputAudioFormat:  "pcm16",
		OutputAudioFormat: "pcm16",
		TurnDetection: TurnDetection{
			Type:              "server_vad",
			Threshold:         0.5,
			PrefixPaddingMs:   300,
			SilenceDurationMs: 1000,
		},
	})

	if ev.Type != TypeSessionUpdate {
		t.Errorf("type: got %q", ev.Type)
	}
	if ev.EventID == "" {
		t.Error("event id must be set")
	}

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var wire map[string]any
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	session := wire["session"].(map[string]any)
	td := session["turn_detection"].(map[string]any)
	if td["type"] != "server_vad" {
		t.Errorf("turn_detection.type: got %v", td["type"])
	}
	if td["threshold"] != 0.5 {
		t.Errorf("threshold: got %v", td["threshold"])
	}
	if td["prefix_padding_ms"] != float64(300) {
		t.Errorf("prefix_padding_ms: got %v", td["prefix_padding_ms"])
	}
	if td["silence_duration_ms"] != float64(1000) {
		t.Errorf("silence_duration_ms: got %v", td["silence_duration_ms"])
	}
}

func TestNewTextTurnShape(t *testing.T) {
	ev := NewTextTurn("what should I eat for breakfast?")
	if ev.Type != TypeConversationItemCreate {
		t.Errorf("type: got %q", ev.Type)
	}
	if ev.Item.Type != "message" || ev.Item.Role != "user" {
		t.Errorf("item: got %+v", ev.Item)
	}
	if len(ev.Item.Content) != 1 {
		t.Fatalf("content parts: got %d, want 1", len(ev.Item.Content))
	}
	part := ev.Item.Content[0]
	if part.Type != "input_text" || part.Text != "what should I eat for breakfast?" {
		t.Errorf("content part: got %+v", part)
	}
}

func TestNewResponseCreateHasFreshID(t *testing.T) {
	a := NewResponseCreate()
	b := NewResponseCreate()
	if a.Type != TypeResponseCreate {
		t.Errorf("type: got %q", a.Type)
	}
	if a.EventID == b.EventID {
		t.Error("event ids must be unique per event")
	}
}
