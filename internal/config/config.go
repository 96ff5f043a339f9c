package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the NutriWhisper voice client and the
// token backend. Values load from the environment with NUTRIWHISPER_ prefix.
type Config struct {
	// Realtime provider.
	RealtimeBaseURL string `envconfig:"REALTIME_BASE_URL" default:"https://api.openai.com/v1/realtime"`
	RealtimeModel   string `envconfig:"REALTIME_MODEL" default:"gpt-4o-realtime-preview-2024-12-17"`
	RealtimeVoice   string `envconfig:"REALTIME_VOICE" default:"alloy"`

	// Transport selection: "webrtc" (default) or "websocket" for networks
	// where ICE/UDP is unreachable.
	Transport string `envconfig:"TRANSPORT" default:"webrtc"`

	// Token exchange.
	TokenEndpoint string `envconfig:"TOKEN_ENDPOINT" default:"http://localhost:8787/v1/realtime/token"`
	TokenTimeout  int    `envconfig:"TOKEN_TIMEOUT_SEC" default:"10"`

	// OpenAIAPIKey is only read by tokend; the voice client never sees it.
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY" default:""`

	// ICE / negotiation.
	STUNServers         []string `envconfig:"STUN_SERVERS" default:"stun:stun.l.google.com:19302"`
	NegotiateTimeoutSec int      `envconfig:"NEGOTIATE_TIMEOUT_SEC" default:"15"`
	ICEGatherTimeoutSec int      `envconfig:"ICE_GATHER_TIMEOUT_SEC" default:"10"`

	// Server-side voice activity detection.
	VADThreshold         float64 `envconfig:"VAD_THRESHOLD" default:"0.5"`
	VADPrefixPaddingMs   int     `envconfig:"VAD_PREFIX_PADDING_MS" default:"300"`
	VADSilenceDurationMs int     `envconfig:"VAD_SILENCE_DURATION_MS" default:"1000"`

	// Audio capture and playback.
	FFmpegBin     string `envconfig:"FFMPEG_BIN" default:"ffmpeg"`
	FFplayBin     string `envconfig:"FFPLAY_BIN" default:"ffplay"`
	CaptureFormat string `envconfig:"CAPTURE_FORMAT" default:"alsa"`
	CaptureDevice string `envconfig:"CAPTURE_DEVICE" default:"default"`
	PlaybackSec   int    `envconfig:"PLAYBACK_BUFFER_SEC" default:"5"`

	// Personalization.
	PreferencesPath string `envconfig:"PREFERENCES_PATH" default:""`

	// Token backend server.
	TokendListenAddr string   `envconfig:"TOKEND_LISTEN_ADDR" default:":8787"`
	AllowedOrigins   []string `envconfig:"ALLOWED_ORIGINS" default:"*"`

	// Observability.
	LogPretty   bool   `envconfig:"LOG_PRETTY" default:"false"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:""`
}

// Load reads configuration from the environment, first attempting to load a
// .env file if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("nutriwhisper", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Transport != "webrtc" && cfg.Transport != "websocket" {
		return nil, fmt.Errorf("load config: unknown transport %q", cfg.Transport)
	}
	return &cfg, nil
}

// NegotiateTimeout returns the SDP negotiation deadline as a duration.
func (c *Config) NegotiateTimeout() time.Duration {
	return time.Duration(c.NegotiateTimeoutSec) * time.Second
}

// ICEGatherTimeout returns the ICE candidate gathering deadline as a duration.
func (c *Config) ICEGatherTimeout() time.Duration {
	return time.Duration(c.ICEGatherTimeoutSec) * time.Second
}
