package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gauges
var (
	SessionActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nutriwhisper_session_active",
		Help: "Whether a realtime voice session is currently established (0 or 1)",
	})
	PlaybackBufferedSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nutriwhisper_playback_buffered_seconds",
		Help: "Seconds of decoded provider audio waiting in the playback buffer",
	})
)

// Counters
var (
	SessionsStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nutriwhisper_sessions_started_total",
		Help: "Total voice sessions successfully negotiated",
	})
	SessionFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nutriwhisper_session_failures_total",
		Help: "Total session starts that failed, by stage",
	}, []string{"stage"})
	AudioFramesSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nutriwhisper_audio_frames_sent_total",
		Help: "Total microphone frames encoded and sent on the data channel",
	})
	EventsReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nutriwhisper_events_received_total",
		Help: "Total realtime events received, by event type",
	}, []string{"type"})
	MalformedEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nutriwhisper_malformed_events_total",
		Help: "Total inbound data channel messages dropped as malformed JSON",
	})
	OpusDecodeErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nutriwhisper_opus_decode_errors_total",
		Help: "Total Opus decode failures on the provider audio track",
	})
	TokenMintsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nutriwhisper_token_mints_total",
		Help: "Total ephemeral credential mints, by outcome",
	}, []string{"outcome"})
)

// Histograms
var (
	NegotiationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nutriwhisper_negotiation_duration_ms",
		Help:    "SDP offer/answer negotiation duration in milliseconds",
		Buckets: []float64{100, 250, 500, 1000, 2000, 5000, 10000, 15000},
	})
)
