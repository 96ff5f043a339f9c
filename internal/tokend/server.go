// Package tokend implements the token-issuing backend: it exchanges the
// server-held provider API key for a short-lived realtime client secret
// scoped with the caller's instruction string. The browser/CLI never sees
// the standing API key.
package tokend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/croisantti/nutriwhisper-bot/internal/coach"
	"github.com/croisantti/nutriwhisper-bot/internal/config"
	"github.com/croisantti/nutriwhisper-bot/internal/metrics"
	"github.com/croisantti/nutriwhisper-bot/internal/token"
)

// Server mints ephemeral realtime credentials against the provider's
// session endpoint.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger
	client *http.Client

	// sessionsURL is the provider endpoint that issues client secrets,
	// derived from the realtime base URL.
	sessionsURL string
}

// NewServer creates a token backend server.
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		cfg:         cfg,
		logger:      logger,
		client:      &http.Client{Timeout: 15 * time.Second},
		sessionsURL: strings.TrimSuffix(cfg.RealtimeBaseURL, "/") + "/sessions",
	}
}

// Handler returns the backend's HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}))

	r.Post("/v1/realtime/token", s.handleMint)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// sessionRequest is the provider's realtime session-creation payload.
type sessionRequest struct {
	Model        string   `json:"model"`
	Voice        string   `json:"voice"`
	Modalities   []string `json:"modalities"`
	Instructions string   `json:"instructions"`
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	var req token.MintRequest
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body failed", http.StatusBadRequest)
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			metrics.TokenMintsTotal.WithLabelValues("bad_request").Inc()
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}
	instructions := req.Instructions
	if instructions == "" {
		instructions = coach.DefaultSystemPrompt
	}

	if s.cfg.OpenAIAPIKey == "" {
		s.logger.Error("no provider API key configured")
		metrics.TokenMintsTotal.WithLabelValues("misconfigured").Inc()
		http.Error(w, "token backend not configured", http.StatusInternalServerError)
		return
	}

	secret, err := s.mintUpstream(r, instructions)
	if err != nil {
		s.logger.Error("mint session credential failed", zap.Error(err))
		metrics.TokenMintsTotal.WithLabelValues("upstream_error").Inc()
		http.Error(w, "credential mint failed", http.StatusBadGateway)
		return
	}

	metrics.TokenMintsTotal.WithLabelValues("success").Inc()
	w.Header().Set("Content-Type", "application/json")
	w.Write(secret)
}

// mintUpstream creates a provider session and relays the client_secret
// envelope. The response body is passed through so expiry semantics stay
// whatever the provider says they are.
func (s *Server) mintUpstream(r *http.Request, instructions string) ([]byte, error) {
	payload, err := json.Marshal(sessionRequest{
		Model:        s.cfg.RealtimeModel,
		Voice:        s.cfg.RealtimeVoice,
		Modalities:   []string{"text", "audio"},
		Instructions: instructions,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal session request: %w", err)
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, s.sessionsURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.OpenAIAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create provider session: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read provider response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	// Relay only the client_secret envelope; the rest of the session object
	// is the provider's business.
	var parsed struct {
		ClientSecret json.RawMessage `json:"client_secret"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.ClientSecret) == 0 {
		return nil, fmt.Errorf("provider response missing client_secret")
	}
	out, err := json.Marshal(map[string]json.RawMessage{"client_secret": parsed.ClientSecret})
	if err != nil {
		return nil, fmt.Errorf("marshal mint response: %w", err)
	}
	return out, nil
}
