// Package token exchanges the caller's standing credentials for a
// short-lived realtime session credential via the NutriWhisper backend.
package token

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Credential is the ephemeral bearer token for one voice session. The value
// is opaque, used exactly once for the connection handshake, and must never
// be logged or persisted.
type Credential struct {
	Value     string
	ExpiresAt int64
}

// MintRequest is the backend's token endpoint payload.
type MintRequest struct {
	Instructions string `json:"instructions"`
}

// MintResponse mirrors the provider's client_secret envelope.
type MintResponse struct {
	ClientSecret struct {
		Value     string `json:"value"`
		ExpiresAt int64  `json:"expires_at"`
	} `json:"client_secret"`
	Error string `json:"error,omitempty"`
}

// Client calls the token-issuing backend.
type Client struct {
	endpoint string
	client   *http.Client
}

// NewClient creates a token client for the given endpoint.
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Mint exchanges the instruction string for a session credential.
func (c *Client) Mint(ctx context.Context, instructions string) (Credential, error) {
	body, err := json.Marshal(MintRequest{Instructions: instructions})
	if err != nil {
		return Credential{}, fmt.Errorf("marshal mint request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Credential{}, fmt.Errorf("build mint request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Credential{}, fmt.Errorf("mint request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Credential{}, fmt.Errorf("read mint response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Credential{}, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed MintResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Credential{}, fmt.Errorf("parse mint response: %w", err)
	}
	if parsed.ClientSecret.Value == "" {
		return Credential{}, fmt.Errorf("token endpoint returned no client secret")
	}

	return Credential{
		Value:     parsed.ClientSecret.Value,
		ExpiresAt: parsed.ClientSecret.ExpiresAt,
	}, nil
}
