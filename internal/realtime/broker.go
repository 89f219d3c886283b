// Package realtime brokers short-lived credentials for live voice sessions.
// The browser uses the credential to talk to the provider directly; this
// server takes no further part in the session.
package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/antoniostano/vocabtutor/internal/reliability"
)

var ErrMissingCredential = errors.New("upstream response has no credential value")

// Credential is the ephemeral token plus the raw upstream payload, which is
// handed to the client unchanged.
type Credential struct {
	Value     string
	ExpiresAt time.Time
	Raw       json.RawMessage
}

type Broker interface {
	IssueEphemeralCredential(ctx context.Context) (Credential, error)
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Voice   string
	Timeout time.Duration
}

// OpenAIBroker mints client secrets through a server-to-server call so the
// long-lived key never leaves the process.
type OpenAIBroker struct {
	cfg    Config
	client *http.Client
}

func NewOpenAIBroker(cfg Config) *OpenAIBroker {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "gpt-realtime"
	}
	if strings.TrimSpace(cfg.Voice) == "" {
		cfg.Voice = "marin"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &OpenAIBroker{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

func (b *OpenAIBroker) IssueEphemeralCredential(ctx context.Context) (Credential, error) {
	payload, err := json.Marshal(map[string]any{
		"session": map[string]any{
			"type":  "realtime",
			"model": b.cfg.Model,
			"audio": map[string]any{
				"output": map[string]any{"voice": b.cfg.Voice},
			},
		},
	})
	if err != nil {
		return Credential{}, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(b.cfg.BaseURL, "/") + "/realtime/client_secrets"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Credential{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := b.client.Do(req)
	if err != nil {
		return Credential{}, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return Credential{}, fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return Credential{}, reliability.NewUpstreamError("openai", "realtime_client_secret", res.StatusCode, body)
	}
	return parseCredential(body)
}

func parseCredential(body []byte) (Credential, error) {
	var parsed struct {
		Value     string `json:"value"`
		ExpiresAt int64  `json:"expires_at"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Credential{}, fmt.Errorf("parse credential: %w", err)
	}
	if strings.TrimSpace(parsed.Value) == "" {
		return Credential{}, ErrMissingCredential
	}
	c := Credential{Value: parsed.Value, Raw: json.RawMessage(body)}
	if parsed.ExpiresAt > 0 {
		c.ExpiresAt = time.Unix(parsed.ExpiresAt, 0).UTC()
	}
	return c, nil
}
