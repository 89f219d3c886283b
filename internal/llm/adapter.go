// Package llm wraps the chat-completion backend used for turn-based exchanges.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/antoniostano/vocabtutor/internal/session"
)

// Completer produces the next assistant message for a conversation history.
type Completer interface {
	Complete(ctx context.Context, history []session.Message) (string, error)
}

// Config controls completer construction.
type Config struct {
	Mode        string
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
}

// NewCompleter picks a backend. "auto" uses OpenAI when a key is present and
// the deterministic mock otherwise.
func NewCompleter(ctx context.Context, cfg Config) (Completer, string, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return NewMockCompleter(), "mock", nil
		}
		c, err := NewOpenAICompleter(ctx, cfg)
		return c, "openai", err
	case "openai":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, "", errors.New("openai API key is required for openai mode")
		}
		c, err := NewOpenAICompleter(ctx, cfg)
		return c, "openai", err
	case "mock":
		return NewMockCompleter(), "mock", nil
	default:
		return nil, "", fmt.Errorf("unsupported completer mode %q", cfg.Mode)
	}
}
