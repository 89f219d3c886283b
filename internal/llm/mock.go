package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/antoniostano/vocabtutor/internal/session"
)

// MockCompleter provides deterministic local replies when no API key is configured.
type MockCompleter struct{}

func NewMockCompleter() *MockCompleter { return &MockCompleter{} }

func (c *MockCompleter) Complete(ctx context.Context, history []session.Message) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	var lastUser string
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == session.RoleUser {
			lastUser = strings.TrimSpace(history[i].Content)
			break
		}
	}
	if lastUser == "" {
		return "¡Hola! ¿Cómo estás?", nil
	}
	return fmt.Sprintf("Muy bien: %s. ¿Y tú?", lastUser), nil
}
