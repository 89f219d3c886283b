package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/antoniostano/vocabtutor/internal/reliability"
	"github.com/antoniostano/vocabtutor/internal/session"
)

// OpenAICompleter sends the whole history to an OpenAI-compatible chat model.
type OpenAICompleter struct {
	model model.BaseChatModel
}

func NewOpenAICompleter(ctx context.Context, cfg Config) (*OpenAICompleter, error) {
	maxTokens := cfg.MaxTokens
	temperature := float32(cfg.Temperature)

	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}
	return &OpenAICompleter{model: cm}, nil
}

// NewCompleterFromModel adapts any eino chat model.
func NewCompleterFromModel(m model.BaseChatModel) *OpenAICompleter {
	return &OpenAICompleter{model: m}
}

func (c *OpenAICompleter) Complete(ctx context.Context, history []session.Message) (string, error) {
	out, err := c.model.Generate(ctx, toSchema(history))
	if err != nil {
		return "", reliability.FromOpenAI("chat", err)
	}
	if out == nil {
		return "", errors.New("generate completion: empty response")
	}
	text := strings.TrimSpace(out.Content)
	if text == "" {
		return "", errors.New("generate completion: empty content")
	}
	return text, nil
}

func toSchema(history []session.Message) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case session.RoleSystem:
			msgs = append(msgs, schema.SystemMessage(m.Content))
		case session.RoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(m.Content, nil))
		default:
			msgs = append(msgs, schema.UserMessage(m.Content))
		}
	}
	return msgs
}
