package app

import (
	"fmt"
	"strings"

	"github.com/antoniostano/vocabtutor/internal/config"
	"github.com/antoniostano/vocabtutor/internal/realtime"
	"github.com/antoniostano/vocabtutor/internal/voice"
)

type voiceSetup struct {
	transcriber      voice.Transcriber
	synthesizer      voice.Synthesizer
	broker           realtime.Broker
	resolvedProvider string
	detail           string
}

// resolveVoiceProviders picks the speech and realtime backends. They share the
// chat provider's key, so AI_PROVIDER selects all of them together.
func resolveVoiceProviders(cfg config.Config) (voiceSetup, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.AIProvider))
	if mode == "" {
		mode = "auto"
	}

	openai := func() voiceSetup {
		p := voice.NewOpenAIProvider(voice.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: cfg.UpstreamTimeout,
		})
		return voiceSetup{
			transcriber: p,
			synthesizer: p,
			broker: realtime.NewOpenAIBroker(realtime.Config{
				APIKey:  cfg.OpenAIAPIKey,
				BaseURL: cfg.OpenAIBaseURL,
				Model:   cfg.RealtimeModel,
				Voice:   cfg.RealtimeVoice,
				Timeout: cfg.UpstreamTimeout,
			}),
			resolvedProvider: "openai",
			detail:           fmt.Sprintf("openai (%s / %s, voice %s)", cfg.STTModel, cfg.TTSModel, cfg.TTSVoice),
		}
	}
	mock := func(detail string) voiceSetup {
		p := voice.NewMockProvider()
		return voiceSetup{
			transcriber:      p,
			synthesizer:      p,
			broker:           realtime.NewMockBroker(),
			resolvedProvider: "mock",
			detail:           detail,
		}
	}

	switch mode {
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return voiceSetup{}, fmt.Errorf("AI_PROVIDER=openai but OPENAI_API_KEY is not set")
		}
		return openai(), nil
	case "mock":
		return mock("mock"), nil
	case "auto":
		if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
			return openai(), nil
		}
		return mock("mock (no OPENAI_API_KEY)"), nil
	default:
		return voiceSetup{}, fmt.Errorf("invalid AI_PROVIDER: %q (expected auto|openai|mock)", cfg.AIProvider)
	}
}
