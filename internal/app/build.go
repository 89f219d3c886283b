package app

import (
	"context"
	"fmt"
	"log"

	"github.com/antoniostano/vocabtutor/internal/config"
	"github.com/antoniostano/vocabtutor/internal/conversation"
	"github.com/antoniostano/vocabtutor/internal/curriculum"
	"github.com/antoniostano/vocabtutor/internal/httpapi"
	"github.com/antoniostano/vocabtutor/internal/llm"
	"github.com/antoniostano/vocabtutor/internal/observability"
	"github.com/antoniostano/vocabtutor/internal/session"
	"github.com/antoniostano/vocabtutor/internal/transcript"
	"github.com/antoniostano/vocabtutor/internal/voice"
)

type BuildResult struct {
	Config   config.Config
	API      *httpapi.Server
	Sessions *session.Registry
	Service  *conversation.Service
	Metrics  *observability.Metrics
	Info     httpapi.Info

	// Cleanup should be called on shutdown to release external resources.
	Cleanup func() error
}

// Build wires every component from cfg. metrics may be nil, in which case
// instruments are registered on the default Prometheus registry.
func Build(ctx context.Context, cfg config.Config, metrics *observability.Metrics) (*BuildResult, error) {
	if metrics == nil {
		metrics = observability.NewMetrics(cfg.MetricsNamespace)
	}

	units, err := curriculum.Load(cfg.CurriculumPath)
	if err != nil {
		return nil, fmt.Errorf("curriculum init failed: %w", err)
	}

	completer, aiMode, err := llm.NewCompleter(ctx, llm.Config{
		Mode:        cfg.AIProvider,
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.OpenAIChatModel,
		MaxTokens:   cfg.OpenAIMaxTokens,
		Temperature: cfg.OpenAITemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("completer init failed: %w", err)
	}

	voiceSetup, err := resolveVoiceProviders(cfg)
	if err != nil {
		return nil, err
	}

	archive, err := transcript.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("transcript store init failed: %w", err)
	}

	sessions := session.NewRegistry(session.Config{
		TTL:           cfg.SessionTTL,
		SweepInterval: cfg.SessionSweepInterval,
	})
	sessions.SetExpireHook(func(_ *session.Session) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(sessions.Count()))
	})

	service := conversation.NewService(conversation.Config{
		UpstreamTimeout: cfg.UpstreamTimeout,
		Transcribe: voice.TranscribeOptions{
			Model:    cfg.STTModel,
			Language: cfg.STTLanguage,
		},
		Speech: voice.SpeechSettings{
			Model:  cfg.TTSModel,
			Voice:  cfg.TTSVoice,
			Speed:  cfg.TTSSpeed,
			Format: cfg.TTSFormat,
		},
	}, units, sessions, completer, voiceSetup.transcriber, voiceSetup.synthesizer, archive, metrics)

	info := httpapi.Info{
		AIProvider:      aiMode,
		VoiceProvider:   voiceSetup.resolvedProvider,
		RealtimeBroker:  voiceSetup.resolvedProvider,
		TranscriptStore: archive.Mode(),
	}
	log.Printf("ai provider: %s, voice: %s, transcript store: %s, units: %d", aiMode, voiceSetup.detail, archive.Mode(), len(units.List()))

	api := httpapi.New(cfg, info, units, service, voiceSetup.broker, metrics)

	return &BuildResult{
		Config:   cfg,
		API:      api,
		Sessions: sessions,
		Service:  service,
		Metrics:  metrics,
		Info:     info,
		Cleanup:  archive.Close,
	}, nil
}
