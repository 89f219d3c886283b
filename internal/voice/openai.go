package voice

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"github.com/antoniostano/vocabtutor/internal/audio"
	"github.com/antoniostano/vocabtutor/internal/reliability"
)

// pcmSampleRate is the rate of raw "pcm" speech output.
const pcmSampleRate = 24000

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// OpenAIProvider calls the audio transcription and speech endpoints.
type OpenAIProvider struct {
	client *openai.Client
}

func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = strings.TrimRight(base, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}
	return &OpenAIProvider{client: openai.NewClientWithConfig(clientCfg)}
}

func (p *OpenAIProvider) Transcribe(ctx context.Context, in io.Reader, opts TranscribeOptions) (string, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}
	if len(data) == 0 {
		return "", ErrNoSpeech
	}

	name := filepath.Base(strings.TrimSpace(opts.Filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "audio.webm"
	}
	model := opts.Model
	if model == "" {
		model = openai.Whisper1
	}

	res, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    model,
		FilePath: name,
		Reader:   bytes.NewReader(data),
		Language: opts.Language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", reliability.FromOpenAI("transcription", err)
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}

func (p *OpenAIProvider) Synthesize(ctx context.Context, text string, settings SpeechSettings) (Audio, error) {
	format := strings.ToLower(strings.TrimSpace(settings.Format))
	if format == "" {
		format = string(openai.SpeechResponseFormatMp3)
	}
	model := settings.Model
	if model == "" {
		model = string(openai.TTSModel1)
	}
	voiceID := settings.Voice
	if voiceID == "" {
		voiceID = string(openai.VoiceNova)
	}
	speed := settings.Speed
	if speed <= 0 {
		speed = 1.0
	}

	res, err := p.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(model),
		Input:          text,
		Voice:          openai.SpeechVoice(voiceID),
		ResponseFormat: openai.SpeechResponseFormat(format),
		Speed:          speed,
	})
	if err != nil {
		return Audio{}, reliability.FromOpenAI("speech", err)
	}
	defer res.Close()

	data, err := io.ReadAll(io.LimitReader(res, 32<<20))
	if err != nil {
		return Audio{}, fmt.Errorf("read speech: %w", err)
	}

	if format == string(openai.SpeechResponseFormatPcm) {
		wav, err := audio.EncodeWAV(data, pcmSampleRate)
		if err != nil {
			return Audio{}, fmt.Errorf("wrap pcm: %w", err)
		}
		return Audio{Data: wav, ContentType: "audio/wav", Format: "wav"}, nil
	}
	return Audio{Data: data, ContentType: MimeForFormat(format), Format: format}, nil
}

// MimeForFormat maps a speech output format to a Content-Type.
func MimeForFormat(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "mp3":
		return "audio/mpeg"
	case "wav":
		return "audio/wav"
	case "opus", "ogg":
		return "audio/ogg"
	case "aac":
		return "audio/aac"
	case "flac":
		return "audio/flac"
	default:
		return "application/octet-stream"
	}
}
