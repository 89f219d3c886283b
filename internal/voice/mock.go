package voice

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/antoniostano/vocabtutor/internal/audio"
)

// MockProvider is a local fallback used when no API key is configured.
type MockProvider struct{}

func NewMockProvider() *MockProvider { return &MockProvider{} }

func (p *MockProvider) Transcribe(ctx context.Context, in io.Reader, _ TranscribeOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return "", ErrNoSpeech
	}
	return "hola", nil
}

// Synthesize returns a short silent WAV clip sized to the text.
func (p *MockProvider) Synthesize(ctx context.Context, text string, _ SpeechSettings) (Audio, error) {
	if err := ctx.Err(); err != nil {
		return Audio{}, err
	}
	samples := 1600 * len(strings.Fields(text))
	wav, err := audio.EncodeWAV(make([]byte, samples*2), 16000)
	if err != nil {
		return Audio{}, err
	}
	return Audio{Data: wav, ContentType: "audio/wav", Format: "wav"}, nil
}
