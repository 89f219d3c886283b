package voice

import (
	"context"
	"errors"
	"io"
)

// ErrNoSpeech is returned when the audio is empty or nothing intelligible was recognized.
var ErrNoSpeech = errors.New("no speech recognized")

// TranscribeOptions are fixed per deployment; the exercise targets one language.
type TranscribeOptions struct {
	Model    string
	Language string
	Filename string
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, opts TranscribeOptions) (string, error)
}

type SpeechSettings struct {
	Model  string
	Voice  string
	Speed  float64
	Format string
}

// Audio is a synthesized clip and its MIME type.
type Audio struct {
	Data        []byte
	ContentType string
	Format      string
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string, settings SpeechSettings) (Audio, error)
}
