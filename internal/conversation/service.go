// Package conversation runs the turn-based exchange: start a session for a
// unit, relay each learner message to the model, and end the session.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/antoniostano/vocabtutor/internal/curriculum"
	"github.com/antoniostano/vocabtutor/internal/llm"
	"github.com/antoniostano/vocabtutor/internal/observability"
	"github.com/antoniostano/vocabtutor/internal/prompt"
	"github.com/antoniostano/vocabtutor/internal/reliability"
	"github.com/antoniostano/vocabtutor/internal/session"
	"github.com/antoniostano/vocabtutor/internal/transcript"
	"github.com/antoniostano/vocabtutor/internal/voice"
)

const archiveTimeout = 5 * time.Second

type Config struct {
	UpstreamTimeout time.Duration
	Transcribe      voice.TranscribeOptions
	Speech          voice.SpeechSettings
}

// StartResult is returned when a conversation opens.
type StartResult struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
}

type Service struct {
	cfg       Config
	units     *curriculum.Store
	sessions  *session.Registry
	completer llm.Completer
	stt       voice.Transcriber
	tts       voice.Synthesizer
	archive   transcript.Store
	metrics   *observability.Metrics
}

func NewService(
	cfg Config,
	units *curriculum.Store,
	sessions *session.Registry,
	completer llm.Completer,
	stt voice.Transcriber,
	tts voice.Synthesizer,
	archive transcript.Store,
	metrics *observability.Metrics,
) *Service {
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = 60 * time.Second
	}
	return &Service{
		cfg:       cfg,
		units:     units,
		sessions:  sessions,
		completer: completer,
		stt:       stt,
		tts:       tts,
		archive:   archive,
		metrics:   metrics,
	}
}

// Start validates the unit, asks the model for an opening line and registers
// a session seeded with [system, assistant]. Nothing is registered on failure.
func (s *Service) Start(ctx context.Context, unitNumber int) (StartResult, error) {
	unit, err := s.units.Resolve(unitNumber)
	if err != nil {
		s.outcome("start", "invalid_unit")
		return StartResult{}, err
	}

	system := session.Message{Role: session.RoleSystem, Content: prompt.Compose(&unit)}
	reply, err := s.complete(ctx, "start", []session.Message{system})
	if err != nil {
		return StartResult{}, err
	}

	opening := session.Message{Role: session.RoleAssistant, Content: reply}
	sess := s.sessions.Create(unit.Number, []session.Message{system, opening})
	if s.metrics != nil {
		s.metrics.SessionEvents.WithLabelValues("created").Inc()
		s.metrics.ActiveSessions.Set(float64(s.sessions.Count()))
	}
	s.outcome("start", "ok")
	s.archiveMessages(ctx, sess, 1)

	return StartResult{ConversationID: sess.ID, Message: reply}, nil
}

// Message appends one user/assistant pair. The session is only mutated after
// the model has answered.
func (s *Service) Message(ctx context.Context, conversationID, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		s.outcome("message", "empty")
		return "", ErrEmptyMessage
	}
	sess, err := s.sessions.Get(conversationID)
	if err != nil {
		s.outcome("message", "not_found")
		return "", s.notFound(err)
	}

	user := session.Message{Role: session.RoleUser, Content: text}
	history := append(sess.Messages, user)
	reply, err := s.complete(ctx, "message", history)
	if err != nil {
		return "", err
	}

	updated, err := s.sessions.AppendTurn(conversationID, user, session.Message{Role: session.RoleAssistant, Content: reply})
	if err != nil {
		// Ended or swept while the model was answering.
		s.outcome("message", "not_found")
		return "", s.notFound(err)
	}
	s.outcome("message", "ok")
	s.archiveMessages(ctx, updated, len(updated.Messages)-2)
	return reply, nil
}

// End removes the session. Unknown ids are not an error.
func (s *Service) End(conversationID string) {
	if !s.sessions.Delete(conversationID) {
		return
	}
	if s.metrics != nil {
		s.metrics.SessionEvents.WithLabelValues("ended").Inc()
		s.metrics.ActiveSessions.Set(float64(s.sessions.Count()))
	}
}

// History returns a snapshot of a live session.
func (s *Service) History(conversationID string) (*session.Session, error) {
	sess, err := s.sessions.Get(conversationID)
	if err != nil {
		return nil, s.notFound(err)
	}
	return sess, nil
}

// ActiveSessions reports how many conversations are held in memory.
func (s *Service) ActiveSessions() int {
	return s.sessions.Count()
}

// Transcript returns the archived turns of a conversation, live or not.
func (s *Service) Transcript(ctx context.Context, conversationID string) ([]transcript.TurnRecord, error) {
	records, err := s.archive.ConversationTurns(ctx, conversationID, 0)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrSessionNotFound
	}
	return records, nil
}

// Instructions returns the system instructions for a unit. The realtime
// variant is handed by the browser to the provider over its direct channel.
func (s *Service) Instructions(unitNumber int, realtime bool) (string, error) {
	unit, err := s.units.Resolve(unitNumber)
	if err != nil {
		return "", err
	}
	if realtime {
		return prompt.ComposeRealtime(&unit), nil
	}
	return prompt.Compose(&unit), nil
}

// Transcribe recognizes speech in the configured target language. Empty or
// unintelligible audio yields ErrTranscription so the caller can ask the
// learner to repeat instead of sending a message.
func (s *Service) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.UpstreamTimeout)
	defer cancel()

	opts := s.cfg.Transcribe
	opts.Filename = filename
	started := time.Now()
	text, err := s.stt.Transcribe(ctx, audio, opts)
	s.observe("transcribe", started)
	if err != nil {
		if errors.Is(err, voice.ErrNoSpeech) {
			s.outcome("transcribe", "no_speech")
			return "", fmt.Errorf("%w: %w", ErrTranscription, err)
		}
		return "", s.upstreamFailure("transcribe", err)
	}
	s.outcome("transcribe", "ok")
	return text, nil
}

// Synthesize turns text into speech with the fixed voice settings. Markup is
// stripped first. It never touches session state.
func (s *Service) Synthesize(ctx context.Context, text string) (voice.Audio, error) {
	text = voice.SpeakableText(text)
	if text == "" {
		s.outcome("synthesize", "empty")
		return voice.Audio{}, ErrEmptyMessage
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.UpstreamTimeout)
	defer cancel()

	started := time.Now()
	clip, err := s.tts.Synthesize(ctx, text, s.cfg.Speech)
	s.observe("synthesize", started)
	if err != nil {
		return voice.Audio{}, s.upstreamFailure("synthesize", err)
	}
	s.outcome("synthesize", "ok")
	return clip, nil
}

func (s *Service) complete(ctx context.Context, op string, history []session.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.UpstreamTimeout)
	defer cancel()

	started := time.Now()
	reply, err := s.completer.Complete(ctx, history)
	s.observe(op, started)
	if err != nil {
		return "", s.upstreamFailure(op, err)
	}
	return reply, nil
}

func (s *Service) upstreamFailure(op string, err error) error {
	code := reliability.Code(err)
	log.Printf("upstream %s failed (%s): %v", op, code, err)
	if s.metrics != nil {
		s.metrics.UpstreamErrors.WithLabelValues(op, code).Inc()
	}
	s.outcome(op, "upstream_error")
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}

func (s *Service) notFound(err error) error {
	if errors.Is(err, session.ErrNotFound) {
		return ErrSessionNotFound
	}
	return err
}

// archiveMessages records sess.Messages[from:]. Failures are logged only; the
// turn has already been committed to the session.
func (s *Service) archiveMessages(ctx context.Context, sess *session.Session, from int) {
	if s.archive == nil || from < 0 || from >= len(sess.Messages) {
		return
	}
	records := make([]transcript.TurnRecord, 0, len(sess.Messages)-from)
	for i := from; i < len(sess.Messages); i++ {
		m := sess.Messages[i]
		records = append(records, transcript.TurnRecord{
			ConversationID: sess.ID,
			UnitNumber:     sess.UnitNumber,
			Seq:            i,
			Role:           string(m.Role),
			Content:        m.Content,
		})
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()
	if err := s.archive.SaveTurns(ctx, records...); err != nil {
		log.Printf("transcript archive failed for %s: %v", sess.ID, err)
	}
}

func (s *Service) observe(op string, started time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveUpstream(op, time.Since(started))
	}
}

func (s *Service) outcome(op, outcome string) {
	if s.metrics != nil {
		s.metrics.TurnOutcomes.WithLabelValues(op, outcome).Inc()
	}
}
