package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/antoniostano/vocabtutor/internal/curriculum"
	"github.com/antoniostano/vocabtutor/internal/observability"
	"github.com/antoniostano/vocabtutor/internal/reliability"
	"github.com/antoniostano/vocabtutor/internal/session"
	"github.com/antoniostano/vocabtutor/internal/transcript"
	"github.com/antoniostano/vocabtutor/internal/voice"
)

type stubCompleter struct {
	mu     sync.Mutex
	calls  int
	seen   [][]session.Message
	err    error
	reply  string
	onCall func()
}

func (c *stubCompleter) Complete(_ context.Context, history []session.Message) (string, error) {
	c.mu.Lock()
	c.calls++
	c.seen = append(c.seen, append([]session.Message(nil), history...))
	hook := c.onCall
	c.mu.Unlock()
	if hook != nil {
		hook()
	}
	if c.err != nil {
		return "", c.err
	}
	if c.reply != "" {
		return c.reply, nil
	}
	return "¡Hola! ¿Cómo te llamas?", nil
}

type failingArchive struct{ *transcript.InMemoryStore }

func (failingArchive) SaveTurns(context.Context, ...transcript.TurnRecord) error {
	return errors.New("disk full")
}

type testEnv struct {
	svc       *Service
	sessions  *session.Registry
	completer *stubCompleter
	archive   *transcript.InMemoryStore
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	units, err := curriculum.Load("")
	if err != nil {
		t.Fatalf("curriculum.Load() error = %v", err)
	}
	sessions := session.NewRegistry(session.Config{TTL: time.Hour, SweepInterval: time.Hour})
	completer := &stubCompleter{}
	archive := transcript.NewInMemoryStore(100)
	metrics := observability.NewMetricsWith(prometheus.NewRegistry(), "test_conversation")
	mock := voice.NewMockProvider()
	svc := NewService(Config{UpstreamTimeout: time.Second}, units, sessions, completer, mock, mock, archive, metrics)
	return testEnv{svc: svc, sessions: sessions, completer: completer, archive: archive}
}

func TestStartSeedsSystemAndOpening(t *testing.T) {
	env := newTestEnv(t)
	res, err := env.svc.Start(context.Background(), 1)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if res.ConversationID == "" || res.Message == "" {
		t.Fatalf("Start() = %+v, want id and opening message", res)
	}

	if len(env.completer.seen) != 1 || len(env.completer.seen[0]) != 1 || env.completer.seen[0][0].Role != session.RoleSystem {
		t.Fatalf("completer should receive exactly the system message, got %+v", env.completer.seen)
	}
	if !strings.Contains(env.completer.seen[0][0].Content, "me llamo") {
		t.Fatalf("system prompt missing unit vocabulary")
	}

	sess, err := env.sessions.Get(res.ConversationID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(sess.Messages) != 2 || sess.Messages[0].Role != session.RoleSystem || sess.Messages[1].Content != res.Message {
		t.Fatalf("unexpected seed: %+v", sess.Messages)
	}
}

func TestStartValidUnitsAndInvalidUnits(t *testing.T) {
	env := newTestEnv(t)
	for _, n := range []int{1, 2, 4, 5} {
		if _, err := env.svc.Start(context.Background(), n); err != nil {
			t.Fatalf("Start(%d) error = %v", n, err)
		}
	}
	for _, n := range []int{0, 3, 6, -2} {
		if _, err := env.svc.Start(context.Background(), n); !errors.Is(err, ErrInvalidUnit) {
			t.Fatalf("Start(%d) error = %v, want ErrInvalidUnit", n, err)
		}
	}
	if got := env.sessions.Count(); got != 4 {
		t.Fatalf("Count() = %d, want 4", got)
	}
}

func TestStartUpstreamFailureRegistersNothing(t *testing.T) {
	env := newTestEnv(t)
	env.completer.err = reliability.NewUpstreamError("openai", "chat", 503, nil)

	_, err := env.svc.Start(context.Background(), 1)
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("Start() error = %v, want ErrUpstream", err)
	}
	var ue *reliability.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("upstream cause lost: %v", err)
	}
	if env.sessions.Count() != 0 {
		t.Fatalf("session registered despite failure")
	}
}

func TestMessageAppendsPairs(t *testing.T) {
	env := newTestEnv(t)
	res, err := env.svc.Start(context.Background(), 2)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	const n = 5
	for i := 0; i < n; i++ {
		reply, err := env.svc.Message(context.Background(), res.ConversationID, "X")
		if err != nil {
			t.Fatalf("Message() error = %v", err)
		}
		if reply == "" {
			t.Fatalf("Message() returned empty reply")
		}
	}

	sess, _ := env.sessions.Get(res.ConversationID)
	if len(sess.Messages) != 2+2*n {
		t.Fatalf("len(Messages) = %d, want %d", len(sess.Messages), 2+2*n)
	}
	last := env.completer.seen[len(env.completer.seen)-1]
	if len(last) != 2+2*(n-1)+1 || last[len(last)-1] != (session.Message{Role: session.RoleUser, Content: "X"}) {
		t.Fatalf("completer did not receive full history: %d messages", len(last))
	}

	archived, err := env.svc.Transcript(context.Background(), res.ConversationID)
	if err != nil {
		t.Fatalf("Transcript() error = %v", err)
	}
	if len(archived) != 1+2*n {
		t.Fatalf("len(archived) = %d, want %d", len(archived), 1+2*n)
	}
}

func TestMessageUnknownOrEndedSession(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.svc.Message(context.Background(), "never-issued", "hola"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Message(unknown) error = %v, want ErrSessionNotFound", err)
	}

	res, _ := env.svc.Start(context.Background(), 1)
	env.svc.End(res.ConversationID)
	if _, err := env.svc.Message(context.Background(), res.ConversationID, "hola"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Message(ended) error = %v, want ErrSessionNotFound", err)
	}
}

func TestMessageUpstreamFailureLeavesHistoryUntouched(t *testing.T) {
	env := newTestEnv(t)
	res, _ := env.svc.Start(context.Background(), 1)
	env.completer.err = errors.New("timeout")

	if _, err := env.svc.Message(context.Background(), res.ConversationID, "hola"); !errors.Is(err, ErrUpstream) {
		t.Fatalf("Message() error = %v, want ErrUpstream", err)
	}
	sess, _ := env.sessions.Get(res.ConversationID)
	if len(sess.Messages) != 2 {
		t.Fatalf("len(Messages) = %d, want 2 after failed turn", len(sess.Messages))
	}
}

func TestMessageSessionEndedMidTurn(t *testing.T) {
	env := newTestEnv(t)
	res, _ := env.svc.Start(context.Background(), 1)
	env.completer.onCall = func() { env.svc.End(res.ConversationID) }

	if _, err := env.svc.Message(context.Background(), res.ConversationID, "hola"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Message() error = %v, want ErrSessionNotFound", err)
	}
}

func TestMessageRejectsEmptyText(t *testing.T) {
	env := newTestEnv(t)
	res, _ := env.svc.Start(context.Background(), 1)
	if _, err := env.svc.Message(context.Background(), res.ConversationID, "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("Message(blank) error = %v, want ErrEmptyMessage", err)
	}
	if env.completer.calls != 1 {
		t.Fatalf("completer calls = %d, want 1", env.completer.calls)
	}
}

func TestEndIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	res, _ := env.svc.Start(context.Background(), 1)
	env.svc.End(res.ConversationID)
	env.svc.End(res.ConversationID)
	env.svc.End("unknown")
	if _, err := env.svc.History(res.ConversationID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("History() error = %v, want ErrSessionNotFound", err)
	}
}

func TestArchiveFailureDoesNotFailTurn(t *testing.T) {
	env := newTestEnv(t)
	env.svc.archive = failingArchive{transcript.NewInMemoryStore(1)}
	res, err := env.svc.Start(context.Background(), 1)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := env.svc.Message(context.Background(), res.ConversationID, "hola"); err != nil {
		t.Fatalf("Message() error = %v", err)
	}
}

func TestTranscribeEmptyAudio(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Transcribe(context.Background(), strings.NewReader(""), "clip.webm")
	if !errors.Is(err, ErrTranscription) {
		t.Fatalf("Transcribe(empty) error = %v, want ErrTranscription", err)
	}
	text, err := env.svc.Transcribe(context.Background(), strings.NewReader("audio"), "clip.webm")
	if err != nil || text == "" {
		t.Fatalf("Transcribe() = %q, %v", text, err)
	}
}

func TestSynthesize(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.svc.Synthesize(context.Background(), ""); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("Synthesize(empty) error = %v, want ErrEmptyMessage", err)
	}
	clip, err := env.svc.Synthesize(context.Background(), "Hola, ¿cómo estás?")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if clip.ContentType != "audio/wav" || len(clip.Data) <= 44 {
		t.Fatalf("clip = %s, %d bytes", clip.ContentType, len(clip.Data))
	}
}

func TestInstructions(t *testing.T) {
	env := newTestEnv(t)
	turn, err := env.svc.Instructions(4, false)
	if err != nil {
		t.Fatalf("Instructions() error = %v", err)
	}
	live, err := env.svc.Instructions(4, true)
	if err != nil {
		t.Fatalf("Instructions(realtime) error = %v", err)
	}
	if turn == live {
		t.Fatalf("realtime instructions should differ from turn-based")
	}
	if _, err := env.svc.Instructions(3, true); !errors.Is(err, ErrInvalidUnit) {
		t.Fatalf("Instructions(3) error = %v, want ErrInvalidUnit", err)
	}
}
