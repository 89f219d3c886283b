package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRegistry(ttl, interval time.Duration) (*Registry, *fakeClock) {
	clk := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	return NewRegistry(Config{TTL: ttl, SweepInterval: interval, Clock: clk.Now}), clk
}

func TestRegistryCreateGetDelete(t *testing.T) {
	r, _ := newTestRegistry(time.Hour, time.Hour)
	seed := []Message{{Role: RoleSystem, Content: "sys"}, {Role: RoleAssistant, Content: "hola"}}
	s := r.Create(2, seed)
	if s.ID == "" {
		t.Fatalf("session ID should not be empty")
	}

	got, err := r.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.UnitNumber != 2 || len(got.Messages) != 2 || got.Messages[0].Role != RoleSystem {
		t.Fatalf("unexpected session state: %+v", got)
	}

	if !r.Delete(s.ID) {
		t.Fatalf("Delete() = false, want true")
	}
	if r.Delete(s.ID) {
		t.Fatalf("second Delete() = true, want false")
	}
	if _, err := r.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

func TestRegistryAppendTurnKeepsSystemPrompt(t *testing.T) {
	r, _ := newTestRegistry(time.Hour, time.Hour)
	s := r.Create(1, []Message{{Role: RoleSystem, Content: "sys"}, {Role: RoleAssistant, Content: "open"}})

	for i := 0; i < 3; i++ {
		if _, err := r.AppendTurn(s.ID, Message{Role: RoleUser, Content: "u"}, Message{Role: RoleAssistant, Content: "a"}); err != nil {
			t.Fatalf("AppendTurn() error = %v", err)
		}
	}

	got, _ := r.Get(s.ID)
	if len(got.Messages) != 2+2*3 {
		t.Fatalf("len(Messages) = %d, want %d", len(got.Messages), 8)
	}
	if got.Messages[0] != (Message{Role: RoleSystem, Content: "sys"}) {
		t.Fatalf("system prompt changed: %+v", got.Messages[0])
	}
	for i := 2; i < len(got.Messages); i += 2 {
		if got.Messages[i].Role != RoleUser || got.Messages[i+1].Role != RoleAssistant {
			t.Fatalf("turn at %d not a user/assistant pair: %+v", i, got.Messages[i:i+2])
		}
	}

	if _, err := r.AppendTurn("missing", Message{}, Message{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("AppendTurn(missing) error = %v, want ErrNotFound", err)
	}
}

func TestRegistryGetReturnsCopy(t *testing.T) {
	r, _ := newTestRegistry(time.Hour, time.Hour)
	s := r.Create(1, []Message{{Role: RoleSystem, Content: "sys"}})

	got, _ := r.Get(s.ID)
	got.Messages[0].Content = "changed"
	got.Messages = append(got.Messages, Message{Role: RoleUser, Content: "x"})

	again, _ := r.Get(s.ID)
	if again.Messages[0].Content != "sys" || len(again.Messages) != 1 {
		t.Fatalf("Get() leaked internal state: %+v", again.Messages)
	}
}

func TestRegistrySweepBoundary(t *testing.T) {
	ttl := time.Hour
	interval := 10 * time.Minute
	r, clk := newTestRegistry(ttl, interval)
	created := clk.Now()
	s := r.Create(1, nil)

	if n := r.SweepOnce(created.Add(ttl - time.Second)); n != 0 {
		t.Fatalf("SweepOnce(T+TTL-ε) removed %d, want 0", n)
	}
	if _, err := r.Get(s.ID); err != nil {
		t.Fatalf("Get() at T+TTL-ε error = %v", err)
	}

	if n := r.SweepOnce(created.Add(ttl + interval + time.Second)); n != 1 {
		t.Fatalf("SweepOnce(T+TTL+interval+ε) removed %d, want 1", n)
	}
	if _, err := r.Get(s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() after sweep error = %v, want ErrNotFound", err)
	}
}

func TestRegistrySweepOnlyRemovesExpired(t *testing.T) {
	r, clk := newTestRegistry(time.Hour, time.Hour)
	old := r.Create(1, nil)
	clk.Advance(45 * time.Minute)
	fresh := r.Create(2, nil)

	var hooked []string
	r.SetExpireHook(func(s *Session) { hooked = append(hooked, s.ID) })

	if n := r.SweepOnce(clk.Now().Add(15 * time.Minute)); n != 1 {
		t.Fatalf("SweepOnce() removed %d, want 1", n)
	}
	if _, err := r.Get(old.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("old session still present")
	}
	if _, err := r.Get(fresh.ID); err != nil {
		t.Fatalf("fresh session removed: %v", err)
	}
	if len(hooked) != 1 || hooked[0] != old.ID {
		t.Fatalf("expire hook calls = %v, want [%s]", hooked, old.ID)
	}
}

func TestRegistryJanitorExpires(t *testing.T) {
	r := NewRegistry(Config{TTL: 30 * time.Millisecond, SweepInterval: 10 * time.Millisecond})
	s := r.Create(1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.StartJanitor(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := r.Get(s.ID); errors.Is(err, ErrNotFound) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("janitor did not expire session %s", s.ID)
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r, clk := newTestRegistry(time.Minute, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s := r.Create(1, []Message{{Role: RoleSystem, Content: "sys"}})
				_, _ = r.AppendTurn(s.ID, Message{Role: RoleUser}, Message{Role: RoleAssistant})
				_, _ = r.Get(s.ID)
				if j%2 == 0 {
					r.Delete(s.ID)
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			r.SweepOnce(clk.Now())
		}
	}()
	wg.Wait()

	if got := r.Count(); got != 16*25 {
		t.Fatalf("Count() = %d, want %d", got, 16*25)
	}
}
