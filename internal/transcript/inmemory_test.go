package transcript

import (
	"context"
	"testing"
)

func TestInMemoryStoreSavesAndLimits(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore(10)
	for i := 0; i < 4; i++ {
		if err := s.SaveTurns(ctx,
			TurnRecord{ConversationID: "c1", Seq: 2 * i, Role: "user", Content: "u"},
			TurnRecord{ConversationID: "c1", Seq: 2*i + 1, Role: "assistant", Content: "a"},
		); err != nil {
			t.Fatalf("SaveTurns() error = %v", err)
		}
	}

	all, err := s.ConversationTurns(ctx, "c1", 0)
	if err != nil {
		t.Fatalf("ConversationTurns() error = %v", err)
	}
	if len(all) != 8 {
		t.Fatalf("len(all) = %d, want 8", len(all))
	}
	if all[0].ID == "" || all[0].CreatedAt.IsZero() {
		t.Fatalf("record defaults not filled: %+v", all[0])
	}

	last, _ := s.ConversationTurns(ctx, "c1", 2)
	if len(last) != 2 || last[0].Seq != 6 || last[1].Seq != 7 {
		t.Fatalf("last two = %+v", last)
	}

	none, _ := s.ConversationTurns(ctx, "missing", 5)
	if len(none) != 0 {
		t.Fatalf("missing conversation returned %d records", len(none))
	}
}

func TestInMemoryStoreEvictsOldestConversation(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore(2)
	for _, id := range []string{"a", "b", "c"} {
		_ = s.SaveTurns(ctx, TurnRecord{ConversationID: id, Role: "user", Content: id})
	}

	if got, _ := s.ConversationTurns(ctx, "a", 0); len(got) != 0 {
		t.Fatalf("oldest conversation should be evicted, got %d records", len(got))
	}
	if got, _ := s.ConversationTurns(ctx, "c", 0); len(got) != 1 {
		t.Fatalf("newest conversation missing")
	}
}
