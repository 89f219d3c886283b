package transcript

import (
	"strings"
	"testing"
)

func TestConversationTurnsQueryLimit(t *testing.T) {
	query, args := conversationTurnsQuery("c1", 0)
	if strings.Contains(query, "LIMIT") {
		t.Fatalf("conversationTurnsQuery(limit=0) = %q, want no LIMIT", query)
	}
	if len(args) != 1 || args[0] != "c1" {
		t.Fatalf("args = %v, want [c1]", args)
	}

	query, args = conversationTurnsQuery("c1", -3)
	if strings.Contains(query, "LIMIT") || len(args) != 1 {
		t.Fatalf("conversationTurnsQuery(limit=-3) = %q %v, want whole conversation", query, args)
	}

	query, args = conversationTurnsQuery("c1", 5)
	if !strings.HasSuffix(query, "LIMIT $2") {
		t.Fatalf("conversationTurnsQuery(limit=5) = %q, want LIMIT $2", query)
	}
	if len(args) != 2 || args[1] != 5 {
		t.Fatalf("args = %v, want [c1 5]", args)
	}
}
