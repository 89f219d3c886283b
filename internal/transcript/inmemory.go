package transcript

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultMaxConversations = 1000

// InMemoryStore keeps the most recent conversations in process. The oldest
// conversation is dropped once maxConversations is exceeded.
type InMemoryStore struct {
	mu               sync.RWMutex
	records          map[string][]TurnRecord
	order            []string
	maxConversations int
}

func NewInMemoryStore(maxConversations int) *InMemoryStore {
	if maxConversations <= 0 {
		maxConversations = defaultMaxConversations
	}
	return &InMemoryStore{
		records:          make(map[string][]TurnRecord),
		maxConversations: maxConversations,
	}
}

func (s *InMemoryStore) SaveTurns(_ context.Context, records ...TurnRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range records {
		if record.ID == "" {
			record.ID = uuid.NewString()
		}
		if record.CreatedAt.IsZero() {
			record.CreatedAt = time.Now().UTC()
		}
		if _, ok := s.records[record.ConversationID]; !ok {
			s.order = append(s.order, record.ConversationID)
		}
		s.records[record.ConversationID] = append(s.records[record.ConversationID], record)
	}
	for len(s.order) > s.maxConversations {
		delete(s.records, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}

func (s *InMemoryStore) ConversationTurns(_ context.Context, conversationID string, limit int) ([]TurnRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.records[conversationID]
	if len(arr) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(arr) {
		limit = len(arr)
	}
	return append([]TurnRecord(nil), arr[len(arr)-limit:]...), nil
}

func (s *InMemoryStore) Mode() string { return "in-memory" }

func (s *InMemoryStore) Close() error { return nil }
