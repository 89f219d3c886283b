// Package transcript archives committed conversation turns so they outlive
// the in-memory session.
package transcript

import (
	"context"
	"time"
)

// TurnRecord stores a single user or assistant message of a committed turn.
type TurnRecord struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	UnitNumber     int       `json:"unit_number"`
	Seq            int       `json:"seq"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store persists and retrieves archived turns.
type Store interface {
	SaveTurns(ctx context.Context, records ...TurnRecord) error
	ConversationTurns(ctx context.Context, conversationID string, limit int) ([]TurnRecord, error)
	Mode() string
	Close() error
}
