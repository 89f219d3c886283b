package session

import "time"

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session is a server-held conversation record.
type Session struct {
	ID         string    `json:"conversation_id"`
	UnitNumber int       `json:"unit_number"`
	Messages   []Message `json:"messages"`
	CreatedAt  time.Time `json:"created_at"`
}

// Config controls registry expiry.
type Config struct {
	TTL           time.Duration
	SweepInterval time.Duration
	// Clock defaults to time.Now.
	Clock func() time.Time
}
