package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MockBroker issues placeholder credentials for local development. They are
// not accepted by any provider.
type MockBroker struct {
	TTL time.Duration
}

func NewMockBroker() *MockBroker { return &MockBroker{TTL: time.Minute} }

func (b *MockBroker) IssueEphemeralCredential(ctx context.Context) (Credential, error) {
	if err := ctx.Err(); err != nil {
		return Credential{}, err
	}
	expires := time.Now().Add(b.TTL).UTC()
	value := "ek_mock_" + uuid.NewString()
	raw, err := json.Marshal(map[string]any{
		"value":      value,
		"expires_at": expires.Unix(),
	})
	if err != nil {
		return Credential{}, err
	}
	return Credential{Value: value, ExpiresAt: expires, Raw: raw}, nil
}
