package transcript

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists archived turns in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS conversation_turns (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			unit_number INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_conversation_turns_conv_seq ON conversation_turns (conversation_id, seq);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

// SaveTurns writes all records in one transaction so a turn is never half archived.
func (s *PostgresStore) SaveTurns(ctx context.Context, records ...TurnRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, record := range records {
		if record.ID == "" {
			record.ID = uuid.NewString()
		}
		if record.CreatedAt.IsZero() {
			record.CreatedAt = time.Now().UTC()
		}
		batch.Queue(
			`INSERT INTO conversation_turns (id, conversation_id, unit_number, seq, role, content, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			record.ID,
			record.ConversationID,
			record.UnitNumber,
			record.Seq,
			record.Role,
			record.Content,
			record.CreatedAt,
		)
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("save turns: %w", err)
	}
	return nil
}

func (s *PostgresStore) ConversationTurns(ctx context.Context, conversationID string, limit int) ([]TurnRecord, error) {
	query, args := conversationTurnsQuery(conversationID, limit)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query conversation turns: %w", err)
	}
	defer rows.Close()

	var items []TurnRecord
	for rows.Next() {
		var r TurnRecord
		if err := rows.Scan(&r.ID, &r.ConversationID, &r.UnitNumber, &r.Seq, &r.Role, &r.Content, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turn rows: %w", err)
	}

	// Reverse into chronological order.
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}

	return items, nil
}

// conversationTurnsQuery selects the newest turns first. A non-positive limit
// returns the whole conversation.
func conversationTurnsQuery(conversationID string, limit int) (string, []any) {
	query := `SELECT id, conversation_id, unit_number, seq, role, content, created_at
		 FROM conversation_turns WHERE conversation_id=$1 ORDER BY seq DESC`
	if limit <= 0 {
		return query, []any{conversationID}
	}
	return query + ` LIMIT $2`, []any{conversationID, limit}
}

func (s *PostgresStore) Mode() string { return "postgres" }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
