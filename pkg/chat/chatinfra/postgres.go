package chatinfra

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Abraxas-365/parley/pkg/ai/llm/windowx"
	"github.com/Abraxas-365/parley/pkg/chat"
	"github.com/Abraxas-365/parley/pkg/errx"
)

// Schema creates the conversation tables
const Schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS conversation_messages (
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	seq             INT NOT NULL,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	approx_tokens   INT NOT NULL,
	summary         BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (conversation_id, seq)
);
`

// PostgresStore implementación de PostgreSQL para ConversationStore
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore crea una nueva instancia del store de conversaciones
func NewPostgresStore(db *sqlx.DB) chat.ConversationStore {
	return &PostgresStore{
		db: db,
	}
}

// EnsureSchema applies the table definitions
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return errx.Wrap(err, "failed to apply conversation schema", errx.TypeInternal)
	}
	return nil
}

type conversationRow struct {
	ID        string    `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type messageRow struct {
	ConversationID string `db:"conversation_id"`
	Seq            int    `db:"seq"`
	Role           string `db:"role"`
	Content        string `db:"content"`
	ApproxTokens   int    `db:"approx_tokens"`
	Summary        bool   `db:"summary"`
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*chat.Conversation, error) {
	var row conversationRow
	err := s.db.GetContext(ctx, &row, `SELECT id, created_at, updated_at FROM conversations WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, chat.ErrConversationNotFound().WithDetail("conversation_id", id)
		}
		return nil, errx.Wrap(err, "failed to load conversation", errx.TypeInternal).
			WithDetail("conversation_id", id)
	}

	var msgRows []messageRow
	err = s.db.SelectContext(ctx, &msgRows, `
		SELECT conversation_id, seq, role, content, approx_tokens, summary
		FROM conversation_messages
		WHERE conversation_id = $1
		ORDER BY seq`, id)
	if err != nil {
		return nil, errx.Wrap(err, "failed to load conversation messages", errx.TypeInternal).
			WithDetail("conversation_id", id)
	}

	conv := &chat.Conversation{
		ID:        row.ID,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
		Messages:  make([]windowx.Message, len(msgRows)),
	}
	for i, m := range msgRows {
		conv.Messages[i] = windowx.Message{
			Role:         m.Role,
			Content:      m.Content,
			ApproxTokens: m.ApproxTokens,
			Summary:      m.Summary,
		}
	}
	return conv, nil
}

// Put replaces the stored conversation inside one transaction so a reader
// never observes a partially written history.
func (s *PostgresStore) Put(ctx context.Context, conv *chat.Conversation) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errx.Wrap(err, "failed to begin transaction", errx.TypeInternal)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (id, created_at, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET updated_at = EXCLUDED.updated_at`,
		conv.ID, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return errx.Wrap(err, "failed to upsert conversation", errx.TypeInternal).
			WithDetail("conversation_id", conv.ID)
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM conversation_messages WHERE conversation_id = $1`, conv.ID)
	if err != nil {
		return errx.Wrap(err, "failed to clear conversation messages", errx.TypeInternal).
			WithDetail("conversation_id", conv.ID)
	}

	for i, m := range conv.Messages {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO conversation_messages (conversation_id, seq, role, content, approx_tokens, summary)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			conv.ID, i, m.Role, m.Content, m.ApproxTokens, m.Summary)
		if err != nil {
			return errx.Wrap(err, "failed to insert conversation message", errx.TypeInternal).
				WithDetail("conversation_id", conv.ID).
				WithDetail("seq", i)
		}
	}

	if err := tx.Commit(); err != nil {
		return errx.Wrap(err, "failed to commit conversation", errx.TypeInternal).
			WithDetail("conversation_id", conv.ID)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return errx.Wrap(err, "failed to delete conversation", errx.TypeInternal).
			WithDetail("conversation_id", id)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to read delete result", errx.TypeInternal)
	}
	if affected == 0 {
		return chat.ErrConversationNotFound().WithDetail("conversation_id", id)
	}
	return nil
}
