package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// AuditRepo writes diagnostic copies of turns and uploads to the shared
// audit store, keyed additionally by user identity. The audit store is
// best-effort: it is never read for session reconstruction.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo creates a new AuditRepo.
func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// InsertTurn writes one turn row for the given user.
func (r *AuditRepo) InsertTurn(ctx context.Context, user string, turn *TurnRecord, setup *WindowSetup) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_history
			(user, window_index, conversation_id, agent, mode, model, embedding,
			 db_source, db_name, title, user_query, ai_response)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user, setup.WindowIndex, setup.ConversationID, setup.Agent, setup.Mode,
		setup.ModelID, setup.EmbeddingID, setup.DBSource, setup.DBName,
		setup.Title, turn.UserQuery, turn.AIResponse,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit turn: %w", err)
	}
	return nil
}

// InsertUpload writes one upload row for the given user.
func (r *AuditRepo) InsertUpload(ctx context.Context, user, conversationID, tempName, originalName string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO document_uploads (user, conversation_id, tmp_name, org_name) VALUES (?, ?, ?, ?)",
		user, conversationID, tempName, originalName,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit upload: %w", err)
	}
	return nil
}
