package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// UploadRepo persists the temp-name to original-name provenance mapping for
// uploaded documents in a per-user store.
type UploadRepo struct {
	db *sql.DB
}

// NewUploadRepo creates a new UploadRepo.
func NewUploadRepo(db *sql.DB) *UploadRepo {
	return &UploadRepo{db: db}
}

// Insert records one temp-name mapping for a conversation.
func (r *UploadRepo) Insert(ctx context.Context, conversationID, tempName, originalName string) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO document_uploads (conversation_id, tmp_name, org_name) VALUES (?, ?, ?)",
		conversationID, tempName, originalName,
	)
	if err != nil {
		return fmt.Errorf("failed to insert upload record: %w", err)
	}
	return nil
}

// ListByConversation returns all upload records for a conversation in
// insertion order. Empty slice if none exist (not an error).
func (r *UploadRepo) ListByConversation(ctx context.Context, conversationID string) ([]UploadRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, conversation_id, tmp_name, org_name, created_at
		 FROM document_uploads WHERE conversation_id = ? ORDER BY id`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query uploads: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []UploadRecord
	for rows.Next() {
		var u UploadRecord
		if err := rows.Scan(&u.ID, &u.ConversationID, &u.TempName, &u.OriginalName, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan upload record: %w", err)
		}
		records = append(records, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return records, nil
}
