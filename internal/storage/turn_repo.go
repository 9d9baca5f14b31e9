package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// TurnRepo provides chat-history operations against one per-user store.
type TurnRepo struct {
	db *sql.DB
}

// NewTurnRepo creates a new TurnRepo.
func NewTurnRepo(db *sql.DB) *TurnRepo {
	return &TurnRepo{db: db}
}

// Insert writes one turn with its window setup snapshot.
func (r *TurnRepo) Insert(ctx context.Context, turn *TurnRecord, setup *WindowSetup) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_history
			(window_index, conversation_id, agent, mode, model, embedding,
			 db_source, db_name, title, user_query, ai_response)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		setup.WindowIndex, setup.ConversationID, setup.Agent, setup.Mode,
		setup.ModelID, setup.EmbeddingID, setup.DBSource, setup.DBName,
		setup.Title, turn.UserQuery, turn.AIResponse,
	)
	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}
	return nil
}

// WindowIndexes returns the distinct persisted window indexes in ascending
// order. Empty slice for an empty store.
func (r *TurnRepo) WindowIndexes(ctx context.Context) ([]int, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT DISTINCT window_index FROM chat_history ORDER BY window_index")
	if err != nil {
		return nil, fmt.Errorf("failed to query window indexes: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var indexes []int
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return nil, fmt.Errorf("failed to scan window index: %w", err)
		}
		indexes = append(indexes, idx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return indexes, nil
}

// WindowSetup returns the scalar setup fields for a window. Conflicting
// values across turns resolve last-row-wins. Returns ErrNotFound when the
// window has no persisted rows.
func (r *TurnRepo) WindowSetup(ctx context.Context, index int) (*WindowSetup, error) {
	var s WindowSetup
	err := r.db.QueryRowContext(ctx,
		`SELECT window_index, conversation_id, agent, mode, model, embedding,
			db_source, db_name, title
		 FROM chat_history WHERE window_index = ?
		 ORDER BY id DESC LIMIT 1`,
		index,
	).Scan(&s.WindowIndex, &s.ConversationID, &s.Agent, &s.Mode, &s.ModelID,
		&s.EmbeddingID, &s.DBSource, &s.DBName, &s.Title)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query window setup: %w", err)
	}
	return &s, nil
}

// History returns all turns for a window ordered by insertion.
func (r *TurnRepo) History(ctx context.Context, index int) ([]TurnRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, window_index, conversation_id, user_query, ai_response, created_at
		 FROM chat_history WHERE window_index = ? ORDER BY id`,
		index,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var turns []TurnRecord
	for rows.Next() {
		var t TurnRecord
		if err := rows.Scan(&t.ID, &t.WindowIndex, &t.ConversationID,
			&t.UserQuery, &t.AIResponse, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return turns, nil
}

// LastTitle returns the last persisted title for a window.
// Returns ErrNotFound when the window has no rows.
func (r *TurnRepo) LastTitle(ctx context.Context, index int) (string, error) {
	var title string
	err := r.db.QueryRowContext(ctx,
		"SELECT title FROM chat_history WHERE window_index = ? ORDER BY id DESC LIMIT 1",
		index,
	).Scan(&title)

	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query title: %w", err)
	}
	return title, nil
}

// DeleteAndRenumber deletes all turns for the given window and shifts every
// higher window index down by one, in a single transaction. The single UPDATE
// moves rows in increasing original-index order, so no duplicate index can
// exist even mid-statement.
func (r *TurnRepo) DeleteAndRenumber(ctx context.Context, index int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM chat_history WHERE window_index = ?", index); err != nil {
		return fmt.Errorf("failed to delete window %d: %w", index, err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE chat_history SET window_index = window_index - 1 WHERE window_index > ?",
		index); err != nil {
		return fmt.Errorf("failed to renumber windows above %d: %w", index, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete-and-renumber: %w", err)
	}
	return nil
}
