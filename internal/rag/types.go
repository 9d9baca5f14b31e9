package rag

import (
	"context"
	"errors"

	"kmchat/internal/backend"
	"kmchat/internal/session"
	"kmchat/internal/storage"
)

// ErrWindowDeleted is returned when the target window was deleted while the
// query was in flight. The answer is discarded rather than persisted into a
// window that no longer exists.
var ErrWindowDeleted = errors.New("window deleted during query")

// TurnWriter persists resolved turns to the per-user store. The storage
// gateway is the production implementation.
type TurnWriter interface {
	SaveTurn(ctx context.Context, user string, turn *storage.TurnRecord, setup *storage.WindowSetup) error
}

// BackendResolver resolves (mode, id) pairs to callable backends.
type BackendResolver interface {
	ResolveGeneration(mode backend.Mode, modelID string) (backend.GenerationBackend, error)
	ResolveEmbedding(mode backend.Mode, embeddingID string) (backend.EmbeddingBackend, error)
}

// Source is one retrieved span used to ground an answer, in retrieval-rank
// order.
type Source struct {
	DocName string
	Ordinal int
	Score   float32
	Text    string
}

// ResolveResult is the outcome of one query turn.
type ResolveResult struct {
	// State is the session state with the new turn appended.
	State session.SessionState

	Answer  string
	Title   string
	Sources []Source

	// Degraded is set when the per-user persistence write failed: the turn
	// lives only in the in-memory history and will not survive a reload.
	Degraded bool
}
