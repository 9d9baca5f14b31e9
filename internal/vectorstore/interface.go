package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks kmchat/internal/vectorstore VectorStore

import (
	"context"
	"fmt"
	"strings"
)

// Point represents a vector point with metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// VectorStore defines the interface for per-conversation vector index
// operations. One collection exists per (user, conversation); a collection
// that was never created means the conversation has no index.
type VectorStore interface {
	// EnsureCollection creates the collection if missing and validates its
	// vector size if present.
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error

	// CollectionExists reports whether the collection has been created.
	CollectionExists(ctx context.Context, collection string) (bool, error)

	// Upsert appends points to the collection. Re-upserting the same point
	// id is safe (append-only semantics for retries).
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search performs a top-k similarity search.
	Search(ctx context.Context, collection string, query []float32, k int) ([]SearchResult, error)
}

// CollectionName derives the collection for one user's conversation.
// Conversation ids are uuids, so names cannot collide across users, but the
// user prefix keeps operator-level cleanup greppable.
func CollectionName(user, conversationID string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, user)
	return fmt.Sprintf("conv_%s_%s", sanitized, conversationID)
}
