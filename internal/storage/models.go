package storage

import "time"

// WindowSetup holds the per-window scalar fields persisted alongside every
// turn. Conflicting values across turns of one window resolve last-row-wins.
type WindowSetup struct {
	WindowIndex    int
	ConversationID string // rotates on every window reset
	Agent          string
	Mode           string
	ModelID        string
	EmbeddingID    string
	DBSource       string
	DBName         string
	Title          string
}

// TurnRecord is one user query / assistant response pair. Immutable once
// written; ordered by the autoincrement id.
type TurnRecord struct {
	ID             int64
	WindowIndex    int
	ConversationID string
	UserQuery      string
	AIResponse     string
	CreatedAt      time.Time
}

// UploadRecord maps a generated temporary document name to its original
// upload name, scoped to one conversation.
type UploadRecord struct {
	ID             int64
	ConversationID string
	TempName       string
	OriginalName   string
	CreatedAt      time.Time
}
