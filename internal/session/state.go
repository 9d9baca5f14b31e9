package session

import "kmchat/internal/storage"

// Per-window defaults applied at bootstrap and on every new chat.
const (
	DefaultAgent       = "general"
	DefaultMode        = "internal"
	DefaultModelID     = "qwen2"
	DefaultEmbeddingID = "llama3"
	DefaultDBSource    = "local"
	DefaultDBName      = "default"

	// NewConversationTitle is the sentinel shown for a window that has
	// never persisted a turn.
	NewConversationTitle = "(new conversation)"
)

// SessionState is the explicit state of one user's session, threaded through
// every window operation: mutating operations take a state and return the
// updated one. Window indices are dense, so NumWindows always equals the
// highest index plus one; the highest window starts out empty.
type SessionState struct {
	User              string
	ConversationID    string
	NumWindows        int
	ActiveWindowIndex int

	// Per-window setup fields for the active window.
	Agent       string
	Mode        string
	ModelID     string
	EmbeddingID string
	DBSource    string
	DBName      string
	Title       string

	History           []storage.TurnRecord
	EmptyWindowExists bool
}

// applyWindowDefaults resets the per-window fields for a fresh window.
func (s *SessionState) applyWindowDefaults() {
	s.Agent = DefaultAgent
	s.Mode = DefaultMode
	s.ModelID = DefaultModelID
	s.EmbeddingID = DefaultEmbeddingID
	s.DBSource = DefaultDBSource
	s.DBName = DefaultDBName
	s.Title = NewConversationTitle
	s.History = nil
	s.EmptyWindowExists = true
}

// RecordTurn appends a persisted turn to the in-memory history and flips the
// window out of its empty state.
func (s *SessionState) RecordTurn(turn storage.TurnRecord) {
	s.History = append(s.History, turn)
	s.EmptyWindowExists = false
}

// WindowSetup snapshots the active window's scalar setup fields for a
// persistence write.
func (s *SessionState) WindowSetup() *storage.WindowSetup {
	return &storage.WindowSetup{
		WindowIndex:    s.ActiveWindowIndex,
		ConversationID: s.ConversationID,
		Agent:          s.Agent,
		Mode:           s.Mode,
		ModelID:        s.ModelID,
		EmbeddingID:    s.EmbeddingID,
		DBSource:       s.DBSource,
		DBName:         s.DBName,
		Title:          s.Title,
	}
}
