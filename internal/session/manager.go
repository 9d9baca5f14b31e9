package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"kmchat/internal/contextutil"
	"kmchat/internal/storage"
)

// Manager owns window lifecycle for all users: bootstrap, creation,
// selection, deletion, and the live-conversation registry the query path
// uses to refuse work for windows deleted mid-flight.
//
// Operations on one session are expected to run sequentially; different
// users' sessions may run concurrently.
type Manager struct {
	gateway *storage.Gateway

	// registry tracks live conversation ids keyed by user + "/" + id.
	// Entries expire with session inactivity.
	registry *cache.Cache
}

// Registrations expire after this long without activity. Window operations
// and every WindowExists check reset the clock, so only abandoned
// conversations age out.
const (
	registryTTL   = 24 * time.Hour
	registrySweep = 1 * time.Hour
)

// NewManager creates a window manager over the persistence gateway.
func NewManager(gateway *storage.Gateway) *Manager {
	return newManager(gateway, registryTTL, registrySweep)
}

// newManager exists so tests can shrink the registry TTL.
func newManager(gateway *storage.Gateway, ttl, sweep time.Duration) *Manager {
	return &Manager{
		gateway:  gateway,
		registry: cache.New(ttl, sweep),
	}
}

// Bootstrap reconstructs a user's session from the persisted store. One
// fresh empty window is always reserved on top of the persisted ones, and
// it becomes the active window. Never fails on an empty store.
func (m *Manager) Bootstrap(ctx context.Context, user string) (SessionState, error) {
	indexes, err := m.gateway.WindowIndexes(ctx, user)
	if err != nil {
		return SessionState{}, fmt.Errorf("failed to load windows for %s: %w", user, err)
	}

	state := SessionState{
		User:              user,
		ConversationID:    uuid.New().String(),
		NumWindows:        len(indexes) + 1,
		ActiveWindowIndex: len(indexes),
	}
	state.applyWindowDefaults()
	m.register(state.User, state.ConversationID)

	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "session bootstrapped",
		"user", user, "num_windows", state.NumWindows)
	return state, nil
}

// NewChat opens a fresh conversation. A still-empty active window is reused
// in place; otherwise a new window is appended at the end. Either way the
// conversation id rotates and the per-window fields reset to defaults.
func (m *Manager) NewChat(ctx context.Context, state SessionState) SessionState {
	next := state
	if !state.EmptyWindowExists {
		next.ActiveWindowIndex = state.NumWindows
		next.NumWindows = state.NumWindows + 1
	}
	next.ConversationID = uuid.New().String()
	next.applyWindowDefaults()
	m.register(next.User, next.ConversationID)

	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "new chat window",
		"user", next.User, "window_index", next.ActiveWindowIndex, "reused", state.EmptyWindowExists)
	return next
}

// SelectWindow activates a window and reloads both its scalar setup fields
// and its full history from the per-user store. Setup fields resolve
// last-write-wins when turns disagree. Selecting the reserved empty window
// yields fresh defaults.
func (m *Manager) SelectWindow(ctx context.Context, state SessionState, index int) (SessionState, error) {
	if index < 0 || index >= state.NumWindows {
		return state, fmt.Errorf("window index %d out of range [0, %d)", index, state.NumWindows)
	}

	next := state
	next.ActiveWindowIndex = index

	setup, err := m.gateway.WindowSetup(ctx, state.User, index)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		next.ConversationID = uuid.New().String()
		next.applyWindowDefaults()
	case err != nil:
		return state, fmt.Errorf("failed to load window %d: %w", index, err)
	default:
		history, err := m.gateway.History(ctx, state.User, index)
		if err != nil {
			return state, fmt.Errorf("failed to load history for window %d: %w", index, err)
		}
		next.ConversationID = setup.ConversationID
		next.Agent = setup.Agent
		next.Mode = setup.Mode
		next.ModelID = setup.ModelID
		next.EmbeddingID = setup.EmbeddingID
		next.DBSource = setup.DBSource
		next.DBName = setup.DBName
		next.Title = setup.Title
		next.History = history
		next.EmptyWindowExists = len(history) == 0
	}

	m.register(next.User, next.ConversationID)
	return next, nil
}

// DeleteWindow removes a window's persisted turns and renumbers the windows
// above it so indices stay dense. Deleting the active window re-activates
// the last remaining window; deleting a lower window shifts the active
// index down by one.
func (m *Manager) DeleteWindow(ctx context.Context, state SessionState, index int) (SessionState, error) {
	if index < 0 || index >= state.NumWindows {
		return state, fmt.Errorf("window index %d out of range [0, %d)", index, state.NumWindows)
	}

	// Find the dying conversation id so its registration can be dropped;
	// the reserved empty window has no persisted setup.
	deletedConvID := ""
	if index == state.ActiveWindowIndex {
		deletedConvID = state.ConversationID
	} else if setup, err := m.gateway.WindowSetup(ctx, state.User, index); err == nil {
		deletedConvID = setup.ConversationID
	}

	if err := m.gateway.DeleteAndRenumber(ctx, state.User, index); err != nil {
		return state, fmt.Errorf("failed to delete window %d: %w", index, err)
	}
	if deletedConvID != "" {
		m.registry.Delete(registryKey(state.User, deletedConvID))
	}

	next := state
	next.NumWindows = state.NumWindows - 1

	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "window deleted",
		"user", state.User, "window_index", index, "num_windows", next.NumWindows)

	if next.NumWindows < 1 {
		// The only (empty) window was deleted; start over from a fresh one.
		next.NumWindows = 1
		next.ActiveWindowIndex = 0
		next.ConversationID = uuid.New().String()
		next.applyWindowDefaults()
		m.register(next.User, next.ConversationID)
		return next, nil
	}

	switch {
	case index == state.ActiveWindowIndex:
		return m.SelectWindow(ctx, next, next.NumWindows-1)
	case index < state.ActiveWindowIndex:
		next.ActiveWindowIndex = state.ActiveWindowIndex - 1
	}
	return next, nil
}

// TitleFor returns the last-persisted title for a window, or the
// new-conversation sentinel when the window has never persisted one.
func (m *Manager) TitleFor(ctx context.Context, user string, index int) (string, error) {
	title, err := m.gateway.LastTitle(ctx, user, index)
	if errors.Is(err, storage.ErrNotFound) {
		return NewConversationTitle, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load title for window %d: %w", index, err)
	}
	if title == "" {
		return NewConversationTitle, nil
	}
	return title, nil
}

// WindowExists reports whether a conversation is still live. The query
// resolver checks this before persisting an answer so work started for a
// since-deleted window is discarded. A hit re-registers the conversation,
// so a window that keeps answering queries never expires out from under
// its user.
func (m *Manager) WindowExists(user, conversationID string) bool {
	key := registryKey(user, conversationID)
	if _, found := m.registry.Get(key); !found {
		return false
	}
	m.registry.SetDefault(key, struct{}{})
	return true
}

func (m *Manager) register(user, conversationID string) {
	m.registry.SetDefault(registryKey(user, conversationID), struct{}{})
}

func registryKey(user, conversationID string) string {
	return user + "/" + conversationID
}
