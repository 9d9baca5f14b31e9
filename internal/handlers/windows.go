package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"kmchat/internal/session"
)

// WindowHandler exposes window lifecycle operations: session bootstrap, new
// chat, selection, deletion, and titles.
type WindowHandler struct {
	manager *session.Manager
	store   *SessionStore
}

// NewWindowHandler creates a WindowHandler.
func NewWindowHandler(manager *session.Manager, store *SessionStore) *WindowHandler {
	return &WindowHandler{manager: manager, store: store}
}

// StateResponse is the session state view returned by window operations.
type StateResponse struct {
	User              string `json:"user"`
	ConversationID    string `json:"conversation_id"`
	NumWindows        int    `json:"num_windows"`
	ActiveWindowIndex int    `json:"active_window_index"`
	Agent             string `json:"agent"`
	Mode              string `json:"mode"`
	ModelID           string `json:"model_id"`
	EmbeddingID       string `json:"embedding_id"`
	DBSource          string `json:"db_source"`
	DBName            string `json:"db_name"`
	Title             string `json:"title"`
	HistoryTurns      int    `json:"history_turns"`
	EmptyWindow       bool   `json:"empty_window"`
}

// TitleResponse is the response for a window title lookup.
type TitleResponse struct {
	WindowIndex int    `json:"window_index"`
	Title       string `json:"title"`
}

func stateResponse(state session.SessionState) StateResponse {
	return StateResponse{
		User:              state.User,
		ConversationID:    state.ConversationID,
		NumWindows:        state.NumWindows,
		ActiveWindowIndex: state.ActiveWindowIndex,
		Agent:             state.Agent,
		Mode:              state.Mode,
		ModelID:           state.ModelID,
		EmbeddingID:       state.EmbeddingID,
		DBSource:          state.DBSource,
		DBName:            state.DBName,
		Title:             state.Title,
		HistoryTurns:      len(state.History),
		EmptyWindow:       state.EmptyWindowExists,
	}
}

// Bootstrap reconstructs the user's session from the persisted store and
// makes it the current session.
func (h *WindowHandler) Bootstrap(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	if user == "" {
		writeError(w, r, http.StatusBadRequest, "missing X-User header")
		return
	}

	state, err := h.manager.Bootstrap(r.Context(), user)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.store.Put(state)
	writeJSON(w, r, http.StatusOK, stateResponse(state))
}

// NewChat opens a fresh conversation window.
func (h *WindowHandler) NewChat(w http.ResponseWriter, r *http.Request) {
	state, ok := h.currentState(w, r)
	if !ok {
		return
	}

	next := h.manager.NewChat(r.Context(), state)
	h.store.Put(next)
	writeJSON(w, r, http.StatusOK, stateResponse(next))
}

// Select activates a window and reloads its setup and history.
func (h *WindowHandler) Select(w http.ResponseWriter, r *http.Request) {
	state, ok := h.currentState(w, r)
	if !ok {
		return
	}
	index, ok := h.windowIndex(w, r)
	if !ok {
		return
	}

	next, err := h.manager.SelectWindow(r.Context(), state, index)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	h.store.Put(next)
	writeJSON(w, r, http.StatusOK, stateResponse(next))
}

// Delete removes a window and renumbers the ones above it.
func (h *WindowHandler) Delete(w http.ResponseWriter, r *http.Request) {
	state, ok := h.currentState(w, r)
	if !ok {
		return
	}
	index, ok := h.windowIndex(w, r)
	if !ok {
		return
	}

	next, err := h.manager.DeleteWindow(r.Context(), state, index)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	h.store.Put(next)
	writeJSON(w, r, http.StatusOK, stateResponse(next))
}

// Title returns the persisted title for a window.
func (h *WindowHandler) Title(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	if user == "" {
		writeError(w, r, http.StatusBadRequest, "missing X-User header")
		return
	}
	index, ok := h.windowIndex(w, r)
	if !ok {
		return
	}

	title, err := h.manager.TitleFor(r.Context(), user, index)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, TitleResponse{WindowIndex: index, Title: title})
}

func (h *WindowHandler) currentState(w http.ResponseWriter, r *http.Request) (session.SessionState, bool) {
	user := userFrom(r)
	if user == "" {
		writeError(w, r, http.StatusBadRequest, "missing X-User header")
		return session.SessionState{}, false
	}
	state, found := h.store.Get(user)
	if !found {
		writeError(w, r, http.StatusConflict, "no active session, bootstrap first")
		return session.SessionState{}, false
	}
	return state, true
}

func (h *WindowHandler) windowIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid window index")
		return 0, false
	}
	return index, true
}
