package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"kmchat/internal/contextutil"
	"kmchat/internal/rag"
	"kmchat/internal/session"
)

// QueryResolver answers one query turn against the active window.
type QueryResolver interface {
	Resolve(ctx context.Context, state session.SessionState, query string) (*rag.ResolveResult, error)
}

// QueryHandler handles query requests for the active window.
type QueryHandler struct {
	resolver QueryResolver
	store    *SessionStore
	markdown goldmark.Markdown
}

// NewQueryHandler creates a QueryHandler.
func NewQueryHandler(resolver QueryResolver, store *SessionStore) *QueryHandler {
	return &QueryHandler{
		resolver: resolver,
		store:    store,
		markdown: goldmark.New(goldmark.WithExtensions(extension.Table)),
	}
}

// QueryRequest represents the query request payload.
type QueryRequest struct {
	Query string `json:"query"`
}

// SourceResponse is one grounding span in retrieval-rank order.
type SourceResponse struct {
	DocName string  `json:"doc_name"`
	Ordinal int     `json:"ordinal"`
	Score   float32 `json:"score"`
}

// QueryResponse represents the query response payload. Degraded marks a
// turn that was answered but could not be persisted.
type QueryResponse struct {
	Answer     string           `json:"answer"`
	AnswerHTML string           `json:"answer_html"`
	Title      string           `json:"title"`
	Sources    []SourceResponse `json:"sources"`
	Degraded   bool             `json:"degraded,omitempty"`
	State      StateResponse    `json:"state"`
}

// ServeHTTP handles query requests.
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	user := userFrom(r)
	if user == "" {
		writeError(w, r, http.StatusBadRequest, "missing X-User header")
		return
	}
	state, found := h.store.Get(user)
	if !found {
		writeError(w, r, http.StatusConflict, "no active session, bootstrap first")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, r, http.StatusBadRequest, "query must not be empty")
		return
	}

	res, err := h.resolver.Resolve(ctx, state, req.Query)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.store.Put(res.State)

	sources := make([]SourceResponse, 0, len(res.Sources))
	for _, s := range res.Sources {
		sources = append(sources, SourceResponse{DocName: s.DocName, Ordinal: s.Ordinal, Score: s.Score})
	}

	writeJSON(w, r, http.StatusOK, QueryResponse{
		Answer:     res.Answer,
		AnswerHTML: h.renderHTML(ctx, res.Answer),
		Title:      res.Title,
		Sources:    sources,
		Degraded:   res.Degraded,
		State:      stateResponse(res.State),
	})
}

// renderHTML renders the answer markdown to HTML for the UI. Rendering
// failures fall back to the raw text.
func (h *QueryHandler) renderHTML(ctx context.Context, answer string) string {
	var buf bytes.Buffer
	if err := h.markdown.Convert([]byte(answer), &buf); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to render answer", "error", err)
		return answer
	}
	return buf.String()
}
