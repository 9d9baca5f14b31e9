package handlers

import (
	"context"
	"io"
	"net/http"

	"kmchat/internal/backend"
	"kmchat/internal/contextutil"
	"kmchat/internal/indexer"
	"kmchat/internal/rag"
)

// Uploads above this total size are rejected before staging.
const maxUploadBytes = 64 << 20

// DocumentIndexer runs the ingestion pipeline for one upload batch.
type DocumentIndexer interface {
	Index(ctx context.Context, user, conversationID string, uploads []indexer.Upload, embedder backend.EmbeddingBackend) (*indexer.Result, error)
}

// DocumentsHandler handles document uploads for the active conversation.
type DocumentsHandler struct {
	pipeline DocumentIndexer
	backends rag.BackendResolver
	store    *SessionStore
}

// NewDocumentsHandler creates a DocumentsHandler.
func NewDocumentsHandler(pipeline DocumentIndexer, backends rag.BackendResolver, store *SessionStore) *DocumentsHandler {
	return &DocumentsHandler{pipeline: pipeline, backends: backends, store: store}
}

// DocumentsResponse summarizes an indexed batch.
type DocumentsResponse struct {
	Documents int `json:"documents"`
	Spans     int `json:"spans"`
}

// ServeHTTP handles multipart document uploads under the "files" field.
func (h *DocumentsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		logger.WarnContext(ctx, "invalid multipart form", "error", err)
		writeError(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}

	var uploads []indexer.Upload
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["files"] {
			f, err := header.Open()
			if err != nil {
				writeError(w, r, http.StatusBadRequest, "failed to read upload "+header.Filename)
				return
			}
			content, err := io.ReadAll(f)
			_ = f.Close()
			if err != nil {
				writeError(w, r, http.StatusBadRequest, "failed to read upload "+header.Filename)
				return
			}
			uploads = append(uploads, indexer.Upload{OriginalName: header.Filename, Content: content})
		}
	}

	mode, err := backend.ParseMode(state.Mode)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	embedder, err := h.backends.ResolveEmbedding(mode, state.EmbeddingID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	res, err := h.pipeline.Index(ctx, state.User, state.ConversationID, uploads, embedder)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, DocumentsResponse{Documents: res.Documents, Spans: res.Spans})
}
