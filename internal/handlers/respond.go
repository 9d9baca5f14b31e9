package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"kmchat/internal/backend"
	"kmchat/internal/contextutil"
	"kmchat/internal/indexer"
	"kmchat/internal/llm"
	"kmchat/internal/rag"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		contextutil.LoggerFromContext(r.Context()).ErrorContext(r.Context(),
			"failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, ErrorResponse{Error: message})
}

// writeDomainError maps domain errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	contextutil.LoggerFromContext(r.Context()).ErrorContext(r.Context(),
		"request failed", "error", err)

	switch {
	case errors.Is(err, backend.ErrUnknownMode),
		errors.Is(err, backend.ErrUnknownModel),
		errors.Is(err, backend.ErrMissingCredentials),
		errors.Is(err, indexer.ErrNoSourceDocuments),
		errors.Is(err, indexer.ErrNoDocuments),
		errors.Is(err, indexer.ErrNoSpans):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, rag.ErrWindowDeleted):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, llm.ErrTimeout):
		writeError(w, r, http.StatusGatewayTimeout, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, err.Error())
	}
}

// userFrom extracts the tenant identity from the request. An empty user is
// rejected by the callers.
func userFrom(r *http.Request) string {
	return r.Header.Get("X-User")
}
