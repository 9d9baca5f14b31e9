package handlers

import (
	"net/http"

	"kmchat/internal/backend"
)

// ModelOptionsResponse lists the choices the UI can offer when configuring a
// window. External models are free-form, so only the internal allow-lists
// are enumerated.
type ModelOptionsResponse struct {
	Modes              []string `json:"modes"`
	InternalGeneration []string `json:"internal_generation"`
	InternalEmbedding  []string `json:"internal_embedding"`
}

// Models serves the backend mode and model options.
func Models(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, ModelOptionsResponse{
		Modes:              []string{string(backend.ModeInternal), string(backend.ModeExternal)},
		InternalGeneration: backend.GenerationOptions(),
		InternalEmbedding:  backend.EmbeddingOptions(),
	})
}
