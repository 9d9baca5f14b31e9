package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"kmchat/internal/handlers"
	"kmchat/internal/rag"
	"kmchat/internal/session"
	"kmchat/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Sessions    *session.Manager
	Resolver    handlers.QueryResolver
	Pipeline    handlers.DocumentIndexer
	Backends    rag.BackendResolver
	VectorStore vectorstore.VectorStore
}

// NewRouter creates the HTTP router over one shared session store.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)
	r.Use(LoggerMiddleware)

	store := handlers.NewSessionStore()
	windows := handlers.NewWindowHandler(deps.Sessions, store)
	query := handlers.NewQueryHandler(deps.Resolver, store)
	documents := handlers.NewDocumentsHandler(deps.Pipeline, deps.Backends, store)
	health := handlers.NewHealthHandler(deps.VectorStore)

	r.Method(http.MethodGet, "/healthz", health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/models", handlers.Models)
		r.Post("/session", windows.Bootstrap)
		r.Post("/windows", windows.NewChat)
		r.Post("/windows/{index}/select", windows.Select)
		r.Delete("/windows/{index}", windows.Delete)
		r.Get("/windows/{index}/title", windows.Title)
		r.Method(http.MethodPost, "/query", query)
		r.Method(http.MethodPost, "/documents", documents)
	})

	return r
}
