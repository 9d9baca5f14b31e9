package main

import (
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"kmchat/internal/backend"
	"kmchat/internal/config"
	"kmchat/internal/http"
	"kmchat/internal/indexer"
	"kmchat/internal/rag"
	"kmchat/internal/session"
	"kmchat/internal/storage"
	"kmchat/internal/tmpstore"
	"kmchat/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Persistence gateway: lazy per-user stores plus the shared audit store
	gateway, err := storage.NewGateway(cfg.UserDBDir, cfg.AuditDBPath)
	if err != nil {
		log.Fatalf("Failed to open persistence gateway: %v", err)
	}
	defer func() {
		_ = gateway.Close()
	}()
	slog.Info("Persistence gateway ready", "user_db_dir", cfg.UserDBDir, "audit_db", cfg.AuditDBPath)

	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}
	slog.Info("Qdrant client ready", "url", cfg.QdrantURL, "vector_size", cfg.QdrantVectorSize)

	selector := backend.NewSelector(cfg)

	chunker, err := indexer.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatalf("Invalid chunking configuration: %v", err)
	}
	pipeline := indexer.NewPipeline(gateway, vectorStore, chunker, tmpstore.New(cfg.TmpDir), cfg.QdrantVectorSize)

	sessions := session.NewManager(gateway)
	engine := rag.NewEngine(selector, vectorStore, gateway, sessions, cfg.TopK, cfg.AnswerLanguage)
	slog.Info("Query engine initialized", "top_k", cfg.TopK, "language", cfg.AnswerLanguage)

	router := http.NewRouter(&http.Deps{
		Sessions:    sessions,
		Resolver:    engine,
		Pipeline:    pipeline,
		Backends:    selector,
		VectorStore: vectorStore,
	})

	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
