package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Data layout. UserDBDir holds one sqlite file per user, AuditDBPath is
	// the shared audit store, TmpDir is the conversation-scoped upload area.
	DataDir     string
	UserDBDir   string
	AuditDBPath string
	TmpDir      string

	// Internal (on-prem) backend endpoints, OpenAI-compatible.
	InternalLLMBaseURL       string
	InternalEmbeddingBaseURL string

	// External provider credentials. Both must be set to resolve an
	// external backend.
	ExternalAPIBase string
	ExternalAPIKey  string

	QdrantURL        string
	QdrantVectorSize int

	ChunkSize    int
	ChunkOverlap int
	TopK         int

	AnswerLanguage string
	LLMTimeout     time.Duration

	APIPort   string
	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	_ = godotenv.Load() // Try current directory

	// Walk up to find a project-root .env (where go.mod lives).
	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	dataDir := getEnv("DATA_DIR", "./data")

	cfg := &Config{
		DataDir:     dataDir,
		UserDBDir:   getEnv("USER_DB_DIR", filepath.Join(dataDir, "users")),
		AuditDBPath: getEnv("AUDIT_DB_PATH", filepath.Join(dataDir, "audit", "audit.db")),
		TmpDir:      getEnv("TMP_DIR", filepath.Join(dataDir, "tmp")),

		InternalLLMBaseURL:       getEnv("INTERNAL_LLM_BASE_URL", "http://localhost:11434"),
		InternalEmbeddingBaseURL: getEnv("INTERNAL_EMBEDDING_BASE_URL", "http://localhost:11435"),

		ExternalAPIBase: getEnv("EXTERNAL_API_BASE", ""),
		ExternalAPIKey:  getEnv("EXTERNAL_API_KEY", ""),

		QdrantURL: getEnv("QDRANT_URL", "http://localhost:6333"),

		AnswerLanguage: getEnv("ANSWER_LANGUAGE", "Traditional Chinese"),

		APIPort:   getEnv("API_PORT", "9000"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	// QDRANT_VECTOR_SIZE must match the output size of the embedding model;
	// there is no safe default, and a mismatched collection must be recreated.
	vectorSizeStr := getEnv("QDRANT_VECTOR_SIZE", "")
	if vectorSizeStr == "" {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE is required")
	}
	vectorSize, err := strconv.Atoi(vectorSizeStr)
	if err != nil {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be greater than 0")
	}
	cfg.QdrantVectorSize = vectorSize

	if cfg.ChunkSize, err = getEnvInt("CHUNK_SIZE", 500); err != nil {
		return nil, err
	}
	if cfg.ChunkOverlap, err = getEnvInt("CHUNK_OVERLAP", 200); err != nil {
		return nil, err
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", cfg.ChunkOverlap, cfg.ChunkSize)
	}
	if cfg.TopK, err = getEnvInt("TOP_K", 5); err != nil {
		return nil, err
	}
	if cfg.TopK <= 0 {
		return nil, fmt.Errorf("TOP_K must be greater than 0")
	}

	timeoutSecs, err := getEnvInt("LLM_TIMEOUT_SECONDS", 120)
	if err != nil {
		return nil, err
	}
	if timeoutSecs <= 0 {
		return nil, fmt.Errorf("LLM_TIMEOUT_SECONDS must be greater than 0")
	}
	cfg.LLMTimeout = time.Duration(timeoutSecs) * time.Second

	cfg.LogLevel = parseLogLevel(getEnv("LOG_LEVEL", "info"))

	for _, dir := range []string{cfg.UserDBDir, filepath.Dir(cfg.AuditDBPath), cfg.TmpDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
		}
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value.
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
