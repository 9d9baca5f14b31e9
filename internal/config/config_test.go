package config

import (
	"path/filepath"
	"testing"
	"time"
)

// setRequiredEnv sets the minimal environment for Load to succeed,
// pointing all data paths at a temp dir.
func setRequiredEnv(t *testing.T) string {
	t.Helper()
	dataDir := t.TempDir()
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("USER_DB_DIR", filepath.Join(dataDir, "users"))
	t.Setenv("AUDIT_DB_PATH", filepath.Join(dataDir, "audit", "audit.db"))
	t.Setenv("TMP_DIR", filepath.Join(dataDir, "tmp"))
	t.Setenv("QDRANT_VECTOR_SIZE", "1024")
	return dataDir
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.QdrantVectorSize != 1024 {
		t.Errorf("QdrantVectorSize = %d, want 1024", cfg.QdrantVectorSize)
	}
	if cfg.ChunkSize != 500 {
		t.Errorf("ChunkSize = %d, want 500", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap != 200 {
		t.Errorf("ChunkOverlap = %d, want 200", cfg.ChunkOverlap)
	}
	if cfg.TopK != 5 {
		t.Errorf("TopK = %d, want 5", cfg.TopK)
	}
	if cfg.LLMTimeout != 120*time.Second {
		t.Errorf("LLMTimeout = %v, want 120s", cfg.LLMTimeout)
	}
	if cfg.AnswerLanguage != "Traditional Chinese" {
		t.Errorf("AnswerLanguage = %q", cfg.AnswerLanguage)
	}
	if cfg.APIPort != "9000" {
		t.Errorf("APIPort = %q, want 9000", cfg.APIPort)
	}
}

func TestLoad_MissingVectorSize(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("QDRANT_VECTOR_SIZE", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error for missing QDRANT_VECTOR_SIZE")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non-integer vector size", "QDRANT_VECTOR_SIZE", "big"},
		{"negative vector size", "QDRANT_VECTOR_SIZE", "-1"},
		{"non-integer chunk size", "CHUNK_SIZE", "many"},
		{"zero top k", "TOP_K", "0"},
		{"zero timeout", "LLM_TIMEOUT_SECONDS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load() expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_OverlapMustBeSmallerThanChunkSize(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CHUNK_SIZE", "200")
	t.Setenv("CHUNK_OVERLAP", "200")

	if _, err := Load(); err == nil {
		t.Fatal("Load() expected error when overlap == chunk size")
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CHUNK_SIZE", "400")
	t.Setenv("CHUNK_OVERLAP", "100")
	t.Setenv("TOP_K", "7")
	t.Setenv("ANSWER_LANGUAGE", "English")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ChunkSize != 400 || cfg.ChunkOverlap != 100 || cfg.TopK != 7 {
		t.Errorf("overrides not applied: size=%d overlap=%d k=%d", cfg.ChunkSize, cfg.ChunkOverlap, cfg.TopK)
	}
	if cfg.AnswerLanguage != "English" {
		t.Errorf("AnswerLanguage = %q, want English", cfg.AnswerLanguage)
	}
}
