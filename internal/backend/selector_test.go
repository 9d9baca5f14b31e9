package backend

import (
	"errors"
	"sort"
	"testing"
	"time"

	"kmchat/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		InternalLLMBaseURL:       "http://localhost:11434",
		InternalEmbeddingBaseURL: "http://localhost:11435",
		QdrantVectorSize:         1024,
		LLMTimeout:               time.Second,
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"internal", ModeInternal, false},
		{"external", ModeExternal, false},
		{"", "", true},
		{"cloud", "", true},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownMode) {
				t.Errorf("ParseMode(%q) error = %v, want ErrUnknownMode", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseMode(%q) = %v, %v, want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestSelector_ResolveGeneration(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Config
		mode    Mode
		modelID string
		wantErr error
	}{
		{
			name:    "internal allow-listed model",
			cfg:     testConfig(),
			mode:    ModeInternal,
			modelID: "qwen2",
		},
		{
			name:    "internal unknown model",
			cfg:     testConfig(),
			mode:    ModeInternal,
			modelID: "gpt-5",
			wantErr: ErrUnknownModel,
		},
		{
			name:    "external without credentials",
			cfg:     testConfig(),
			mode:    ModeExternal,
			modelID: "gpt-4o",
			wantErr: ErrMissingCredentials,
		},
		{
			name: "external with credentials",
			cfg: func() *config.Config {
				c := testConfig()
				c.ExternalAPIBase = "https://api.example.com"
				c.ExternalAPIKey = "secret"
				return c
			}(),
			mode:    ModeExternal,
			modelID: "gpt-4o",
		},
		{
			name:    "unknown mode",
			cfg:     testConfig(),
			mode:    Mode("cloud"),
			modelID: "qwen2",
			wantErr: ErrUnknownMode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSelector(tt.cfg)
			got, err := s.ResolveGeneration(tt.mode, tt.modelID)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ResolveGeneration() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveGeneration() error = %v", err)
			}
			if got == nil {
				t.Fatal("ResolveGeneration() returned nil backend")
			}
		})
	}
}

func TestSelector_ResolveEmbedding(t *testing.T) {
	s := NewSelector(testConfig())

	if _, err := s.ResolveEmbedding(ModeInternal, "llama3"); err != nil {
		t.Errorf("ResolveEmbedding(llama3) error = %v", err)
	}
	if _, err := s.ResolveEmbedding(ModeInternal, "qwen2"); !errors.Is(err, ErrUnknownModel) {
		t.Errorf("generation option must not resolve in embedding namespace, got %v", err)
	}
	if _, err := s.ResolveEmbedding(ModeExternal, "text-embedding-3-small"); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("ResolveEmbedding(external) error = %v, want ErrMissingCredentials", err)
	}
}

func TestSelector_CachesResolvedHandles(t *testing.T) {
	s := NewSelector(testConfig())

	first, err := s.ResolveGeneration(ModeInternal, "qwen2")
	if err != nil {
		t.Fatalf("ResolveGeneration() error = %v", err)
	}
	second, err := s.ResolveGeneration(ModeInternal, "qwen2")
	if err != nil {
		t.Fatalf("ResolveGeneration() error = %v", err)
	}
	if first != second {
		t.Error("expected the same cached handle on repeat resolution")
	}
}

func TestOptionListsCoverAllowLists(t *testing.T) {
	gen := GenerationOptions()
	if !sort.StringsAreSorted(gen) {
		t.Errorf("GenerationOptions() = %v, want sorted", gen)
	}
	if len(gen) != len(internalGenerationModels) {
		t.Errorf("GenerationOptions() has %d keys, allow-list has %d", len(gen), len(internalGenerationModels))
	}
	for _, k := range gen {
		if _, ok := internalGenerationModels[k]; !ok {
			t.Errorf("option %q not in the generation allow-list", k)
		}
	}

	emb := EmbeddingOptions()
	if !sort.StringsAreSorted(emb) {
		t.Errorf("EmbeddingOptions() = %v, want sorted", emb)
	}
	if len(emb) != len(internalEmbeddingModels) {
		t.Errorf("EmbeddingOptions() has %d keys, allow-list has %d", len(emb), len(internalEmbeddingModels))
	}
}
