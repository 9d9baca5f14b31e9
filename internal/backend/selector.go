package backend

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"

	"kmchat/internal/config"
	"kmchat/internal/llm"
)

var (
	// ErrUnknownMode is returned for a mode outside {internal, external}.
	ErrUnknownMode = errors.New("unknown backend mode")
	// ErrUnknownModel is returned when an internal model option is not in
	// the allow-list.
	ErrUnknownModel = errors.New("unknown model option")
	// ErrMissingCredentials is returned when the external mode is selected
	// without a configured API base and key.
	ErrMissingCredentials = errors.New("missing external api credentials")
)

// Internal allow-lists. Option keys are what the UI offers; values are the
// model names the on-prem endpoints serve. Generation and embedding options
// are separate namespaces.
var (
	internalGenerationModels = map[string]string{
		"qwen2":             "qwen2:7b",
		"taiwan-llama3-8b":  "SimonPu/llama-3-taiwan-8b-instruct-dpo",
		"taiwan-llama2-13b": "wangrongsheng/taiwanllm-13b-v2.0-chat",
	}
	internalEmbeddingModels = map[string]string{
		"llama3": "llama3",
		"bge-m3": "bge-m3",
	}
)

// GenerationOptions returns the internal generation option keys, sorted for
// a stable UI list.
func GenerationOptions() []string {
	opts := make([]string, 0, len(internalGenerationModels))
	for k := range internalGenerationModels {
		opts = append(opts, k)
	}
	sort.Strings(opts)
	return opts
}

// EmbeddingOptions returns the internal embedding option keys, sorted.
func EmbeddingOptions() []string {
	opts := make([]string, 0, len(internalEmbeddingModels))
	for k := range internalEmbeddingModels {
		opts = append(opts, k)
	}
	sort.Strings(opts)
	return opts
}

// Selector resolves (mode, id) pairs to callable backends. Resolution is a
// pure function of configuration; resolved handles are cached because they
// are stateless and cheap to share.
type Selector struct {
	cfg     *config.Config
	handles *cache.Cache
}

// NewSelector creates a Selector over the configured endpoints.
func NewSelector(cfg *config.Config) *Selector {
	return &Selector{
		cfg:     cfg,
		handles: cache.New(1*time.Hour, 10*time.Minute),
	}
}

// ResolveGeneration resolves a generation backend for the given mode and
// model option.
func (s *Selector) ResolveGeneration(mode Mode, modelID string) (GenerationBackend, error) {
	key := "gen/" + string(mode) + "/" + modelID
	if h, found := s.handles.Get(key); found {
		return h.(GenerationBackend), nil
	}

	var client *llm.Client
	switch mode {
	case ModeInternal:
		model, ok := internalGenerationModels[modelID]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownModel, modelID)
		}
		client = llm.NewClient(s.cfg.InternalLLMBaseURL, "", model, s.cfg.LLMTimeout)
	case ModeExternal:
		if s.cfg.ExternalAPIBase == "" || s.cfg.ExternalAPIKey == "" {
			return nil, ErrMissingCredentials
		}
		client = llm.NewClient(s.cfg.ExternalAPIBase, s.cfg.ExternalAPIKey, modelID, s.cfg.LLMTimeout)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	s.handles.Set(key, GenerationBackend(client), cache.DefaultExpiration)
	return client, nil
}

// ResolveEmbedding resolves an embedding backend for the given mode and
// embedding option. Same allow-list pattern as generation, separate namespace.
func (s *Selector) ResolveEmbedding(mode Mode, embeddingID string) (EmbeddingBackend, error) {
	key := "emb/" + string(mode) + "/" + embeddingID
	if h, found := s.handles.Get(key); found {
		return h.(EmbeddingBackend), nil
	}

	var client *llm.EmbeddingsClient
	switch mode {
	case ModeInternal:
		model, ok := internalEmbeddingModels[embeddingID]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownModel, embeddingID)
		}
		client = llm.NewEmbeddingsClient(s.cfg.InternalEmbeddingBaseURL, "", model, s.cfg.QdrantVectorSize, s.cfg.LLMTimeout)
	case ModeExternal:
		if s.cfg.ExternalAPIBase == "" || s.cfg.ExternalAPIKey == "" {
			return nil, ErrMissingCredentials
		}
		client = llm.NewEmbeddingsClient(s.cfg.ExternalAPIBase, s.cfg.ExternalAPIKey, embeddingID, s.cfg.QdrantVectorSize, s.cfg.LLMTimeout)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	s.handles.Set(key, EmbeddingBackend(client), cache.DefaultExpiration)
	return client, nil
}
