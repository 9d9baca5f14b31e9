package backend

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_backends.go -package=mocks kmchat/internal/backend GenerationBackend,EmbeddingBackend

import (
	"context"
	"fmt"

	"kmchat/internal/llm"
)

// Mode selects between the on-prem provider and an external API provider.
type Mode string

const (
	// ModeInternal resolves model options through the fixed allow-lists to
	// the on-prem endpoints.
	ModeInternal Mode = "internal"
	// ModeExternal resolves against the configured external API base and key.
	ModeExternal Mode = "external"
)

// ParseMode validates a mode string coming from session state or the API.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeInternal, ModeExternal:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// GenerationBackend is a stateless text-generation capability handle.
type GenerationBackend interface {
	// ChatWithMessages sends the full message list and returns the
	// assistant's reply.
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// EmbeddingBackend is a stateless text-embedding capability handle.
type EmbeddingBackend interface {
	// EmbedTexts returns one vector per input text, in input order.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}
