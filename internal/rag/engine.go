package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"kmchat/internal/backend"
	"kmchat/internal/contextutil"
	"kmchat/internal/llm"
	"kmchat/internal/session"
	"kmchat/internal/storage"
	"kmchat/internal/vectorstore"
)

// Queries shorter than this many runes are used verbatim as the window
// title instead of asking the model for a keyword.
const minTitleQueryRunes = 5

// Engine answers one query turn: title the window on its first turn,
// reformulate against history, retrieve grounding spans from the
// conversation's vector index, generate, and persist the turn.
type Engine struct {
	backends BackendResolver
	store    vectorstore.VectorStore
	turns    TurnWriter
	sessions *session.Manager
	topK     int
	language string
}

// NewEngine creates a query resolver.
func NewEngine(backends BackendResolver, store vectorstore.VectorStore, turns TurnWriter, sessions *session.Manager, topK int, language string) *Engine {
	return &Engine{
		backends: backends,
		store:    store,
		turns:    turns,
		sessions: sessions,
		topK:     topK,
		language: language,
	}
}

// Resolve runs the full query pipeline for the active window and returns
// the updated state with the turn appended.
//
// Title generation and reformulation are best-effort: their failures are
// logged and the raw query is used. Generation and retrieval failures
// propagate. A per-user persistence failure does not discard the answer;
// the result comes back flagged as degraded.
func (e *Engine) Resolve(ctx context.Context, state session.SessionState, query string) (*ResolveResult, error) {
	logger := contextutil.LoggerFromContext(ctx)

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty query")
	}

	mode, err := backend.ParseMode(state.Mode)
	if err != nil {
		return nil, err
	}
	gen, err := e.backends.ResolveGeneration(mode, state.ModelID)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "query started",
		"user", state.User,
		"window_index", state.ActiveWindowIndex,
		"conversation_id", state.ConversationID,
		"history_turns", len(state.History))

	// First turn in the window: derive a title from the query. Never
	// blocks the answer path.
	title := state.Title
	if len(state.History) == 0 {
		title = e.titleFor(ctx, gen, query)
	}

	reformulated := e.reformulate(ctx, gen, state.History, query)

	sources, err := e.retrieve(ctx, mode, state, reformulated)
	if err != nil {
		return nil, err
	}

	answer, err := e.generate(ctx, gen, reformulated, sources)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	// The window may have been deleted while the backends were busy; a
	// deleted window must not receive new rows.
	if !e.sessions.WindowExists(state.User, state.ConversationID) {
		logger.WarnContext(ctx, "window deleted mid-query, discarding answer",
			"user", state.User, "conversation_id", state.ConversationID)
		return nil, ErrWindowDeleted
	}

	next := state
	next.Title = title
	turn := storage.TurnRecord{
		WindowIndex:    next.ActiveWindowIndex,
		ConversationID: next.ConversationID,
		UserQuery:      query,
		AIResponse:     answer,
	}

	degraded := false
	if err := e.turns.SaveTurn(ctx, next.User, &turn, next.WindowSetup()); err != nil {
		logger.ErrorContext(ctx, "failed to persist turn, keeping it in memory only",
			"user", next.User, "window_index", next.ActiveWindowIndex, "error", err)
		degraded = true
	}
	next.RecordTurn(turn)

	logger.InfoContext(ctx, "query completed",
		"user", next.User,
		"window_index", next.ActiveWindowIndex,
		"sources", len(sources),
		"answer_length", len(answer),
		"degraded", degraded)

	return &ResolveResult{
		State:    next,
		Answer:   answer,
		Title:    title,
		Sources:  sources,
		Degraded: degraded,
	}, nil
}

// titleFor derives a short window title from the first query. Very short
// queries are echoed as-is; otherwise the model extracts one keyword.
// Failures fall back to the query itself.
func (e *Engine) titleFor(ctx context.Context, gen backend.GenerationBackend, query string) string {
	if utf8.RuneCountInString(query) < minTitleQueryRunes {
		return query
	}

	messages := []llm.Message{
		{Role: "system", Content: titleInstruction},
		{Role: "user", Content: query},
	}
	title, err := gen.ChatWithMessages(ctx, messages, llm.ChatParams{Temperature: 0})
	if err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "title generation failed, using query",
			"error", err)
		return query
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return query
	}
	return title
}

// reformulate rewrites the query into a history-independent form. With no
// history, or on any failure, the raw query is returned.
func (e *Engine) reformulate(ctx context.Context, gen backend.GenerationBackend, history []storage.TurnRecord, query string) string {
	if len(history) == 0 {
		return query
	}

	messages := []llm.Message{
		{Role: "system", Content: reformulateInstruction},
		{Role: "user", Content: "Conversation history:\n" + formatHistory(history) + "\nLatest question: " + query},
	}
	rewritten, err := gen.ChatWithMessages(ctx, messages, llm.ChatParams{Temperature: 0})
	if err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "reformulation failed, using raw query",
			"error", err)
		return query
	}
	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return query
	}
	return rewritten
}

// retrieve runs the top-k search against the conversation's index. A
// conversation with no index skips retrieval entirely.
func (e *Engine) retrieve(ctx context.Context, mode backend.Mode, state session.SessionState, query string) ([]Source, error) {
	logger := contextutil.LoggerFromContext(ctx)

	collection := vectorstore.CollectionName(state.User, state.ConversationID)
	exists, err := e.store.CollectionExists(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to check vector index: %w", err)
	}
	if !exists {
		logger.InfoContext(ctx, "no vector index for conversation, answering ungrounded",
			"conversation_id", state.ConversationID)
		return nil, nil
	}

	emb, err := e.backends.ResolveEmbedding(mode, state.EmbeddingID)
	if err != nil {
		return nil, err
	}
	vectors, err := emb.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding returned for query")
	}

	results, err := e.store.Search(ctx, collection, vectors[0], e.topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search vector index: %w", err)
	}

	sources := make([]Source, 0, len(results))
	for _, r := range results {
		docName, _ := r.Meta["doc_name"].(string)
		text, _ := r.Meta["text"].(string)
		sources = append(sources, Source{
			DocName: docName,
			Ordinal: ordinalFrom(r.Meta),
			Score:   r.Score,
			Text:    text,
		})
	}

	// Rank strictly by descending score; equal scores keep ingestion order.
	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].Score != sources[j].Score {
			return sources[i].Score > sources[j].Score
		}
		return sources[i].Ordinal < sources[j].Ordinal
	})

	logger.InfoContext(ctx, "retrieval completed", "results", len(sources), "k", e.topK)
	return sources, nil
}

// generate produces the final answer, grounded when sources exist.
func (e *Engine) generate(ctx context.Context, gen backend.GenerationBackend, query string, sources []Source) (string, error) {
	system := answerSystemPrompt(e.language, len(sources) > 0)

	user := query
	if len(sources) > 0 {
		user = query + "\n\n" + formatContext(sources)
	}

	messages := []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
	return gen.ChatWithMessages(ctx, messages, llm.ChatParams{Temperature: 0.7})
}

// ordinalFrom reads the span ordinal out of point payload, which may come
// back as any integer flavor depending on the transport.
func ordinalFrom(meta map[string]any) int {
	switch v := meta["ordinal"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
