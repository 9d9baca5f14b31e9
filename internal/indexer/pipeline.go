package indexer

import (
	"context"
	"crypto/rand"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"kmchat/internal/backend"
	"kmchat/internal/contextutil"
	"kmchat/internal/storage"
	"kmchat/internal/tmpstore"
	"kmchat/internal/vectorstore"
)

// Pipeline ingests uploaded documents for one conversation: stage to the
// temp store, record the name mapping, extract text, chunk, embed, and
// commit the spans to the conversation's vector collection.
//
// A batch commits as a whole. Any stage failure aborts the request, purges
// the staged files, and leaves the collection untouched; already-recorded
// upload rows are kept so a retry re-stages under fresh temp names.
type Pipeline struct {
	gateway    *storage.Gateway
	store      vectorstore.VectorStore
	chunker    *Chunker
	extractor  *Extractor
	tmp        *tmpstore.Store
	vectorSize int
}

// NewPipeline creates an indexing pipeline.
func NewPipeline(gateway *storage.Gateway, store vectorstore.VectorStore, chunker *Chunker, tmp *tmpstore.Store, vectorSize int) *Pipeline {
	return &Pipeline{
		gateway:    gateway,
		store:      store,
		chunker:    chunker,
		extractor:  NewExtractor(),
		tmp:        tmp,
		vectorSize: vectorSize,
	}
}

// Result summarizes a committed batch.
type Result struct {
	Documents int
	Spans     int
}

// Index runs the full pipeline for one upload batch.
func (p *Pipeline) Index(ctx context.Context, user, conversationID string, uploads []Upload, embedder backend.EmbeddingBackend) (*Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	nameMap, err := p.ingest(ctx, user, conversationID, uploads)
	if err != nil {
		return nil, err
	}

	res, err := p.process(ctx, user, conversationID, nameMap, embedder)
	if err != nil {
		if purgeErr := p.tmp.Purge(user, conversationID); purgeErr != nil {
			logger.WarnContext(ctx, "failed to purge temp area after abort",
				"conversation_id", conversationID, "error", purgeErr)
		}
		return nil, err
	}

	logger.InfoContext(ctx, "indexed document batch",
		"user", user,
		"conversation_id", conversationID,
		"documents", res.Documents,
		"spans", res.Spans)
	return res, nil
}

// process runs extraction through commit over the staged batch.
func (p *Pipeline) process(ctx context.Context, user, conversationID string, nameMap map[string]string, embedder backend.EmbeddingBackend) (*Result, error) {
	docs, err := p.extract(ctx, user, conversationID, nameMap)
	if err != nil {
		return nil, err
	}

	var spans []Span
	for _, doc := range docs {
		spans = append(spans, p.chunker.Chunk(doc)...)
	}
	if len(spans) == 0 {
		return nil, ErrNoSpans
	}

	if err := p.commit(ctx, user, conversationID, spans, embedder); err != nil {
		return nil, err
	}
	return &Result{Documents: len(docs), Spans: len(spans)}, nil
}

// ingest stages uploads into the conversation's temp area under generated
// names and records the temp-to-original name mapping.
func (p *Pipeline) ingest(ctx context.Context, user, conversationID string, uploads []Upload) (map[string]string, error) {
	if len(uploads) == 0 {
		return nil, ErrNoSourceDocuments
	}

	nameMap := make(map[string]string, len(uploads))
	for _, up := range uploads {
		tempName := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String() + filepath.Ext(up.OriginalName)
		if _, err := p.tmp.Write(user, conversationID, tempName, up.Content); err != nil {
			return nil, fmt.Errorf("failed to stage %s: %w", up.OriginalName, err)
		}
		nameMap[tempName] = up.OriginalName
	}

	if err := p.gateway.SaveUploads(ctx, user, conversationID, nameMap); err != nil {
		return nil, fmt.Errorf("failed to record uploads: %w", err)
	}
	return nameMap, nil
}

// extract reads every staged file in the conversation's temp area, pulls
// out its text, and removes the staged copy. Files with no extractable
// text are dropped.
func (p *Pipeline) extract(ctx context.Context, user, conversationID string, nameMap map[string]string) ([]Document, error) {
	logger := contextutil.LoggerFromContext(ctx)

	tempNames, err := p.tmp.List(user, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list temp area: %w", err)
	}

	var docs []Document
	for _, tempName := range tempNames {
		content, err := p.tmp.Read(user, conversationID, tempName)
		if err != nil {
			return nil, fmt.Errorf("failed to read staged file %s: %w", tempName, err)
		}
		if err := p.tmp.Remove(user, conversationID, tempName); err != nil {
			logger.WarnContext(ctx, "failed to remove staged file", "name", tempName, "error", err)
		}

		originalName, ok := nameMap[tempName]
		if !ok {
			originalName = tempName
		}
		text := p.extractor.Extract(originalName, content)
		if text == "" {
			logger.WarnContext(ctx, "no extractable text", "name", originalName)
			continue
		}
		docs = append(docs, Document{Name: originalName, Text: text})
	}
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	return docs, nil
}

// commit embeds all spans and upserts them into the conversation collection.
func (p *Pipeline) commit(ctx context.Context, user, conversationID string, spans []Span, embedder backend.EmbeddingBackend) error {
	texts := make([]string, len(spans))
	for i, s := range spans {
		texts[i] = s.Text
	}

	vectors, err := embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed spans: %w", err)
	}
	if len(vectors) != len(spans) {
		return fmt.Errorf("embedding count mismatch: %d vectors for %d spans", len(vectors), len(spans))
	}

	collection := vectorstore.CollectionName(user, conversationID)
	if err := p.store.EnsureCollection(ctx, collection, p.vectorSize); err != nil {
		return fmt.Errorf("failed to ensure collection: %w", err)
	}

	points := make([]vectorstore.Point, len(spans))
	for i, s := range spans {
		points[i] = vectorstore.Point{
			ID:  uuid.New().String(),
			Vec: vectors[i],
			Meta: map[string]any{
				"conversation_id": conversationID,
				"doc_name":        s.Source,
				"ordinal":         s.Ordinal,
				"text":            s.Text,
			},
		}
	}
	if err := p.store.Upsert(ctx, collection, points); err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}
