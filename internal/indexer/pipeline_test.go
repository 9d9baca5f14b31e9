package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	backendmocks "kmchat/internal/backend/mocks"
	"kmchat/internal/storage"
	"kmchat/internal/tmpstore"
	"kmchat/internal/vectorstore"
	vsmocks "kmchat/internal/vectorstore/mocks"
)

type pipelineFixture struct {
	pipeline *Pipeline
	gateway  *storage.Gateway
	store    *vsmocks.MockVectorStore
	embedder *backendmocks.MockEmbeddingBackend
	tmpDir   string
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	dir := t.TempDir()

	g, err := storage.NewGateway(filepath.Join(dir, "users"), filepath.Join(dir, "audit.db"))
	if err != nil {
		t.Fatalf("NewGateway() error = %v", err)
	}
	t.Cleanup(func() { _ = g.Close() })

	chunker, err := NewChunker(400, 200)
	if err != nil {
		t.Fatalf("NewChunker() error = %v", err)
	}

	ctrl := gomock.NewController(t)
	store := vsmocks.NewMockVectorStore(ctrl)
	embedder := backendmocks.NewMockEmbeddingBackend(ctrl)

	tmpDir := filepath.Join(dir, "tmp")
	return &pipelineFixture{
		pipeline: NewPipeline(g, store, chunker, tmpstore.New(tmpDir), 4),
		gateway:  g,
		store:    store,
		embedder: embedder,
		tmpDir:   tmpDir,
	}
}

func TestPipeline_Index(t *testing.T) {
	fx := newPipelineFixture(t)
	ctx := context.Background()

	uploads := []Upload{
		{OriginalName: "guide.txt", Content: []byte("restart the ingest service after rotating credentials")},
	}

	fx.embedder.EXPECT().
		EmbedTexts(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, texts []string) ([][]float32, error) {
			vecs := make([][]float32, len(texts))
			for i := range texts {
				vecs[i] = []float32{0.1, 0.2, 0.3, 0.4}
			}
			return vecs, nil
		})

	collection := vectorstore.CollectionName("alice", "conv-1")
	fx.store.EXPECT().EnsureCollection(gomock.Any(), collection, 4).Return(nil)

	var committed []vectorstore.Point
	fx.store.EXPECT().
		Upsert(gomock.Any(), collection, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, points []vectorstore.Point) error {
			committed = points
			return nil
		})

	res, err := fx.pipeline.Index(ctx, "alice", "conv-1", uploads, fx.embedder)
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if res.Documents != 1 || res.Spans != 1 {
		t.Errorf("result = %+v, want 1 document, 1 span", res)
	}

	if len(committed) != 1 {
		t.Fatalf("committed points = %d, want 1", len(committed))
	}
	meta := committed[0].Meta
	if meta["doc_name"] != "guide.txt" {
		t.Errorf("doc_name = %v, want guide.txt", meta["doc_name"])
	}
	if meta["conversation_id"] != "conv-1" {
		t.Errorf("conversation_id = %v, want conv-1", meta["conversation_id"])
	}
	if meta["ordinal"] != 0 {
		t.Errorf("ordinal = %v, want 0", meta["ordinal"])
	}

	// The name mapping survives in the uploads table even though the staged
	// copy is gone.
	records, err := fx.gateway.Uploads(ctx, "alice", "conv-1")
	if err != nil {
		t.Fatalf("Uploads() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("upload records = %d, want 1", len(records))
	}
	if records[0].OriginalName != "guide.txt" {
		t.Errorf("OriginalName = %q, want guide.txt", records[0].OriginalName)
	}
	if !strings.HasSuffix(records[0].TempName, ".txt") {
		t.Errorf("TempName = %q, want .txt suffix", records[0].TempName)
	}

	entries, err := os.ReadDir(filepath.Join(fx.tmpDir, "alice", "conv-1"))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("staged files remaining = %d, want 0", len(entries))
	}
}

func TestPipeline_IndexEmptyBatch(t *testing.T) {
	fx := newPipelineFixture(t)

	_, err := fx.pipeline.Index(context.Background(), "alice", "conv-1", nil, fx.embedder)
	if !errors.Is(err, ErrNoSourceDocuments) {
		t.Errorf("Index() error = %v, want ErrNoSourceDocuments", err)
	}
}

func TestPipeline_IndexNoExtractableText(t *testing.T) {
	fx := newPipelineFixture(t)

	uploads := []Upload{
		{OriginalName: "scan.pdf", Content: []byte("%PDF-1.4 binary")},
		{OriginalName: "blank.txt", Content: []byte("   \n  ")},
	}

	_, err := fx.pipeline.Index(context.Background(), "alice", "conv-1", uploads, fx.embedder)
	if !errors.Is(err, ErrNoDocuments) {
		t.Errorf("Index() error = %v, want ErrNoDocuments", err)
	}
}

func TestPipeline_IndexEmbedFailure(t *testing.T) {
	fx := newPipelineFixture(t)

	uploads := []Upload{
		{OriginalName: "doc.txt", Content: []byte("some content")},
	}

	fx.embedder.EXPECT().
		EmbedTexts(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("embedding endpoint unavailable"))

	// No EnsureCollection or Upsert expectations: the batch must abort
	// before touching the collection.
	_, err := fx.pipeline.Index(context.Background(), "alice", "conv-1", uploads, fx.embedder)
	if err == nil {
		t.Fatal("Index() error = nil, want embed failure")
	}
}

func TestPipeline_IndexMultipleDocuments(t *testing.T) {
	fx := newPipelineFixture(t)
	ctx := context.Background()

	uploads := []Upload{
		{OriginalName: "a.txt", Content: []byte(strings.Repeat("x", 1000))},
		{OriginalName: "b.md", Content: []byte("# Title\n\nBody paragraph.")},
	}

	fx.embedder.EXPECT().
		EmbedTexts(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, texts []string) ([][]float32, error) {
			vecs := make([][]float32, len(texts))
			for i := range texts {
				vecs[i] = []float32{1, 2, 3, 4}
			}
			return vecs, nil
		})
	fx.store.EXPECT().EnsureCollection(gomock.Any(), gomock.Any(), 4).Return(nil)
	fx.store.EXPECT().Upsert(gomock.Any(), gomock.Any(), gomock.Len(4)).Return(nil)

	// 1000 runes at size 400 chunk into three spans, plus one span for the
	// short markdown file.
	res, err := fx.pipeline.Index(ctx, "bob", "conv-2", uploads, fx.embedder)
	if err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if res.Documents != 2 {
		t.Errorf("Documents = %d, want 2", res.Documents)
	}
	if res.Spans != 4 {
		t.Errorf("Spans = %d, want 4", res.Spans)
	}
}
