package indexer

import "fmt"

// Chunker splits document text into fixed-size overlapping spans.
//
// Span i covers the rune window [i*size, (i+1)*size), extended backwards by
// overlap runes for every span after the first. Windows advance by size, so
// the span count is ceil(len/size) and every rune of the document belongs to
// at least one span. The output is deterministic for a given input.
type Chunker struct {
	size    int // Runes per base window
	overlap int // Runes carried over from the previous window
}

// NewChunker validates the sizing parameters. Overlap must be strictly
// smaller than size or every span would swallow its predecessor whole.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must be non-negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Chunk splits a document into spans. Empty text yields no spans; a document
// shorter than one window yields exactly one.
func (c *Chunker) Chunk(doc Document) []Span {
	runes := []rune(doc.Text)
	if len(runes) == 0 {
		return nil
	}

	var spans []Span
	for start := 0; start < len(runes); start += c.size {
		lo := start
		if start > 0 {
			lo = start - c.overlap
		}
		hi := start + c.size
		if hi > len(runes) {
			hi = len(runes)
		}
		spans = append(spans, Span{
			Ordinal: len(spans),
			Text:    string(runes[lo:hi]),
			Source:  doc.Name,
		})
	}
	return spans
}
