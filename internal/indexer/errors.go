package indexer

import "errors"

var (
	// ErrNoSourceDocuments indicates an indexing request with no files.
	ErrNoSourceDocuments = errors.New("no source documents provided")

	// ErrNoDocuments indicates that no staged file yielded usable text.
	ErrNoDocuments = errors.New("no documents with extractable text")

	// ErrNoSpans indicates that extraction succeeded but chunking produced
	// nothing to embed.
	ErrNoSpans = errors.New("no spans produced from documents")
)
