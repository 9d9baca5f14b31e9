package indexer

// Upload is a source document handed to the pipeline by the API layer.
type Upload struct {
	OriginalName string // Name as provided by the uploader
	Content      []byte // Raw file bytes
}

// Document is the extracted plain text of one staged file.
type Document struct {
	Name string // Original upload name
	Text string
}

// Span is one retrievable slice of a document.
type Span struct {
	Ordinal int    // Position within the document (starts at 0)
	Text    string
	Source  string // Original upload name
}
