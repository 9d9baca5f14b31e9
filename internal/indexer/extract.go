package indexer

import (
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Extractor turns raw file bytes into plain text suitable for chunking.
// Markdown is flattened through a goldmark AST walk so that formatting
// syntax does not leak into embeddings; plain text passes through as-is.
type Extractor struct {
	parser goldmark.Markdown
}

// NewExtractor creates an extractor with table support enabled for markdown.
func NewExtractor() *Extractor {
	return &Extractor{
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
	}
}

// Supported reports whether the file extension has a text extraction path.
func (e *Extractor) Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown", ".txt":
		return true
	default:
		return false
	}
}

// Extract returns the plain text of a file, trimmed. Unsupported extensions
// return empty text; callers drop such documents.
func (e *Extractor) Extract(name string, content []byte) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown":
		return strings.TrimSpace(e.markdownText(content))
	case ".txt":
		return strings.TrimSpace(string(content))
	default:
		return ""
	}
}

// markdownText flattens a markdown document into the text of its block
// nodes, one paragraph per line.
func (e *Extractor) markdownText(content []byte) string {
	reader := text.NewReader(content)
	doc := e.parser.Parser().Parse(reader)

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading, *ast.Paragraph:
			line := nodeText(n, content)
			if line != "" {
				b.WriteString(line)
				b.WriteString("\n")
			}
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock:
			for i := 0; i < node.Lines().Len(); i++ {
				seg := node.Lines().At(i)
				b.Write(seg.Value(content))
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			for i := 0; i < node.Lines().Len(); i++ {
				seg := node.Lines().At(i)
				b.Write(seg.Value(content))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// nodeText collects the raw text content beneath a node.
func nodeText(n ast.Node, content []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := child.(*ast.Text); ok {
			b.Write(t.Segment.Value(content))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteString(" ")
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
