// Package extractor turns stored documents into plain text, choosing a
// parser from the document's MIME type or file extension.
package extractor

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/ports"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/infrastructure/extractor/htmltext"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/infrastructure/extractor/pdf"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/infrastructure/extractor/plaintext"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/infrastructure/extractor/spreadsheet"
)

const DefaultMaxBytes int64 = 50 << 20

const (
	mimePDF  = "application/pdf"
	mimeHTML = "text/html"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeText = "text/plain"
)

// Parser extracts text from a document's raw bytes. contentType carries the
// full declared type including parameters such as charset.
type Parser interface {
	Parse(ctx context.Context, data []byte, contentType string) (string, error)
}

var extensionTypes = map[string]string{
	".txt":      mimeText,
	".text":     mimeText,
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".csv":      "text/csv",
	".tsv":      "text/tab-separated-values",
	".json":     "application/json",
	".log":      mimeText,
	".pdf":      mimePDF,
	".html":     mimeHTML,
	".htm":      mimeHTML,
	".xhtml":    "application/xhtml+xml",
	".xlsx":     mimeXLSX,
	".xlsm":     mimeXLSX,
}

type Router struct {
	storage  ports.ObjectStorage
	parsers  map[string]Parser
	text     Parser
	maxBytes int64
}

func NewRouter(storage ports.ObjectStorage, maxBytes int64) *Router {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	html := htmltext.NewParser()
	return &Router{
		storage: storage,
		parsers: map[string]Parser{
			mimePDF:                 pdf.NewParser(),
			mimeHTML:                html,
			"application/xhtml+xml": html,
			mimeXLSX:                spreadsheet.NewParser(),
		},
		text:     plaintext.NewParser(),
		maxBytes: maxBytes,
	}
}

func (r *Router) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	contentType, parser, err := r.route(doc)
	if err != nil {
		return "", err
	}

	reader, err := r.storage.Open(ctx, doc.StorageKey)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(io.LimitReader(reader, r.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}
	if int64(len(data)) > r.maxBytes {
		return "", domain.WrapError(domain.ErrInvalidInput, "read source document",
			fmt.Errorf("%s exceeds %d bytes", doc.Filename, r.maxBytes))
	}

	text, err := parser.Parse(ctx, data, contentType)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", fmt.Errorf("no text found in %s", doc.Filename))
	}
	return text, nil
}

// route resolves the parser for a document. A missing or generic declared
// type defers to the filename extension.
func (r *Router) route(doc *domain.Document) (string, Parser, error) {
	contentType := strings.TrimSpace(doc.MimeType)
	mediaType := ""
	if contentType != "" {
		parsed, _, err := mime.ParseMediaType(contentType)
		if err == nil {
			mediaType = strings.ToLower(parsed)
		}
	}
	if mediaType == "" || mediaType == "application/octet-stream" {
		ext := strings.ToLower(filepath.Ext(doc.Filename))
		if byExt, ok := extensionTypes[ext]; ok {
			mediaType, contentType = byExt, byExt
		}
	}

	if p, ok := r.parsers[mediaType]; ok {
		return contentType, p, nil
	}
	if isTextual(mediaType) {
		return contentType, r.text, nil
	}
	return "", nil, domain.WrapError(domain.ErrUnsupportedMedia, "route extractor",
		fmt.Errorf("cannot extract text from %q (%s)", doc.Filename, firstNonEmpty(doc.MimeType, "unknown type")))
}

func isTextual(mediaType string) bool {
	if strings.HasPrefix(mediaType, "text/") {
		return true
	}
	switch mediaType {
	case "application/json", "application/xml", "application/x-ndjson", "application/yaml", "application/x-yaml":
		return true
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
