package usecase

import (
	"fmt"
	"strings"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
)

const (
	contextInstruction = "Use the following excerpts from the clinic knowledge base as reference. " +
		"Cite the source number when you rely on an excerpt and say so when they do not cover the question."
	contextDelimiter = "\n\n---\n\n"
)

// FormatContext renders ranked results as a prompt-ready block. Zero results
// render as an empty string.
func FormatContext(results []domain.SearchResult) string {
	if len(results) == 0 {
		return ""
	}

	blocks := make([]string, 0, len(results))
	for i, r := range results {
		blocks = append(blocks, fmt.Sprintf("%s\n%s", sourceLabel(i+1, r), strings.TrimSpace(r.Text)))
	}

	var b strings.Builder
	b.WriteString(contextInstruction)
	b.WriteString("\n\n")
	b.WriteString(strings.Join(blocks, contextDelimiter))
	return b.String()
}

func sourceLabel(n int, r domain.SearchResult) string {
	name := r.Filename
	if name == "" {
		name = r.DocumentID
	}
	label := fmt.Sprintf("[Source %d: %s", n, name)
	if r.Category != "" {
		label += " · " + r.Category
	}
	if r.Global {
		label += " · shared knowledge base"
	}
	return fmt.Sprintf("%s · relevance %.2f]", label, r.Score)
}
