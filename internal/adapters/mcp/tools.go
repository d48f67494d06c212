package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
)

type SearchOutput struct {
	Results []domain.SearchResult `json:"results"`
	Count   int                   `json:"count"`
}

type DocumentSummary struct {
	ID         string                `json:"id"`
	Filename   string                `json:"filename"`
	Category   string                `json:"category"`
	Status     domain.DocumentStatus `json:"status"`
	ChunkCount int                   `json:"chunk_count"`
}

type DocumentsOutput struct {
	Documents []DocumentSummary `json:"documents"`
	Count     int               `json:"count"`
}

func (s *Server) registerTools() {
	s.server.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Semantic search over a clinic's documents and the shared knowledge base"),
		mcp.WithString("query", mcp.Required(), mcp.MinLength(1), mcp.Description("what to look for")),
		mcp.WithString("tenant_id", mcp.Description("clinic whose documents are searched")),
		mcp.WithString("category", mcp.Description("restrict to one document category")),
		mcp.WithNumber("limit", mcp.Min(1), mcp.Max(50), mcp.Description("maximum results")),
		mcp.WithNumber("threshold", mcp.Min(-1), mcp.Max(1), mcp.Description("minimum cosine similarity")),
	), s.handleSearch)

	s.server.AddTool(mcp.NewTool("build_context",
		mcp.WithDescription("Build a prompt-ready context block with numbered sources for a question"),
		mcp.WithString("query", mcp.Required(), mcp.MinLength(1), mcp.Description("the question to ground")),
		mcp.WithString("tenant_id", mcp.Description("clinic whose documents are searched")),
		mcp.WithString("category", mcp.Description("restrict to one document category")),
		mcp.WithNumber("limit", mcp.Min(1), mcp.Max(50), mcp.Description("maximum sources")),
	), s.handleBuildContext)

	if s.ports.Documents != nil {
		s.server.AddTool(mcp.NewTool("list_documents",
			mcp.WithDescription("List a clinic's documents and their processing status"),
			mcp.WithString("tenant_id", mcp.Description("clinic to list")),
			mcp.WithString("category", mcp.Description("restrict to one document category")),
			mcp.WithString("status", mcp.Enum(string(domain.StatusProcessing), string(domain.StatusCompleted), string(domain.StatusError))),
		), s.handleListDocuments)
	}
}

func (s *Server) searchQuery(req mcp.CallToolRequest) (domain.SearchQuery, error) {
	text, err := req.RequireString("query")
	if err != nil {
		return domain.SearchQuery{}, err
	}
	q := domain.SearchQuery{
		Text:     text,
		TenantID: s.tenant(req),
		Category: req.GetString("category", ""),
		Limit:    req.GetInt("limit", 0),
	}
	if _, ok := req.GetArguments()["threshold"]; ok {
		threshold := req.GetFloat("threshold", 0)
		q.Threshold = &threshold
	}
	return q, nil
}

func (s *Server) tenant(req mcp.CallToolRequest) string {
	if t := strings.TrimSpace(req.GetString("tenant_id", "")); t != "" {
		return t
	}
	return s.ports.DefaultTenant
}

func (s *Server) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := s.searchQuery(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.ports.Search.Search(ctx, q)
	if err != nil {
		return toolError("search failed", err)
	}
	if results == nil {
		results = []domain.SearchResult{}
	}
	return mcp.NewToolResultStructured(SearchOutput{Results: results, Count: len(results)}, formatResults(results)), nil
}

func (s *Server) handleBuildContext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := s.searchQuery(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rc, err := s.ports.Search.BuildContext(ctx, q)
	if err != nil {
		return toolError("build context failed", err)
	}
	if rc.Sources == nil {
		rc.Sources = []domain.SearchResult{}
	}
	return mcp.NewToolResultStructured(rc, rc.Text), nil
}

func (s *Server) handleListDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.ports.Documents.List(ctx, domain.DocumentFilter{
		TenantID: s.tenant(req),
		Category: req.GetString("category", ""),
		Status:   domain.DocumentStatus(req.GetString("status", "")),
	})
	if err != nil {
		return toolError("list documents failed", err)
	}
	out := DocumentsOutput{Documents: make([]DocumentSummary, 0, len(docs)), Count: len(docs)}
	var text strings.Builder
	for _, d := range docs {
		out.Documents = append(out.Documents, DocumentSummary{
			ID:         d.ID,
			Filename:   d.Filename,
			Category:   d.Category,
			Status:     d.Status,
			ChunkCount: d.Metadata.ChunkCount,
		})
		fmt.Fprintf(&text, "%s  %s  [%s] %s\n", d.ID, d.Filename, d.Category, d.Status)
	}
	return mcp.NewToolResultStructured(out, text.String()), nil
}

// toolError reports caller mistakes inside the tool result and everything
// else as a protocol error.
func toolError(prefix string, err error) (*mcp.CallToolResult, error) {
	if domain.IsKind(err, domain.ErrInvalidInput) || domain.IsKind(err, domain.ErrConfiguration) {
		return mcp.NewToolResultErrorFromErr(prefix, err), nil
	}
	return nil, fmt.Errorf("%s: %w", prefix, err)
}

func formatResults(results []domain.SearchResult) string {
	if len(results) == 0 {
		return "No matching documents."
	}
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] %s (%.2f)\n%s\n\n", i+1, r.Filename, r.Score, r.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}
