package ports

import (
	"context"
	"io"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	Complete(ctx context.Context, id string, extractedText string, meta domain.ProcessingMetadata) error
	Delete(ctx context.Context, id string) error
}

// ChunkRepository stores chunk text with its embedding.
type ChunkRepository interface {
	InsertBatch(ctx context.Context, chunks []domain.Chunk) error
	DeleteByDocument(ctx context.Context, documentID string) (int64, error)
	CountByDocument(ctx context.Context, documentID string) (int, error)
	// ListSearchable returns chunks of completed documents owned by any of
	// the given tenants. An empty category matches every document.
	ListSearchable(ctx context.Context, tenantIDs []string, category string) ([]domain.ChunkCandidate, error)
}

type TenantSettingsRepository interface {
	Get(ctx context.Context, tenantID string) (*domain.TenantSettings, error)
	Upsert(ctx context.Context, settings *domain.TenantSettings) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// Chunker splits text into semantically usable chunks.
type Chunker interface {
	Split(text string) []string
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Model() domain.ModelRef
}

// Generator produces a completion for a rendered prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts domain.GenerateOptions) (domain.Completion, error)
	Model() domain.ModelRef
}

// ProviderResolver binds embedding and generation clients to a tenant's
// provider settings.
type ProviderResolver interface {
	Embedder(ctx context.Context, tenantID string) (Embedder, error)
	Generator(ctx context.Context, tenantID string) (Generator, error)
}

type PromptCatalog interface {
	Template(analysisType domain.AnalysisType) (domain.PromptTemplate, error)
	Types() []domain.AnalysisType
}

// SearchCacheInvalidator drops cached results of a tenant whose corpus
// changed.
type SearchCacheInvalidator interface {
	InvalidateTenant(tenantID string)
}

// SearchResultCache memoizes ranked results of a normalized query.
type SearchResultCache interface {
	SearchCacheInvalidator
	Lookup(query domain.SearchQuery) ([]domain.SearchResult, bool)
	Store(query domain.SearchQuery, results []domain.SearchResult)
}
