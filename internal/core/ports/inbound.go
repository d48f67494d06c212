package ports

import (
	"context"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, req domain.UploadRequest) (*domain.Document, error)
	RegisterRemote(ctx context.Context, req domain.RemoteDocumentRequest) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous document processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// DocumentManager is the inbound read/maintenance model for documents.
type DocumentManager interface {
	GetByID(ctx context.Context, tenantID, id string) (*domain.Document, error)
	List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error)
	Delete(ctx context.Context, tenantID, id string) error
	Reprocess(ctx context.Context, tenantID, id string) (*domain.Document, error)
}

type SemanticSearcher interface {
	Search(ctx context.Context, query domain.SearchQuery) ([]domain.SearchResult, error)
	BuildContext(ctx context.Context, query domain.SearchQuery) (*domain.RetrievalContext, error)
}

type AnalysisService interface {
	Run(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisResult, error)
}

type TenantSettingsService interface {
	GetSettings(ctx context.Context, tenantID string) (*domain.TenantSettings, error)
	UpdateSettings(ctx context.Context, settings *domain.TenantSettings) error
}
