package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/ports"
)

type DocumentUseCase struct {
	repo     ports.DocumentRepository
	chunks   ports.ChunkRepository
	storage  ports.ObjectStorage
	queue    ports.MessageQueue
	searches ports.SearchCacheInvalidator
}

func NewDocumentUseCase(
	repo ports.DocumentRepository,
	chunks ports.ChunkRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *DocumentUseCase {
	return &DocumentUseCase{
		repo:    repo,
		chunks:  chunks,
		storage: storage,
		queue:   queue,
	}
}

// WithSearchCache drops cached search results of a tenant whenever one of
// its documents is deleted or requeued.
func (uc *DocumentUseCase) WithSearchCache(searches ports.SearchCacheInvalidator) *DocumentUseCase {
	uc.searches = searches
	return uc
}

// GetByID returns the document only to the tenant that owns it. A document
// of another tenant is reported as not found.
func (uc *DocumentUseCase) GetByID(ctx context.Context, tenantID, id string) (*domain.Document, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(id) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get document", errors.New("document id is required"))
	}
	doc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.TenantID != tenantID {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
	}
	return doc, nil
}

func (uc *DocumentUseCase) List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	if err := domain.ValidateTenantID(filter.TenantID); err != nil {
		return nil, err
	}
	return uc.repo.List(ctx, filter)
}

// Delete removes the chunks first so a half-finished delete never leaves
// searchable chunks without their document.
func (uc *DocumentUseCase) Delete(ctx context.Context, tenantID, id string) error {
	doc, err := uc.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if _, err := uc.chunks.DeleteByDocument(ctx, doc.ID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	invalidateSearches(uc.searches, doc.TenantID)
	if err := uc.repo.Delete(ctx, doc.ID); err != nil {
		return fmt.Errorf("delete document metadata: %w", err)
	}
	if doc.StorageKey != "" {
		if err := uc.storage.Delete(ctx, doc.StorageKey); err != nil {
			return fmt.Errorf("delete stored file: %w", err)
		}
	}
	return nil
}

// Reprocess puts the document back to processing and queues it again. The
// processor replaces every chunk of the previous run.
func (uc *DocumentUseCase) Reprocess(ctx context.Context, tenantID, id string) (*domain.Document, error) {
	doc, err := uc.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := uc.repo.UpdateStatus(ctx, doc.ID, domain.StatusProcessing, ""); err != nil {
		return nil, fmt.Errorf("set status=processing: %w", err)
	}
	// Processing documents drop out of search.
	invalidateSearches(uc.searches, doc.TenantID)
	doc.Status = domain.StatusProcessing
	doc.Error = ""
	if err := uc.queue.PublishDocumentIngested(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("publish ingestion event: %w", err)
	}
	return doc, nil
}

func invalidateSearches(searches ports.SearchCacheInvalidator, tenantID string) {
	if searches != nil {
		searches.InvalidateTenant(tenantID)
	}
}
