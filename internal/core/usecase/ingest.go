package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/ports"
)

type IngestDocumentUseCase struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

func (uc *IngestDocumentUseCase) Upload(ctx context.Context, req domain.UploadRequest) (*domain.Document, error) {
	if err := domain.ValidateTenantID(req.TenantID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Filename) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("filename is required"))
	}
	if req.Body == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("file body is required"))
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = domain.DefaultCategory
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(req.Filename))
	now := time.Now().UTC()

	counter := &countingReader{r: req.Body}
	if err := uc.storage.Save(ctx, storageKey, counter); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	doc := &domain.Document{
		ID:         id,
		TenantID:   req.TenantID,
		Category:   category,
		Filename:   req.Filename,
		MimeType:   req.MimeType,
		StorageKey: storageKey,
		UploadedBy: req.UploadedBy,
		Size:       counter.n,
		Status:     domain.StatusProcessing,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		// The object has no metadata row pointing at it.
		_ = uc.storage.Delete(context.WithoutCancel(ctx), storageKey)
		return nil, fmt.Errorf("create document metadata: %w", err)
	}

	if err := uc.publish(ctx, doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// RegisterRemote records a document hosted elsewhere. Nothing is copied:
// the processor reads the URL through object storage.
func (uc *IngestDocumentUseCase) RegisterRemote(ctx context.Context, req domain.RemoteDocumentRequest) (*domain.Document, error) {
	if err := domain.ValidateTenantID(req.TenantID); err != nil {
		return nil, err
	}
	u, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "register remote document", fmt.Errorf("%q is not an http(s) URL", req.URL))
	}
	filename := strings.TrimSpace(req.Filename)
	if filename == "" {
		filename = path.Base(u.Path)
	}
	if filename == "" || filename == "/" || filename == "." {
		filename = u.Host
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = domain.DefaultCategory
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:         uuid.NewString(),
		TenantID:   req.TenantID,
		Category:   category,
		Filename:   filename,
		MimeType:   req.MimeType,
		StorageKey: u.String(),
		UploadedBy: req.UploadedBy,
		Status:     domain.StatusProcessing,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document metadata: %w", err)
	}
	if err := uc.publish(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// publish queues doc for processing. When the event cannot be sent the
// document is marked error so it is not left in processing forever; a
// reprocess request queues it again.
func (uc *IngestDocumentUseCase) publish(ctx context.Context, doc *domain.Document) error {
	err := uc.queue.PublishDocumentIngested(ctx, doc.ID)
	if err == nil {
		return nil
	}
	msg := "queue: " + err.Error()
	if statusErr := uc.repo.UpdateStatus(context.WithoutCancel(ctx), doc.ID, domain.StatusError, msg); statusErr != nil {
		return fmt.Errorf("publish ingestion event: %w (mark error: %v)", err, statusErr)
	}
	doc.Status = domain.StatusError
	doc.Error = msg
	return fmt.Errorf("publish ingestion event: %w", err)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == ".." {
		return "document.bin"
	}
	return base
}
