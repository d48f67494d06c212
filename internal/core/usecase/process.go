package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/ports"
)

const (
	defaultEmbedBatchSize = 5
	defaultSnapshotRunes  = 10000
)

type ProcessSettings struct {
	// EmbedBatchSize bounds both the concurrent embedding calls and the
	// number of chunks written per insert.
	EmbedBatchSize int
	SnapshotRunes  int
}

type ProcessDocumentUseCase struct {
	repo      ports.DocumentRepository
	chunks    ports.ChunkRepository
	extractor ports.TextExtractor
	chunker   ports.Chunker
	providers ports.ProviderResolver
	settings  ProcessSettings
	searches  ports.SearchCacheInvalidator
	now       func() time.Time
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	chunks ports.ChunkRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	providers ports.ProviderResolver,
	settings ProcessSettings,
) *ProcessDocumentUseCase {
	if settings.EmbedBatchSize <= 0 {
		settings.EmbedBatchSize = defaultEmbedBatchSize
	}
	if settings.SnapshotRunes <= 0 {
		settings.SnapshotRunes = defaultSnapshotRunes
	}
	return &ProcessDocumentUseCase{
		repo:      repo,
		chunks:    chunks,
		extractor: extractor,
		chunker:   chunker,
		providers: providers,
		settings:  settings,
		now:       time.Now,
	}
}

// ProcessByID runs extraction, chunking and embedding for one document.
// Chunks written before a failure stay in place; the document is marked
// error and the failure is returned.
func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	doc, err := uc.loadDocument(ctx, documentID)
	if err != nil {
		return err
	}

	if err := uc.markStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	text, meta, err := uc.processPipeline(ctx, doc)
	// The previous chunks are gone whether or not the run succeeded.
	defer invalidateSearches(uc.searches, doc.TenantID)
	if err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.Complete(ctx, documentID, truncateRunes(text, uc.settings.SnapshotRunes), meta); err != nil {
		return fmt.Errorf("set status=completed: %w", err)
	}
	return nil
}

// WithSearchCache drops cached search results of a tenant each time one of
// its documents is processed.
func (uc *ProcessDocumentUseCase) WithSearchCache(searches ports.SearchCacheInvalidator) *ProcessDocumentUseCase {
	uc.searches = searches
	return uc
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, doc *domain.Document) (string, domain.ProcessingMetadata, error) {
	started := uc.now().UTC()
	meta := domain.ProcessingMetadata{StartedAt: &started}

	if _, err := uc.chunks.DeleteByDocument(ctx, doc.ID); err != nil {
		return "", meta, fmt.Errorf("delete previous chunks: %w", err)
	}

	text, err := uc.extractText(ctx, doc)
	if err != nil {
		return "", meta, err
	}
	meta.ExtractedChars = utf8.RuneCountInString(text)

	pieces, err := uc.chunk(text)
	if err != nil {
		return "", meta, err
	}

	embedder, err := uc.providers.Embedder(ctx, doc.TenantID)
	if err != nil {
		return "", meta, fmt.Errorf("resolve embedder: %w", err)
	}
	model := embedder.Model()
	meta.EmbeddingProvider = string(model.Provider)
	meta.EmbeddingModel = model.Name

	dimension, err := uc.embedAndStore(ctx, doc, pieces, embedder)
	if err != nil {
		return "", meta, err
	}

	totalChars := 0
	for _, p := range pieces {
		totalChars += utf8.RuneCountInString(p)
	}
	completed := uc.now().UTC()
	meta.ChunkCount = len(pieces)
	meta.AverageChunkSize = totalChars / len(pieces)
	meta.EmbeddingDimension = dimension
	meta.CompletedAt = &completed
	meta.ProcessingTimeMs = completed.Sub(started).Milliseconds()
	return text, meta, nil
}

func (uc *ProcessDocumentUseCase) loadDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	return doc, nil
}

func (uc *ProcessDocumentUseCase) extractText(ctx context.Context, doc *domain.Document) (string, error) {
	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
	}
	return text, nil
}

func (uc *ProcessDocumentUseCase) chunk(text string) ([]string, error) {
	chunks := uc.chunker.Split(text)
	if len(chunks) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero chunks"))
	}
	return chunks, nil
}

// embedAndStore embeds pieces batch by batch, one provider call per piece,
// and writes each batch as soon as it is complete.
func (uc *ProcessDocumentUseCase) embedAndStore(ctx context.Context, doc *domain.Document, pieces []string, embedder ports.Embedder) (int, error) {
	dimension := 0
	for start := 0; start < len(pieces); start += uc.settings.EmbedBatchSize {
		end := min(start+uc.settings.EmbedBatchSize, len(pieces))

		vectors := make([][]float32, end-start)
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(uc.settings.EmbedBatchSize)
		for i := start; i < end; i++ {
			g.Go(func() error {
				out, err := embedder.Embed(gctx, []string{pieces[i]})
				if err != nil {
					return fmt.Errorf("embed chunk %d: %w", i, err)
				}
				if len(out) != 1 || len(out[0]) == 0 {
					return domain.WrapError(domain.ErrTemporary, "embed chunks", fmt.Errorf("chunk %d: provider returned %d vectors", i, len(out)))
				}
				vectors[i-start] = out[0]
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return 0, err
		}

		now := uc.now().UTC()
		batch := make([]domain.Chunk, 0, len(vectors))
		for j, vec := range vectors {
			if dimension == 0 {
				dimension = len(vec)
			}
			if len(vec) != dimension {
				return 0, domain.WrapError(domain.ErrInvalidInput, "embed chunks",
					fmt.Errorf("vector dimension changed from %d to %d", dimension, len(vec)))
			}
			batch = append(batch, domain.Chunk{
				ID:         uuid.NewString(),
				DocumentID: doc.ID,
				TenantID:   doc.TenantID,
				Index:      start + j,
				Text:       pieces[start+j],
				Embedding:  vec,
				CreatedAt:  now,
			})
		}
		if err := uc.chunks.InsertBatch(ctx, batch); err != nil {
			return 0, fmt.Errorf("insert chunk batch at %d: %w", start, err)
		}
	}
	return dimension, nil
}

func (uc *ProcessDocumentUseCase) markStatus(ctx context.Context, documentID string, status domain.DocumentStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, documentID, status, errMessage)
}

func (uc *ProcessDocumentUseCase) markFailed(ctx context.Context, documentID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	// A cancelled or timed out run must still leave the error recorded.
	return uc.markStatus(context.WithoutCancel(ctx), documentID, domain.StatusError, processErr.Error())
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
