package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/ports"
)

type SearchSettings struct {
	DefaultLimit   int
	MaxLimit       int
	Threshold      float64
	GlobalTenantID string
	// GlobalWeight multiplies scores of global tenant chunks before the
	// threshold applies. Zero means 1.
	GlobalWeight float64
	Logger       *slog.Logger
}

type SemanticSearchUseCase struct {
	chunks    ports.ChunkRepository
	providers ports.ProviderResolver
	cache     ports.SearchResultCache
	settings  SearchSettings
}

func NewSemanticSearchUseCase(
	chunks ports.ChunkRepository,
	providers ports.ProviderResolver,
	cache ports.SearchResultCache,
	settings SearchSettings,
) *SemanticSearchUseCase {
	if settings.DefaultLimit <= 0 {
		settings.DefaultLimit = 5
	}
	if settings.MaxLimit <= 0 {
		settings.MaxLimit = 50
	}
	if settings.GlobalTenantID == "" {
		settings.GlobalTenantID = domain.GlobalTenantID
	}
	if settings.GlobalWeight <= 0 {
		settings.GlobalWeight = 1
	}
	if settings.Logger == nil {
		settings.Logger = slog.Default()
	}
	return &SemanticSearchUseCase{
		chunks:    chunks,
		providers: providers,
		cache:     cache,
		settings:  settings,
	}
}

func (uc *SemanticSearchUseCase) Search(ctx context.Context, query domain.SearchQuery) ([]domain.SearchResult, error) {
	query, err := uc.normalize(query)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if cached, ok := uc.cache.Lookup(query); ok {
			return cached, nil
		}
	}

	tenants := []string{query.TenantID}
	if query.TenantID != uc.settings.GlobalTenantID {
		tenants = append(tenants, uc.settings.GlobalTenantID)
	}
	candidates, err := uc.chunks.ListSearchable(ctx, tenants, query.Category)
	if err != nil {
		return nil, fmt.Errorf("list searchable chunks: %w", err)
	}
	if len(candidates) == 0 {
		return []domain.SearchResult{}, nil
	}

	embedder, err := uc.providers.Embedder(ctx, query.TenantID)
	if err != nil {
		return nil, fmt.Errorf("resolve embedder: %w", err)
	}
	queryVector, err := embedder.EmbedQuery(ctx, query.Text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(queryVector) == 0 {
		return nil, domain.WrapError(domain.ErrTemporary, "embed query", errors.New("provider returned an empty vector"))
	}

	results, skipped := rankCandidates(queryVector, candidates, rankParams{
		threshold:    *query.Threshold,
		limit:        query.Limit,
		globalTenant: uc.settings.GlobalTenantID,
		globalWeight: uc.settings.GlobalWeight,
	})
	if skipped > 0 {
		uc.settings.Logger.WarnContext(ctx, "skipped chunks with mismatched embedding dimension",
			"tenant_id", query.TenantID,
			"skipped", skipped,
			"query_dimension", len(queryVector),
			"embedding_model", embedder.Model().String(),
		)
	}

	if uc.cache != nil {
		uc.cache.Store(query, results)
	}
	return results, nil
}

func (uc *SemanticSearchUseCase) BuildContext(ctx context.Context, query domain.SearchQuery) (*domain.RetrievalContext, error) {
	results, err := uc.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return &domain.RetrievalContext{
		Text:    FormatContext(results),
		Sources: results,
	}, nil
}

func (uc *SemanticSearchUseCase) normalize(query domain.SearchQuery) (domain.SearchQuery, error) {
	query.Text = strings.TrimSpace(query.Text)
	query.TenantID = strings.TrimSpace(query.TenantID)
	query.Category = strings.TrimSpace(query.Category)
	if query.Text == "" {
		return query, domain.WrapError(domain.ErrInvalidInput, "search", errors.New("query text is required"))
	}
	if query.TenantID == "" {
		return query, domain.WrapError(domain.ErrInvalidInput, "search", errors.New("tenant id is required"))
	}
	if query.Limit <= 0 {
		query.Limit = uc.settings.DefaultLimit
	}
	if query.Limit > uc.settings.MaxLimit {
		query.Limit = uc.settings.MaxLimit
	}
	threshold := uc.settings.Threshold
	if query.Threshold != nil {
		threshold = *query.Threshold
	}
	if threshold < -1 || threshold > 1 {
		return query, domain.WrapError(domain.ErrInvalidInput, "search", fmt.Errorf("threshold %.3f outside [-1, 1]", threshold))
	}
	query.Threshold = &threshold
	return query, nil
}
