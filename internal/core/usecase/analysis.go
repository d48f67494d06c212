package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/ports"
)

// RAGContextVariable is filled with the assembled retrieval context before
// a template is rendered. Callers cannot override it.
const RAGContextVariable = "rag_context"

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

type AnalysisUseCase struct {
	catalog   ports.PromptCatalog
	searcher  ports.SemanticSearcher
	providers ports.ProviderResolver
	logger    *slog.Logger
	contextK  int
}

func NewAnalysisUseCase(
	catalog ports.PromptCatalog,
	searcher ports.SemanticSearcher,
	providers ports.ProviderResolver,
	contextK int,
	logger *slog.Logger,
) *AnalysisUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisUseCase{
		catalog:   catalog,
		searcher:  searcher,
		providers: providers,
		logger:    logger,
		contextK:  contextK,
	}
}

func (uc *AnalysisUseCase) Run(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisResult, error) {
	if err := domain.ValidateTenantID(req.TenantID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(req.Type)) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "run analysis", errors.New("analysis type is required"))
	}
	tmpl, err := uc.catalog.Template(req.Type)
	if err != nil {
		return nil, err
	}

	vars := make(map[string]string, len(req.Variables)+1)
	for k, v := range req.Variables {
		vars[k] = v
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		query = strings.TrimSpace(RenderTemplate(tmpl.Query, vars))
	}
	category := req.Category
	if category == "" {
		category = tmpl.Category
	}

	var sources []domain.SearchResult
	vars[RAGContextVariable] = ""
	if query != "" {
		rc, err := uc.searcher.BuildContext(ctx, domain.SearchQuery{
			Text:     query,
			TenantID: req.TenantID,
			Category: category,
			Limit:    uc.contextK,
		})
		switch {
		case err == nil:
			vars[RAGContextVariable] = rc.Text
			sources = rc.Sources
		case domain.IsKind(err, domain.ErrConfiguration):
			return nil, err
		default:
			uc.logger.WarnContext(ctx, "analysis continues without retrieval context",
				"tenant_id", req.TenantID,
				"analysis_type", req.Type,
				"error", err,
			)
		}
	}
	if sources == nil {
		sources = []domain.SearchResult{}
	}

	generator, err := uc.providers.Generator(ctx, req.TenantID)
	if err != nil {
		return nil, fmt.Errorf("resolve generator: %w", err)
	}
	completion, err := generator.Generate(ctx, RenderTemplate(tmpl.Body, vars), domain.GenerateOptions{
		System:      RenderTemplate(tmpl.System, vars),
		MaxTokens:   tmpl.MaxTokens,
		Temperature: tmpl.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generate analysis: %w", err)
	}

	return &domain.AnalysisResult{
		ID:         uuid.NewString(),
		TenantID:   req.TenantID,
		Type:       req.Type,
		Completion: completion,
		Sources:    sources,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// RenderTemplate substitutes {{name}} placeholders. Unknown names render as
// empty strings.
func RenderTemplate(tmpl string, vars map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := placeholderPattern.FindStringSubmatch(m)[1]
		return vars[name]
	})
}
