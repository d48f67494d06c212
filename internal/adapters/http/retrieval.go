package httpadapter

import (
	"net/http"
	"sort"
	"time"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
)

type searchRequest struct {
	Query     string   `json:"query"`
	TenantID  string   `json:"tenant_id"`
	Category  string   `json:"category"`
	Limit     int      `json:"limit"`
	Threshold *float64 `json:"threshold"`
}

func (rt *Router) decodeSearch(r *http.Request) (domain.SearchQuery, error) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		return domain.SearchQuery{}, err
	}
	tenant, err := tenantFrom(r, req.TenantID)
	if err != nil {
		return domain.SearchQuery{}, err
	}
	return domain.SearchQuery{
		Text:      req.Query,
		TenantID:  tenant,
		Category:  req.Category,
		Limit:     req.Limit,
		Threshold: req.Threshold,
	}, nil
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	query, err := rt.decodeSearch(r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	start := time.Now()
	results, err := rt.svc.Search.Search(r.Context(), query)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.metrics.RecordSearch(serviceName, "search", len(results), time.Since(start))
	if results == nil {
		results = []domain.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "count": len(results)})
}

func (rt *Router) buildContext(w http.ResponseWriter, r *http.Request) {
	query, err := rt.decodeSearch(r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	start := time.Now()
	rc, err := rt.svc.Search.BuildContext(r.Context(), query)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.metrics.RecordSearch(serviceName, "context", len(rc.Sources), time.Since(start))
	if rc.Sources == nil {
		rc.Sources = []domain.SearchResult{}
	}
	writeJSON(w, http.StatusOK, rc)
}

type analysisRequest struct {
	TenantID  string            `json:"tenant_id"`
	Type      string            `json:"type"`
	Variables map[string]string `json:"variables"`
	Query     string            `json:"query"`
	Category  string            `json:"category"`
}

func (rt *Router) runAnalysis(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := decodeJSON(r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	tenant, err := tenantFrom(r, req.TenantID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	result, err := rt.svc.Analysis.Run(r.Context(), domain.AnalysisRequest{
		TenantID:  tenant,
		Type:      domain.AnalysisType(req.Type),
		Variables: req.Variables,
		Query:     req.Query,
		Category:  req.Category,
	})
	rt.metrics.RecordAnalysis(serviceName, req.Type, err)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	c := result.Completion
	rt.metrics.RecordTokenUsage(serviceName, "analyses", domain.ModelRef{Provider: c.Provider, Name: c.Model}.String(), c.PromptTokens, c.CompletionTokens)
	writeJSON(w, http.StatusOK, result)
}

type tenantSettingsRequest struct {
	ChatProvider      string            `json:"chat_provider"`
	ChatModel         string            `json:"chat_model"`
	EmbeddingProvider string            `json:"embedding_provider"`
	EmbeddingModel    string            `json:"embedding_model"`
	APIKeys           map[string]string `json:"api_keys"`
}

// tenantSettingsResponse never carries key material, only which providers
// have a key stored.
type tenantSettingsResponse struct {
	*domain.TenantSettings
	ConfiguredKeys []domain.Provider `json:"configured_api_keys"`
}

func newTenantSettingsResponse(s *domain.TenantSettings) tenantSettingsResponse {
	keys := make([]domain.Provider, 0, len(s.APIKeys))
	for p := range s.APIKeys {
		if s.APIKey(p) != "" {
			keys = append(keys, p)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return tenantSettingsResponse{TenantSettings: s, ConfiguredKeys: keys}
}

func (rt *Router) getTenantSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := rt.svc.Settings.GetSettings(r.Context(), r.PathValue("tenant_id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTenantSettingsResponse(settings))
}

func (rt *Router) updateTenantSettings(w http.ResponseWriter, r *http.Request) {
	var req tenantSettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		rt.writeError(w, r, err)
		return
	}
	tenant := r.PathValue("tenant_id")
	in := &domain.TenantSettings{
		TenantID:          tenant,
		ChatProvider:      domain.Provider(req.ChatProvider),
		ChatModel:         req.ChatModel,
		EmbeddingProvider: domain.Provider(req.EmbeddingProvider),
		EmbeddingModel:    req.EmbeddingModel,
	}
	if len(req.APIKeys) > 0 {
		in.APIKeys = make(map[domain.Provider]string, len(req.APIKeys))
		for raw, key := range req.APIKeys {
			p, ok := domain.ParseProvider(raw)
			if !ok {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown provider in api_keys: " + raw})
				return
			}
			in.APIKeys[p] = key
		}
	}
	if err := rt.svc.Settings.UpdateSettings(r.Context(), in); err != nil {
		rt.writeError(w, r, err)
		return
	}
	settings, err := rt.svc.Settings.GetSettings(r.Context(), tenant)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTenantSettingsResponse(settings))
}
