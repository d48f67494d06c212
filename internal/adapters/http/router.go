package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/config"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/ports"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/observability/metrics"
)

const (
	serviceName  = "api"
	tenantHeader = "X-Tenant-Id"
	// multipartMemory is kept in memory before the upload spills to disk.
	multipartMemory = 8 << 20
)

// Services are the inbound ports the router dispatches to.
type Services struct {
	Ingest    ports.DocumentIngestor
	Documents ports.DocumentManager
	Search    ports.SemanticSearcher
	Analysis  ports.AnalysisService
	Settings  ports.TenantSettingsService
}

type Router struct {
	cfg       config.Config
	svc       Services
	metrics   *metrics.HTTPServerMetrics
	validator *requestValidator
	logger    *slog.Logger
}

func NewRouter(cfg config.Config, svc Services, m *metrics.HTTPServerMetrics, logger *slog.Logger) (*Router, error) {
	validator, err := newRequestValidator()
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = metrics.NewHTTPServerMetrics(serviceName)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{cfg: cfg, svc: svc, metrics: m, validator: validator, logger: logger}, nil
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /v1/documents", rt.uploadDocument)
	api.HandleFunc("GET /v1/documents", rt.listDocuments)
	api.HandleFunc("POST /v1/remote-documents", rt.registerRemoteDocument)
	api.HandleFunc("GET /v1/documents/{id}", rt.getDocument)
	api.HandleFunc("DELETE /v1/documents/{id}", rt.deleteDocument)
	api.HandleFunc("POST /v1/documents/{id}/reprocess", rt.reprocessDocument)
	api.HandleFunc("POST /v1/search", rt.search)
	api.HandleFunc("POST /v1/context", rt.buildContext)
	api.HandleFunc("POST /v1/analyses", rt.runAnalysis)
	api.HandleFunc("GET /v1/tenants/{tenant_id}/settings", rt.getTenantSettings)
	api.HandleFunc("PUT /v1/tenants/{tenant_id}/settings", rt.updateTenantSettings)

	var guarded http.Handler = rt.validator.middleware(api)
	guarded = backpressureMiddleware(guarded, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureWait)
	guarded = rateLimitMiddleware(guarded, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", rt.healthz)
	root.Handle("GET /metrics", rt.metrics.Handler())
	root.Handle("/", guarded)

	return requestIDMiddleware(accessLogMiddleware(rt.logger, rt.metrics.Middleware(serviceName, root)))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// tenantFrom prefers the explicit value and falls back to the header.
func tenantFrom(r *http.Request, explicit string) (string, error) {
	tenant := strings.TrimSpace(explicit)
	if tenant == "" {
		tenant = strings.TrimSpace(r.Header.Get(tenantHeader))
	}
	if tenant == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve tenant", errors.New("tenant_id or "+tenantHeader+" header is required"))
	}
	if err := domain.ValidateTenantID(tenant); err != nil {
		return "", err
	}
	return tenant, nil
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "decode request body", fmt.Errorf("invalid json: %w", err))
	}
	return nil
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= 500 {
		rt.logger.ErrorContext(r.Context(), "request failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
