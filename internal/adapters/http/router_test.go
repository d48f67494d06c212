package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/config"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
)

type ingestFake struct {
	err        error
	gotUpload  domain.UploadRequest
	gotRemote  domain.RemoteDocumentRequest
	uploadBody string
}

func (f *ingestFake) Upload(_ context.Context, req domain.UploadRequest) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	raw, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	f.gotUpload = req
	f.uploadBody = string(raw)
	return &domain.Document{
		ID:       "doc-1",
		TenantID: req.TenantID,
		Filename: req.Filename,
		MimeType: req.MimeType,
		Size:     int64(len(raw)),
		Status:   domain.StatusProcessing,
	}, nil
}

func (f *ingestFake) RegisterRemote(_ context.Context, req domain.RemoteDocumentRequest) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.gotRemote = req
	return &domain.Document{ID: "doc-2", TenantID: req.TenantID, StorageKey: req.URL, Status: domain.StatusProcessing}, nil
}

// docsFake owns every document as clinic-a, like a store scoped by tenant.
type docsFake struct {
	err       error
	gotFilter domain.DocumentFilter
	gotTenant string
	deleted   string
}

func (f *docsFake) owned(tenantID, id string) error {
	f.gotTenant = tenantID
	if f.err != nil {
		return f.err
	}
	if tenantID != "clinic-a" {
		return domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New("id="+id))
	}
	return nil
}

func (f *docsFake) GetByID(_ context.Context, tenantID, id string) (*domain.Document, error) {
	if err := f.owned(tenantID, id); err != nil {
		return nil, err
	}
	return &domain.Document{ID: id, TenantID: "clinic-a", Status: domain.StatusCompleted}, nil
}

func (f *docsFake) List(_ context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	f.gotFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	return nil, nil
}

func (f *docsFake) Delete(_ context.Context, tenantID, id string) error {
	if err := f.owned(tenantID, id); err != nil {
		return err
	}
	f.deleted = id
	return nil
}

func (f *docsFake) Reprocess(_ context.Context, tenantID, id string) (*domain.Document, error) {
	if err := f.owned(tenantID, id); err != nil {
		return nil, err
	}
	return &domain.Document{ID: id, TenantID: tenantID, Status: domain.StatusProcessing}, nil
}

type searchFake struct {
	err      error
	results  []domain.SearchResult
	gotQuery domain.SearchQuery
}

func (f *searchFake) Search(_ context.Context, q domain.SearchQuery) ([]domain.SearchResult, error) {
	f.gotQuery = q
	return f.results, f.err
}

func (f *searchFake) BuildContext(_ context.Context, q domain.SearchQuery) (*domain.RetrievalContext, error) {
	f.gotQuery = q
	if f.err != nil {
		return nil, f.err
	}
	return &domain.RetrievalContext{Text: "[1] ferritin.pdf\nferritin 12 ng/mL", Sources: f.results}, nil
}

type analysisFake struct {
	err error
	got domain.AnalysisRequest
}

func (f *analysisFake) Run(_ context.Context, req domain.AnalysisRequest) (*domain.AnalysisResult, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &domain.AnalysisResult{
		ID:       "an-1",
		TenantID: req.TenantID,
		Type:     req.Type,
		Completion: domain.Completion{
			Provider: domain.ProviderOpenAI, Model: "gpt-4o-mini", Text: "ok", PromptTokens: 10, CompletionTokens: 3,
		},
	}, nil
}

type settingsFake struct {
	stored *domain.TenantSettings
	err    error
}

func (f *settingsFake) GetSettings(_ context.Context, tenantID string) (*domain.TenantSettings, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.stored == nil || f.stored.TenantID != tenantID {
		return nil, domain.WrapError(domain.ErrTenantSettingsNotFound, "get settings", errors.New(tenantID))
	}
	return f.stored, nil
}

func (f *settingsFake) UpdateSettings(_ context.Context, s *domain.TenantSettings) error {
	if f.err != nil {
		return f.err
	}
	f.stored = s
	return nil
}

type testServices struct {
	ingest   *ingestFake
	docs     *docsFake
	search   *searchFake
	analysis *analysisFake
	settings *settingsFake
}

func newTestServices() *testServices {
	return &testServices{
		ingest:   &ingestFake{},
		docs:     &docsFake{},
		search:   &searchFake{},
		analysis: &analysisFake{},
		settings: &settingsFake{},
	}
}

func (s *testServices) handler(t *testing.T, cfg config.Config) http.Handler {
	t.Helper()
	rt, err := NewRouter(cfg, Services{
		Ingest:    s.ingest,
		Documents: s.docs,
		Search:    s.search,
		Analysis:  s.analysis,
		Settings:  s.settings,
	}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	return rt.Handler()
}

func testConfig() config.Config {
	return config.Config{MaxUploadMB: 1}
}

func postJSON(t *testing.T, handler http.Handler, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", res.Body.String(), err)
	}
	return out
}

func TestHealthzEndpoint(t *testing.T) {
	handler := newTestServices().handler(t, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestMetricsEndpointExposesRequestCounters(t *testing.T) {
	handler := newTestServices().handler(t, testConfig())
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "clinic_rag_http_requests_total") {
		t.Fatalf("expected http request counter in metrics output")
	}
}

func TestUploadDocumentMultipart(t *testing.T) {
	svc := newTestServices()
	handler := svc.handler(t, testConfig())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "labs.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte("ferritin 12 ng/mL"))
	_ = mw.WriteField("category", "labs")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(tenantHeader, "clinic-a")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	got := svc.ingest.gotUpload
	if got.TenantID != "clinic-a" || got.Category != "labs" || got.Filename != "labs.txt" {
		t.Fatalf("unexpected upload request %+v", got)
	}
	if !strings.HasPrefix(got.MimeType, "text/plain") {
		t.Fatalf("expected mime type from extension, got %q", got.MimeType)
	}
	if svc.ingest.uploadBody != "ferritin 12 ng/mL" {
		t.Fatalf("unexpected body %q", svc.ingest.uploadBody)
	}
}

func TestUploadDocumentRequiresFileAndTenant(t *testing.T) {
	svc := newTestServices()
	handler := svc.handler(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", strings.NewReader("plain"))
	req.Header.Set("Content-Type", "text/plain")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without multipart body, got %d", res.Code)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("file", "labs.txt")
	_, _ = part.Write([]byte("x"))
	_ = mw.Close()
	req = httptest.NewRequest(http.MethodPost, "/v1/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without tenant, got %d", res.Code)
	}
}

func TestUploadDocumentTooLarge(t *testing.T) {
	svc := newTestServices()
	handler := svc.handler(t, testConfig())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("file", "big.txt")
	_, _ = part.Write(bytes.Repeat([]byte("a"), 2<<20))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(tenantHeader, "clinic-a")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", res.Code)
	}
}

func TestRegisterRemoteDocument(t *testing.T) {
	svc := newTestServices()
	handler := svc.handler(t, testConfig())

	res := postJSON(t, handler, "/v1/remote-documents", map[string]any{
		"tenant_id": "clinic-b",
		"url":       "https://files.example.com/protocols/iron.pdf",
	}, map[string]string{tenantHeader: "clinic-a"})
	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	if svc.ingest.gotRemote.TenantID != "clinic-b" {
		t.Fatalf("expected body tenant to win over header, got %q", svc.ingest.gotRemote.TenantID)
	}

	res = postJSON(t, handler, "/v1/remote-documents", map[string]any{"url": "ftp://files.example.com/a.pdf"},
		map[string]string{tenantHeader: "clinic-a"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-http url, got %d", res.Code)
	}
}

func TestListDocumentsPassesFilter(t *testing.T) {
	svc := newTestServices()
	handler := svc.handler(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/v1/documents?category=labs&status=completed", nil)
	req.Header.Set(tenantHeader, "clinic-a")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	want := domain.DocumentFilter{TenantID: "clinic-a", Category: "labs", Status: domain.StatusCompleted}
	if svc.docs.gotFilter != want {
		t.Fatalf("filter = %+v, want %+v", svc.docs.gotFilter, want)
	}
	out := decodeBody(t, res)
	if docs, ok := out["documents"].([]any); !ok || len(docs) != 0 {
		t.Fatalf("expected empty documents array, got %v", out["documents"])
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/documents?status=uploaded", nil)
	req.Header.Set(tenantHeader, "clinic-a")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", res.Code)
	}
}

func tenantRequest(method, path, tenant string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	if tenant != "" {
		req.Header.Set(tenantHeader, tenant)
	}
	return req
}

func TestDocumentLifecycleEndpoints(t *testing.T) {
	svc := newTestServices()
	handler := svc.handler(t, testConfig())

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, tenantRequest(http.MethodGet, "/v1/documents/doc-9", "clinic-a"))
	if res.Code != http.StatusOK || decodeBody(t, res)["id"] != "doc-9" {
		t.Fatalf("unexpected get response %d %s", res.Code, res.Body.String())
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, tenantRequest(http.MethodPost, "/v1/documents/doc-9/reprocess", "clinic-a"))
	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202 for reprocess, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodDelete, "/v1/documents/doc-9?tenant_id=clinic-a", nil))
	if res.Code != http.StatusNoContent || svc.docs.deleted != "doc-9" {
		t.Fatalf("expected 204 and delete of doc-9, got %d %q", res.Code, svc.docs.deleted)
	}
}

func TestDocumentRoutesHideOtherTenants(t *testing.T) {
	tests := []struct {
		method string
		path   string
	}{
		{method: http.MethodGet, path: "/v1/documents/doc-9"},
		{method: http.MethodPost, path: "/v1/documents/doc-9/reprocess"},
		{method: http.MethodDelete, path: "/v1/documents/doc-9"},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			svc := newTestServices()
			handler := svc.handler(t, testConfig())

			res := httptest.NewRecorder()
			handler.ServeHTTP(res, tenantRequest(tt.method, tt.path, "clinic-b"))
			if res.Code != http.StatusNotFound {
				t.Fatalf("expected 404 for another tenant, got %d %s", res.Code, res.Body.String())
			}
			if svc.docs.gotTenant != "clinic-b" || svc.docs.deleted != "" {
				t.Fatalf("tenant not passed through or document touched: %q %q", svc.docs.gotTenant, svc.docs.deleted)
			}

			res = httptest.NewRecorder()
			handler.ServeHTTP(res, tenantRequest(tt.method, tt.path, ""))
			if res.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 without a tenant, got %d", res.Code)
			}
		})
	}
}

func TestDocumentErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: domain.WrapError(domain.ErrDocumentNotFound, "get", errors.New("id=missing")), want: http.StatusNotFound},
		{name: "invalid", err: domain.WrapError(domain.ErrInvalidInput, "get", errors.New("bad")), want: http.StatusBadRequest},
		{name: "temporary", err: domain.WrapError(domain.ErrTemporary, "get", errors.New("db down")), want: http.StatusServiceUnavailable},
		{name: "unexpected", err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestServices()
			svc.docs.err = tt.err
			handler := svc.handler(t, testConfig())

			res := httptest.NewRecorder()
			handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/documents/missing?tenant_id=clinic-a", nil))
			if res.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, res.Code)
			}
			if decodeBody(t, res)["error"] == "" {
				t.Fatalf("expected error message")
			}
		})
	}
}

func TestSearchEndpoint(t *testing.T) {
	svc := newTestServices()
	svc.search.results = []domain.SearchResult{{DocumentID: "doc-1", ChunkIndex: 0, Text: "ferritin", Score: 0.91}}
	handler := svc.handler(t, testConfig())

	res := postJSON(t, handler, "/v1/search", map[string]any{"query": "ferritin", "limit": 3, "threshold": 0.5},
		map[string]string{tenantHeader: "clinic-a"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	q := svc.search.gotQuery
	if q.TenantID != "clinic-a" || q.Text != "ferritin" || q.Limit != 3 || q.Threshold == nil || *q.Threshold != 0.5 {
		t.Fatalf("unexpected query %+v", q)
	}
	if out := decodeBody(t, res); out["count"] != float64(1) {
		t.Fatalf("expected count 1, got %v", out["count"])
	}
}

func TestSearchValidationRejectsBadRequests(t *testing.T) {
	handler := newTestServices().handler(t, testConfig())
	tests := []struct {
		name    string
		body    map[string]any
		headers map[string]string
	}{
		{name: "missing query", body: map[string]any{"limit": 2}, headers: map[string]string{tenantHeader: "clinic-a"}},
		{name: "empty query", body: map[string]any{"query": ""}, headers: map[string]string{tenantHeader: "clinic-a"}},
		{name: "limit above cap", body: map[string]any{"query": "x", "limit": 500}, headers: map[string]string{tenantHeader: "clinic-a"}},
		{name: "bad tenant header", body: map[string]any{"query": "x"}, headers: map[string]string{tenantHeader: "clinic a!"}},
		{name: "missing tenant", body: map[string]any{"query": "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := postJSON(t, handler, "/v1/search", tt.body, tt.headers)
			if res.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", res.Code, res.Body.String())
			}
			if msg, _ := decodeBody(t, res)["error"].(string); msg == "" {
				t.Fatalf("expected error message")
			}
		})
	}
}

func TestContextEndpoint(t *testing.T) {
	svc := newTestServices()
	handler := svc.handler(t, testConfig())

	res := postJSON(t, handler, "/v1/context", map[string]any{"query": "ferritin", "tenant_id": "clinic-a"}, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	out := decodeBody(t, res)
	if !strings.Contains(out["context"].(string), "ferritin") {
		t.Fatalf("unexpected context %v", out["context"])
	}
	if sources, ok := out["sources"].([]any); !ok || len(sources) != 0 {
		t.Fatalf("expected empty sources array, got %v", out["sources"])
	}

	svc.search.err = domain.WrapError(domain.ErrConfiguration, "resolve provider", errors.New("no API key"))
	res = postJSON(t, handler, "/v1/context", map[string]any{"query": "ferritin", "tenant_id": "clinic-a"}, nil)
	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for configuration error, got %d", res.Code)
	}
}

func TestAnalysisEndpoint(t *testing.T) {
	svc := newTestServices()
	handler := svc.handler(t, testConfig())

	res := postJSON(t, handler, "/v1/analyses", map[string]any{
		"type":      "laboratory",
		"variables": map[string]string{"patient_name": "Ana"},
	}, map[string]string{tenantHeader: "clinic-a"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if svc.analysis.got.Type != domain.AnalysisLaboratory || svc.analysis.got.Variables["patient_name"] != "Ana" {
		t.Fatalf("unexpected analysis request %+v", svc.analysis.got)
	}

	svc.analysis.err = domain.WrapError(domain.ErrInvalidInput, "analysis", errors.New("unknown analysis type"))
	res = postJSON(t, handler, "/v1/analyses", map[string]any{"type": "astrology"}, map[string]string{tenantHeader: "clinic-a"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestTenantSettingsEndpointsMaskKeys(t *testing.T) {
	svc := newTestServices()
	handler := svc.handler(t, testConfig())

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/tenants/clinic-a/settings", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before settings exist, got %d", res.Code)
	}

	payload := `{"chat_provider":"anthropic","embedding_provider":"openai","api_keys":{"gemini":"g-secret","openai":"sk-secret"}}`
	req := httptest.NewRequest(http.MethodPut, "/v1/tenants/clinic-a/settings", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if strings.Contains(res.Body.String(), "secret") {
		t.Fatalf("response leaks key material: %s", res.Body.String())
	}
	if svc.settings.stored.APIKeys[domain.ProviderGoogle] != "g-secret" {
		t.Fatalf("expected gemini alias to map to google, got %+v", svc.settings.stored.APIKeys)
	}
	keys, _ := decodeBody(t, res)["configured_api_keys"].([]any)
	if len(keys) != 2 || keys[0] != "google" || keys[1] != "openai" {
		t.Fatalf("unexpected configured keys %v", keys)
	}

	req = httptest.NewRequest(http.MethodPut, "/v1/tenants/clinic-a/settings", strings.NewReader(`{"chat_provider":"mistral"}`))
	req.Header.Set("Content-Type", "application/json")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown provider, got %d", res.Code)
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	handler := newTestServices().handler(t, testConfig())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/nothing", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestWriteErrorLogsServerFailuresWithRequestID(t *testing.T) {
	var logs bytes.Buffer
	svc := newTestServices()
	svc.docs.err = errors.New("disk on fire")
	rt, err := NewRouter(testConfig(), Services{
		Ingest: svc.ingest, Documents: svc.docs, Search: svc.search, Analysis: svc.analysis, Settings: svc.settings,
	}, nil, slog.New(slog.NewJSONHandler(&logs, nil)))
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/v1/documents/doc-1?tenant_id=clinic-a", nil)
	req.Header.Set(requestIDHeader, "req-123")
	res := httptest.NewRecorder()
	rt.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
	if !strings.Contains(logs.String(), `"request_id":"req-123"`) || !strings.Contains(logs.String(), "disk on fire") {
		t.Fatalf("expected failure log with request id, got %s", logs.String())
	}
}
