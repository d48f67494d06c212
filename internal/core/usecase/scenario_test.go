package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/ports"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/usecase"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/infrastructure/cache/memory"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/infrastructure/chunking"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/infrastructure/extractor"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/infrastructure/queue/inline"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/infrastructure/repository/sqlite"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/infrastructure/storage/localfs"
)

// keywordEmbedder maps text onto keyword counts plus a constant axis, so
// ranking is predictable without a model.
type keywordEmbedder struct {
	keywords []string
	calls    atomic.Int32
}

func (e *keywordEmbedder) vector(text string) []float32 {
	lower := strings.ToLower(text)
	vec := make([]float32, len(e.keywords)+1)
	for i, k := range e.keywords {
		vec[i] = float32(strings.Count(lower, k))
	}
	vec[len(e.keywords)] = 1
	return vec
}

func (e *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *keywordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	return e.vector(text), nil
}

func (e *keywordEmbedder) Model() domain.ModelRef {
	return domain.ModelRef{Provider: domain.ProviderOllama, Name: "keywords"}
}

type staticResolver struct {
	embedder ports.Embedder
}

func (r staticResolver) Embedder(context.Context, string) (ports.Embedder, error) {
	return r.embedder, nil
}

func (r staticResolver) Generator(context.Context, string) (ports.Generator, error) {
	return nil, domain.WrapError(domain.ErrConfiguration, "resolve provider", io.EOF)
}

type scenario struct {
	store    *sqlite.Store
	embedder *keywordEmbedder
	ingest   *usecase.IngestDocumentUseCase
	docs     *usecase.DocumentUseCase
	search   *usecase.SemanticSearchUseCase
}

func newScenario(t *testing.T) *scenario {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	store, err := sqlite.Open(ctx, filepath.Join(dir, "clinic.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	files, err := localfs.New(filepath.Join(dir, "files"))
	if err != nil {
		t.Fatalf("init storage: %v", err)
	}

	embedder := &keywordEmbedder{keywords: []string{"hormones", "diet"}}
	resolver := staticResolver{embedder: embedder}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	searches := memory.NewSearchCache(memory.New(time.Minute), time.Minute, domain.GlobalTenantID)
	process := usecase.NewProcessDocumentUseCase(
		store.Documents(),
		store.Chunks(),
		extractor.NewRouter(files, 0),
		chunking.NewSplitter(40, 0),
		resolver,
		usecase.ProcessSettings{EmbedBatchSize: 5},
	).WithSearchCache(searches)
	queue := inline.New(process.ProcessByID, inline.Options{Logger: logger})

	return &scenario{
		store:    store,
		embedder: embedder,
		ingest:   usecase.NewIngestDocumentUseCase(store.Documents(), files, queue),
		docs:     usecase.NewDocumentUseCase(store.Documents(), store.Chunks(), files, queue).WithSearchCache(searches),
		search: usecase.NewSemanticSearchUseCase(store.Chunks(), resolver, searches, usecase.SearchSettings{
			DefaultLimit: 5,
			Threshold:    0,
			Logger:       logger,
		}),
	}
}

func (s *scenario) upload(t *testing.T, tenant, filename, mimeType, body string) *domain.Document {
	t.Helper()
	ctx := context.Background()
	doc, err := s.ingest.Upload(ctx, domain.UploadRequest{
		TenantID: tenant,
		Filename: filename,
		MimeType: mimeType,
		Body:     strings.NewReader(body),
	})
	if err != nil {
		t.Fatalf("Upload(%s) error = %v", filename, err)
	}
	stored, err := s.docs.GetByID(ctx, tenant, doc.ID)
	if err != nil {
		t.Fatalf("GetByID(%s) error = %v", doc.ID, err)
	}
	return stored
}

func TestScenarioQueryRanksMatchingParagraphFirst(t *testing.T) {
	s := newScenario(t)
	doc := s.upload(t, "clinic-a", "notes.txt", "text/plain",
		"Paragraph A discusses hormones.\n\nParagraph B discusses diet.")

	if doc.Status != domain.StatusCompleted {
		t.Fatalf("status = %s (%s), want completed", doc.Status, doc.Error)
	}
	if doc.Metadata.ChunkCount != 2 {
		t.Fatalf("chunk count = %d, want 2", doc.Metadata.ChunkCount)
	}

	results, err := s.search.Search(context.Background(), domain.SearchQuery{Text: "hormones", TenantID: "clinic-a"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected both chunks above a zero threshold, got %d", len(results))
	}
	if !strings.Contains(results[0].Text, "Paragraph A") || !strings.Contains(results[1].Text, "Paragraph B") {
		t.Fatalf("unexpected ranking: %q then %q", results[0].Text, results[1].Text)
	}
	if results[0].Score <= results[1].Score {
		t.Fatalf("scores not descending: %f, %f", results[0].Score, results[1].Score)
	}
	if results[0].Filename != "notes.txt" || results[0].DocumentID != doc.ID {
		t.Fatalf("result lacks document fields: %+v", results[0])
	}
}

func TestScenarioEmptyTenantReturnsNoResults(t *testing.T) {
	s := newScenario(t)
	s.upload(t, "clinic-a", "notes.txt", "text/plain", "Paragraph A discusses hormones.")
	before := s.embedder.calls.Load()

	results, err := s.search.Search(context.Background(), domain.SearchQuery{Text: "hormones", TenantID: "clinic-empty"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results for an empty tenant, got %d", len(results))
	}
	if s.embedder.calls.Load() != before {
		t.Fatalf("expected no embedding call for an empty corpus")
	}
}

func TestScenarioBrokenPDFEndsInErrorWithoutChunks(t *testing.T) {
	s := newScenario(t)
	doc := s.upload(t, "clinic-a", "labs.pdf", "application/pdf", "this is not a pdf")

	if doc.Status != domain.StatusError {
		t.Fatalf("status = %s, want error", doc.Status)
	}
	if doc.Error == "" {
		t.Fatalf("expected the failure message on the document")
	}
	n, err := s.store.Chunks().CountByDocument(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("CountByDocument() error = %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no chunks for a failed document, got %d", n)
	}
}

func TestScenarioGlobalDocumentsAreShared(t *testing.T) {
	s := newScenario(t)
	s.upload(t, domain.GlobalTenantID, "guide.txt", "text/plain", "Shared guide on hormones.")
	s.upload(t, "clinic-b", "private.txt", "text/plain", "Clinic B notes on hormones.")

	results, err := s.search.Search(context.Background(), domain.SearchQuery{Text: "hormones", TenantID: "clinic-a"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || !results[0].Global || results[0].Filename != "guide.txt" {
		t.Fatalf("expected only the shared guide, got %+v", results)
	}
}

func TestScenarioDeleteRemovesDocumentAndChunks(t *testing.T) {
	s := newScenario(t)
	ctx := context.Background()
	doc := s.upload(t, "clinic-a", "notes.txt", "text/plain", "Paragraph A discusses hormones.")

	before, err := s.search.Search(ctx, domain.SearchQuery{Text: "hormones", TenantID: "clinic-a"})
	if err != nil || len(before) != 1 {
		t.Fatalf("Search() before delete = %d results, %v", len(before), err)
	}

	if err := s.docs.Delete(ctx, "clinic-a", doc.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.docs.GetByID(ctx, "clinic-a", doc.ID); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	results, err := s.search.Search(ctx, domain.SearchQuery{Text: "hormones", TenantID: "clinic-a"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("deleted document still returned: %q", results[0].Text)
	}
}

func TestScenarioCachedSearchSeesNewDocuments(t *testing.T) {
	s := newScenario(t)
	ctx := context.Background()
	query := domain.SearchQuery{Text: "hormones", TenantID: "clinic-a"}

	s.upload(t, "clinic-a", "notes.txt", "text/plain", "Paragraph A discusses hormones.")
	first, err := s.search.Search(ctx, query)
	if err != nil || len(first) != 1 {
		t.Fatalf("Search() = %d results, %v", len(first), err)
	}

	s.upload(t, "clinic-a", "labs.txt", "text/plain", "Labs mention hormones twice: hormones.")
	results, err := s.search.Search(ctx, query)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected the new document after processing, got %d results", len(results))
	}
}

func TestScenarioCrossTenantDeleteIsRejected(t *testing.T) {
	s := newScenario(t)
	ctx := context.Background()
	doc := s.upload(t, "clinic-a", "notes.txt", "text/plain", "Paragraph A discusses hormones.")

	if err := s.docs.Delete(ctx, "clinic-b", doc.ID); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("Delete() by another tenant = %v, want not found", err)
	}
	if _, err := s.docs.GetByID(ctx, "clinic-a", doc.ID); err != nil {
		t.Fatalf("document of clinic-a was removed: %v", err)
	}
}
