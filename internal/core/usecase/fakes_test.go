package usecase

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/ports"
)

type statusCall struct {
	status domain.DocumentStatus
	errMsg string
}

type docRepoFake struct {
	mu          sync.Mutex
	docs        map[string]*domain.Document
	createErr   error
	statusCalls []statusCall
	completed   map[string]domain.ProcessingMetadata
	snapshots   map[string]string
	deleted     []string
}

func newDocRepoFake(docs ...*domain.Document) *docRepoFake {
	f := &docRepoFake{
		docs:      map[string]*domain.Document{},
		completed: map[string]domain.ProcessingMetadata{},
		snapshots: map[string]string{},
	}
	for _, d := range docs {
		f.docs[d.ID] = d
	}
	return f
}

func (f *docRepoFake) Create(_ context.Context, doc *domain.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	copyDoc := *doc
	f.docs[doc.ID] = &copyDoc
	return nil
}

func (f *docRepoFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New(id))
	}
	copyDoc := *doc
	return &copyDoc, nil
}

func (f *docRepoFake) List(_ context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Document{}
	for _, d := range f.docs {
		if d.TenantID != filter.TenantID {
			continue
		}
		if filter.Category != "" && d.Category != filter.Category {
			continue
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *docRepoFake) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	if d, ok := f.docs[id]; ok {
		d.Status = status
		d.Error = errMessage
	}
	return nil
}

func (f *docRepoFake) Complete(_ context.Context, id, text string, meta domain.ProcessingMetadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed[id] = meta
	f.snapshots[id] = text
	if d, ok := f.docs[id]; ok {
		d.Status = domain.StatusCompleted
		d.ExtractedText = text
		d.Metadata = meta
	}
	return nil
}

func (f *docRepoFake) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	delete(f.docs, id)
	return nil
}

func (f *docRepoFake) lastStatus() domain.DocumentStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.statusCalls) == 0 {
		return ""
	}
	return f.statusCalls[len(f.statusCalls)-1].status
}

type chunkRepoFake struct {
	mu         sync.Mutex
	chunks     []domain.Chunk
	candidates []domain.ChunkCandidate
	batches    [][]domain.Chunk
	insertErr  error
	listCalls  [][]string
}

func (f *chunkRepoFake) InsertBatch(_ context.Context, chunks []domain.Chunk) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, chunks)
	f.chunks = append(f.chunks, chunks...)
	return nil
}

func (f *chunkRepoFake) DeleteByDocument(_ context.Context, documentID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.chunks[:0]
	var n int64
	for _, c := range f.chunks {
		if c.DocumentID == documentID {
			n++
			continue
		}
		kept = append(kept, c)
	}
	f.chunks = kept
	return n, nil
}

func (f *chunkRepoFake) CountByDocument(_ context.Context, documentID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.chunks {
		if c.DocumentID == documentID {
			n++
		}
	}
	return n, nil
}

func (f *chunkRepoFake) ListSearchable(_ context.Context, tenantIDs []string, category string) ([]domain.ChunkCandidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls = append(f.listCalls, tenantIDs)
	out := []domain.ChunkCandidate{}
	for _, c := range f.candidates {
		if category != "" && c.Category != category {
			continue
		}
		for _, t := range tenantIDs {
			if c.TenantID == t {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

type storageFake struct {
	saved   map[string]string
	deleted []string
	err     error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if f.saved == nil {
		f.saved = map[string]string{}
	}
	f.saved[key] = string(raw)
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.saved[key])), nil
}

func (f *storageFake) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.saved, key)
	return nil
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishDocumentIngested(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *queueFake) SubscribeDocumentIngested(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

type extractorFake struct {
	text string
	err  error
}

func (f *extractorFake) Extract(context.Context, *domain.Document) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type chunkerFake struct {
	chunks []string
}

func (f *chunkerFake) Split(string) []string { return f.chunks }

// embedderFake maps text to vectors through a lookup table, falling back to
// a fixed vector.
type embedderFake struct {
	mu       sync.Mutex
	vectors  map[string][]float32
	fallback []float32
	err      error
	failOn   string
	calls    int
	inFlight int
	maxSeen  int
	gate     chan struct{}
}

func (f *embedderFake) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := f.EmbedQuery(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()
	if f.gate != nil {
		<-f.gate
	}

	if f.err != nil {
		return nil, f.err
	}
	if f.failOn != "" && text == f.failOn {
		return nil, errors.New("provider rejected chunk")
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return f.fallback, nil
}

func (f *embedderFake) Model() domain.ModelRef {
	return domain.ModelRef{Provider: domain.ProviderOllama, Name: "fake-embed"}
}

func (f *embedderFake) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type generatorFake struct {
	prompt string
	opts   domain.GenerateOptions
	err    error
}

func (f *generatorFake) Generate(_ context.Context, prompt string, opts domain.GenerateOptions) (domain.Completion, error) {
	f.prompt = prompt
	f.opts = opts
	if f.err != nil {
		return domain.Completion{}, f.err
	}
	return domain.Completion{Provider: domain.ProviderOpenAI, Model: "fake-chat", Text: "analysis text"}, nil
}

func (f *generatorFake) Model() domain.ModelRef {
	return domain.ModelRef{Provider: domain.ProviderOpenAI, Name: "fake-chat"}
}

type resolverFake struct {
	embedder    ports.Embedder
	generator   ports.Generator
	err         error
	embedderReq int
}

func (f *resolverFake) Embedder(context.Context, string) (ports.Embedder, error) {
	f.embedderReq++
	if f.err != nil {
		return nil, f.err
	}
	return f.embedder, nil
}

func (f *resolverFake) Generator(context.Context, string) (ports.Generator, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.generator, nil
}

type searchInvalidatorFake struct {
	mu      sync.Mutex
	tenants []string
}

func (f *searchInvalidatorFake) InvalidateTenant(tenantID string) {
	f.mu.Lock()
	f.tenants = append(f.tenants, tenantID)
	f.mu.Unlock()
}
