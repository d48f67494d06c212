// Package gateway binds embedding and generation clients to a tenant's
// provider settings and wraps them with rate limiting, retries and caching.
package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/ports"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/infrastructure/cache/memory"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/infrastructure/llm/hosted"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/infrastructure/llm/ollama"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/infrastructure/resilience"
)

// Fallback models used when the level that picked a provider names no model.
var (
	defaultChatModels = map[domain.Provider]string{
		domain.ProviderOpenAI:    "gpt-4o-mini",
		domain.ProviderAnthropic: "claude-3-5-haiku-latest",
		domain.ProviderGoogle:    "gemini-1.5-flash",
		domain.ProviderOllama:    "llama3.1:8b",
	}
	defaultEmbeddingModels = map[domain.Provider]string{
		domain.ProviderOpenAI: "text-embedding-3-small",
		domain.ProviderGoogle: "text-embedding-004",
		domain.ProviderOllama: "nomic-embed-text",
	}
)

// Defaults is the environment level of provider resolution.
type Defaults struct {
	ChatProvider      domain.Provider
	ChatModel         string
	EmbeddingProvider domain.Provider
	EmbeddingModel    string
	APIKeys           map[domain.Provider]string
	OpenAIBaseURL     string
	OllamaURL         string
}

type Options struct {
	GlobalTenantID    string
	RateLimitRPS      float64
	Executor          *resilience.Executor
	EmbeddingCache    *memory.Cache
	EmbeddingCacheTTL time.Duration
	HTTPClient        *http.Client
	Logger            *slog.Logger
}

// binding is a fully resolved provider choice.
type binding struct {
	Provider domain.Provider
	Model    string
	APIKey   string
	BaseURL  string
}

func (b binding) cacheKey() string {
	sum := sha256.Sum256([]byte(b.APIKey))
	return strings.Join([]string{string(b.Provider), b.Model, b.BaseURL, hex.EncodeToString(sum[:8])}, "|")
}

type clientFactory interface {
	NewEmbedder(ctx context.Context, b binding) (ports.Embedder, error)
	NewGenerator(ctx context.Context, b binding) (ports.Generator, error)
}

type Resolver struct {
	settings ports.TenantSettingsRepository
	defaults Defaults
	opts     Options
	factory  clientFactory
	logger   *slog.Logger

	mu         sync.Mutex
	embedders  map[string]ports.Embedder
	generators map[string]ports.Generator
	limiters   map[domain.Provider]*rate.Limiter
}

func NewResolver(settings ports.TenantSettingsRepository, defaults Defaults, opts Options) *Resolver {
	if opts.GlobalTenantID == "" {
		opts.GlobalTenantID = domain.GlobalTenantID
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 120 * time.Second}
	}
	if opts.Executor == nil {
		opts.Executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		settings:   settings,
		defaults:   defaults,
		opts:       opts,
		logger:     logger,
		embedders:  make(map[string]ports.Embedder),
		generators: make(map[string]ports.Generator),
		limiters:   make(map[domain.Provider]*rate.Limiter),
	}
	r.factory = vendorFactory{httpClient: opts.HTTPClient}
	return r
}

func (r *Resolver) Embedder(ctx context.Context, tenantID string) (ports.Embedder, error) {
	b, err := r.resolve(ctx, tenantID, embeddingRole)
	if err != nil {
		return nil, err
	}

	key := b.cacheKey()
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.embedders[key]; ok {
		return e, nil
	}
	inner, err := r.factory.NewEmbedder(ctx, b)
	if err != nil {
		return nil, err
	}
	e := &guardedEmbedder{
		inner:    inner,
		limiter:  r.limiterLocked(b.Provider),
		executor: r.opts.Executor,
		cache:    r.opts.EmbeddingCache,
		ttl:      r.opts.EmbeddingCacheTTL,
	}
	r.embedders[key] = e
	r.logger.Info("embedding client created", "provider", b.Provider, "model", b.Model)
	return e, nil
}

func (r *Resolver) Generator(ctx context.Context, tenantID string) (ports.Generator, error) {
	b, err := r.resolve(ctx, tenantID, chatRole)
	if err != nil {
		return nil, err
	}

	key := b.cacheKey()
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.generators[key]; ok {
		return g, nil
	}
	inner, err := r.factory.NewGenerator(ctx, b)
	if err != nil {
		return nil, err
	}
	g := &guardedGenerator{
		inner:    inner,
		limiter:  r.limiterLocked(b.Provider),
		executor: r.opts.Executor,
	}
	r.generators[key] = g
	r.logger.Info("chat client created", "provider", b.Provider, "model", b.Model)
	return g, nil
}

// limiterLocked returns the provider's shared limiter; nil when rate
// limiting is off. Callers hold r.mu.
func (r *Resolver) limiterLocked(p domain.Provider) *rate.Limiter {
	if r.opts.RateLimitRPS <= 0 {
		return nil
	}
	if l, ok := r.limiters[p]; ok {
		return l
	}
	burst := max(int(r.opts.RateLimitRPS), 1)
	l := rate.NewLimiter(rate.Limit(r.opts.RateLimitRPS), burst)
	r.limiters[p] = l
	return l
}

type role int

const (
	chatRole role = iota
	embeddingRole
)

func (r role) String() string {
	if r == embeddingRole {
		return "embedding"
	}
	return "chat"
}

// resolve picks provider and model from the first level that names a
// provider (tenant, global tenant, environment) and the API key from the
// first level that holds one for that provider.
func (r *Resolver) resolve(ctx context.Context, tenantID string, which role) (binding, error) {
	levels, err := r.settingsLevels(ctx, tenantID)
	if err != nil {
		return binding{}, err
	}
	envLevel := &domain.TenantSettings{
		ChatProvider:      r.defaults.ChatProvider,
		ChatModel:         r.defaults.ChatModel,
		EmbeddingProvider: r.defaults.EmbeddingProvider,
		EmbeddingModel:    r.defaults.EmbeddingModel,
		APIKeys:           r.defaults.APIKeys,
	}
	levels = append(levels, envLevel)

	var b binding
	for _, lvl := range levels {
		provider, model := pick(lvl, which)
		if provider == "" {
			continue
		}
		b.Provider, b.Model = provider, model
		break
	}
	if b.Provider == "" {
		return binding{}, domain.WrapError(domain.ErrConfiguration, "resolve provider",
			fmt.Errorf("no %s provider configured for tenant %q", which, tenantID))
	}
	if b.Model == "" {
		if which == embeddingRole {
			b.Model = defaultEmbeddingModels[b.Provider]
		} else {
			b.Model = defaultChatModels[b.Provider]
		}
	}
	if b.Model == "" {
		return binding{}, domain.WrapError(domain.ErrConfiguration, "resolve provider",
			fmt.Errorf("%s offers no %s models", b.Provider, which))
	}

	if b.Provider.RequiresAPIKey() {
		for _, lvl := range levels {
			if key := lvl.APIKey(b.Provider); key != "" {
				b.APIKey = key
				break
			}
		}
		if b.APIKey == "" {
			return binding{}, domain.WrapError(domain.ErrConfiguration, "resolve provider",
				fmt.Errorf("no API key for %s: set it in the tenant settings, the global tenant settings or the environment", b.Provider))
		}
	}

	switch b.Provider {
	case domain.ProviderOpenAI:
		b.BaseURL = r.defaults.OpenAIBaseURL
	case domain.ProviderOllama:
		b.BaseURL = r.defaults.OllamaURL
	}
	return b, nil
}

func (r *Resolver) settingsLevels(ctx context.Context, tenantID string) ([]*domain.TenantSettings, error) {
	ids := []string{tenantID}
	if tenantID != r.opts.GlobalTenantID {
		ids = append(ids, r.opts.GlobalTenantID)
	}
	levels := make([]*domain.TenantSettings, 0, len(ids)+1)
	if r.settings == nil {
		return levels, nil
	}
	for _, id := range ids {
		s, err := r.settings.Get(ctx, id)
		switch {
		case err == nil:
			levels = append(levels, s)
		case domain.IsKind(err, domain.ErrTenantSettingsNotFound):
		default:
			return nil, fmt.Errorf("load settings for tenant %s: %w", id, err)
		}
	}
	return levels, nil
}

func pick(s *domain.TenantSettings, which role) (domain.Provider, string) {
	if s == nil {
		return "", ""
	}
	if which == embeddingRole {
		return s.EmbeddingProvider, strings.TrimSpace(s.EmbeddingModel)
	}
	return s.ChatProvider, strings.TrimSpace(s.ChatModel)
}

type vendorFactory struct {
	httpClient *http.Client
}

func (f vendorFactory) NewEmbedder(ctx context.Context, b binding) (ports.Embedder, error) {
	if b.Provider == domain.ProviderOllama {
		return ollama.NewEmbedder(ollama.New(b.BaseURL, f.httpClient), b.Model), nil
	}
	return hosted.NewEmbedder(ctx, hosted.Config{
		Provider:   b.Provider,
		Model:      b.Model,
		APIKey:     b.APIKey,
		BaseURL:    b.BaseURL,
		HTTPClient: f.httpClient,
	})
}

func (f vendorFactory) NewGenerator(ctx context.Context, b binding) (ports.Generator, error) {
	if b.Provider == domain.ProviderOllama {
		return ollama.NewGenerator(ollama.New(b.BaseURL, f.httpClient), b.Model), nil
	}
	return hosted.NewChat(ctx, hosted.Config{
		Provider:   b.Provider,
		Model:      b.Model,
		APIKey:     b.APIKey,
		BaseURL:    b.BaseURL,
		HTTPClient: f.httpClient,
	})
}
