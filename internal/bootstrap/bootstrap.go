// Package bootstrap wires configuration into repositories, providers,
// queues and use cases for every entrypoint.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/config"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/ports"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/usecase"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/infrastructure/cache/memory"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/infrastructure/chunking"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/infrastructure/extractor"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/infrastructure/llm/gateway"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/infrastructure/prompts"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/infrastructure/queue/inline"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/infrastructure/queue/nats"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/infrastructure/repository/postgres"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/infrastructure/repository/sqlite"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/infrastructure/resilience"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/infrastructure/storage/gcs"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/infrastructure/storage/localfs"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/infrastructure/storage/remote"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	IngestModeQueue     = "queue"
	IngestModeInline    = "inline"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue     ports.MessageQueue
	Documents ports.DocumentRepository
	Chunks    ports.ChunkRepository
	Settings  ports.TenantSettingsRepository
	Storage   ports.ObjectStorage
	Providers *gateway.Resolver
	Prompts   *prompts.Catalog

	IngestUC   *usecase.IngestDocumentUseCase
	ProcessUC  *usecase.ProcessDocumentUseCase
	DocumentUC *usecase.DocumentUseCase
	SearchUC   *usecase.SemanticSearchUseCase
	AnalysisUC *usecase.AnalysisUseCase
	SettingsUC *usecase.TenantSettingsUseCase

	closers []func()
}

type Options struct {
	Logger *slog.Logger
	// InlineAsync makes inline ingestion return before processing ends.
	InlineAsync bool
	// OnDelivery observes queue lag on the consuming side.
	OnDelivery func(lag time.Duration)
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, Logger: logger}

	if err := app.openStore(ctx); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.openStorage(ctx); err != nil {
		app.Close()
		return nil, err
	}

	catalog, err := prompts.Load(cfg.PromptsPath)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("load prompt catalog: %w", err)
	}
	app.Prompts = catalog

	app.Providers = gateway.NewResolver(app.Settings, providerDefaults(cfg), gateway.Options{
		GlobalTenantID:    cfg.RAGGlobalTenant,
		RateLimitRPS:      cfg.ProviderRateLimitRPS,
		Executor:          resilience.NewExecutor(resilience.ProviderConfig(cfg.ProviderRetryAttempts, cfg.ProviderBreakerEnabled)).WithLogger(logger),
		EmbeddingCache:    memory.New(cfg.EmbeddingCacheTTL),
		EmbeddingCacheTTL: cfg.EmbeddingCacheTTL,
		Logger:            logger,
	})

	// One cache per process: deletes and reprocessing in this process drop
	// the tenant's entries. Documents finished by a separate worker reach
	// searches here after at most one TTL.
	var searchCache ports.SearchResultCache
	if cfg.SearchCacheTTL > 0 {
		searchCache = memory.NewSearchCache(memory.New(cfg.SearchCacheTTL), cfg.SearchCacheTTL, cfg.RAGGlobalTenant)
	}

	app.ProcessUC = usecase.NewProcessDocumentUseCase(
		app.Documents,
		app.Chunks,
		extractor.NewRouter(app.Storage, int64(cfg.MaxUploadMB)<<20),
		chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		app.Providers,
		usecase.ProcessSettings{EmbedBatchSize: cfg.EmbedBatchSize},
	).WithSearchCache(searchCache)

	if err := app.openQueue(opts); err != nil {
		app.Close()
		return nil, err
	}

	app.IngestUC = usecase.NewIngestDocumentUseCase(app.Documents, app.Storage, app.Queue)
	app.DocumentUC = usecase.NewDocumentUseCase(app.Documents, app.Chunks, app.Storage, app.Queue).WithSearchCache(searchCache)
	app.SearchUC = usecase.NewSemanticSearchUseCase(app.Chunks, app.Providers, searchCache, usecase.SearchSettings{
		DefaultLimit:   cfg.RAGTopK,
		Threshold:      cfg.RAGSimilarityThreshold,
		GlobalTenantID: cfg.RAGGlobalTenant,
		GlobalWeight:   cfg.RAGGlobalWeight,
		Logger:         logger,
	})
	app.AnalysisUC = usecase.NewAnalysisUseCase(app.Prompts, app.SearchUC, app.Providers, cfg.RAGTopK, logger)
	app.SettingsUC = usecase.NewTenantSettingsUseCase(app.Settings)

	logger.Info("application wired",
		"store_driver", cfg.StoreDriver,
		"ingest_mode", cfg.IngestMode,
		"gcs_bucket", cfg.GCSBucket,
	)
	return app, nil
}

func (a *App) openStore(ctx context.Context) error {
	switch a.Config.StoreDriver {
	case StoreDriverSQLite:
		store, err := sqlite.Open(ctx, a.Config.SQLitePath)
		if err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		a.Documents = store.Documents()
		a.Chunks = store.Chunks()
		a.Settings = store.TenantSettings()
	case StoreDriverPostgres, "":
		db, err := postgres.OpenDB(a.Config.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		a.usePostgres(db)
	default:
		return domain.WrapError(domain.ErrConfiguration, "open store", fmt.Errorf("unknown STORE_DRIVER %q", a.Config.StoreDriver))
	}
	return nil
}

func (a *App) usePostgres(db *sql.DB) {
	a.Documents = postgres.NewDocumentRepository(db)
	a.Chunks = postgres.NewChunkRepository(db)
	a.Settings = postgres.NewTenantSettingsRepository(db)
}

// openStorage prefers the GCS bucket and falls back to the local directory
// when the bucket client cannot be built. URL keys always read through.
func (a *App) openStorage(ctx context.Context) error {
	local, err := localfs.New(a.Config.StoragePath)
	if err != nil {
		return fmt.Errorf("init object storage: %w", err)
	}
	var base ports.ObjectStorage = local
	if a.Config.GCSBucket != "" {
		bucket, err := gcs.New(ctx, gcs.Config{
			Bucket:          a.Config.GCSBucket,
			CredentialsFile: a.Config.GCSCredentialsFile,
		})
		if err != nil {
			a.Logger.Warn("gcs unavailable, using local storage",
				"bucket", a.Config.GCSBucket,
				"storage_path", a.Config.StoragePath,
				"error", err,
			)
		} else {
			base = bucket
		}
	}
	a.Storage = remote.Wrap(base, remote.Options{
		MaxBytes:             int64(a.Config.MaxUploadMB) << 20,
		AllowPrivateNetworks: a.Config.RemoteAllowPrivate,
	})
	return nil
}

func (a *App) openQueue(opts Options) error {
	switch a.Config.IngestMode {
	case IngestModeInline:
		a.Queue = inline.New(a.ProcessUC.ProcessByID, inline.Options{
			Async:   opts.InlineAsync,
			Timeout: a.Config.ProcessTimeout,
			Logger:  a.Logger,
		})
	case IngestModeQueue, "":
		q, err := nats.NewWithOptions(a.Config.NATSURL, a.Config.NATSSubject, nats.Options{
			ResilienceExecutor: resilience.NewExecutor(resilience.PublishConfig()).WithLogger(a.Logger),
			Logger:             a.Logger,
			HandlerTimeout:     a.Config.ProcessTimeout,
			OnDelivery:         opts.OnDelivery,
		})
		if err != nil {
			return fmt.Errorf("init message queue: %w", err)
		}
		a.closers = append(a.closers, q.Close)
		a.Queue = q
	default:
		return domain.WrapError(domain.ErrConfiguration, "init message queue", fmt.Errorf("unknown INGEST_MODE %q", a.Config.IngestMode))
	}
	return nil
}

// Close releases resources in reverse order of acquisition. Inline work
// started by this process is waited for first.
func (a *App) Close() {
	if q, ok := a.Queue.(*inline.Queue); ok {
		q.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func providerDefaults(cfg config.Config) gateway.Defaults {
	keys := map[domain.Provider]string{}
	for p, key := range map[domain.Provider]string{
		domain.ProviderOpenAI:    cfg.OpenAIAPIKey,
		domain.ProviderAnthropic: cfg.AnthropicAPIKey,
		domain.ProviderGoogle:    cfg.GoogleAPIKey,
	} {
		if key != "" {
			keys[p] = key
		}
	}
	chat, _ := domain.ParseProvider(cfg.LLMProvider)
	embed, _ := domain.ParseProvider(cfg.EmbeddingProvider)
	return gateway.Defaults{
		ChatProvider:      chat,
		ChatModel:         cfg.LLMChatModel,
		EmbeddingProvider: embed,
		EmbeddingModel:    cfg.EmbeddingModel,
		APIKeys:           keys,
		OpenAIBaseURL:     cfg.OpenAIBaseURL,
		OllamaURL:         cfg.OllamaURL,
	}
}

// ErrNoQueueConsumer is returned by entrypoints that need a broker when the
// application runs with inline ingestion.
var ErrNoQueueConsumer = errors.New("INGEST_MODE=inline has no queue to consume; run the api or ragctl instead")
