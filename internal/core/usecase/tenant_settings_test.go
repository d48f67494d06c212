package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
)

type settingsRepoFake struct {
	stored map[string]domain.TenantSettings
}

func (f *settingsRepoFake) Get(_ context.Context, tenantID string) (*domain.TenantSettings, error) {
	s, ok := f.stored[tenantID]
	if !ok {
		return nil, domain.WrapError(domain.ErrTenantSettingsNotFound, "get tenant settings", errors.New(tenantID))
	}
	keys := map[domain.Provider]string{}
	for k, v := range s.APIKeys {
		keys[k] = v
	}
	s.APIKeys = keys
	return &s, nil
}

func (f *settingsRepoFake) Upsert(_ context.Context, s *domain.TenantSettings) error {
	if f.stored == nil {
		f.stored = map[string]domain.TenantSettings{}
	}
	f.stored[s.TenantID] = *s
	return nil
}

func TestUpdateSettingsMergesFields(t *testing.T) {
	repo := &settingsRepoFake{stored: map[string]domain.TenantSettings{
		"t1": {
			TenantID:     "t1",
			ChatProvider: domain.ProviderOpenAI,
			ChatModel:    "gpt-4o-mini",
			APIKeys:      map[domain.Provider]string{domain.ProviderOpenAI: "sk-old", domain.ProviderGoogle: "g-key"},
		},
	}}
	uc := NewTenantSettingsUseCase(repo)

	err := uc.UpdateSettings(context.Background(), &domain.TenantSettings{
		TenantID:          "t1",
		EmbeddingProvider: "gemini",
		APIKeys:           map[domain.Provider]string{domain.ProviderOpenAI: " sk-new ", domain.ProviderGoogle: ""},
	})
	if err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	got, _ := uc.GetSettings(context.Background(), "t1")
	if got.ChatModel != "gpt-4o-mini" || got.EmbeddingProvider != domain.ProviderGoogle {
		t.Fatalf("unexpected merge %+v", got)
	}
	if got.APIKeys[domain.ProviderOpenAI] != "sk-new" {
		t.Fatalf("expected rotated key, got %q", got.APIKeys[domain.ProviderOpenAI])
	}
	if _, ok := got.APIKeys[domain.ProviderGoogle]; ok {
		t.Fatalf("expected google key removed")
	}
}

func TestUpdateSettingsProviderSwitchDropsStaleModel(t *testing.T) {
	repo := &settingsRepoFake{stored: map[string]domain.TenantSettings{
		"t1": {
			TenantID:          "t1",
			ChatProvider:      domain.ProviderOpenAI,
			ChatModel:         "gpt-4o-mini",
			EmbeddingProvider: domain.ProviderOpenAI,
			EmbeddingModel:    "text-embedding-3-small",
		},
	}}
	uc := NewTenantSettingsUseCase(repo)
	ctx := context.Background()

	if err := uc.UpdateSettings(ctx, &domain.TenantSettings{TenantID: "t1", ChatProvider: domain.ProviderAnthropic}); err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	got := repo.stored["t1"]
	if got.ChatProvider != domain.ProviderAnthropic || got.ChatModel != "" {
		t.Fatalf("expected anthropic with no model, got %q/%q", got.ChatProvider, got.ChatModel)
	}
	if got.EmbeddingModel != "text-embedding-3-small" {
		t.Fatalf("embedding settings changed: %+v", got)
	}

	err := uc.UpdateSettings(ctx, &domain.TenantSettings{
		TenantID:          "t1",
		EmbeddingProvider: domain.ProviderOllama,
		EmbeddingModel:    "nomic-embed-text",
		ChatProvider:      domain.ProviderAnthropic,
	})
	if err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	got = repo.stored["t1"]
	if got.EmbeddingProvider != domain.ProviderOllama || got.EmbeddingModel != "nomic-embed-text" {
		t.Fatalf("expected supplied model kept on switch, got %q/%q", got.EmbeddingProvider, got.EmbeddingModel)
	}

	if err := uc.UpdateSettings(ctx, &domain.TenantSettings{TenantID: "t1", ChatModel: "claude-3-5-haiku-latest"}); err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	if m := repo.stored["t1"].ChatModel; m != "claude-3-5-haiku-latest" {
		t.Fatalf("expected model-only update, got %q", m)
	}
}

func TestUpdateSettingsCreatesAndValidates(t *testing.T) {
	repo := &settingsRepoFake{}
	uc := NewTenantSettingsUseCase(repo)

	if err := uc.UpdateSettings(context.Background(), &domain.TenantSettings{TenantID: "t2", ChatProvider: domain.ProviderAnthropic}); err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	if repo.stored["t2"].ChatProvider != domain.ProviderAnthropic {
		t.Fatalf("expected new settings stored")
	}

	bad := []*domain.TenantSettings{
		nil,
		{TenantID: "t 2"},
		{TenantID: "t2", ChatProvider: "mistral"},
		{TenantID: "t2", EmbeddingProvider: domain.ProviderAnthropic},
	}
	for i, s := range bad {
		if err := uc.UpdateSettings(context.Background(), s); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("case %d: expected invalid input, got %v", i, err)
		}
	}
}
