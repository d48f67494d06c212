package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/ports"
)

type TenantSettingsUseCase struct {
	repo ports.TenantSettingsRepository
}

func NewTenantSettingsUseCase(repo ports.TenantSettingsRepository) *TenantSettingsUseCase {
	return &TenantSettingsUseCase{repo: repo}
}

func (uc *TenantSettingsUseCase) GetSettings(ctx context.Context, tenantID string) (*domain.TenantSettings, error) {
	if err := domain.ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	return uc.repo.Get(ctx, tenantID)
}

// UpdateSettings merges non-empty fields into the stored settings. An API
// key set to an empty string removes that provider's key.
func (uc *TenantSettingsUseCase) UpdateSettings(ctx context.Context, in *domain.TenantSettings) error {
	if in == nil {
		return domain.WrapError(domain.ErrInvalidInput, "update tenant settings", fmt.Errorf("settings are required"))
	}
	if err := domain.ValidateTenantID(in.TenantID); err != nil {
		return err
	}
	for _, p := range []*domain.Provider{&in.ChatProvider, &in.EmbeddingProvider} {
		if *p == "" {
			continue
		}
		parsed, ok := domain.ParseProvider(string(*p))
		if !ok {
			return domain.WrapError(domain.ErrInvalidInput, "update tenant settings", fmt.Errorf("unknown provider %q", *p))
		}
		*p = parsed
	}
	if in.EmbeddingProvider == domain.ProviderAnthropic {
		return domain.WrapError(domain.ErrInvalidInput, "update tenant settings", fmt.Errorf("provider %q offers no embedding models", in.EmbeddingProvider))
	}

	current, err := uc.repo.Get(ctx, in.TenantID)
	if err != nil {
		if !domain.IsKind(err, domain.ErrTenantSettingsNotFound) {
			return err
		}
		current = &domain.TenantSettings{TenantID: in.TenantID}
	}

	current.ChatProvider, current.ChatModel = mergeProviderModel(
		current.ChatProvider, current.ChatModel, in.ChatProvider, in.ChatModel)
	current.EmbeddingProvider, current.EmbeddingModel = mergeProviderModel(
		current.EmbeddingProvider, current.EmbeddingModel, in.EmbeddingProvider, in.EmbeddingModel)
	if current.APIKeys == nil {
		current.APIKeys = map[domain.Provider]string{}
	}
	for p, key := range in.APIKeys {
		key = strings.TrimSpace(key)
		if key == "" {
			delete(current.APIKeys, p)
			continue
		}
		current.APIKeys[p] = key
	}
	current.UpdatedAt = time.Now().UTC()
	return uc.repo.Upsert(ctx, current)
}

// mergeProviderModel applies an update to one provider/model pair. A model
// belongs to its provider, so switching provider without naming a model
// drops the stored one and the resolver falls back to the provider default.
func mergeProviderModel(provider domain.Provider, model string, nextProvider domain.Provider, nextModel string) (domain.Provider, string) {
	nextModel = strings.TrimSpace(nextModel)
	if nextProvider != "" && nextProvider != provider {
		return nextProvider, nextModel
	}
	if nextModel != "" {
		model = nextModel
	}
	return provider, model
}
