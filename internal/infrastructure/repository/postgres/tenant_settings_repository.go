package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
)

type TenantSettingsRepository struct {
	db *sql.DB
}

func NewTenantSettingsRepository(db *sql.DB) *TenantSettingsRepository {
	return &TenantSettingsRepository{db: db}
}

func (r *TenantSettingsRepository) Get(ctx context.Context, tenantID string) (*domain.TenantSettings, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT tenant_id, chat_provider, chat_model, embedding_provider, embedding_model, api_keys, updated_at
FROM tenant_settings
WHERE tenant_id = $1
`, tenantID)

	var (
		s             domain.TenantSettings
		chatProvider  string
		embedProvider string
		keysRaw       []byte
	)
	err := row.Scan(&s.TenantID, &chatProvider, &s.ChatModel, &embedProvider, &s.EmbeddingModel, &keysRaw, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrTenantSettingsNotFound, "get tenant settings", fmt.Errorf("tenant=%s", tenantID))
		}
		return nil, fmt.Errorf("scan tenant settings: %w", err)
	}
	s.ChatProvider = domain.Provider(chatProvider)
	s.EmbeddingProvider = domain.Provider(embedProvider)
	s.APIKeys = map[domain.Provider]string{}
	if len(keysRaw) > 0 {
		if err := json.Unmarshal(keysRaw, &s.APIKeys); err != nil {
			return nil, fmt.Errorf("unmarshal api keys: %w", err)
		}
	}
	return &s, nil
}

func (r *TenantSettingsRepository) Upsert(ctx context.Context, s *domain.TenantSettings) error {
	keys := s.APIKeys
	if keys == nil {
		keys = map[domain.Provider]string{}
	}
	keysJSON, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("marshal api keys: %w", err)
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO tenant_settings (tenant_id, chat_provider, chat_model, embedding_provider, embedding_model, api_keys, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (tenant_id) DO UPDATE SET
	chat_provider = EXCLUDED.chat_provider,
	chat_model = EXCLUDED.chat_model,
	embedding_provider = EXCLUDED.embedding_provider,
	embedding_model = EXCLUDED.embedding_model,
	api_keys = EXCLUDED.api_keys,
	updated_at = EXCLUDED.updated_at
`, s.TenantID, string(s.ChatProvider), s.ChatModel, string(s.EmbeddingProvider), s.EmbeddingModel, keysJSON, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert tenant settings: %w", err)
	}
	return nil
}
