package sqlite

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

func (r *TenantSettingsRepository) Get(ctx context.Context, tenantID string) (*domain.TenantSettings, error) {
	var (
		s             domain.TenantSettings
		chatProvider  string
		embedProvider string
		keys          string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT tenant_id, chat_provider, chat_model, embedding_provider, embedding_model, api_keys, updated_at
		FROM tenant_settings WHERE tenant_id = ?
	`, tenantID).Scan(&s.TenantID, &chatProvider, &s.ChatModel, &embedProvider, &s.EmbeddingModel, &keys, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrTenantSettingsNotFound, "get tenant settings", fmt.Errorf("tenant=%s", tenantID))
		}
		return nil, fmt.Errorf("scan tenant settings: %w", err)
	}
	s.ChatProvider = domain.Provider(chatProvider)
	s.EmbeddingProvider = domain.Provider(embedProvider)
	s.APIKeys = map[domain.Provider]string{}
	if keys != "" {
		if err := json.Unmarshal([]byte(keys), &s.APIKeys); err != nil {
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
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id) DO UPDATE SET
			chat_provider = excluded.chat_provider,
			chat_model = excluded.chat_model,
			embedding_provider = excluded.embedding_provider,
			embedding_model = excluded.embedding_model,
			api_keys = excluded.api_keys,
			updated_at = excluded.updated_at
	`, s.TenantID, string(s.ChatProvider), s.ChatModel, string(s.EmbeddingProvider), s.EmbeddingModel, string(keysJSON), s.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert tenant settings: %w", err)
	}
	return nil
}
