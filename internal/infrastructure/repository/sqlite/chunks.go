package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
)

type ChunkRepository struct {
	db *sql.DB
}

func (r *ChunkRepository) InsertBatch(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin chunk tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO document_chunks (id, document_id, tenant_id, chunk_index, content, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocumentID, c.TenantID, c.Index, c.Text,
			float32SliceToBytes(c.Embedding), c.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("insert chunk %d of %s: %w", c.Index, c.DocumentID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunk tx: %w", err)
	}
	return nil
}

func (r *ChunkRepository) DeleteByDocument(ctx context.Context, documentID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = ?`, documentID)
	if err != nil {
		return 0, fmt.Errorf("delete chunks: %w", err)
	}
	return res.RowsAffected()
}

func (r *ChunkRepository) CountByDocument(ctx context.Context, documentID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_chunks WHERE document_id = ?`, documentID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

func (r *ChunkRepository) ListSearchable(ctx context.Context, tenantIDs []string, category string) ([]domain.ChunkCandidate, error) {
	if len(tenantIDs) == 0 {
		return []domain.ChunkCandidate{}, nil
	}
	query := `
		SELECT c.id, c.document_id, c.tenant_id, c.chunk_index, c.content, c.embedding, c.created_at, d.filename, d.category
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.status = ? AND c.tenant_id IN (` + placeholders(len(tenantIDs)) + `)`
	args := []any{string(domain.StatusCompleted)}
	for _, id := range tenantIDs {
		args = append(args, id)
	}
	if category != "" {
		query += " AND d.category = ?"
		args = append(args, category)
	}
	query += " ORDER BY c.document_id, c.chunk_index"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list searchable chunks: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ChunkCandidate, 0)
	for rows.Next() {
		var (
			cand domain.ChunkCandidate
			blob []byte
		)
		if err := rows.Scan(&cand.ID, &cand.DocumentID, &cand.TenantID, &cand.Index, &cand.Text, &blob, &cand.CreatedAt,
			&cand.Filename, &cand.Category); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		cand.Embedding = bytesToFloat32Slice(blob)
		out = append(out, cand)
	}
	return out, rows.Err()
}
