package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/pgvector/pgvector-go"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
)

type ChunkRepository struct {
	db *sql.DB
}

func NewChunkRepository(db *sql.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// InsertBatch writes all chunks in one transaction.
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

	for _, c := range chunks {
		_, err := tx.ExecContext(ctx, `
INSERT INTO document_chunks (id, document_id, tenant_id, chunk_index, content, embedding, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, c.ID, c.DocumentID, c.TenantID, c.Index, c.Text, pgvector.NewVector(c.Embedding), c.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert chunk %d of %s: %w", c.Index, c.DocumentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chunk tx: %w", err)
	}
	return nil
}

func (r *ChunkRepository) DeleteByDocument(ctx context.Context, documentID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return 0, fmt.Errorf("delete chunks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete chunks rows affected: %w", err)
	}
	return n, nil
}

func (r *ChunkRepository) CountByDocument(ctx context.Context, documentID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_chunks WHERE document_id = $1`, documentID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

// ListSearchable returns every chunk of completed documents in the given
// tenants. Similarity is scored in the application because vectors of
// different dimensions may coexist.
func (r *ChunkRepository) ListSearchable(ctx context.Context, tenantIDs []string, category string) ([]domain.ChunkCandidate, error) {
	if len(tenantIDs) == 0 {
		return []domain.ChunkCandidate{}, nil
	}
	args := []any{string(domain.StatusCompleted)}
	for _, id := range tenantIDs {
		args = append(args, id)
	}
	query := `
SELECT c.id, c.document_id, c.tenant_id, c.chunk_index, c.content, c.embedding, c.created_at, d.filename, d.category
FROM document_chunks c
JOIN documents d ON d.id = c.document_id
WHERE d.status = $1 AND c.tenant_id IN (` + inPlaceholders(2, len(tenantIDs)) + `)
`
	if category != "" {
		args = append(args, category)
		query += "AND d.category = $" + strconv.Itoa(len(args)) + "\n"
	}
	query += "ORDER BY c.document_id, c.chunk_index"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list searchable chunks: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ChunkCandidate, 0)
	for rows.Next() {
		var (
			cand domain.ChunkCandidate
			vec  pgvector.Vector
		)
		if err := rows.Scan(
			&cand.ID, &cand.DocumentID, &cand.TenantID, &cand.Index, &cand.Text, &vec, &cand.CreatedAt,
			&cand.Filename, &cand.Category,
		); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		cand.Embedding = vec.Slice()
		out = append(out, cand)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}
