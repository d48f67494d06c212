package usecase

import (
	"math"
	"sort"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
)

// CosineSimilarity returns 0 when either vector is empty, has zero magnitude
// or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

type rankParams struct {
	threshold    float64
	limit        int
	globalTenant string
	globalWeight float64
}

// rankCandidates scores every candidate against the query vector and
// returns those at or above the threshold, ordered by score, document id and
// chunk index. Candidates with a different dimension are skipped and counted.
func rankCandidates(query []float32, candidates []domain.ChunkCandidate, p rankParams) ([]domain.SearchResult, int) {
	results := make([]domain.SearchResult, 0, len(candidates))
	skipped := 0
	for _, c := range candidates {
		if len(c.Embedding) != len(query) {
			skipped++
			continue
		}
		score := CosineSimilarity(query, c.Embedding)
		global := c.TenantID == p.globalTenant
		if global && p.globalWeight > 0 {
			score *= p.globalWeight
		}
		if score < p.threshold {
			continue
		}
		results = append(results, domain.SearchResult{
			DocumentID: c.DocumentID,
			ChunkID:    c.ID,
			ChunkIndex: c.Index,
			TenantID:   c.TenantID,
			Filename:   c.Filename,
			Category:   c.Category,
			Text:       c.Text,
			Score:      score,
			Global:     global,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].DocumentID != results[j].DocumentID {
			return results[i].DocumentID < results[j].DocumentID
		}
		return results[i].ChunkIndex < results[j].ChunkIndex
	})

	if p.limit > 0 && len(results) > p.limit {
		results = results[:p.limit]
	}
	return results, skipped
}
