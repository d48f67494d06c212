package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
)

// SearchCache stores ranked search results per normalized query. Keys carry
// the tenant's generation, so InvalidateTenant orphans every earlier entry
// of that tenant; orphans age out with the next sweep.
type SearchCache struct {
	cache        *Cache
	ttl          time.Duration
	globalTenant string

	mu          sync.Mutex
	generations map[string]uint64
}

// NewSearchCache wraps cache. Results of every tenant include the global
// tenant's chunks, so invalidating globalTenant drops the whole cache.
func NewSearchCache(cache *Cache, ttl time.Duration, globalTenant string) *SearchCache {
	if globalTenant == "" {
		globalTenant = domain.GlobalTenantID
	}
	return &SearchCache{
		cache:        cache,
		ttl:          ttl,
		globalTenant: globalTenant,
		generations:  make(map[string]uint64),
	}
}

func (s *SearchCache) Lookup(query domain.SearchQuery) ([]domain.SearchResult, bool) {
	raw, ok := s.cache.Get(s.key(query))
	if !ok {
		return nil, false
	}
	results, ok := raw.([]domain.SearchResult)
	if !ok {
		return nil, false
	}
	return append([]domain.SearchResult(nil), results...), true
}

func (s *SearchCache) Store(query domain.SearchQuery, results []domain.SearchResult) {
	s.cache.Set(s.key(query), append([]domain.SearchResult{}, results...), s.ttl)
}

// InvalidateTenant makes every cached result of tenantID unreachable.
func (s *SearchCache) InvalidateTenant(tenantID string) {
	if tenantID == s.globalTenant {
		s.cache.Clear()
		return
	}
	s.mu.Lock()
	s.generations[tenantID]++
	s.mu.Unlock()
}

func (s *SearchCache) key(q domain.SearchQuery) string {
	s.mu.Lock()
	gen := s.generations[q.TenantID]
	s.mu.Unlock()

	threshold := "default"
	if q.Threshold != nil {
		threshold = fmt.Sprintf("%.4f", *q.Threshold)
	}
	return fmt.Sprintf("%s:%d:%s:g%d", SearchKey(q.Text, q.Category, q.TenantID), q.Limit, threshold, gen)
}
