package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcussviniciusa/lyz.ai-sub000/internal/core/domain"
)

func TestSearchCacheScopesByLimitAndThreshold(t *testing.T) {
	c, clock := newTestCache()
	sc := NewSearchCache(c, 30*time.Second, "")

	low := 0.2
	q := domain.SearchQuery{Text: "ferritin", TenantID: "clinic-a", Limit: 5}
	results := []domain.SearchResult{{DocumentID: "d1", Score: 0.9}}
	sc.Store(q, results)

	got, ok := sc.Lookup(q)
	require.True(t, ok)
	assert.Equal(t, results, got)

	withThreshold := q
	withThreshold.Threshold = &low
	_, ok = sc.Lookup(withThreshold)
	assert.False(t, ok, "threshold is part of the key")

	otherLimit := q
	otherLimit.Limit = 10
	_, ok = sc.Lookup(otherLimit)
	assert.False(t, ok, "limit is part of the key")

	otherTenant := q
	otherTenant.TenantID = "clinic-b"
	_, ok = sc.Lookup(otherTenant)
	assert.False(t, ok)

	clock.Advance(31 * time.Second)
	_, ok = sc.Lookup(q)
	assert.False(t, ok, "entry expires after ttl")
}

func TestSearchCacheReturnsCopies(t *testing.T) {
	c, _ := newTestCache()
	sc := NewSearchCache(c, time.Minute, "")
	q := domain.SearchQuery{Text: "diet", TenantID: "clinic-a", Limit: 3}
	sc.Store(q, []domain.SearchResult{{DocumentID: "d1"}})

	got, _ := sc.Lookup(q)
	got[0].DocumentID = "mutated"

	again, ok := sc.Lookup(q)
	require.True(t, ok)
	assert.Equal(t, "d1", again[0].DocumentID)
}

func TestSearchCacheInvalidateTenant(t *testing.T) {
	c, _ := newTestCache()
	sc := NewSearchCache(c, time.Minute, "global")
	a := domain.SearchQuery{Text: "hormones", TenantID: "clinic-a", Limit: 5}
	b := domain.SearchQuery{Text: "hormones", TenantID: "clinic-b", Limit: 5}
	sc.Store(a, []domain.SearchResult{{DocumentID: "d1"}})
	sc.Store(b, []domain.SearchResult{{DocumentID: "d2"}})

	sc.InvalidateTenant("clinic-a")
	_, ok := sc.Lookup(a)
	assert.False(t, ok, "invalidated tenant misses")
	_, ok = sc.Lookup(b)
	assert.True(t, ok, "other tenants keep their entries")

	sc.Store(a, []domain.SearchResult{{DocumentID: "d3"}})
	got, ok := sc.Lookup(a)
	require.True(t, ok)
	assert.Equal(t, "d3", got[0].DocumentID)

	sc.InvalidateTenant("global")
	_, ok = sc.Lookup(a)
	assert.False(t, ok)
	_, ok = sc.Lookup(b)
	assert.False(t, ok, "global changes reach every tenant")
	assert.Equal(t, 0, c.Len())
}
