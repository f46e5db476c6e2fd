package query

import (
	"sync"

	"github.com/urbanmart/sales-dashboard/internal/dataset"
	"github.com/urbanmart/sales-dashboard/internal/domain"
)

// Cache memoizes filtered row sets per criteria fingerprint. It is scoped to
// one immutable table; replacing the table means building a new Cache, which
// is the only invalidation. Safe for concurrent use: the base table is
// read-only and cached slices are handed out as read-only views.
type Cache struct {
	table *dataset.Table

	mu      sync.RWMutex
	entries map[string][]domain.TransactionLine
}

// NewCache wraps a loaded table with a filter-result cache.
func NewCache(t *dataset.Table) *Cache {
	return &Cache{
		table:   t,
		entries: make(map[string][]domain.TransactionLine),
	}
}

// Table returns the wrapped base table.
func (c *Cache) Table() *dataset.Table { return c.table }

// Filter returns the rows matching the criteria, serving repeated criteria
// from memory. Validation errors are never cached.
func (c *Cache) Filter(criteria Criteria) ([]domain.TransactionLine, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}
	key := criteria.Fingerprint()

	c.mu.RLock()
	rows, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return rows, nil
	}

	rows, err := Filter(c.table, criteria)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = rows
	c.mu.Unlock()
	return rows, nil
}

// Len reports the number of cached criteria evaluations.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
