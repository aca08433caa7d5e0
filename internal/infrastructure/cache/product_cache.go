package cache

import (
	"sync"
	"time"

	domproduct "github.com/paysys/payment-integration/internal/domain/product"
)

// ProductCache holds one catalog listing with an absolute TTL. It is a pure
// cache-aside collaborator: callers populate it after a successful remote
// fetch and never cache failures.
type ProductCache struct {
	mu        sync.RWMutex
	ttl       time.Duration
	now       func() time.Time
	products  []domproduct.Product
	expiresAt time.Time
}

func NewProductCache(ttl time.Duration) *ProductCache {
	return &ProductCache{
		ttl: ttl,
		now: time.Now,
	}
}

// Get returns the cached listing and whether it is still fresh.
func (c *ProductCache) Get() ([]domproduct.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.products == nil || c.now().After(c.expiresAt) {
		return nil, false
	}
	out := make([]domproduct.Product, len(c.products))
	copy(out, c.products)
	return out, true
}

// Set replaces the cached listing and restarts the TTL.
func (c *ProductCache) Set(products []domproduct.Product) {
	stored := make([]domproduct.Product, len(products))
	copy(stored, products)

	c.mu.Lock()
	c.products = stored
	c.expiresAt = c.now().Add(c.ttl)
	c.mu.Unlock()
}

// SetClock overrides the time source. Tests only.
func (c *ProductCache) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}
