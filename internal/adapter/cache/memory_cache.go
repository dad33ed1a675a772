package cache

import (
	"sync"

	"github.com/example/orders-service/internal/domain"
)

// MemoryOrderCache — кэш заказов в памяти поверх репозитория.
// Запись сквозная: пишет use case после успешной записи в хранилище.
type MemoryOrderCache struct {
	mu    sync.RWMutex
	store map[int64]domain.Order
}

func NewMemoryOrderCache() *MemoryOrderCache {
	return &MemoryOrderCache{store: make(map[int64]domain.Order)}
}

func (c *MemoryOrderCache) Get(id int64) (domain.Order, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.store[id]
	return o, ok
}

func (c *MemoryOrderCache) Set(o domain.Order) {
	c.mu.Lock()
	c.store[o.ID] = o
	c.mu.Unlock()
}

func (c *MemoryOrderCache) Delete(id int64) {
	c.mu.Lock()
	delete(c.store, id)
	c.mu.Unlock()
}

func (c *MemoryOrderCache) All() []domain.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Order, 0, len(c.store))
	for _, o := range c.store {
		out = append(out, o)
	}
	return out
}

var _ domain.OrderCache = (*MemoryOrderCache)(nil)
