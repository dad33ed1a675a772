package cache

import (
	"sync"
	"testing"

	"github.com/example/orders-service/internal/domain"
)

func TestMemoryOrderCache(t *testing.T) {
	c := NewMemoryOrderCache()

	if _, ok := c.Get(1); ok {
		t.Error("empty cache must not return orders")
	}

	c.Set(domain.Order{ID: 1, CustomerID: 2, OrderDate: "2024-01-01"})
	o, ok := c.Get(1)
	if !ok {
		t.Fatal("order not found after Set")
	}
	if o.CustomerID != 2 {
		t.Errorf("customer id = %d, want 2", o.CustomerID)
	}

	c.Set(domain.Order{ID: 2})
	if got := len(c.All()); got != 2 {
		t.Errorf("All() = %d orders, want 2", got)
	}

	c.Delete(1)
	if _, ok := c.Get(1); ok {
		t.Error("order still present after Delete")
	}
	c.Delete(42) // no-op
}

func TestMemoryOrderCacheConcurrent(t *testing.T) {
	c := NewMemoryOrderCache()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			c.Set(domain.Order{ID: id})
			c.Get(id)
			c.All()
		}(int64(i))
	}
	wg.Wait()
	if got := len(c.All()); got != 50 {
		t.Errorf("All() = %d orders, want 50", got)
	}
}
