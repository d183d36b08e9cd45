package infrastructure

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"orderflow/internal/service/order/domain"
)

// MemoryOrderRepository 进程内实现，用于本地运行和测试。
// 读写都经过深拷贝，调用方拿到的订单不会与存储共享内存。
type MemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{orders: make(map[string]*domain.Order)}
}

func (r *MemoryOrderRepository) Create(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.ID]; ok {
		return fmt.Errorf("%w: %s", domain.ErrOrderExists, order.ID)
	}
	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *MemoryOrderRepository) FindByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}
	return o.Clone(), nil
}

func (r *MemoryOrderRepository) Update(_ context.Context, order *domain.Order, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[order.ID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrOrderNotFound, order.ID)
	}
	if stored.Version != expectedVersion {
		return fmt.Errorf("%w: order %s is at version %d, expected %d", domain.ErrConcurrentModification, order.ID, stored.Version, expectedVersion)
	}
	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *MemoryOrderRepository) ListByShop(_ context.Context, shopID string, status domain.State) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Order
	for _, o := range r.orders {
		if o.ShopID != shopID || (status != "" && o.Status != status) {
			continue
		}
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
