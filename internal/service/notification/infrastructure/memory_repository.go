package infrastructure

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"orderflow/internal/service/notification/domain"
)

// MemoryNotificationRepository 进程内实现，用于本地运行和测试
type MemoryNotificationRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Notification
}

func NewMemoryNotificationRepository() *MemoryNotificationRepository {
	return &MemoryNotificationRepository{items: make(map[string]domain.Notification)}
}

func (r *MemoryNotificationRepository) Create(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[n.ID]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateNotification, n.ID)
	}
	r.items[n.ID] = *n
	return nil
}

func (r *MemoryNotificationRepository) List(_ context.Context, q domain.Query) ([]*domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	needle := strings.ToLower(q.Contains)
	out := make([]*domain.Notification, 0)
	for _, n := range r.items {
		if n.ShopID != q.ShopID {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(n.Message), needle) {
			continue
		}
		n := n
		out = append(out, &n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (r *MemoryNotificationRepository) MarkRead(_ context.Context, shopID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok || n.ShopID != shopID {
		return fmt.Errorf("%w: %s", domain.ErrNotificationNotFound, id)
	}
	n.Read = true
	r.items[id] = n
	return nil
}

func (r *MemoryNotificationRepository) MarkAllRead(_ context.Context, shopID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var changed int64
	for id, n := range r.items {
		if n.ShopID == shopID && !n.Read {
			n.Read = true
			r.items[id] = n
			changed++
		}
	}
	return changed, nil
}

func (r *MemoryNotificationRepository) Delete(_ context.Context, shopID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok || n.ShopID != shopID {
		return fmt.Errorf("%w: %s", domain.ErrNotificationNotFound, id)
	}
	delete(r.items, id)
	return nil
}

func (r *MemoryNotificationRepository) DeleteAll(_ context.Context, shopID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for id, n := range r.items {
		if n.ShopID == shopID {
			delete(r.items, id)
			removed++
		}
	}
	return removed, nil
}
