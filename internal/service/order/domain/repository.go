// internal/service/order/domain/repository.go
package domain

import "context"

// OrderRepository 定义了订单聚合的持久化接口。
// 它位于领域层，但由基础设施层实现。
type OrderRepository interface {
	// Create 保存新订单；ID 已存在时返回 ErrOrderExists
	Create(ctx context.Context, order *Order) error

	// FindByID 根据 ID 查找一个订单聚合，不存在时返回 ErrOrderNotFound
	FindByID(ctx context.Context, id string) (*Order, error)

	// Update 以乐观锁方式整体写入订单：
	// 仅当存储中的版本等于 expectedVersion 时才写入，否则返回 ErrConcurrentModification
	Update(ctx context.Context, order *Order, expectedVersion int64) error

	// ListByShop 列出某店铺的订单，status 为空时不过滤
	ListByShop(ctx context.Context, shopID string, status State) ([]*Order, error)
}
