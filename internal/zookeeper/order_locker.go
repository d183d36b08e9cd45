package zookeeper

import (
	"context"

	"orderflow/internal/pkg/logger"
)

// OrderLocker 用 ZooKeeper 锁串行化同一订单的流转
type OrderLocker struct {
	conn *Conn
}

func NewOrderLocker(conn *Conn) *OrderLocker {
	return &OrderLocker{conn: conn}
}

func (o *OrderLocker) Lock(ctx context.Context, orderID string) (func(), error) {
	lock, err := NewDistributedLock(o.conn, "order-"+orderID)
	if err != nil {
		return nil, err
	}
	if err := lock.Lock(ctx); err != nil {
		return nil, err
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("order_id", orderID).Msg("release zookeeper lock")
		}
	}, nil
}
