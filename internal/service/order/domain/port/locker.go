package port

import "context"

// OrderLocker 保证同一订单的流转串行执行，不同订单之间互不阻塞。
type OrderLocker interface {
	// Lock 阻塞直到拿到锁或 ctx 结束（此时返回 ctx.Err()）；
	// 返回的 release 必须且只能调用一次。
	Lock(ctx context.Context, orderID string) (release func(), err error)
}
