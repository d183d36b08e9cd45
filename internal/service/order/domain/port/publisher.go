package port

import (
	"context"

	"orderflow/internal/service/order/domain"
)

// StatusPublisher 是状态变更通知的出站端口。
// 只在流转提交之后调用，失败不会回滚流转。
type StatusPublisher interface {
	PublishStatusChanged(ctx context.Context, evt domain.StatusChanged) error
}
