// internal/service/notification/domain/notification.go
package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	orderdomain "orderflow/internal/service/order/domain"
)

var (
	ErrNotificationNotFound  = errors.New("notification not found")
	ErrDuplicateNotification = errors.New("notification already recorded")
	ErrInvalidFilter         = errors.New("invalid filter expression")
)

// namespace 用于从 (orderId, status, timestamp) 派生确定性的通知 ID
var namespace = uuid.MustParse("6f1c9a52-3b0e-4c61-9d5a-2f7e8b4c1a90")

// Notification 是商家收件箱中的一条订单通知
type Notification struct {
	ID        string
	ShopID    string
	OrderID   string
	Status    orderdomain.State
	Message   string
	Read      bool
	CreatedAt time.Time
}

// FromStatusChanged 根据状态变更事件生成通知。同一事件重复投递会得到相同的 ID。
func FromStatusChanged(evt orderdomain.StatusChanged) (*Notification, error) {
	if evt.OrderID == "" || evt.ShopID == "" || !evt.NewStatus.IsValid() {
		return nil, fmt.Errorf("incomplete status change for order %q", evt.OrderID)
	}
	key := strings.Join([]string{evt.OrderID, string(evt.NewStatus), evt.Timestamp.UTC().Format(time.RFC3339Nano)}, "|")
	return &Notification{
		ID:        uuid.NewSHA1(namespace, []byte(key)).String(),
		ShopID:    evt.ShopID,
		OrderID:   evt.OrderID,
		Status:    evt.NewStatus,
		Message:   MessageFor(evt.OrderID, evt.NewStatus),
		CreatedAt: evt.Timestamp,
	}, nil
}

// MessageFor 生成展示给商家的通知文案
func MessageFor(orderID string, status orderdomain.State) string {
	switch status {
	case orderdomain.StatePlaced:
		return fmt.Sprintf("New order %s received", orderID)
	case orderdomain.StateAskingAlternatives:
		return fmt.Sprintf("Order %s is waiting for your alternatives proposal", orderID)
	case orderdomain.StateAwaitingBuyerDecision:
		return fmt.Sprintf("Alternatives for order %s sent to the buyer", orderID)
	case orderdomain.StateNeedsSellerReview:
		return fmt.Sprintf("Buyer modified the cart of order %s, review needed", orderID)
	case orderdomain.StateConfirmed:
		return fmt.Sprintf("Order %s confirmed", orderID)
	case orderdomain.StatePreparing:
		return fmt.Sprintf("Order %s is being prepared", orderID)
	case orderdomain.StateReadyForPickup:
		return fmt.Sprintf("Order %s is ready for pickup", orderID)
	case orderdomain.StateDelivered:
		return fmt.Sprintf("Order %s delivered", orderID)
	case orderdomain.StateCancelled:
		return fmt.Sprintf("Order %s cancelled", orderID)
	}
	return fmt.Sprintf("Order %s changed to %s", orderID, status)
}

// Query 描述一次收件箱查询；Contains 为空时不过滤
type Query struct {
	ShopID   string
	Contains string
	Limit    int
}

// Repository 是收件箱的唯一权威存储
type Repository interface {
	// Create 保存通知；ID 已存在时返回 ErrDuplicateNotification
	Create(ctx context.Context, n *Notification) error
	// List 按创建时间倒序返回
	List(ctx context.Context, q Query) ([]*Notification, error)
	MarkRead(ctx context.Context, shopID, id string) error
	MarkAllRead(ctx context.Context, shopID string) (int64, error)
	Delete(ctx context.Context, shopID, id string) error
	DeleteAll(ctx context.Context, shopID string) (int64, error)
}

// Filter 是对单条通知求值的谓词
type Filter interface {
	Match(n *Notification) (bool, error)
}
