// internal/service/order/domain/event.go
package domain

import (
	"fmt"
	"time"
)

// EventKind 标识一个流转事件的类型
type EventKind string

const (
	EventAccept                       EventKind = "Accept"
	EventReject                       EventKind = "Reject"
	EventRequestAlternatives          EventKind = "RequestAlternatives"
	EventSubmitAlternativesProposal   EventKind = "SubmitAlternativesProposal"
	EventBuyerRespondWithModifiedCart EventKind = "BuyerRespondWithModifiedCart"
	EventConfirmModification          EventKind = "ConfirmModification"
	EventAdvanceStatus                EventKind = "AdvanceStatus"
	EventCancel                       EventKind = "Cancel"
	EventSubmitVerificationCode       EventKind = "SubmitVerificationCode"
)

// ParseEventKind 将外部传入的事件名解析为已知的 EventKind
func ParseEventKind(s string) (EventKind, error) {
	switch k := EventKind(s); k {
	case EventAccept, EventReject, EventRequestAlternatives, EventSubmitAlternativesProposal,
		EventBuyerRespondWithModifiedCart, EventConfirmModification, EventAdvanceStatus,
		EventCancel, EventSubmitVerificationCode:
		return k, nil
	}
	return "", fmt.Errorf("unknown event %q", s)
}

// Event 是一个封闭的事件集合，只有本包内定义的类型可以实现它
type Event interface {
	Kind() EventKind
	isEvent()
}

// Accept 商家接单；Override 仅在允许库存覆盖时生效
type Accept struct {
	Override bool `json:"override,omitempty"`
}

// Reject 商家拒单
type Reject struct {
	Reason string `json:"reason,omitempty"`
}

// RequestAlternatives 商家发起替代方案协商，可以直接附带方案
type RequestAlternatives struct {
	Proposals []ModificationProposal `json:"proposals,omitempty"`
}

// SubmitAlternativesProposal 在 AskingAlternatives 状态下提交替代方案
type SubmitAlternativesProposal struct {
	Proposals []ModificationProposal `json:"proposals"`
}

// BuyerRespondWithModifiedCart 买家提交修改后的购物车
type BuyerRespondWithModifiedCart struct {
	Cart []CartLine `json:"cart"`
}

// ConfirmModification 商家确认买家修改后的购物车
type ConfirmModification struct{}

// AdvanceStatus 推进履约流程
type AdvanceStatus struct{}

// Cancel 任一方取消订单
type Cancel struct {
	Reason string `json:"reason,omitempty"`
}

// SubmitVerificationCode 提交提货核销码
type SubmitVerificationCode struct {
	Code string `json:"code"`
}

func (Accept) Kind() EventKind                       { return EventAccept }
func (Reject) Kind() EventKind                       { return EventReject }
func (RequestAlternatives) Kind() EventKind          { return EventRequestAlternatives }
func (SubmitAlternativesProposal) Kind() EventKind   { return EventSubmitAlternativesProposal }
func (BuyerRespondWithModifiedCart) Kind() EventKind { return EventBuyerRespondWithModifiedCart }
func (ConfirmModification) Kind() EventKind          { return EventConfirmModification }
func (AdvanceStatus) Kind() EventKind                { return EventAdvanceStatus }
func (Cancel) Kind() EventKind                       { return EventCancel }
func (SubmitVerificationCode) Kind() EventKind       { return EventSubmitVerificationCode }

func (Accept) isEvent()                       {}
func (Reject) isEvent()                       {}
func (RequestAlternatives) isEvent()          {}
func (SubmitAlternativesProposal) isEvent()   {}
func (BuyerRespondWithModifiedCart) isEvent() {}
func (ConfirmModification) isEvent()          {}
func (AdvanceStatus) isEvent()                {}
func (Cancel) isEvent()                       {}
func (SubmitVerificationCode) isEvent()       {}

// OrderPlaced 是买家下单后由下游服务投递到 order-placed 主题的消息
type OrderPlaced struct {
	OrderID        string     `json:"orderId"`
	ShopID         string     `json:"shopId"`
	UserID         string     `json:"userId"`
	Cart           []CartLine `json:"cart"`
	PaymentStatus  string     `json:"paymentStatus,omitempty"`
	CollectionTime time.Time  `json:"collectionTime"`
	PlacedAt       time.Time  `json:"placedAt"`
}

// StatusChanged 在每次状态流转提交后发布，不包含核销码
type StatusChanged struct {
	OrderID        string    `json:"orderId"`
	ShopID         string    `json:"shopId"`
	UserID         string    `json:"userId"`
	PreviousStatus State     `json:"previousStatus"`
	NewStatus      State     `json:"newStatus"`
	Event          EventKind `json:"event"`
	Timestamp      time.Time `json:"timestamp"`
}
