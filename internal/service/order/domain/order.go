// internal/service/order/domain/order.go
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Order 是订单聚合的根实体，也是订单状态的唯一权威来源
type Order struct {
	ID     string
	ShopID string
	UserID string
	Status State

	// Cart 是下单时的原始购物车，创建后不再改变
	Cart Cart
	// ModifiedCart 是协商中的候选购物车，nil 表示未定义
	ModifiedCart Cart
	// ModificationConfirmed 为 true 时 ModifiedCart 成为生效的购物车
	ModificationConfirmed bool
	Proposals             []ModificationProposal

	// StockChecked 记录待审购物车是否已通过库存检查（或被覆盖）
	StockChecked    bool
	OutOfStock      []string
	StockOverridden bool

	Verification *Verification

	PaymentStatus  string
	CollectionTime time.Time
	CancelReason   string

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PendingAction 描述订单当前在等待哪一方的什么动作
type PendingAction string

const (
	PendingNone                 PendingAction = "none"
	PendingAlternativesProposal PendingAction = "awaiting_alternatives_proposal"
	PendingBuyerDecision        PendingAction = "awaiting_buyer_decision"
	PendingSellerReview         PendingAction = "awaiting_seller_review"
	PendingVerificationCode     PendingAction = "awaiting_verification_code"
)

// NewOrder 工厂函数：根据下单消息创建一个处于 Placed 状态的订单
func NewOrder(evt *OrderPlaced, now time.Time) (*Order, error) {
	if evt == nil || evt.OrderID == "" || evt.ShopID == "" || evt.UserID == "" {
		return nil, fmt.Errorf("%w: order id, shop id and user id are required", ErrInvalidOrder)
	}
	if len(evt.Cart) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", ErrInvalidOrder)
	}
	cart := Cart(evt.Cart).Clone()
	if err := cart.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}
	createdAt := evt.PlacedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	return &Order{
		ID:             evt.OrderID,
		ShopID:         evt.ShopID,
		UserID:         evt.UserID,
		Status:         StatePlaced,
		Cart:           cart,
		PaymentStatus:  evt.PaymentStatus,
		CollectionTime: evt.CollectionTime,
		Version:        1,
		CreatedAt:      createdAt,
		UpdatedAt:      now,
	}, nil
}

// Clone 深拷贝，应用层在副本上执行流转，失败时原订单保持不变
func (o *Order) Clone() *Order {
	c := *o
	c.Cart = o.Cart.Clone()
	c.ModifiedCart = o.ModifiedCart.Clone()
	if o.Proposals != nil {
		c.Proposals = make([]ModificationProposal, len(o.Proposals))
		for i, p := range o.Proposals {
			if p.Images != nil {
				p.Images = append([]string(nil), p.Images...)
			}
			c.Proposals[i] = p
		}
	}
	if o.OutOfStock != nil {
		c.OutOfStock = append([]string(nil), o.OutOfStock...)
	}
	c.Verification = o.Verification.clone()
	return &c
}

// CartInEffect 当前生效的购物车：确认修改后为 ModifiedCart，否则为原购物车
func (o *Order) CartInEffect() Cart {
	if o.ModificationConfirmed && o.ModifiedCart != nil {
		return o.ModifiedCart
	}
	return o.Cart
}

// CartUnderReview 库存检查所针对的购物车
func (o *Order) CartUnderReview() Cart {
	if o.ModifiedCart != nil && !o.ModificationConfirmed {
		return o.ModifiedCart
	}
	return o.CartInEffect()
}

// TotalPrice 生效购物车的总价
func (o *Order) TotalPrice() decimal.Decimal {
	return o.CartInEffect().Total()
}

// Diff 原购物车与修改后购物车之间的差异；未定义修改时返回 nil
func (o *Order) Diff() []CartDiffEntry {
	if o.ModifiedCart == nil {
		return nil
	}
	return Diff(o.Cart, o.ModifiedCart)
}

// Pending 推导当前等待的动作
func (o *Order) Pending() PendingAction {
	switch o.Status {
	case StateAskingAlternatives:
		return PendingAlternativesProposal
	case StateAwaitingBuyerDecision:
		return PendingBuyerDecision
	case StateNeedsSellerReview:
		return PendingSellerReview
	case StateReadyForPickup:
		return PendingVerificationCode
	}
	return PendingNone
}

func (o *Order) rejection(kind EventKind, err error) error {
	return &TransitionError{OrderID: o.ID, From: o.Status, Event: kind, Err: err}
}

// Permit 判断当前状态能否接受某事件（不含守卫），不能时返回 *TransitionError
func (o *Order) Permit(kind EventKind) error {
	if _, ok := NextState(o.Status, kind); ok {
		return nil
	}
	if o.Status == StateDelivered && kind == EventSubmitVerificationCode {
		return o.rejection(kind, errors.Join(ErrAlreadyConsumed, ErrInvalidTransition))
	}
	return o.rejection(kind, ErrInvalidTransition)
}

// Rejection 把一个守卫失败包装为针对当前状态的 *TransitionError
func (o *Order) Rejection(kind EventKind, err error) error {
	var te *TransitionError
	if errors.As(err, &te) {
		return err
	}
	return o.rejection(kind, err)
}

// transition 查表并推进状态
func (o *Order) transition(kind EventKind, now time.Time) error {
	if err := o.Permit(kind); err != nil {
		return err
	}
	to, _ := NextState(o.Status, kind)
	o.Status = to
	o.UpdatedAt = now
	return nil
}

// Allows 判断当前状态能否接受某事件（不含守卫）
func (o *Order) Allows(kind EventKind) bool {
	_, ok := NextState(o.Status, kind)
	return ok
}

// RecordStockCheck 记住一次通过（或被覆盖）的库存检查结果
func (o *Order) RecordStockCheck(outOfStock []string, overridden bool) {
	o.StockChecked = true
	o.StockOverridden = overridden
	if len(outOfStock) == 0 {
		o.OutOfStock = nil
		return
	}
	o.OutOfStock = append([]string(nil), outOfStock...)
}

// NoteStockShortage 记录最近一次检查发现的缺货商品，不视为通过
func (o *Order) NoteStockShortage(outOfStock []string) {
	o.StockChecked = false
	o.StockOverridden = false
	o.OutOfStock = append([]string(nil), outOfStock...)
}

func (o *Order) resetStockCheck() {
	o.StockChecked = false
	o.StockOverridden = false
	o.OutOfStock = nil
}

// Accept 商家接单，调用方必须先完成库存守卫
func (o *Order) Accept(now time.Time) error {
	return o.transition(EventAccept, now)
}

// Reject 商家在 Placed 或 NeedsSellerReview 状态拒单
func (o *Order) Reject(reason string, now time.Time) error {
	if err := o.transition(EventReject, now); err != nil {
		return err
	}
	o.CancelReason = reason
	return nil
}

// RequestAlternatives 进入 AskingAlternatives，ModifiedCart 保持未定义
func (o *Order) RequestAlternatives(now time.Time) error {
	return o.transition(EventRequestAlternatives, now)
}

// ProposeAlternatives 记录替代方案并生成候选购物车
func (o *Order) ProposeAlternatives(proposals []ModificationProposal, now time.Time) error {
	if err := o.Permit(EventSubmitAlternativesProposal); err != nil {
		return err
	}
	if err := ValidateProposals(o.Cart, proposals); err != nil {
		return o.rejection(EventSubmitAlternativesProposal, err)
	}
	o.Proposals = NormalizeProposals(o.Cart, proposals)
	o.ModifiedCart = ApplyProposals(o.Cart, proposals)
	o.ModificationConfirmed = false
	o.resetStockCheck()
	return o.transition(EventSubmitAlternativesProposal, now)
}

// RespondWithModifiedCart 原样保存买家提交的购物车，并使之前的库存检查失效
func (o *Order) RespondWithModifiedCart(cart []CartLine, now time.Time) error {
	if err := o.Permit(EventBuyerRespondWithModifiedCart); err != nil {
		return err
	}
	if len(cart) == 0 {
		return o.rejection(EventBuyerRespondWithModifiedCart, invalidProposal("modified cart is empty"))
	}
	modified := Cart(cart).Clone()
	if err := modified.Validate(); err != nil {
		return o.rejection(EventBuyerRespondWithModifiedCart, invalidProposal("%v", err))
	}
	o.ModifiedCart = modified
	o.ModificationConfirmed = false
	o.resetStockCheck()
	return o.transition(EventBuyerRespondWithModifiedCart, now)
}

// ConfirmModification 商家确认修改后的购物车，调用方必须先完成库存守卫
func (o *Order) ConfirmModification(now time.Time) error {
	if o.Status == StateNeedsSellerReview && o.ModifiedCart == nil {
		return o.rejection(EventConfirmModification, ErrInvalidTransition)
	}
	if err := o.transition(EventConfirmModification, now); err != nil {
		return err
	}
	o.ModificationConfirmed = true
	return nil
}

// Advance 推进履约：Confirmed -> Preparing -> ReadyForPickup；
// 在 ReadyForPickup 状态下必须先通过核销
func (o *Order) Advance(now time.Time) error {
	if o.Status == StateReadyForPickup && (o.Verification == nil || !o.Verification.Consumed) {
		return o.rejection(EventAdvanceStatus, ErrVerificationRequired)
	}
	return o.transition(EventAdvanceStatus, now)
}

// IssueVerification 签发新的核销码，旧码随之失效
func (o *Order) IssueVerification(code string, now time.Time) error {
	if o.Status != StateReadyForPickup {
		return o.rejection(EventAdvanceStatus, ErrInvalidTransition)
	}
	o.Verification = NewVerification(o.ID, code, now)
	return nil
}

// Deliver 消费核销码并完成交付，两者同时生效
func (o *Order) Deliver(code string, now time.Time) error {
	if err := o.Permit(EventSubmitVerificationCode); err != nil {
		return err
	}
	if err := o.Verification.Consume(o.ID, code, now); err != nil {
		return o.rejection(EventSubmitVerificationCode, err)
	}
	return o.transition(EventSubmitVerificationCode, now)
}

// Cancel 任意非终态均可取消
func (o *Order) Cancel(reason string, now time.Time) error {
	if err := o.transition(EventCancel, now); err != nil {
		return err
	}
	o.CancelReason = reason
	return nil
}

// CheckInvariants 校验聚合的结构性约束
func (o *Order) CheckInvariants() error {
	if !o.Status.IsValid() {
		return fmt.Errorf("unknown status %q", o.Status)
	}
	if o.Status.InNegotiation() && o.ModifiedCart == nil {
		return fmt.Errorf("status %s requires a modified cart", o.Status)
	}
	if o.ModificationConfirmed && o.ModifiedCart == nil {
		return errors.New("confirmed modification without a modified cart")
	}
	consumed := o.Verification != nil && o.Verification.Consumed
	if consumed != (o.Status == StateDelivered) {
		return fmt.Errorf("verification consumed=%v in status %s", consumed, o.Status)
	}
	if o.Status == StateReadyForPickup && o.Verification == nil {
		return errors.New("ready for pickup without a verification code")
	}
	return nil
}
