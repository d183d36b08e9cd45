// internal/service/order/domain/state.go
package domain

// State 定义了自提订单的生命周期状态
type State string

const (
	StatePlaced                State = "PLACED"                  // 买家已下单，等待商家处理
	StateAskingAlternatives    State = "ASKING_ALTERNATIVES"     // 商家准备为缺货商品提出替代方案
	StateAwaitingBuyerDecision State = "AWAITING_BUYER_DECISION" // 替代方案已提交，等待买家回应
	StateNeedsSellerReview     State = "NEEDS_SELLER_REVIEW"     // 买家提交了修改后的购物车，等待商家审核
	StateConfirmed             State = "CONFIRMED"               // 商家已接单
	StatePreparing             State = "PREPARING"               // 备货中
	StateReadyForPickup        State = "READY_FOR_PICKUP"        // 可自提，需要核销码
	StateDelivered             State = "DELIVERED"               // 已核销提货（终态）
	StateCancelled             State = "CANCELLED"               // 已取消（终态）
)

// AllStates 按生命周期顺序列出所有状态
var AllStates = []State{
	StatePlaced,
	StateAskingAlternatives,
	StateAwaitingBuyerDecision,
	StateNeedsSellerReview,
	StateConfirmed,
	StatePreparing,
	StateReadyForPickup,
	StateDelivered,
	StateCancelled,
}

func (s State) String() string {
	return string(s)
}

// IsTerminal 终态不再接受任何流转
func (s State) IsTerminal() bool {
	return s == StateDelivered || s == StateCancelled
}

// IsValid 判断是否为已知状态
func (s State) IsValid() bool {
	for _, st := range AllStates {
		if st == s {
			return true
		}
	}
	return false
}

// InNegotiation 协商子流程中的状态，此时 ModifiedCart 必须存在
func (s State) InNegotiation() bool {
	return s == StateAwaitingBuyerDecision || s == StateNeedsSellerReview
}
