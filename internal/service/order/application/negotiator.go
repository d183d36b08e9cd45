package application

import (
	"time"

	"orderflow/internal/service/order/domain"
)

// ModificationNegotiator 负责替代方案协商：商家提方案，买家回应修改后的购物车
type ModificationNegotiator struct{}

// Propose 校验方案并生成候选购物车，订单进入 AwaitingBuyerDecision
func (ModificationNegotiator) Propose(o *domain.Order, proposals []domain.ModificationProposal, now time.Time) error {
	return o.ProposeAlternatives(proposals, now)
}

// RequestAndPropose 在一次流转中完成 Placed -> AskingAlternatives -> AwaitingBuyerDecision。
// 方案无效时订单保持原状态。
func (n ModificationNegotiator) RequestAndPropose(o *domain.Order, proposals []domain.ModificationProposal, now time.Time) ([]domain.State, error) {
	if err := o.Permit(domain.EventRequestAlternatives); err != nil {
		return nil, err
	}
	if len(proposals) > 0 {
		if err := domain.ValidateProposals(o.Cart, proposals); err != nil {
			return nil, o.Rejection(domain.EventRequestAlternatives, err)
		}
	}
	if err := o.RequestAlternatives(now); err != nil {
		return nil, err
	}
	visited := []domain.State{o.Status}
	if len(proposals) == 0 {
		return visited, nil
	}
	if err := n.Propose(o, proposals, now); err != nil {
		return nil, err
	}
	return append(visited, o.Status), nil
}

// Respond 原样保存买家的购物车，订单进入 NeedsSellerReview
func (ModificationNegotiator) Respond(o *domain.Order, cart []domain.CartLine, now time.Time) error {
	return o.RespondWithModifiedCart(cart, now)
}

// Diff 计算供商家审核的差异
func (ModificationNegotiator) Diff(o *domain.Order) []domain.CartDiffEntry {
	return o.Diff()
}
