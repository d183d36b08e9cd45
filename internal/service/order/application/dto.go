// internal/service/order/application/dto.go
package application

import (
	"errors"

	"orderflow/internal/service/order/domain"
)

// TransitionResult 是一次流转请求的结果。
// 被拒绝时 Order 是未改变的订单，Unavailable 列出缺货商品（若有）。
type TransitionResult struct {
	Order   *domain.Order
	Pending domain.PendingAction
	// VerificationCode 仅在本次流转签发了新码时返回，且只返回给调用方
	VerificationCode string
	Unavailable      []string
	// Visited 本次流转依次进入的状态
	Visited []domain.State
}

// StockReport 是显式库存检查的结果
type StockReport struct {
	Order        *domain.Order
	Unavailable  []string
	StockChecked bool
}

func rejectedResult(o *domain.Order, err error) *TransitionResult {
	res := &TransitionResult{Order: o, Pending: o.Pending()}
	var se *domain.StockError
	if errors.As(err, &se) {
		res.Unavailable = append([]string(nil), se.Unavailable...)
	}
	return res
}

// Outcome 把错误归类为稳定的标签，用于指标和 API 错误码
func Outcome(err error) string {
	switch {
	case err == nil:
		return "committed"
	case errors.Is(err, domain.ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, domain.ErrCheckUnavailable):
		return "check_unavailable"
	case errors.Is(err, domain.ErrAlreadyConsumed):
		return "already_consumed"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domain.ErrInvalidProposal):
		return "invalid_proposal"
	case errors.Is(err, domain.ErrVerificationMismatch):
		return "verification_mismatch"
	case errors.Is(err, domain.ErrVerificationRequired):
		return "verification_required"
	case errors.Is(err, domain.ErrConcurrentModification):
		return "conflict"
	case errors.Is(err, domain.ErrOrderNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrOrderExists):
		return "already_exists"
	case errors.Is(err, domain.ErrInvalidOrder):
		return "invalid_order"
	}
	return "error"
}
