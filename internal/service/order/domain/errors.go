package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrOrderNotFound          = errors.New("order not found")
	ErrOrderExists            = errors.New("order already exists")
	ErrInvalidTransition      = errors.New("invalid transition")
	ErrInvalidProposal        = errors.New("invalid modification proposal")
	ErrCheckUnavailable       = errors.New("availability check unavailable")
	ErrOutOfStock             = errors.New("items out of stock")
	ErrVerificationRequired   = errors.New("verification required")
	ErrVerificationMismatch   = errors.New("verification code mismatch")
	ErrAlreadyConsumed        = errors.New("verification code already consumed")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrInvalidOrder           = errors.New("invalid order")
)

// TransitionError 描述一次被拒绝的流转请求
type TransitionError struct {
	OrderID string
	From    State
	Event   EventKind
	Err     error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("order %s: %s rejected in state %s: %v", e.OrderID, e.Event, e.From, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// StockError 携带库存检查中不可用的商品列表
type StockError struct {
	Unavailable []string
}

func (e *StockError) Error() string {
	return fmt.Sprintf("%v: %s", ErrOutOfStock, strings.Join(e.Unavailable, ","))
}

func (e *StockError) Unwrap() error {
	return ErrOutOfStock
}

// ProposalError 说明替代方案或修改后的购物车为何无效
type ProposalError struct {
	Reason string
}

func (e *ProposalError) Error() string {
	return fmt.Sprintf("%v: %s", ErrInvalidProposal, e.Reason)
}

func (e *ProposalError) Unwrap() error {
	return ErrInvalidProposal
}

func invalidProposal(format string, args ...any) error {
	return &ProposalError{Reason: fmt.Sprintf(format, args...)}
}
