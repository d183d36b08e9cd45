package domain

import (
	"crypto/subtle"
	"time"
)

// Verification 是绑定到单个订单的一次性提货核销码
type Verification struct {
	OrderID    string
	Code       string
	IssuedAt   time.Time
	Consumed   bool
	ConsumedAt *time.Time
}

// NewVerification 签发一个新的核销码
func NewVerification(orderID, code string, now time.Time) *Verification {
	return &Verification{OrderID: orderID, Code: code, IssuedAt: now}
}

// Matches 以常量时间比较提交的核销码
func (v *Verification) Matches(orderID, code string) bool {
	if v == nil || v.OrderID != orderID || code == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(v.Code), []byte(code)) == 1
}

// Consume 校验并消费核销码；不匹配时不改变任何状态
func (v *Verification) Consume(orderID, code string, now time.Time) error {
	if v == nil {
		return ErrVerificationRequired
	}
	if v.Consumed {
		return ErrAlreadyConsumed
	}
	if !v.Matches(orderID, code) {
		return ErrVerificationMismatch
	}
	v.Consumed = true
	v.ConsumedAt = &now
	return nil
}

func (v *Verification) clone() *Verification {
	if v == nil {
		return nil
	}
	c := *v
	if v.ConsumedAt != nil {
		t := *v.ConsumedAt
		c.ConsumedAt = &t
	}
	return &c
}
