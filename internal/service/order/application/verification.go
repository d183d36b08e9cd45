package application

import (
	"errors"
	"fmt"
	"time"

	"orderflow/internal/pkg/metrics"
	"orderflow/internal/service/order/domain"
	"orderflow/internal/service/order/domain/port"
)

// VerificationGate 签发并校验一次性提货核销码
type VerificationGate struct {
	codes   port.CodeGenerator
	metrics *metrics.OrderMetrics
}

func NewVerificationGate(codes port.CodeGenerator, m *metrics.OrderMetrics) *VerificationGate {
	return &VerificationGate{codes: codes, metrics: m}
}

// Issue 为处于 ReadyForPickup 的订单签发新码，之前的码随之失效
func (g *VerificationGate) Issue(o *domain.Order, now time.Time) (string, error) {
	code, err := g.codes.NewCode()
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	if err := o.IssueVerification(code, now); err != nil {
		return "", err
	}
	return code, nil
}

// Verify 消费核销码并完成交付；不匹配时订单与核销码都不变
func (g *VerificationGate) Verify(o *domain.Order, code string, now time.Time) error {
	err := o.Deliver(code, now)
	switch {
	case err == nil:
		g.metrics.Verification("accepted")
	case errors.Is(err, domain.ErrVerificationMismatch):
		g.metrics.Verification("mismatch")
	case errors.Is(err, domain.ErrAlreadyConsumed):
		g.metrics.Verification("already_consumed")
	default:
		g.metrics.Verification("rejected")
	}
	return err
}
