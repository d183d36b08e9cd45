package infrastructure

import (
	"database/sql"
	"time"

	"orderflow/internal/service/order/domain"
)

// ToOrderModel 将领域模型转换为数据库模型
func ToOrderModel(o *domain.Order) *OrderModel {
	m := &OrderModel{
		ID:                    o.ID,
		ShopID:                o.ShopID,
		UserID:                o.UserID,
		Status:                string(o.Status),
		Cart:                  o.Cart,
		ModifiedCart:          o.ModifiedCart,
		ModificationConfirmed: o.ModificationConfirmed,
		Proposals:             o.Proposals,
		TotalPrice:            o.TotalPrice(),
		StockChecked:          o.StockChecked,
		StockOverridden:       o.StockOverridden,
		OutOfStock:            o.OutOfStock,
		PaymentStatus:         o.PaymentStatus,
		CollectionTime:        nullTime(o.CollectionTime),
		CancelReason:          o.CancelReason,
		Version:               o.Version,
		CreatedAt:             o.CreatedAt,
		UpdatedAt:             o.UpdatedAt,
	}
	if v := o.Verification; v != nil {
		m.VerificationCode = sql.NullString{String: v.Code, Valid: true}
		m.VerificationIssuedAt = nullTime(v.IssuedAt)
		m.VerificationConsumed = v.Consumed
		if v.ConsumedAt != nil {
			m.VerificationConsumedAt = nullTime(*v.ConsumedAt)
		}
	}
	return m
}

// ToDomainOrder 将数据库模型转换为领域模型
func ToDomainOrder(m *OrderModel) *domain.Order {
	if m == nil {
		return nil
	}
	o := &domain.Order{
		ID:                    m.ID,
		ShopID:                m.ShopID,
		UserID:                m.UserID,
		Status:                domain.State(m.Status),
		Cart:                  m.Cart,
		ModifiedCart:          m.ModifiedCart,
		ModificationConfirmed: m.ModificationConfirmed,
		Proposals:             m.Proposals,
		StockChecked:          m.StockChecked,
		StockOverridden:       m.StockOverridden,
		OutOfStock:            m.OutOfStock,
		PaymentStatus:         m.PaymentStatus,
		CancelReason:          m.CancelReason,
		Version:               m.Version,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
	if m.CollectionTime.Valid {
		o.CollectionTime = m.CollectionTime.Time
	}
	if m.VerificationCode.Valid {
		v := &domain.Verification{
			OrderID:  m.ID,
			Code:     m.VerificationCode.String,
			Consumed: m.VerificationConsumed,
		}
		if m.VerificationIssuedAt.Valid {
			v.IssuedAt = m.VerificationIssuedAt.Time
		}
		if m.VerificationConsumedAt.Valid {
			t := m.VerificationConsumedAt.Time
			v.ConsumedAt = &t
		}
		o.Verification = v
	}
	return o
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
