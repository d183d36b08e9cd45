package infrastructure

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderflow/internal/service/order/domain"
)

func TestMapper_KeepsNegotiationAndVerification(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	o, err := domain.NewOrder(&domain.OrderPlaced{
		OrderID: "o-1", ShopID: "shop-1", UserID: "u-1",
		Cart: []domain.CartLine{{ItemID: "X", UnitPrice: decimal.NewFromInt(4), Quantity: 2}},
	}, now)
	require.NoError(t, err)
	require.NoError(t, o.RequestAlternatives(now))
	require.NoError(t, o.ProposeAlternatives([]domain.ModificationProposal{{ItemID: "X", RequestedQuantity: 1}}, now))
	require.NoError(t, o.RespondWithModifiedCart([]domain.CartLine{{ItemID: "X", UnitPrice: decimal.NewFromInt(4), Quantity: 1}}, now))
	o.RecordStockCheck(nil, false)
	require.NoError(t, o.ConfirmModification(now))
	require.NoError(t, o.Advance(now))
	require.NoError(t, o.Advance(now))
	require.NoError(t, o.IssueVerification("4821", now))

	m := ToOrderModel(o)
	assert.True(t, decimal.NewFromInt(4).Equal(m.TotalPrice))
	assert.False(t, m.CollectionTime.Valid)
	assert.Equal(t, "4821", m.VerificationCode.String)

	back := ToDomainOrder(m)
	assert.Equal(t, domain.StateReadyForPickup, back.Status)
	assert.Equal(t, o.ModifiedCart, back.CartInEffect())
	assert.True(t, back.ModificationConfirmed)
	assert.True(t, back.StockChecked)
	require.NotNil(t, back.Verification)
	assert.Equal(t, "o-1", back.Verification.OrderID)
	assert.True(t, back.Verification.Matches("o-1", "4821"))
	assert.Nil(t, back.Verification.ConsumedAt)
	require.NoError(t, back.CheckInvariants())

	assert.Nil(t, ToDomainOrder(nil))
}
