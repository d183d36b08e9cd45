package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func placed(t *testing.T, cart ...CartLine) *Order {
	t.Helper()
	if len(cart) == 0 {
		cart = []CartLine{{ItemID: "X", Name: "Milk", UnitPrice: decimal.NewFromInt(3), Quantity: 2}}
	}
	o, err := NewOrder(&OrderPlaced{OrderID: "o-1", ShopID: "shop-1", UserID: "u-1", Cart: cart}, now)
	require.NoError(t, err)
	require.NoError(t, o.CheckInvariants())
	return o
}

func TestNewOrder_Validation(t *testing.T) {
	_, err := NewOrder(nil, now)
	assert.ErrorIs(t, err, ErrInvalidOrder)

	_, err = NewOrder(&OrderPlaced{OrderID: "o-1", ShopID: "s", UserID: "u"}, now)
	assert.ErrorIs(t, err, ErrInvalidOrder)

	_, err = NewOrder(&OrderPlaced{OrderID: "o-1", ShopID: "s", UserID: "u", Cart: []CartLine{{ItemID: "X"}}}, now)
	assert.ErrorIs(t, err, ErrInvalidOrder)

	o := placed(t)
	assert.Equal(t, StatePlaced, o.Status)
	assert.Equal(t, int64(1), o.Version)
	assert.Nil(t, o.ModifiedCart)
	assert.Equal(t, now, o.CreatedAt)
}

func TestOrder_LinearPath(t *testing.T) {
	o := placed(t)

	require.NoError(t, o.Accept(now))
	require.NoError(t, o.Advance(now))
	assert.Equal(t, StatePreparing, o.Status)
	require.NoError(t, o.Advance(now))
	assert.Equal(t, StateReadyForPickup, o.Status)

	require.NoError(t, o.IssueVerification("4821", now))
	assert.Equal(t, PendingVerificationCode, o.Pending())
	require.NoError(t, o.CheckInvariants())

	require.NoError(t, o.Deliver("4821", now))
	assert.Equal(t, StateDelivered, o.Status)
	assert.True(t, o.Verification.Consumed)
	require.NotNil(t, o.Verification.ConsumedAt)
	require.NoError(t, o.CheckInvariants())
	assert.True(t, decimal.NewFromInt(6).Equal(o.TotalPrice()))
}

func TestOrder_AlternativesFlow(t *testing.T) {
	o := placed(t, CartLine{ItemID: "X", Quantity: 2})

	require.NoError(t, o.RequestAlternatives(now))
	assert.Equal(t, StateAskingAlternatives, o.Status)
	assert.Nil(t, o.ModifiedCart)

	o.RecordStockCheck(nil, false)
	require.NoError(t, o.ProposeAlternatives([]ModificationProposal{{ItemID: "X", RequestedQuantity: 1, Note: "low stock"}}, now))
	assert.Equal(t, StateAwaitingBuyerDecision, o.Status)
	assert.False(t, o.StockChecked)
	assert.Equal(t, 2, o.Proposals[0].OriginalQuantity)
	assert.Equal(t, Cart{{ItemID: "X", Quantity: 1}}, o.ModifiedCart)
	require.NoError(t, o.CheckInvariants())

	require.NoError(t, o.RespondWithModifiedCart([]CartLine{{ItemID: "X", Quantity: 1}, {ItemID: "Y", Quantity: 1}}, now))
	assert.Equal(t, StateNeedsSellerReview, o.Status)
	assert.False(t, o.StockChecked)
	assert.Equal(t, Cart{{ItemID: "X", Quantity: 2}}, o.CartInEffect())
	assert.Equal(t, Cart{{ItemID: "X", Quantity: 1}, {ItemID: "Y", Quantity: 1}}, o.CartUnderReview())

	require.NoError(t, o.ConfirmModification(now))
	assert.Equal(t, StateConfirmed, o.Status)
	assert.Equal(t, Cart{{ItemID: "X", Quantity: 2}}, o.Cart)
	assert.Equal(t, o.ModifiedCart, o.CartInEffect())
	require.NoError(t, o.CheckInvariants())
}

func TestOrder_CancelFromEveryNonTerminalState(t *testing.T) {
	reach := map[State]func(t *testing.T, o *Order){
		StatePlaced:             func(*testing.T, *Order) {},
		StateAskingAlternatives: func(t *testing.T, o *Order) { require.NoError(t, o.RequestAlternatives(now)) },
		StateAwaitingBuyerDecision: func(t *testing.T, o *Order) {
			require.NoError(t, o.RequestAlternatives(now))
			require.NoError(t, o.ProposeAlternatives([]ModificationProposal{{ItemID: "X", RequestedQuantity: 1}}, now))
		},
		StateNeedsSellerReview: func(t *testing.T, o *Order) {
			require.NoError(t, o.RequestAlternatives(now))
			require.NoError(t, o.ProposeAlternatives([]ModificationProposal{{ItemID: "X", RequestedQuantity: 1}}, now))
			require.NoError(t, o.RespondWithModifiedCart([]CartLine{{ItemID: "X", Quantity: 1}}, now))
		},
		StateConfirmed: func(t *testing.T, o *Order) { require.NoError(t, o.Accept(now)) },
		StatePreparing: func(t *testing.T, o *Order) {
			require.NoError(t, o.Accept(now))
			require.NoError(t, o.Advance(now))
		},
		StateReadyForPickup: func(t *testing.T, o *Order) {
			require.NoError(t, o.Accept(now))
			require.NoError(t, o.Advance(now))
			require.NoError(t, o.Advance(now))
			require.NoError(t, o.IssueVerification("1111", now))
		},
	}
	for st, setup := range reach {
		t.Run(string(st), func(t *testing.T) {
			o := placed(t)
			setup(t, o)
			require.Equal(t, st, o.Status)

			require.NoError(t, o.Cancel("buyer changed mind", now))
			assert.Equal(t, StateCancelled, o.Status)
			assert.Equal(t, "buyer changed mind", o.CancelReason)
			require.NoError(t, o.CheckInvariants())

			assert.ErrorIs(t, o.Cancel("again", now), ErrInvalidTransition)
			assert.Equal(t, "buyer changed mind", o.CancelReason)
		})
	}
}

func TestOrder_RejectOnlyFromPlacedOrReview(t *testing.T) {
	o := placed(t)
	require.NoError(t, o.Reject("closed", now))
	assert.Equal(t, StateCancelled, o.Status)

	o = placed(t)
	require.NoError(t, o.Accept(now))
	err := o.Reject("too late", now)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateConfirmed, o.Status)

	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, StateConfirmed, te.From)
	assert.Equal(t, EventReject, te.Event)
}

func TestOrder_ProposalValidation(t *testing.T) {
	tests := []struct {
		name      string
		proposals []ModificationProposal
	}{
		{"empty", nil},
		{"unknown item", []ModificationProposal{{ItemID: "Q", RequestedQuantity: 1}}},
		{"zero quantity", []ModificationProposal{{ItemID: "X", RequestedQuantity: 0}}},
		{"above original", []ModificationProposal{{ItemID: "X", RequestedQuantity: 3}}},
		{"duplicate", []ModificationProposal{{ItemID: "X", RequestedQuantity: 1}, {ItemID: "X", RequestedQuantity: 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := placed(t)
			require.NoError(t, o.RequestAlternatives(now))
			before := o.Clone()

			err := o.ProposeAlternatives(tt.proposals, now)
			assert.ErrorIs(t, err, ErrInvalidProposal)
			assert.Equal(t, before, o)
		})
	}

	o := placed(t)
	require.NoError(t, o.RequestAlternatives(now))
	assert.NoError(t, o.ProposeAlternatives([]ModificationProposal{{ItemID: "X", RequestedQuantity: 2}}, now))
}

func TestOrder_RespondRejectsMalformedCart(t *testing.T) {
	o := placed(t)
	require.NoError(t, o.RequestAlternatives(now))
	require.NoError(t, o.ProposeAlternatives([]ModificationProposal{{ItemID: "X", RequestedQuantity: 1}}, now))
	before := o.Clone()

	assert.ErrorIs(t, o.RespondWithModifiedCart(nil, now), ErrInvalidProposal)
	assert.ErrorIs(t, o.RespondWithModifiedCart([]CartLine{{ItemID: "X", Quantity: 0}}, now), ErrInvalidProposal)
	assert.Equal(t, before, o)
}

func TestOrder_ConfirmModificationRequiresModifiedCart(t *testing.T) {
	o := placed(t)
	o.Status = StateNeedsSellerReview
	assert.ErrorIs(t, o.ConfirmModification(now), ErrInvalidTransition)
	assert.Equal(t, StateNeedsSellerReview, o.Status)
}

func readyForPickup(t *testing.T, code string) *Order {
	t.Helper()
	o := placed(t)
	require.NoError(t, o.Accept(now))
	require.NoError(t, o.Advance(now))
	require.NoError(t, o.Advance(now))
	require.NoError(t, o.IssueVerification(code, now))
	return o
}

func TestOrder_VerificationSingleUse(t *testing.T) {
	o := readyForPickup(t, "4821")

	err := o.Deliver("0000", now)
	assert.ErrorIs(t, err, ErrVerificationMismatch)
	assert.Equal(t, StateReadyForPickup, o.Status)
	assert.False(t, o.Verification.Consumed)

	require.NoError(t, o.Deliver("4821", now))

	err = o.Deliver("4821", now)
	assert.ErrorIs(t, err, ErrAlreadyConsumed)
	assert.Equal(t, StateDelivered, o.Status)
}

func TestOrder_AdvanceFromReadyRequiresVerification(t *testing.T) {
	o := readyForPickup(t, "4821")
	assert.ErrorIs(t, o.Advance(now), ErrVerificationRequired)
	assert.Equal(t, StateReadyForPickup, o.Status)
}

func TestOrder_ReissueInvalidatesPreviousCode(t *testing.T) {
	o := readyForPickup(t, "1111")
	require.NoError(t, o.IssueVerification("2222", now))

	assert.ErrorIs(t, o.Deliver("1111", now), ErrVerificationMismatch)
	require.NoError(t, o.Deliver("2222", now))
}

func TestOrder_IssueOutsideReadyForPickup(t *testing.T) {
	o := placed(t)
	assert.ErrorIs(t, o.IssueVerification("1234", now), ErrInvalidTransition)
	assert.Nil(t, o.Verification)
}

func TestVerification_Matches(t *testing.T) {
	v := NewVerification("o-1", "4821", now)
	assert.True(t, v.Matches("o-1", "4821"))
	assert.False(t, v.Matches("o-2", "4821"))
	assert.False(t, v.Matches("o-1", ""))

	var missing *Verification
	assert.False(t, missing.Matches("o-1", "4821"))
	assert.ErrorIs(t, missing.Consume("o-1", "4821", now), ErrVerificationRequired)
}

func TestOrder_StockMemo(t *testing.T) {
	o := placed(t)
	o.NoteStockShortage([]string{"X"})
	assert.False(t, o.StockChecked)
	assert.Equal(t, []string{"X"}, o.OutOfStock)

	o.RecordStockCheck([]string{"X"}, true)
	assert.True(t, o.StockChecked)
	assert.True(t, o.StockOverridden)

	o.RecordStockCheck(nil, false)
	assert.Nil(t, o.OutOfStock)
	assert.False(t, o.StockOverridden)
}

func TestOrder_CloneIsDeep(t *testing.T) {
	o := placed(t)
	require.NoError(t, o.RequestAlternatives(now))
	require.NoError(t, o.ProposeAlternatives([]ModificationProposal{{ItemID: "X", RequestedQuantity: 1, Images: []string{"a.png"}}}, now))

	c := o.Clone()
	c.Cart[0].Quantity = 9
	c.ModifiedCart[0].Quantity = 9
	c.Proposals[0].Images[0] = "b.png"

	assert.Equal(t, 2, o.Cart[0].Quantity)
	assert.Equal(t, 1, o.ModifiedCart[0].Quantity)
	assert.Equal(t, "a.png", o.Proposals[0].Images[0])
}

func TestOrder_CheckInvariants(t *testing.T) {
	o := placed(t)
	o.Status = "SHIPPED"
	assert.Error(t, o.CheckInvariants())

	o = placed(t)
	o.Status = StateAwaitingBuyerDecision
	assert.Error(t, o.CheckInvariants())

	o = placed(t)
	o.ModificationConfirmed = true
	assert.Error(t, o.CheckInvariants())

	o = placed(t)
	o.Status = StateDelivered
	assert.Error(t, o.CheckInvariants())

	o = placed(t)
	o.Status = StateReadyForPickup
	assert.Error(t, o.CheckInvariants())
}

func TestOrder_Diff(t *testing.T) {
	o := placed(t)
	assert.Nil(t, o.Diff())

	require.NoError(t, o.RequestAlternatives(now))
	require.NoError(t, o.ProposeAlternatives([]ModificationProposal{{ItemID: "X", RequestedQuantity: 1}}, now))
	assert.Equal(t, []CartDiffEntry{{ItemID: "X", Kind: DiffQuantityChanged, OriginalQuantity: 2, NewQuantity: 1}}, o.Diff())
}
