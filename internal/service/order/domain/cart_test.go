package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var itemIDs = []string{"X", "Y", "Z", "W", "V"}

func cartGen() *rapid.Generator[[]CartLine] {
	line := rapid.Custom(func(t *rapid.T) CartLine {
		return CartLine{
			ItemID:    rapid.SampledFrom(itemIDs).Draw(t, "item"),
			UnitPrice: decimal.NewFromInt(int64(rapid.IntRange(0, 100).Draw(t, "price"))),
			Quantity:  rapid.IntRange(1, 5).Draw(t, "qty"),
		}
	})
	return rapid.SliceOfN(line, 0, 8)
}

func kinds(entries []CartDiffEntry) map[string]CartDiffEntry {
	out := make(map[string]CartDiffEntry, len(entries))
	for _, e := range entries {
		out[e.ItemID] = e
	}
	return out
}

func TestDiff_SameCartIsUnchanged(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cart := cartGen().Draw(t, "cart")
		for _, e := range Diff(cart, cart) {
			if e.Kind != DiffUnchanged {
				t.Fatalf("item %s classified %s", e.ItemID, e.Kind)
			}
		}
		if HasChanges(Diff(cart, cart)) {
			t.Fatalf("identical carts reported changes")
		}
	})
}

func TestDiff_CoversEveryItemExactlyOnce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		original := cartGen().Draw(t, "original")
		modified := cartGen().Draw(t, "modified")
		entries := Diff(original, modified)

		origQty, _ := aggregate(original)
		newQty, _ := aggregate(modified)
		seen := make(map[string]bool)
		for _, e := range entries {
			if seen[e.ItemID] {
				t.Fatalf("item %s appears twice", e.ItemID)
			}
			seen[e.ItemID] = true

			before, inOrig := origQty[e.ItemID]
			after, inNew := newQty[e.ItemID]
			switch e.Kind {
			case DiffRemoved:
				if !inOrig || inNew || e.OriginalQuantity != before {
					t.Fatalf("bad removed entry %+v", e)
				}
			case DiffAdded:
				if inOrig || !inNew || e.NewQuantity != after {
					t.Fatalf("bad added entry %+v", e)
				}
			case DiffQuantityChanged:
				if !inOrig || !inNew || before == after {
					t.Fatalf("bad quantityChanged entry %+v", e)
				}
			case DiffUnchanged:
				if !inOrig || !inNew || before != after {
					t.Fatalf("bad unchanged entry %+v", e)
				}
			}
		}
		for id := range origQty {
			if !seen[id] {
				t.Fatalf("original item %s missing from diff", id)
			}
		}
		for id := range newQty {
			if !seen[id] {
				t.Fatalf("modified item %s missing from diff", id)
			}
		}
	})
}

func TestDiff_RoundTripAfterRespond(t *testing.T) {
	original := []CartLine{{ItemID: "X", Quantity: 3}, {ItemID: "Y", Quantity: 1}}
	modified := []CartLine{{ItemID: "X", Quantity: 1}, {ItemID: "Z", Quantity: 2}}

	got := kinds(Diff(original, modified))
	require.Len(t, got, 3)
	assert.Equal(t, CartDiffEntry{ItemID: "X", Kind: DiffQuantityChanged, OriginalQuantity: 3, NewQuantity: 1}, got["X"])
	assert.Equal(t, CartDiffEntry{ItemID: "Y", Kind: DiffRemoved, OriginalQuantity: 1}, got["Y"])
	assert.Equal(t, CartDiffEntry{ItemID: "Z", Kind: DiffAdded, NewQuantity: 2}, got["Z"])
}

func TestDiff_EmptyCarts(t *testing.T) {
	cart := []CartLine{{ItemID: "X", Quantity: 2}}

	assert.Empty(t, Diff(nil, nil))

	removed := Diff(cart, nil)
	require.Len(t, removed, 1)
	assert.Equal(t, DiffRemoved, removed[0].Kind)

	added := Diff(nil, cart)
	require.Len(t, added, 1)
	assert.Equal(t, DiffAdded, added[0].Kind)
}

func TestDiff_AggregatesDuplicateItems(t *testing.T) {
	original := []CartLine{{ItemID: "X", Quantity: 1}, {ItemID: "X", Quantity: 2}}
	modified := []CartLine{{ItemID: "X", Quantity: 3}}

	entries := Diff(original, modified)
	require.Len(t, entries, 1)
	assert.Equal(t, DiffUnchanged, entries[0].Kind)
	assert.Equal(t, 3, entries[0].OriginalQuantity)
}

func TestCart_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cart    Cart
		wantErr bool
	}{
		{"ok", Cart{{ItemID: "X", Quantity: 1}, {ItemID: "Y", Quantity: 2}}, false},
		{"missing id", Cart{{Quantity: 1}}, true},
		{"zero quantity", Cart{{ItemID: "X"}}, true},
		{"negative price", Cart{{ItemID: "X", Quantity: 1, UnitPrice: decimal.NewFromInt(-1)}}, true},
		{"duplicate id", Cart{{ItemID: "X", Quantity: 1}, {ItemID: "X", Quantity: 1}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cart.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCart_Total(t *testing.T) {
	cart := Cart{
		{ItemID: "X", UnitPrice: decimal.RequireFromString("2.50"), Quantity: 2},
		{ItemID: "Y", UnitPrice: decimal.RequireFromString("0.99"), Quantity: 3},
	}
	assert.True(t, decimal.RequireFromString("7.97").Equal(cart.Total()))
}
