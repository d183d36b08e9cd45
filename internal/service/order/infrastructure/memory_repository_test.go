package infrastructure

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderflow/internal/service/order/domain"
)

func newTestOrder(t *testing.T, id, shop string, placedAt time.Time) *domain.Order {
	t.Helper()
	o, err := domain.NewOrder(&domain.OrderPlaced{
		OrderID: id, ShopID: shop, UserID: "u-1", PlacedAt: placedAt,
		Cart: []domain.CartLine{{ItemID: "X", Quantity: 2}},
	}, placedAt)
	require.NoError(t, err)
	return o
}

func TestMemoryOrderRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryOrderRepository()
	o := newTestOrder(t, "o-1", "shop-1", time.Now())

	require.NoError(t, repo.Create(ctx, o))
	assert.ErrorIs(t, repo.Create(ctx, o), domain.ErrOrderExists)

	got, err := repo.FindByID(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, o, got)

	// 调用方修改拿到的副本不影响存储
	got.Cart[0].Quantity = 9
	again, err := repo.FindByID(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, 2, again.Cart[0].Quantity)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestMemoryOrderRepository_UpdateChecksVersion(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryOrderRepository()
	o := newTestOrder(t, "o-1", "shop-1", time.Now())
	require.NoError(t, repo.Create(ctx, o))

	next := o.Clone()
	next.Status = domain.StateConfirmed
	next.Version = 2
	require.NoError(t, repo.Update(ctx, next, 1))

	stale := o.Clone()
	stale.Status = domain.StateCancelled
	stale.Version = 2
	assert.ErrorIs(t, repo.Update(ctx, stale, 1), domain.ErrConcurrentModification)

	got, err := repo.FindByID(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateConfirmed, got.Status)

	missing := newTestOrder(t, "o-2", "shop-1", time.Now())
	assert.ErrorIs(t, repo.Update(ctx, missing, 1), domain.ErrOrderNotFound)
}

func TestMemoryOrderRepository_ListByShop(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryOrderRepository()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, newTestOrder(t, "o-1", "shop-1", base)))
	require.NoError(t, repo.Create(ctx, newTestOrder(t, "o-2", "shop-1", base.Add(time.Minute))))
	require.NoError(t, repo.Create(ctx, newTestOrder(t, "o-3", "shop-2", base)))

	confirmed := newTestOrder(t, "o-1", "shop-1", base)
	confirmed.Status = domain.StateConfirmed
	confirmed.Version = 2
	require.NoError(t, repo.Update(ctx, confirmed, 1))

	all, err := repo.ListByShop(ctx, "shop-1", "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "o-2", all[0].ID)
	assert.Equal(t, "o-1", all[1].ID)

	placed, err := repo.ListByShop(ctx, "shop-1", domain.StatePlaced)
	require.NoError(t, err)
	require.Len(t, placed, 1)
	assert.Equal(t, "o-2", placed[0].ID)
}
