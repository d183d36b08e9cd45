package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"orderflow/internal/service/notification/application"
	"orderflow/internal/service/notification/domain"
	"orderflow/internal/service/notification/infrastructure"
	orderdomain "orderflow/internal/service/order/domain"
)

func newInbox(t *testing.T) (*application.InboxService, *infrastructure.MemoryNotificationRepository) {
	t.Helper()
	repo := infrastructure.NewMemoryNotificationRepository()
	svc := application.NewInboxService(repo, infrastructure.CompileCELFilter, noop.NewTracerProvider().Tracer("test"), 0)
	return svc, repo
}

func statusChanged(orderID string, status orderdomain.State, at time.Time) orderdomain.StatusChanged {
	return orderdomain.StatusChanged{OrderID: orderID, ShopID: "shop-1", NewStatus: status, Timestamp: at}
}

func TestInboxService_RecordIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newInbox(t)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	first, err := svc.Record(ctx, statusChanged("o-1", orderdomain.StatePlaced, at))
	require.NoError(t, err)
	second, err := svc.Record(ctx, statusChanged("o-1", orderdomain.StatePlaced, at))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	items, err := svc.List(ctx, "shop-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "New order o-1 received", items[0].Message)

	_, err = svc.Record(ctx, orderdomain.StatusChanged{OrderID: "o-2"})
	assert.Error(t, err)
}

func TestInboxService_ReadAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newInbox(t)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	a, err := svc.Record(ctx, statusChanged("o-1", orderdomain.StatePlaced, at))
	require.NoError(t, err)
	_, err = svc.Record(ctx, statusChanged("o-1", orderdomain.StateConfirmed, at.Add(time.Minute)))
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(ctx, "shop-1", a.ID))
	assert.ErrorIs(t, svc.MarkRead(ctx, "shop-2", a.ID), domain.ErrNotificationNotFound)

	n, err := svc.MarkAllRead(ctx, "shop-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, svc.Delete(ctx, "shop-1", a.ID))
	assert.ErrorIs(t, svc.Delete(ctx, "shop-1", a.ID), domain.ErrNotificationNotFound)

	n, err = svc.DeleteAll(ctx, "shop-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	items, err := svc.List(ctx, "shop-1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestInboxService_Search(t *testing.T) {
	ctx := context.Background()
	svc, _ := newInbox(t)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, st := range []orderdomain.State{orderdomain.StatePlaced, orderdomain.StateConfirmed, orderdomain.StateCancelled} {
		_, err := svc.Record(ctx, statusChanged("o-7", st, at.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	items, err := svc.Search(ctx, "shop-1", application.SearchCriteria{Message: "ORDER O-7"})
	require.NoError(t, err)
	assert.Len(t, items, 3)
	// 最新的在前
	assert.Equal(t, orderdomain.StateCancelled, items[0].Status)

	items, err = svc.Search(ctx, "shop-1", application.SearchCriteria{Filter: `status != "CANCELLED" && !read`})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = svc.Search(ctx, "shop-1", application.SearchCriteria{Filter: `status ==`})
	assert.ErrorIs(t, err, domain.ErrInvalidFilter)
}
