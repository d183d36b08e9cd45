package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"orderflow/internal/service/notification/application"
	"orderflow/internal/service/notification/infrastructure"
	orderdomain "orderflow/internal/service/order/domain"
)

func newServer(t *testing.T) (*httptest.Server, *StatusChangedConsumer) {
	t.Helper()
	svc := application.NewInboxService(infrastructure.NewMemoryNotificationRepository(), infrastructure.CompileCELFilter, noop.NewTracerProvider().Tracer("test"), 0)
	r := chi.NewRouter()
	NewInboxHandler(svc).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, NewStatusChangedConsumer(svc)
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestInboxHandler_Flow(t *testing.T) {
	srv, consumer := newServer(t)

	evt, err := json.Marshal(orderdomain.StatusChanged{
		OrderID: "o-1", ShopID: "shop-1", NewStatus: orderdomain.StateReadyForPickup,
		Timestamp: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NoError(t, consumer.Handle(context.Background(), kafka.Message{Value: evt}))
	assert.Error(t, consumer.Handle(context.Background(), kafka.Message{Value: []byte("{")}))

	resp := do(t, http.MethodGet, srv.URL+"/notifications/shop-1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list listResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list.Notifications, 1)
	id := list.Notifications[0].ID
	assert.False(t, list.Notifications[0].Read)

	resp = do(t, http.MethodPatch, srv.URL+"/notifications/shop-1/"+id+"/read", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/notifications/shop-1/search", `{"message":"pickup","filter":"read"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Len(t, list.Notifications, 1)

	resp = do(t, http.MethodPost, srv.URL+"/notifications/shop-1/search", `{"filter":"read =="}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = do(t, http.MethodDelete, srv.URL+"/notifications/shop-1/"+id, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodDelete, srv.URL+"/notifications/shop-1/"+id, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
