package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"orderflow/internal/service/order/domain"
)

func startHub(t *testing.T) (*Hub, *httptest.Server, context.CancelFunc, chan error) {
	t.Helper()
	hub := NewHub(time.Second, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx) }()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	return hub, srv, cancel, done
}

func dial(t *testing.T, srv *httptest.Server, shopID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?shopId=" + shopID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestHub_PublishOnlyToShop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"))

	hub, srv, cancel, done := startHub(t)
	a := dial(t, srv, "shop-a")
	b := dial(t, srv, "shop-b")

	require.Eventually(t, func() bool {
		return hub.Connections("shop-a") == 1 && hub.Connections("shop-b") == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, hub.Publish("shop-a", []byte(`{"orderId":"o-1"}`)))

	require.NoError(t, a.SetReadDeadline(time.Now().Add(time.Second)))
	_, msg, err := a.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"orderId":"o-1"}`, string(msg))

	require.NoError(t, b.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err = b.ReadMessage()
	assert.Error(t, err)

	a.Close()
	b.Close()
	cancel()
	require.NoError(t, <-done)
	srv.Close()
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"))

	hub, srv, cancel, done := startHub(t)
	conn := dial(t, srv, "shop-a")
	require.Eventually(t, func() bool { return hub.Connections("shop-a") == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Connections("shop-a") == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	srv.Close()
}

func TestServeWS_RequiresShop(t *testing.T) {
	hub := NewHub(0, 0)
	rec := httptest.NewRecorder()
	hub.ServeWS(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusForwarder_Handle(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"))

	hub, srv, cancel, done := startHub(t)
	conn := dial(t, srv, "shop-a")
	require.Eventually(t, func() bool { return hub.Connections("shop-a") == 1 }, time.Second, 5*time.Millisecond)

	payload, err := json.Marshal(domain.StatusChanged{
		OrderID: "o-1", ShopID: "shop-a", PreviousStatus: domain.StatePlaced, NewStatus: domain.StateConfirmed,
	})
	require.NoError(t, err)

	f := NewStatusForwarder(hub)
	require.NoError(t, f.Handle(context.Background(), kafka.Message{Value: payload}))
	assert.Error(t, f.Handle(context.Background(), kafka.Message{Value: []byte("not json")}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(msg))

	conn.Close()
	cancel()
	require.NoError(t, <-done)
	srv.Close()
}
