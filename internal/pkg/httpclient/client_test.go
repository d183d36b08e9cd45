package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestCallService_RoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/check_availability", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["ping"]})
	}))
	defer srv.Close()

	c := NewClient(noop.NewTracerProvider().Tracer("test"), StaticResolver{"inventory-service": srv.URL})
	var out map[string]string
	require.NoError(t, c.CallService(context.Background(), "inventory-service", "/check_availability", map[string]string{"ping": "pong"}, &out))
	assert.Equal(t, "pong", out["echo"])
}

func TestPostJSON_NonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(noop.NewTracerProvider().Tracer("test"), nil)
	err := c.PostJSON(context.Background(), srv.URL, struct{}{}, nil)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.Contains(t, se.Body, "maintenance")
}

func TestStaticResolver_Unknown(t *testing.T) {
	_, err := StaticResolver{}.Resolve(context.Background(), "nope")
	assert.Error(t, err)
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "inventory", hostOf("http://inventory:8082/check?x=1"))
	assert.Equal(t, "10.0.0.1", hostOf("10.0.0.1:80"))
}
