package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		BaseURL:   srv.URL,
		KeyID:     "rzp_test",
		KeySecret: "secret",
		Timeout:   time.Second,
	})
	require.NoError(t, err)

	return c
}

func TestClient_CreateOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test", user)
		assert.Equal(t, "secret", pass)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 60000, body["amount"])
		assert.Equal(t, "INR", body["currency"])
		assert.Equal(t, "order_abc", body["receipt"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_gw_1","amount":60000,"currency":"INR","receipt":"order_abc","status":"created"}`))
	})

	o, err := c.CreateOrder(context.Background(), CreateOrderRequest{
		AmountMinor: 60000,
		Currency:    "INR",
		Receipt:     "order_abc",
	})
	require.NoError(t, err)
	assert.Equal(t, &Order{
		ID:       "order_gw_1",
		Amount:   60000,
		Currency: "INR",
		Receipt:  "order_abc",
		Status:   "created",
	}, o)
}

func TestClient_FetchOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/orders/order_gw_1", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"order_gw_1","amount":118800,"currency":"INR","status":"paid"}`))
	})

	o, err := c.FetchOrder(context.Background(), "order_gw_1")
	require.NoError(t, err)
	assert.EqualValues(t, 118800, o.Amount)
	assert.Equal(t, "paid", o.Status)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			want: ErrUnavailable,
		},
		{
			name: "bad request",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":{"description":"amount too small"}}`))
			},
			want: ErrRejected,
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`<html>`))
			},
			want: ErrUnavailable,
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(3 * time.Second):
				}
			},
			want: ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)

			_, err := c.CreateOrder(context.Background(), CreateOrderRequest{
				AmountMinor: 100,
				Currency:    "INR",
				Receipt:     "r",
			})
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(Config{BaseURL: url, Timeout: time.Second})
	require.NoError(t, err)

	_, err = c.FetchOrder(context.Background(), "order_1")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestNewClient_RejectsRelativeURL(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "api.razorpay.com"})
	require.Error(t, err)
}
