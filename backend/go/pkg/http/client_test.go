package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"Koro/backend/go/internal/config"
	"Koro/backend/go/pkg/circuitbreaker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientDoJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"title":"New Objective"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"session not found"}`))
		}
	}))
	defer ts.Close()

	c, err := NewClient(config.CircuitBreakerConfig{})
	require.NoError(t, err)

	var out struct {
		Title string `json:"title"`
	}
	require.NoError(t, c.DoJSON(context.Background(), http.MethodGet, ts.URL+"/ok", "tok", nil, &out))
	assert.Equal(t, "New Objective", out.Title)

	err = c.DoJSON(context.Background(), http.MethodGet, ts.URL+"/missing", "", nil, nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "session not found", apiErr.Message)
}

func TestClientBreakerOpensOnServerErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	c, err := NewClient(config.CircuitBreakerConfig{Enabled: true, FailureThreshold: 1, SuccessThreshold: 1, Timeout: "1m"})
	require.NoError(t, err)

	err = c.DoJSON(context.Background(), http.MethodGet, ts.URL, "", nil, nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)

	err = c.DoJSON(context.Background(), http.MethodGet, ts.URL, "", nil, nil)
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
}
