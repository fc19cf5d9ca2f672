package http

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t, teamSync())

	tests := []struct {
		method string
		target string
		allow  string
	}{
		{http.MethodDelete, "/todos", "GET, POST"},
		{http.MethodPost, "/todos/recurring", "GET"},
		{http.MethodPost, "/todos/sync", "GET, PUT, DELETE"},
		{http.MethodGet, "/todos/sync/status", "PUT"},
		{http.MethodPost, "/healthz", "GET"},
	}

	for _, tc := range tests {
		t.Run(tc.method+" "+tc.target, func(t *testing.T) {
			rec := serve(router, tc.method, tc.target, "")
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
			assert.Equal(t, tc.allow, rec.Header().Get("Allow"))
		})
	}
}

func TestRouter_UnknownPath(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)
	rec := serve(router, http.MethodGet, "/todos/a/b/c", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_MiddlewareOrder(t *testing.T) {
	t.Parallel()

	var order []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	router := NewRouter(RouterConfig{
		Health:     NewHealthHandler(nil, "memory", discardLogger()),
		Middleware: []func(http.Handler) http.Handler{tag("outer"), nil, tag("inner")},
	})
	rec := serve(router, http.MethodGet, "/healthz", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	t.Run("reachable data source", func(t *testing.T) {
		t.Parallel()
		router := NewRouter(RouterConfig{Health: NewHealthHandler(stubPinger{}, "sqlite", discardLogger())})

		rec := serve(router, http.MethodGet, "/healthz", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, healthResponse{Status: "ok", DataSource: "sqlite"}, decodeBody[healthResponse](t, rec))
	})

	t.Run("unreachable data source", func(t *testing.T) {
		t.Parallel()
		router := NewRouter(RouterConfig{Health: NewHealthHandler(stubPinger{err: errors.New("down")}, "firestore", discardLogger())})

		rec := serve(router, http.MethodGet, "/healthz", "")
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "unavailable", decodeBody[healthResponse](t, rec).Status)
	})
}
