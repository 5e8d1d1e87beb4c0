package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) PingContext(ctx context.Context) error {
	return m.err
}

type fixedCounter int

func (c fixedCounter) Len() int {
	return int(c)
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		pingErr        error
		expectedStatus int
		expectedState  string
	}{
		{name: "live", path: "/health", expectedStatus: http.StatusOK, expectedState: "healthy"},
		{name: "live while database is down", path: "/health", pingErr: errors.New("down"), expectedStatus: http.StatusOK, expectedState: "healthy"},
		{name: "ready", path: "/ready", expectedStatus: http.StatusOK, expectedState: "healthy"},
		{name: "not ready", path: "/ready", pingErr: errors.New("connection refused"), expectedStatus: http.StatusServiceUnavailable, expectedState: "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(&mockPinger{err: tt.pingErr}, fixedCounter(3), zap.NewNop())
			r := chi.NewRouter()
			h.RegisterRoutes(r)

			w := doRequest(t, r, http.MethodGet, tt.path, nil)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedState, decodeBody(t, w)["status"])
		})
	}
}
