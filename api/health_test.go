package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medichat/medichat/internal/log"
)

type fakePinger struct {
	err error
}

func (p *fakePinger) Ping(context.Context) error { return p.err }

type fakeHealthChecker struct {
	healthy bool
}

func (c *fakeHealthChecker) Healthy(context.Context) bool { return c.healthy }

func healthMux(db Pinger, extractor HealthChecker) *http.ServeMux {
	mux := http.NewServeMux()
	NewHealthHandler(db, extractor, log.NewNop()).RegisterRoutes(mux)
	return mux
}

func TestHealthHandler_Liveness(t *testing.T) {
	mux := healthMux(&fakePinger{}, &fakeHealthChecker{healthy: true})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestHealthHandler_Readiness(t *testing.T) {
	t.Run("everything ready", func(t *testing.T) {
		mux := healthMux(&fakePinger{}, &fakeHealthChecker{healthy: true})

		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "ready", body["status"])
		assert.Equal(t, "ok", body["database"])
		assert.Equal(t, "ok", body["extractor"])
	})

	t.Run("database down fails the probe", func(t *testing.T) {
		mux := healthMux(&fakePinger{err: errors.New("connection refused")}, &fakeHealthChecker{healthy: true})

		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "not_ready")
	})

	t.Run("extractor down only degrades", func(t *testing.T) {
		mux := healthMux(&fakePinger{}, &fakeHealthChecker{healthy: false})

		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "unavailable", body["extractor"])
	})

	t.Run("nil pool is not ready", func(t *testing.T) {
		mux := healthMux(nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
