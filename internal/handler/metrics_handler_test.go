package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-admin-panel/internal/service"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func newMetricsRouter(db Pinger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewMetricsHandler(service.NewMetricsService(), db)
	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	r.GET("/metrics", h.Prometheus)
	return r
}

func TestHealthAndMetrics(t *testing.T) {
	r := newMetricsRouter(nil)

	assert.Equal(t, http.StatusOK, doJSON(r, http.MethodGet, "/health", "").Code)

	w := doJSON(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "goroutines_total")
}

func TestReady(t *testing.T) {
	ok := newMetricsRouter(pingFunc(func(context.Context) error { return nil }))
	assert.Equal(t, http.StatusOK, doJSON(ok, http.MethodGet, "/ready", "").Code)

	down := newMetricsRouter(pingFunc(func(context.Context) error { return errors.New("dial tcp: refused") }))
	w := doJSON(down, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "refused")
}
