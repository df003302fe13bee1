package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/fulfillment-service/common/logger"
	"github.com/yashrajoria/fulfillment-service/common/middleware"
	awspkg "github.com/yashrajoria/fulfillment-service/pkg/aws"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeMetrics struct {
	mu      sync.Mutex
	enabled bool
	counts  []string
	dims    []map[string]string
	latency int
	done    chan struct{}
}

func (m *fakeMetrics) IsEnabled() bool { return m.enabled }

func (m *fakeMetrics) RecordCount(_ context.Context, name string, dims map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts = append(m.counts, name)
	m.dims = append(m.dims, dims)
	if name == awspkg.MetricHTTPErrors || (name == awspkg.MetricHTTPRequests && dims["Status"] == "2xx") {
		m.done <- struct{}{}
	}
	return nil
}

func (m *fakeMetrics) RecordLatency(context.Context, string, time.Duration, map[string]string) error {
	m.mu.Lock()
	m.latency++
	m.mu.Unlock()
	return nil
}

func TestMetrics_RecordsPerRoute(t *testing.T) {
	m := &fakeMetrics{enabled: true, done: make(chan struct{}, 4)}
	r := gin.New()
	r.Use(middleware.Metrics(m, "fulfillment-service"))
	r.GET("/orders/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/123", nil))

	select {
	case <-m.done:
	case <-time.After(2 * time.Second):
		t.Fatal("error metric not recorded")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Contains(t, m.counts, awspkg.MetricHTTPRequests)
	assert.Contains(t, m.counts, awspkg.MetricHTTPErrors)
	assert.Equal(t, "/orders/:id", m.dims[0]["Path"])
	assert.Equal(t, "4xx", m.dims[0]["Status"])
	assert.Equal(t, "fulfillment-service", m.dims[0]["Service"])
}

func TestMetrics_DisabledIsPassThrough(t *testing.T) {
	m := &fakeMetrics{done: make(chan struct{}, 1)}
	r := gin.New()
	r.Use(middleware.Metrics(m, "svc"), middleware.Metrics(nil, "svc"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, m.counts)
}

func TestRequestLogger_LevelsByStatus(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(logger.RequestID(), middleware.RequestLogger(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	for _, path := range []string{"/ok", "/bad", "/boom"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("X-Request-ID", "req-"+path[1:])
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "req-ok", entries[0].ContextMap()[logger.RequestIDKey])
}

func TestTimeout_BoundsRequestContext(t *testing.T) {
	r := gin.New()
	r.Use(middleware.Timeout(50 * time.Millisecond))
	r.GET("/slow", func(c *gin.Context) {
		deadline, ok := c.Request.Context().Deadline()
		assert.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 50*time.Millisecond)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
