package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/waplatform/console/internal/common/config"
)

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New(config.MetricsConfig{Namespace: "console"})

	r := gin.New()
	r.Use(m.GinMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", m.Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	m.RecordDenied("bizpoints.add.button")
	m.RecordLedger("ADMIN_CREDIT", "ok", 5*time.Millisecond)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "console_http_requests_total")
	assert.Contains(t, body, "console_authorization_denied_total")
	assert.Contains(t, body, "console_ledger_transactions_total")
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.RecordDenied("users.view")
	m.RecordLedger("BONUS", "failed", time.Millisecond)
}
