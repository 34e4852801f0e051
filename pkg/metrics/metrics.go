package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/waplatform/console/internal/common/config"
)

// Metrics bundles the Prometheus registry and the collectors the console
// records: HTTP traffic, authorization denials and ledger postings.
type Metrics struct {
	registry   *prometheus.Registry
	httpReqCnt *prometheus.CounterVec
	httpDur    *prometheus.HistogramVec
	authDenied *prometheus.CounterVec
	ledgerCnt  *prometheus.CounterVec
	ledgerDur  *prometheus.HistogramVec
}

func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	buckets := cfg.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total"}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "http_request_duration_seconds", Buckets: buckets}, []string{"method", "route", "status"})
	r.MustRegister(httpReqCnt, httpDur)

	authDenied := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "authorization_denied_total"}, []string{"permission"})
	r.MustRegister(authDenied)

	ledgerCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "ledger_transactions_total"}, []string{"type", "status"})
	ledgerDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "ledger_transaction_duration_seconds", Buckets: buckets}, []string{"type"})
	r.MustRegister(ledgerCnt, ledgerDur)

	return &Metrics{
		registry:   r,
		httpReqCnt: httpReqCnt,
		httpDur:    httpDur,
		authDenied: authDenied,
		ledgerCnt:  ledgerCnt,
		ledgerDur:  ledgerDur,
	}
}

// Handler returns the /metrics endpoint handler.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// GinMiddleware records request counts and durations per route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.httpReqCnt.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpDur.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
	}
}

// RecordDenied counts an authorization denial for a permission.
func (m *Metrics) RecordDenied(permission string) {
	if m == nil {
		return
	}
	m.authDenied.WithLabelValues(permission).Inc()
}

// RecordLedger counts a ledger posting outcome and its duration.
func (m *Metrics) RecordLedger(txType, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.ledgerCnt.WithLabelValues(txType, status).Inc()
	m.ledgerDur.WithLabelValues(txType).Observe(d.Seconds())
}
