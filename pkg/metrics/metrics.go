package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stevedao0/newcm-sub000/internal/common/config"
)

type Metrics struct {
	registry   *prometheus.Registry
	namespace  string
	httpReqCnt *prometheus.CounterVec
	httpDur    *prometheus.HistogramVec
	httpInfl   *prometheus.GaugeVec
	dataOpCnt  *prometheus.CounterVec
	importRows *prometheus.CounterVec
	importRuns *prometheus.CounterVec
}

func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	r := prometheus.NewRegistry()
	// Register standard process and Go collectors
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	// Register basic HTTP metrics
	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total"}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "http_request_duration_seconds", Buckets: cfg.Buckets}, []string{"method", "route", "status"})
	httpInfl := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: ns, Name: "http_requests_inflight"}, []string{"route"})
	r.MustRegister(httpReqCnt, httpDur, httpInfl)

	dataOpCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "data_operations_total"}, []string{"collection", "op", "status"})
	importRows := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "import_rows_total"}, []string{"flow", "result"})
	importRuns := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "import_runs_total"}, []string{"flow", "outcome"})
	r.MustRegister(dataOpCnt, importRows, importRuns)

	return &Metrics{
		registry:   r,
		namespace:  ns,
		httpReqCnt: httpReqCnt,
		httpDur:    httpDur,
		httpInfl:   httpInfl,
		dataOpCnt:  dataOpCnt,
		importRows: importRows,
		importRuns: importRuns,
	}
}

// DataOp counts one data-access operation against a collection.
func (m *Metrics) DataOp(collection, op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.dataOpCnt.WithLabelValues(collection, op, status).Inc()
}

// ImportRows counts accepted and rejected rows of an import run.
func (m *Metrics) ImportRows(flow string, accepted, rejected int) {
	m.importRows.WithLabelValues(flow, "accepted").Add(float64(accepted))
	m.importRows.WithLabelValues(flow, "rejected").Add(float64(rejected))
}

// ImportRun counts one finished import run by outcome.
func (m *Metrics) ImportRun(flow, outcome string) {
	m.importRuns.WithLabelValues(flow, outcome).Inc()
}

func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		m.httpInfl.WithLabelValues(route).Inc()
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		m.httpReqCnt.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpDur.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpInfl.WithLabelValues(route).Dec()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
