package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the sink each process constructs once and injects into its
// handlers. Every instance owns its own registry, so tests get full isolation
// instead of sharing process-global collectors.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	stock    *prometheus.GaugeVec
	sales    prometheus.Counter
	revenue  prometheus.Counter
}

// NewMetrics builds the sink for one service. The service name becomes the
// metric namespace, so the exposition matches the per-service metric families
// the dashboard scrapes.
func NewMetrics(service string) *Metrics {
	ns := strings.ReplaceAll(service, "-", "_")
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "requests_total",
			Help:      "Total HTTP requests handled.",
		}, []string{"method", "path", "status"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "errors_total",
			Help:      "Total errors by reason.",
		}, []string{"reason"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "request_duration_ms",
			Help:      "Request latency in milliseconds.",
			Buckets:   []float64{10, 50, 100, 500, 1000, 5000},
		}, []string{"method", "path"}),
		stock: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "stock_quantity",
			Help:      "Current stock quantity per SKU.",
		}, []string{"sku"}),
		sales: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "sales_transactions_total",
			Help:      "Total completed sale transactions.",
		}),
		revenue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "sales_revenue_total",
			Help:      "Total revenue from completed sales.",
		}),
	}
	reg.MustRegister(m.requests, m.errors, m.latency, m.stock, m.sales, m.revenue)
	return m
}

// ObserveRequest records one handled request.
func (m *Metrics) ObserveRequest(method, path string, status int, d time.Duration) {
	m.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, path).Observe(float64(d.Microseconds()) / 1000.0)
}

// IncError counts one error by machine-checkable reason.
func (m *Metrics) IncError(reason string) {
	m.errors.WithLabelValues(reason).Inc()
}

// SetStock updates the per-SKU quantity gauge.
func (m *Metrics) SetStock(sku string, quantity int) {
	m.stock.WithLabelValues(sku).Set(float64(quantity))
}

// AddSale counts one completed sale and its revenue.
func (m *Metrics) AddSale(total float64) {
	m.sales.Inc()
	m.revenue.Add(total)
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for test assertions.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
