package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics contains all Prometheus metrics for the escrow admin panel
type PrometheusMetrics struct {
	registry *prometheus.Registry

	// Deal action metrics
	ActionsTotal    *prometheus.CounterVec
	ActionDuration  *prometheus.HistogramVec
	ActionsInFlight *prometheus.GaugeVec
	RefreshTotal    *prometheus.CounterVec

	// Backend gateway metrics
	GatewayRequestsTotal   *prometheus.CounterVec
	GatewayRequestDuration *prometheus.HistogramVec

	// Chain metrics
	TransactionsSentTotal *prometheus.CounterVec
	ReceiptWaitDuration   *prometheus.HistogramVec

	// Wallet metrics
	WalletEventsTotal *prometheus.CounterVec
	WalletConnected   prometheus.Gauge

	// Journal metrics
	JournalOperationsTotal *prometheus.CounterVec

	// API metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Application health metrics
	ApplicationUptime prometheus.Gauge
	ComponentHealth   *prometheus.GaugeVec
	MemoryUsage       prometheus.Gauge
	GoroutineCount    prometheus.Gauge
}

// NewPrometheusMetrics creates all metrics on a private registry so that
// several instances can coexist in one process.
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(registry)

	return &PrometheusMetrics{
		registry: registry,

		// Deal action metrics
		ActionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrowadmin_actions_total",
				Help: "Total number of deal actions by outcome",
			},
			[]string{"action", "outcome"},
		),

		ActionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "escrowadmin_action_duration_seconds",
				Help:    "Time from action start to terminal resolution",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"action"},
		),

		ActionsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "escrowadmin_actions_in_flight",
				Help: "Number of deal actions currently holding a busy lock",
			},
			[]string{"action"},
		),

		RefreshTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrowadmin_refresh_total",
				Help: "Total number of deal and risk fetches by outcome",
			},
			[]string{"target", "outcome"},
		),

		// Backend gateway metrics
		GatewayRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrowadmin_gateway_requests_total",
				Help: "Total number of requests made to the escrow backend",
			},
			[]string{"operation", "status"},
		),

		GatewayRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "escrowadmin_gateway_request_duration_seconds",
				Help:    "Duration of requests to the escrow backend",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		// Chain metrics
		TransactionsSentTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrowadmin_transactions_total",
				Help: "Total number of contract transactions by method and outcome",
			},
			[]string{"method", "outcome"},
		),

		ReceiptWaitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "escrowadmin_receipt_wait_seconds",
				Help:    "Time spent waiting for transaction receipts",
				Buckets: []float64{1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"method"},
		),

		// Wallet metrics
		WalletEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrowadmin_wallet_events_total",
				Help: "Total number of wallet session events",
			},
			[]string{"event"},
		),

		WalletConnected: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "escrowadmin_wallet_connected",
				Help: "Whether a wallet account is currently connected",
			},
		),

		// Journal metrics
		JournalOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrowadmin_journal_operations_total",
				Help: "Total number of action journal operations",
			},
			[]string{"operation", "status"},
		),

		// API metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrowadmin_http_requests_total",
				Help: "Total number of HTTP requests to the panel API",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "escrowadmin_http_request_duration_seconds",
				Help:    "Duration of HTTP requests to the panel API",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Application health metrics
		ApplicationUptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "escrowadmin_uptime_seconds",
				Help: "Application uptime in seconds",
			},
		),

		ComponentHealth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "escrowadmin_component_health",
				Help: "Health status of application components (1 = healthy, 0 = unhealthy)",
			},
			[]string{"component"},
		),

		MemoryUsage: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "escrowadmin_memory_usage_bytes",
				Help: "Current memory usage in bytes",
			},
		),

		GoroutineCount: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "escrowadmin_goroutines",
				Help: "Number of running goroutines",
			},
		),
	}
}

// Registry returns the registry all metrics are registered on.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// ActionStarted marks an action as holding its busy lock
func (m *PrometheusMetrics) ActionStarted(action string) {
	m.ActionsInFlight.WithLabelValues(action).Inc()
}

// ActionFinished records the terminal outcome of an action
func (m *PrometheusMetrics) ActionFinished(action, outcome string, duration time.Duration) {
	m.ActionsInFlight.WithLabelValues(action).Dec()
	m.ActionsTotal.WithLabelValues(action, outcome).Inc()
	m.ActionDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// RecordRefresh records a deal or risk fetch
func (m *PrometheusMetrics) RecordRefresh(target, outcome string) {
	m.RefreshTotal.WithLabelValues(target, outcome).Inc()
}

// RecordGatewayRequest records a request to the escrow backend
func (m *PrometheusMetrics) RecordGatewayRequest(operation, status string, duration time.Duration) {
	m.GatewayRequestsTotal.WithLabelValues(operation, status).Inc()
	m.GatewayRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordTransaction records a contract transaction outcome
func (m *PrometheusMetrics) RecordTransaction(method, outcome string) {
	m.TransactionsSentTotal.WithLabelValues(method, outcome).Inc()
}

// RecordReceiptWait records how long a receipt took to arrive
func (m *PrometheusMetrics) RecordReceiptWait(method string, duration time.Duration) {
	m.ReceiptWaitDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordWalletEvent records a wallet session event
func (m *PrometheusMetrics) RecordWalletEvent(event string) {
	m.WalletEventsTotal.WithLabelValues(event).Inc()
}

// UpdateWalletConnected updates the wallet connection gauge
func (m *PrometheusMetrics) UpdateWalletConnected(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	m.WalletConnected.Set(value)
}

// RecordJournalOperation records an action journal operation
func (m *PrometheusMetrics) RecordJournalOperation(operation, status string) {
	m.JournalOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *PrometheusMetrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// UpdateApplicationUptime updates the application uptime metric
func (m *PrometheusMetrics) UpdateApplicationUptime(startTime time.Time) {
	m.ApplicationUptime.Set(time.Since(startTime).Seconds())
}

// UpdateComponentHealth updates the health status of a component
func (m *PrometheusMetrics) UpdateComponentHealth(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.ComponentHealth.WithLabelValues(component).Set(value)
}

// UpdateMemoryUsage updates the memory usage metric
func (m *PrometheusMetrics) UpdateMemoryUsage(bytes uint64) {
	m.MemoryUsage.Set(float64(bytes))
}

// UpdateGoroutineCount updates the goroutine count metric
func (m *PrometheusMetrics) UpdateGoroutineCount(count int) {
	m.GoroutineCount.Set(float64(count))
}
