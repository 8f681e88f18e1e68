package metrics

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Manager handles all application metrics. A nil *Manager is valid and
// records nothing, so components can be built without metrics in tests.
type Manager struct {
	prometheus *PrometheusMetrics
	logger     *logrus.Entry
	startTime  time.Time
}

// NewManager creates a new metrics manager
func NewManager() *Manager {
	return &Manager{
		prometheus: NewPrometheusMetrics(),
		logger:     logrus.WithField("component", "metrics"),
		startTime:  time.Now(),
	}
}

// GetPrometheusMetrics returns the Prometheus metrics instance
func (m *Manager) GetPrometheusMetrics() *PrometheusMetrics {
	if m == nil {
		return nil
	}
	return m.prometheus
}

// Handler serves the scrape endpoint for this manager's registry.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.prometheus.Registry(), promhttp.HandlerOpts{})
}

// UpdateSystemMetrics updates system-level metrics like memory and goroutines
func (m *Manager) UpdateSystemMetrics() {
	if m == nil {
		return
	}
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.prometheus.UpdateMemoryUsage(memStats.Alloc)
	m.prometheus.UpdateGoroutineCount(runtime.NumGoroutine())
	m.prometheus.UpdateApplicationUptime(m.startTime)
}

// Run refreshes system metrics every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if m == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.UpdateSystemMetrics()
	for {
		select {
		case <-ctx.Done():
			m.logger.Debug("System metrics loop stopped")
			return
		case <-ticker.C:
			m.UpdateSystemMetrics()
		}
	}
}

// ActionStarted marks an action as in flight
func (m *Manager) ActionStarted(action string) {
	if m == nil {
		return
	}
	m.prometheus.ActionStarted(action)
}

// ActionFinished records an action outcome
func (m *Manager) ActionFinished(action, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.prometheus.ActionFinished(action, outcome, duration)
}

// RecordRefresh records a deal or risk fetch outcome
func (m *Manager) RecordRefresh(target, outcome string) {
	if m == nil {
		return
	}
	m.prometheus.RecordRefresh(target, outcome)
}

// RecordGatewayRequest records a backend request
func (m *Manager) RecordGatewayRequest(operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.prometheus.RecordGatewayRequest(operation, status, duration)
}

// RecordTransaction records a contract transaction outcome
func (m *Manager) RecordTransaction(method, outcome string) {
	if m == nil {
		return
	}
	m.prometheus.RecordTransaction(method, outcome)
}

// RecordReceiptWait records receipt latency
func (m *Manager) RecordReceiptWait(method string, duration time.Duration) {
	if m == nil {
		return
	}
	m.prometheus.RecordReceiptWait(method, duration)
}

// RecordWalletEvent records a wallet session event
func (m *Manager) RecordWalletEvent(event string, connected bool) {
	if m == nil {
		return
	}
	m.prometheus.RecordWalletEvent(event)
	m.prometheus.UpdateWalletConnected(connected)
}

// RecordJournalOperation records a journal operation
func (m *Manager) RecordJournalOperation(operation string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.prometheus.RecordJournalOperation(operation, status)
}

// RecordHTTPRequest records a panel API request
func (m *Manager) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.prometheus.RecordHTTPRequest(method, path, status, duration)
}

// UpdateComponentHealth records a component's health
func (m *Manager) UpdateComponentHealth(component string, healthy bool) {
	if m == nil {
		return
	}
	m.prometheus.UpdateComponentHealth(component, healthy)
}
