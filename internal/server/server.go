// File: internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/escrow-admin/internal/journal"
	"github.com/smartdevs17/escrow-admin/internal/metrics"
	"github.com/smartdevs17/escrow-admin/internal/orchestrator"
	"github.com/smartdevs17/escrow-admin/internal/wallet"
	"github.com/smartdevs17/escrow-admin/pkg/utils"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port          int           `json:"port"`
	Host          string        `json:"host"`
	ReadTimeout   time.Duration `json:"read_timeout"`
	WriteTimeout  time.Duration `json:"write_timeout"`
	EnableMetrics bool          `json:"enable_metrics"`
	EnableHealth  bool          `json:"enable_health"`
	CORSOrigins   []string      `json:"cors_origins"`
	Version       string        `json:"version"`
}

// Dependencies are the components the panel API exposes.
type Dependencies struct {
	Registry      *orchestrator.Registry
	Board         *orchestrator.Board
	Session       *wallet.Session
	Journal       *journal.Journal
	Metrics       *metrics.Manager
	Summary       map[string]interface{}
	TargetChainID int64
}

// HTTPServer represents the HTTP server
type HTTPServer struct {
	config         *ServerConfig
	server         *http.Server
	router         *mux.Router
	registry       *orchestrator.Registry
	board          *orchestrator.Board
	session        *wallet.Session
	journal        *journal.Journal
	metricsManager *metrics.Manager
	summary        map[string]interface{}
	targetChainID  int64
	logger         *logrus.Entry
}

// NewHTTPServer creates a new HTTP server
func NewHTTPServer(config *ServerConfig, deps Dependencies) (*HTTPServer, error) {
	if deps.Registry == nil || deps.Board == nil || deps.Session == nil {
		return nil, fmt.Errorf("server requires a registry, a board and a wallet session")
	}

	server := &HTTPServer{
		config:         config,
		registry:       deps.Registry,
		board:          deps.Board,
		session:        deps.Session,
		journal:        deps.Journal,
		metricsManager: deps.Metrics,
		summary:        deps.Summary,
		targetChainID:  deps.TargetChainID,
		logger:         utils.ComponentLogger("server"),
	}

	server.setupRouter()

	server.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      server.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return server, nil
}

// Handler returns the root handler, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

// setupRouter sets up the HTTP routes
func (s *HTTPServer) setupRouter() {
	s.router = mux.NewRouter()

	// Middleware
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.corsMiddleware)
	if s.metricsManager != nil {
		s.router.Use(s.metricsMiddleware)
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()

	if s.config.EnableHealth {
		api.HandleFunc("/health", s.healthHandler).Methods("GET")
	}

	if s.config.EnableMetrics {
		s.router.Handle("/metrics", s.metricsManager.Handler())
	}

	// Deals board
	api.HandleFunc("/deals", s.listDealsHandler).Methods("GET")
	api.HandleFunc("/deals", s.createDealHandler).Methods("POST")

	// Deal view
	api.HandleFunc("/deals/{id}", s.getDealHandler).Methods("GET")
	api.HandleFunc("/deals/{id}/refresh", s.refreshDealHandler).Methods("POST")
	api.HandleFunc("/deals/{id}/fund", s.actionHandler("fund", (*orchestrator.DealView).Fund)).Methods("POST")
	api.HandleFunc("/deals/{id}/complete", s.actionHandler("complete", (*orchestrator.DealView).MarkCompleted)).Methods("POST")
	api.HandleFunc("/deals/{id}/dispute", s.actionHandler("dispute", (*orchestrator.DealView).Dispute)).Methods("POST")
	api.HandleFunc("/deals/{id}/release", s.actionHandler("release", (*orchestrator.DealView).AdminRelease)).Methods("POST")
	api.HandleFunc("/deals/{id}/refund", s.actionHandler("refund", (*orchestrator.DealView).AdminRefund)).Methods("POST")
	api.HandleFunc("/deals/{id}/rescore", s.actionHandler("rescore", (*orchestrator.DealView).Rescore)).Methods("POST")
	api.HandleFunc("/deals/{id}/actions", s.listActionsHandler).Methods("GET")

	// Wallet
	api.HandleFunc("/wallet", s.walletHandler).Methods("GET")
	api.HandleFunc("/wallet/connect", s.connectWalletHandler).Methods("POST")

	// Preflight requests are answered by the CORS middleware.
	s.router.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	s.logger.WithFields(logrus.Fields{
		"address":         s.server.Addr,
		"metrics_enabled": s.config.EnableMetrics,
	}).Info("Starting HTTP server")

	// Update component metrics so they appear on first scrape
	s.updateComponentHealth()

	errChan := make(chan error, 1)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("HTTP server error")
			errChan <- err
		}
	}()

	// Give the server a moment to start and check for immediate binding errors
	select {
	case err := <-errChan:
		return fmt.Errorf("failed to start HTTP server: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// RunHealthUpdater refreshes component health gauges until ctx is done.
func (s *HTTPServer) RunHealthUpdater(ctx context.Context, interval time.Duration) {
	if s.metricsManager == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.updateComponentHealth()
		}
	}
}

func (s *HTTPServer) updateComponentHealth() {
	if s.metricsManager == nil {
		return
	}
	s.metricsManager.UpdateSystemMetrics()
	s.metricsManager.UpdateComponentHealth("journal", s.journal.Healthy())
	s.metricsManager.UpdateComponentHealth("wallet", s.session.Present())
	apiURL, _ := s.summary["api_url"].(string)
	s.metricsManager.UpdateComponentHealth("gateway", apiURL != "" && apiURL != "Missing API URL")
}

// Stop stops the HTTP server
func (s *HTTPServer) Stop() error {
	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// healthHandler returns basic health status
func (s *HTTPServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":          "healthy",
		"timestamp":       time.Now().UTC().Format(time.RFC3339Nano),
		"version":         s.config.Version,
		"metrics_enabled": s.config.EnableMetrics,
		"journal":         s.journal.Healthy(),
		"wallet_present":  s.session.Present(),
		"config":          s.summary,
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// writeJSON writes a JSON response
func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string, err error) {
	errorResponse := map[string]interface{}{
		"error":     message,
		"status":    status,
		"timestamp": time.Now().UTC(),
	}

	if err != nil && err.Error() != message {
		errorResponse["details"] = err.Error()
	}
	if status >= http.StatusInternalServerError {
		s.logger.WithFields(logrus.Fields{
			"status":  status,
			"message": message,
			"error":   err,
		}).Error("HTTP error")
	}

	s.writeJSON(w, status, errorResponse)
}
