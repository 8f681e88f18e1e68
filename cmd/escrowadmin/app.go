package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/escrow-admin/internal/config"
	"github.com/smartdevs17/escrow-admin/internal/contracts"
	"github.com/smartdevs17/escrow-admin/internal/gateway"
	"github.com/smartdevs17/escrow-admin/internal/journal"
	"github.com/smartdevs17/escrow-admin/internal/metrics"
	"github.com/smartdevs17/escrow-admin/internal/orchestrator"
	"github.com/smartdevs17/escrow-admin/internal/server"
	"github.com/smartdevs17/escrow-admin/internal/wallet"
	"github.com/smartdevs17/escrow-admin/pkg/utils"
)

// Application holds the wired components of the panel
type Application struct {
	config   *config.Config
	logger   *logrus.Entry
	metrics  *metrics.Manager
	journal  *journal.Journal
	provider wallet.Provider
	session  *wallet.Session
	gateway  *gateway.Client
	chain    *contracts.Facade
	registry *orchestrator.Registry
	board    *orchestrator.Board
	server   *server.HTTPServer
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewApplication creates a new application instance
func NewApplication(cfg *config.Config) (*Application, error) {
	ctx, cancel := context.WithCancel(context.Background())

	app := &Application{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}

	if err := app.initializeLogger(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := app.initializeComponents(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	return app, nil
}

func (app *Application) initializeLogger() error {
	logCfg := app.config.Logging

	if err := utils.InitLogger(logCfg.Level, logCfg.Format, logCfg.Output, logCfg.File); err != nil {
		return err
	}

	app.logger = utils.ComponentLogger("app")
	app.logger.WithFields(logrus.Fields{
		"level":  logCfg.Level,
		"format": logCfg.Format,
		"output": logCfg.Output,
	}).Debug("Logger initialized")
	return nil
}

// initializeComponents wires every component. Missing backend or chain
// settings do not fail startup; the actions that need them report it.
func (app *Application) initializeComponents() error {
	app.metrics = metrics.NewManager()

	if err := app.initializeJournal(); err != nil {
		return fmt.Errorf("failed to initialize journal: %w", err)
	}

	if err := app.initializeWallet(); err != nil {
		return fmt.Errorf("failed to initialize wallet: %w", err)
	}

	app.gateway = gateway.NewClient(gateway.Config{
		BaseURL: app.config.API.BaseURL,
		Timeout: app.config.API.Timeout,
		Metrics: app.metrics,
	})

	app.chain = contracts.NewFacade(contracts.Config{
		TokenAddress:  app.config.Chain.TokenAddress,
		EscrowAddress: app.config.Chain.EscrowAddress,
		PollInterval:  app.config.Chain.ReceiptPollInterval,
		Metrics:       app.metrics,
	}, app.session)

	app.registry = orchestrator.NewRegistry(app.gateway, app.chain, orchestrator.Options{
		Timeout: app.config.Actions.Timeout,
		Journal: app.journal,
		Metrics: app.metrics,
		Wallet:  app.session,
	})
	app.board = orchestrator.NewBoard(app.gateway, app.metrics)

	// A chain switch invalidates every view and the board.
	app.session.OnReload(func() {
		app.registry.Reset()
		app.board.Reset()
	})

	if app.config.API.BaseURL == "" {
		app.logger.Warn("Missing API URL, backend requests will fail until api.base_url is set")
	}

	app.logger.Debug("All components initialized")
	return nil
}

func (app *Application) initializeJournal() error {
	store, err := journal.Open(&app.config.Storage)
	if err != nil {
		return utils.WrapAppError(utils.ErrCodeDatabase, "Failed to open action journal", err)
	}
	app.journal = journal.New(store, app.metrics)
	return nil
}

func (app *Application) initializeWallet() error {
	provider, err := wallet.Detect(app.config.Wallet, app.config.Chain)
	if err != nil {
		return err
	}
	app.provider = provider
	app.session = wallet.NewSession(provider, app.metrics)
	if provider == nil {
		app.logger.Info("No wallet configured, on-chain actions are unavailable")
	}
	return nil
}

// startWatchers starts the background loops that serve needs.
func (app *Application) startWatchers() {
	go app.metrics.Run(app.ctx, 30*time.Second)

	if kp, ok := app.provider.(*wallet.KeyProvider); ok {
		go kp.Watch(app.ctx, app.config.Wallet.WatchInterval)
	}
}

// initializeServer builds the panel API server
func (app *Application) initializeServer() error {
	serverCfg := &server.ServerConfig{
		Port:          app.config.Server.Port,
		Host:          app.config.Server.Host,
		ReadTimeout:   app.config.Server.ReadTimeout,
		WriteTimeout:  app.config.Server.WriteTimeout,
		EnableMetrics: app.config.Server.EnableMetrics,
		EnableHealth:  app.config.Server.EnableHealth,
		CORSOrigins:   app.config.Server.CORSOrigins,
		Version:       AppVersion,
	}

	var err error
	app.server, err = server.NewHTTPServer(serverCfg, server.Dependencies{
		Registry:      app.registry,
		Board:         app.board,
		Session:       app.session,
		Journal:       app.journal,
		Metrics:       app.metrics,
		Summary:       app.config.Summary(),
		TargetChainID: app.config.Chain.ChainID,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}
	return nil
}

// Serve starts the panel API and the background watchers
func (app *Application) Serve() error {
	if err := app.initializeServer(); err != nil {
		return err
	}

	app.logger.WithFields(logrus.Fields{
		"version":     AppVersion,
		"environment": app.config.App.Environment,
	}).Info("Starting escrow admin panel")

	app.startWatchers()
	go app.server.RunHealthUpdater(app.ctx, 30*time.Second)

	if err := app.server.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	app.logger.WithFields(logrus.Fields{
		"server_address": fmt.Sprintf("%s:%d", app.config.Server.Host, app.config.Server.Port),
		"api_url":        app.config.Summary()["api_url"],
		"chain_id":       app.config.Chain.ChainID,
	}).Info("Escrow admin panel started")
	return nil
}

// Stop stops the application gracefully
func (app *Application) Stop() {
	app.cancel()

	if app.server != nil {
		if err := app.server.Stop(); err != nil {
			app.logger.WithError(err).Error("Failed to stop HTTP server")
		}
	}

	if app.session != nil {
		app.session.Close()
	}

	if kp, ok := app.provider.(*wallet.KeyProvider); ok {
		kp.Close()
	}

	if err := app.journal.Close(); err != nil {
		app.logger.WithError(err).Error("Failed to close journal")
	}

	app.logger.Debug("Escrow admin panel stopped")
}
