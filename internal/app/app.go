// Package app wires the assistant together: the tool gateway, the
// orchestration loop, the directive reconciler, the inbox drainer, the
// Telegram channel and the metrics endpoint.
package app

import (
	"context"
	"net"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aatumaykin/microbot/internal/agent/loop"
	"github.com/aatumaykin/microbot/internal/channels/telegram"
	"github.com/aatumaykin/microbot/internal/config"
	"github.com/aatumaykin/microbot/internal/cron"
	"github.com/aatumaykin/microbot/internal/inbox"
	"github.com/aatumaykin/microbot/internal/logger"
	"github.com/aatumaykin/microbot/internal/tools"
)

// App represents the main application structure.
// It holds references to all major components and manages their lifecycle.
type App struct {
	// Configuration and core services
	config   *config.Config
	logger   *logger.Logger
	journal  *logger.Logger
	registry *prometheus.Registry

	// Core agent components
	gateway    *tools.Gateway
	agentLoop  *loop.Loop
	reconciler *cron.Reconciler

	// Channels
	telegram *telegram.Connector
	inbox    *inbox.Drainer

	// Periodic passes
	scheduler *cron.Scheduler

	metricsServer   *http.Server
	metricsListener net.Listener

	// Context management
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool
}

// New creates a new App instance with the provided configuration and logger.
// Components are created by Initialize.
func New(cfg *config.Config, log *logger.Logger) *App {
	if log == nil {
		log = logger.Nop()
	}
	return &App{
		config: cfg,
		logger: log,
	}
}

// Run initializes the application, blocks until ctx is cancelled and then
// shuts everything down.
func (a *App) Run(ctx context.Context) error {
	if err := a.Initialize(ctx); err != nil {
		_ = a.Shutdown()
		return err
	}

	a.logger.Info("application is running")

	<-ctx.Done()

	return a.Shutdown()
}

// Loop returns the orchestration loop. It is nil before Initialize.
func (a *App) Loop() *loop.Loop {
	return a.agentLoop
}

// Inbox returns the inbox drainer, or nil when the inbox is disabled.
func (a *App) Inbox() *inbox.Drainer {
	return a.inbox
}

// Reconciler returns the directive reconciler.
func (a *App) Reconciler() *cron.Reconciler {
	return a.reconciler
}
