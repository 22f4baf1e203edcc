package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aatumaykin/microbot/internal/app/builders"
	"github.com/aatumaykin/microbot/internal/channels"
	"github.com/aatumaykin/microbot/internal/channels/telegram"
	"github.com/aatumaykin/microbot/internal/cleanup"
	"github.com/aatumaykin/microbot/internal/cron"
	"github.com/aatumaykin/microbot/internal/inbox"
	"github.com/aatumaykin/microbot/internal/logger"
)

// Initialize creates every component and starts the background ones.
// Order: data dir, metrics registry, clock and directive store, tools and
// gateway, LLM provider, orchestration loop, reconciler, scheduler with the
// inbox and cleanup jobs, Telegram, metrics endpoint.
func (a *App) Initialize(ctx context.Context) error {
	// 1. Create application context
	a.ctx, a.cancel = context.WithCancel(ctx)

	// 2. Data directory
	if err := os.MkdirAll(a.config.App.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	// 3. Metrics registry
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// 4. Clock, directive store and scheduler journal
	cronBuilder := builders.NewCronBuilder(a.config, a.logger)
	journal, err := cronBuilder.Journal()
	if err != nil {
		return err
	}
	a.journal = journal

	// 5. Tools and the policy gateway
	toolsBuilder := builders.NewToolsBuilder(a.config, a.logger, cronBuilder.Clock(), cronBuilder.Storage())
	registry, err := toolsBuilder.RegisterAllTools()
	if err != nil {
		return err
	}
	gateway, err := toolsBuilder.BuildGateway(registry, a.registry)
	if err != nil {
		return err
	}
	a.gateway = gateway

	// 6. LLM provider
	provider, model, err := builders.NewLLMBuilder(a.config, a.logger).Build()
	if err != nil {
		return err
	}

	// 7. Outbound channel
	var sender channels.Sender
	if a.config.Telegram.Enabled {
		a.telegram = telegram.New(a.config.Telegram, a.logger)
		sender = a.telegram
	} else {
		a.logger.Info("telegram disabled, replies are logged")
		sender = channels.NewLogSender(a.logger)
	}

	// 8. Orchestration loop
	agentLoop, err := builders.NewAgentBuilder(a.config, a.logger, provider, model).
		BuildLoop(gateway, registry, sender, a.registry)
	if err != nil {
		return err
	}
	a.agentLoop = agentLoop

	// 9. Directive reconciler
	deps := builders.ExecutorDeps{
		Sender: sender,
		Tools:  gateway,
		Agent:  agentLoop,
	}
	if shell := toolsBuilder.Shell(); shell != nil {
		deps.Commands = shell
	}
	reconciler, _, err := cronBuilder.BuildReconciler(deps, a.journal, a.registry)
	if err != nil {
		return err
	}
	a.reconciler = reconciler

	// 10. Scheduler for reconciliation passes and the inbox
	if a.config.Schedule.Enabled {
		a.scheduler, err = cronBuilder.BuildScheduler(reconciler)
		if err != nil {
			return err
		}
	} else {
		a.scheduler = cron.NewScheduler(a.logger)
	}

	if a.config.Inbox.Enabled {
		if err := a.initInbox(sender); err != nil {
			return err
		}
	}

	if a.config.Cleanup.Enabled {
		if err := a.initCleanup(); err != nil {
			return err
		}
	}

	if a.config.Schedule.Enabled || a.config.Inbox.Enabled || a.config.Cleanup.Enabled {
		if err := a.scheduler.Start(a.ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	// 11. Telegram long polling
	if a.telegram != nil {
		if err := a.telegram.Start(a.ctx, a.agentLoop); err != nil {
			return fmt.Errorf("failed to start telegram connector: %w", err)
		}
	}

	// 12. Metrics endpoint
	if a.config.Metrics.Enabled {
		if err := a.startMetricsServer(); err != nil {
			return err
		}
	}

	a.mu.Lock()
	a.started = true
	a.mu.Unlock()

	a.logger.Info("application initialized",
		logger.Field{Key: "model", Value: model},
		logger.Field{Key: "tools", Value: len(registry.Names())},
		logger.Field{Key: "telegram", Value: a.telegram != nil},
		logger.Field{Key: "schedule", Value: a.config.Schedule.Enabled},
		logger.Field{Key: "inbox", Value: a.config.Inbox.Enabled},
		logger.Field{Key: "cleanup", Value: a.config.Cleanup.Enabled})
	return nil
}

// initInbox creates the drainer and registers it on the scheduler. Jobs for
// the "telegram" channel are delivered through sender when Telegram is on.
func (a *App) initInbox(sender channels.Sender) error {
	senders := map[string]channels.Sender{}
	if a.telegram != nil {
		senders["telegram"] = sender
	}

	drainer, err := inbox.New(inbox.Config{
		DataDir:   a.config.App.DataDir,
		Senders:   senders,
		Processor: a.agentLoop,
		Logger:    a.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create inbox: %w", err)
	}
	a.inbox = drainer

	interval := time.Duration(a.config.Inbox.CheckIntervalSeconds) * time.Second
	if err := a.scheduler.Every("inbox", interval, drainer.Run); err != nil {
		return fmt.Errorf("failed to schedule inbox: %w", err)
	}
	return nil
}

// initCleanup registers the retention pass over the inbox archive and downloads.
func (a *App) initCleanup() error {
	runner := cleanup.NewRunner(cleanup.Config{
		TTLDays: a.config.Cleanup.TTLDays,
		Dirs:    []string{a.config.InboxDoneDir(), a.config.DownloadsDir()},
	})
	interval := time.Duration(a.config.Cleanup.IntervalMinutes) * time.Minute
	if err := a.scheduler.Every("cleanup", interval, runner.Job(a.logger)); err != nil {
		return fmt.Errorf("failed to schedule cleanup: %w", err)
	}
	return nil
}
