package builders

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aatumaykin/microbot/internal/channels"
	"github.com/aatumaykin/microbot/internal/clock"
	"github.com/aatumaykin/microbot/internal/config"
	"github.com/aatumaykin/microbot/internal/cron"
	"github.com/aatumaykin/microbot/internal/logger"
)

const metricsNamespace = "microbot"

// CronBuilder assembles the directive store, the clock and the reconciler.
type CronBuilder struct {
	config *config.Config
	logger *logger.Logger

	storage     *cron.Storage
	checkpoints *cron.CheckpointStore
	clock       *clock.Clock
}

func NewCronBuilder(cfg *config.Config, log *logger.Logger) *CronBuilder {
	source := clock.NewWorldTimeSource(cfg.App.TimeAPIURL, time.Duration(cfg.App.TimeAPITimeout)*time.Second)
	return &CronBuilder{
		config:      cfg,
		logger:      log,
		storage:     cron.NewStorage(cfg.App.DataDir, log),
		checkpoints: cron.NewCheckpointStore(cfg.App.DataDir, log),
		clock:       clock.New(source, clock.WithLogger(log)),
	}
}

// Storage returns the directive store.
func (b *CronBuilder) Storage() *cron.Storage {
	return b.storage
}

// Clock returns the timezone-aware clock shared by tools and the reconciler.
func (b *CronBuilder) Clock() *clock.Clock {
	return b.clock
}

// Journal opens the scheduler log when [schedule] log is on. The caller
// closes it.
func (b *CronBuilder) Journal() (*logger.Logger, error) {
	if !b.config.Schedule.Log {
		return logger.Nop(), nil
	}
	journal, err := logger.New(logger.Config{
		Level:  "info",
		Format: "text",
		Output: b.config.SchedulerLogPath(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open scheduler log: %w", err)
	}
	return journal, nil
}

// ExecutorDeps are the collaborators of directive side effects.
type ExecutorDeps struct {
	Sender   channels.Sender
	Tools    cron.ToolRunner
	Commands cron.CommandRunner
	Agent    cron.AgentRunner
}

// BuildReconciler creates the executor and the reconciler around it.
func (b *CronBuilder) BuildReconciler(deps ExecutorDeps, journal *logger.Logger, reg prometheus.Registerer) (*cron.Reconciler, *cron.Executor, error) {
	executor := cron.NewExecutor(cron.ExecutorDeps{
		Sender:   deps.Sender,
		Tools:    deps.Tools,
		Commands: deps.Commands,
		Agent:    deps.Agent,
		Logger:   b.logger,
	})

	var metrics *cron.Metrics
	if reg != nil {
		metrics = cron.NewMetrics(metricsNamespace, reg)
	}

	reconciler, err := cron.NewReconciler(cron.ReconcilerConfig{
		Timezone:       b.config.App.Timezone,
		CatchupMinutes: b.config.Schedule.CatchupMinutes,
		Store:          b.storage,
		Checkpoints:    b.checkpoints,
		Clock:          b.clock,
		Firer:          executor,
		Logger:         b.logger,
		Journal:        journal,
		Metrics:        metrics,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create reconciler: %w", err)
	}
	return reconciler, executor, nil
}

// BuildScheduler registers the reconciliation pass on a periodic scheduler.
func (b *CronBuilder) BuildScheduler(reconciler *cron.Reconciler) (*cron.Scheduler, error) {
	scheduler := cron.NewScheduler(b.logger)
	interval := time.Duration(b.config.Schedule.CheckIntervalSeconds) * time.Second
	if err := scheduler.EveryPass(interval, reconciler); err != nil {
		return nil, err
	}
	return scheduler, nil
}
