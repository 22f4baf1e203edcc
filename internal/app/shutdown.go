package app

import (
	"context"
	"errors"
	"time"
)

const shutdownTimeout = 30 * time.Second

// Shutdown stops the application in the following order:
//  1. Cancels the application context
//  2. Stops the Telegram connector (if running)
//  3. Stops the scheduler, waiting for a running pass
//  4. Stops the metrics endpoint
//  5. Closes the scheduler journal
//
// It is safe to call more than once and after a failed Initialize.
func (a *App) Shutdown() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		a.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error

	if a.telegram != nil {
		if err := a.telegram.Stop(); err != nil {
			a.logger.Error("failed to stop telegram connector", err)
			errs = append(errs, err)
		}
		a.telegram = nil
	}

	if a.scheduler != nil && a.scheduler.IsStarted() {
		if err := a.scheduler.Stop(ctx); err != nil {
			a.logger.Error("failed to stop scheduler", err)
			errs = append(errs, err)
		}
	}

	if err := a.stopMetricsServer(ctx); err != nil {
		a.logger.Error("failed to stop metrics server", err)
		errs = append(errs, err)
	}

	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			errs = append(errs, err)
		}
		a.journal = nil
	}

	if a.started {
		a.started = false
		a.logger.Info("application shutdown complete")
	}
	return errors.Join(errs...)
}
