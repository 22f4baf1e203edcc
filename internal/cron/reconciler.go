package cron

import (
	"context"
	"fmt"
	"sync"

	"github.com/aatumaykin/microbot/internal/clock"
	"github.com/aatumaykin/microbot/internal/logger"
)

const (
	// DefaultCatchupMinutes is the default catch-up horizon.
	DefaultCatchupMinutes = 5
	minCatchupMinutes     = 1
)

// Firer performs the side effect of a directive.
type Firer interface {
	Fire(ctx context.Context, d Directive) (bool, error)
}

// Clock resolves the current time for a timezone.
type Clock interface {
	Now(ctx context.Context, tz string) clock.TimeValue
}

// Firing records one directive fired at one tick.
type Firing struct {
	ID   string
	Type string
	Tick string
}

// PassResult summarizes one reconciliation pass.
type PassResult struct {
	Now     string
	Ticks   int
	Fired   []Firing
	Removed []string
	Errors  int
	Skipped int
}

// ReconcilerConfig configures a Reconciler.
type ReconcilerConfig struct {
	Timezone       string
	CatchupMinutes int
	Store          *Storage
	Checkpoints    *CheckpointStore
	Clock          Clock
	Firer          Firer
	Logger         *logger.Logger
	// Journal receives one line per pass, fire and error (scheduler.log).
	Journal *logger.Logger
	Metrics *Metrics
}

// Reconciler evaluates every minute tick missed since the last checkpoint
// against every directive. Passes are serialized.
type Reconciler struct {
	cfg ReconcilerConfig
	mu  sync.Mutex
}

// NewReconciler validates cfg and creates a Reconciler.
func NewReconciler(cfg ReconcilerConfig) (*Reconciler, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if cfg.Checkpoints == nil {
		return nil, fmt.Errorf("checkpoint store cannot be nil")
	}
	if cfg.Clock == nil {
		return nil, fmt.Errorf("clock cannot be nil")
	}
	if cfg.Firer == nil {
		return nil, fmt.Errorf("firer cannot be nil")
	}
	if cfg.CatchupMinutes < minCatchupMinutes {
		cfg.CatchupMinutes = minCatchupMinutes
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Journal == nil {
		cfg.Journal = logger.Nop()
	}
	return &Reconciler{cfg: cfg}, nil
}

// Ticks returns the inclusive list of minutes to evaluate at now given the
// last checkpoint key and the catch-up horizon.
//
// The start is the minute after lastKey. A missing or unparsable key, or one
// ahead of now (clock regression), restarts from now-1. The start never
// reaches further back than now-horizon.
func Ticks(lastKey string, now clock.TimeValue, horizon int) []clock.TimeValue {
	if horizon < minCatchupMinutes {
		horizon = minCatchupMinutes
	}

	start := clock.AddMinutes(now, -1)
	if last, ok := clock.ParseKey(lastKey); ok && clock.Compare(last, now) <= 0 {
		start = clock.AddMinutes(last, 1)
	}
	if floor := clock.AddMinutes(now, -horizon); clock.Compare(start, floor) < 0 {
		start = floor
	}

	var ticks []clock.TimeValue
	for t := start; clock.Compare(t, now) <= 0; t = clock.AddMinutes(t, 1) {
		ticks = append(ticks, t)
	}
	return ticks
}

// RunPass performs one reconciliation pass.
//
// Every parsed directive is checked against every tick in order. A directive
// fires at most once per tick (dedupe via the checkpoint's last_fire). Recurring
// directives keep scanning; one-shot directives stop at their first fire and are
// removed from the store. The checkpoint is saved whether or not anything fired.
func (r *Reconciler) RunPass(ctx context.Context) (PassResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lines, err := r.cfg.Store.Load()
	if err != nil {
		return PassResult{}, fmt.Errorf("load directives: %w", err)
	}

	cp := r.cfg.Checkpoints.Load()
	now := r.cfg.Clock.Now(ctx, r.cfg.Timezone)
	nowKey := clock.Key(now)
	ticks := Ticks(cp.LastCheckKey, now, r.cfg.CatchupMinutes)

	result := PassResult{Now: nowKey, Ticks: len(ticks)}
	r.cfg.Journal.Info("check",
		logger.Field{Key: "directives", Value: len(lines)},
		logger.Field{Key: "now", Value: nowKey},
		logger.Field{Key: "ticks", Value: len(ticks)})

	for _, line := range lines {
		if line.Directive == nil {
			result.Skipped++
			continue
		}

		if keep := r.reconcileDirective(ctx, *line.Directive, ticks, cp.LastFire, &result); !keep {
			result.Removed = append(result.Removed, line.Directive.ID)
		}
	}

	// Side effects may have changed the store (set_schedule from an agent
	// directive, a chat removing a schedule), so only the fired one-shots are
	// dropped from the current file.
	var storeErr error
	if _, err := r.cfg.Store.RemoveFired(result.Removed); err != nil {
		storeErr = fmt.Errorf("remove fired directives: %w", err)
	}

	// Forward progress: the checkpoint advances even when nothing fired.
	cp.LastCheckKey = nowKey
	if err := r.cfg.Checkpoints.Save(cp); err != nil {
		r.cfg.Metrics.observePass(result)
		return result, fmt.Errorf("save checkpoint: %w", err)
	}

	r.cfg.Metrics.observePass(result)
	if len(result.Fired) > 0 || result.Errors > 0 {
		r.cfg.Logger.InfoCtx(ctx, "schedule pass finished",
			logger.Field{Key: "now", Value: nowKey},
			logger.Field{Key: "ticks", Value: result.Ticks},
			logger.Field{Key: "fired", Value: len(result.Fired)},
			logger.Field{Key: "removed", Value: len(result.Removed)},
			logger.Field{Key: "errors", Value: result.Errors})
	}
	return result, storeErr
}

// reconcileDirective scans ticks for one directive and reports whether the
// directive stays in the store.
func (r *Reconciler) reconcileDirective(ctx context.Context, d Directive, ticks []clock.TimeValue, lastFire map[string]string, result *PassResult) bool {
	oneShot := IsOneShot(d.Type)

	for _, tick := range ticks {
		if !Match(d.Cron, tick) {
			continue
		}
		tickKey := clock.Key(tick)
		if lastFire[d.ID] == tickKey {
			continue
		}

		fired, err := r.fire(ctx, d)
		if err != nil {
			result.Errors++
			r.cfg.Logger.ErrorCtx(ctx, "directive failed", err,
				logger.Field{Key: "id", Value: d.ID},
				logger.Field{Key: "type", Value: d.Type},
				logger.Field{Key: "tick", Value: tickKey})
			r.cfg.Journal.Info("error",
				logger.Field{Key: "id", Value: d.ID},
				logger.Field{Key: "error", Value: err.Error()})
			continue
		}
		if !fired {
			continue
		}

		lastFire[d.ID] = tickKey
		result.Fired = append(result.Fired, Firing{ID: d.ID, Type: d.Type, Tick: tickKey})
		r.cfg.Journal.Info("fired",
			logger.Field{Key: "id", Value: d.ID},
			logger.Field{Key: "tick", Value: tickKey})

		if oneShot {
			return false
		}
	}
	return true
}

// fire isolates a directive: a panic inside its side effect becomes an error.
func (r *Reconciler) fire(ctx context.Context, d Directive) (fired bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			fired = false
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return r.cfg.Firer.Fire(ctx, d)
}
