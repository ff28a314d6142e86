// Package engine owns the monitoring state (targets, per-target history,
// alert log, check interval) and is the single place where it changes.
// Registry edits from callers and tick commits from the scheduler are
// serialized by one mutex. Committed changes are persisted unless a
// failed load holds them back.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/sitewatch/internal/alert"
	"github.com/hamed0406/sitewatch/internal/domain"
	"github.com/hamed0406/sitewatch/internal/history"
	"github.com/hamed0406/sitewatch/internal/probe"
	"github.com/hamed0406/sitewatch/internal/registry"
	"github.com/hamed0406/sitewatch/internal/repo"
	"github.com/hamed0406/sitewatch/internal/repo/memory"
	"github.com/hamed0406/sitewatch/internal/scheduler"
)

// Seed is a target registered when storage holds no saved registry.
type Seed struct {
	URL      string
	Name     string
	Category string
}

type Options struct {
	// Interval is used when storage has no saved interval. Zero means
	// domain.DefaultInterval.
	Interval time.Duration
	Seeds    []Seed
	Alert    alert.Config
	// PersistTimeout bounds one save. Zero means 5s.
	PersistTimeout time.Duration
}

type Engine struct {
	logger  *zap.Logger
	store   repo.Store
	targets *registry.Registry
	history *history.Book
	alerts  *alert.Emitter
	opts    Options

	// mu serializes registry and history mutations against tick commits
	// and keeps saves in commit order.
	mu       sync.Mutex
	interval time.Duration
	sched    *scheduler.Scheduler
	// targetsHeld and alertsHeld are set when the saved targets or
	// alerts could not be read. Tick commits and Close then leave them in
	// storage untouched until an explicit registry mutation.
	targetsHeld bool
	alertsHeld  bool
}

// Init builds the engine state from storage. Missing or unreadable
// targets fall back to opts.Seeds; load failures are logged, never
// fatal. A nil store keeps everything in memory.
func Init(
	ctx context.Context,
	logger *zap.Logger,
	store repo.Store,
	notifier interface {
		Send(context.Context, string, string) error
	},
	opts Options,
) *Engine {
	if store == nil {
		store = memory.New()
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 5 * time.Second
	}
	e := &Engine{
		logger:   logger,
		store:    store,
		targets:  registry.New(),
		history:  history.NewBook(),
		alerts:   alert.NewEmitter(logger, notifier, opts.Alert),
		opts:     opts,
		interval: domain.DefaultInterval,
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.loadInterval(ctx)

	snaps, err := store.LoadTargets(ctx)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		e.seed()
		e.persistTargetsLocked(ctx)
	case err != nil:
		logger.Error("load_error", zap.String("what", "targets"), zap.Error(err))
		e.targetsHeld = true
		e.seed()
	default:
		e.restore(snaps)
	}

	alerts, err := store.LoadAlerts(ctx)
	if err != nil {
		logger.Error("load_error", zap.String("what", "alerts"), zap.Error(err))
		e.alertsHeld = true
	} else {
		e.alerts.Restore(alerts)
	}

	logger.Info("engine_ready",
		zap.Int("targets", e.targets.Len()),
		zap.Duration("interval", e.interval),
	)
	return e
}

func (e *Engine) loadInterval(ctx context.Context) {
	if e.opts.Interval != 0 {
		if err := domain.ValidateInterval(e.opts.Interval); err != nil {
			e.logger.Warn("config_interval_ignored", zap.Error(err))
		} else {
			e.interval = e.opts.Interval
		}
	}
	d, err := e.store.LoadInterval(ctx)
	if err != nil {
		e.logger.Error("load_error", zap.String("what", "interval"), zap.Error(err))
		return
	}
	if d == 0 {
		return
	}
	if err := domain.ValidateInterval(d); err != nil {
		e.logger.Warn("saved_interval_ignored", zap.Error(err))
		return
	}
	e.interval = d
}

func (e *Engine) seed() {
	for _, s := range e.opts.Seeds {
		t, err := e.targets.Add(s.URL, s.Name, s.Category)
		if err != nil {
			e.logger.Warn("seed_skipped", zap.String("url", s.URL), zap.Error(err))
			continue
		}
		e.logger.Info("target_seeded", zap.String("target_id", string(t.ID)), zap.String("url", t.URL))
	}
}

func (e *Engine) restore(snaps []domain.TargetSnapshot) {
	ts := make([]domain.Target, 0, len(snaps))
	hist := make(map[domain.TargetID][]domain.CheckRecord, len(snaps))
	for _, s := range snaps {
		t := s.Target
		if t.ID == "" {
			t.ID = domain.TargetID(uuid.NewString())
		}
		if _, dup := hist[t.ID]; dup {
			continue
		}
		hist[t.ID] = s.History
		ts = append(ts, t)
	}
	for _, t := range e.targets.Restore(ts) {
		e.history.Seed(t.ID, hist[t.ID])
	}
}

// Start launches the scheduler with the engine as its source and
// committer. The interval comes from the engine state.
func (e *Engine) Start(ctx context.Context, p probe.Prober, cfg scheduler.Config) error {
	e.mu.Lock()
	if e.sched != nil {
		e.mu.Unlock()
		return errors.New("engine already started")
	}
	cfg.Interval = e.interval
	s, err := scheduler.New(e.logger, e, e, p, cfg)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.sched = s
	e.mu.Unlock()

	s.Start(ctx)
	return nil
}

// CheckNow asks the scheduler for an immediate tick. It reports false
// when the engine was not started.
func (e *Engine) CheckNow() bool {
	e.mu.Lock()
	s := e.sched
	e.mu.Unlock()
	return s != nil && s.TriggerNow()
}

// Close stops the scheduler, waits for pending notifications and
// flushes the full state to storage.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	s := e.sched
	e.mu.Unlock()
	if s != nil {
		s.Stop()
	}
	e.alerts.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	pctx, cancel := e.persistCtx(ctx)
	defer cancel()
	err := e.store.SaveInterval(pctx, e.interval)
	if e.targetsHeld {
		e.logger.Warn("final_save_held", zap.String("what", "targets"))
	} else {
		err = multierr.Append(err, e.store.SaveTargets(pctx, e.snapshotLocked()))
	}
	if e.alertsHeld {
		e.logger.Warn("final_save_held", zap.String("what", "alerts"))
	} else {
		err = multierr.Append(err, e.store.SaveAlerts(pctx, e.alerts.Recent()))
	}
	return err
}
