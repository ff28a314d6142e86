package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/hamed0406/sitewatch/internal/domain"
	"github.com/hamed0406/sitewatch/internal/scheduler"
)

// ActiveTargets is the scheduler's per-tick snapshot.
func (e *Engine) ActiveTargets() []domain.Target {
	return e.targets.Active()
}

// Commit applies one tick's results: state machine, history, alerts,
// then a save. Results for targets removed, paused or re-pointed since
// the snapshot are dropped.
func (e *Engine) Commit(ctx context.Context, results []scheduler.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()

	applied, alerted := 0, false
	for _, r := range results {
		tr, ok := e.targets.Apply(r.Target.ID, r.Target.URL, r.Outcome, r.CheckedAt)
		if !ok {
			e.logger.Debug("result_discarded", zap.String("target_id", string(r.Target.ID)))
			continue
		}
		applied++
		e.history.Append(tr.Target.ID, tr.Record)
		if _, ok := e.alerts.Observe(tr); ok {
			alerted = true
		}
	}
	if applied == 0 {
		return
	}
	if e.targetsHeld {
		e.logger.Debug("persist_held", zap.String("what", "targets"), zap.Int("applied", applied))
	} else {
		e.persistTargetsLocked(ctx)
	}
	if alerted && !e.alertsHeld {
		pctx, cancel := e.persistCtx(ctx)
		defer cancel()
		if err := e.store.SaveAlerts(pctx, e.alerts.Recent()); err != nil {
			e.logger.Error("persist_error", zap.String("what", "alerts"), zap.Error(err))
		}
	}
}

var (
	_ scheduler.Source    = (*Engine)(nil)
	_ scheduler.Committer = (*Engine)(nil)
)
