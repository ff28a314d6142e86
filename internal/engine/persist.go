package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/hamed0406/sitewatch/internal/domain"
)

// persistCtx outlives a cancelled caller so a shutdown still flushes.
func (e *Engine) persistCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), e.opts.PersistTimeout)
}

func (e *Engine) snapshotLocked() []domain.TargetSnapshot {
	ts := e.targets.List("")
	out := make([]domain.TargetSnapshot, 0, len(ts))
	for _, t := range ts {
		out = append(out, domain.TargetSnapshot{Target: t, History: e.history.Recent(t.ID)})
	}
	return out
}

// persistTargetsLocked saves the registry. Failures are logged and the
// engine keeps running from memory. Callers hold e.mu.
func (e *Engine) persistTargetsLocked(ctx context.Context) {
	pctx, cancel := e.persistCtx(ctx)
	defer cancel()
	if err := e.store.SaveTargets(pctx, e.snapshotLocked()); err != nil {
		e.logger.Error("persist_error", zap.String("what", "targets"), zap.Error(err))
	}
}

// persistMutationLocked saves after an explicit registry change. Such a
// change replaces whatever unreadable state storage held, so it also
// lifts any hold set by a failed load.
func (e *Engine) persistMutationLocked(ctx context.Context) {
	e.targetsHeld = false
	if e.alertsHeld {
		e.alertsHeld = false
		e.logger.Info("persist_resumed", zap.String("what", "alerts"))
		pctx, cancel := e.persistCtx(ctx)
		defer cancel()
		if err := e.store.SaveAlerts(pctx, e.alerts.Recent()); err != nil {
			e.logger.Error("persist_error", zap.String("what", "alerts"), zap.Error(err))
		}
	}
	e.persistTargetsLocked(ctx)
}
