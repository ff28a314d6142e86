package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/sitewatch/internal/domain"
)

// Add registers a target. It is probed from the next tick on.
func (e *Engine) Add(ctx context.Context, url, name, category string) (domain.Target, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, err := e.targets.Add(url, name, category)
	if err != nil {
		return domain.Target{}, err
	}
	e.logger.Info("target_added", zap.String("target_id", string(t.ID)), zap.String("url", t.URL))
	e.persistMutationLocked(ctx)
	return t, nil
}

// Remove deletes a target and its history. Unknown ids report false.
// A probe of the target still in flight is discarded at commit.
func (e *Engine) Remove(ctx context.Context, id domain.TargetID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.targets.Remove(id) {
		return false
	}
	e.history.Drop(id)
	e.logger.Info("target_removed", zap.String("target_id", string(id)))
	e.persistMutationLocked(ctx)
	return true
}

func (e *Engine) Edit(ctx context.Context, id domain.TargetID, p domain.TargetPatch) (domain.Target, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, err := e.targets.Edit(id, p)
	if err != nil {
		return domain.Target{}, err
	}
	e.logger.Info("target_edited", zap.String("target_id", string(id)), zap.String("url", t.URL))
	e.persistMutationLocked(ctx)
	return t, nil
}

// SetPaused freezes or resumes a target. A paused target keeps its
// status, uptime and history; resuming resets its status to unknown.
func (e *Engine) SetPaused(ctx context.Context, id domain.TargetID, paused bool) (domain.Target, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	before, err := e.targets.Get(id)
	if err != nil {
		return domain.Target{}, err
	}
	t, err := e.targets.SetPaused(id, paused)
	if err != nil {
		return domain.Target{}, err
	}
	if before.Paused != paused {
		e.logger.Info("target_paused", zap.String("target_id", string(id)), zap.Bool("paused", paused))
		e.persistMutationLocked(ctx)
	}
	return t, nil
}

// SetInterval changes the check period. d must be one of
// domain.Intervals; a running scheduler checks immediately.
func (e *Engine) SetInterval(ctx context.Context, d time.Duration) error {
	if err := domain.ValidateInterval(d); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sched != nil {
		if err := e.sched.SetInterval(d); err != nil {
			return err
		}
	}
	e.interval = d
	e.logger.Info("interval_changed", zap.Duration("interval", d))

	pctx, cancel := e.persistCtx(ctx)
	defer cancel()
	if err := e.store.SaveInterval(pctx, d); err != nil {
		e.logger.Error("persist_error", zap.String("what", "interval"), zap.Error(err))
	}
	return nil
}
