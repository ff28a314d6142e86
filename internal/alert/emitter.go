// Package alert turns committed status transitions into user-facing
// alerts and forwards failures to the notification sink.
package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hamed0406/sitewatch/internal/domain"
)

// Capacity is the size of the global alert log.
const Capacity = 10

type Config struct {
	// NotifyTimeout bounds a single notifier call. Zero means 10s.
	NotifyTimeout time.Duration
}

type Emitter struct {
	logger   *zap.Logger
	notifier interface {
		Send(context.Context, string, string) error
	}
	cfg Config

	mu     sync.Mutex
	alerts []domain.Alert // newest first

	inflight sync.WaitGroup
	now      func() time.Time
	newID    func() string
}

func NewEmitter(
	logger *zap.Logger,
	notifier interface {
		Send(context.Context, string, string) error
	},
	cfg Config,
) *Emitter {
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 10 * time.Second
	}
	return &Emitter{
		logger:   logger,
		notifier: notifier,
		cfg:      cfg,
		alerts:   make([]domain.Alert, 0, Capacity),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// Observe inspects one committed transition. Only online→offline and
// offline→online produce an alert; first observations (from unknown)
// and repeated states never do.
func (e *Emitter) Observe(tr domain.Transition) (domain.Alert, bool) {
	prev, next := tr.Previous, tr.Target.Status
	var a domain.Alert
	switch {
	case prev == domain.StatusOnline && next == domain.StatusOffline:
		a = e.newAlert(tr.Target, domain.AlertFailure,
			fmt.Sprintf("🚨 %s (%s) is OFFLINE", tr.Target.Name, tr.Target.URL))
	case prev == domain.StatusOffline && next == domain.StatusOnline:
		a = e.newAlert(tr.Target, domain.AlertRecovery,
			fmt.Sprintf("✅ %s (%s) is back ONLINE", tr.Target.Name, tr.Target.URL))
	default:
		return domain.Alert{}, false
	}

	e.push(a)
	e.logger.Info("alert_emitted",
		zap.String("alert_id", a.ID),
		zap.String("kind", string(a.Kind)),
		zap.String("target_id", string(tr.Target.ID)),
		zap.String("url", tr.Target.URL),
	)

	if a.Kind == domain.AlertFailure {
		cause := tr.Outcome.Error
		if cause == "" {
			cause = "unknown"
		}
		e.dispatch(
			"Site down: "+tr.Target.Name,
			fmt.Sprintf("%s is not responding. Cause: %s", tr.Target.URL, cause),
		)
	}
	return a, true
}

func (e *Emitter) newAlert(t domain.Target, kind domain.AlertKind, msg string) domain.Alert {
	return domain.Alert{
		ID:        e.newID(),
		TargetID:  t.ID,
		Kind:      kind,
		Message:   msg,
		Timestamp: e.now(),
	}
}

func (e *Emitter) push(a domain.Alert) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.alerts = append([]domain.Alert{a}, e.alerts...)
	if len(e.alerts) > Capacity {
		e.alerts = e.alerts[:Capacity]
	}
}

// dispatch sends in the background; sink failures never reach the engine.
func (e *Emitter) dispatch(title, body string) {
	if e.notifier == nil {
		return
	}
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("notify_panic", zap.Any("panic", r))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.NotifyTimeout)
		defer cancel()
		if err := e.notifier.Send(ctx, title, body); err != nil {
			e.logger.Warn("notify_error", zap.String("title", title), zap.Error(err))
		}
	}()
}

// Recent returns the alert log, newest first.
func (e *Emitter) Recent() []domain.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Alert, len(e.alerts))
	copy(out, e.alerts)
	return out
}

// Restore seeds the log from persistence. Input is expected newest
// first and is truncated to Capacity.
func (e *Emitter) Restore(alerts []domain.Alert) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := len(alerts)
	if n > Capacity {
		n = Capacity
	}
	e.alerts = make([]domain.Alert, n, Capacity)
	copy(e.alerts, alerts[:n])
}

// Wait blocks until every in-flight notification has returned.
func (e *Emitter) Wait() { e.inflight.Wait() }
