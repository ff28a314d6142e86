// Package scheduler drives periodic check rounds ("ticks"): it snapshots
// the active targets, probes them concurrently and hands the fan-in to a
// Committer. Ticks never overlap.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/sitewatch/internal/domain"
	"github.com/hamed0406/sitewatch/internal/probe"
)

// Source yields the targets to probe on each tick.
type Source interface {
	ActiveTargets() []domain.Target
}

// Committer receives the results of one complete tick.
type Committer interface {
	Commit(ctx context.Context, results []Result)
}

// Result is one probe outcome, tied to the target snapshot it was taken for.
type Result struct {
	Target    domain.Target
	Outcome   domain.CheckOutcome
	CheckedAt time.Time
}

type Config struct {
	Interval time.Duration
	// Timeout bounds one probe; it is further capped at Interval/2.
	Timeout time.Duration
	// MaxConcurrent limits in-flight probes. Zero means one per target.
	MaxConcurrent int
}

type Scheduler struct {
	logger    *zap.Logger
	source    Source
	committer Committer
	prober    probe.Prober
	cfg       Config

	mu       sync.Mutex
	interval time.Duration
	started  bool
	stopped  bool
	cancel   context.CancelFunc
	reset    chan struct{}
	trigger  chan struct{}

	running atomic.Bool
	wg      sync.WaitGroup
	now     func() time.Time
}

func New(logger *zap.Logger, src Source, c Committer, p probe.Prober, cfg Config) (*Scheduler, error) {
	if cfg.Interval == 0 {
		cfg.Interval = domain.DefaultInterval
	}
	if err := domain.ValidateInterval(cfg.Interval); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxConcurrent < 0 {
		cfg.MaxConcurrent = 0
	}
	return &Scheduler{
		logger:    logger,
		source:    src,
		committer: c,
		prober:    p,
		cfg:       cfg,
		interval:  cfg.Interval,
		reset:     make(chan struct{}, 1),
		trigger:   make(chan struct{}, 1),
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Interval returns the current tick period.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// ProbeTimeout is the per-probe deadline for the current interval.
func (s *Scheduler) ProbeTimeout() time.Duration {
	half := s.Interval() / 2
	if s.cfg.Timeout < half {
		return s.cfg.Timeout
	}
	return half
}

// Start runs one tick immediately, then one per interval until Stop or
// until ctx ends. Calling Start twice, or after Stop, does nothing.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	interval := s.interval
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.loop(loopCtx, interval)
	}()
	s.logger.Info("scheduler_started", zap.Duration("interval", interval))
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration) {
	s.spawn(ctx, "start")

	ticker := time.NewTicker(interval)
	defer func() { ticker.Stop() }()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler_stopped")
			return
		case <-s.reset:
			ticker.Stop()
			ticker = time.NewTicker(s.Interval())
			s.spawn(ctx, "interval_changed")
		case <-s.trigger:
			s.spawn(ctx, "manual")
		case <-ticker.C:
			s.spawn(ctx, "timer")
		}
	}
}

// SetInterval switches to d, which must be one of domain.Intervals. A
// running scheduler reinstalls its timer and checks immediately.
func (s *Scheduler) SetInterval(d time.Duration) error {
	if err := domain.ValidateInterval(d); err != nil {
		return err
	}
	s.mu.Lock()
	s.interval = d
	active := s.started && !s.stopped
	s.mu.Unlock()

	if active {
		select {
		case s.reset <- struct{}{}:
		default:
		}
	}
	return nil
}

// TriggerNow requests an out-of-band tick. It returns false when the
// scheduler is not running.
func (s *Scheduler) TriggerNow() bool {
	s.mu.Lock()
	active := s.started && !s.stopped
	s.mu.Unlock()
	if !active {
		return false
	}
	select {
	case s.trigger <- struct{}{}:
	default:
	}
	return true
}

// Stop cancels the loop and any in-flight tick and waits for them. An
// interrupted tick commits nothing. Stop is idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) spawn(ctx context.Context, reason string) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Info("tick_skipped", zap.String("reason", reason))
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)
		s.tick(ctx, reason)
	}()
}

// RunOnce performs a tick synchronously. It returns false, without
// probing, when another tick is in flight.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Info("tick_skipped", zap.String("reason", "run_once"))
		return false
	}
	defer s.running.Store(false)
	s.tick(ctx, "run_once")
	return true
}

func (s *Scheduler) tick(ctx context.Context, reason string) {
	start := time.Now()
	targets := s.source.ActiveTargets()
	if len(targets) == 0 {
		s.logger.Debug("tick_empty", zap.String("reason", reason))
		return
	}

	timeout := s.ProbeTimeout()
	results := make([]Result, len(targets))

	var g errgroup.Group
	limit := s.cfg.MaxConcurrent
	if limit == 0 {
		limit = len(targets)
	}
	g.SetLimit(limit)

	for i, t := range targets {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			out := s.guardedProbe(pctx, t)
			results[i] = Result{Target: t, Outcome: out, CheckedAt: s.now()}
			s.logger.Debug("target_checked",
				zap.String("target_id", string(t.ID)),
				zap.String("url", t.URL),
				zap.String("status", string(out.Status)),
				zap.Int64("response_time_ms", out.ResponseTimeMs),
				zap.String("error", out.Error),
			)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		s.logger.Info("tick_abandoned", zap.String("reason", reason), zap.Int("targets", len(targets)))
		return
	}
	s.committer.Commit(ctx, results)

	online := 0
	for _, r := range results {
		if r.Outcome.Status == domain.StatusOnline {
			online++
		}
	}
	s.logger.Info("tick_done",
		zap.String("reason", reason),
		zap.Int("targets", len(targets)),
		zap.Int("online", online),
		zap.Int("offline", len(targets)-online),
		zap.Duration("took", time.Since(start)),
	)
}

// guardedProbe converts a panicking probe, or one that outlives its
// deadline, into an offline outcome.
func (s *Scheduler) guardedProbe(ctx context.Context, t domain.Target) domain.CheckOutcome {
	ch := make(chan domain.CheckOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				id := uuid.NewString()
				s.logger.Error("probe_panic",
					zap.String("panic_id", id),
					zap.String("target_id", string(t.ID)),
					zap.Any("panic", r),
				)
				ch <- domain.Offline(fmt.Sprintf("probe failed (panic %s)", id))
			}
		}()
		ch <- s.prober.Probe(ctx, t.URL)
	}()

	select {
	case out := <-ch:
		return normalize(out)
	case <-ctx.Done():
		return domain.Offline("timeout: " + ctx.Err().Error())
	}
}

// normalize rejects outcomes a prober must never report.
func normalize(out domain.CheckOutcome) domain.CheckOutcome {
	switch out.Status {
	case domain.StatusOnline:
		return out
	case domain.StatusOffline:
		out.ResponseTimeMs = 0
		return out
	default:
		return domain.Offline(fmt.Sprintf("prober returned status %q", out.Status))
	}
}
