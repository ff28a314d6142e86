package engine

import (
	"math"
	"time"

	"github.com/hamed0406/sitewatch/internal/domain"
)

// ListTargets returns targets in registration order; an empty category
// returns all of them.
func (e *Engine) ListTargets(category string) []domain.Target {
	return e.targets.List(category)
}

func (e *Engine) Get(id domain.TargetID) (domain.Target, error) {
	return e.targets.Get(id)
}

// RecentHistory returns up to history.Capacity records, oldest first.
func (e *Engine) RecentHistory(id domain.TargetID) ([]domain.CheckRecord, error) {
	if _, err := e.targets.Get(id); err != nil {
		return nil, err
	}
	return e.history.Recent(id), nil
}

// RecentAlerts returns the alert log, newest first.
func (e *Engine) RecentAlerts() []domain.Alert {
	return e.alerts.Recent()
}

// CurrentStats counts a category (all targets when empty). AvgUptime is
// the rounded mean uptime score, 0 for an empty category.
func (e *Engine) CurrentStats(category string) domain.Stats {
	ts := e.targets.List(category)
	st := domain.Stats{Category: category, Total: len(ts)}
	var sum float64
	for _, t := range ts {
		switch t.Status {
		case domain.StatusOnline:
			st.Online++
		case domain.StatusOffline:
			st.Offline++
		}
		sum += t.UptimeScore
	}
	if len(ts) > 0 {
		st.AvgUptime = int(math.Round(sum / float64(len(ts))))
	}
	return st
}

func (e *Engine) Categories() []string {
	return e.targets.Categories()
}

func (e *Engine) Interval() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.interval
}
