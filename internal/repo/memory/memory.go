// Package memory is an in-process Store, used in tests and when no
// durable storage is configured.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hamed0406/sitewatch/internal/domain"
	"github.com/hamed0406/sitewatch/internal/repo"
)

type Store struct {
	mu       sync.RWMutex
	saved    bool
	targets  []domain.TargetSnapshot
	alerts   []domain.Alert
	interval time.Duration
}

func New() *Store {
	return &Store{}
}

func (m *Store) LoadTargets(ctx context.Context) ([]domain.TargetSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.saved {
		return nil, repo.ErrNotFound
	}
	out := repo.CloneSnapshots(m.targets)
	if out == nil {
		out = []domain.TargetSnapshot{}
	}
	return out, nil
}

func (m *Store) SaveTargets(ctx context.Context, ts []domain.TargetSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.targets = repo.CloneSnapshots(ts)
	m.saved = true
	return nil
}

func (m *Store) LoadInterval(ctx context.Context) (time.Duration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.interval, nil
}

func (m *Store) SaveInterval(ctx context.Context, d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interval = d
	return nil
}

func (m *Store) LoadAlerts(ctx context.Context) ([]domain.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.alerts) == 0 {
		return nil, nil
	}
	return append([]domain.Alert(nil), m.alerts...), nil
}

func (m *Store) SaveAlerts(ctx context.Context, alerts []domain.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append([]domain.Alert(nil), alerts...)
	return nil
}

func (m *Store) Close() error { return nil }

var _ repo.Store = (*Store)(nil)
