package repo

import (
	"context"
	"errors"
	"time"

	"github.com/hamed0406/sitewatch/internal/domain"
)

// ErrNotFound reports that nothing has been saved yet (first run).
var ErrNotFound = errors.New("no saved state")

// Ports (interfaces) — swap in any storage adapter.

// TargetStore persists the registry together with each target's history.
// LoadTargets returns ErrNotFound when SaveTargets was never called; an
// empty but saved registry loads as an empty slice.
type TargetStore interface {
	LoadTargets(ctx context.Context) ([]domain.TargetSnapshot, error)
	SaveTargets(ctx context.Context, ts []domain.TargetSnapshot) error
}

// SettingsStore persists the check interval. LoadInterval returns 0, nil
// when no interval was saved.
type SettingsStore interface {
	LoadInterval(ctx context.Context) (time.Duration, error)
	SaveInterval(ctx context.Context, d time.Duration) error
}

// Store is everything the engine persists.
type Store interface {
	TargetStore
	SettingsStore
	AlertStore
	Close() error
}
