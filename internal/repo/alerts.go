package repo

import (
	"context"

	"github.com/hamed0406/sitewatch/internal/domain"
)

// AlertStore persists the global alert log, newest first. LoadAlerts
// returns nil, nil when no alert was saved.
type AlertStore interface {
	LoadAlerts(ctx context.Context) ([]domain.Alert, error)
	SaveAlerts(ctx context.Context, alerts []domain.Alert) error
}

// CloneSnapshots deep-copies snapshots so stores never share history
// slices or timestamps with callers.
func CloneSnapshots(in []domain.TargetSnapshot) []domain.TargetSnapshot {
	if in == nil {
		return nil
	}
	out := make([]domain.TargetSnapshot, len(in))
	for i, s := range in {
		t := s.Target
		if t.LastCheckedAt != nil {
			at := *t.LastCheckedAt
			t.LastCheckedAt = &at
		}
		out[i] = domain.TargetSnapshot{
			Target:  t,
			History: append([]domain.CheckRecord(nil), s.History...),
		}
	}
	return out
}
