// Package repotest holds a behavioural test suite shared by every
// repo.Store implementation.
package repotest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hamed0406/sitewatch/internal/domain"
	"github.com/hamed0406/sitewatch/internal/repo"
)

// Snapshots returns two targets, one never checked and one with history.
func Snapshots() []domain.TargetSnapshot {
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	checked := created.Add(time.Minute)
	return []domain.TargetSnapshot{
		{
			Target: domain.Target{
				ID: "b-second", URL: "https://b.example", Name: "B", Category: "clientes",
				Status: domain.StatusUnknown, UptimeScore: 100, CreatedAt: created,
			},
		},
		{
			Target: domain.Target{
				ID: "a-first", URL: "https://a.example/path", Name: "A", Category: "INTERCERT",
				Paused: true, Status: domain.StatusOffline, LastCheckedAt: &checked,
				UptimeScore: 95.1, LastError: "HTTP error 503", CreatedAt: created,
			},
			History: []domain.CheckRecord{
				{Timestamp: created.Add(30 * time.Second), Status: domain.StatusOnline, ResponseTimeMs: 120},
				{Timestamp: checked, Status: domain.StatusOffline},
			},
		},
	}
}

// Run exercises s, which must be empty.
func Run(t *testing.T, s repo.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("first load is not found", func(t *testing.T) {
		if _, err := s.LoadTargets(ctx); !errors.Is(err, repo.ErrNotFound) {
			t.Fatalf("want ErrNotFound, got %v", err)
		}
		if d, err := s.LoadInterval(ctx); err != nil || d != 0 {
			t.Fatalf("want 0,nil for unset interval, got %s, %v", d, err)
		}
		if a, err := s.LoadAlerts(ctx); err != nil || len(a) != 0 {
			t.Fatalf("want no alerts, got %v, %v", a, err)
		}
	})

	t.Run("targets round trip in order", func(t *testing.T) {
		in := Snapshots()
		if err := s.SaveTargets(ctx, in); err != nil {
			t.Fatalf("SaveTargets: %v", err)
		}
		got, err := s.LoadTargets(ctx)
		if err != nil {
			t.Fatalf("LoadTargets: %v", err)
		}
		if len(got) != len(in) {
			t.Fatalf("want %d targets, got %d", len(in), len(got))
		}
		for i := range in {
			assertTarget(t, in[i].Target, got[i].Target)
			if len(got[i].History) != len(in[i].History) {
				t.Fatalf("%s: want %d records, got %d", in[i].Target.ID, len(in[i].History), len(got[i].History))
			}
			for j, rec := range in[i].History {
				g := got[i].History[j]
				if !g.Timestamp.Equal(rec.Timestamp) || g.Status != rec.Status || g.ResponseTimeMs != rec.ResponseTimeMs {
					t.Fatalf("%s record %d: want %+v, got %+v", in[i].Target.ID, j, rec, g)
				}
			}
		}
	})

	t.Run("save replaces previous state", func(t *testing.T) {
		in := Snapshots()[1:]
		if err := s.SaveTargets(ctx, in); err != nil {
			t.Fatalf("SaveTargets: %v", err)
		}
		got, err := s.LoadTargets(ctx)
		if err != nil || len(got) != 1 || got[0].Target.ID != "a-first" {
			t.Fatalf("want only a-first, got %+v, %v", got, err)
		}
		if err := s.SaveTargets(ctx, nil); err != nil {
			t.Fatalf("SaveTargets(nil): %v", err)
		}
		got, err = s.LoadTargets(ctx)
		if err != nil || len(got) != 0 {
			t.Fatalf("empty registry must load as empty, got %+v, %v", got, err)
		}
	})

	t.Run("interval round trip", func(t *testing.T) {
		if err := s.SaveInterval(ctx, time.Minute); err != nil {
			t.Fatalf("SaveInterval: %v", err)
		}
		if d, err := s.LoadInterval(ctx); err != nil || d != time.Minute {
			t.Fatalf("want 1m, got %s, %v", d, err)
		}
	})

	t.Run("alerts round trip newest first", func(t *testing.T) {
		at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
		in := []domain.Alert{
			{ID: "al-2", TargetID: "a-first", Kind: domain.AlertRecovery, Message: "✅ A (https://a.example/path) is back ONLINE", Timestamp: at.Add(time.Minute)},
			{ID: "al-1", TargetID: "a-first", Kind: domain.AlertFailure, Message: "🚨 A (https://a.example/path) is OFFLINE", Timestamp: at},
		}
		if err := s.SaveAlerts(ctx, in); err != nil {
			t.Fatalf("SaveAlerts: %v", err)
		}
		got, err := s.LoadAlerts(ctx)
		if err != nil || len(got) != 2 {
			t.Fatalf("want 2 alerts, got %+v, %v", got, err)
		}
		for i := range in {
			if got[i].ID != in[i].ID || got[i].Kind != in[i].Kind || got[i].Message != in[i].Message ||
				got[i].TargetID != in[i].TargetID || !got[i].Timestamp.Equal(in[i].Timestamp) {
				t.Fatalf("alert %d: want %+v, got %+v", i, in[i], got[i])
			}
		}
	})
}

func assertTarget(t *testing.T, want, got domain.Target) {
	t.Helper()
	if got.ID != want.ID || got.URL != want.URL || got.Name != want.Name || got.Category != want.Category ||
		got.Paused != want.Paused || got.Status != want.Status || got.LastResponseTimeMs != want.LastResponseTimeMs ||
		got.UptimeScore != want.UptimeScore || got.LastError != want.LastError || !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("target mismatch:\nwant %+v\n got %+v", want, got)
	}
	switch {
	case want.LastCheckedAt == nil && got.LastCheckedAt != nil:
		t.Fatalf("%s: want nil LastCheckedAt, got %v", want.ID, got.LastCheckedAt)
	case want.LastCheckedAt != nil && (got.LastCheckedAt == nil || !got.LastCheckedAt.Equal(*want.LastCheckedAt)):
		t.Fatalf("%s: want LastCheckedAt %v, got %v", want.ID, want.LastCheckedAt, got.LastCheckedAt)
	}
}
