package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hamed0406/sitewatch/internal/repo/repotest"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sitewatch.db")
	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestSQLiteStore(t *testing.T) {
	s, _ := openTemp(t)
	repotest.Run(t, s)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	s, path := openTemp(t)
	if err := s.SaveTargets(ctx, repotest.Snapshots()); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveInterval(ctx, 10*time.Second); err != nil {
		t.Fatal(err)
	}
	s.Close()

	again, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer again.Close()
	ts, err := again.LoadTargets(ctx)
	if err != nil || len(ts) != 2 || ts[0].Target.ID != "b-second" {
		t.Fatalf("unexpected reload: %+v, %v", ts, err)
	}
	if d, _ := again.LoadInterval(ctx); d != 10*time.Second {
		t.Fatalf("want 10s, got %s", d)
	}
}

func TestSQLiteStore_UnsetSettingsAreNotErrors(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t)
	if d, err := s.LoadInterval(ctx); err != nil || d != 0 {
		t.Fatalf("unset interval: want 0, nil; got %s, %v", d, err)
	}
	v, ok, err := s.setting(ctx, "no_such_key")
	if err != nil || ok || v != "" {
		t.Fatalf("missing setting: got %q, %t, %v", v, ok, err)
	}
}
