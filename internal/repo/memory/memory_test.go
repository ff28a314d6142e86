package memory

import (
	"context"
	"testing"
	"time"

	"github.com/hamed0406/sitewatch/internal/repo/repotest"
)

func TestMemoryStore(t *testing.T) {
	repotest.Run(t, New())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	in := repotest.Snapshots()
	if err := s.SaveTargets(ctx, in); err != nil {
		t.Fatal(err)
	}
	in[1].History[0].ResponseTimeMs = 999
	*in[1].Target.LastCheckedAt = time.Time{}

	got, _ := s.LoadTargets(ctx)
	if got[1].History[0].ResponseTimeMs != 120 {
		t.Fatal("store shares history with caller")
	}
	if got[1].Target.LastCheckedAt.IsZero() {
		t.Fatal("store shares LastCheckedAt with caller")
	}
}
