package engine

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hamed0406/sitewatch/internal/domain"
	"github.com/hamed0406/sitewatch/internal/probe"
	"github.com/hamed0406/sitewatch/internal/repo"
	"github.com/hamed0406/sitewatch/internal/repo/file"
	"github.com/hamed0406/sitewatch/internal/repo/memory"
	"github.com/hamed0406/sitewatch/internal/scheduler"
)

// --- fakes ---

type sentMsg struct{ title, text string }

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMsg
}

func (f *fakeNotifier) Send(ctx context.Context, title, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMsg{title, text})
	return nil
}

func (f *fakeNotifier) all() []sentMsg {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMsg(nil), f.sent...)
}

// failingStore wraps a memory store and fails every save.
type failingStore struct {
	*memory.Store
	saves int
}

var errDiskFull = errors.New("disk full")

func (f *failingStore) SaveTargets(ctx context.Context, ts []domain.TargetSnapshot) error {
	f.saves++
	return errDiskFull
}

func (f *failingStore) SaveAlerts(ctx context.Context, a []domain.Alert) error {
	return errDiskFull
}

func newEngine(t *testing.T, store repo.Store, n *fakeNotifier, opts Options) *Engine {
	t.Helper()
	var notifier interface {
		Send(context.Context, string, string) error
	}
	if n != nil {
		notifier = n
	}
	return Init(context.Background(), zap.NewNop(), store, notifier, opts)
}

func result(t domain.Target, out domain.CheckOutcome, at time.Time) []scheduler.Result {
	return []scheduler.Result{{Target: t, Outcome: out, CheckedAt: at}}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// --- tests ---

func TestThreeTickScenario(t *testing.T) {
	ctx := context.Background()
	n := &fakeNotifier{}
	e := newEngine(t, memory.New(), n, Options{})

	tgt, err := e.Add(ctx, "https://shop.example", "Shop", "clientes")
	if err != nil {
		t.Fatal(err)
	}
	if tgt.Status != domain.StatusUnknown || tgt.UptimeScore != 100 {
		t.Fatalf("fresh target wrong: %+v", tgt)
	}
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	// tick 1: first observation, no alert
	e.Commit(ctx, result(tgt, domain.Online(50), t0))
	got, _ := e.Get(tgt.ID)
	if got.Status != domain.StatusOnline || got.UptimeScore != 100 || got.LastResponseTimeMs != 50 {
		t.Fatalf("tick 1: %+v", got)
	}
	if len(e.RecentAlerts()) != 0 {
		t.Fatal("tick 1: unknown→online must not alert")
	}

	// tick 2: failure
	e.Commit(ctx, result(tgt, domain.Offline("timeout"), t0.Add(30*time.Second)))
	got, _ = e.Get(tgt.ID)
	if got.Status != domain.StatusOffline || got.UptimeScore != 95 || got.LastError != "timeout" || got.LastResponseTimeMs != 0 {
		t.Fatalf("tick 2: %+v", got)
	}
	alerts := e.RecentAlerts()
	if len(alerts) != 1 || alerts[0].Kind != domain.AlertFailure || !strings.HasSuffix(alerts[0].Message, "is OFFLINE") {
		t.Fatalf("tick 2 alerts: %+v", alerts)
	}
	hist, _ := e.RecentHistory(tgt.ID)
	if len(hist) != 2 || hist[0].Status != domain.StatusOnline || hist[0].ResponseTimeMs != 50 ||
		hist[1].Status != domain.StatusOffline || hist[1].ResponseTimeMs != 0 {
		t.Fatalf("tick 2 history: %+v", hist)
	}

	// tick 3: recovery
	e.Commit(ctx, result(tgt, domain.Online(40), t0.Add(time.Minute)))
	got, _ = e.Get(tgt.ID)
	if got.Status != domain.StatusOnline || !near(got.UptimeScore, 95.1) || got.LastError != "" {
		t.Fatalf("tick 3: %+v", got)
	}
	alerts = e.RecentAlerts()
	if len(alerts) != 2 || alerts[0].Kind != domain.AlertRecovery || alerts[1].Kind != domain.AlertFailure {
		t.Fatalf("tick 3 alerts (newest first): %+v", alerts)
	}

	e.alerts.Wait()
	sent := n.all()
	if len(sent) != 1 || sent[0].title != "Site down: Shop" || !strings.Contains(sent[0].text, "Cause: timeout") {
		t.Fatalf("notifications: %+v", sent)
	}
}

func TestAdd_NormalizesSchemeBeforeFirstProbe(t *testing.T) {
	e := newEngine(t, nil, nil, Options{})
	tgt, err := e.Add(context.Background(), "Example.com", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if tgt.URL != "https://example.com" {
		t.Fatalf("want https-normalized url, got %q", tgt.URL)
	}
	active := e.ActiveTargets()
	if len(active) != 1 || active[0].URL != "https://example.com" {
		t.Fatalf("scheduler snapshot has %+v", active)
	}
	if _, err := e.Add(context.Background(), "ftp://x", "", ""); !errors.Is(err, domain.ErrInvalidURL) {
		t.Fatalf("want ErrInvalidURL, got %v", err)
	}
}

func TestPause_FreezesTarget(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil, nil, Options{})
	tgt, _ := e.Add(ctx, "https://a.example", "A", "")
	e.Commit(ctx, result(tgt, domain.Online(10), time.Now()))

	snapshot := e.ActiveTargets()
	if _, err := e.SetPaused(ctx, tgt.ID, true); err != nil {
		t.Fatal(err)
	}
	if len(e.ActiveTargets()) != 0 {
		t.Fatal("paused target must not be probed")
	}

	// a probe started before the pause lands afterwards
	e.Commit(ctx, result(snapshot[0], domain.Offline("down"), time.Now()))
	got, _ := e.Get(tgt.ID)
	if got.Status != domain.StatusOnline || got.UptimeScore != 100 {
		t.Fatalf("paused target changed: %+v", got)
	}
	if h, _ := e.RecentHistory(tgt.ID); len(h) != 1 {
		t.Fatalf("paused target gained history: %+v", h)
	}
	if len(e.RecentAlerts()) != 0 {
		t.Fatal("paused target alerted")
	}

	got, _ = e.SetPaused(ctx, tgt.ID, false)
	if got.Status != domain.StatusUnknown || got.UptimeScore != 100 {
		t.Fatalf("resume must reset status only: %+v", got)
	}
	if h, _ := e.RecentHistory(tgt.ID); len(h) != 1 {
		t.Fatal("resume must keep history")
	}

	if _, err := e.SetPaused(ctx, "nope", true); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestResume_NoAlertOnFirstCheckAfterResume(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil, nil, Options{})
	tgt, _ := e.Add(ctx, "https://a.example", "A", "")
	e.Commit(ctx, result(tgt, domain.Online(10), time.Now()))
	e.SetPaused(ctx, tgt.ID, true)
	e.SetPaused(ctx, tgt.ID, false)

	e.Commit(ctx, result(tgt, domain.Offline("down"), time.Now()))
	if len(e.RecentAlerts()) != 0 {
		t.Fatal("unknown→offline after resume must not alert")
	}
}

func TestRemoveMidTick_CommitDiscarded(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := context.Background()
	e := Init(ctx, zap.New(core), memory.New(), nil, Options{})
	keep, _ := e.Add(ctx, "https://keep.example", "Keep", "")
	gone, _ := e.Add(ctx, "https://gone.example", "Gone", "")

	started := make(chan struct{}, 2)
	release := make(chan struct{})
	p := probe.Func(func(context.Context, string) domain.CheckOutcome {
		started <- struct{}{}
		<-release
		return domain.Online(5)
	})
	if err := e.Start(ctx, p, scheduler.Config{}); err != nil {
		t.Fatal(err)
	}
	<-started
	<-started

	if !e.Remove(ctx, gone.ID) {
		t.Fatal("remove failed")
	}
	close(release)

	deadline := time.Now().Add(2 * time.Second)
	for logs.FilterMessage("tick_done").Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("tick never completed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := e.Close(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := e.Get(gone.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatal("removed target resurrected by commit")
	}
	if _, err := e.RecentHistory(gone.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatal("removed target has history")
	}
	got, _ := e.Get(keep.ID)
	if got.Status != domain.StatusOnline {
		t.Fatalf("surviving target not committed: %+v", got)
	}
}

func TestEditURLMidTick_CommitDiscarded(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil, nil, Options{})
	tgt, _ := e.Add(ctx, "https://old.example", "Site", "")
	snap := e.ActiveTargets()

	newURL := "new.example"
	if _, err := e.Edit(ctx, tgt.ID, domain.TargetPatch{URL: &newURL}); err != nil {
		t.Fatal(err)
	}
	e.Commit(ctx, result(snap[0], domain.Offline("old host down"), time.Now()))
	got, _ := e.Get(tgt.ID)
	if got.Status != domain.StatusUnknown || got.URL != "https://new.example" {
		t.Fatalf("stale probe applied: %+v", got)
	}
}

func TestPersistence_RoundTripAcrossRestart(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	e := newEngine(t, store, nil, Options{})
	tgt, _ := e.Add(ctx, "https://a.example", "A", "INTERCERT")
	e.Commit(ctx, result(tgt, domain.Online(10), time.Now()))
	e.Commit(ctx, result(tgt, domain.Offline("boom"), time.Now()))
	if err := e.SetInterval(ctx, time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := e.Close(ctx); err != nil {
		t.Fatal(err)
	}

	again := newEngine(t, store, nil, Options{Seeds: []Seed{{URL: "https://seed.example"}}})
	ts := again.ListTargets("")
	if len(ts) != 1 || ts[0].ID != tgt.ID || ts[0].Status != domain.StatusOffline || ts[0].UptimeScore != 95 {
		t.Fatalf("targets not restored (seeds must not apply): %+v", ts)
	}
	if h, _ := again.RecentHistory(tgt.ID); len(h) != 2 {
		t.Fatalf("history not restored: %+v", h)
	}
	if a := again.RecentAlerts(); len(a) != 1 || a[0].Kind != domain.AlertFailure {
		t.Fatalf("alerts not restored: %+v", a)
	}
	if again.Interval() != time.Minute {
		t.Fatalf("interval not restored: %s", again.Interval())
	}
}

func TestInit_SeedsOnFirstRun(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	e := newEngine(t, store, nil, Options{Seeds: []Seed{
		{URL: "https://intercertacademy.com/", Name: "INTERCERT ACADEMY", Category: "INTERCERT"},
		{URL: "not a url at all://", Name: "bad"},
		{URL: "cliente2.com", Name: "Cliente Demo 2", Category: "clientes"},
	}})
	ts := e.ListTargets("")
	if len(ts) != 2 || ts[1].URL != "https://cliente2.com" {
		t.Fatalf("unexpected seeded targets: %+v", ts)
	}
	if saved, err := store.LoadTargets(ctx); err != nil || len(saved) != 2 {
		t.Fatalf("seeds not persisted: %+v, %v", saved, err)
	}
	if cats := e.Categories(); len(cats) != 2 || cats[0] != "INTERCERT" {
		t.Fatalf("categories: %v", cats)
	}
}

func TestPersistenceFailure_EngineContinues(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := context.Background()
	store := &failingStore{Store: memory.New()}
	e := Init(ctx, zap.New(core), store, nil, Options{})

	tgt, err := e.Add(ctx, "https://a.example", "A", "")
	if err != nil {
		t.Fatalf("add must succeed despite storage failure: %v", err)
	}
	e.Commit(ctx, result(tgt, domain.Online(10), time.Now()))
	e.Commit(ctx, result(tgt, domain.Offline("x"), time.Now()))

	got, _ := e.Get(tgt.ID)
	if got.Status != domain.StatusOffline {
		t.Fatalf("in-memory state lost: %+v", got)
	}
	if logs.FilterMessage("persist_error").Len() < 3 {
		t.Fatalf("want persist_error logs, got %d", logs.FilterMessage("persist_error").Len())
	}
	if err := e.Close(ctx); !errors.Is(err, errDiskFull) {
		t.Fatalf("Close must report the failed flush, got %v", err)
	}
}

func TestCurrentStats(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil, nil, Options{})
	if st := e.CurrentStats("clientes"); st.Total != 0 || st.AvgUptime != 0 {
		t.Fatalf("empty stats: %+v", st)
	}
	a, _ := e.Add(ctx, "https://a.example", "A", "clientes")
	b, _ := e.Add(ctx, "https://b.example", "B", "clientes")
	c, _ := e.Add(ctx, "https://c.example", "C", "INTERCERT")
	now := time.Now()
	e.Commit(ctx, []scheduler.Result{
		{Target: a, Outcome: domain.Online(1), CheckedAt: now},
		{Target: b, Outcome: domain.Offline("x"), CheckedAt: now},
		{Target: c, Outcome: domain.Offline("x"), CheckedAt: now},
	})

	st := e.CurrentStats("clientes")
	// (100 + 95) / 2 = 97.5 rounds to 98
	if st.Total != 2 || st.Online != 1 || st.Offline != 1 || st.AvgUptime != 98 {
		t.Fatalf("clientes stats: %+v", st)
	}
	if all := e.CurrentStats(""); all.Total != 3 || all.Offline != 2 {
		t.Fatalf("all stats: %+v", all)
	}
}

func TestSetInterval(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	e := newEngine(t, store, nil, Options{Interval: 10 * time.Second})
	if e.Interval() != 10*time.Second {
		t.Fatalf("configured interval ignored: %s", e.Interval())
	}
	if err := e.SetInterval(ctx, 7*time.Second); !errors.Is(err, domain.ErrInvalidInterval) {
		t.Fatalf("want ErrInvalidInterval, got %v", err)
	}
	if err := e.SetInterval(ctx, 5*time.Minute); err != nil {
		t.Fatal(err)
	}
	if d, _ := store.LoadInterval(ctx); d != 5*time.Minute {
		t.Fatalf("interval not persisted: %s", d)
	}
}

func TestRemove_UnknownIsNoop(t *testing.T) {
	e := newEngine(t, nil, nil, Options{})
	if e.Remove(context.Background(), "missing") {
		t.Fatal("remove of unknown id must report false")
	}
	if _, err := e.RecentHistory("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestStartTwiceAndCheckNow(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, nil, nil, Options{})
	if e.CheckNow() {
		t.Fatal("CheckNow before Start must report false")
	}
	p := probe.Func(func(context.Context, string) domain.CheckOutcome { return domain.Online(1) })
	if err := e.Start(ctx, p, scheduler.Config{}); err != nil {
		t.Fatal(err)
	}
	defer e.Close(ctx)
	if err := e.Start(ctx, p, scheduler.Config{}); err == nil {
		t.Fatal("second Start must fail")
	}
	if !e.CheckNow() {
		t.Fatal("CheckNow on started engine must report true")
	}
}

func TestInit_CorruptStateFileFallsBackToSeeds(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.yaml")
	if err := os.WriteFile(path, []byte("targets: [::: not yaml"), 0o644); err != nil {
		t.Fatal(err)
	}
	store, err := file.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	core, logs := observer.New(zap.InfoLevel)
	e := Init(ctx, zap.New(core), store, nil, Options{Seeds: []Seed{{URL: "https://seed.example", Name: "Seed"}}})

	ts := e.ListTargets("")
	if len(ts) != 1 || ts[0].URL != "https://seed.example" {
		t.Fatalf("want seeded target, got %+v", ts)
	}
	if logs.FilterMessage("load_error").Len() == 0 {
		t.Fatal("want load_error logged")
	}
	if e.Interval() != domain.DefaultInterval {
		t.Fatalf("interval: %s", e.Interval())
	}
}

// unreadableStore holds saved state that fails to load.
type unreadableStore struct {
	*memory.Store
}

var errConnReset = errors.New("connection reset")

func (u unreadableStore) LoadTargets(ctx context.Context) ([]domain.TargetSnapshot, error) {
	return nil, errConnReset
}

func TestLoadFailure_TicksDoNotOverwriteStorage(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	saved := []domain.TargetSnapshot{{Target: domain.Target{
		ID: "kept", URL: "https://kept.example", Name: "Kept", Status: domain.StatusOnline, UptimeScore: 80,
	}}}
	if err := mem.SaveTargets(ctx, saved); err != nil {
		t.Fatal(err)
	}

	e := newEngine(t, unreadableStore{mem}, nil, Options{Seeds: []Seed{{URL: "https://seed.example"}}})
	seed := e.ListTargets("")[0]
	e.Commit(ctx, result(seed, domain.Online(5), time.Now()))
	if err := e.Close(ctx); err != nil {
		t.Fatal(err)
	}
	got, _ := mem.LoadTargets(ctx)
	if len(got) != 1 || got[0].Target.ID != "kept" {
		t.Fatalf("saved registry overwritten by tick or shutdown: %+v", got)
	}

	// an explicit mutation takes over storage
	e2 := newEngine(t, unreadableStore{mem}, nil, Options{Seeds: []Seed{{URL: "https://seed.example"}}})
	if _, err := e2.Add(ctx, "https://new.example", "", ""); err != nil {
		t.Fatal(err)
	}
	got, _ = mem.LoadTargets(ctx)
	if len(got) != 2 || got[1].Target.URL != "https://new.example" {
		t.Fatalf("mutation must persist the live registry: %+v", got)
	}
	tgt := e2.ListTargets("")[1]
	e2.Commit(ctx, result(tgt, domain.Online(7), time.Now()))
	got, _ = mem.LoadTargets(ctx)
	if got[1].Target.Status != domain.StatusOnline {
		t.Fatalf("ticks must persist again after a mutation: %+v", got[1].Target)
	}
}
