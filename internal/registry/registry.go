// Package registry owns the ordered set of monitored targets and their
// configuration. It performs no I/O and no timing of its own.
package registry

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hamed0406/sitewatch/internal/domain"
)

type Registry struct {
	mu      sync.RWMutex
	order   []domain.TargetID
	targets map[domain.TargetID]*domain.Target

	newID func() domain.TargetID
	now   func() time.Time
}

func New() *Registry {
	return &Registry{
		targets: make(map[domain.TargetID]*domain.Target),
		newID:   func() domain.TargetID { return domain.TargetID(uuid.NewString()) },
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Add registers a new target with fresh defaults.
func (r *Registry) Add(rawURL, name, category string) (domain.Target, error) {
	u, err := domain.NormalizeURL(rawURL)
	if err != nil {
		return domain.Target{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = domain.Host(u)
	}

	t := &domain.Target{
		ID:          r.newID(),
		URL:         u,
		Name:        name,
		Category:    strings.TrimSpace(category),
		Status:      domain.StatusUnknown,
		UptimeScore: domain.InitialUptime,
		CreatedAt:   r.now(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets[t.ID] = t
	r.order = append(r.order, t.ID)
	return *t, nil
}

// Remove deletes a target. Removing an unknown id is a no-op that
// reports false.
func (r *Registry) Remove(id domain.TargetID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.targets[id]; !ok {
		return false
	}
	delete(r.targets, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *Registry) Edit(id domain.TargetID, p domain.TargetPatch) (domain.Target, error) {
	var newURL string
	if p.URL != nil {
		u, err := domain.NormalizeURL(*p.URL)
		if err != nil {
			return domain.Target{}, err
		}
		newURL = u
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.targets[id]
	if !ok {
		return domain.Target{}, fmt.Errorf("edit %s: %w", id, domain.ErrNotFound)
	}
	if p.Name != nil {
		if n := strings.TrimSpace(*p.Name); n != "" {
			t.Name = n
		}
	}
	if p.URL != nil {
		t.URL = newURL
	}
	if p.Category != nil {
		t.Category = strings.TrimSpace(*p.Category)
	}
	return *t, nil
}

// SetPaused pauses or resumes a target. Resuming resets the status to
// unknown so the next tick shows a fresh evaluation; history and uptime
// are kept.
func (r *Registry) SetPaused(id domain.TargetID, paused bool) (domain.Target, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.targets[id]
	if !ok {
		return domain.Target{}, fmt.Errorf("set paused %s: %w", id, domain.ErrNotFound)
	}
	if t.Paused == paused {
		return *t, nil
	}
	t.Paused = paused
	if !paused {
		t.Status = domain.StatusUnknown
	}
	return *t, nil
}

func (r *Registry) Get(id domain.TargetID) (domain.Target, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.targets[id]
	if !ok {
		return domain.Target{}, fmt.Errorf("get %s: %w", id, domain.ErrNotFound)
	}
	return *t, nil
}

// List returns targets in registration order. An empty category
// returns every target.
func (r *Registry) List(category string) []domain.Target {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Target, 0, len(r.order))
	for _, id := range r.order {
		t := r.targets[id]
		if category != "" && t.Category != category {
			continue
		}
		out = append(out, *t)
	}
	return out
}

// Active is the scheduler's per-tick snapshot: copies of every target
// that is not paused.
func (r *Registry) Active() []domain.Target {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Target, 0, len(r.order))
	for _, id := range r.order {
		if t := r.targets[id]; !t.Paused {
			out = append(out, *t)
		}
	}
	return out
}

// Categories lists distinct categories in first-seen order.
func (r *Registry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, id := range r.order {
		c := r.targets[id].Category
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// Apply commits one probe outcome. The outcome is discarded (false)
// when the target was removed, paused, or pointed at a different URL
// after the probe started.
func (r *Registry) Apply(id domain.TargetID, probedURL string, out domain.CheckOutcome, at time.Time) (domain.Transition, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.targets[id]
	if !ok || t.Paused || t.URL != probedURL {
		return domain.Transition{}, false
	}
	prev := t.Status
	rec := domain.ApplyOutcome(t, out, at)
	return domain.Transition{Target: *t, Previous: prev, Outcome: out, Record: rec}, true
}

// Restore replaces the registry contents with previously persisted
// targets, keeping their order. Entries without an id get a fresh one.
func (r *Registry) Restore(ts []domain.Target) []domain.Target {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets = make(map[domain.TargetID]*domain.Target, len(ts))
	r.order = r.order[:0]
	out := make([]domain.Target, 0, len(ts))
	for _, in := range ts {
		t := in
		if t.ID == "" {
			t.ID = r.newID()
		}
		if _, dup := r.targets[t.ID]; dup {
			continue
		}
		if t.Status == "" {
			t.Status = domain.StatusUnknown
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = r.now()
		}
		t.UptimeScore = domain.ClampUptime(t.UptimeScore)
		r.targets[t.ID] = &t
		r.order = append(r.order, t.ID)
		out = append(out, t)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
