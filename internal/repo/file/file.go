// Package file keeps the engine state in a single YAML document that is
// rewritten atomically on every save.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hamed0406/sitewatch/internal/domain"
	"github.com/hamed0406/sitewatch/internal/repo"
)

type document struct {
	Interval string      `yaml:"interval,omitempty"`
	Targets  []targetDoc `yaml:"targets"`
	Alerts   []alertDoc  `yaml:"alerts,omitempty"`
	// Saved distinguishes an empty registry from a file written only by
	// SaveInterval or SaveAlerts.
	Saved bool `yaml:"saved"`
}

type targetDoc struct {
	ID                 string      `yaml:"id"`
	URL                string      `yaml:"url"`
	Name               string      `yaml:"name"`
	Category           string      `yaml:"category,omitempty"`
	Paused             bool        `yaml:"paused,omitempty"`
	Status             string      `yaml:"status"`
	LastResponseTimeMs int64       `yaml:"last_response_time_ms,omitempty"`
	LastCheckedAt      *time.Time  `yaml:"last_checked_at,omitempty"`
	UptimeScore        float64     `yaml:"uptime_score"`
	LastError          string      `yaml:"last_error,omitempty"`
	CreatedAt          time.Time   `yaml:"created_at"`
	History            []recordDoc `yaml:"history,omitempty"`
}

type recordDoc struct {
	At     time.Time `yaml:"at"`
	Status string    `yaml:"status"`
	Ms     int64     `yaml:"ms,omitempty"`
}

type alertDoc struct {
	ID       string    `yaml:"id"`
	TargetID string    `yaml:"target_id"`
	Kind     string    `yaml:"kind"`
	Message  string    `yaml:"message"`
	At       time.Time `yaml:"at"`
}

type Store struct {
	path string

	mu  sync.Mutex
	doc document
	// loadErr is the read or parse failure from Open. Loads report it
	// until a save replaces the file.
	loadErr error
}

// Open reads path if it exists. A missing file is a first run. An
// unreadable or corrupt file does not fail Open; the Load methods
// return the error instead so the caller can fall back to defaults.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		s.loadErr = fmt.Errorf("read state: %w", err)
	default:
		if err := yaml.Unmarshal(b, &s.doc); err != nil {
			s.doc = document{}
			s.loadErr = fmt.Errorf("parse state %s: %w", path, err)
		}
	}
	return s, nil
}

func (s *Store) LoadTargets(ctx context.Context) ([]domain.TargetSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if !s.doc.Saved {
		return nil, repo.ErrNotFound
	}
	out := make([]domain.TargetSnapshot, 0, len(s.doc.Targets))
	for _, d := range s.doc.Targets {
		out = append(out, d.snapshot())
	}
	return out, nil
}

func (s *Store) SaveTargets(ctx context.Context, ts []domain.TargetSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := make([]targetDoc, 0, len(ts))
	for _, snap := range ts {
		docs = append(docs, fromSnapshot(snap))
	}
	next := s.doc
	next.Targets = docs
	next.Saved = true
	return s.write(next)
}

func (s *Store) LoadInterval(ctx context.Context) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return 0, s.loadErr
	}
	if s.doc.Interval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.doc.Interval)
	if err != nil {
		return 0, fmt.Errorf("parse interval %q: %w", s.doc.Interval, err)
	}
	return d, nil
}

func (s *Store) SaveInterval(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.doc
	next.Interval = d.String()
	return s.write(next)
}

func (s *Store) LoadAlerts(ctx context.Context) ([]domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if len(s.doc.Alerts) == 0 {
		return nil, nil
	}
	out := make([]domain.Alert, 0, len(s.doc.Alerts))
	for _, a := range s.doc.Alerts {
		out = append(out, domain.Alert{
			ID:        a.ID,
			TargetID:  domain.TargetID(a.TargetID),
			Kind:      domain.AlertKind(a.Kind),
			Message:   a.Message,
			Timestamp: a.At,
		})
	}
	return out, nil
}

func (s *Store) SaveAlerts(ctx context.Context, alerts []domain.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := make([]alertDoc, 0, len(alerts))
	for _, a := range alerts {
		docs = append(docs, alertDoc{
			ID:       a.ID,
			TargetID: string(a.TargetID),
			Kind:     string(a.Kind),
			Message:  a.Message,
			At:       a.Timestamp,
		})
	}
	next := s.doc
	next.Alerts = docs
	return s.write(next)
}

func (s *Store) Close() error { return nil }

// write replaces the file via a temp file and rename, then adopts next
// as the in-memory document. Callers hold s.mu.
func (s *Store) write(next document) error {
	b, err := yaml.Marshal(&next)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".sitewatch-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	s.doc = next
	s.loadErr = nil
	return nil
}

func fromSnapshot(s domain.TargetSnapshot) targetDoc {
	t := s.Target
	d := targetDoc{
		ID:                 string(t.ID),
		URL:                t.URL,
		Name:               t.Name,
		Category:           t.Category,
		Paused:             t.Paused,
		Status:             string(t.Status),
		LastResponseTimeMs: t.LastResponseTimeMs,
		UptimeScore:        t.UptimeScore,
		LastError:          t.LastError,
		CreatedAt:          t.CreatedAt,
	}
	if t.LastCheckedAt != nil {
		at := *t.LastCheckedAt
		d.LastCheckedAt = &at
	}
	for _, r := range s.History {
		d.History = append(d.History, recordDoc{At: r.Timestamp, Status: string(r.Status), Ms: r.ResponseTimeMs})
	}
	return d
}

func (d targetDoc) snapshot() domain.TargetSnapshot {
	t := domain.Target{
		ID:                 domain.TargetID(d.ID),
		URL:                d.URL,
		Name:               d.Name,
		Category:           d.Category,
		Paused:             d.Paused,
		Status:             domain.Status(d.Status),
		LastResponseTimeMs: d.LastResponseTimeMs,
		UptimeScore:        d.UptimeScore,
		LastError:          d.LastError,
		CreatedAt:          d.CreatedAt,
	}
	if d.LastCheckedAt != nil {
		at := *d.LastCheckedAt
		t.LastCheckedAt = &at
	}
	hist := make([]domain.CheckRecord, 0, len(d.History))
	for _, r := range d.History {
		hist = append(hist, domain.CheckRecord{Timestamp: r.At, Status: domain.Status(r.Status), ResponseTimeMs: r.Ms})
	}
	return domain.TargetSnapshot{Target: t, History: hist}
}

var _ repo.Store = (*Store)(nil)
