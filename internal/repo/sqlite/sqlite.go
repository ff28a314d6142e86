// Package sqlite persists engine state in a single SQLite database file
// using the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hamed0406/sitewatch/internal/domain"
	"github.com/hamed0406/sitewatch/internal/repo"
)

const schema = `
CREATE TABLE IF NOT EXISTS targets (
	id                    TEXT PRIMARY KEY,
	position              INTEGER NOT NULL,
	url                   TEXT NOT NULL,
	name                  TEXT NOT NULL,
	category              TEXT NOT NULL DEFAULT '',
	paused                BOOLEAN NOT NULL DEFAULT 0,
	status                TEXT NOT NULL,
	last_response_time_ms INTEGER NOT NULL DEFAULT 0,
	last_checked_at       DATETIME NULL,
	uptime_score          REAL NOT NULL,
	last_error            TEXT NOT NULL DEFAULT '',
	created_at            DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS check_records (
	target_id        TEXT NOT NULL REFERENCES targets(id) ON DELETE CASCADE,
	seq              INTEGER NOT NULL,
	checked_at       DATETIME NOT NULL,
	status           TEXT NOT NULL,
	response_time_ms INTEGER NOT NULL,
	PRIMARY KEY (target_id, seq)
);

CREATE TABLE IF NOT EXISTS alerts (
	id         TEXT PRIMARY KEY,
	position   INTEGER NOT NULL,
	target_id  TEXT NOT NULL,
	kind       TEXT NOT NULL,
	message    TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const (
	keyInterval = "check_interval"
	keySaved    = "targets_saved"
)

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Single connection prevents concurrent write contention in SQLite.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", schema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// ---- TargetStore ----

func (s *Store) LoadTargets(ctx context.Context) ([]domain.TargetSnapshot, error) {
	if _, ok, err := s.setting(ctx, keySaved); err != nil {
		return nil, err
	} else if !ok {
		return nil, repo.ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, name, category, paused, status, last_response_time_ms,
		       last_checked_at, uptime_score, last_error, created_at
		  FROM targets
		 ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	defer rows.Close()

	out := []domain.TargetSnapshot{}
	index := map[domain.TargetID]int{}
	for rows.Next() {
		var (
			t       domain.Target
			status  string
			checked sql.NullTime
		)
		if err := rows.Scan(&t.ID, &t.URL, &t.Name, &t.Category, &t.Paused, &status,
			&t.LastResponseTimeMs, &checked, &t.UptimeScore, &t.LastError, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan target: %w", err)
		}
		t.Status = domain.Status(status)
		if checked.Valid {
			at := checked.Time
			t.LastCheckedAt = &at
		}
		index[t.ID] = len(out)
		out = append(out, domain.TargetSnapshot{Target: t})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	recs, err := s.db.QueryContext(ctx, `
		SELECT target_id, checked_at, status, response_time_ms
		  FROM check_records
		 ORDER BY target_id, seq`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer recs.Close()
	for recs.Next() {
		var (
			id     domain.TargetID
			r      domain.CheckRecord
			status string
		)
		if err := recs.Scan(&id, &r.Timestamp, &status, &r.ResponseTimeMs); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.Status = domain.Status(status)
		if i, ok := index[id]; ok {
			out[i].History = append(out[i].History, r)
		}
	}
	return out, recs.Err()
}

func (s *Store) SaveTargets(ctx context.Context, ts []domain.TargetSnapshot) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM check_records`); err != nil {
			return fmt.Errorf("clear records: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM targets`); err != nil {
			return fmt.Errorf("clear targets: %w", err)
		}

		insTarget, err := tx.PrepareContext(ctx, `
			INSERT INTO targets (id, position, url, name, category, paused, status,
			                     last_response_time_ms, last_checked_at, uptime_score, last_error, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer insTarget.Close()
		insRecord, err := tx.PrepareContext(ctx, `
			INSERT INTO check_records (target_id, seq, checked_at, status, response_time_ms)
			VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer insRecord.Close()

		for pos, snap := range ts {
			t := snap.Target
			var checked any
			if t.LastCheckedAt != nil {
				checked = t.LastCheckedAt.UTC()
			}
			if _, err := insTarget.ExecContext(ctx, string(t.ID), pos, t.URL, t.Name, t.Category, t.Paused,
				string(t.Status), t.LastResponseTimeMs, checked, t.UptimeScore, t.LastError, t.CreatedAt.UTC()); err != nil {
				return fmt.Errorf("insert target %s: %w", t.ID, err)
			}
			for seq, r := range snap.History {
				if _, err := insRecord.ExecContext(ctx, string(t.ID), seq, r.Timestamp.UTC(), string(r.Status), r.ResponseTimeMs); err != nil {
					return fmt.Errorf("insert record: %w", err)
				}
			}
		}
		return putSetting(ctx, tx, keySaved, "1")
	})
}

// ---- SettingsStore ----

func (s *Store) LoadInterval(ctx context.Context) (time.Duration, error) {
	v, ok, err := s.setting(ctx, keyInterval)
	if err != nil || !ok {
		return 0, err
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse interval %q: %w", v, err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func (s *Store) SaveInterval(ctx context.Context, d time.Duration) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return putSetting(ctx, tx, keyInterval, strconv.FormatInt(d.Milliseconds(), 10))
	})
}

// ---- AlertStore ----

func (s *Store) LoadAlerts(ctx context.Context) ([]domain.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, target_id, kind, message, created_at
		  FROM alerts
		 ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()
	var out []domain.Alert
	for rows.Next() {
		var a domain.Alert
		var kind string
		if err := rows.Scan(&a.ID, &a.TargetID, &kind, &a.Message, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.Kind = domain.AlertKind(kind)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) SaveAlerts(ctx context.Context, alerts []domain.Alert) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM alerts`); err != nil {
			return fmt.Errorf("clear alerts: %w", err)
		}
		for pos, a := range alerts {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO alerts (id, position, target_id, kind, message, created_at)
				VALUES (?, ?, ?, ?, ?, ?)`,
				a.ID, pos, string(a.TargetID), string(a.Kind), a.Message, a.Timestamp.UTC()); err != nil {
				return fmt.Errorf("insert alert: %w", err)
			}
		}
		return nil
	})
}

// ---- helpers ----

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) setting(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read setting %s: %w", key, err)
	}
	return v, true, nil
}

func putSetting(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}

var _ repo.Store = (*Store)(nil)
