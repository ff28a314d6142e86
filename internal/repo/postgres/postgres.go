// Package postgres persists engine state in PostgreSQL through a pgx
// connection pool. The schema is managed by golang-migrate.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/sitewatch/internal/domain"
	"github.com/hamed0406/sitewatch/internal/repo"
)

var _ repo.Store = (*Store)(nil)

const (
	keyInterval = "check_interval"
	keySaved    = "targets_saved"
)

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// New migrates the schema, then opens and pings a pool.
func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	if err := Migrate(dsn); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	log.Info("postgres_ready")
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// ---- TargetStore ----

func (s *Store) LoadTargets(ctx context.Context) ([]domain.TargetSnapshot, error) {
	if _, ok, err := s.setting(ctx, keySaved); err != nil {
		return nil, err
	} else if !ok {
		return nil, repo.ErrNotFound
	}

	rows, err := s.pool.Query(ctx, `
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
			id, status string
			t          domain.Target
		)
		if err := rows.Scan(&id, &t.URL, &t.Name, &t.Category, &t.Paused, &status,
			&t.LastResponseTimeMs, &t.LastCheckedAt, &t.UptimeScore, &t.LastError, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan target: %w", err)
		}
		t.ID = domain.TargetID(id)
		t.Status = domain.Status(status)
		index[t.ID] = len(out)
		out = append(out, domain.TargetSnapshot{Target: t})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	recs, err := s.pool.Query(ctx, `
		SELECT target_id, checked_at, status, response_time_ms
		  FROM check_records
		 ORDER BY target_id, seq`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer recs.Close()
	for recs.Next() {
		var (
			id, status string
			r          domain.CheckRecord
		)
		if err := recs.Scan(&id, &r.Timestamp, &status, &r.ResponseTimeMs); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.Status = domain.Status(status)
		if i, ok := index[domain.TargetID(id)]; ok {
			out[i].History = append(out[i].History, r)
		}
	}
	return out, recs.Err()
}

// SaveTargets replaces the stored registry in one transaction, bulk
// loading rows with COPY.
func (s *Store) SaveTargets(ctx context.Context, ts []domain.TargetSnapshot) error {
	targetRows := make([][]any, 0, len(ts))
	var recordRows [][]any
	for pos, snap := range ts {
		t := snap.Target
		targetRows = append(targetRows, []any{
			string(t.ID), pos, t.URL, t.Name, t.Category, t.Paused, string(t.Status),
			t.LastResponseTimeMs, t.LastCheckedAt, t.UptimeScore, t.LastError, t.CreatedAt,
		})
		for seq, r := range snap.History {
			recordRows = append(recordRows, []any{string(t.ID), seq, r.Timestamp, string(r.Status), r.ResponseTimeMs})
		}
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM targets`); err != nil {
			return fmt.Errorf("clear targets: %w", err)
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"targets"},
			[]string{"id", "position", "url", "name", "category", "paused", "status",
				"last_response_time_ms", "last_checked_at", "uptime_score", "last_error", "created_at"},
			pgx.CopyFromRows(targetRows)); err != nil {
			return fmt.Errorf("copy targets: %w", err)
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"check_records"},
			[]string{"target_id", "seq", "checked_at", "status", "response_time_ms"},
			pgx.CopyFromRows(recordRows)); err != nil {
			return fmt.Errorf("copy records: %w", err)
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
	return putSetting(ctx, s.pool, keyInterval, strconv.FormatInt(d.Milliseconds(), 10))
}

func (s *Store) setting(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key=$1`, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read setting %s: %w", key, err)
	}
	return v, true, nil
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func putSetting(ctx context.Context, db execer, key, value string) error {
	_, err := db.Exec(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value`, key, value)
	if err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}
