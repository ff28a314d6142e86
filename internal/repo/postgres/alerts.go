package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hamed0406/sitewatch/internal/domain"
)

func (s *Store) LoadAlerts(ctx context.Context) ([]domain.Alert, error) {
	const q = `SELECT id, target_id, kind, message, created_at FROM alerts ORDER BY position`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var out []domain.Alert
	for rows.Next() {
		var (
			a              domain.Alert
			targetID, kind string
		)
		if err := rows.Scan(&a.ID, &targetID, &kind, &a.Message, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.TargetID = domain.TargetID(targetID)
		a.Kind = domain.AlertKind(kind)
		out = append(out, a)
	}
	return out, rows.Err()
}

// SaveAlerts replaces the stored alert log; position keeps newest first.
func (s *Store) SaveAlerts(ctx context.Context, alerts []domain.Alert) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM alerts`); err != nil {
			return fmt.Errorf("clear alerts: %w", err)
		}
		const q = `
			INSERT INTO alerts (id, position, target_id, kind, message, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)`
		batch := &pgx.Batch{}
		for pos, a := range alerts {
			batch.Queue(q, a.ID, pos, string(a.TargetID), string(a.Kind), a.Message, a.Timestamp)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert alerts: %w", err)
		}
		return nil
	})
}
