package db

import (
	"context"
	"fmt"
	"time"

	"placestatus/internal/config"
)

// SyncPlacesFromConfig applies places.yaml to the database. It upserts places,
// rewrites their config-sourced closures, and marks missing places inactive.
// Manually added closures are left alone.
func (db *DB) SyncPlacesFromConfig(ctx context.Context, cfg *config.PlacesConfig) error {
	if cfg == nil {
		return fmt.Errorf("places config is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sync: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	seen := make(map[int64]struct{})

	for i := range cfg.Places {
		p := &cfg.Places[i]
		isActive := 0
		if p.IsActive {
			isActive = 1
		}

		// Preserve created_at if the place already exists.
		_, err := tx.ExecContext(ctx, `
			INSERT INTO places (id, name, address, opening_hours, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, COALESCE((SELECT created_at FROM places WHERE id = ?), ?), ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				address = excluded.address,
				opening_hours = excluded.opening_hours,
				is_active = excluded.is_active,
				updated_at = excluded.updated_at`,
			p.ID, p.Name, p.Address, p.OpeningHours, isActive, p.ID, now, now,
		)
		if err != nil {
			return fmt.Errorf("sync place %d: %w", p.ID, err)
		}
		seen[int64(p.ID)] = struct{}{}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM closed_days WHERE place_id = ? AND source = ?`, p.ID, SourceConfig,
		); err != nil {
			return fmt.Errorf("reset closures of place %d: %w", p.ID, err)
		}

		for _, rule := range cfg.ClosedDays(p) {
			c := &ClosedDay{
				PlaceID:      int64(p.ID),
				DayOfWeek:    rule.DayOfWeek,
				SpecificDate: rule.SpecificDate,
				Note:         rule.Note,
				Source:       SourceConfig,
			}
			if err := insertClosedDay(ctx, tx, c); err != nil {
				return fmt.Errorf("sync place %d closures: %w", p.ID, err)
			}
		}
	}

	// Deactivate places that disappeared from config.
	rows, err := tx.QueryContext(ctx, `SELECT id FROM places WHERE is_active = 1`)
	if err != nil {
		return err
	}
	var stale []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		if _, ok := seen[id]; !ok {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range stale {
		if _, err := tx.ExecContext(ctx, `UPDATE places SET is_active = 0, updated_at = ? WHERE id = ?`, now, id); err != nil {
			return fmt.Errorf("deactivate place %d: %w", id, err)
		}
	}

	return tx.Commit()
}
