package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"placestatus/internal/status"
)

const dateLayout = "2006-01-02"

const (
	SourceManual = "manual"
	SourceConfig = "config"
)

type Place struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Address      string    `json:"address,omitempty"`
	OpeningHours string    `json:"opening_hours"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type ClosedDay struct {
	ID           int64
	PlaceID      int64
	DayOfWeek    *time.Weekday
	SpecificDate *time.Time
	Note         string
	Source       string
}

// Rule converts the row into a closure rule.
func (c ClosedDay) Rule() status.ClosedDayRule {
	return status.ClosedDayRule{
		DayOfWeek:    c.DayOfWeek,
		SpecificDate: c.SpecificDate,
		Note:         c.Note,
	}
}

// GetPlace returns a place by id.
func (db *DB) GetPlace(ctx context.Context, id int64) (*Place, error) {
	var p Place
	var address, openingHours sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT id, name, address, opening_hours, is_active, created_at, updated_at
		FROM places WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &address, &openingHours, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get place %d: %w", id, err)
	}
	p.Address = address.String
	p.OpeningHours = openingHours.String
	return &p, nil
}

// ListActivePlaces returns active places ordered by id.
func (db *DB) ListActivePlaces(ctx context.Context) ([]Place, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, address, opening_hours, is_active, created_at, updated_at
		FROM places WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list places: %w", err)
	}
	defer rows.Close()

	var places []Place
	for rows.Next() {
		var p Place
		var address, openingHours sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &address, &openingHours, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Address = address.String
		p.OpeningHours = openingHours.String
		places = append(places, p)
	}
	return places, rows.Err()
}

// UpdateOpeningHours replaces the opening-hours text of a place.
func (db *DB) UpdateOpeningHours(ctx context.Context, id int64, openingHours string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE places SET opening_hours = ?, updated_at = ? WHERE id = ?`,
		openingHours, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("update opening hours: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListClosedDays returns every closure of a place.
func (db *DB) ListClosedDays(ctx context.Context, placeID int64) ([]ClosedDay, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, place_id, day_of_week, specific_date, note, source
		FROM closed_days WHERE place_id = ? ORDER BY id`, placeID)
	if err != nil {
		return nil, fmt.Errorf("list closed days: %w", err)
	}
	defer rows.Close()

	var days []ClosedDay
	for rows.Next() {
		var c ClosedDay
		var dow sql.NullInt64
		var date, note sql.NullString
		if err := rows.Scan(&c.ID, &c.PlaceID, &dow, &date, &note, &c.Source); err != nil {
			return nil, err
		}
		if dow.Valid {
			d := time.Weekday(dow.Int64)
			c.DayOfWeek = &d
		}
		if date.Valid && date.String != "" {
			dt, err := time.ParseInLocation(dateLayout, date.String, time.Local)
			if err != nil {
				return nil, fmt.Errorf("parse closed day %d date: %w", c.ID, err)
			}
			c.SpecificDate = &dt
		}
		c.Note = note.String
		days = append(days, c)
	}
	return days, rows.Err()
}

// ClosedDayRules returns the closure rules of a place.
func (db *DB) ClosedDayRules(ctx context.Context, placeID int64) ([]status.ClosedDayRule, error) {
	days, err := db.ListClosedDays(ctx, placeID)
	if err != nil {
		return nil, err
	}
	rules := make([]status.ClosedDayRule, 0, len(days))
	for _, d := range days {
		rules = append(rules, d.Rule())
	}
	return rules, nil
}

// AddClosedDay inserts a closure and sets its ID.
func (db *DB) AddClosedDay(ctx context.Context, c *ClosedDay) error {
	return insertClosedDay(ctx, db.DB, c)
}

// DeleteClosedDay removes a manually added closure.
func (db *DB) DeleteClosedDay(ctx context.Context, placeID, id int64) error {
	res, err := db.ExecContext(ctx,
		`DELETE FROM closed_days WHERE id = ? AND place_id = ? AND source = ?`,
		id, placeID, SourceManual,
	)
	if err != nil {
		return fmt.Errorf("delete closed day: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertClosedDay(ctx context.Context, x execer, c *ClosedDay) error {
	if c.DayOfWeek == nil && c.SpecificDate == nil {
		return fmt.Errorf("closed day needs a weekday or a date")
	}
	if c.Source == "" {
		c.Source = SourceManual
	}

	var dow, date any
	if c.DayOfWeek != nil {
		dow = int(*c.DayOfWeek)
	}
	if c.SpecificDate != nil {
		date = c.SpecificDate.Format(dateLayout)
	}

	res, err := x.ExecContext(ctx, `
		INSERT INTO closed_days (place_id, day_of_week, specific_date, note, source)
		VALUES (?, ?, ?, ?, ?)`,
		c.PlaceID, dow, date, c.Note, c.Source,
	)
	if err != nil {
		return fmt.Errorf("insert closed day: %w", err)
	}
	c.ID, err = res.LastInsertId()
	return err
}
