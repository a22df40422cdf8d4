package store

import (
	"context"
	"fmt"

	"punchclock/internal/tracker"
)

// Append inserts a completed session. The insert has committed by the time
// Append returns; the record's ID is filled in from the row id.
// Timestamps are stored in UTC so their serialized text scans back cleanly
// and sorts in event order regardless of the session's original zone.
func (s *Store) Append(ctx context.Context, rec *tracker.Record) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO work_sessions (user_id, username, task, start_time, end_time, duration)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.UserID, rec.DisplayName, rec.Task, rec.StartedAt.UTC(), rec.EndedAt.UTC(), rec.DurationMinutes)
	if err != nil {
		return fmt.Errorf("append session: %w", err)
	}
	rec.ID, _ = result.LastInsertId()
	return nil
}

// All returns every completed session, oldest first.
func (s *Store) All(ctx context.Context) ([]tracker.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, username, task, start_time, end_time, duration
		FROM work_sessions
		ORDER BY start_time ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ByUser returns the user's completed sessions, most recent start first.
// A limit of zero or less returns all of them.
func (s *Store) ByUser(ctx context.Context, userID int64, limit int) ([]tracker.Record, error) {
	q := `
		SELECT id, user_id, username, task, start_time, end_time, duration
		FROM work_sessions
		WHERE user_id = ?
		ORDER BY start_time DESC, id DESC`
	args := []any{userID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query user sessions: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Totals returns the sum of logged minutes grouped by display name.
func (s *Store) Totals(ctx context.Context) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, SUM(duration)
		FROM work_sessions
		GROUP BY username`)
	if err != nil {
		return nil, fmt.Errorf("query totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]float64)
	for rows.Next() {
		var name string
		var minutes float64
		if err := rows.Scan(&name, &minutes); err != nil {
			return nil, fmt.Errorf("scan total: %w", err)
		}
		totals[name] = minutes
	}
	return totals, rows.Err()
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRecords(rows rowScanner) ([]tracker.Record, error) {
	var records []tracker.Record
	for rows.Next() {
		var r tracker.Record
		if err := rows.Scan(&r.ID, &r.UserID, &r.DisplayName, &r.Task, &r.StartedAt, &r.EndedAt, &r.DurationMinutes); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
