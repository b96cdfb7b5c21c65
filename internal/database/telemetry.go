package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"inspection-capture/internal/capability"
	"inspection-capture/internal/telemetry"
)

// InsertTelemetry persists an entry and reports whether it was new.
// Re-sending an entry with a known ID is a no-op, so agents may retry
// exports freely.
func (d *Database) InsertTelemetry(ctx context.Context, e telemetry.Entry) (inserted bool, err error) {
	start := time.Now()
	defer func() { recordQuery("insert_telemetry", start, err) }()

	caps, err := json.Marshal(e.Capabilities)
	if err != nil {
		return false, fmt.Errorf("failed to encode capabilities: %w", err)
	}
	var file sql.NullString
	if e.File != nil {
		data, err := json.Marshal(e.File)
		if err != nil {
			return false, fmt.Errorf("failed to encode file details: %w", err)
		}
		file = sql.NullString{String: string(data), Valid: true}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx, `
		INSERT INTO telemetry (id, timestamp, browser, user_agent, capabilities, file, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, e.ID, e.Timestamp.UnixMilli(), string(e.Browser), e.UserAgent, string(caps), file, e.Error)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListTelemetry returns entries in arrival order, skipping the first
// offset entries.
func (d *Database) ListTelemetry(ctx context.Context, offset int) (entries []telemetry.Entry, err error) {
	start := time.Now()
	defer func() { recordQuery("list_telemetry", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, timestamp, browser, user_agent, capabilities, file, error
		FROM telemetry ORDER BY seq LIMIT -1 OFFSET ?
	`, max(offset, 0))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries = []telemetry.Entry{}
	for rows.Next() {
		var (
			e       telemetry.Entry
			ts      int64
			browser string
			caps    string
			file    sql.NullString
		)
		if err := rows.Scan(&e.ID, &ts, &browser, &e.UserAgent, &caps, &file, &e.Error); err != nil {
			return nil, err
		}
		e.Timestamp = time.UnixMilli(ts)
		e.Browser = capability.Browser(browser)
		if err := json.Unmarshal([]byte(caps), &e.Capabilities); err != nil {
			return nil, fmt.Errorf("telemetry %s: bad capabilities: %w", e.ID, err)
		}
		if file.Valid {
			e.File = &telemetry.FileDetails{}
			if err := json.Unmarshal([]byte(file.String), e.File); err != nil {
				return nil, fmt.Errorf("telemetry %s: bad file details: %w", e.ID, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountTelemetry returns the number of stored entries.
func (d *Database) CountTelemetry(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { recordQuery("count_telemetry", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	err = d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM telemetry`).Scan(&n)
	return n, err
}
