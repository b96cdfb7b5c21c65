package database

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
)

// telemetryViewKey holds the offset of the operator's cleared view.
const telemetryViewKey = "telemetry_view_offset"

// GetMetadata retrieves a metadata value by key.
// Returns sql.ErrNoRows if the key doesn't exist.
func (d *Database) GetMetadata(ctx context.Context, key string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var value sql.NullString
	err := d.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value.String, nil
}

// SetMetadata sets a metadata key-value pair.
func (d *Database) SetMetadata(ctx context.Context, key, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// GetTelemetryViewOffset returns the number of telemetry entries hidden by
// the last "clear results" action. Zero if never cleared.
func (d *Database) GetTelemetryViewOffset(ctx context.Context) (int, error) {
	value, err := d.GetMetadata(ctx, telemetryViewKey)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && value == "") {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(value)
}

// SetTelemetryViewOffset stores the cleared view offset.
func (d *Database) SetTelemetryViewOffset(ctx context.Context, offset int) error {
	return d.SetMetadata(ctx, telemetryViewKey, strconv.Itoa(offset))
}
