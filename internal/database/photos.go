package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"inspection-capture/internal/metrics"
	"inspection-capture/internal/slot"
)

const photoColumns = `id, slot, name, mime_type, size, width, height, last_modified,
	stored_path, position, deleted, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPhoto(row rowScanner) (*Photo, error) {
	var (
		p            Photo
		slotName     string
		lastModified int64
		createdAt    int64
		deleted      int
	)
	err := row.Scan(&p.ID, &slotName, &p.Name, &p.MimeType, &p.Size, &p.Width, &p.Height,
		&lastModified, &p.StoredPath, &p.Position, &deleted, &createdAt)
	if err != nil {
		return nil, err
	}
	p.Slot = slot.Slot(slotName)
	p.LastModified = time.UnixMilli(lastModified)
	p.CreatedAt = time.Unix(createdAt, 0)
	p.Deleted = deleted != 0
	return &p, nil
}

// InsertPhoto stores p at the end of its slot and sets p.Position.
func (d *Database) InsertPhoto(ctx context.Context, p *Photo) (err error) {
	start := time.Now()
	defer func() { recordQuery("insert_photo", start, err) }()

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	err = d.withTx(ctx, func(tx *sql.Tx) error {
		var last int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position), 0) FROM photos WHERE slot = ? AND deleted = 0`,
			string(p.Slot),
		).Scan(&last); err != nil {
			return err
		}
		p.Position = last + 1

		_, err := tx.ExecContext(ctx, `
			INSERT INTO photos (id, slot, name, mime_type, size, width, height, last_modified,
				stored_path, position, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, p.ID, string(p.Slot), p.Name, p.MimeType, p.Size, p.Width, p.Height,
			p.LastModified.UnixMilli(), p.StoredPath, p.Position, p.CreatedAt.Unix())
		return err
	})
	if err == nil {
		metrics.PhotosStoredTotal.WithLabelValues(p.Slot.String()).Inc()
		metrics.PhotoBytesStored.Observe(float64(p.Size))
	}
	return err
}

// ListPhotos returns the visible photos of a slot in position order.
func (d *Database) ListPhotos(ctx context.Context, s slot.Slot) (photos []Photo, err error) {
	start := time.Now()
	defer func() { recordQuery("list_photos", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		`SELECT `+photoColumns+` FROM photos WHERE slot = ? AND deleted = 0 ORDER BY position`,
		string(s))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	photos = []Photo{}
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		photos = append(photos, *p)
	}
	return photos, rows.Err()
}

// GetPhoto returns a photo by ID, deleted or not.
func (d *Database) GetPhoto(ctx context.Context, id string) (p *Photo, err error) {
	start := time.Now()
	defer func() {
		if errors.Is(err, ErrNotFound) {
			recordQuery("get_photo", start, nil)
			return
		}
		recordQuery("get_photo", start, err)
	}()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	p, err = scanPhoto(d.db.QueryRowContext(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("photo %s: %w", id, ErrNotFound)
	}
	return p, err
}

// DeletePhotoAt soft-deletes the photo at the 0-based index of the slot's
// visible photos and closes the gap in positions.
func (d *Database) DeletePhotoAt(ctx context.Context, s slot.Slot, index int) (deleted *Photo, err error) {
	start := time.Now()
	defer func() { recordQuery("delete_photo", start, err) }()

	if index < 0 {
		return nil, fmt.Errorf("photo %s[%d]: %w", s, index, ErrNotFound)
	}

	err = d.withTx(ctx, func(tx *sql.Tx) error {
		p, err := scanPhoto(tx.QueryRowContext(ctx,
			`SELECT `+photoColumns+` FROM photos WHERE slot = ? AND deleted = 0
			 ORDER BY position LIMIT 1 OFFSET ?`,
			string(s), index))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("photo %s[%d]: %w", s, index, ErrNotFound)
		}
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE photos SET deleted = 1, position = 0, deleted_at = strftime('%s', 'now') WHERE id = ?`,
			p.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE photos SET position = position - 1 WHERE slot = ? AND deleted = 0 AND position > ?`,
			string(s), p.Position); err != nil {
			return err
		}

		p.Deleted = true
		deleted = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.PhotosDeletedTotal.WithLabelValues(s.String()).Inc()
	return deleted, nil
}

// GetStats implements metrics.StatsProvider.
func (d *Database) GetStats() metrics.Stats {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	stats, err := d.Stats(ctx)
	if err != nil {
		return metrics.Stats{}
	}
	bySlot := make(map[string]int, len(stats.PhotosBySlot))
	for s, n := range stats.PhotosBySlot {
		bySlot[s.String()] = n
	}
	return metrics.Stats{
		PhotosBySlot:     bySlot,
		TotalPhotos:      stats.TotalPhotos,
		DeletedPhotos:    stats.DeletedPhotos,
		TelemetryEntries: stats.TelemetryEntries,
		FailedEntries:    stats.FailedEntries,
	}
}

// Stats counts photos per slot and telemetry entries.
func (d *Database) Stats(ctx context.Context) (stats Stats, err error) {
	start := time.Now()
	defer func() { recordQuery("stats", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	stats.PhotosBySlot = make(map[slot.Slot]int)
	for _, info := range slot.All() {
		stats.PhotosBySlot[info.Slot] = 0
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT slot, SUM(CASE WHEN deleted = 0 THEN 1 ELSE 0 END), SUM(deleted) FROM photos GROUP BY slot`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name             string
			visible, removed int
		)
		if err := rows.Scan(&name, &visible, &removed); err != nil {
			return stats, err
		}
		stats.PhotosBySlot[slot.Slot(name)] = visible
		stats.TotalPhotos += visible
		stats.DeletedPhotos += removed
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	err = d.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN error != '' THEN 1 ELSE 0 END), 0) FROM telemetry`,
	).Scan(&stats.TelemetryEntries, &stats.FailedEntries)
	return stats, err
}
