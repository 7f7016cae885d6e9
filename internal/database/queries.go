package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GetSetting returns the value stored under key and whether it exists
func (db *DB) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// SetSetting inserts or replaces a setting
func (db *DB) SetSetting(ctx context.Context, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now())
	return err
}

// DeleteSetting removes a setting; a missing key is not an error
func (db *DB) DeleteSetting(ctx context.Context, key string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	return err
}

// SaveSettings writes values and removes the drop keys in one transaction
func (db *DB) SaveSettings(ctx context.Context, values map[string]string, drop ...string) error {
	now := time.Now()
	return db.Transaction(ctx, func(tx *sql.Tx) error {
		for key, value := range values {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
				ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
			`, key, value, now); err != nil {
				return fmt.Errorf("failed to save %s: %w", key, err)
			}
		}
		for _, key := range drop {
			if _, err := tx.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key); err != nil {
				return fmt.Errorf("failed to delete %s: %w", key, err)
			}
		}
		return nil
	})
}

// Settings returns every stored setting except those in hide
func (db *DB) Settings(ctx context.Context, hide ...string) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hidden := make(map[string]bool, len(hide))
	for _, k := range hide {
		hidden[k] = true
	}

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		if !hidden[k] {
			out[k] = v
		}
	}
	return out, rows.Err()
}

// RecordForward stores a delivered message
func (db *DB) RecordForward(ctx context.Context, f *Forward) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.ForwardedAt.IsZero() {
		f.ForwardedAt = time.Now()
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO forwards (id, message_id, chat_id, subject, sender, forwarded_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(message_id) DO NOTHING
	`, f.ID, f.MessageID, f.ChatID, NullString(f.Subject), NullString(f.Sender), f.ForwardedAt)
	return err
}

// HasForwarded reports whether a message was already delivered
func (db *DB) HasForwarded(ctx context.Context, messageID string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM forwards WHERE message_id = ?`, messageID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListForwards returns delivered messages, newest first
func (db *DB) ListForwards(ctx context.Context, opts ForwardListOptions) ([]Forward, error) {
	query := `SELECT id, message_id, chat_id, subject, sender, forwarded_at FROM forwards WHERE 1=1`
	args := []interface{}{}

	if opts.Since != nil {
		query += " AND forwarded_at >= ?"
		args = append(args, *opts.Since)
	}

	query += " ORDER BY forwarded_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var forwards []Forward
	for rows.Next() {
		f := Forward{}
		var subject, sender sql.NullString
		if err := rows.Scan(&f.ID, &f.MessageID, &f.ChatID, &subject, &sender, &f.ForwardedAt); err != nil {
			return nil, err
		}
		f.Subject = StringPtr(subject)
		f.Sender = StringPtr(sender)
		forwards = append(forwards, f)
	}

	return forwards, rows.Err()
}

// StartRun inserts a run row and returns it
func (db *DB) StartRun(ctx context.Context, dryRun bool) (*Run, error) {
	r := &Run{ID: uuid.New().String(), StartedAt: time.Now(), DryRun: dryRun}
	_, err := db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, dry_run) VALUES (?, ?, ?)
	`, r.ID, r.StartedAt, r.DryRun)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// FinishRun stores the final counters of a run
func (db *DB) FinishRun(ctx context.Context, r *Run) error {
	now := time.Now()
	r.FinishedAt = &now
	_, err := db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, fetched = ?, matched = ?, forwarded = ?, failed = ?
		WHERE id = ?
	`, now, r.Fetched, r.Matched, r.Forwarded, r.Failed, r.ID)
	return err
}

// LastRun returns the most recent run, or nil if there is none
func (db *DB) LastRun(ctx context.Context) (*Run, error) {
	r := &Run{}
	var finished sql.NullTime
	err := db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, fetched, matched, forwarded, failed, dry_run
		FROM runs ORDER BY started_at DESC LIMIT 1
	`).Scan(&r.ID, &r.StartedAt, &finished, &r.Fetched, &r.Matched, &r.Forwarded, &r.Failed, &r.DryRun)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.FinishedAt = TimePtr(finished)
	return r, nil
}
