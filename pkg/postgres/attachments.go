package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/humanitycalls/volunteer-desk/pkg/db"
)

// RecordPending inserts an entry, replacing any entry with the same id
func (d *DB) RecordPending(ctx context.Context, pending *db.PendingAttachment) error {
	if pending == nil || pending.ID == "" {
		return fmt.Errorf("pending attachment must have an id")
	}

	var payload []byte
	if len(pending.Payload) > 0 {
		payload = pending.Payload
	}
	urls := pending.AssetURLs
	if urls == nil {
		urls = []string{}
	}

	_, err := d.pool.Exec(ctx, `
		INSERT INTO pending_attachment (id, target, target_id, owner, asset_urls, payload, last_error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET last_error = EXCLUDED.last_error
	`, pending.ID, string(pending.Target), pending.TargetID, pending.Owner, urls, payload, pending.LastError, pending.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert pending attachment: %w", err)
	}
	return nil
}

// ListPending returns unresolved entries, oldest first
func (d *DB) ListPending(ctx context.Context) ([]db.PendingAttachment, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, target, target_id, owner, asset_urls, payload, last_error, created_at
		FROM pending_attachment
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending attachments: %w", err)
	}

	pending, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (db.PendingAttachment, error) {
		var p db.PendingAttachment
		var target string
		if err := row.Scan(&p.ID, &target, &p.TargetID, &p.Owner, &p.AssetURLs, &p.Payload, &p.LastError, &p.CreatedAt); err != nil {
			return p, err
		}
		p.Target = db.AttachTarget(target)
		p.CreatedAt = p.CreatedAt.UTC()
		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan pending attachments: %w", err)
	}
	return pending, nil
}

// ResolvePending deletes an entry once its attach step has succeeded
func (d *DB) ResolvePending(ctx context.Context, id string) error {
	tag, err := d.pool.Exec(ctx, `DELETE FROM pending_attachment WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pending attachment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pending attachment %s not found: %w", id, pgx.ErrNoRows)
	}
	return nil
}

// IsNotFound reports whether err came from resolving an unknown entry
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

var _ db.AttachmentLedger = (*DB)(nil)
