package db

import "context"

// AttachmentLedger records assets that were stored but never linked to their record,
// so a retry can re-attach without uploading again.
// Both MemoryStore and postgres.DB implement this interface.
type AttachmentLedger interface {
	RecordPending(ctx context.Context, pending *PendingAttachment) error
	ListPending(ctx context.Context) ([]PendingAttachment, error)
	ResolvePending(ctx context.Context, id string) error
}
