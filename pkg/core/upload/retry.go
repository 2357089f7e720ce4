package upload

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/humanitycalls/volunteer-desk/pkg/core/model"
	"github.com/humanitycalls/volunteer-desk/pkg/db"
)

// ErrSkip is returned (possibly wrapped) by a Rebuilder for entries that belong to
// another record. Skipped entries stay in the ledger untouched.
var ErrSkip = errors.New("entry belongs to another record")

// Rebuilder turns a ledger entry back into an attach step
type Rebuilder func(pending db.PendingAttachment) (AttachFunc, error)

// RetryFailure is a ledger entry that still could not be attached
type RetryFailure struct {
	Pending db.PendingAttachment
	Err     error
}

// RetryResult summarises a retry pass
type RetryResult struct {
	Resolved []db.PendingAttachment
	Failed   []RetryFailure
	// Skipped entries were recorded by another credential or for another record
	Skipped []db.PendingAttachment
}

// RetryAttach re-runs the attach step for every ledger entry without storing
// anything again. Entries are retried one at a time in ledger order. Entries
// recorded under a different owner are skipped.
func (c *Coordinator) RetryAttach(ctx context.Context, rebuild Rebuilder) (*RetryResult, error) {
	if c.ledger == nil {
		return nil, fmt.Errorf("no attachment ledger configured")
	}

	pending, err := c.ledger.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending attachments: %w", err)
	}

	c.logger.Debug("Retrying pending attachments", zap.Int("count", len(pending)))

	result := &RetryResult{}
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if p.Owner != c.owner {
			result.Skipped = append(result.Skipped, p)
			continue
		}

		run, err := rebuild(p)
		if errors.Is(err, ErrSkip) {
			c.logger.Debug("Skipping pending attachment", zap.String("pending_id", p.ID), zap.Error(err))
			result.Skipped = append(result.Skipped, p)
			continue
		}
		if err != nil {
			result.Failed = append(result.Failed, RetryFailure{Pending: p, Err: err})
			continue
		}

		refs := make([]model.AssetReference, 0, len(p.AssetURLs))
		for _, u := range p.AssetURLs {
			refs = append(refs, model.AssetReference{URL: u})
		}

		if err := run(ctx, refs); err != nil {
			c.logger.Debug("Attach still failing", zap.String("pending_id", p.ID), zap.Error(err))
			result.Failed = append(result.Failed, RetryFailure{Pending: p, Err: err})
			continue
		}

		if err := c.ledger.ResolvePending(ctx, p.ID); err != nil {
			return result, fmt.Errorf("failed to resolve pending attachment %s: %w", p.ID, err)
		}
		c.logger.Info("Attached pending asset",
			zap.String("pending_id", p.ID),
			zap.String("target", string(p.Target)))
		result.Resolved = append(result.Resolved, p)
	}

	return result, nil
}
