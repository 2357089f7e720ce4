package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/humanitycalls/volunteer-desk/pkg/core/lifecycle"
	"github.com/humanitycalls/volunteer-desk/pkg/core/model"
	"github.com/humanitycalls/volunteer-desk/pkg/core/upload"
	"github.com/humanitycalls/volunteer-desk/pkg/db"
)

// RetryAttachments re-links every stored-but-unattached asset in the ledger.
// Nothing is uploaded again. Entries recorded for another application are
// left in the ledger.
func RetryAttachments(
	ctx context.Context,
	coordinator *upload.Coordinator,
	profiles ProfilePictureAPI,
	manager ApplicantLifecycle,
	logger *zap.Logger,
) (*upload.RetryResult, error) {
	logger.Debug("Step 1: Loading current record")
	current, err := manager.MyStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch status: %w", err)
	}

	rebuild := func(p db.PendingAttachment) (upload.AttachFunc, error) {
		switch p.Target {
		case db.TargetProfilePicture:
			if p.TargetID != "" && (current.Volunteer == nil || current.Volunteer.ID != p.TargetID) {
				return nil, fmt.Errorf("profile picture for application %s: %w", p.TargetID, upload.ErrSkip)
			}
			return ProfilePictureAttachment(profiles, p.TargetID).Run, nil

		case db.TargetApplication:
			if p.TargetID != "" && current.Volunteer != nil && !strings.EqualFold(current.Volunteer.Email, p.TargetID) {
				return nil, fmt.Errorf("application for %s: %w", p.TargetID, upload.ErrSkip)
			}
			var submission model.ApplicationSubmission
			if err := json.Unmarshal(p.Payload, &submission); err != nil {
				return nil, fmt.Errorf("failed to decode saved application: %w", err)
			}
			return func(ctx context.Context, refs []model.AssetReference) error {
				status, err := manager.MyStatus(ctx)
				if err != nil {
					return fmt.Errorf("failed to fetch status: %w", err)
				}
				// An application already under review means an earlier attach went through
				if !lifecycle.CanApply(status.Status) {
					logger.Debug("Application already on record",
						zap.String("status", string(status.Status)))
					return nil
				}
				return manager.Send(ctx, submission)
			}, nil
		}
		return nil, fmt.Errorf("unknown attach target %q", p.Target)
	}

	logger.Debug("Step 2: Re-running pending attachments")
	result, err := coordinator.RetryAttach(ctx, rebuild)
	if err != nil {
		return result, err
	}

	logger.Info("Retried pending attachments",
		zap.Int("resolved", len(result.Resolved)),
		zap.Int("still_failing", len(result.Failed)),
		zap.Int("skipped", len(result.Skipped)))
	return result, nil
}
