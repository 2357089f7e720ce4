package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/humanitycalls/volunteer-desk/pkg/core/model"
	"github.com/humanitycalls/volunteer-desk/pkg/core/upload"
	"github.com/humanitycalls/volunteer-desk/pkg/db"
)

// ProfilePictureAPI links an uploaded image as the applicant's profile picture
type ProfilePictureAPI interface {
	UpdateProfilePicture(ctx context.Context, imageURL string) error
	MyStatus(ctx context.Context) (*model.MyStatus, error)
}

// ProfilePictureResult represents the result of replacing a profile picture
type ProfilePictureResult struct {
	Asset  model.AssetReference
	Status *model.MyStatus
}

// UpdateProfilePicture crops and uploads path, links it to the applicant's record
// and returns the re-fetched status
func UpdateProfilePicture(
	ctx context.Context,
	path string,
	selection *model.CropInput,
	cropper ImageCropper,
	coordinator *upload.Coordinator,
	api ProfilePictureAPI,
	logger *zap.Logger,
) (*ProfilePictureResult, error) {
	logger.Debug("Step 1: Loading current record")
	current, err := api.MyStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch status: %w", err)
	}
	if current.Volunteer == nil {
		return nil, fmt.Errorf("no application on record to attach a profile picture to")
	}

	logger.Debug("Step 2: Cropping profile picture", zap.String("path", path))
	blob, err := cropFile(ctx, cropper, path, selection, ProfileAspect)
	if err != nil {
		return nil, err
	}

	logger.Debug("Step 3: Uploading and attaching profile picture",
		zap.Int("width", blob.Width),
		zap.Int("height", blob.Height))
	item := upload.Item{
		Name: "profilePicture",
		Blob: blob,
		Meta: upload.Metadata{Filename: upload.FileName("profile", path, time.Now())},
	}
	ref, err := coordinator.UploadAndAttach(ctx, item, ProfilePictureAttachment(api, current.Volunteer.ID))
	if err != nil {
		return nil, err
	}

	logger.Debug("Step 4: Re-fetching status")
	status, err := api.MyStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch status: %w", err)
	}

	logger.Info("Profile picture updated", zap.String("url", ref.URL))
	return &ProfilePictureResult{Asset: ref, Status: status}, nil
}

// ProfilePictureAttachment links the first asset as the profile picture of the
// application with id applicationID
func ProfilePictureAttachment(api ProfilePictureAPI, applicationID string) upload.Attachment {
	return upload.Attachment{
		Target:   db.TargetProfilePicture,
		TargetID: applicationID,
		Run: func(ctx context.Context, refs []model.AssetReference) error {
			if len(refs) == 0 {
				return fmt.Errorf("no stored image to attach")
			}
			return api.UpdateProfilePicture(ctx, refs[0].URL)
		},
	}
}
