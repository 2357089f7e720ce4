package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/humanitycalls/volunteer-desk/pkg/core/crop"
	"github.com/humanitycalls/volunteer-desk/pkg/core/lifecycle"
	"github.com/humanitycalls/volunteer-desk/pkg/core/model"
	"github.com/humanitycalls/volunteer-desk/pkg/core/upload"
	"github.com/humanitycalls/volunteer-desk/pkg/db"
)

// ProfileAspect is the aspect ratio profile pictures are cropped to
const ProfileAspect = 1.0

// FormValidator checks a form before anything is uploaded
type FormValidator interface {
	ApplicationForm(form *model.ApplicationForm) error
}

// ImageCropper produces upload-ready blobs
type ImageCropper interface {
	Crop(ctx context.Context, source []byte, filename string, sel crop.Selection) (*crop.Blob, error)
}

// ApplicantLifecycle is the applicant side of the lifecycle manager
type ApplicantLifecycle interface {
	MyStatus(ctx context.Context) (*model.MyStatus, error)
	Send(ctx context.Context, submission model.ApplicationSubmission) error
}

// ApplicationResult represents the result of submitting an application
type ApplicationResult struct {
	Status         *model.MyStatus
	GovIDImage     model.AssetReference
	ProfilePicture model.AssetReference
}

// SubmitApplication validates the form, crops and uploads both images, then submits
// the application and returns the re-fetched status. A form that fails validation
// never reaches the network.
func SubmitApplication(
	ctx context.Context,
	form *model.ApplicationForm,
	validator FormValidator,
	cropper ImageCropper,
	coordinator *upload.Coordinator,
	manager ApplicantLifecycle,
	logger *zap.Logger,
) (*ApplicationResult, error) {
	logger.Debug("Step 1: Validating application form", zap.String("email", form.Email))
	if err := validator.ApplicationForm(form); err != nil {
		return nil, err
	}

	logger.Debug("Step 2: Checking whether the applicant may apply")
	current, err := manager.MyStatus(ctx)
	if err != nil {
		return nil, err
	}
	if !lifecycle.CanApply(current.Status) {
		return nil, &lifecycle.ApplyBlockedError{Status: current.Status}
	}

	logger.Debug("Step 3: Cropping images")
	govID, err := cropFile(ctx, cropper, form.GovIDImagePath, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare government ID image: %w", err)
	}
	profile, err := cropFile(ctx, cropper, form.ProfilePicturePath, form.ProfileCrop, ProfileAspect)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare profile picture: %w", err)
	}

	logger.Debug("Step 4: Uploading images")
	now := time.Now()
	batch := coordinator.UploadBatch(ctx, []upload.Item{
		{Name: "govIdImage", Blob: govID, Meta: upload.Metadata{Filename: upload.FileName("govid", form.GovIDImagePath, now)}},
		{Name: "profilePicture", Blob: profile, Meta: upload.Metadata{Filename: upload.FileName("profile", form.ProfilePicturePath, now)}},
	})
	if err := batch.Err(); err != nil {
		return nil, err
	}
	govRef, profileRef := batch.Results[0].Ref, batch.Results[1].Ref

	logger.Debug("Step 5: Submitting application",
		zap.String("gov_id_url", govRef.URL),
		zap.String("profile_url", profileRef.URL))
	submission := model.ApplicationSubmission{
		Profile:        form.Profile,
		GovIDImage:     govRef.URL,
		ProfilePicture: profileRef.URL,
	}
	payload, err := json.Marshal(submission)
	if err != nil {
		return nil, fmt.Errorf("failed to encode submission: %w", err)
	}

	err = coordinator.Attach(ctx, []model.AssetReference{govRef, profileRef}, upload.Attachment{
		Target:   db.TargetApplication,
		TargetID: applicationOwner(form.Email),
		Payload:  payload,
		Run: func(ctx context.Context, refs []model.AssetReference) error {
			return manager.Send(ctx, submission)
		},
	})
	if err != nil {
		return nil, err
	}

	// The application is in; a failed re-fetch is not an attach failure
	logger.Debug("Step 6: Re-fetching status")
	status, err := manager.MyStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("application was submitted but its status could not be loaded: %w", err)
	}

	logger.Info("Application submitted", zap.String("status", string(status.Status)))

	return &ApplicationResult{
		Status:         status,
		GovIDImage:     govRef,
		ProfilePicture: profileRef,
	}, nil
}

// applicationOwner is the ledger TargetID of an application: its applicant's email
func applicationOwner(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// cropFile reads path and crops it with the captured selection, or with the
// largest centred window of aspect when nothing was captured
func cropFile(ctx context.Context, cropper ImageCropper, path string, in *model.CropInput, aspect float64) (*crop.Blob, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}

	var sel crop.Selection
	if in != nil {
		sel = crop.SelectionFromInput(in)
	} else {
		sel, err = crop.FullFrame(source, path, aspect, 1)
		if err != nil {
			return nil, err
		}
	}

	return cropper.Crop(ctx, source, path, sel)
}
