package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/humanitycalls/volunteer-desk/pkg/core/model"
	"github.com/humanitycalls/volunteer-desk/pkg/core/upload"
)

// GalleryAPI manages gallery records
type GalleryAPI interface {
	ListGallery(ctx context.Context, projectID string) ([]model.GalleryImage, error)
	UpdateGalleryImage(ctx context.Context, id string, update model.GalleryUpdate) (*model.GalleryImage, error)
	DeleteGalleryImage(ctx context.Context, id string) error
}

// GalleryFile is a local image queued for upload. Files go up in ascending Order.
type GalleryFile struct {
	Path  string
	Order int
}

// GalleryUploadResult represents the result of a gallery batch upload
type GalleryUploadResult struct {
	Batch   *upload.BatchResult
	Gallery []model.GalleryImage
}

// UploadGallery crops every file to the configured size, uploads them concurrently
// and re-fetches the project's gallery. Files that could not be read or cropped are
// reported as failed items without stopping the rest.
func UploadGallery(
	ctx context.Context,
	files []GalleryFile,
	projectID, eventDate string,
	cropper ImageCropper,
	coordinator *upload.Coordinator,
	api GalleryAPI,
	logger *zap.Logger,
) (*GalleryUploadResult, error) {
	if projectID == "" {
		return nil, fmt.Errorf("project id is required")
	}
	if _, err := time.Parse("2006-01-02", eventDate); err != nil {
		return nil, fmt.Errorf("event date must be YYYY-MM-DD: %w", err)
	}

	ordered := make([]GalleryFile, len(files))
	copy(ordered, files)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	logger.Debug("Step 1: Preparing gallery images", zap.Int("count", len(ordered)))
	now := time.Now()
	items := make([]upload.Item, 0, len(ordered))
	var prepFailures []upload.ItemResult
	for _, f := range ordered {
		blob, err := cropFile(ctx, cropper, f.Path, nil, 0)
		if err != nil {
			prepFailures = append(prepFailures, upload.ItemResult{Name: f.Path, Err: err})
			continue
		}
		items = append(items, upload.Item{
			Name: f.Path,
			Blob: blob,
			Meta: upload.Metadata{
				Filename:  upload.FileName("gallery", f.Path, now),
				ProjectID: projectID,
				EventDate: eventDate,
				Order:     f.Order,
			},
		})
	}

	logger.Debug("Step 2: Uploading gallery images", zap.Int("count", len(items)))
	batch := coordinator.UploadBatch(ctx, items)
	batch = mergeFailures(batch, prepFailures)

	logger.Debug("Step 3: Re-fetching gallery", zap.String("project_id", projectID))
	gallery, err := api.ListGallery(ctx, projectID)
	if err != nil {
		return &GalleryUploadResult{Batch: batch}, fmt.Errorf("failed to fetch gallery: %w", err)
	}

	logger.Info("Gallery upload finished",
		zap.String("project_id", projectID),
		zap.Int("uploaded", len(batch.Succeeded())),
		zap.Int("failed", len(batch.Failed())))

	return &GalleryUploadResult{Batch: batch, Gallery: gallery}, nil
}

// UpdateGalleryImage changes an image's project or event date and returns the re-fetched gallery
func UpdateGalleryImage(ctx context.Context, api GalleryAPI, logger *zap.Logger, id string, update model.GalleryUpdate) ([]model.GalleryImage, error) {
	if update.EventDate != "" {
		if _, err := time.Parse("2006-01-02", update.EventDate); err != nil {
			return nil, fmt.Errorf("event date must be YYYY-MM-DD: %w", err)
		}
	}

	logger.Debug("Updating gallery image", zap.String("id", id))
	if _, err := api.UpdateGalleryImage(ctx, id, update); err != nil {
		return nil, fmt.Errorf("failed to update gallery image: %w", err)
	}

	gallery, err := api.ListGallery(ctx, update.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch gallery: %w", err)
	}
	return gallery, nil
}

// DeleteGalleryImage removes an image and returns the re-fetched gallery for projectID
func DeleteGalleryImage(ctx context.Context, api GalleryAPI, logger *zap.Logger, id, projectID string) ([]model.GalleryImage, error) {
	logger.Debug("Deleting gallery image", zap.String("id", id))
	if err := api.DeleteGalleryImage(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to delete gallery image: %w", err)
	}

	gallery, err := api.ListGallery(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch gallery: %w", err)
	}
	return gallery, nil
}

// mergeFailures appends items that never reached the store step and renumbers results
func mergeFailures(batch *upload.BatchResult, failures []upload.ItemResult) *upload.BatchResult {
	if len(failures) == 0 {
		return batch
	}
	merged := &upload.BatchResult{Results: append(append([]upload.ItemResult{}, batch.Results...), failures...)}
	for i := range merged.Results {
		merged.Results[i].Index = i
	}
	return merged
}
