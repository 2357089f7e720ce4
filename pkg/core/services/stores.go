package services

import (
	"context"

	"github.com/humanitycalls/volunteer-desk/pkg/core/model"
	"github.com/humanitycalls/volunteer-desk/pkg/core/upload"
)

// VolunteerImageUploader stores applicant images
type VolunteerImageUploader interface {
	UploadVolunteerImage(ctx context.Context, filename, contentType string, data []byte) (model.AssetReference, error)
}

// GalleryImageUploader stores a gallery image and creates its record in one call
type GalleryImageUploader interface {
	UploadGalleryImage(ctx context.Context, filename, contentType string, data []byte, projectID, eventDate string) (*model.GalleryImage, error)
}

// VolunteerImageStore is the store step for applicant images
func VolunteerImageStore(api VolunteerImageUploader) upload.StoreFunc {
	return func(ctx context.Context, item upload.Item) (model.AssetReference, error) {
		return api.UploadVolunteerImage(ctx, item.Meta.Filename, item.Blob.ContentType, item.Blob.Data)
	}
}

// GalleryImageStore is the store step for gallery images
func GalleryImageStore(api GalleryImageUploader) upload.StoreFunc {
	return func(ctx context.Context, item upload.Item) (model.AssetReference, error) {
		img, err := api.UploadGalleryImage(ctx, item.Meta.Filename, item.Blob.ContentType, item.Blob.Data, item.Meta.ProjectID, item.Meta.EventDate)
		if err != nil {
			return model.AssetReference{}, err
		}
		return model.AssetReference{URL: img.ImageURL}, nil
	}
}
