package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/humanitycalls/volunteer-desk/pkg/core/model"
)

// ListGallery lists gallery images, optionally for a single project
func (c *Client) ListGallery(ctx context.Context, projectID string) ([]model.GalleryImage, error) {
	endpoint := "/gallery"
	if projectID != "" {
		endpoint += "?projectId=" + url.QueryEscape(projectID)
	}

	var result []model.GalleryImage
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// UploadGalleryImage stores an image and creates its gallery record in one call
func (c *Client) UploadGalleryImage(ctx context.Context, filename, contentType string, data []byte, projectID, eventDate string) (*model.GalleryImage, error) {
	fields := map[string]string{
		"projectId": projectID,
		"eventDate": eventDate,
	}

	var result model.GalleryImage
	err := c.doMultipart(ctx, "/gallery/upload", fields, filePart{
		Field:       "image",
		Filename:    filename,
		ContentType: contentType,
		Data:        data,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateGalleryImage changes the project or event date of a gallery image
func (c *Client) UpdateGalleryImage(ctx context.Context, id string, update model.GalleryUpdate) (*model.GalleryImage, error) {
	if id == "" {
		return nil, fmt.Errorf("gallery image id cannot be empty")
	}

	var result model.GalleryImage
	if err := c.doJSON(ctx, http.MethodPut, "/gallery/"+url.PathEscape(id), update, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteGalleryImage removes a gallery image
func (c *Client) DeleteGalleryImage(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("gallery image id cannot be empty")
	}
	return c.doJSON(ctx, http.MethodDelete, "/gallery/"+url.PathEscape(id), nil, nil)
}
