package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/humanitycalls/volunteer-desk/pkg/core/model"
)

// MyStatus fetches the authenticated applicant's own status.
// An applicant without an application gets status "none" and no volunteer.
func (c *Client) MyStatus(ctx context.Context) (*model.MyStatus, error) {
	var result model.MyStatus
	if err := c.doJSON(ctx, http.MethodGet, "/volunteers/my-status", nil, &result); err != nil {
		return nil, err
	}
	if result.Status == "" {
		result.Status = model.StatusNone
	}
	return &result, nil
}

// ListVolunteers lists applications in a status bucket ("all" or a status)
func (c *Client) ListVolunteers(ctx context.Context, bucket string) ([]model.VolunteerApplication, error) {
	endpoint := "/volunteers"
	if bucket != "" {
		endpoint += "?status=" + url.QueryEscape(bucket)
	}

	var result []model.VolunteerApplication
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateStatus transitions an application. When moving to active the returned
// record carries the freshly minted volunteerId and joiningDate.
func (c *Client) UpdateStatus(ctx context.Context, id string, change model.StatusChange) (*model.VolunteerApplication, error) {
	if id == "" {
		return nil, fmt.Errorf("application id cannot be empty")
	}

	var result model.VolunteerApplication
	if err := c.doJSON(ctx, http.MethodPut, "/volunteers/status/"+url.PathEscape(id), change, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteVolunteer permanently removes an application and its volunteerId
func (c *Client) DeleteVolunteer(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("application id cannot be empty")
	}
	return c.doJSON(ctx, http.MethodDelete, "/volunteers/"+url.PathEscape(id), nil, nil)
}

// UploadVolunteerImage stores an image and returns its durable URL
func (c *Client) UploadVolunteerImage(ctx context.Context, filename, contentType string, data []byte) (model.AssetReference, error) {
	var ref model.AssetReference
	err := c.doMultipart(ctx, "/volunteers/upload", nil, filePart{
		Field:       "image",
		Filename:    filename,
		ContentType: contentType,
		Data:        data,
	}, &ref)
	if err != nil {
		return model.AssetReference{}, err
	}
	if ref.URL == "" {
		return model.AssetReference{}, fmt.Errorf("upload response did not include an image URL")
	}
	return ref, nil
}

// Apply submits an application whose images have already been uploaded
func (c *Client) Apply(ctx context.Context, submission model.ApplicationSubmission) error {
	return c.doJSON(ctx, http.MethodPost, "/volunteers/apply", submission, nil)
}

// UpdateProfilePicture links an uploaded image to the applicant's profile
func (c *Client) UpdateProfilePicture(ctx context.Context, imageURL string) error {
	body := map[string]string{"profilePicture": imageURL}
	return c.doJSON(ctx, http.MethodPatch, "/volunteers/my-profile-picture", body, nil)
}
