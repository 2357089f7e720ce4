package db

import "time"

// AttachTarget names the record an uploaded asset is linked into
type AttachTarget string

const (
	// TargetProfilePicture links the asset as the applicant's profile picture
	TargetProfilePicture AttachTarget = "profile_picture"
	// TargetApplication submits an application that references the stored assets
	TargetApplication AttachTarget = "application"
)

// PendingAttachment is a stored asset whose attach step failed.
// Payload holds the JSON body needed to re-run the attach step, if any.
type PendingAttachment struct {
	ID     string
	Target AttachTarget
	// TargetID names the record the assets belong to: an application id or an email
	TargetID string
	// Owner fingerprints the credential that recorded the entry; only that credential retries it
	Owner     string
	AssetURLs []string
	Payload   []byte
	LastError string
	CreatedAt time.Time
}
