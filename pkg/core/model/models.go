package model

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a volunteer application
type Status string

const (
	// StatusNone means no application record exists. It is never sent to the API.
	StatusNone      Status = "none"
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusTemporary Status = "temporary"
	StatusRejected  Status = "rejected"
	StatusBanned    Status = "banned"
)

// AllStatuses lists the persisted statuses in display order
var AllStatuses = []Status{StatusPending, StatusActive, StatusTemporary, StatusRejected, StatusBanned}

func (s Status) IsValid() bool {
	switch s {
	case StatusNone, StatusPending, StatusActive, StatusTemporary, StatusRejected, StatusBanned:
		return true
	}
	return false
}

// IsNegative reports whether entering s requires a reason
func (s Status) IsNegative() bool {
	return s == StatusRejected || s == StatusBanned
}

// ParseStatus parses a status case-insensitively. An empty string is StatusNone.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if s == "" {
		return StatusNone, true
	}
	return s, s.IsValid()
}

// OccupationOther requires OccupationDetail to be filled in
const OccupationOther = "Other"

// Profile holds the applicant-supplied fields of an application
type Profile struct {
	FullName         string   `json:"fullName" yaml:"fullName" validate:"required"`
	Email            string   `json:"email" yaml:"email" validate:"required,email"`
	Phone            string   `json:"phone" yaml:"phone" validate:"required,phone10"`
	Gender           string   `json:"gender" yaml:"gender" validate:"required"`
	DateOfBirth      string   `json:"dob" yaml:"dob" validate:"required,datetime=2006-01-02,adult"`
	BloodGroup       string   `json:"bloodGroup" yaml:"bloodGroup" validate:"required"`
	GovIDType        string   `json:"govIdType" yaml:"govIdType" validate:"required"`
	AreaOfInterest   string   `json:"interest" yaml:"interest" validate:"required"`
	Occupation       string   `json:"occupation" yaml:"occupation" validate:"required"`
	OccupationDetail string   `json:"occupationDetail,omitempty" yaml:"occupationDetail,omitempty" validate:"required_if=Occupation Other"`
	Skills           string   `json:"skills,omitempty" yaml:"skills,omitempty"`
	TimeCommitment   []string `json:"timeCommitment" yaml:"timeCommitment" validate:"required,min=1,dive,required"`
	WorkingMode      []string `json:"workingMode" yaml:"workingMode" validate:"required,min=1,dive,required"`
	RolePreference   []string `json:"rolePreference" yaml:"rolePreference" validate:"required,min=1,dive,required"`
}

// VolunteerApplication is the server-side application record as seen by the client
type VolunteerApplication struct {
	ID          string `json:"_id"`
	VolunteerID string `json:"volunteerId,omitempty"`
	Profile
	GovIDImage      string    `json:"govIdImage,omitempty"`
	ProfilePicture  string    `json:"profilePicture,omitempty"`
	Status          Status    `json:"status"`
	RejectionReason string    `json:"rejectionReason,omitempty"`
	BanReason       string    `json:"banReason,omitempty"`
	JoiningDate     string    `json:"joiningDate,omitempty"`
	CreatedAt       time.Time `json:"createdAt,omitempty"`
}

// Reason returns the reason matching the current status, if any
func (a VolunteerApplication) Reason() string {
	switch a.Status {
	case StatusRejected:
		return a.RejectionReason
	case StatusBanned:
		return a.BanReason
	}
	return ""
}

// ApplicationSubmission is the body of POST /volunteers/apply.
// Image fields carry URLs returned by the upload step.
type ApplicationSubmission struct {
	Profile
	GovIDImage     string `json:"govIdImage" validate:"required,url"`
	ProfilePicture string `json:"profilePicture" validate:"required,url"`
}

// ApplicationForm is the applicant's local form: profile fields plus image files
// that still need to be cropped and uploaded
type ApplicationForm struct {
	Profile            `yaml:",inline"`
	GovIDImagePath     string     `yaml:"govIdImagePath" validate:"required"`
	ProfilePicturePath string     `yaml:"profilePicturePath" validate:"required"`
	ProfileCrop        *CropInput `yaml:"profileCrop,omitempty"`
}

// CropInput is a user-finalised crop selection as captured by a form
type CropInput struct {
	X               int     `yaml:"x" json:"x"`
	Y               int     `yaml:"y" json:"y"`
	Width           int     `yaml:"width" json:"width"`
	Height          int     `yaml:"height" json:"height"`
	DisplayedWidth  int     `yaml:"displayedWidth,omitempty" json:"displayedWidth,omitempty"`
	DisplayedHeight int     `yaml:"displayedHeight,omitempty" json:"displayedHeight,omitempty"`
	Zoom            float64 `yaml:"zoom,omitempty" json:"zoom,omitempty"`
}

// MyStatus is the applicant's own view of their application
type MyStatus struct {
	Status    Status                `json:"status"`
	Volunteer *VolunteerApplication `json:"volunteer,omitempty"`
}

// StatusChange is the body of PUT /volunteers/status/:id
type StatusChange struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// GalleryImage is an admin-managed gallery entry
type GalleryImage struct {
	ID        string `json:"_id"`
	ProjectID string `json:"projectId"`
	EventDate string `json:"eventDate"`
	ImageURL  string `json:"imageUrl"`
	Order     int    `json:"order,omitempty"`
}

// GalleryUpdate is the body of PUT /gallery/:id
type GalleryUpdate struct {
	ProjectID string `json:"projectId,omitempty"`
	EventDate string `json:"eventDate,omitempty"`
}

// AssetReference is the durable location of a stored binary asset
type AssetReference struct {
	URL string `json:"imageUrl"`
}

// AgeInYears returns the number of whole years between dob and today
func AgeInYears(dob, today time.Time) int {
	years := today.Year() - dob.Year()
	if today.Month() < dob.Month() || (today.Month() == dob.Month() && today.Day() < dob.Day()) {
		years--
	}
	return years
}
