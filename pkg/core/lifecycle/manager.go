package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/humanitycalls/volunteer-desk/pkg/core/model"
)

// BucketAll selects every application regardless of status
const BucketAll = "all"

var (
	// ErrNotFound is returned when an application id is not on the roster
	ErrNotFound = errors.New("application not found")
	// ErrConfirmationMismatch is returned when a hard delete was not confirmed with the application id
	ErrConfirmationMismatch = errors.New("confirmation does not match application id")
)

// ApplyBlockedError is returned when an applicant who already has a live
// application tries to submit another one
type ApplyBlockedError struct {
	Status model.Status
}

func (e *ApplyBlockedError) Error() string {
	return fmt.Sprintf("cannot apply while application is %s", e.Status)
}

func (e *ApplyBlockedError) UserMessage() string {
	return fmt.Sprintf("You already have an application (status: %s).", e.Status)
}

// VolunteerAPI is the part of the REST API the manager drives
type VolunteerAPI interface {
	MyStatus(ctx context.Context) (*model.MyStatus, error)
	ListVolunteers(ctx context.Context, bucket string) ([]model.VolunteerApplication, error)
	UpdateStatus(ctx context.Context, id string, change model.StatusChange) (*model.VolunteerApplication, error)
	DeleteVolunteer(ctx context.Context, id string) error
	Apply(ctx context.Context, submission model.ApplicationSubmission) error
}

// Manager runs lifecycle transitions against the remote API. It never keeps
// state of its own: every mutation is followed by a fetch and the fetched
// record is what callers get back.
type Manager struct {
	api    VolunteerAPI
	logger *zap.Logger
}

// NewManager creates a Manager. The API client carries whichever credential
// (admin or applicant) the caller was given.
func NewManager(api VolunteerAPI, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{api: api, logger: logger}
}

// DecisionResult is the authoritative state after an admin decision
type DecisionResult struct {
	Previous    model.Status
	Application *model.VolunteerApplication
	// Approved is set for pending -> active, the transition that mints a volunteer id
	Approved bool
}

// MyStatus returns the applicant's own status
func (m *Manager) MyStatus(ctx context.Context) (*model.MyStatus, error) {
	status, err := m.api.MyStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch status: %w", err)
	}
	return status, nil
}

// Send posts an application for the authenticated applicant without re-fetching
// the result. The submission's images must already be uploaded.
func (m *Manager) Send(ctx context.Context, submission model.ApplicationSubmission) error {
	m.logger.Debug("Step 1: Checking current application status")
	current, err := m.MyStatus(ctx)
	if err != nil {
		return err
	}

	if !CanApply(current.Status) {
		return &ApplyBlockedError{Status: current.Status}
	}
	if err := checkEdge(ActorApplicant, current.Status, model.StatusPending); err != nil {
		return err
	}

	m.logger.Debug("Step 2: Submitting application",
		zap.String("from", string(current.Status)),
		zap.String("email", submission.Email))
	if err := m.api.Apply(ctx, submission); err != nil {
		return fmt.Errorf("failed to submit application: %w", err)
	}
	return nil
}

// Submit sends an application and returns the re-fetched status
func (m *Manager) Submit(ctx context.Context, submission model.ApplicationSubmission) (*model.MyStatus, error) {
	if err := m.Send(ctx, submission); err != nil {
		return nil, err
	}

	m.logger.Debug("Step 3: Re-fetching status")
	after, err := m.MyStatus(ctx)
	if err != nil {
		return nil, err
	}

	m.logger.Info("Application submitted", zap.String("status", string(after.Status)))
	return after, nil
}

// Roster lists applications in bucket, which is "all" or a persisted status
func (m *Manager) Roster(ctx context.Context, bucket string) ([]model.VolunteerApplication, error) {
	if err := ValidateBucket(bucket); err != nil {
		return nil, err
	}

	apps, err := m.api.ListVolunteers(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch volunteers: %w", err)
	}

	m.logger.Debug("Fetched roster", zap.String("bucket", bucket), zap.Int("count", len(apps)))
	return apps, nil
}

// Find fetches a single application by id
func (m *Manager) Find(ctx context.Context, id string) (*model.VolunteerApplication, error) {
	apps, err := m.Roster(ctx, BucketAll)
	if err != nil {
		return nil, err
	}
	for i := range apps {
		if apps[i].ID == id {
			return &apps[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Decide moves current into target. The transition is validated against current
// before anything is sent; a missing reason comes back as a *GuardError so the
// caller can ask for one and call again.
func (m *Manager) Decide(ctx context.Context, current model.VolunteerApplication, target model.Status, reason string) (*DecisionResult, error) {
	decision := Decision{Actor: ActorAdmin, To: target, Reason: reason}
	if err := Check(current.Status, decision); err != nil {
		return nil, err
	}

	// Only send a reason for the status that stores one
	change := model.StatusChange{Status: target}
	if target.IsNegative() {
		change.Reason = decision.Reason
	}

	m.logger.Debug("Step 1: Sending status change",
		zap.String("id", current.ID),
		zap.String("from", string(current.Status)),
		zap.String("to", string(target)))
	if _, err := m.api.UpdateStatus(ctx, current.ID, change); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	m.logger.Debug("Step 2: Re-fetching application", zap.String("id", current.ID))
	updated, err := m.Find(ctx, current.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm status change: %w", err)
	}

	if current.VolunteerID != "" && updated.VolunteerID != current.VolunteerID {
		m.logger.Warn("Volunteer id changed on the server",
			zap.String("id", current.ID),
			zap.String("before", current.VolunteerID),
			zap.String("after", updated.VolunteerID))
	}

	result := &DecisionResult{
		Previous:    current.Status,
		Application: updated,
		Approved:    current.Status == model.StatusPending && target == model.StatusActive,
	}

	if result.Approved {
		if updated.VolunteerID == "" || updated.JoiningDate == "" {
			return nil, fmt.Errorf("approval of %s did not return a volunteer id and joining date", current.ID)
		}
		m.logger.Info("Volunteer approved",
			zap.String("id", updated.ID),
			zap.String("volunteer_id", updated.VolunteerID),
			zap.String("joining_date", updated.JoiningDate))
	} else {
		m.logger.Info("Status updated",
			zap.String("id", updated.ID),
			zap.String("status", string(updated.Status)))
	}

	return result, nil
}

// DecideByID fetches the application and then decides on it
func (m *Manager) DecideByID(ctx context.Context, id string, target model.Status, reason string) (*DecisionResult, error) {
	current, err := m.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.Decide(ctx, *current, target, reason)
}

// Reapply resets a rejected application to pending and clears its reason
func (m *Manager) Reapply(ctx context.Context, id string) (*DecisionResult, error) {
	return m.DecideByID(ctx, id, model.StatusPending, "")
}

// Delete permanently removes an application, including its volunteer id.
// confirmation must equal id.
func (m *Manager) Delete(ctx context.Context, id, confirmation string) error {
	if id == "" || confirmation != id {
		return ErrConfirmationMismatch
	}

	m.logger.Debug("Step 1: Deleting application", zap.String("id", id))
	if err := m.api.DeleteVolunteer(ctx, id); err != nil {
		return fmt.Errorf("failed to delete application: %w", err)
	}

	m.logger.Debug("Step 2: Confirming deletion", zap.String("id", id))
	_, err := m.Find(ctx, id)
	if err == nil {
		return fmt.Errorf("application %s is still present after delete", id)
	}
	if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to confirm deletion: %w", err)
	}

	m.logger.Info("Application deleted", zap.String("id", id))
	return nil
}

// ValidateBucket accepts "all" or any persisted status
func ValidateBucket(bucket string) error {
	if bucket == BucketAll {
		return nil
	}
	s, ok := model.ParseStatus(bucket)
	if !ok || s == model.StatusNone {
		return fmt.Errorf("unknown status bucket %q", bucket)
	}
	return nil
}
