package lifecycle

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/humanitycalls/volunteer-desk/pkg/core/model"
)

// Actor identifies who is asking for a transition
type Actor string

const (
	ActorApplicant Actor = "applicant"
	ActorAdmin     Actor = "admin"
)

var (
	// ErrReasonRequired is wrapped by GuardError when a negative outcome has no reason
	ErrReasonRequired = errors.New("a reason is required")
	// ErrTransitionNotAllowed is returned for transitions missing from the table
	ErrTransitionNotAllowed = errors.New("transition not allowed")
	// ErrNotPermitted is returned when the actor may not perform an allowed transition
	ErrNotPermitted = errors.New("actor not permitted")
)

// GuardError reports a transition that needs more input before it can run.
// It is not a terminal failure: collect the missing input and resubmit.
type GuardError struct {
	From   model.Status
	To     model.Status
	Reason error
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("cannot move %s -> %s: %v", e.From, e.To, e.Reason)
}

func (e *GuardError) Unwrap() error {
	return e.Reason
}

func (e *GuardError) UserMessage() string {
	if errors.Is(e.Reason, ErrReasonRequired) {
		return fmt.Sprintf("Please provide a reason for marking this volunteer %s", e.To)
	}
	return e.Error()
}

type edge struct {
	from, to model.Status
}

// transitions maps every allowed edge to the actors who may take it.
// Nothing enters temporary here: provisional ids are issued outside this workflow.
var transitions = map[edge][]Actor{
	{model.StatusNone, model.StatusPending}:     {ActorApplicant},
	{model.StatusRejected, model.StatusPending}: {ActorApplicant, ActorAdmin},

	{model.StatusPending, model.StatusActive}:   {ActorAdmin},
	{model.StatusPending, model.StatusRejected}: {ActorAdmin},
	{model.StatusPending, model.StatusBanned}:   {ActorAdmin},

	{model.StatusActive, model.StatusRejected}: {ActorAdmin},
	{model.StatusActive, model.StatusBanned}:   {ActorAdmin},

	{model.StatusTemporary, model.StatusActive}:   {ActorAdmin},
	{model.StatusTemporary, model.StatusRejected}: {ActorAdmin},
	{model.StatusTemporary, model.StatusBanned}:   {ActorAdmin},

	{model.StatusRejected, model.StatusActive}: {ActorAdmin},
	{model.StatusBanned, model.StatusActive}:   {ActorAdmin},
}

// CanApply reports whether an applicant in status may submit an application
func CanApply(status model.Status) bool {
	return status == model.StatusNone || status == model.StatusRejected
}

// Allowed reports whether actor may move an application from one status to another
func Allowed(actor Actor, from, to model.Status) bool {
	return checkEdge(actor, from, to) == nil
}

// Targets lists the statuses actor may move an application in from to
func Targets(actor Actor, from model.Status) []model.Status {
	out := make([]model.Status, 0, 3)
	for _, to := range model.AllStatuses {
		if Allowed(actor, from, to) {
			out = append(out, to)
		}
	}
	return out
}

// Decision is an intent to move an application into a new status
type Decision struct {
	Actor  Actor
	To     model.Status
	Reason string
}

// Check validates a decision against the current status without applying it
func Check(from model.Status, d Decision) error {
	if err := checkEdge(d.Actor, from, d.To); err != nil {
		return err
	}
	if d.To.IsNegative() && strings.TrimSpace(d.Reason) == "" {
		return &GuardError{From: from, To: d.To, Reason: ErrReasonRequired}
	}
	return nil
}

// Apply returns app moved into d.To. app is never modified; on error the returned
// application equals the input. The reason field matching the new status is set and
// the other is cleared, so at most one reason is ever present.
func Apply(app model.VolunteerApplication, d Decision) (model.VolunteerApplication, error) {
	if err := Check(app.Status, d); err != nil {
		return app, err
	}

	next := app
	next.Status = d.To
	next.RejectionReason = ""
	next.BanReason = ""

	switch d.To {
	case model.StatusRejected:
		next.RejectionReason = strings.TrimSpace(d.Reason)
	case model.StatusBanned:
		next.BanReason = strings.TrimSpace(d.Reason)
	}

	return next, nil
}

// Consistent reports whether the reason fields of app agree with its status
func Consistent(app model.VolunteerApplication) bool {
	switch app.Status {
	case model.StatusRejected:
		return app.BanReason == ""
	case model.StatusBanned:
		return app.RejectionReason == ""
	default:
		return app.RejectionReason == "" && app.BanReason == ""
	}
}

func checkEdge(actor Actor, from, to model.Status) error {
	actors, ok := transitions[edge{from, to}]
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, from, to)
	}
	if !slices.Contains(actors, actor) {
		return fmt.Errorf("%w: %s cannot move %s -> %s", ErrNotPermitted, actor, from, to)
	}
	return nil
}
