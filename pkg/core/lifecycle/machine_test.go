package lifecycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/humanitycalls/volunteer-desk/pkg/core/model"
)

func app(status model.Status) model.VolunteerApplication {
	return model.VolunteerApplication{
		ID:      "app-1",
		Profile: model.Profile{FullName: "Asha Rao"},
		Status:  status,
	}
}

func TestCanApply(t *testing.T) {
	expected := map[model.Status]bool{
		model.StatusNone:      true,
		model.StatusRejected:  true,
		model.StatusPending:   false,
		model.StatusActive:    false,
		model.StatusTemporary: false,
		model.StatusBanned:    false,
	}
	for status, want := range expected {
		assert.Equal(t, want, CanApply(status), string(status))
	}
}

func TestApply_NegativeOutcomeWithoutReason(t *testing.T) {
	for _, target := range []model.Status{model.StatusRejected, model.StatusBanned} {
		for _, reason := range []string{"", "   "} {
			before := app(model.StatusPending)

			after, err := Apply(before, Decision{Actor: ActorAdmin, To: target, Reason: reason})
			require.Error(t, err)

			var guard *GuardError
			require.True(t, errors.As(err, &guard))
			assert.ErrorIs(t, err, ErrReasonRequired)
			assert.Equal(t, before, after, "state must be unchanged")
			assert.Contains(t, guard.UserMessage(), "reason")
		}
	}
}

func TestApply_ReasonGoesIntoMatchingFieldOnly(t *testing.T) {
	rejected, err := Apply(app(model.StatusPending), Decision{Actor: ActorAdmin, To: model.StatusRejected, Reason: "Incomplete ID"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, rejected.Status)
	assert.Equal(t, "Incomplete ID", rejected.RejectionReason)
	assert.Empty(t, rejected.BanReason)

	banned, err := Apply(app(model.StatusActive), Decision{Actor: ActorAdmin, To: model.StatusBanned, Reason: "Misconduct"})
	require.NoError(t, err)
	assert.Equal(t, "Misconduct", banned.BanReason)
	assert.Empty(t, banned.RejectionReason)
}

func TestApply_LeavingNegativeStateClearsReasons(t *testing.T) {
	start := app(model.StatusBanned)
	start.BanReason = "Misconduct"

	next, err := Apply(start, Decision{Actor: ActorAdmin, To: model.StatusActive})
	require.NoError(t, err)
	assert.Empty(t, next.BanReason)
	assert.Empty(t, next.RejectionReason)
	assert.Equal(t, "Misconduct", start.BanReason, "input must not be modified")

	rejected := app(model.StatusRejected)
	rejected.RejectionReason = "Blurry photo"
	reapplied, err := Apply(rejected, Decision{Actor: ActorAdmin, To: model.StatusPending})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, reapplied.Status)
	assert.Empty(t, reapplied.RejectionReason)
}

func TestApply_ReasonsStayMutuallyExclusive(t *testing.T) {
	reasons := map[model.Status]string{
		model.StatusRejected: "r",
		model.StatusBanned:   "b",
	}
	froms := append([]model.Status{model.StatusNone}, model.AllStatuses...)

	// Walk every edge from every starting state, including ones carrying stale reasons
	for _, from := range froms {
		for _, to := range model.AllStatuses {
			for _, actor := range []Actor{ActorApplicant, ActorAdmin} {
				start := app(from)
				if from == model.StatusRejected {
					start.RejectionReason = "old"
				}
				if from == model.StatusBanned {
					start.BanReason = "old"
				}
				require.True(t, Consistent(start))

				next, err := Apply(start, Decision{Actor: actor, To: to, Reason: reasons[to]})
				if err != nil {
					assert.Equal(t, start, next)
					continue
				}
				assert.True(t, Consistent(next), "%s -> %s by %s", from, to, actor)
				assert.Equal(t, reasons[to], next.Reason())
			}
		}
	}
}

func TestApply_ApplicantCanOnlySubmit(t *testing.T) {
	assert.True(t, Allowed(ActorApplicant, model.StatusNone, model.StatusPending))
	assert.True(t, Allowed(ActorApplicant, model.StatusRejected, model.StatusPending))

	_, err := Apply(app(model.StatusPending), Decision{Actor: ActorApplicant, To: model.StatusActive})
	assert.ErrorIs(t, err, ErrNotPermitted)

	_, err = Apply(app(model.StatusNone), Decision{Actor: ActorAdmin, To: model.StatusPending})
	assert.ErrorIs(t, err, ErrNotPermitted)
}

func TestApply_UnknownEdge(t *testing.T) {
	for _, tc := range []struct{ from, to model.Status }{
		{model.StatusPending, model.StatusTemporary},
		{model.StatusActive, model.StatusPending},
		{model.StatusBanned, model.StatusPending},
		{model.StatusActive, model.StatusActive},
		{model.StatusNone, model.StatusActive},
	} {
		_, err := Apply(app(tc.from), Decision{Actor: ActorAdmin, To: tc.to, Reason: "x"})
		assert.ErrorIs(t, err, ErrTransitionNotAllowed, "%s -> %s", tc.from, tc.to)
	}
}

func TestTargets(t *testing.T) {
	assert.Equal(t,
		[]model.Status{model.StatusActive, model.StatusRejected, model.StatusBanned},
		Targets(ActorAdmin, model.StatusPending))
	assert.Equal(t,
		[]model.Status{model.StatusPending, model.StatusActive},
		Targets(ActorAdmin, model.StatusRejected))
	assert.Equal(t,
		[]model.Status{model.StatusActive},
		Targets(ActorAdmin, model.StatusBanned))
	assert.Empty(t, Targets(ActorApplicant, model.StatusActive))
}
