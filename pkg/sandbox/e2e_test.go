package sandbox_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/humanitycalls/volunteer-desk/pkg/clients/apiclient"
	"github.com/humanitycalls/volunteer-desk/pkg/core/crop"
	"github.com/humanitycalls/volunteer-desk/pkg/core/lifecycle"
	"github.com/humanitycalls/volunteer-desk/pkg/core/model"
	"github.com/humanitycalls/volunteer-desk/pkg/core/services"
	"github.com/humanitycalls/volunteer-desk/pkg/core/upload"
	"github.com/humanitycalls/volunteer-desk/pkg/core/validation"
	"github.com/humanitycalls/volunteer-desk/pkg/db"
)

type countingTransport struct {
	calls atomic.Int32
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.calls.Add(1)
	return http.DefaultTransport.RoundTrip(req)
}

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func TestApplicantToApprovedVolunteer(t *testing.T) {
	_, ts := newSandbox(t)
	ctx := context.Background()
	logger := zap.NewNop()
	dir := t.TempDir()

	transport := &countingTransport{}
	applicant := apiclient.NewClient(ts.URL, apiclient.SessionToken("asha-session"),
		apiclient.WithHTTPClient(&http.Client{Transport: transport}))
	admin := adminClient(ts)

	validator := validation.New(clock)
	engine := crop.NewEngine(crop.DefaultQuality, 0)
	coordinator := upload.NewCoordinator(services.VolunteerImageStore(applicant),
		upload.WithLedger(db.NewMemoryStore()),
		upload.WithLogger(logger))
	applicantLifecycle := lifecycle.NewManager(applicant, logger)
	adminLifecycle := lifecycle.NewManager(admin, logger)

	form := &model.ApplicationForm{
		Profile:            profile("asha@example.org"),
		GovIDImagePath:     writePNG(t, dir, "id.png", 300, 200),
		ProfilePicturePath: writePNG(t, dir, "me.png", 400, 300),
	}

	// A 17-year-old fails locally and nothing reaches the network
	underage := *form
	underage.DateOfBirth = fixedNow.AddDate(-17, 0, 0).Format("2006-01-02")
	_, err := services.SubmitApplication(ctx, &underage, validator, engine, coordinator, applicantLifecycle, logger)
	require.Error(t, err)
	var verr *validation.Error
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("DateOfBirth"))
	assert.Equal(t, int32(0), transport.calls.Load())

	// A valid submission lands in pending
	result, err := services.SubmitApplication(ctx, form, validator, engine, coordinator, applicantLifecycle, logger)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, result.Status.Status)
	require.NotNil(t, result.Status.Volunteer)
	assert.Empty(t, result.Status.Volunteer.VolunteerID)
	assert.Equal(t, result.ProfilePicture.URL, result.Status.Volunteer.ProfilePicture)

	// The profile picture was cropped square before upload
	resp, err := http.Get(result.ProfilePicture.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	cfg, err := jpeg.DecodeConfig(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.Width)
	assert.Equal(t, 300, cfg.Height)

	// The applicant cannot apply again while pending
	_, err = services.SubmitApplication(ctx, form, validator, engine, coordinator, applicantLifecycle, logger)
	var blocked *lifecycle.ApplyBlockedError
	require.True(t, errors.As(err, &blocked))
	assert.Equal(t, model.StatusPending, blocked.Status)

	// The admin approves and a volunteer id is minted
	pending, err := adminLifecycle.Roster(ctx, "pending")
	require.NoError(t, err)
	require.Len(t, pending, 1)

	decision, err := adminLifecycle.Decide(ctx, pending[0], model.StatusActive, "")
	require.NoError(t, err)
	assert.True(t, decision.Approved)
	assert.Equal(t, "HC-2026-0001", decision.Application.VolunteerID)
	assert.Equal(t, "2026-10-18", decision.Application.JoiningDate)

	// The applicant sees the same id on their next fetch
	status, err := applicantLifecycle.MyStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, status.Status)
	assert.Equal(t, "HC-2026-0001", status.Volunteer.VolunteerID)
}

func TestRejectedApplicantReapplies(t *testing.T) {
	_, ts := newSandbox(t)
	ctx := context.Background()
	logger := zap.NewNop()

	applicant := apiclient.NewClient(ts.URL, apiclient.SessionToken("ravi"))
	applicantLifecycle := lifecycle.NewManager(applicant, logger)
	adminLifecycle := lifecycle.NewManager(adminClient(ts), logger)

	_, err := applicantLifecycle.Submit(ctx, submission("ravi@example.org"))
	require.NoError(t, err)

	pending, err := adminLifecycle.Roster(ctx, "pending")
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = adminLifecycle.Decide(ctx, pending[0], model.StatusRejected, "")
	var guard *lifecycle.GuardError
	require.True(t, errors.As(err, &guard))

	rejected, err := adminLifecycle.Decide(ctx, pending[0], model.StatusRejected, "Incomplete ID")
	require.NoError(t, err)
	assert.Equal(t, "Incomplete ID", rejected.Application.RejectionReason)

	mine, err := applicantLifecycle.MyStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, mine.Status)
	assert.Equal(t, "Incomplete ID", mine.Volunteer.Reason())

	again, err := applicantLifecycle.Submit(ctx, submission("ravi@example.org"))
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, again.Status)
	assert.Empty(t, again.Volunteer.RejectionReason)
	assert.Equal(t, pending[0].ID, again.Volunteer.ID)
}
