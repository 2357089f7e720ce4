package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/humanitycalls/volunteer-desk/internal/config"
	"github.com/humanitycalls/volunteer-desk/pkg/clients/apiclient"
	"github.com/humanitycalls/volunteer-desk/pkg/core/crop"
	"github.com/humanitycalls/volunteer-desk/pkg/core/lifecycle"
	"github.com/humanitycalls/volunteer-desk/pkg/core/upload"
	"github.com/humanitycalls/volunteer-desk/pkg/core/validation"
	"github.com/humanitycalls/volunteer-desk/pkg/db"
	"github.com/humanitycalls/volunteer-desk/pkg/errorx"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Env       string
	Cfg       *config.Config
	Creds     *config.Credentials
	Admin     *apiclient.Client
	Applicant *apiclient.Client
	Ledger    db.AttachmentLedger
	Cropper   *crop.Engine
	Validator *validation.Validator
	Logger    *zap.Logger
	Ctx       context.Context

	// Interactive is set for the lifetime of an interactive session
	Interactive bool

	// In is shared by prompts and the interactive session so neither buffers past the other
	In  *bufio.Reader
	Out io.Writer
}

// ErrNoAdminToken is returned by admin commands when no admin credential is configured
var ErrNoAdminToken = errors.New(config.EnvAdminToken + " is not set")

// ErrNoApplicantToken is returned by applicant commands when no session credential is configured
var ErrNoApplicantToken = errors.New(config.EnvApplicantToken + " is not set")

// AdminLifecycle returns a lifecycle manager authenticated as an admin
func (a *AppContext) AdminLifecycle() (*lifecycle.Manager, error) {
	if a.Admin == nil {
		return nil, ErrNoAdminToken
	}
	return lifecycle.NewManager(a.Admin, a.Logger), nil
}

// ApplicantLifecycle returns a lifecycle manager authenticated as the applicant
func (a *AppContext) ApplicantLifecycle() (*lifecycle.Manager, error) {
	if a.Applicant == nil {
		return nil, ErrNoApplicantToken
	}
	return lifecycle.NewManager(a.Applicant, a.Logger), nil
}

// Coordinator builds an upload coordinator for store with the configured ledger and concurrency.
// Ledger entries are tagged with the applicant credential's fingerprint.
func (a *AppContext) Coordinator(store upload.StoreFunc) *upload.Coordinator {
	opts := []upload.Option{
		upload.WithLedger(a.Ledger),
		upload.WithOwner(a.Creds.ApplicantFingerprint()),
		upload.WithRetryHint(a.LedgerOutlivesCommand()),
		upload.WithLogger(a.Logger),
	}
	if a.Cfg != nil {
		opts = append(opts, upload.WithConcurrency(a.Cfg.UploadConcurrency))
	}
	return upload.NewCoordinator(store, opts...)
}

// LedgerOutlivesCommand reports whether a pending attachment recorded now can
// still be retried by a later command: the ledger is in postgres or the
// session is interactive
func (a *AppContext) LedgerOutlivesCommand() bool {
	if a.Interactive {
		return true
	}
	return a.Cfg != nil && a.Cfg.DatabaseURL != ""
}

// Prompt prints question and returns the trimmed line the user typed
func (a *AppContext) Prompt(question string) (string, error) {
	fmt.Fprint(a.Out, question)
	line, err := a.In.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", errorx.ErrCancelled
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Report prints the one-line notice for err and logs the detail
func (a *AppContext) Report(err error) {
	if err == nil {
		return
	}
	if errorx.IsCancelled(err) {
		a.Logger.Debug("Command cancelled", zap.Error(err))
		fmt.Fprintf(a.Out, "%s\n\n", errorx.Notify(err))
		return
	}
	a.Logger.Debug("Command failed", zap.Error(err))
	fmt.Fprintf(a.Out, "❌ %s\n\n", notice(err))
}

// notice is errorx.Notify, except that local failures (bad flags, unreadable
// files) are shown verbatim instead of the generic message
func notice(err error) string {
	msg := errorx.Notify(err)
	var remote *errorx.RemoteError
	if msg == errorx.GenericMessage && !errors.As(err, &remote) {
		return err.Error()
	}
	return msg
}
