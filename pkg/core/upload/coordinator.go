// Package upload stores binary assets and links the returned URLs into domain records.
//
// Store and attach are two separate remote calls with no transaction between them.
// A failed attach leaves the stored asset orphaned; it is reported as such and
// recorded in the attachment ledger so it can be linked later without re-uploading.
package upload

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/humanitycalls/volunteer-desk/pkg/core/crop"
	"github.com/humanitycalls/volunteer-desk/pkg/core/model"
	"github.com/humanitycalls/volunteer-desk/pkg/db"
	"github.com/humanitycalls/volunteer-desk/pkg/errorx"
)

// Step identifies which half of an upload failed
type Step string

const (
	StepStore  Step = "store"
	StepAttach Step = "attach"
)

// StepError reports a failed store or attach step
type StepError struct {
	Step Step
	Item string
	// Assets are already stored when Step is StepAttach
	Assets []model.AssetReference
	// PendingID is the ledger entry recorded for a failed attach
	PendingID string
	// Retryable is set when the recorded entry can still be retried by the user
	Retryable bool
	Err       error
}

func (e *StepError) Error() string {
	if e.Item != "" {
		return fmt.Sprintf("%s step failed for %s: %v", e.Step, e.Item, e.Err)
	}
	return fmt.Sprintf("%s step failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func (e *StepError) UserMessage() string {
	if e.Step == StepAttach {
		msg := fmt.Sprintf("The image was uploaded but could not be saved to your record (%s).", errorx.Notify(e.Err))
		if e.Retryable {
			msg += " Retry pending attachments to finish without uploading again."
		}
		return msg
	}
	return fmt.Sprintf("Upload failed: %s", errorx.Notify(e.Err))
}

// Item is one asset to store
type Item struct {
	// Name identifies the item in results and errors
	Name string
	Blob *crop.Blob
	Meta Metadata
}

// Metadata travels with the blob to the store step
type Metadata struct {
	Filename  string
	ProjectID string
	EventDate string
	Order     int
}

// StoreFunc performs the store step
type StoreFunc func(ctx context.Context, item Item) (model.AssetReference, error)

// AttachFunc performs the attach step for already-stored assets
type AttachFunc func(ctx context.Context, refs []model.AssetReference) error

// Attachment describes where stored assets are linked
type Attachment struct {
	Target   db.AttachTarget
	TargetID string
	// Payload is kept in the ledger so the attach can be rebuilt on retry
	Payload []byte
	Run     AttachFunc
}

// Coordinator sequences store and attach steps
type Coordinator struct {
	store       StoreFunc
	ledger      db.AttachmentLedger
	owner       string
	retryHint   bool
	concurrency int
	logger      *zap.Logger
	now         func() time.Time
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithLedger records failed attach steps in ledger
func WithLedger(ledger db.AttachmentLedger) Option {
	return func(c *Coordinator) { c.ledger = ledger }
}

// WithOwner tags recorded entries with owner. RetryAttach only retries entries
// carrying the same owner.
func WithOwner(owner string) Option {
	return func(c *Coordinator) { c.owner = owner }
}

// WithRetryHint marks recorded entries as retryable by the user. Leave it off when
// the ledger will not outlive the current command.
func WithRetryHint(enabled bool) Option {
	return func(c *Coordinator) { c.retryHint = enabled }
}

// WithConcurrency bounds in-flight store calls in a batch; 0 means unbounded
func WithConcurrency(n int) Option {
	return func(c *Coordinator) { c.concurrency = n }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// NewCoordinator creates a coordinator that stores assets with store
func NewCoordinator(store StoreFunc, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:  store,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Upload runs the store step for a single item
func (c *Coordinator) Upload(ctx context.Context, item Item) (model.AssetReference, error) {
	if item.Blob == nil || len(item.Blob.Data) == 0 {
		return model.AssetReference{}, &StepError{Step: StepStore, Item: item.Name, Err: fmt.Errorf("nothing to upload")}
	}

	c.logger.Debug("Storing asset",
		zap.String("item", item.Name),
		zap.String("filename", item.Meta.Filename),
		zap.Int("bytes", len(item.Blob.Data)))

	ref, err := c.store(ctx, item)
	if err != nil {
		return model.AssetReference{}, &StepError{Step: StepStore, Item: item.Name, Err: errorx.Cancelled(ctx, err)}
	}
	return ref, nil
}

// Attach links stored assets into their record. On failure the assets are recorded
// in the ledger (when one is configured) and a StepAttach error is returned.
func (c *Coordinator) Attach(ctx context.Context, refs []model.AssetReference, att Attachment) error {
	c.logger.Debug("Attaching assets",
		zap.String("target", string(att.Target)),
		zap.String("target_id", att.TargetID),
		zap.Int("assets", len(refs)))

	err := att.Run(ctx, refs)
	if err == nil {
		return nil
	}
	err = errorx.Cancelled(ctx, err)

	stepErr := &StepError{Step: StepAttach, Item: string(att.Target), Assets: refs, Err: err}
	if c.ledger == nil {
		return stepErr
	}

	pending := &db.PendingAttachment{
		ID:        uuid.New().String(),
		Target:    att.Target,
		TargetID:  att.TargetID,
		Owner:     c.owner,
		AssetURLs: urls(refs),
		Payload:   att.Payload,
		LastError: err.Error(),
		CreatedAt: c.now().UTC(),
	}
	// Recording must survive a cancelled request context
	if recErr := c.ledger.RecordPending(context.WithoutCancel(ctx), pending); recErr != nil {
		c.logger.Error("Failed to record pending attachment",
			zap.Strings("asset_urls", pending.AssetURLs),
			zap.Error(recErr))
		return stepErr
	}

	stepErr.PendingID = pending.ID
	stepErr.Retryable = c.retryHint
	c.logger.Warn("Stored asset left unattached",
		zap.String("pending_id", pending.ID),
		zap.Strings("asset_urls", pending.AssetURLs),
		zap.Error(err))
	return stepErr
}

// UploadAndAttach stores a single item and links it
func (c *Coordinator) UploadAndAttach(ctx context.Context, item Item, att Attachment) (model.AssetReference, error) {
	ref, err := c.Upload(ctx, item)
	if err != nil {
		return model.AssetReference{}, err
	}
	if err := c.Attach(ctx, []model.AssetReference{ref}, att); err != nil {
		return ref, err
	}
	return ref, nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_]+`)

// FileName builds a unique upload name such as "profile-20261018-<uuid>.jpg"
func FileName(prefix, original string, at time.Time) string {
	base := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	base = unsafeChars.ReplaceAllString(base, "_")
	if base == "" || base == "." || base == "_" {
		base = "image"
	}
	return fmt.Sprintf("%s-%s-%s-%s.jpg", prefix, at.Format("20060102"), uuid.New().String(), base)
}

func urls(refs []model.AssetReference) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.URL)
	}
	return out
}
