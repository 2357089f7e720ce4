package upload

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/humanitycalls/volunteer-desk/pkg/core/crop"
	"github.com/humanitycalls/volunteer-desk/pkg/core/model"
	"github.com/humanitycalls/volunteer-desk/pkg/db"
	"github.com/humanitycalls/volunteer-desk/pkg/errorx"
)

func blob() *crop.Blob {
	return &crop.Blob{Data: []byte{0xff, 0xd8, 0xff, 0xe0}, Width: 1, Height: 1, ContentType: crop.ContentType}
}

func okStore(ctx context.Context, item Item) (model.AssetReference, error) {
	return model.AssetReference{URL: "https://cdn.example.org/" + item.Name + ".jpg"}, nil
}

func TestUploadBatch_AggregatesAllOutcomes(t *testing.T) {
	var calls atomic.Int32
	store := func(ctx context.Context, item Item) (model.AssetReference, error) {
		calls.Add(1)
		time.Sleep(time.Duration(rand.Intn(20)) * time.Millisecond)
		if item.Name == "photo-2" || item.Name == "photo-4" {
			return model.AssetReference{}, fmt.Errorf("storage rejected %s", item.Name)
		}
		return okStore(ctx, item)
	}

	for run := 0; run < 10; run++ {
		calls.Store(0)
		items := make([]Item, 5)
		for i := range items {
			items[i] = Item{Name: fmt.Sprintf("photo-%d", i+1), Blob: blob()}
		}

		result := NewCoordinator(store).UploadBatch(context.Background(), items)

		assert.Equal(t, int32(5), calls.Load())
		require.Len(t, result.Results, 5)
		for i, r := range result.Results {
			assert.Equal(t, i, r.Index)
			assert.Equal(t, items[i].Name, r.Name)
		}

		succeeded := result.Succeeded()
		require.Len(t, succeeded, 3)
		assert.Equal(t, "https://cdn.example.org/photo-1.jpg", succeeded[0].Ref.URL)
		assert.Equal(t, "https://cdn.example.org/photo-3.jpg", succeeded[1].Ref.URL)
		assert.Equal(t, "https://cdn.example.org/photo-5.jpg", succeeded[2].Ref.URL)

		failed := result.Failed()
		require.Len(t, failed, 2)
		assert.Equal(t, "photo-2", failed[0].Name)
		assert.Equal(t, "photo-4", failed[1].Name)

		var stepErr *StepError
		require.True(t, errors.As(failed[0].Err, &stepErr))
		assert.Equal(t, StepStore, stepErr.Step)

		var batchErr *BatchError
		require.True(t, errors.As(result.Err(), &batchErr))
		assert.Equal(t, []string{"photo-2", "photo-4"}, batchErr.Names)
		assert.Equal(t, "2 of 5 images failed to upload: photo-2, photo-4", errorx.Notify(result.Err()))
	}
}

func TestUploadBatch_RespectsConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	store := func(ctx context.Context, item Item) (model.AssetReference, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return okStore(ctx, item)
	}

	items := make([]Item, 8)
	for i := range items {
		items[i] = Item{Name: fmt.Sprintf("g%d", i), Blob: blob()}
	}

	result := NewCoordinator(store, WithConcurrency(2)).UploadBatch(context.Background(), items)
	assert.NoError(t, result.Err())
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestUpload_EmptyBlobFailsStoreStep(t *testing.T) {
	_, err := NewCoordinator(okStore).Upload(context.Background(), Item{Name: "x", Blob: &crop.Blob{}})

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, StepStore, stepErr.Step)
}

func TestUploadAndAttach_AttachFailureIsRecorded(t *testing.T) {
	ledger := db.NewMemoryStore()
	c := NewCoordinator(okStore, WithLedger(ledger), WithOwner("owner-a"), WithRetryHint(true))

	att := Attachment{
		Target:   db.TargetProfilePicture,
		TargetID: "app-1",
		Payload:  []byte(`{"profilePicture":"x"}`),
		Run: func(ctx context.Context, refs []model.AssetReference) error {
			return errors.New("record locked")
		},
	}

	ref, err := c.UploadAndAttach(context.Background(), Item{Name: "profile", Blob: blob()}, att)
	require.Error(t, err)
	assert.Equal(t, "https://cdn.example.org/profile.jpg", ref.URL, "stored reference is still returned")

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, StepAttach, stepErr.Step)
	assert.NotEmpty(t, stepErr.PendingID)
	assert.Contains(t, errorx.Notify(err), "without uploading again")

	pending, err := ledger.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, stepErr.PendingID, pending[0].ID)
	assert.Equal(t, []string{"https://cdn.example.org/profile.jpg"}, pending[0].AssetURLs)
	assert.Equal(t, "record locked", pending[0].LastError)
	assert.Equal(t, "app-1", pending[0].TargetID)
	assert.Equal(t, "owner-a", pending[0].Owner)
}

func TestAttach_RetryHintOnlyWhenRetryable(t *testing.T) {
	att := Attachment{
		Target: db.TargetProfilePicture,
		Run: func(ctx context.Context, refs []model.AssetReference) error {
			return errors.New("record locked")
		},
	}
	refs := []model.AssetReference{{URL: "https://cdn.example.org/profile.jpg"}}

	// An in-process ledger that dies with the command cannot be retried later
	err := NewCoordinator(okStore, WithLedger(db.NewMemoryStore())).Attach(context.Background(), refs, att)
	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.NotEmpty(t, stepErr.PendingID)
	assert.False(t, stepErr.Retryable)
	assert.NotContains(t, errorx.Notify(err), "Retry pending attachments")
	assert.Contains(t, errorx.Notify(err), "could not be saved to your record")

	// Nothing recorded, nothing to retry even with the hint enabled
	err = NewCoordinator(okStore, WithRetryHint(true)).Attach(context.Background(), refs, att)
	assert.NotContains(t, errorx.Notify(err), "Retry pending attachments")

	err = NewCoordinator(okStore, WithLedger(db.NewMemoryStore()), WithRetryHint(true)).Attach(context.Background(), refs, att)
	assert.Contains(t, errorx.Notify(err), "Retry pending attachments")
}

func TestRetryAttach_SkipsStoreStep(t *testing.T) {
	ledger := db.NewMemoryStore()
	var stores atomic.Int32
	store := func(ctx context.Context, item Item) (model.AssetReference, error) {
		stores.Add(1)
		return okStore(ctx, item)
	}
	c := NewCoordinator(store, WithLedger(ledger))

	failing := true
	att := Attachment{
		Target: db.TargetProfilePicture,
		Run: func(ctx context.Context, refs []model.AssetReference) error {
			if failing {
				return errors.New("timeout")
			}
			return nil
		},
	}
	_, err := c.UploadAndAttach(context.Background(), Item{Name: "profile", Blob: blob()}, att)
	require.Error(t, err)

	failing = false
	var attached []string
	result, err := c.RetryAttach(context.Background(), func(p db.PendingAttachment) (AttachFunc, error) {
		return func(ctx context.Context, refs []model.AssetReference) error {
			for _, r := range refs {
				attached = append(attached, r.URL)
			}
			return nil
		}, nil
	})
	require.NoError(t, err)
	assert.Len(t, result.Resolved, 1)
	assert.Empty(t, result.Failed)
	assert.Equal(t, []string{"https://cdn.example.org/profile.jpg"}, attached)
	assert.Equal(t, int32(1), stores.Load())

	pending, err := ledger.ListPending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRetryAttach_KeepsStillFailingEntries(t *testing.T) {
	ledger := db.NewMemoryStore()
	require.NoError(t, ledger.RecordPending(context.Background(), &db.PendingAttachment{ID: "p1", Target: db.TargetApplication}))
	c := NewCoordinator(okStore, WithLedger(ledger))

	result, err := c.RetryAttach(context.Background(), func(p db.PendingAttachment) (AttachFunc, error) {
		return nil, errors.New("payload missing")
	})
	require.NoError(t, err)
	require.Len(t, result.Failed, 1)

	pending, _ := ledger.ListPending(context.Background())
	assert.Len(t, pending, 1)
}

func TestRetryAttach_OnlyRetriesOwnEntries(t *testing.T) {
	ctx := context.Background()
	ledger := db.NewMemoryStore()
	require.NoError(t, ledger.RecordPending(ctx, &db.PendingAttachment{ID: "mine", Owner: "owner-a", Target: db.TargetProfilePicture}))
	require.NoError(t, ledger.RecordPending(ctx, &db.PendingAttachment{ID: "theirs", Owner: "owner-b", Target: db.TargetProfilePicture}))

	var rebuilt []string
	c := NewCoordinator(okStore, WithLedger(ledger), WithOwner("owner-a"))
	result, err := c.RetryAttach(ctx, func(p db.PendingAttachment) (AttachFunc, error) {
		rebuilt = append(rebuilt, p.ID)
		return func(ctx context.Context, refs []model.AssetReference) error { return nil }, nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"mine"}, rebuilt)
	require.Len(t, result.Resolved, 1)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "theirs", result.Skipped[0].ID)

	pending, err := ledger.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "theirs", pending[0].ID)
}

func TestRetryAttach_RebuilderCanSkip(t *testing.T) {
	ctx := context.Background()
	ledger := db.NewMemoryStore()
	require.NoError(t, ledger.RecordPending(ctx, &db.PendingAttachment{ID: "p1", TargetID: "other-app", Target: db.TargetProfilePicture}))

	c := NewCoordinator(okStore, WithLedger(ledger))
	result, err := c.RetryAttach(ctx, func(p db.PendingAttachment) (AttachFunc, error) {
		return nil, fmt.Errorf("%s is not yours: %w", p.TargetID, ErrSkip)
	})
	require.NoError(t, err)
	assert.Empty(t, result.Failed)
	assert.Len(t, result.Skipped, 1)

	pending, _ := ledger.ListPending(ctx)
	assert.Len(t, pending, 1)
}

func TestRetryAttach_NeedsLedger(t *testing.T) {
	_, err := NewCoordinator(okStore).RetryAttach(context.Background(), nil)
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	at := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)

	name := FileName("profile", "/home/asha/My Photo!.png", at)
	assert.True(t, strings.HasPrefix(name, "profile-20261018-"), name)
	assert.True(t, strings.HasSuffix(name, "-My_Photo_.jpg"), name)

	assert.True(t, strings.HasSuffix(FileName("gallery", "", at), "-image.jpg"))
}
