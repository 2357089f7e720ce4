package upload

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/humanitycalls/volunteer-desk/pkg/core/model"
)

// ItemResult is the settled outcome of one batch item
type ItemResult struct {
	Index int
	Name  string
	Ref   model.AssetReference
	Err   error
}

// BatchResult holds one result per input item, in input order
type BatchResult struct {
	Results []ItemResult
}

// Succeeded returns the items that were stored
func (b *BatchResult) Succeeded() []ItemResult {
	var out []ItemResult
	for _, r := range b.Results {
		if r.Err == nil {
			out = append(out, r)
		}
	}
	return out
}

// Failed returns the items that were not stored
func (b *BatchResult) Failed() []ItemResult {
	var out []ItemResult
	for _, r := range b.Results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// Err is non-nil when any item failed. Stored items stay stored.
func (b *BatchResult) Err() error {
	failed := b.Failed()
	if len(failed) == 0 {
		return nil
	}
	names := make([]string, 0, len(failed))
	errs := make([]error, 0, len(failed))
	for _, f := range failed {
		names = append(names, f.Name)
		errs = append(errs, f.Err)
	}
	return &BatchError{Names: names, Total: len(b.Results), Err: errors.Join(errs...)}
}

// BatchError summarises a batch with failed items
type BatchError struct {
	Names []string
	Total int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%d of %d uploads failed (%s): %v", len(e.Names), e.Total, strings.Join(e.Names, ", "), e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

func (e *BatchError) UserMessage() string {
	return fmt.Sprintf("%d of %d images failed to upload: %s", len(e.Names), e.Total, strings.Join(e.Names, ", "))
}

// UploadBatch runs the store step for every item concurrently and waits for all of
// them to settle. One failure never stops the others.
func (c *Coordinator) UploadBatch(ctx context.Context, items []Item) *BatchResult {
	result := &BatchResult{Results: make([]ItemResult, len(items))}

	var g errgroup.Group
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}

	c.logger.Debug("Starting batch upload",
		zap.Int("items", len(items)),
		zap.Int("concurrency", c.concurrency))

	for i, item := range items {
		g.Go(func() error {
			ref, err := c.Upload(ctx, item)
			// Each goroutine owns its own slot
			result.Results[i] = ItemResult{Index: i, Name: item.Name, Ref: ref, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	c.logger.Debug("Batch upload settled",
		zap.Int("succeeded", len(result.Succeeded())),
		zap.Int("failed", len(result.Failed())))

	return result
}
