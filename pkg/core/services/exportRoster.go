package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/humanitycalls/volunteer-desk/pkg/clients/sheetsclient"
	"github.com/humanitycalls/volunteer-desk/pkg/core/model"
	"github.com/humanitycalls/volunteer-desk/pkg/core/projection"
)

// RosterSource fetches applications for a status bucket
type RosterSource interface {
	Roster(ctx context.Context, bucket string) ([]model.VolunteerApplication, error)
}

// RosterPublisher writes a roster table to a spreadsheet tab
type RosterPublisher interface {
	PublishRoster(ctx context.Context, spreadsheetID, tab string, table [][]string) (*sheetsclient.PublishResult, error)
}

// ExportRequest selects what to export and where
type ExportRequest struct {
	Bucket   string
	Search   string
	Sort     projection.Sort
	Formats  []projection.Format
	Dir      string
	PDFTitle string
	// SheetID, when set together with a publisher, also publishes to Google Sheets
	SheetID string
}

// ExportResult represents the result of an export
type ExportResult struct {
	Rows  int
	Files []string
	Sheet *sheetsclient.PublishResult
}

// ExportRoster fetches the roster once, projects it once and writes every requested
// format from that same row set. A cancelled export leaves no partial files behind.
func ExportRoster(
	ctx context.Context,
	source RosterSource,
	publisher RosterPublisher,
	logger *zap.Logger,
	req ExportRequest,
) (*ExportResult, error) {
	bucket := req.Bucket
	if bucket == "" {
		bucket = "all"
	}

	logger.Debug("Step 1: Fetching roster", zap.String("bucket", bucket))
	apps, err := source.Roster(ctx, bucket)
	if err != nil {
		return nil, err
	}

	logger.Debug("Step 2: Projecting roster", zap.Int("applications", len(apps)), zap.String("search", req.Search))
	rows := projection.Collect(projection.Project(apps, projection.Filter{Bucket: bucket, Search: req.Search}, req.Sort))

	now := time.Now()
	result := &ExportResult{Rows: len(rows)}

	if len(req.Formats) > 0 {
		if err := os.MkdirAll(req.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	for _, format := range req.Formats {
		path := filepath.Join(req.Dir, fmt.Sprintf("volunteers-%s-%s.%s", bucket, now.Format("20060102-150405"), format))
		logger.Debug("Step 3: Writing export", zap.String("format", string(format)), zap.String("path", path))

		opts := projection.PDFOptions{Title: req.PDFTitle, Generated: now}
		if err := writeFileAtomically(path, func(f *os.File) error {
			return projection.Write(ctx, f, format, rows, opts)
		}); err != nil {
			return result, err
		}
		result.Files = append(result.Files, path)
	}

	if req.SheetID != "" && publisher != nil {
		logger.Debug("Step 4: Publishing to Google Sheets", zap.String("sheet_id", req.SheetID))
		published, err := publisher.PublishRoster(ctx, req.SheetID, sheetsclient.RosterTabTitle(bucket, now), projection.Table(rows))
		if err != nil {
			return result, fmt.Errorf("failed to publish roster: %w", err)
		}
		result.Sheet = published
	}

	logger.Info("Roster exported",
		zap.Int("rows", result.Rows),
		zap.Strings("files", result.Files))
	return result, nil
}

// writeFileAtomically writes into a temp file beside path and renames it into place
func writeFileAtomically(path string, write func(f *os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close export: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move export into place: %w", err)
	}
	return nil
}
