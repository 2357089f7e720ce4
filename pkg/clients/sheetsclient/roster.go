package sheetsclient

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/sheets/v4"
)

// PublishResult describes a published roster tab
type PublishResult struct {
	Tab     string
	Rows    int
	Created bool
}

// RosterTabTitle names a roster tab, e.g. "Volunteers (active) 2026-10-18"
func RosterTabTitle(bucket string, at time.Time) string {
	if bucket == "" {
		bucket = "all"
	}
	return fmt.Sprintf("Volunteers (%s) %s", bucket, at.Format("2006-01-02"))
}

// PublishRoster writes table (header first) to the named tab. A missing tab is
// created; an existing one is cleared first so no stale rows survive.
func (c *Client) PublishRoster(ctx context.Context, spreadsheetID, tab string, table [][]string) (*PublishResult, error) {
	if len(table) == 0 {
		return nil, fmt.Errorf("roster table has no header")
	}

	spreadsheet, err := c.service.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get spreadsheet metadata: %w", err)
	}

	exists := false
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == tab {
			exists = true
			break
		}
	}

	if exists {
		c.logger.Debug("Clearing existing roster tab", zap.String("tab", tab))
		_, err := c.service.Spreadsheets.Values.Clear(spreadsheetID, fmt.Sprintf("'%s'", tab), &sheets.ClearValuesRequest{}).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("failed to clear tab %s: %w", tab, err)
		}
	} else {
		c.logger.Debug("Creating roster tab", zap.String("tab", tab))
		if _, err := c.CreateSheet(ctx, spreadsheetID, tab); err != nil {
			return nil, fmt.Errorf("failed to create tab: %w", err)
		}
	}

	values := make([][]interface{}, 0, len(table))
	for _, record := range table {
		row := make([]interface{}, len(record))
		for i, v := range record {
			row[i] = v
		}
		values = append(values, row)
	}

	_, err = c.service.Spreadsheets.Values.Update(
		spreadsheetID,
		fmt.Sprintf("'%s'!A1", tab),
		&sheets.ValueRange{Values: values},
	).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to write roster: %w", err)
	}

	c.logger.Info("Published roster",
		zap.String("tab", tab),
		zap.Int("rows", len(table)-1),
		zap.Bool("created", !exists))

	return &PublishResult{Tab: tab, Rows: len(table) - 1, Created: !exists}, nil
}
