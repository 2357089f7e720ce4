package projection

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/humanitycalls/volunteer-desk/pkg/errorx"
)

// Format is an export serialisation
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ParseFormat accepts csv, xlsx or pdf
func ParseFormat(raw string) (Format, error) {
	switch f := Format(raw); f {
	case FormatCSV, FormatXLSX, FormatPDF:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q (use csv, xlsx or pdf)", raw)
}

// SheetName is the worksheet the spreadsheet export writes to
const SheetName = "Volunteers"

// Table returns the header followed by one record per row, in Columns order
func Table(rows []Row) [][]string {
	out := make([][]string, 0, len(rows)+1)
	out = append(out, append([]string(nil), Columns...))
	for _, r := range rows {
		out = append(out, r.Values())
	}
	return out
}

// Write serialises rows in the given format
func Write(ctx context.Context, w io.Writer, format Format, rows []Row, opts PDFOptions) error {
	switch format {
	case FormatCSV:
		return WriteCSV(ctx, w, rows)
	case FormatXLSX:
		return WriteXLSX(ctx, w, rows)
	case FormatPDF:
		return WritePDF(ctx, w, rows, opts)
	}
	return fmt.Errorf("unknown export format %q", format)
}

// WriteCSV writes a header and one line per row
func WriteCSV(ctx context.Context, w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	for i, record := range Table(rows) {
		if err := checkCancelled(ctx, i); err != nil {
			return err
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// WriteXLSX writes a single-sheet workbook with a frozen, bold header row
func WriteXLSX(ctx context.Context, w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	for i, record := range Table(rows) {
		if err := checkCancelled(ctx, i); err != nil {
			return err
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i, err)
		}
		values := make([]interface{}, len(record))
		for j, v := range record {
			values[j] = v
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(Columns))
	if err != nil {
		return fmt.Errorf("failed to resolve last column: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	if err := f.SetColWidth(SheetName, "A", lastCol, 18); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func checkCancelled(ctx context.Context, i int) error {
	if i%64 != 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return errorx.Cancelled(ctx, err)
	}
	return nil
}
