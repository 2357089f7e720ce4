package projection

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
)

// PDFOptions controls the paginated roster export
type PDFOptions struct {
	Title string
	// Generated is printed under the title; zero means now
	Generated time.Time
	// Uncompressed leaves page streams readable, which tests rely on
	Uncompressed bool
}

// relative column widths, scaled to the printable width
var pdfColumnWeights = []float64{20, 24, 30, 17, 11, 19, 10, 16, 14, 18, 17, 17, 16, 15, 17, 12, 24}

// the volunteer id column is never truncated so it always matches the CSV and XLSX
const pdfIDColumn = 0

const (
	pdfMargin    = 8.0
	pdfRowHeight = 5.0
	pdfFontSize  = 6.0
)

// WritePDF renders rows as an A4 landscape table with the header repeated on every page
func WritePDF(ctx context.Context, w io.Writer, rows []Row, opts PDFOptions) error {
	if opts.Generated.IsZero() {
		opts.Generated = time.Now()
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetCompression(!opts.Uncompressed)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin+4)
	pdf.SetCreationDate(opts.Generated)
	pdf.SetTitle(opts.Title, true)
	pdf.AliasNbPages("")

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	widths := columnWidths(pdf)

	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() == 1 && opts.Title != "" {
			pdf.SetFont("Helvetica", "B", 12)
			pdf.CellFormat(0, 7, tr(opts.Title), "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 8)
			summary := fmt.Sprintf("%d volunteers, generated %s", len(rows), opts.Generated.Format("2006-01-02 15:04"))
			pdf.CellFormat(0, 5, summary, "", 1, "L", false, 0, "")
			pdf.Ln(2)
		}
		pdf.SetFont("Helvetica", "B", pdfFontSize)
		pdf.SetFillColor(230, 230, 230)
		for i, col := range Columns {
			pdf.CellFormat(widths[i], pdfRowHeight+1, fit(pdf, col, widths[i]), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", pdfFontSize)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-pdfMargin - 2)
		pdf.SetFont("Helvetica", "I", 7)
		pdf.CellFormat(0, 4, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	for i, r := range rows {
		if err := checkCancelled(ctx, i); err != nil {
			return err
		}
		for j, v := range r.Values() {
			if j == pdfIDColumn {
				idCell(pdf, tr(v), widths[j])
				continue
			}
			pdf.CellFormat(widths[j], pdfRowHeight, fit(pdf, tr(v), widths[j]), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return nil
}

func columnWidths(pdf *fpdf.Fpdf) []float64 {
	pageW, _ := pdf.GetPageSize()
	printable := pageW - 2*pdfMargin

	total := 0.0
	for _, w := range pdfColumnWeights {
		total += w
	}
	widths := make([]float64, len(pdfColumnWeights))
	for i, w := range pdfColumnWeights {
		widths[i] = printable * w / total
	}
	return widths
}

// fit truncates s with "..." so it fits in a cell of width w
func fit(pdf *fpdf.Fpdf, s string, w float64) string {
	limit := w - 2*pdf.GetCellMargin()
	if pdf.GetStringWidth(s) <= limit {
		return s
	}
	b := []byte(s)
	for len(b) > 0 && pdf.GetStringWidth(string(b)+"...") > limit {
		b = b[:len(b)-1]
	}
	return string(b) + "..."
}

// idCell prints s whole, shrinking the font until it fits in a cell of width w
func idCell(pdf *fpdf.Fpdf, s string, w float64) {
	limit := w - 2*pdf.GetCellMargin()
	if width := pdf.GetStringWidth(s); width > limit {
		pdf.SetFontSize(pdfFontSize * limit / width)
		defer pdf.SetFontSize(pdfFontSize)
	}
	pdf.CellFormat(w, pdfRowHeight, s, "1", 0, "L", false, 0, "")
}
