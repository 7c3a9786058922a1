package export

import (
	"fmt"
	"strconv"

	"github.com/go-pdf/fpdf"

	"github.com/sadopc/worklog/internal/record"
)

var pdfWidths = []float64{15, 45, 45, 35, 40}

// ToPDF writes a one-table A4 report with a totals line.
func ToPDF(r Report, path string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Work Time Report", true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(234, 88, 12)
	pdf.CellFormat(0, 10, "Work Time Report", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 6, "Generated "+r.GeneratedAt.Format("02:01:2006 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(234, 88, 12)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range header {
		pdf.CellFormat(pdfWidths[i], 8, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	for _, rec := range r.Records {
		cells := []string{
			strconv.Itoa(rec.Index),
			rec.DateLabel(),
			rec.DayOfWeek,
			strconv.FormatInt(rec.Duration, 10),
			record.Clock(rec.Duration),
		}
		for i, c := range cells {
			pdf.CellFormat(pdfWidths[i], 7, c, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Total days worked: %d", r.Totals.Days), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Total time: %s (%s)", record.Clock(r.Totals.Seconds), record.Humanize(r.Totals.Seconds)), "", 1, "L", false, 0, "")

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf file: %w", err)
	}
	return nil
}
