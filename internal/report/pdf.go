package report

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/tejusbharadwaj/energyflow/internal/models"
)

// BuildFlowPDF renders the period summary as a one-page PDF.
func BuildFlowPDF(summary models.FlowRecord) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.Cell(0, 8, "Energy Flow Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Start: %s", formatTime(summary.Period.Start)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("End: %s", formatTime(summary.Period.End)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Granularity: %s", summary.Period.Granularity))
	pdf.Ln(8)

	if summary.NoData {
		pdf.Cell(0, 6, "No data")
	} else {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(80, 6, "Flow", "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, "Value", "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 10)
		for _, c := range configured(summary) {
			pdf.CellFormat(80, 6, tr(c.label), "1", 0, "L", false, 0, "")
			pdf.CellFormat(40, 6, fmt.Sprintf("%.3f", *c.value(summary)), "1", 0, "R", false, 0, "")
			pdf.Ln(-1)
		}
		if summary.GasConsumption != nil {
			pdf.CellFormat(80, 6, tr(gasLabel(summary.GasUnit)), "1", 0, "L", false, 0, "")
			pdf.CellFormat(40, 6, fmt.Sprintf("%.3f", *summary.GasConsumption), "1", 0, "R", false, 0, "")
			pdf.Ln(-1)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
