package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/tejusbharadwaj/energyflow/internal/models"
)

const (
	summarySheet = "summary"
	bucketsSheet = "buckets"
)

// BuildFlowXLSX renders the period summary and its per-bucket breakdown.
func BuildFlowXLSX(summary models.FlowRecord, buckets []models.FlowRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(bucketsSheet); err != nil {
		return nil, err
	}

	all := append([]models.FlowRecord{summary}, buckets...)
	cols := configured(all...)
	gas := hasGas(all...)

	_ = f.SetCellValue(summarySheet, "A1", "Energy Flow Report")
	_ = f.SetCellValue(summarySheet, "A3", "Start")
	_ = f.SetCellValue(summarySheet, "B3", formatTime(summary.Period.Start))
	_ = f.SetCellValue(summarySheet, "A4", "End")
	_ = f.SetCellValue(summarySheet, "B4", formatTime(summary.Period.End))
	_ = f.SetCellValue(summarySheet, "A5", "Granularity")
	_ = f.SetCellValue(summarySheet, "B5", string(summary.Period.Granularity))
	if summary.NoData {
		_ = f.SetCellValue(summarySheet, "A7", "No data")
	} else {
		row := 7
		for _, c := range cols {
			_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), c.label)
			if v := c.value(summary); v != nil {
				_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), *v)
			}
			row++
		}
		if gas {
			_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), gasLabel(summary.GasUnit))
			if summary.GasConsumption != nil {
				_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), *summary.GasConsumption)
			}
		}
	}

	_ = f.SetCellValue(bucketsSheet, "A1", "Start")
	for i, c := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+2, 1)
		_ = f.SetCellValue(bucketsSheet, cell, c.label)
	}
	if gas {
		cell, _ := excelize.CoordinatesToCellName(len(cols)+2, 1)
		_ = f.SetCellValue(bucketsSheet, cell, gasLabel(summary.GasUnit))
	}
	for r, b := range buckets {
		row := r + 2
		_ = f.SetCellValue(bucketsSheet, fmt.Sprintf("A%d", row), formatTime(b.Period.Start))
		for i, c := range cols {
			if v := c.value(b); v != nil {
				cell, _ := excelize.CoordinatesToCellName(i+2, row)
				_ = f.SetCellValue(bucketsSheet, cell, *v)
			}
		}
		if gas && b.GasConsumption != nil {
			cell, _ := excelize.CoordinatesToCellName(len(cols)+2, row)
			_ = f.SetCellValue(bucketsSheet, cell, *b.GasConsumption)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
