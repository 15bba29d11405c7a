// Package report exports student records for use outside the kiosk.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/example/kiosk/internal/records"
)

// SheetName is the worksheet that holds the exported records.
const SheetName = "Students"

const columnWidth = 18

var header = []string{"Roll Number", "Name", "Grade"}

// WriteXLSX writes recs as a workbook with one header row followed by one
// row per record, in the given order.
func WriteXLSX(w io.Writer, recs []records.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range recs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+2, err)
		}
		row := []any{r.ID, r.Name, r.Category}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write record %d: %w", r.ID, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return fmt.Errorf("failed to address columns: %w", err)
	}
	if err := f.SetColWidth(SheetName, "A", lastCol, columnWidth); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
