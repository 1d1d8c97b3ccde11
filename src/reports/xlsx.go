package reports

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const errorLogSheet = "Errors"

// WriteErrorLogXLSX writes the error log as a single-sheet workbook with a bold,
// frozen header row.
func WriteErrorLogXLSX(w io.Writer, rows []ErrorLogRow) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), errorLogSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(ErrorLogHeader))
	for i, h := range ErrorLogHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(errorLogSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(ErrorLogHeader))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(errorLogSheet, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	if err := f.SetPanes(errorLogSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}
	if err := f.SetColWidth(errorLogSheet, "B", "B", 30); err != nil {
		return err
	}
	if err := f.SetColWidth(errorLogSheet, "D", "D", 28); err != nil {
		return err
	}
	if err := f.SetColWidth(errorLogSheet, "F", "G", 24); err != nil {
		return err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		cells := row.cells()
		if err := f.SetSheetRow(errorLogSheet, cell, &cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row.RowNumber, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
