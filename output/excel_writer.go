package output

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	"sheetsync/inventory"
	"sheetsync/transform"
)

type ExcelWriter struct{}

// Write saves the table to a single-sheet workbook. Numeric fields are
// written as numbers so formulas in the workbook can use them.
func (w *ExcelWriter) Write(path string, table *inventory.Table) error {
	file := excelize.NewFile()
	defer file.Close()

	sheet := file.GetSheetName(0)
	headers := make([]any, 0, len(table.Fields))
	for _, title := range table.Titles() {
		headers = append(headers, title)
	}
	if err := file.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("set excel headers: %w", err)
	}

	for i, row := range table.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("resolve excel row %d: %w", i+2, err)
		}
		values := excelValues(table.Fields, row)
		if err := file.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("set excel row %s: %w", cell, err)
		}
	}

	if err := file.SaveAs(path); err != nil {
		return fmt.Errorf("save excel output %s: %w", path, err)
	}
	return nil
}

func excelValues(fields []inventory.Field, row inventory.Row) []any {
	values := make([]any, len(fields))
	for i, field := range fields {
		value := row.Get(field.Name)
		if field.IsNumeric() {
			if number, ok := transform.ParseNumber(value); ok {
				values[i] = number.InexactFloat64()
				continue
			}
		}
		values[i] = value
	}
	return values
}
