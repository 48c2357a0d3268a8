package importer

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// headerRowLimit bounds merged-cell filling to the rows that can be headers.
const headerRowLimit = 2

// ExcelReader reads the first worksheet of a workbook, or Sheet when set.
type ExcelReader struct {
	Sheet string
}

func (r *ExcelReader) Read(path string, mode HeaderMode) (*SourceTable, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open excel file %s: %w", path, err)
	}
	defer file.Close()

	sheetName := r.Sheet
	if sheetName == "" {
		sheetName = file.GetSheetName(0)
	}
	if sheetName == "" {
		return nil, fmt.Errorf("excel file has no sheets: %s", path)
	}

	rows, err := file.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read rows from sheet %s: %w", sheetName, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheetName)
	}

	merges, err := file.GetMergeCells(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read merged cells from sheet %s: %w", sheetName, err)
	}
	rows = fillMergedHeaders(rows, merges)

	table, err := buildTable(path, "excel", rows, mode)
	if err != nil {
		return nil, err
	}
	table.Sheet = sheetName
	return table, nil
}

// fillMergedHeaders copies the value of merged header ranges into every cell
// they cover. Excel stores the value only in the top-left cell.
func fillMergedHeaders(rows [][]string, merges []excelize.MergeCell) [][]string {
	for _, merge := range merges {
		startCol, startRow, err := excelize.CellNameToCoordinates(merge.GetStartAxis())
		if err != nil {
			continue
		}
		endCol, endRow, err := excelize.CellNameToCoordinates(merge.GetEndAxis())
		if err != nil {
			continue
		}

		value := merge.GetCellValue()
		for rowIndex := startRow - 1; rowIndex < endRow && rowIndex < headerRowLimit && rowIndex < len(rows); rowIndex++ {
			for colIndex := startCol - 1; colIndex < endCol; colIndex++ {
				for len(rows[rowIndex]) <= colIndex {
					rows[rowIndex] = append(rows[rowIndex], "")
				}
				rows[rowIndex][colIndex] = value
			}
		}
	}
	return rows
}
