package reports

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const removalSheetName = "Sheet1"

func buildRemovalWorkbook(rows []RemovalRow) (*excelize.File, error) {
	f := excelize.NewFile()
	if _, err := f.NewSheet(removalSheetName); err != nil {
		return nil, err
	}

	// Add headers
	col := 'A'
	for _, h := range RemovalListHeader {
		f.SetCellValue(removalSheetName, fmt.Sprintf("%c1", col), h)
		col++
	}

	// Add data
	for i, row := range rows {
		col = 'A'
		for _, value := range removalRowValues(row) {
			f.SetCellValue(removalSheetName, fmt.Sprintf("%c%d", col, i+2), value)
			col++
		}
	}
	return f, nil
}

// ExportRemovalListExcel saves the report as a workbook.
func ExportRemovalListExcel(rows []RemovalRow, filename string) error {
	f, err := buildRemovalWorkbook(rows)
	if err != nil {
		return err
	}
	return f.SaveAs(filename)
}

// WriteRemovalListExcel streams the workbook, e.g. into an HTTP response.
func WriteRemovalListExcel(w io.Writer, rows []RemovalRow) error {
	f, err := buildRemovalWorkbook(rows)
	if err != nil {
		return err
	}
	return f.Write(w)
}
