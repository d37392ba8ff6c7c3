package dataset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

type xlsxReader struct{}

func (xlsxReader) CanRead(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".xlsx")
}

// Read loads the selected sheet with raw cell values, so money cells arrive as
// plain numbers and dates as serial numbers.
func (xlsxReader) Read(path string, opt ReadOptions) ([]string, [][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheet, err := pickSheet(f.GetSheetList(), opt, filepath.Base(path))
	if err != nil {
		return nil, nil, err
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}
	header := rows[0]
	ncol := len(header)
	body := rows[1:]
	if opt.MaxRows > 0 && len(body) > opt.MaxRows {
		body = body[:opt.MaxRows]
	}
	records := make([][]string, 0, len(body))
	for _, r := range body {
		records = append(records, padRecord(r, ncol))
	}
	return header, records, nil
}

// pickSheet resolves a sheet by name, falling back to the 1-based index.
func pickSheet(sheets []string, opt ReadOptions, book string) (string, error) {
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook '%s' has no sheets", book)
	}
	if opt.SheetName != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, opt.SheetName) {
				return s, nil
			}
		}
		return "", fmt.Errorf("sheet '%s' not found in workbook '%s'.\nAvailable sheets: %s",
			opt.SheetName, book, strings.Join(sheets, ", "))
	}
	idx := opt.SheetIndex
	if idx <= 0 {
		idx = 1
	}
	if idx > len(sheets) {
		return "", fmt.Errorf("sheet index %d out of range in workbook '%s' (%d sheets)", idx, book, len(sheets))
	}
	return sheets[idx-1], nil
}
