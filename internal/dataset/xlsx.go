package dataset

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// LoadXLSX reads one worksheet of an XLSX workbook. The first row is the header.
func LoadXLSX(path string, opt Options) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: fmt.Errorf("open workbook: %w", err)}
	}
	defer f.Close()
	return readWorkbook(f, path, opt)
}

// ReadXLSX reads a workbook from a stream.
func ReadXLSX(r io.Reader, name string, opt Options) (*Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ReadError{Path: name, Err: fmt.Errorf("open workbook: %w", err)}
	}
	defer f.Close()
	return readWorkbook(f, name, opt)
}

func readWorkbook(f *excelize.File, name string, opt Options) (*Dataset, error) {
	sheet, err := pickSheet(f, opt)
	if err != nil {
		return nil, &ReadError{Path: name, Err: err}
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &ReadError{Path: name, Err: fmt.Errorf("read sheet %q: %w", sheet, err)}
	}
	if len(rows) == 0 {
		return nil, &ReadError{Path: name, Err: ErrNoHeader}
	}
	header := rows[0]
	body := rows[1:]
	truncated := opt.MaxRows > 0 && len(body) > opt.MaxRows
	if truncated {
		body = body[:opt.MaxRows]
	}
	ds := FromRecords(filepath.Base(name), header, body, opt)
	if truncated {
		ds.Warnings = append(ds.Warnings, fmt.Sprintf("read limited to %d rows", opt.MaxRows))
	}
	return ds, nil
}

func pickSheet(f *excelize.File, opt Options) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}
	if opt.SheetName != "" {
		for _, s := range sheets {
			if s == opt.SheetName {
				return s, nil
			}
		}
		return "", fmt.Errorf("sheet %q not found", opt.SheetName)
	}
	idx := opt.SheetIndex
	if idx <= 0 {
		idx = 1
	}
	if idx > len(sheets) {
		return "", fmt.Errorf("sheet index %d out of range (workbook has %d sheets)", idx, len(sheets))
	}
	return sheets[idx-1], nil
}
