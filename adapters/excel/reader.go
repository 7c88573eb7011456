package excel

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"cprfeed/internal"
	"cprfeed/ports"

	"github.com/xuri/excelize/v2"
)

// Reader decodes xlsx streams with excelize
type Reader struct {
	logger *internal.Logger
}

// NewReader creates a new spreadsheet reader
func NewReader(logger *internal.Logger) *Reader {
	return &Reader{logger: logger.WithComponent("ExcelReader")}
}

// Open parses the stream and loads every sheet into memory, so the returned
// workbook holds no file handle and can be shared between goroutines.
func (r *Reader) Open(ctx context.Context, src io.Reader) (ports.Workbook, error) {
	startTime := time.Now()
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	r.logger.Debug("Workbook opened in %.2fms", float64(time.Since(startTime).Nanoseconds())/1e6)

	sheets := f.GetSheetList()
	wb := &Workbook{
		sheets:    sheets,
		raw:       make(map[string][][]string, len(sheets)),
		text:      make(map[string][][]string, len(sheets)),
		textCells: make(map[string]map[cellRef]struct{}, len(sheets)),
	}

	for _, sheet := range sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		readStart := time.Now()
		raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		text, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		textCells, err := numericTextCells(f, sheet, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to read cell types of sheet %q: %w", sheet, err)
		}
		wb.raw[sheet] = raw
		wb.text[sheet] = text
		wb.textCells[sheet] = textCells
		r.logger.Debug("Sheet %q read in %.2fms (%d rows)", sheet, float64(time.Since(readStart).Nanoseconds())/1e6, len(raw))
	}

	r.logger.Info("Workbook parsed in %s (%d sheets)", time.Since(startTime), len(sheets))
	return wb, nil
}

// numericTextCells finds cells whose raw value looks like a number but whose
// stored type is a string
func numericTextCells(f *excelize.File, sheet string, raw [][]string) (map[cellRef]struct{}, error) {
	cells := make(map[cellRef]struct{})
	for r, row := range raw {
		for c, value := range row {
			if value == "" {
				continue
			}
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				continue
			}
			name, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			cellType, err := f.GetCellType(sheet, name)
			if err != nil {
				return nil, err
			}
			switch cellType {
			case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
				cells[cellRef{row: r + 1, col: c + 1}] = struct{}{}
			}
		}
	}
	return cells, nil
}
