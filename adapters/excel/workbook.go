package excel

import (
	"fmt"

	"cprfeed/ports"

	"github.com/xuri/excelize/v2"
)

// Workbook is an in-memory, immutable copy of a parsed spreadsheet
type Workbook struct {
	sheets []string
	raw    map[string][][]string
	text   map[string][][]string
	// numeric looking cells stored as strings, by sheet
	textCells map[string]map[cellRef]struct{}
}

type cellRef struct {
	row, col int
}

// SheetNames lists sheets in workbook order
func (w *Workbook) SheetNames() []string {
	names := make([]string, len(w.sheets))
	copy(names, w.sheets)
	return names
}

// Rows returns the raw cell values of sheet. The slice is shared and must not be modified.
func (w *Workbook) Rows(sheet string) ([][]string, error) {
	rows, ok := w.raw[sheet]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ports.ErrSheetNotFound, sheet)
	}
	return rows, nil
}

// CellText returns the formatted value of cell; cells outside the used range are empty
func (w *Workbook) CellText(sheet, cell string) (string, error) {
	rows, ok := w.text[sheet]
	if !ok {
		return "", fmt.Errorf("%w: %q", ports.ErrSheetNotFound, sheet)
	}
	col, row, err := excelize.CellNameToCoordinates(cell)
	if err != nil {
		return "", err
	}
	if row > len(rows) || col > len(rows[row-1]) {
		return "", nil
	}
	return rows[row-1][col-1], nil
}

// IsText reports whether a cell is stored as a string. Only cells whose raw
// value parses as a number are tracked; other values are text already.
func (w *Workbook) IsText(sheet string, row, col int) bool {
	_, ok := w.textCells[sheet][cellRef{row: row, col: col}]
	return ok
}
