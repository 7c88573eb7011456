package ports

import (
	"context"
	"errors"
	"io"
)

// SpreadsheetReader decodes a spreadsheet byte stream into a Workbook
type SpreadsheetReader interface {
	Open(ctx context.Context, r io.Reader) (Workbook, error)
}

// Workbook provides read-only access to a parsed spreadsheet.
// Implementations must be safe for concurrent readers.
type Workbook interface {
	// SheetNames lists sheets in workbook order
	SheetNames() []string

	// Rows returns the raw (unformatted) cell values of a sheet, one slice per physical row
	// starting at row 1. Trailing empty cells may be omitted.
	Rows(sheet string) ([][]string, error)

	// CellText returns the formatted value of a cell such as "B4"
	CellText(sheet, cell string) (string, error)

	// IsText reports whether the cell at 1-based row and col is stored as text,
	// so a raw value such as "08031" is a string and not the number 8031
	IsText(sheet string, row, col int) bool
}

// ErrSheetNotFound is returned by Workbook methods for a sheet the workbook does not contain
var ErrSheetNotFound = errors.New("sheet not found")
