package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	domainReport "cprfeed/domain/report"
	"cprfeed/internal/errors"
	"cprfeed/ports"

	"github.com/xuri/excelize/v2"
)

// ExtractFunc projects a workbook onto a selector set and field mapping
type ExtractFunc func(wb ports.Workbook, selectors domainReport.SelectorSet, mapping domainReport.FieldMapping) (*domainReport.ExtractionResult, error)

// ReportDate reads the publication date from the User Notes sheet
func ReportDate(wb ports.Workbook) (string, error) {
	text, err := wb.CellText(domainReport.UserNotesSheet, domainReport.ReportDateCell)
	if err != nil {
		return "", errors.WithCode(errors.CodeLayoutMismatch,
			errors.Wrapf(err, "cannot read report date at %s!%s", domainReport.UserNotesSheet, domainReport.ReportDateCell))
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.LayoutMismatch(fmt.Sprintf("report date cell %s!%s is empty", domainReport.UserNotesSheet, domainReport.ReportDateCell))
	}
	return text, nil
}

type resolvedColumn struct {
	field string
	index int // zero-based
}

// Extract returns one record per Counties row whose FIPS code is in selectors.
// Records follow physical row order, not the order of selectors.
func Extract(wb ports.Workbook, selectors domainReport.SelectorSet, mapping domainReport.FieldMapping) (*domainReport.ExtractionResult, error) {
	reportDate, err := ReportDate(wb)
	if err != nil {
		return nil, err
	}

	rows, err := wb.Rows(domainReport.CountiesSheet)
	if err != nil {
		return nil, errors.WithCode(errors.CodeLayoutMismatch,
			errors.Wrapf(err, "cannot read sheet %q", domainReport.CountiesSheet))
	}

	columns, err := resolveColumns(rows, mapping)
	if err != nil {
		return nil, err
	}
	selectorIndex, _ := excelize.ColumnNameToNumber(domainReport.SelectorColumn)
	selectorIndex--

	records := make([]domainReport.Record, 0, len(selectors))
	for i, row := range rows {
		if selectorIndex >= len(row) {
			continue
		}
		code, ok := parseCode(row[selectorIndex])
		if !ok || !selectors.Contains(code) {
			continue
		}

		record := make(domainReport.Record, len(columns))
		for j, col := range columns {
			isText := wb.IsText(domainReport.CountiesSheet, i+1, col.index+1)
			record[j] = domainReport.FieldValue{Field: col.field, Value: cellValue(row, col.index, isText)}
		}
		records = append(records, record)
	}

	return &domainReport.ExtractionResult{ReportDate: reportDate, Records: records}, nil
}

// resolveColumns maps each column address to an index, rejecting columns past the widest row
func resolveColumns(rows [][]string, mapping domainReport.FieldMapping) ([]resolvedColumn, error) {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	columns := make([]resolvedColumn, 0, len(mapping))
	for _, fc := range mapping {
		if err := domainReport.ValidateColumn(fc.Column); err != nil {
			return nil, errors.WithCode(errors.CodeLayoutMismatch, err)
		}
		n, _ := excelize.ColumnNameToNumber(fc.Column)
		if n > width {
			return nil, errors.LayoutMismatch(fmt.Sprintf(
				"column %s for field %q is beyond the last column of sheet %q", fc.Column, fc.Field, domainReport.CountiesSheet))
		}
		columns = append(columns, resolvedColumn{field: fc.Field, index: n - 1})
	}
	return columns, nil
}

// parseCode reads a selector cell; whole floats such as "8031.0" are accepted
func parseCode(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if code, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return code, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	// int64 covers [-2^63, 2^63); float conversion outside it is undefined
	if err != nil || f != math.Trunc(f) || f < -(1<<63) || f >= 1<<63 {
		return 0, false
	}
	return int64(f), true
}

// cellValue converts a raw cell to a JSON-friendly scalar: empty cells are nil,
// numeric cells are int64 or float64, text cells and everything else stay strings.
func cellValue(row []string, index int, isText bool) interface{} {
	if index >= len(row) || row[index] == "" {
		return nil
	}
	raw := row[index]
	if isText {
		return raw
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return raw
}
