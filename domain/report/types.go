package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Layout of the Community Profile Report workbook
const (
	SpreadsheetExtension = ".xlsx"

	UserNotesSheet = "User Notes"
	CountiesSheet  = "Counties"

	// ReportDateCell holds the publication date on the User Notes sheet
	ReportDateCell = "B4"
	// SelectorColumn holds the county FIPS code on the Counties sheet
	SelectorColumn = "B"
)

// Attachment is a downloadable file attached to an archive entry
type Attachment struct {
	AssetID  string `json:"assetId"`
	Filename string `json:"filename"`
}

// FieldColumn pairs an output field name with the column supplying its value
type FieldColumn struct {
	Field  string
	Column string
}

// FieldMapping is an ordered field -> column mapping. Output records keep its order.
type FieldMapping []FieldColumn

var columnPattern = regexp.MustCompile(`^[A-Z]{1,3}$`)

// DefaultFieldMapping returns the built-in mapping used when a caller supplies no overrides
func DefaultFieldMapping() FieldMapping {
	return FieldMapping{
		{Field: "countyName", Column: "A"},
		{Field: "fipsCode", Column: "B"},
		{Field: "areaOfConcernCategory", Column: "AG"},
		{Field: "communityTransmissionLevelLast7", Column: "AI"},
		{Field: "communityTransmissionLevelPrev7", Column: "AJ"},
		{Field: "casesPer100KLast7Days", Column: "Q"},
		{Field: "casesLast7Days", Column: "P"},
		{Field: "positivityRateLast7Days", Column: "AK"},
		{Field: "fullyVaccinatedPercentPopulation", Column: "CB"},
		{Field: "fullVaccinated12to17PercentPopulation", Column: "CO"},
	}
}

// NewFieldMapping validates pairs and returns them as a mapping.
// Column addresses are upper-cased before validation.
func NewFieldMapping(pairs []FieldColumn) (FieldMapping, error) {
	if len(pairs) == 0 {
		return nil, fmt.Errorf("field mapping is empty")
	}
	seen := make(map[string]bool, len(pairs))
	mapping := make(FieldMapping, 0, len(pairs))
	for _, p := range pairs {
		field := strings.TrimSpace(p.Field)
		if field == "" {
			return nil, fmt.Errorf("field name must not be empty")
		}
		if seen[field] {
			return nil, fmt.Errorf("field %q is mapped more than once", field)
		}
		seen[field] = true

		column := strings.ToUpper(strings.TrimSpace(p.Column))
		if err := ValidateColumn(column); err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}
		mapping = append(mapping, FieldColumn{Field: field, Column: column})
	}
	return mapping, nil
}

// ValidateColumn checks that column is a spreadsheet column address such as "B" or "AG"
func ValidateColumn(column string) error {
	if !columnPattern.MatchString(column) {
		return fmt.Errorf("invalid column address %q", column)
	}
	if _, err := excelize.ColumnNameToNumber(column); err != nil {
		return fmt.Errorf("invalid column address %q: %w", column, err)
	}
	return nil
}

// CacheKey renders the mapping with its pairs sorted, so equal mappings in any order share a key.
// Field names are caller supplied; quoting keeps distinct mappings from rendering alike.
func (m FieldMapping) CacheKey() string {
	pairs := make([]string, 0, len(m))
	for _, fc := range m {
		pairs = append(pairs, strconv.Quote(fc.Field)+"="+strconv.Quote(fc.Column))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

// SelectorSet is a set of county FIPS codes used to filter rows
type SelectorSet map[int64]struct{}

// NewSelectorSet builds a set from codes; duplicates collapse
func NewSelectorSet(codes ...int64) SelectorSet {
	set := make(SelectorSet, len(codes))
	for _, code := range codes {
		set[code] = struct{}{}
	}
	return set
}

// InvalidCodeError reports a selector that is not an integer
type InvalidCodeError struct {
	Value string
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("invalid fips code %q", e.Value)
}

// ParseSelectorSet parses a comma delimited list of integer codes. Empty members are skipped.
func ParseSelectorSet(list string) (SelectorSet, error) {
	set := make(SelectorSet)
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, &InvalidCodeError{Value: part}
		}
		set[code] = struct{}{}
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("no fips codes given")
	}
	return set, nil
}

// Contains reports whether code is in the set
func (s SelectorSet) Contains(code int64) bool {
	_, ok := s[code]
	return ok
}

// Sorted returns the members in ascending order
func (s SelectorSet) Sorted() []int64 {
	codes := make([]int64, 0, len(s))
	for code := range s {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// CacheKey joins the sorted members
func (s SelectorSet) CacheKey() string {
	sorted := s.Sorted()
	parts := make([]string, len(sorted))
	for i, code := range sorted {
		parts[i] = strconv.FormatInt(code, 10)
	}
	return strings.Join(parts, ",")
}

// DenverMetroCounties holds the FIPS codes served by the transmission categories route
func DenverMetroCounties() SelectorSet {
	return NewSelectorSet(
		8001, // Adams
		8005, // Arapahoe
		8013, // Boulder
		8014, // Broomfield
		8019, // Clear Creek
		8031, // Denver
		8035, // Douglas
		8039, // Elbert
		8047, // Gilpin
		8059, // Jefferson
		8093, // Park
		8123, // Weld
	)
}

// FieldValue is one field of a record
type FieldValue struct {
	Field string
	Value interface{}
}

// Record is an ordered set of field values for one sheet row
type Record []FieldValue

// Get returns the value of field and whether it is present
func (r Record) Get(field string) (interface{}, bool) {
	for _, fv := range r {
		if fv.Field == field {
			return fv.Value, true
		}
	}
	return nil, false
}

// MarshalJSON writes the record as a JSON object in field order
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, fv := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(fv.Field)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(fv.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ExtractionResult is the projection of a workbook for one selector set and mapping
type ExtractionResult struct {
	ReportDate string   `json:"reportDate"`
	Records    []Record `json:"countyData"`
}
