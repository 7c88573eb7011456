package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"testing/iotest"

	"cprfeed/adapters/excel"
	domainReport "cprfeed/domain/report"
	"cprfeed/internal"
	"cprfeed/internal/errors"
	"cprfeed/ports"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// countiesFixture describes a minimal Community Profile Report
type countiesFixture struct {
	reportDate string
	skipNotes  bool
	rows       [][]interface{} // Counties rows starting at A1
}

func defaultFixture() countiesFixture {
	return countiesFixture{
		reportDate: "October 27, 2021",
		rows: [][]interface{}{
			{"County", "FIPS", "State", "Cases"},
			{"Denver County, CO", 8031, "CO", 1234},
			{"Nowhere County, ZZ", 9999, "ZZ", 1},
			{"Arapahoe County, CO", 8005, "CO", 2.5},
		},
	}
}

func (f countiesFixture) bytes(t *testing.T) []byte {
	t.Helper()
	file := excelize.NewFile()
	defer file.Close()

	if f.skipNotes {
		require.NoError(t, file.SetSheetName("Sheet1", "Counties"))
	} else {
		require.NoError(t, file.SetSheetName("Sheet1", domainReport.UserNotesSheet))
		require.NoError(t, file.SetCellValue(domainReport.UserNotesSheet, "A4", "Report date"))
		if f.reportDate != "" {
			require.NoError(t, file.SetCellValue(domainReport.UserNotesSheet, domainReport.ReportDateCell, f.reportDate))
		}
		_, err := file.NewSheet(domainReport.CountiesSheet)
		require.NoError(t, err)
	}

	for i, row := range f.rows {
		row := row
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, file.SetSheetRow(domainReport.CountiesSheet, cell, &row))
	}

	buf, err := file.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func (f countiesFixture) workbook(t *testing.T) ports.Workbook {
	t.Helper()
	wb, err := newExcelReader().Open(context.Background(), bytes.NewReader(f.bytes(t)))
	require.NoError(t, err)
	return wb
}

func newExcelReader() *excel.Reader {
	return excel.NewReader(testLogger())
}

func testLogger() *internal.Logger {
	return internal.NewLogger(internal.LogLevelError)
}

// fakeStore serves fixed documents by URL and counts requests
type fakeStore struct {
	mu      sync.Mutex
	docs    map[string][]byte
	fail    map[string]error
	readErr map[string]error // body read fails after the document bytes
	calls   map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:    make(map[string][]byte),
		fail:    make(map[string]error),
		readErr: make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (s *fakeStore) Get(ctx context.Context, url string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[url]++
	if err, ok := s.fail[url]; ok {
		return nil, err
	}
	doc, ok := s.docs[url]
	if !ok {
		return nil, errors.UpstreamUnavailable(fmt.Sprintf("GET %s returned status 404", url), nil)
	}
	if err, ok := s.readErr[url]; ok {
		return io.NopCloser(io.MultiReader(bytes.NewReader(doc), iotest.ErrReader(err))), nil
	}
	return io.NopCloser(bytes.NewReader(doc)), nil
}

func (s *fakeStore) Calls(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[url]
}

// fakeAttachments returns a fixed attachment list and counts calls
type fakeAttachments struct {
	mu          sync.Mutex
	attachments []domainReport.Attachment
	err         error
	calls       int
}

func (f *fakeAttachments) FetchLatestAttachments(ctx context.Context) ([]domainReport.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.attachments, f.err
}

func (f *fakeAttachments) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
