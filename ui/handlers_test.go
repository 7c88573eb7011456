package ui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	domainReport "cprfeed/domain/report"
	"cprfeed/internal"
	"cprfeed/internal/cache"
	"cprfeed/internal/errors"
	"cprfeed/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) CountyData(ctx context.Context, selectors domainReport.SelectorSet, mapping domainReport.FieldMapping) (*domainReport.ExtractionResult, error) {
	args := m.Called(ctx, selectors, mapping)
	if result := args.Get(0); result != nil {
		return result.(*domainReport.ExtractionResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockReportService) DownloadLinks(ctx context.Context) ([]report.DownloadLink, error) {
	args := m.Called(ctx)
	if links := args.Get(0); links != nil {
		return links.([]report.DownloadLink), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockReportService) CacheStats() cache.Stats {
	return m.Called().Get(0).(cache.Stats)
}

func newTestApp(service ReportService) *App {
	return NewApp(service, internal.NewLogger(internal.LogLevelError))
}

func serve(app *App, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)
	return rec
}

func sampleResult() *domainReport.ExtractionResult {
	return &domainReport.ExtractionResult{
		ReportDate: "October 27, 2021",
		Records: []domainReport.Record{
			{{Field: "countyName", Value: "Denver County, CO"}, {Field: "fipsCode", Value: int64(8031)}},
		},
	}
}

func TestDenverTransmissionCategories(t *testing.T) {
	service := new(MockReportService)
	service.On("CountyData", mock.Anything, domainReport.DenverMetroCounties(), domainReport.DefaultFieldMapping()).
		Return(sampleResult(), nil)

	rec := serve(newTestApp(service), "/denver-transmission-categories")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{
		"reportDate": "October 27, 2021",
		"countyData": [{"countyName": "Denver County, CO", "fipsCode": 8031}]
	}`, rec.Body.String())
	service.AssertExpectations(t)
}

func TestCountyDataRequiresFips(t *testing.T) {
	for _, target := range []string{"/county-data", "/county-data?fips=", "/county-data?name=A"} {
		service := new(MockReportService)
		rec := serve(newTestApp(service), target)

		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.JSONEq(t, `{"message":"Must specificy query param \"fips\" with comma delimited list of codes"}`, rec.Body.String(), target)
		service.AssertNotCalled(t, "CountyData", mock.Anything, mock.Anything, mock.Anything)
	}
}

func TestCountyDataRejectsInvalidFips(t *testing.T) {
	service := new(MockReportService)
	rec := serve(newTestApp(service), "/county-data?fips=8031,denver")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"Invalid fips code \"denver\""}`, rec.Body.String())
}

func TestCountyDataRejectsInvalidColumn(t *testing.T) {
	service := new(MockReportService)
	rec := serve(newTestApp(service), "/county-data?fips=8031&name=A1")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid field mapping")
}

func TestCountyDataUsesDefaultMapping(t *testing.T) {
	service := new(MockReportService)
	service.On("CountyData", mock.Anything, domainReport.NewSelectorSet(8031, 8005), domainReport.DefaultFieldMapping()).
		Return(sampleResult(), nil)

	rec := serve(newTestApp(service), "/county-data?fips=8031,8005")

	assert.Equal(t, http.StatusOK, rec.Code)
	service.AssertExpectations(t)
}

func TestCountyDataOverridesKeepQueryOrder(t *testing.T) {
	expected := domainReport.FieldMapping{
		{Field: "vax", Column: "CB"},
		{Field: "name", Column: "A"},
	}
	service := new(MockReportService)
	service.On("CountyData", mock.Anything, domainReport.NewSelectorSet(8031), expected).
		Return(sampleResult(), nil)

	rec := serve(newTestApp(service), "/county-data?vax=cb&fips=8031&name=A")

	assert.Equal(t, http.StatusOK, rec.Code)
	service.AssertExpectations(t)
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"upstream", errors.UpstreamUnavailable("GET https://x returned status 503", nil), http.StatusBadGateway, "Upstream data source is unavailable"},
		{"layout", errors.LayoutMismatch("column CB is beyond the last column"), http.StatusInternalServerError, "Latest report does not have the expected layout"},
		{"unreadable", errors.UnreadableWorkbook("https://x", assert.AnError), http.StatusInternalServerError, "Latest report could not be read"},
		{"unknown", assert.AnError, http.StatusInternalServerError, "Internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockReportService)
			service.On("CountyData", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := serve(newTestApp(service), "/county-data?fips=8031")

			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, `{"message":"`+tt.message+`"}`, rec.Body.String())
			assert.NotContains(t, rec.Body.String(), "https://x")
		})
	}
}

func TestCacheStats(t *testing.T) {
	service := new(MockReportService)
	service.On("CacheStats").Return(cache.Stats{Entries: 2, Hits: 5, Misses: 2, Loads: 2})

	rec := serve(newTestApp(service), "/cache-stats")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"entries":2,"hits":5,"misses":2,"loads":2,"evictions":0,"expirations":0}`, rec.Body.String())
}

func TestIndexListsDownloadLinks(t *testing.T) {
	service := new(MockReportService)
	service.On("DownloadLinks", mock.Anything).Return([]report.DownloadLink{
		{Attachment: domainReport.Attachment{AssetID: "A1", Filename: "Community_Profile_Report_20211027.xlsx"}, URL: "https://files.test/A1?filename=Community_Profile_Report_20211027.xlsx"},
	}, nil)

	rec := serve(newTestApp(service), "/")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, `href="https://files.test/A1?filename=Community_Profile_Report_20211027.xlsx"`)
	assert.Contains(t, body, "Community_Profile_Report_20211027.xlsx</a>")
	assert.Contains(t, body, "<title>Community Profile Report downloads</title>")
}

func TestIndexUpstreamFailure(t *testing.T) {
	service := new(MockReportService)
	service.On("DownloadLinks", mock.Anything).Return(nil, errors.UpstreamUnavailable("boom", nil))

	rec := serve(newTestApp(service), "/")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Upstream data source is unavailable")
}

func TestIndexMarkdownEscapesFilenames(t *testing.T) {
	md := string(indexMarkdown([]report.DownloadLink{
		{Attachment: domainReport.Attachment{Filename: "report [draft] 5.xlsx"}, URL: "https://files.test/a (1)"},
	}))
	assert.Contains(t, md, `- [report \[draft\] 5.xlsx](https://files.test/a%20%281%29)`)

	assert.Contains(t, string(indexMarkdown(nil)), "No spreadsheet attachments")
}
