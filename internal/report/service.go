package report

import (
	"context"
	"strconv"
	"time"

	domainReport "cprfeed/domain/report"
	"cprfeed/internal"
	"cprfeed/internal/archive"
	"cprfeed/internal/cache"
	"cprfeed/internal/errors"
	"cprfeed/ports"

	"github.com/google/uuid"
)

const latestWorkbookKey = "latest"

// AttachmentSource lists the spreadsheet attachments of the newest archive entry
type AttachmentSource interface {
	FetchLatestAttachments(ctx context.Context) ([]domainReport.Attachment, error)
}

// Workbook is a parsed report together with where and when it was fetched
type Workbook struct {
	ports.Workbook
	SourceURL string
	FetchID   uuid.UUID
	LoadedAt  time.Time
}

// DownloadLink is an eligible attachment with its download URL
type DownloadLink struct {
	domainReport.Attachment
	URL string `json:"url"`
}

// Service resolves the latest report and serves cached projections of it
type Service struct {
	attachments AttachmentSource
	downloadURL archive.DownloadURL
	store       ports.DocumentStore
	reader      ports.SpreadsheetReader
	cache       *cache.Cache
	workbooks   *cache.Store[*Workbook]
	results     *cache.Store[*domainReport.ExtractionResult]
	logger      *internal.Logger
}

// NewService wires the report pipeline. Workbooks and results live in separate
// namespaces of the shared cache c.
func NewService(
	attachments AttachmentSource,
	downloadURL archive.DownloadURL,
	store ports.DocumentStore,
	reader ports.SpreadsheetReader,
	c *cache.Cache,
	logger *internal.Logger,
) *Service {
	return &Service{
		attachments: attachments,
		downloadURL: downloadURL,
		store:       store,
		reader:      reader,
		cache:       c,
		workbooks:   cache.NewStore[*Workbook](c, "workbook"),
		results:     cache.NewStore[*domainReport.ExtractionResult](c, "result"),
		logger:      logger.WithComponent("Report"),
	}
}

// LatestWorkbook returns the newest report workbook, downloading and parsing it
// only when the cached copy is missing or expired.
func (s *Service) LatestWorkbook(ctx context.Context) (*Workbook, error) {
	wb, hit, err := s.workbooks.GetOrLoad(ctx, latestWorkbookKey, s.loadWorkbook)
	if err != nil {
		return nil, err
	}
	if hit {
		s.logger.Debug("Workbook cache hit (fetch %s from %s)", wb.FetchID, wb.SourceURL)
	}
	return wb, nil
}

func (s *Service) loadWorkbook(ctx context.Context) (*Workbook, error) {
	fetchID := uuid.New()
	startTime := time.Now()
	s.logger.Info("Fetch %s: resolving latest report", fetchID)

	url, err := s.LatestURL(ctx)
	if err != nil {
		s.logger.Error("Fetch %s: %v", fetchID, err)
		return nil, err
	}

	body, err := s.store.Get(ctx, url)
	if err != nil {
		s.logger.Error("Fetch %s: download failed: %v", fetchID, err)
		return nil, errors.Wrap(err, "failed to download report")
	}
	defer body.Close()

	parsed, err := s.reader.Open(ctx, body)
	if err != nil {
		if errors.HasCode(err, errors.CodeUpstreamUnavailable) {
			s.logger.Error("Fetch %s: download failed: %v", fetchID, err)
			return nil, errors.Wrap(err, "failed to download report")
		}
		s.logger.Error("Fetch %s: parse failed: %v", fetchID, err)
		return nil, errors.UnreadableWorkbook(url, err)
	}

	s.logger.Info("Fetch %s: loaded %s in %s", fetchID, url, time.Since(startTime))
	return &Workbook{
		Workbook:  parsed,
		SourceURL: url,
		FetchID:   fetchID,
		LoadedAt:  time.Now(),
	}, nil
}

// LatestURL returns the download URL of the newest report
func (s *Service) LatestURL(ctx context.Context) (string, error) {
	attachments, err := s.attachments.FetchLatestAttachments(ctx)
	if err != nil {
		return "", err
	}
	return s.downloadURL.SelectLatest(attachments)
}

// DownloadLinks lists every spreadsheet attachment of the newest archive entry
func (s *Service) DownloadLinks(ctx context.Context) ([]DownloadLink, error) {
	attachments, err := s.attachments.FetchLatestAttachments(ctx)
	if err != nil {
		return nil, err
	}
	links := make([]DownloadLink, len(attachments))
	for i, a := range attachments {
		links[i] = DownloadLink{Attachment: a, URL: s.downloadURL.For(a)}
	}
	return links, nil
}

// ResultKey identifies an extraction. Selector and mapping order do not affect it.
func ResultKey(reportDate string, selectors domainReport.SelectorSet, mapping domainReport.FieldMapping) string {
	return strconv.Quote(reportDate) + "|" + selectors.CacheKey() + "|" + mapping.CacheKey()
}

// GetOrCompute returns the cached extraction for (report date, selectors, mapping),
// running compute on a miss.
func (s *Service) GetOrCompute(
	ctx context.Context,
	wb *Workbook,
	selectors domainReport.SelectorSet,
	mapping domainReport.FieldMapping,
	compute ExtractFunc,
) (*domainReport.ExtractionResult, error) {
	reportDate, err := ReportDate(wb)
	if err != nil {
		return nil, err
	}

	key := ResultKey(reportDate, selectors, mapping)
	result, hit, err := s.results.GetOrLoad(ctx, key, func(ctx context.Context) (*domainReport.ExtractionResult, error) {
		startTime := time.Now()
		result, err := compute(wb, selectors, mapping)
		if err != nil {
			return nil, err
		}
		s.logger.Debug("Extracted %d record(s) for %s in %s", len(result.Records), key, time.Since(startTime))
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	if hit {
		s.logger.Debug("Result cache hit for %s", key)
	}
	return result, nil
}

// CountyData returns the selected counties' fields from the latest report
func (s *Service) CountyData(ctx context.Context, selectors domainReport.SelectorSet, mapping domainReport.FieldMapping) (*domainReport.ExtractionResult, error) {
	wb, err := s.LatestWorkbook(ctx)
	if err != nil {
		return nil, err
	}
	return s.GetOrCompute(ctx, wb, selectors, mapping, Extract)
}

// CacheStats reports the shared cache counters
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}
