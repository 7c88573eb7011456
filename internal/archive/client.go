package archive

import (
	"context"
	"io"
	"strings"
	"time"

	"cprfeed/domain/report"
	"cprfeed/internal"
	"cprfeed/internal/errors"
	"cprfeed/ports"

	"github.com/tidwall/gjson"
)

// Client reads the report archive index
type Client struct {
	store    ports.DocumentStore
	indexURL string
	logger   *internal.Logger
}

// NewClient creates an archive client for the index at indexURL
func NewClient(store ports.DocumentStore, indexURL string, logger *internal.Logger) *Client {
	return &Client{
		store:    store,
		indexURL: indexURL,
		logger:   logger.WithComponent("Archive"),
	}
}

// FetchLatestAttachments returns the spreadsheet attachments of the newest archive entry.
// The index is append-only, so the newest entry is the last one. The result may be empty.
func (c *Client) FetchLatestAttachments(ctx context.Context) ([]report.Attachment, error) {
	startTime := time.Now()
	body, err := c.store.Get(ctx, c.indexURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch archive index")
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.UpstreamUnavailable("failed to read archive index", err)
	}
	c.logger.Debug("Archive index fetched in %s (%d bytes)", time.Since(startTime), len(data))

	attachments, err := parseLatestAttachments(data)
	if err != nil {
		return nil, err
	}
	c.logger.Info("Latest archive entry has %d spreadsheet attachment(s)", len(attachments))
	return attachments, nil
}

// parseLatestAttachments extracts the spreadsheet attachments of the last index entry.
// metadata_published is itself a JSON document encoded as a string.
func parseLatestAttachments(data []byte) ([]report.Attachment, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.MalformedMetadata("archive index is not valid JSON")
	}
	index := gjson.ParseBytes(data)
	if !index.IsArray() {
		return nil, errors.MalformedMetadata("archive index is not a JSON array")
	}
	entries := index.Array()
	if len(entries) == 0 {
		return nil, errors.ArchiveEmpty("archive index has no entries")
	}
	latest := entries[len(entries)-1]

	published := latest.Get("metadata_published")
	if !published.Exists() || published.Type != gjson.String {
		return nil, errors.MalformedMetadata("latest archive entry has no metadata_published")
	}
	metadata := published.String()
	if !gjson.Valid(metadata) {
		return nil, errors.MalformedMetadata("metadata_published is not valid JSON")
	}

	list := gjson.Get(metadata, "attachments")
	if !list.IsArray() {
		return nil, errors.MalformedMetadata("metadata_published has no attachments list")
	}

	attachments := make([]report.Attachment, 0)
	for _, item := range list.Array() {
		filename := item.Get("filename").String()
		if !strings.HasSuffix(filename, report.SpreadsheetExtension) {
			continue
		}
		attachments = append(attachments, report.Attachment{
			AssetID:  item.Get("assetId").String(),
			Filename: filename,
		})
	}
	return attachments, nil
}
