package archive

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"cprfeed/domain/report"
	"cprfeed/internal/errors"
)

var orderingToken = regexp.MustCompile(`(\d+)` + regexp.QuoteMeta(report.SpreadsheetExtension) + `$`)

// DownloadURL builds file download URLs from a template containing {assetId} and {filename}
type DownloadURL string

// For renders the download URL of an attachment
func (d DownloadURL) For(a report.Attachment) string {
	return strings.NewReplacer(
		"{assetId}", url.PathEscape(a.AssetID),
		"{filename}", url.QueryEscape(a.Filename),
	).Replace(string(d))
}

// SelectLatest picks the attachment with the highest numeric token before the
// extension and returns its download URL. Equal tokens resolve to the earliest
// listed attachment. A candidate without a token fails the whole selection.
func (d DownloadURL) SelectLatest(attachments []report.Attachment) (string, error) {
	latest, err := SelectLatest(attachments)
	if err != nil {
		return "", err
	}
	return d.For(latest), nil
}

// SelectLatest is the ordering behind DownloadURL.SelectLatest
func SelectLatest(attachments []report.Attachment) (report.Attachment, error) {
	if len(attachments) == 0 {
		return report.Attachment{}, errors.NoAttachments("latest archive entry has no spreadsheet attachments")
	}

	type candidate struct {
		attachment report.Attachment
		token      string
	}
	candidates := make([]candidate, len(attachments))
	for i, a := range attachments {
		m := orderingToken.FindStringSubmatch(a.Filename)
		if m == nil {
			return report.Attachment{}, errors.UnrecognizedFilename(a.Filename)
		}
		candidates[i] = candidate{attachment: a, token: m[1]}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return compareDigits(candidates[i].token, candidates[j].token) > 0
	})
	return candidates[0].attachment, nil
}

// compareDigits compares two decimal digit strings numerically without
// converting them, so arbitrarily long tokens cannot overflow.
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
