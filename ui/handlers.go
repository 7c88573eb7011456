package ui

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	domainReport "cprfeed/domain/report"
	"cprfeed/internal/errors"
)

const (
	fipsParam          = "fips"
	missingFipsMessage = `Must specificy query param "fips" with comma delimited list of codes`
)

// publicMessages are returned in place of internal error details
var publicMessages = map[string]string{
	errors.CodeUpstreamUnavailable:  "Upstream data source is unavailable",
	errors.CodeArchiveEmpty:         "No reports have been published",
	errors.CodeMalformedMetadata:    "Report metadata could not be read",
	errors.CodeNoAttachments:        "Latest report has no spreadsheet attachments",
	errors.CodeUnrecognizedFilename: "Latest report attachments could not be ordered",
	errors.CodeUnreadableWorkbook:   "Latest report could not be read",
	errors.CodeLayoutMismatch:       "Latest report does not have the expected layout",
}

const defaultPublicMessage = "Internal server error"

type messageResponse struct {
	Message string `json:"message"`
}

func (a *App) handleDenverTransmissionCategories(w http.ResponseWriter, r *http.Request) {
	result, err := a.service.CountyData(r.Context(), domainReport.DenverMetroCounties(), domainReport.DefaultFieldMapping())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, result)
}

func (a *App) handleCountyData(w http.ResponseWriter, r *http.Request) {
	selectors, mapping, err := parseCountyDataQuery(r.URL.RawQuery)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	result, err := a.service.CountyData(r.Context(), selectors, mapping)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, result)
}

func (a *App) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.service.CacheStats())
}

// parseCountyDataQuery reads the fips selector list and any field overrides.
// Overrides keep their query string order.
func parseCountyDataQuery(rawQuery string) (domainReport.SelectorSet, domainReport.FieldMapping, error) {
	var fips string
	var overrides []domainReport.FieldColumn

	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(key)
		if err != nil {
			return nil, nil, errors.InvalidRequest(fmt.Sprintf("Invalid query parameter %q", pair))
		}
		value, err = url.QueryUnescape(value)
		if err != nil {
			return nil, nil, errors.InvalidRequest(fmt.Sprintf("Invalid value for query parameter %q", key))
		}

		if key == fipsParam {
			if fips == "" {
				fips = value
			}
			continue
		}
		overrides = append(overrides, domainReport.FieldColumn{Field: key, Column: value})
	}

	if strings.TrimSpace(fips) == "" {
		return nil, nil, errors.InvalidRequest(missingFipsMessage)
	}

	selectors, err := domainReport.ParseSelectorSet(fips)
	if err != nil {
		var invalid *domainReport.InvalidCodeError
		if stderrors.As(err, &invalid) {
			return nil, nil, errors.InvalidRequest(fmt.Sprintf("Invalid fips code %q", invalid.Value))
		}
		return nil, nil, errors.InvalidRequest(missingFipsMessage)
	}

	if len(overrides) == 0 {
		return selectors, domainReport.DefaultFieldMapping(), nil
	}

	mapping, err := domainReport.NewFieldMapping(overrides)
	if err != nil {
		return nil, nil, errors.InvalidRequest(fmt.Sprintf("Invalid field mapping: %v", err))
	}
	return selectors, mapping, nil
}

// statusFor maps an error code to its HTTP status
func statusFor(code string) int {
	switch code {
	case errors.CodeInvalidRequest:
		return http.StatusBadRequest
	case errors.CodeUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage returns the client facing text for err
func publicMessage(err error) string {
	code := errors.GetCode(err)
	if code == errors.CodeInvalidRequest {
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) {
			return appErr.Message
		}
	}
	if msg, ok := publicMessages[code]; ok {
		return msg
	}
	return defaultPublicMessage
}

func (a *App) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		a.logger.Error("%s %s failed [%s]: %v", r.Method, r.URL.Path, code, err)
	} else {
		a.logger.Debug("%s %s rejected: %v", r.Method, r.URL.Path, err)
	}
	a.writeJSON(w, status, messageResponse{Message: publicMessage(err)})
}

func (a *App) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.logger.Warn("Failed to write response: %v", err)
	}
}
