package ui

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"cprfeed/internal/errors"
	"cprfeed/internal/report"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

const indexTitle = "Community Profile Report downloads"

var (
	markdownText = strings.NewReplacer(`\`, `\\`, `[`, `\[`, `]`, `\]`, `*`, `\*`, `_`, `\_`, "`", "\\`")
	markdownURL  = strings.NewReplacer(`(`, `%28`, `)`, `%29`, ` `, `%20`)
)

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	links, err := a.service.DownloadLinks(r.Context())
	if err != nil {
		code := statusFor(errors.GetCode(err))
		a.logger.Error("GET / failed: %v", err)
		http.Error(w, publicMessage(err), code)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(renderIndex(links)); err != nil {
		a.logger.Warn("Failed to write index: %v", err)
	}
}

// indexMarkdown lists each attachment as a download link
func indexMarkdown(links []report.DownloadLink) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n", indexTitle)
	if len(links) == 0 {
		buf.WriteString("No spreadsheet attachments are published for the latest report.\n")
		return buf.Bytes()
	}
	for _, link := range links {
		fmt.Fprintf(&buf, "- [%s](%s)\n", markdownText.Replace(link.Filename), markdownURL.Replace(link.URL))
	}
	return buf.Bytes()
}

func renderIndex(links []report.DownloadLink) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: indexTitle,
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.ToHTML(indexMarkdown(links), p, renderer)
}
