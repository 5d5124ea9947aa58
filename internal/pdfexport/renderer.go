// Package pdfexport renders the report markup into a PDF via headless
// Chromium. The markup is converted to HTML first, then printed.
package pdfexport

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// MIMEPDF is the content type of the exported file.
const MIMEPDF = "application/pdf"

const reportCSS = `
body{font-family:Georgia,'Times New Roman',serif;color:#1c1917;line-height:1.55;font-size:11pt;}
h2{font-size:17pt;border-bottom:2px solid #92400e;padding-bottom:0.2rem;}
h3{font-size:13pt;color:#78350f;margin-top:1.4rem;}
h4{font-size:11pt;margin-top:1.1rem;}
ul,ol{padding-left:1.4rem;}
li{margin-bottom:0.25rem;}
strong{color:#1c1917;}
`

type ChromiumRenderer struct {
	chromePath string
}

func NewChromiumRenderer() *ChromiumRenderer {
	return &ChromiumRenderer{chromePath: detectChromePath()}
}

// Render converts the report markup to a PDF file.
func (r *ChromiumRenderer) Render(ctx context.Context, report string) ([]byte, error) {
	htmlDoc, err := buildHTML(report)
	if err != nil {
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	}
	if r.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.chromePath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(timeoutCtx, append(chromedp.DefaultExecAllocatorOptions[:], opts...)...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	var pdf []byte
	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(htmlDoc))
	if err := chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			footer := `<div style="width:100%;text-align:center;font-size:9px;color:#666;">` +
				`Page <span class="pageNumber"></span> of <span class="totalPages"></span></div>`
			out, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithDisplayHeaderFooter(true).
				WithHeaderTemplate(`<div></div>`).
				WithFooterTemplate(footer).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithMarginTop(0.5).
				WithMarginBottom(0.75).
				WithMarginLeft(0.45).
				WithMarginRight(0.45).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = out
			return nil
		}),
	); err != nil {
		return nil, err
	}
	return pdf, nil
}

func buildHTML(report string) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(report), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	title := html.EscapeString(reportTitle(report))
	return "<!doctype html><html><head><meta charset='utf-8'><title>" + title + "</title>" +
		"<style>" + reportCSS +
		"html,body{-webkit-print-color-adjust:exact !important;print-color-adjust:exact !important;}" +
		"@media print{ @page{size:auto;margin:12mm;} }" +
		"</style></head><body>" + content.String() + "</body></html>", nil
}

// reportTitle takes the first heading line as the document title.
func reportTitle(report string) string {
	for _, line := range strings.Split(report, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			return strings.TrimSpace(strings.TrimLeft(trimmed, "# "))
		}
	}
	return "Analysis Report"
}

func detectChromePath() string {
	candidates := []string{
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/usr/bin/google-chrome",
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
