// Package extract turns uploaded PDF files into page-ordered text for the
// analysis pipeline. Extraction shells out to pdftotext and falls back to
// scraping printable byte runs when the binary is unavailable or the file
// is malformed. No OCR, no layout recovery.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"unicode"
)

const (
	maxPDFBytes = 20 * 1024 * 1024
	maxDocChars = 400000
)

// ErrNoText is returned when nothing extractable was found in the file.
var ErrNoText = errors.New("no extractable text found")

// Page is the text of one PDF page. Numbers start at 1 and are strictly
// ascending within a Document.
type Page struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Document is the extracted content of one uploaded PDF.
type Document struct {
	SourceName string `json:"source_name"`
	Pages      []Page `json:"pages"`
	Method     string `json:"method"`
	Truncated  bool   `json:"truncated"`
}

// Text returns the concatenation of all page texts in page order, with no
// separator beyond the page boundaries themselves.
func (d Document) Text() string {
	var b strings.Builder
	for _, p := range d.Pages {
		b.WriteString(p.Text)
	}
	return b.String()
}

// PageCount reports the number of pages with extracted text.
func (d Document) PageCount() int { return len(d.Pages) }

// ExtractPDF extracts the text of every page of the PDF at path, in page
// order. An unreadable or empty file yields an error; it never panics past
// this boundary.
func ExtractPDF(ctx context.Context, path string) (Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Document{}, err
	}
	if info.Size() > maxPDFBytes {
		return Document{}, fmt.Errorf("pdf too large: %d bytes", info.Size())
	}

	name := baseName(path)

	if out, err := runPdfToText(ctx, path); err == nil {
		pages := splitPages(out)
		if len(pages) > 0 {
			return capDocument(Document{SourceName: name, Pages: pages, Method: "pdftotext"}), nil
		}
	}

	blob, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}
	fallback := extractPrintableText(blob)
	if strings.TrimSpace(fallback) == "" {
		return Document{}, ErrNoText
	}
	doc := Document{
		SourceName: name,
		Pages:      []Page{{Number: 1, Text: fallback}},
		Method:     "byte-fallback",
	}
	return capDocument(doc), nil
}

func runPdfToText(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, "pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// splitPages breaks pdftotext output into per-page records. pdftotext
// terminates every page with a form feed, so a trailing empty chunk is
// normal and dropped. Pages that contain only whitespace are kept out so
// page numbers track pages with usable text.
func splitPages(out string) []Page {
	chunks := strings.Split(out, "\f")
	pages := make([]Page, 0, len(chunks))
	n := 0
	for _, c := range chunks {
		if strings.TrimSpace(c) == "" {
			continue
		}
		n++
		pages = append(pages, Page{Number: n, Text: c})
	}
	return pages
}

func extractPrintableText(blob []byte) string {
	var runs []string
	var b strings.Builder
	flush := func() {
		s := strings.TrimSpace(b.String())
		if len(s) >= 24 {
			runs = append(runs, s)
		}
		b.Reset()
	}
	for _, c := range blob {
		r := rune(c)
		if unicode.IsPrint(r) || r == '\n' || r == '\t' || r == '\r' {
			b.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	joined := strings.Join(runs, "\n")
	joined = strings.ReplaceAll(joined, "\x00", "")
	return strings.TrimSpace(joined)
}

// capDocument trims trailing pages once the concatenated text exceeds
// maxDocChars, so a pathological upload cannot blow up prompt sizes.
func capDocument(d Document) Document {
	total := 0
	for i, p := range d.Pages {
		if total+len(p.Text) <= maxDocChars {
			total += len(p.Text)
			continue
		}
		keep := maxDocChars - total
		if keep > 0 {
			d.Pages[i].Text = trimToRuneBoundary(p.Text, keep)
			d.Pages = d.Pages[:i+1]
		} else {
			d.Pages = d.Pages[:i]
		}
		d.Truncated = true
		break
	}
	return d
}

func trimToRuneBoundary(s string, n int) string {
	if n >= len(s) {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

func baseName(path string) string {
	path = strings.TrimRight(path, "/")
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
