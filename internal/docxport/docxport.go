// Package docxport renders the report markup into a Word document.
package docxport

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"
)

// MIMEWordDocument is the content type of the exported file.
const MIMEWordDocument = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// ErrEmptyReport is returned when there is no report text to export.
var ErrEmptyReport = errors.New("report text is empty")

// BlockKind classifies one line of report markup.
type BlockKind int

const (
	KindParagraph BlockKind = iota
	KindHeading
	KindBullet
	KindNumbered
)

// Span is a run of text, bold or plain.
type Span struct {
	Text string
	Bold bool
}

// Block is one paragraph-level element of the report.
type Block struct {
	Kind   BlockKind
	Level  int // heading level, 2-4
	Number int // list position for numbered items
	Spans  []Span
}

// ParseMarkup splits report markup into blocks. Supported markup is the
// subset the report builder emits: ##/###/#### headings, "- " bullets,
// "1. " numbered items, blank-line-separated paragraphs, and **bold**
// spans inside any of them.
func ParseMarkup(text string) []Block {
	var blocks []Block
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		switch {
		case strings.HasPrefix(trimmed, "####"):
			blocks = append(blocks, Block{Kind: KindHeading, Level: 4, Spans: SplitBoldSpans(strings.TrimSpace(trimmed[4:]))})
		case strings.HasPrefix(trimmed, "###"):
			blocks = append(blocks, Block{Kind: KindHeading, Level: 3, Spans: SplitBoldSpans(strings.TrimSpace(trimmed[3:]))})
		case strings.HasPrefix(trimmed, "##"):
			blocks = append(blocks, Block{Kind: KindHeading, Level: 2, Spans: SplitBoldSpans(strings.TrimSpace(trimmed[2:]))})
		case strings.HasPrefix(trimmed, "- "):
			blocks = append(blocks, Block{Kind: KindBullet, Spans: SplitBoldSpans(trimmed[2:])})
		case numberedItem(trimmed):
			num, rest := splitNumbered(trimmed)
			blocks = append(blocks, Block{Kind: KindNumbered, Number: num, Spans: SplitBoldSpans(rest)})
		default:
			blocks = append(blocks, Block{Kind: KindParagraph, Spans: SplitBoldSpans(trimmed)})
		}
	}
	return blocks
}

func numberedItem(s string) bool {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i > 0 && i+1 < len(s) && s[i] == '.' && s[i+1] == ' '
}

func splitNumbered(s string) (int, string) {
	i := 0
	num := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		num = num*10 + int(s[i]-'0')
		i++
	}
	return num, strings.TrimSpace(s[i+1:])
}

// SplitBoldSpans splits text on **...** pairs. With an unbalanced marker
// the text degrades to a single plain span, markers included.
func SplitBoldSpans(text string) []Span {
	parts := strings.Split(text, "**")
	if len(parts)%2 == 0 {
		return []Span{{Text: text}}
	}
	var spans []Span
	for i, part := range parts {
		if part == "" {
			continue
		}
		spans = append(spans, Span{Text: part, Bold: i%2 == 1})
	}
	if spans == nil {
		spans = []Span{{Text: ""}}
	}
	return spans
}

// headingSizes maps heading level to half-point font size strings.
var headingSizes = map[int]string{2: "32", 3: "28", 4: "26"}

// Render writes the parsed blocks into a new document.
func Render(blocks []Block) (*docx.Docx, error) {
	doc := docx.New().WithDefaultTheme()
	for _, b := range blocks {
		p := doc.AddParagraph()
		switch b.Kind {
		case KindHeading:
			size, ok := headingSizes[b.Level]
			if !ok {
				size = headingSizes[4]
			}
			for _, sp := range b.Spans {
				p.AddText(sp.Text).Size(size).Bold()
			}
		case KindBullet:
			p.AddText("• ")
			addSpans(p, b.Spans)
		case KindNumbered:
			p.AddText(fmt.Sprintf("%d. ", b.Number))
			addSpans(p, b.Spans)
		default:
			addSpans(p, b.Spans)
		}
	}
	return doc, nil
}

func addSpans(p *docx.Paragraph, spans []Span) {
	for _, sp := range spans {
		r := p.AddText(sp.Text)
		if sp.Bold {
			r.Bold()
		}
	}
}

// Export renders report markup into a Word document and returns the file
// bytes. Blank input is an error rather than an empty file.
func Export(text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyReport
	}
	doc, err := Render(ParseMarkup(text))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write docx: %w", err)
	}
	return buf.Bytes(), nil
}
