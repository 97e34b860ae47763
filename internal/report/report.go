package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/encoding/charmap"

	"simcheck/internal/score"
)

type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
	FormatJSON Format = "json"
)

var ErrUnknownFormat = errors.New("unknown report format")

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatHTML, FormatPDF, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Extension is the file extension, without the dot, for artifacts of this format.
func (f Format) Extension() string { return string(f) }

// Document pairs the original text, cut into highlight segments, with the
// summary it was scored with. It is built once per submission and not
// modified afterwards.
type Document struct {
	SubmissionID string
	Title        string
	GeneratedAt  time.Time
	Summary      score.Summary
	Segments     []Segment
}

func New(submissionID, text string, summary score.Summary) *Document {
	return &Document{
		SubmissionID: submissionID,
		Title:        "Similarity report for submission " + submissionID,
		GeneratedAt:  time.Now().UTC(),
		Summary:      summary,
		Segments:     Segments(text, summary.MatchingWords),
	}
}

func (d *Document) Unique() int { return d.Summary.Unique() }

// Options tune rendering. FontPath names a TrueType font with Unicode
// coverage used for PDF output; without it the built-in Helvetica limits PDF
// text to the cp1252 character set.
type Options struct {
	FontPath string
}

// Render writes the document in the given format with default options.
func (d *Document) Render(w io.Writer, format Format) error {
	return d.RenderWith(w, format, Options{})
}

func (d *Document) RenderWith(w io.Writer, format Format, opts Options) error {
	switch format {
	case FormatHTML:
		return d.renderHTML(w)
	case FormatPDF:
		return d.renderPDF(w, opts.FontPath)
	case FormatJSON:
		return d.renderJSON(w)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Bytes renders the document into memory.
func (d *Document) Bytes(format Format) ([]byte, error) {
	return d.BytesWith(format, Options{})
}

func (d *Document) BytesWith(format Format, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := d.RenderWith(&buf, format, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var htmlTemplate = template.Must(template.New("report").Parse(`{{define "highlight"}}{{range .}}{{if .Mark}}<mark>{{.Text}}</mark>{{else}}{{.Text}}{{end}}{{end}}{{end}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; margin-bottom: 1.5em; }
td, th { border: 1px solid #ccc; padding: 4px 12px; text-align: left; }
.text { white-space: pre-wrap; line-height: 1.5; }
mark { background: #ffd54f; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>Generated {{.GeneratedAt.Format "2006-01-02 15:04:05 MST"}}</p>
<table>
<tr><th>Plagiarised</th><td>{{.Summary.Plagiarised}}%</td></tr>
<tr><th>Exact match</th><td>{{.Summary.Exact}}%</td></tr>
<tr><th>Partial match</th><td>{{.Summary.Partial}}%</td></tr>
<tr><th>Unique</th><td>{{.Unique}}%</td></tr>
</table>
<div class="text">{{template "highlight" .Segments}}</div>
</body>
</html>
`))

func (d *Document) renderHTML(w io.Writer) error {
	if err := htmlTemplate.Execute(w, d); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	return nil
}

// HighlightedHTML is the escaped text body with marked words wrapped in <mark>.
func (d *Document) HighlightedHTML() (string, error) {
	var b strings.Builder
	if err := htmlTemplate.ExecuteTemplate(&b, "highlight", d.Segments); err != nil {
		return "", fmt.Errorf("render highlight: %w", err)
	}
	return b.String(), nil
}

type jsonReport struct {
	SubmissionID  string    `json:"submission_id"`
	Title         string    `json:"title"`
	GeneratedAt   time.Time `json:"generated_at"`
	Plagiarised   int       `json:"plagiarised"`
	Exact         int       `json:"exact"`
	Partial       int       `json:"partial"`
	Unique        int       `json:"unique"`
	MatchingWords []string  `json:"matching_words"`
	Highlighted   string    `json:"highlighted_html"`
}

func (d *Document) renderJSON(w io.Writer) error {
	body, err := d.HighlightedHTML()
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(jsonReport{
		SubmissionID:  d.SubmissionID,
		Title:         d.Title,
		GeneratedAt:   d.GeneratedAt,
		Plagiarised:   d.Summary.Plagiarised,
		Exact:         d.Summary.Exact,
		Partial:       d.Summary.Partial,
		Unique:        d.Unique(),
		MatchingWords: d.Summary.MatchingWords,
		Highlighted:   body,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

const pdfLineHeight = 6

// Unencodable counts the runes of the document text and title that the
// built-in PDF fonts cannot show.
func (d *Document) Unencodable() int {
	n := countUnencodable(d.Title)
	for _, seg := range d.Segments {
		n += countUnencodable(seg.Text)
	}
	return n
}

func countUnencodable(s string) int {
	n := 0
	for _, r := range s {
		if _, ok := charmap.Windows1252.EncodeRune(r); !ok {
			n++
		}
	}
	return n
}

func (d *Document) renderPDF(w io.Writer, fontPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	family := "Helvetica"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if fontPath != "" {
		family = "report"
		pdf.AddUTF8Font(family, "", fontPath)
		pdf.AddUTF8Font(family, "B", fontPath)
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("load pdf font %s: %w", fontPath, err)
		}
		tr = func(s string) string { return s }
	}
	pdf.SetTitle(tr(d.Title), fontPath != "")
	pdf.AddPage()

	pdf.SetFont(family, "B", 16)
	pdf.MultiCell(0, 8, tr(d.Title), "", "L", false)
	pdf.SetFont(family, "", 9)
	pdf.CellFormat(0, 6, d.GeneratedAt.Format("2006-01-02 15:04:05 MST"), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont(family, "", 11)
	for _, row := range []struct {
		label string
		value int
	}{
		{"Plagiarised", d.Summary.Plagiarised},
		{"Exact match", d.Summary.Exact},
		{"Partial match", d.Summary.Partial},
		{"Unique", d.Unique()},
	} {
		pdf.CellFormat(40, 7, row.label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%d%%", row.value), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	for _, seg := range d.Segments {
		if seg.Mark {
			pdf.SetFont(family, "B", 11)
			pdf.SetTextColor(200, 30, 30)
		} else {
			pdf.SetFont(family, "", 11)
			pdf.SetTextColor(0, 0, 0)
		}
		pdf.Write(pdfLineHeight, tr(seg.Text))
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf report: %w", err)
	}
	return nil
}
