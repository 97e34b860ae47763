package ingest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-shiori/go-readability"
	"github.com/ledongthuc/pdf"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeHTML = "text/html"
	mimeText = "text/plain"
)

// MaxUploadBytes bounds how much of an uploaded file is read.
const MaxUploadBytes = 10 << 20

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrNotUTF8         = errors.New("text is not valid UTF-8")
	ErrTooLarge        = errors.New("file too large")
)

type Parsed struct {
	Title      string
	SourcePath string
	MIME       string
	Text       string
}

func ParseFile(path string) (*Parsed, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.Size() > MaxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, info.Size())
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	parsed, err := ParseBytes(filepath.Base(path), raw)
	if err != nil {
		return nil, err
	}
	parsed.SourcePath = path
	return parsed, nil
}

// ParseBytes extracts plain text from an uploaded document. The type is taken
// from the file extension and, when that is missing or unknown, sniffed from
// the content.
func ParseBytes(name string, raw []byte) (*Parsed, error) {
	if len(raw) > MaxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(raw))
	}
	kind := typeFromExt(name)
	if kind == "" {
		kind = sniff(raw)
	}

	var (
		text string
		err  error
	)
	switch kind {
	case mimeDOCX:
		text, err = parseDOCX(raw)
	case mimePDF:
		text, err = parsePDF(raw)
	case mimeHTML:
		text, err = parseHTML(name, raw)
	case mimeText:
		text, err = parseText(raw)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, name)
	}
	if err != nil {
		return nil, err
	}

	title := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	return &Parsed{
		Title: title,
		MIME:  kind,
		Text:  normalizeWhitespace(text),
	}, nil
}

func typeFromExt(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".docx":
		return mimeDOCX
	case ".pdf":
		return mimePDF
	case ".html", ".htm":
		return mimeHTML
	case ".txt", ".md", ".text":
		return mimeText
	default:
		return ""
	}
}

func sniff(raw []byte) string {
	mt := mimetype.Detect(raw)
	for _, kind := range []string{mimePDF, mimeDOCX, mimeHTML, mimeText} {
		if mt.Is(kind) {
			return kind
		}
	}
	return mt.String()
}

func parseText(raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", ErrNotUTF8
	}
	return string(raw), nil
}

func parseHTML(name string, raw []byte) (string, error) {
	pageURL := &url.URL{Scheme: "file", Path: "/" + filepath.Base(name)}
	article, err := readability.FromReader(bytes.NewReader(raw), pageURL)
	if err != nil {
		return "", fmt.Errorf("extract html text: %w", err)
	}
	return article.TextContent, nil
}

func parseDOCX(raw []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open docx zip: %w", err)
	}

	var xmlData []byte
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			rc, openErr := f.Open()
			if openErr != nil {
				return "", fmt.Errorf("open document.xml: %w", openErr)
			}
			xmlData, err = io.ReadAll(io.LimitReader(rc, MaxUploadBytes))
			rc.Close()
			if err != nil {
				return "", fmt.Errorf("read document.xml: %w", err)
			}
			break
		}
	}
	if len(xmlData) == 0 {
		return "", fmt.Errorf("word/document.xml not found")
	}

	decoder := xml.NewDecoder(bytes.NewReader(xmlData))
	var b strings.Builder
	inText := false
	for {
		tok, tokenErr := decoder.Token()
		if tokenErr == io.EOF {
			break
		}
		if tokenErr != nil {
			return "", fmt.Errorf("decode document.xml: %w", tokenErr)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "p":
				if b.Len() > 0 {
					b.WriteString("\n")
				}
			case "tab", "br":
				b.WriteString(" ")
			}
		case xml.EndElement:
			if t.Name.Local == "t" {
				inText = false
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}

func parsePDF(raw []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	total := r.NumPage()
	for i := 1; i <= total; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, pageErr := p.GetPlainText(nil)
		if pageErr != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no extractable text found in pdf")
	}
	return b.String(), nil
}

func normalizeWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.Join(strings.Fields(line), " ")
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
