package documents

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	errx "github.com/vmk-assistant/server/internal/core/error"
)

const (
	DefaultMaxChars = 3000
	// ContentMarker prefixes extracted text so the model can tell it apart from typed input.
	ContentMarker = "File contents:\n"
)

// Extractor converts uploaded documents into bounded plain text.
type Extractor struct {
	maxChars int
}

// NewExtractor returns an Extractor capping output at maxChars characters
// (DefaultMaxChars when maxChars <= 0).
func NewExtractor(maxChars int) *Extractor {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Extractor{maxChars: maxChars}
}

// ExtensionOf returns the lower-cased extension of fileName without the dot.
func ExtensionOf(fileName string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
}

// Supported reports whether ext can be extracted.
func Supported(ext string) bool {
	switch normalize(ext) {
	case "pdf", "txt":
		return true
	}
	return false
}

// Extract returns the marker-prefixed, truncated text of data.
// Unknown extensions fail with errx.ErrUnsupportedFormat, unreadable content
// with errx.ErrExtraction.
func (e *Extractor) Extract(data []byte, ext string) (string, error) {
	var (
		text string
		err  error
	)
	switch normalize(ext) {
	case "pdf":
		text, err = pdfText(data)
	case "txt":
		text, err = plainText(data)
	default:
		return "", errx.UnsupportedFormat(ext)
	}
	if err != nil {
		return "", errx.Extraction(err)
	}
	return ContentMarker + truncateRunes(text, e.maxChars), nil
}

// ExtractFile reads path and extracts it using the extension of path.
func (e *Extractor) ExtractFile(path string) (string, error) {
	ext := ExtensionOf(path)
	if !Supported(ext) {
		return "", errx.UnsupportedFormat(ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errx.Extraction(fmt.Errorf("read %s: %w", filepath.Base(path), err))
	}
	return e.Extract(data, ext)
}

func plainText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("text is not valid UTF-8")
	}
	return string(data), nil
}

func pdfText(data []byte) (text string, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, content)
	}
	return strings.Join(pages, "\n"), nil
}

func normalize(ext string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
