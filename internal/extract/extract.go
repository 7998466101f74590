// Package extract pulls plain text out of an uploaded source document
// so it can be handed to the LLM for script generation. txt and md are
// decoded directly; pdf pages are concatenated via ledongthuc/pdf.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedFormat is returned for any extension other than
// .txt, .md, or .pdf.
var ErrUnsupportedFormat = fmt.Errorf("extract: unsupported document format")

// Text extracts plain text from path, dispatching on its extension.
func Text(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return textFile(path)
	case ".md":
		return textFile(path)
	case ".pdf":
		return pdfFile(path)
	default:
		return "", ErrUnsupportedFormat
	}
}

func textFile(path string) (string, error) {
	data, err := readAll(path)
	if err != nil {
		return "", err
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	// Fall back to treating the bytes as latin-1, mapping each byte
	// directly to its Unicode code point.
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes), nil
}

func pdfFile(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("extract: open pdf: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	pages := r.NumPage()
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		buf.WriteString(content)
		buf.WriteString("\n")
	}
	if buf.Len() == 0 {
		return "", fmt.Errorf("extract: no text extracted from %d page(s)", pages)
	}
	return buf.String(), nil
}

func readAll(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
