// Package extract pulls plain text out of supported document files.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var supportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".csv":  true,
	".html": true,
	".htm":  true,
}

// Supported reports whether the file extension is one the pipeline
// can extract text from.
func Supported(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// RawText returns the extractable text of a file. Plain formats are
// read verbatim; HTML is stripped of boilerplate elements and markup.
// An empty result is not an error, it simply yields zero chunks
// downstream.
func RawText(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !supportedExtensions[ext] {
		return "", fmt.Errorf("unsupported file type: %s", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	if ext == ".html" || ext == ".htm" {
		return htmlText(string(data))
	}

	return string(data), nil
}

func htmlText(raw string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, nav, footer, header, aside").Remove()

	text := doc.Find("body").Text()
	if text == "" {
		text = doc.Text()
	}

	return strings.Join(strings.Fields(text), " "), nil
}
