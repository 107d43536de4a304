package document

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// MarkerPattern matches a page marker and the newline that follows it.
var MarkerPattern = regexp.MustCompile(`\[\[page (\d+)\]\]\n?`)

// PageMarker returns the marker written before the text of 1-based page n.
func PageMarker(n int) string {
	return "[[page " + strconv.Itoa(n) + "]]"
}

// PageSource is the per-page text capability of an opened document.
// *fitz.Document satisfies it.
type PageSource interface {
	NumPage() int
	Text(pageNumber int) (string, error)
	Close() error
}

// Extractor turns PDF bytes into normalized text with page markers.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates an Extractor. A nil logger uses slog.Default().
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extract opens the PDF held in data and returns its marked, normalized
// text together with the page count.
func (e *Extractor) Extract(ctx context.Context, data []byte) (string, int, error) {
	if len(data) == 0 {
		return "", 0, ErrEmptyDocument
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	text, err := e.ExtractPages(ctx, doc)
	if err != nil {
		return "", 0, err
	}
	return text, doc.NumPage(), nil
}

// ExtractPages reads every page of src in order, prefixes each page's text
// with its marker and normalizes the concatenation. Pages whose text cannot
// be read are logged and skipped. It fails with ErrExtractionFailed when no
// page produced any text.
func (e *Extractor) ExtractPages(ctx context.Context, src PageSource) (string, error) {
	pages := src.NumPage()
	if pages <= 0 {
		return "", ErrEmptyDocument
	}

	var b strings.Builder
	withText := 0
	for i := 0; i < pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := src.Text(i)
		if err != nil {
			e.logger.Warn("Skipping unreadable page", "page", i+1, "error", err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			e.logger.Debug("Page has no text", "page", i+1)
			continue
		}

		withText++
		b.WriteString("\n\n")
		b.WriteString(PageMarker(i + 1))
		b.WriteString("\n")
		b.WriteString(text)
	}

	if withText == 0 {
		return "", fmt.Errorf("%w: %d pages", ErrExtractionFailed, pages)
	}

	e.logger.Debug("Extracted document text", "pages", pages, "pages_with_text", withText)
	return Normalize(b.String()), nil
}
