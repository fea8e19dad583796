// Package extract pulls best-effort plain text out of uploaded documents.
// Nothing in this package returns an error to its caller: a document that
// cannot be read yields an empty string and a debug log entry.
package extract

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"gora/internal/logging"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// DefaultMaxPages bounds PDF extraction latency on large documents.
const DefaultMaxPages = 15

// Extractor extracts text from PDF and word-processing documents.
type Extractor struct {
	// MaxPages caps the number of PDF pages read. 0 means unbounded.
	MaxPages int
}

// New returns an extractor with the given page cap.
func New(maxPages int) *Extractor {
	if maxPages < 0 {
		maxPages = 0
	}
	return &Extractor{MaxPages: maxPages}
}

// PDF concatenates the plain text of every page up to the page cap.
func (e *Extractor) PDF(name string, data []byte) (text string) {
	log := logging.Get(logging.CategoryExtract)
	defer func() {
		// The PDF reader panics on some malformed xref tables.
		if r := recover(); r != nil {
			log.Debug("pdf reader panicked", zap.String("file", name), zap.Any("panic", r))
			text = ""
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		log.Debug("pdf open failed", zap.String("file", name), zap.Error(err))
		return ""
	}

	pages := r.NumPage()
	limit := pages
	if e.MaxPages > 0 && limit > e.MaxPages {
		limit = e.MaxPages
	}

	var sb strings.Builder
	for i := 1; i <= limit; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			log.Debug("pdf page skipped", zap.String("file", name), zap.Int("page", i), zap.Error(err))
			continue
		}
		sb.WriteString(pageText)
	}

	log.Debug("pdf extracted",
		zap.String("file", name),
		zap.Int("pages", pages),
		zap.Int("read", limit),
		zap.Int("chars", sb.Len()))
	return sb.String()
}

// DOCX joins paragraph text in document order with newlines.
func (e *Extractor) DOCX(name string, data []byte) (text string) {
	log := logging.Get(logging.CategoryExtract)
	defer func() {
		if r := recover(); r != nil {
			log.Debug("docx reader panicked", zap.String("file", name), zap.Any("panic", r))
			text = ""
		}
	}()

	paragraphs, err := docxParagraphs(data)
	if err != nil {
		log.Debug("docx read failed", zap.String("file", name), zap.Error(err))
		return ""
	}
	return strings.Join(paragraphs, "\n")
}

// Text returns data as text when it is valid UTF-8, dropping a leading BOM.
func (e *Extractor) Text(name string, data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		logging.Get(logging.CategoryExtract).Debug("text is not utf-8", zap.String("file", name))
		return strings.ToValidUTF8(string(data), "�")
	}
	return string(data)
}
