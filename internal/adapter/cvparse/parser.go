// Package cvparse extracts plain text from uploaded CV files.
//
// Plain text is decoded locally with an encoding fallback; paginated and
// structured documents (PDF, Word) and images (OCR) are delegated to an
// external extractor. Each failure class surfaces as a distinct, descriptive
// error so the UI can suggest remediation.
package cvparse

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"github.com/fairyhunter13/job-search-rag/internal/domain"
	"github.com/fairyhunter13/job-search-rag/pkg/textx"
)

// DefaultMaxBytes is the upload size cap: 10 MB.
const DefaultMaxBytes int64 = 10 << 20

var supportedFormats = map[string]string{
	"txt":  "Plain Text",
	"pdf":  "PDF Document",
	"docx": "Word Document",
	"doc":  "Word Document (Legacy)",
	"png":  "Image (PNG)",
	"jpg":  "Image (JPEG)",
	"jpeg": "Image (JPEG)",
}

// Parser dispatches CV bytes to a format-specific extraction strategy.
type Parser struct {
	Extractor domain.TextExtractor
	MaxBytes  int64
}

// New constructs a Parser delegating non-text formats to the extractor.
func New(extractor domain.TextExtractor, maxBytes int64) *Parser {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Parser{Extractor: extractor, MaxBytes: maxBytes}
}

// SupportedExtensions lists the accepted file extensions, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(supportedFormats))
	for e := range supportedFormats {
		exts = append(exts, e)
	}
	sort.Strings(exts)
	return exts
}

// SupportedExtensions implements the discovery hook used by the API root.
func (p *Parser) SupportedExtensions() []string { return SupportedExtensions() }

// Parse extracts plain text from data. The size limit is enforced before any
// format parser runs.
func (p *Parser) Parse(ctx context.Context, data []byte, fileName string) (string, error) {
	if int64(len(data)) > p.MaxBytes {
		return "", fmt.Errorf("%w: file is %d bytes, limit is %d MB", domain.ErrTooLarge, len(data), p.MaxBytes>>20)
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
	if _, ok := supportedFormats[ext]; !ok {
		return "", fmt.Errorf("%w: .%s; supported formats: %s", domain.ErrUnsupportedMedia, ext, strings.Join(SupportedExtensions(), ", "))
	}
	switch ext {
	case "txt":
		return decodePlainText(data), nil
	case "pdf", "docx", "doc":
		if err := checkSniffedMIME(data, ext); err != nil {
			return "", err
		}
		text, err := p.extract(ctx, fileName, data)
		if err != nil {
			return "", fmt.Errorf("failed to parse %s: %w", strings.ToUpper(ext), err)
		}
		if text == "" {
			if ext == "pdf" {
				return "", fmt.Errorf("%w: no text extracted from PDF; it might be an image-based PDF", domain.ErrInvalidArgument)
			}
			return "", fmt.Errorf("%w: no text extracted from %s document", domain.ErrInvalidArgument, strings.ToUpper(ext))
		}
		return text, nil
	default: // png, jpg, jpeg
		text, err := p.extract(ctx, fileName, data)
		if err != nil {
			return "", fmt.Errorf("failed to parse image: %w", err)
		}
		if text == "" {
			return "", fmt.Errorf("%w: no text recognized in image; try a text-based format", domain.ErrInvalidArgument)
		}
		return text, nil
	}
}

func (p *Parser) extract(ctx context.Context, fileName string, data []byte) (string, error) {
	if p.Extractor == nil {
		return "", fmt.Errorf("%w: document extraction requires a Tika server (TIKA_URL)", domain.ErrConfigMissing)
	}
	text, err := p.Extractor.ExtractBytes(ctx, fileName, data)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// checkSniffedMIME rejects payloads whose detected content type contradicts
// the claimed document extension before they reach the extractor.
func checkSniffedMIME(data []byte, ext string) error {
	mt := mimetype.Detect(data)
	switch ext {
	case "pdf":
		if !mt.Is("application/pdf") {
			return fmt.Errorf("%w: content does not look like a PDF (detected %s)", domain.ErrUnsupportedMedia, mt.String())
		}
	case "docx":
		if !mt.Is("application/vnd.openxmlformats-officedocument.wordprocessingml.document") && !mt.Is("application/zip") {
			return fmt.Errorf("%w: content does not look like a DOCX (detected %s)", domain.ErrUnsupportedMedia, mt.String())
		}
	}
	return nil
}

// decodePlainText decodes UTF-8 input as-is and falls back to Latin-1 for
// byte sequences that are not valid UTF-8. Valid UTF-8 round-trips untouched.
func decodePlainText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}

// Summarize truncates extracted CV text for retrieval, preferring a sentence
// or line boundary past 70% of the target length.
func Summarize(cvText string, maxLen int) string {
	return textx.Summary(cvText, maxLen)
}
