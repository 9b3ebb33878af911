package textproc

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/liliang-cn/ragdesk/internal/domain"
	"golang.org/x/text/encoding/charmap"
)

// ExtractFile reads path and returns its cleaned text content
func ExtractFile(path, fileType string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return Extract(f, fileType)
}

// Extract returns the cleaned text content of r. An empty result is an
// extraction error.
func Extract(r io.Reader, fileType string) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}

	var text string
	switch fileType {
	case FileTypePDF:
		text, err = extractPDF(b)
	case FileTypeTXT, FileTypeMD:
		text, err = decodeText(b)
	default:
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, fileType)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}

	text = Clean(text)
	if text == "" {
		return "", fmt.Errorf("%w: no text found in document", domain.ErrExtraction)
	}
	return text, nil
}

func extractPDF(b []byte) (string, error) {
	if len(b) == 0 {
		return "", nil
	}
	reader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read page %d: %w", i, err)
		}
		if strings.TrimSpace(content) == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(content)
	}
	return sb.String(), nil
}

// decodeText reads UTF-8, falling back to Windows-1252 for legacy files
func decodeText(b []byte) (string, error) {
	b = bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))
	if utf8.Valid(b) {
		return string(b), nil
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("failed to decode text: %w", err)
	}
	return string(out), nil
}
