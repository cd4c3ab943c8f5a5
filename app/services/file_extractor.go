package services

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Supported upload extensions
var ErrUnsupportedFileType = errors.New("unsupported file type, only .txt and .pdf are accepted")

// MaxUploadSize caps accepted disclosure documents at 10 MiB
const MaxUploadSize = 10 << 20

// TextExtractor pulls plain text out of uploaded disclosure documents so the
// analyzer can include them in its prompt.
type TextExtractor interface {
	ExtractText(filename string, data []byte) (string, error)
}

type textExtractorImpl struct{}

func NewTextExtractor() TextExtractor {
	return &textExtractorImpl{}
}

func (e *textExtractorImpl) ExtractText(filename string, data []byte) (string, error) {
	if len(data) > MaxUploadSize {
		return "", fmt.Errorf("file exceeds maximum size of %d bytes", MaxUploadSize)
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		if !utf8.Valid(data) {
			return "", errors.New("text file is not valid UTF-8")
		}
		return string(data), nil
	case ".pdf":
		return extractPDFText(data)
	default:
		return "", ErrUnsupportedFileType
	}
}

func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract PDF text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, textReader); err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}

	return buf.String(), nil
}
