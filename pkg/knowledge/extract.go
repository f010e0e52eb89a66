package knowledge

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Extractor returns the plain text of the document at path.
type Extractor func(path string) (string, error)

// DefaultExtractors handles PDF, plain text and markdown documents.
func DefaultExtractors() map[string]Extractor {
	return map[string]Extractor{
		".pdf": ExtractPDF,
		".txt": ExtractText,
		".md":  ExtractText,
	}
}

// ExtractPDF returns the text of every page of a PDF document.
func ExtractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

// ExtractText reads a UTF-8 text document.
func ExtractText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", errors.New("document is not valid UTF-8")
	}
	return string(data), nil
}
