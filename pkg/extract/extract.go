// Package extract pulls plain text out of uploaded document files.
// It supports UTF-8 text files and PDFs.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

const (
	// MaxFileBytes caps upload size at 10 MiB.
	MaxFileBytes = 10 << 20

	// MinContentLen is the minimum extracted text length, in bytes,
	// for a document to be considered non-empty.
	MinContentLen = 10
)

var (
	ErrTooLarge        = errors.New("extract: file exceeds maximum size")
	ErrEmptyContent    = errors.New("extract: extracted text is too short or empty")
	ErrUnsupportedType = errors.New("extract: unsupported file type")
)

// Result is the outcome of a successful extraction.
type Result struct {
	Text string
	// FileType is "txt" or "pdf".
	FileType string
}

// FromBytes extracts text from raw file content. The file type is sniffed
// from the content itself, not from the filename extension.
func FromBytes(content []byte) (Result, error) {
	if len(content) > MaxFileBytes {
		return Result{}, ErrTooLarge
	}

	var res Result
	var err error
	switch {
	case bytes.HasPrefix(content, []byte("%PDF-")):
		res, err = fromPDF(content)
	default:
		res, err = fromText(content)
	}
	if err != nil {
		return Result{}, err
	}

	if len(strings.TrimSpace(res.Text)) < MinContentLen {
		return Result{}, ErrEmptyContent
	}
	return res, nil
}

func fromText(content []byte) (Result, error) {
	if !utf8.Valid(content) {
		if looksBinary(content) {
			return Result{}, ErrUnsupportedType
		}
		// Treat as Latin-1 and transcode.
		runes := make([]rune, len(content))
		for i, b := range content {
			runes[i] = rune(b)
		}
		return Result{Text: string(runes), FileType: "txt"}, nil
	}
	if looksBinary(content) {
		return Result{}, ErrUnsupportedType
	}
	return Result{Text: string(content), FileType: "txt"}, nil
}

// looksBinary reports whether the content contains NUL bytes, which no
// text encoding we accept produces.
func looksBinary(content []byte) bool {
	return bytes.IndexByte(content, 0) >= 0
}

func fromPDF(content []byte) (Result, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return Result{}, fmt.Errorf("extract: reading pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that fail to decode rather than losing
			// the whole document.
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return Result{Text: sb.String(), FileType: "pdf"}, nil
}
