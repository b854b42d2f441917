package extractor

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/core/ports"
)

// Dispatcher routes a stored document to the extractor for its file type.
// The supported set mirrors what the upload endpoint accepts; anything else
// fails with an invalid-input kind so processing marks the document failed
// instead of retrying forever.
type Dispatcher struct {
	storage ports.ObjectStorage
}

func NewDispatcher(storage ports.ObjectStorage) *Dispatcher {
	return &Dispatcher{storage: storage}
}

var plaintextExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".log":      true,
	".go":       true,
	".py":       true,
	".js":       true,
	".ts":       true,
	".json":     true,
	".yaml":     true,
	".yml":      true,
}

func (d *Dispatcher) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	reader, err := d.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(doc.Filename))
	switch {
	case plaintextExtensions[ext]:
		return extractPlaintext(doc.Filename, raw)
	case ext == ".pdf":
		return extractPDF(raw)
	case ext == ".xlsx":
		return extractXLSX(raw)
	case ext == ".csv":
		return extractCSV(raw)
	case ext == ".docx":
		return extractDOCX(raw)
	case ext == ".html", ext == ".htm":
		return extractHTML(raw)
	case ext == ".xml":
		return extractXML(raw)
	default:
		return "", domain.WrapError(
			domain.ErrInvalidInput,
			"extract text",
			fmt.Errorf("unsupported file type: %s", doc.Filename),
		)
	}
}

func extractPlaintext(filename string, raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", domain.WrapError(
			domain.ErrInvalidInput,
			"extract text",
			fmt.Errorf("file is not valid utf-8: %s", filename),
		)
	}
	return strings.TrimSpace(string(raw)), nil
}
