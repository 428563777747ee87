package ingestion

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

var (
	pdfMagic = []byte("%PDF")
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0}
)

// DetectFormat determines a document's format from its content, falling back
// to the file extension.
func DetectFormat(name string, data []byte) Format {
	switch {
	case bytes.HasPrefix(data, pdfMagic):
		return FormatPDF
	case bytes.HasPrefix(data, zipMagic):
		return FormatXLSX
	case bytes.HasPrefix(data, oleMagic):
		return FormatXLS
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return FormatPDF
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".xls":
		return FormatXLS
	case ".csv":
		return FormatCSV
	default:
		return FormatText
	}
}

// LoadDocument reads a document file from disk.
func LoadDocument(kind types.DocumentKind, path string) (types.RawDocument, *Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.RawDocument{}, nil, fmt.Errorf("file not found: %w", err)
		}
		return types.RawDocument{}, nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ReadDocument(kind, filepath.Base(path), data)
}

// ReadDocument decodes raw file content into a RawDocument of the given kind.
// Spreadsheets keep their rows and also get a tab-separated text rendering.
func ReadDocument(kind types.DocumentKind, name string, data []byte) (types.RawDocument, *Metadata, error) {
	if !kind.IsValid() {
		return types.RawDocument{}, nil, fmt.Errorf("unknown document kind %q", kind)
	}

	format := DetectFormat(name, data)
	meta := NewMetadata(name, format, data)

	var (
		text string
		rows [][]string
		err  error
	)
	switch format {
	case FormatPDF:
		text, meta.Pages, err = extractPDFText(data)
	case FormatXLSX:
		rows, err = readXLSX(data)
	case FormatXLS:
		rows, err = readXLS(data)
	case FormatCSV:
		rows, err = readCSV(data)
	default:
		text = string(data)
	}
	if err != nil {
		return types.RawDocument{}, meta, &ReadError{Name: name, Format: format, Cause: err}
	}

	if rows != nil {
		meta.Rows = len(rows)
		text = rowsToText(rows)
	}

	return types.NewRawDocument(kind, name, CleanText(text), rows), meta, nil
}
