package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Format is the detected file format of an ingested document.
type Format string

// Supported formats
const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatCSV  Format = "csv"
	FormatText Format = "text"
)

// Metadata describes an ingested document file.
type Metadata struct {
	Name       string `json:"name"`
	Format     Format `json:"format"`
	Size       int    `json:"size"`
	Hash       string `json:"hash"` // SHA256 hex digest of the raw bytes
	Pages      int    `json:"pages,omitempty"`
	Rows       int    `json:"rows,omitempty"`
	IngestedAt string `json:"ingested_at"` // RFC3339
}

// NewMetadata creates Metadata for raw file content with the current timestamp.
func NewMetadata(name string, format Format, data []byte) *Metadata {
	return &Metadata{
		Name:       name,
		Format:     format,
		Size:       len(data),
		Hash:       computeHash(data),
		IngestedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

func computeHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// ToJSON marshals Metadata to pretty-printed JSON.
func (m *Metadata) ToJSON() ([]byte, error) {
	jsonBytes, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata to JSON: %w", err)
	}
	return jsonBytes, nil
}
