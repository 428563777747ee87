// Package types provides the data model shared by every stage of the verification pipeline.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"strings"
)

// DocumentKind identifies one of the fixed set of documents an application carries.
type DocumentKind string

// Document kinds, in the order they are processed and reported.
const (
	KindIdentity      DocumentKind = "Identity"
	KindBankStatement DocumentKind = "BankStatement"
	KindCreditReport  DocumentKind = "CreditReport"
	KindMedicalReport DocumentKind = "MedicalReport"
	KindResume        DocumentKind = "Resume"
	KindAssetSheet    DocumentKind = "AssetSheet"
)

// AllDocumentKinds returns every document kind in canonical order.
func AllDocumentKinds() []DocumentKind {
	return []DocumentKind{
		KindIdentity,
		KindBankStatement,
		KindCreditReport,
		KindMedicalReport,
		KindResume,
		KindAssetSheet,
	}
}

// kindAliases maps lowercase, separator-free spellings to kinds.
var kindAliases = map[string]DocumentKind{
	"identity":      KindIdentity,
	"id":            KindIdentity,
	"emiratesid":    KindIdentity,
	"bankstatement": KindBankStatement,
	"bank":          KindBankStatement,
	"creditreport":  KindCreditReport,
	"credit":        KindCreditReport,
	"medicalreport": KindMedicalReport,
	"medical":       KindMedicalReport,
	"resume":        KindResume,
	"cv":            KindResume,
	"assetsheet":    KindAssetSheet,
	"assets":        KindAssetSheet,
}

// ParseDocumentKind resolves a kind from its canonical name or a common alias
// such as "bank_statement" or "emirates-id".
func ParseDocumentKind(s string) (DocumentKind, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("_", "", "-", "", " ", "", "&", "").Replace(key)
	if kind, ok := kindAliases[key]; ok {
		return kind, nil
	}
	return "", fmt.Errorf("unknown document kind %q", s)
}

// IsValid reports whether k is one of the known document kinds.
func (k DocumentKind) IsValid() bool {
	for _, known := range AllDocumentKinds() {
		if k == known {
			return true
		}
	}
	return false
}

// IsTabular reports whether documents of this kind are spreadsheets.
func (k DocumentKind) IsTabular() bool {
	return k == KindAssetSheet
}

// RawDocument is a single ingested document. It is treated as immutable once
// created; use NewRawDocument so the tabular rows are not shared with the caller.
type RawDocument struct {
	Kind DocumentKind `json:"kind"`
	Name string       `json:"name,omitempty"` // Source file name
	Text string       `json:"text,omitempty"`
	Rows [][]string   `json:"rows,omitempty"` // Tabular content, header row first
}

// NewRawDocument creates a RawDocument holding its own copy of rows.
func NewRawDocument(kind DocumentKind, name, text string, rows [][]string) RawDocument {
	return RawDocument{
		Kind: kind,
		Name: name,
		Text: text,
		Rows: cloneRows(rows),
	}
}

// IsEmpty reports whether the document carries no text and no rows.
func (d RawDocument) IsEmpty() bool {
	if strings.TrimSpace(d.Text) != "" {
		return false
	}
	for _, row := range d.Rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				return false
			}
		}
	}
	return true
}

func cloneRows(rows [][]string) [][]string {
	if rows == nil {
		return nil
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
	}
	return out
}
