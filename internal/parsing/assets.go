package parsing

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

var (
	estimatedValueRe = regexp.MustCompile(`(?i)estimated\s+value`)
	valueHeaderRe    = regexp.MustCompile(`(?i)\bvalue\b`)
	totalRowRe       = regexp.MustCompile(`(?i)^\s*(?:grand\s+)?total\b`)
	nonAmountHeadRe  = regexp.MustCompile(`(?i)\b(?:year|date|age|qty|quantity|count|units?|no\.?|number|id|area|sq\.?\s*ft|size)\b`)
	totalValueRe     = regexp.MustCompile(`(?im)total\s+(?:estimated\s+)?(?:asset\s+)?value[ \t]*(?:\([^)]*\))?[ \t]*:[ \t]*(.+)$`)
)

// AssetSheetExtractor sums the estimated values listed in the assets sheet.
// It prefers an "Estimated Value" column, falls back to the amount cells of
// columns whose header does not name a year or quantity, and finally to a
// "Total Value:" line in the text.
type AssetSheetExtractor struct{}

// Kind implements Extractor.
func (AssetSheetExtractor) Kind() types.DocumentKind { return types.KindAssetSheet }

// Extract implements Extractor. A sheet without any asset value is a Fail.
func (AssetSheetExtractor) Extract(doc types.RawDocument) (types.ExtractedRecord, []types.Finding) {
	rec := types.NewRecord(types.KindAssetSheet, doc.Name)
	f := newFieldReader(doc)

	if len(doc.Rows) > 0 {
		total, items, ok := sumAssetRows(doc.Rows, f)
		if ok {
			rec.Assets.TotalAssetValue = &total
			rec.Assets.ItemCount = items
			return rec, f.findings
		}
	}

	rec.Assets.TotalAssetValue = f.amount("totalAssetValue", totalValueRe, types.SeverityFail)
	return rec, f.findings
}

// sumAssetRows totals the value column, or every amount cell outside
// year/quantity columns when no value column exists. Unparseable cells in
// the value column are reported.
func sumAssetRows(rows [][]string, f *fieldReader) (total float64, items int, ok bool) {
	headerIdx, col := findValueColumn(rows)
	skip := nonAmountColumns(rows, headerIdx, col)

	start := headerIdx + 1
	for r := start; r < len(rows); r++ {
		row := rows[r]
		if len(row) > 0 && totalRowRe.MatchString(row[0]) {
			continue
		}
		if col >= 0 {
			if col >= len(row) || strings.TrimSpace(row[col]) == "" {
				continue
			}
			v, err := ParseAmount(row[col])
			if err != nil {
				f.unparseable("totalAssetValue", row[col], fmt.Sprintf("amount in row %d", r+1))
				continue
			}
			total += v
			items++
			ok = true
			continue
		}
		for c, cell := range row {
			cell = strings.TrimSpace(cell)
			if cell == "" || skip[c] || !looksLikeAmount(strings.ReplaceAll(cell, " ", "")) {
				continue
			}
			if v, err := ParseAmount(cell); err == nil {
				total += v
				items++
				ok = true
			}
		}
	}
	return total, items, ok
}

// nonAmountColumns marks the columns whose header names a year, date or
// quantity. It only applies when there is no value column.
func nonAmountColumns(rows [][]string, headerIdx, col int) map[int]bool {
	skip := map[int]bool{}
	if col >= 0 || headerIdx >= len(rows) {
		return skip
	}
	for c, head := range rows[headerIdx] {
		if nonAmountHeadRe.MatchString(head) {
			skip[c] = true
		}
	}
	return skip
}

// findValueColumn locates the header row and the value column index. When no
// header mentions a value it returns the first row as header and column -1.
func findValueColumn(rows [][]string) (headerIdx, col int) {
	for r, row := range rows {
		fallback := -1
		for c, cell := range row {
			if estimatedValueRe.MatchString(cell) {
				return r, c
			}
			if fallback < 0 && valueHeaderRe.MatchString(cell) {
				fallback = c
			}
		}
		if fallback >= 0 {
			return r, fallback
		}
	}
	return 0, -1
}
