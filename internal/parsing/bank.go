package parsing

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

var (
	salaryLineRe   = regexp.MustCompile(`(?im)^(.*?)\bSALARY\s+TRANSFER\b(.*)$`)
	ledgerDateRe   = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{4}|\d{1,2}[- ][A-Za-z]{3}[- ]\d{4})\b`)
	balanceLabelRe = regexp.MustCompile(`(?im)(?:closing|available|ending|current|account)\s+balance[ \t]*:[ \t]*(.+)$`)
	ledgerAmountRe = regexp.MustCompile(`[\d,]+\.\d{2}`)
)

var ledgerDateLayouts = []string{"2006-01-02", "2/1/2006", "2-Jan-2006", "2 Jan 2006"}

// BankStatementExtractor reads the bank statement ledger. The monthly salary
// is the amount on the chronologically first SALARY TRANSFER line.
type BankStatementExtractor struct{}

// Kind implements Extractor.
func (BankStatementExtractor) Kind() types.DocumentKind { return types.KindBankStatement }

type salaryEntry struct {
	date   *time.Time
	raw    string
	amount *float64
}

// Extract implements Extractor. No salary transfer at all is a Fail.
func (BankStatementExtractor) Extract(doc types.RawDocument) (types.ExtractedRecord, []types.Finding) {
	rec := types.NewRecord(types.KindBankStatement, doc.Name)
	f := newFieldReader(doc)

	entries := findSalaryEntries(doc.Text)
	rec.Bank.SalaryCredits = len(entries)
	if len(entries) == 0 {
		f.missing("monthlySalary", types.SeverityFail)
	} else {
		chosen := firstSalaryEntry(entries)
		if len(entries) > 1 {
			f.note("monthlySalary", types.SeverityInfo, fmt.Sprintf(
				"%d SALARY TRANSFER entries found in %s document; using the earliest", len(entries), types.KindBankStatement))
		}
		switch {
		case chosen.amount != nil:
			rec.Bank.MonthlySalary = chosen.amount
			rec.Bank.SalaryDate = chosen.date
		case chosen.raw == "":
			f.note("monthlySalary", types.SeverityFail, fmt.Sprintf(
				"SALARY TRANSFER entry in %s document has no amount", types.KindBankStatement))
		default:
			f.unparseable("monthlySalary", chosen.raw, "amount")
		}
	}

	if _, ok := labelValue(doc.Text, balanceLabelRe); ok {
		rec.Bank.AccountBalance = f.amount("accountBalance", balanceLabelRe, types.SeverityInfo)
	} else if all := ledgerAmountRe.FindAllString(doc.Text, -1); len(all) > 0 {
		if v, err := ParseAmount(all[len(all)-1]); err == nil {
			rec.Bank.AccountBalance = &v
		}
	}
	if rec.Bank.AccountBalance == nil && !hasFieldFinding(f.findings, "accountBalance") {
		f.missing("accountBalance", types.SeverityInfo)
	}

	return rec, f.findings
}

// findSalaryEntries returns every SALARY TRANSFER line in document order.
func findSalaryEntries(text string) []salaryEntry {
	var entries []salaryEntry
	for _, m := range salaryLineRe.FindAllStringSubmatch(text, -1) {
		e := salaryEntry{date: parseLedgerDate(m[1])}
		if e.date == nil {
			e.date = parseLedgerDate(m[2])
		}
		e.raw = salaryAmountToken(m[2])
		if e.raw != "" {
			if v, err := ParseAmount(e.raw); err == nil {
				e.amount = &v
			}
		}
		entries = append(entries, e)
	}
	return entries
}

// firstSalaryEntry picks the earliest dated entry when every entry carries a
// date, and the first in document order otherwise.
func firstSalaryEntry(entries []salaryEntry) salaryEntry {
	chosen := entries[0]
	for _, e := range entries {
		if e.date == nil {
			return entries[0]
		}
		if e.date.Before(*chosen.date) {
			chosen = e
		}
	}
	return chosen
}

// salaryAmountToken returns the first amount-shaped token on the remainder of
// a salary line, or the first token carrying a digit when none is well formed.
func salaryAmountToken(rest string) string {
	rest = ledgerDateRe.ReplaceAllString(rest, " ")
	var firstDigit string
	for _, tok := range strings.Fields(rest) {
		tok = strings.Trim(tok, "-:")
		if tok == "" || !strings.ContainsAny(tok, "0123456789") {
			continue
		}
		if looksLikeAmount(tok) {
			return tok
		}
		if firstDigit == "" {
			firstDigit = tok
		}
	}
	return firstDigit
}

func parseLedgerDate(s string) *time.Time {
	m := ledgerDateRe.FindString(s)
	if m == "" {
		return nil
	}
	for _, layout := range ledgerDateLayouts {
		if t, err := time.Parse(layout, m); err == nil {
			return &t
		}
	}
	return nil
}

func hasFieldFinding(findings []types.Finding, field string) bool {
	for _, f := range findings {
		if f.Field == field {
			return true
		}
	}
	return false
}
