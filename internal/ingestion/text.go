// Package ingestion turns uploaded application files (PDF, spreadsheets, text)
// into RawDocuments ready for field extraction.
package ingestion

import (
	"regexp"
	"strings"
)

var (
	inlineSpaceRe  = regexp.MustCompile(`[ \t\f\v\x{00A0}]+`)
	blankLinesRe   = regexp.MustCompile(`\n{3,}`)
	lineEndingsRep = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// CleanText normalizes extracted document text so that label patterns match
// reliably: line endings become LF, runs of spaces collapse to one, trailing
// whitespace is dropped and no more than one blank line is kept in a row.
func CleanText(content string) string {
	if content == "" {
		return ""
	}

	content = lineEndingsRep.Replace(content)

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(inlineSpaceRe.ReplaceAllString(line, " "))
	}

	result := strings.Join(lines, "\n")
	result = blankLinesRe.ReplaceAllString(result, "\n\n")
	return strings.TrimSpace(result)
}
