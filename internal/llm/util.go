package llm

import (
	"regexp"
	"strings"
)

var (
	// preambleRe matches chatty openers such as "Sure! Here is the explanation:".
	preambleRe = regexp.MustCompile(`(?i)^(?:sure|certainly|of course|here(?:'s| is))[^\n:]*:\s*`)
	spaceRunRe = regexp.MustCompile(`[ \t]+`)
)

// CleanExplanation strips markdown fences, chatty preambles, wrapping quotes
// and repeated spaces from a model reply. Small models often add these even
// when asked for plain prose.
func CleanExplanation(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		// Skip a language identifier on the first line
		if idx := strings.Index(text, "\n"); idx >= 0 && !strings.Contains(text[:idx], " ") {
			text = text[idx+1:]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	text = preambleRe.ReplaceAllString(text, "")
	text = strings.Trim(text, "\"'\u201c\u201d ")
	text = spaceRunRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
