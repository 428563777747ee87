package parsing

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	currencyRe     = regexp.MustCompile(`(?i)(?:AED|USD|EUR|GBP|SAR|DHS?)|[$€£¥]|د\.إ`)
	plainNumberRe  = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
	decimalCommaRe = regexp.MustCompile(`^\d+,\d{1,2}$`)
	amountShapeRe  = regexp.MustCompile(`^\(?[-+]?(?:[A-Za-z]{3})?[$€£]?\d[\d,.]*\)?$`)
	separatorDrop  = strings.NewReplacer(" ", "", "\u00a0", "", "'", "", "\u2019", "")
)

// ParseAmount parses a monetary amount. Currency codes and symbols, thousand
// separators and surrounding whitespace are removed; "1.234,56" is read as a
// decimal-comma amount and "(500)" as negative. Anything that is not numeric
// after that returns an *AmountError.
func ParseAmount(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = currencyRe.ReplaceAllString(s, "")
	s = separatorDrop.Replace(s)
	s = strings.TrimPrefix(s, "+")
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = s[1:]
	} else if strings.HasSuffix(s, "-") {
		negative = !negative
		s = s[:len(s)-1]
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case lastDot < 0 && decimalCommaRe.MatchString(s):
		s = strings.Replace(s, ",", ".", 1)
	case lastComma < 0 && strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	default:
		s = strings.ReplaceAll(s, ",", "")
	}

	if !plainNumberRe.MatchString(s) {
		return 0, &AmountError{Input: raw}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &AmountError{Input: raw}
	}
	if negative {
		v = -v
	}
	return v, nil
}

// looksLikeAmount reports whether a single token has the shape of an amount.
func looksLikeAmount(token string) bool {
	return amountShapeRe.MatchString(token)
}

// FormatAmount renders an amount without trailing zeros, e.g. 4000 or 4000.5.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
