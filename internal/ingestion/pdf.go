package ingestion

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// extractPDFText returns the text of a PDF laid out one visual row per line.
// When the row layout yields nothing it falls back to the reader's plain text
// and finally to the printable runs of the raw bytes.
func extractPDFText(data []byte) (text string, pages int, err error) {
	if len(data) == 0 {
		return "", 0, fmt.Errorf("empty PDF")
	}
	// The pdf reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, pages, err = string(extractPrintableText(data)), 0, nil
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return string(extractPrintableText(data)), 0, nil
	}

	pages = r.NumPage()
	var sb strings.Builder
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			continue
		}
		for _, row := range rows {
			line := joinRow(row.Content)
			if line == "" {
				continue
			}
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	if strings.TrimSpace(sb.String()) != "" {
		return sb.String(), pages, nil
	}

	if reader, err := r.GetPlainText(); err == nil {
		if out, err := io.ReadAll(reader); err == nil && len(bytes.TrimSpace(out)) > 0 {
			return string(out), pages, nil
		}
	}
	return string(extractPrintableText(data)), pages, nil
}

// joinRow concatenates the text runs of one row, inserting a space where the
// horizontal gap between runs is wider than a fraction of the font size.
func joinRow(words pdf.TextHorizontal) string {
	var sb strings.Builder
	for i, w := range words {
		if i > 0 {
			prev := words[i-1]
			gap := w.X - (prev.X + prev.W)
			if gap > prev.FontSize*0.15 && !strings.HasSuffix(prev.S, " ") && !strings.HasPrefix(w.S, " ") {
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(w.S)
	}
	return strings.TrimSpace(sb.String())
}

func extractPrintableText(in []byte) []byte {
	var out bytes.Buffer
	for len(in) > 0 {
		r, size := utf8.DecodeRune(in)
		if r == utf8.RuneError && size == 1 {
			if isPrintableASCII(in[0]) {
				out.WriteByte(in[0])
			}
			in = in[1:]
			continue
		}
		in = in[size:]
		if r == '\n' || r == '\t' || (r >= 32 && r != utf8.RuneError && r != 0x7f) {
			out.WriteRune(r)
		}
	}
	return out.Bytes()
}

func isPrintableASCII(b byte) bool {
	return b == '\n' || b == '\r' || b == '\t' || (b >= 32 && b < 127)
}
