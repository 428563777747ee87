package parsing

import (
	"regexp"
	"strings"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

var (
	idNumberRe   = regexp.MustCompile(`(?im)\b(?:ID|Identity)\s*(?:Number|No\.?)[ \t]*:[ \t]*(.+)$`)
	fullNameRe   = regexp.MustCompile(`(?im)(?:^|\s)(?:full\s+)?name[ \t]*:[ \t]*(.+)$`)
	maritalRe    = regexp.MustCompile(`(?im)marital\s+status[ \t]*:[ \t]*([A-Za-z-]+)`)
	familySizeRe = regexp.MustCompile(`(?im)family\s+size[ \t]*:[ \t]*(\S+)`)
	idValueRe    = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 -]*$`)
)

// IdentityExtractor reads the identity card.
type IdentityExtractor struct{}

// Kind implements Extractor.
func (IdentityExtractor) Kind() types.DocumentKind { return types.KindIdentity }

// Extract implements Extractor. A missing or unparsable id number or name is a Fail.
func (IdentityExtractor) Extract(doc types.RawDocument) (types.ExtractedRecord, []types.Finding) {
	rec := types.NewRecord(types.KindIdentity, doc.Name)
	f := newFieldReader(doc)

	if raw, ok := labelValue(doc.Text, idNumberRe); !ok {
		f.missing("idNumber", types.SeverityFail)
	} else if !idValueRe.MatchString(raw) || !strings.ContainsAny(raw, "0123456789") {
		f.unparseable("idNumber", raw, "identity number")
	} else {
		rec.Identity.IDNumber = &raw
	}

	rec.Identity.FullName = f.str("fullName", fullNameRe, types.SeverityFail)
	rec.Identity.MaritalStatus = f.str("maritalStatus", maritalRe, types.SeverityInfo)
	rec.Identity.FamilySize = f.count("familySize", familySizeRe, types.SeverityInfo)

	return rec, f.findings
}
