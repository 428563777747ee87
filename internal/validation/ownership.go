package validation

import (
	"fmt"
	"strings"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

// CheckDocumentOwnership warns about supporting documents that mention neither
// the declared id number nor the first segment of the declared address. The
// Identity document and tabular sheets are skipped.
func CheckDocumentOwnership(decl types.ApplicantDeclaration, docs []types.RawDocument) []types.Finding {
	id := strings.TrimSpace(decl.IDNumber)
	addr := addressKeyword(decl.Address)

	var findings []types.Finding
	for _, doc := range docs {
		if doc.Kind == types.KindIdentity || doc.Kind.IsTabular() || strings.TrimSpace(doc.Text) == "" {
			continue
		}
		text := strings.ToLower(doc.Text)

		var missing []string
		if id != "" && !strings.Contains(text, strings.ToLower(id)) {
			missing = append(missing, fmt.Sprintf("ID %s missing", id))
		}
		if addr != "" && !strings.Contains(text, addr) {
			missing = append(missing, fmt.Sprintf("address keyword %q missing", addr))
		}
		if len(missing) == 0 {
			continue
		}
		findings = append(findings, types.Finding{
			Check:     types.CheckOwnership,
			Documents: []types.DocumentKind{doc.Kind},
			Severity:  types.SeverityWarning,
			Message:   fmt.Sprintf("%s in %s document", strings.Join(missing, ", "), doc.Kind),
		})
	}
	return findings
}

func addressKeyword(address string) string {
	first, _, _ := strings.Cut(address, ",")
	return strings.ToLower(strings.TrimSpace(first))
}
