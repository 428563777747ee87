package parsing

import (
	"fmt"
	"strings"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

// Extraction reason codes
const (
	ReasonEmptyDocument   = "empty_document"
	ReasonUnsupportedKind = "unsupported_kind"
	ReasonUnreadable      = "unreadable_document"
)

// ExtractionError describes a document that could not be extracted at all.
// It never aborts sibling extractions; it is turned into a Fail finding.
type ExtractionError struct {
	Kind     types.DocumentKind
	Reason   string
	Messages []string
	Cause    error
}

func (e *ExtractionError) Error() string {
	msg := strings.Join(e.Messages, "; ")
	if e.Cause != nil {
		return fmt.Sprintf("extraction failed for %s (%s): %s: %v", e.Kind, e.Reason, msg, e.Cause)
	}
	return fmt.Sprintf("extraction failed for %s (%s): %s", e.Kind, e.Reason, msg)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// Finding converts the error into the Fail finding recorded for the run.
func (e *ExtractionError) Finding() types.Finding {
	return types.Finding{
		Check:     types.CheckExtraction,
		Documents: []types.DocumentKind{e.Kind},
		Severity:  types.SeverityFail,
		Message:   e.Error(),
	}
}

// AmountError is returned by ParseAmount when the input is not numeric once
// currency symbols and separators are removed.
type AmountError struct {
	Input string
}

func (e *AmountError) Error() string {
	return fmt.Sprintf("unparseable amount %q", e.Input)
}
