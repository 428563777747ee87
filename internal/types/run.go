package types

import (
	"time"

	"github.com/google/uuid"
)

// Stage is a state of the decision state machine.
type Stage string

// Stages of a verification run
const (
	StageValidating                 Stage = "Validating"
	StageRejected                   Stage = "Rejected"
	StageInferring                  Stage = "Inferring"
	StageInferenceUnavailable       Stage = "InferenceUnavailable"
	StageDeciding                   Stage = "Deciding"
	StageSoftDeclined               Stage = "SoftDeclined"
	StageAccepted                   Stage = "Accepted"
	StageRecommending               Stage = "Recommending"
	StageAcceptedWithRecommendation Stage = "AcceptedWithRecommendation"
)

// IsTerminal reports whether no further transition leaves the stage.
func (s Stage) IsTerminal() bool {
	switch s {
	case StageRejected, StageInferenceUnavailable, StageSoftDeclined, StageAcceptedWithRecommendation:
		return true
	}
	return false
}

// Transition records one stage change for the audit trail.
type Transition struct {
	From   Stage     `json:"from"`
	To     Stage     `json:"to"`
	At     time.Time `json:"at"`
	Detail string    `json:"detail,omitempty"`
}

// VerificationRun is the aggregate for one application. Pipeline stages treat
// it as a value: each stage returns a new run and never edits the one it was
// given. A run holding a Verdict is terminal.
type VerificationRun struct {
	ID             uuid.UUID                        `json:"id"`
	Declaration    ApplicantDeclaration             `json:"declaration"`
	Documents      []RawDocument                    `json:"-"`
	Records        map[DocumentKind]ExtractedRecord `json:"records"`
	Findings       Findings                         `json:"findings"`
	Features       *FeatureVector                   `json:"features,omitempty"`
	Prediction     *Prediction                      `json:"prediction,omitempty"`
	Recommendation *Recommendation                  `json:"recommendation,omitempty"`
	Stage          Stage                            `json:"stage"`
	History        []Transition                     `json:"history"`
	Verdict        *Verdict                         `json:"verdict,omitempty"`
	CreatedAt      time.Time                        `json:"created_at"`
}

// IsTerminal reports whether the run has been assigned a verdict.
func (r VerificationRun) IsTerminal() bool {
	return r.Verdict != nil
}

// Clone returns a copy of the run that shares no mutable state with r.
func (r VerificationRun) Clone() VerificationRun {
	out := r
	out.Documents = append([]RawDocument(nil), r.Documents...)
	if r.Records != nil {
		out.Records = make(map[DocumentKind]ExtractedRecord, len(r.Records))
		for k, rec := range r.Records {
			out.Records[k] = rec.Clone()
		}
	}
	out.Findings = append(Findings(nil), r.Findings...)
	out.History = append([]Transition(nil), r.History...)
	out.Features = clonePtr(r.Features)
	out.Prediction = clonePtr(r.Prediction)
	out.Recommendation = clonePtr(r.Recommendation)
	if r.Verdict != nil {
		v := *r.Verdict
		v.Findings = append(Findings(nil), r.Verdict.Findings...)
		v.Messages = append([]string(nil), r.Verdict.Messages...)
		v.Recommendation = clonePtr(r.Verdict.Recommendation)
		v.Explanation = clonePtr(r.Verdict.Explanation)
		v.Confidence = clonePtr(r.Verdict.Confidence)
		out.Verdict = &v
	}
	return out
}
