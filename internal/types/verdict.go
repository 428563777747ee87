package types

import "time"

// VerdictStatus is the terminal outcome of a verification run.
type VerdictStatus string

// Verdict statuses
const (
	StatusRejected             VerdictStatus = "Rejected"
	StatusSoftDeclined         VerdictStatus = "SoftDeclined"
	StatusAccepted             VerdictStatus = "Accepted"
	StatusInferenceUnavailable VerdictStatus = "InferenceUnavailable"
)

// RecommendationCategory is the support pathway offered to accepted applicants.
type RecommendationCategory string

// Recommendation categories
const (
	FinancialSupport   RecommendationCategory = "FinancialSupport"
	EconomicEnablement RecommendationCategory = "EconomicEnablement"
)

// Recommendation is attached to accepted verdicts only.
type Recommendation struct {
	Category  RecommendationCategory `json:"category"`
	Rationale string                 `json:"rationale"`
}

// Verdict is the terminal classification of a verification run.
type Verdict struct {
	Status         VerdictStatus   `json:"status"`
	ReasonCode     string          `json:"reason_code,omitempty"`
	Messages       []string        `json:"messages,omitempty"`
	Message        string          `json:"message,omitempty"` // Applicant-facing decision text
	Findings       Findings        `json:"findings"`
	Confidence     *float64        `json:"confidence,omitempty"`
	Recommendation *Recommendation `json:"recommendation,omitempty"`
	Explanation    *string         `json:"explanation,omitempty"`
	DecidedAt      time.Time       `json:"decided_at"`
}
