package classifier

import (
	"fmt"
	"strings"
)

// Inference failure reason codes
const (
	ReasonTimeout             = "inference_timeout"
	ReasonUnavailable         = "inference_unavailable"
	ReasonMalformedPrediction = "malformed_prediction"
	ReasonMalformedFeatures   = "malformed_features"
)

// InferenceError is fatal to a run. It is surfaced as the "inference
// unavailable" status and never replaced by a default label.
type InferenceError struct {
	Reason   string
	Messages []string
	Cause    error
}

func (e *InferenceError) Error() string {
	msg := strings.Join(e.Messages, "; ")
	if e.Cause != nil {
		return fmt.Sprintf("inference error (%s): %s: %v", e.Reason, msg, e.Cause)
	}
	return fmt.Sprintf("inference error (%s): %s", e.Reason, msg)
}

func (e *InferenceError) Unwrap() error {
	return e.Cause
}
