// Package classifier is the boundary to the eligibility model. The model is
// opaque: it maps a feature vector to a binary label and a confidence.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

// DefaultTimeout bounds a single prediction.
const DefaultTimeout = 10 * time.Second

// Classifier predicts eligibility from a feature vector. Implementations must
// be safe for concurrent use; one handle is shared by all runs.
type Classifier interface {
	Predict(ctx context.Context, features types.FeatureVector) (types.Prediction, error)
}

// Func adapts a plain function to the Classifier interface.
type Func func(ctx context.Context, features types.FeatureVector) (types.Prediction, error)

// Predict implements Classifier.
func (f Func) Predict(ctx context.Context, features types.FeatureVector) (types.Prediction, error) {
	return f(ctx, features)
}

// Predict calls c once, bounded by timeout, and checks both the input vector
// and the returned prediction. Every failure is an *InferenceError; there is
// no retry and no default label.
func Predict(ctx context.Context, c Classifier, features types.FeatureVector, timeout time.Duration) (types.Prediction, error) {
	if c == nil {
		return types.Prediction{}, &InferenceError{
			Reason:   ReasonUnavailable,
			Messages: []string{"no classifier configured"},
		}
	}
	if err := checkFeatures(features); err != nil {
		return types.Prediction{}, err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		pred types.Prediction
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		p, err := c.Predict(ctx, features)
		done <- outcome{pred: p, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out.err = ctx.Err()
	}

	if out.err != nil {
		var inferenceErr *InferenceError
		if errors.As(out.err, &inferenceErr) {
			return types.Prediction{}, inferenceErr
		}
		if errors.Is(out.err, context.DeadlineExceeded) {
			return types.Prediction{}, &InferenceError{
				Reason:   ReasonTimeout,
				Messages: []string{fmt.Sprintf("classifier did not answer within %s", timeout)},
				Cause:    out.err,
			}
		}
		return types.Prediction{}, &InferenceError{
			Reason:   ReasonUnavailable,
			Messages: []string{"classifier call failed"},
			Cause:    out.err,
		}
	}
	if err := checkPrediction(out.pred); err != nil {
		return types.Prediction{}, err
	}
	return out.pred, nil
}

func checkFeatures(features types.FeatureVector) error {
	var bad []string
	for i, v := range features.Values() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			bad = append(bad, fmt.Sprintf("feature %s is not a finite number", types.FeatureNames[i]))
		}
	}
	if len(bad) > 0 {
		return &InferenceError{Reason: ReasonMalformedFeatures, Messages: bad}
	}
	return nil
}

func checkPrediction(p types.Prediction) error {
	var bad []string
	if p.Label != 0 && p.Label != 1 {
		bad = append(bad, fmt.Sprintf("label %d is not 0 or 1", p.Label))
	}
	if math.IsNaN(p.Confidence) || p.Confidence < 0 || p.Confidence > 1 {
		bad = append(bad, fmt.Sprintf("confidence %v is outside [0, 1]", p.Confidence))
	}
	if len(bad) > 0 {
		return &InferenceError{Reason: ReasonMalformedPrediction, Messages: bad}
	}
	return nil
}
