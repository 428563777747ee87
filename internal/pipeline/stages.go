package pipeline

import (
	"context"
	"fmt"
	"slices"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

// Stage categories used in progress events and audit rows
const (
	CategoryValidation     = "validation"
	CategoryInference      = "inference"
	CategoryDecision       = "decision"
	CategoryRecommendation = "recommendation"
)

// StageDefinition describes one state of the decision machine and the states
// it may move to.
type StageDefinition struct {
	Stage    types.Stage
	Category string
	Next     []types.Stage
}

// StageRegistry is the complete transition table. A stage with no Next
// entries is terminal.
var StageRegistry = map[types.Stage]StageDefinition{
	types.StageValidating: {
		Stage:    types.StageValidating,
		Category: CategoryValidation,
		Next:     []types.Stage{types.StageRejected, types.StageInferring},
	},
	types.StageRejected: {
		Stage:    types.StageRejected,
		Category: CategoryValidation,
	},
	types.StageInferring: {
		Stage:    types.StageInferring,
		Category: CategoryInference,
		Next:     []types.Stage{types.StageDeciding, types.StageInferenceUnavailable},
	},
	types.StageInferenceUnavailable: {
		Stage:    types.StageInferenceUnavailable,
		Category: CategoryInference,
	},
	types.StageDeciding: {
		Stage:    types.StageDeciding,
		Category: CategoryDecision,
		Next:     []types.Stage{types.StageSoftDeclined, types.StageAccepted},
	},
	types.StageSoftDeclined: {
		Stage:    types.StageSoftDeclined,
		Category: CategoryDecision,
	},
	types.StageAccepted: {
		Stage:    types.StageAccepted,
		Category: CategoryDecision,
		Next:     []types.Stage{types.StageRecommending},
	},
	types.StageRecommending: {
		Stage:    types.StageRecommending,
		Category: CategoryRecommendation,
		Next:     []types.Stage{types.StageAcceptedWithRecommendation},
	},
	types.StageAcceptedWithRecommendation: {
		Stage:    types.StageAcceptedWithRecommendation,
		Category: CategoryRecommendation,
	},
}

// TransitionError reports a stage change the machine does not allow.
type TransitionError struct {
	From types.Stage
	To   types.Stage
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal stage transition %s -> %s", e.From, e.To)
}

// CanTransition reports whether from → to is in the transition table.
func CanTransition(from, to types.Stage) bool {
	def, ok := StageRegistry[from]
	return ok && slices.Contains(def.Next, to)
}

// advance returns a copy of run moved to stage to, with the transition
// appended to its history. A terminal run never moves again.
func (o *Orchestrator) advance(ctx context.Context, run types.VerificationRun, to types.Stage, detail string) (types.VerificationRun, error) {
	if run.IsTerminal() || !CanTransition(run.Stage, to) {
		return run, &TransitionError{From: run.Stage, To: to}
	}
	next := run.Clone()
	t := types.Transition{From: run.Stage, To: to, At: o.now(), Detail: detail}
	next.Stage = to
	next.History = append(next.History, t)
	o.onTransition(ctx, next, t)
	return next, nil
}
