package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Roosh27/Sovereign-AI-Verifier/internal/types"
)

func TestStageRegistry(t *testing.T) {
	categories := map[string][]types.Stage{
		CategoryValidation:     {types.StageValidating, types.StageRejected},
		CategoryInference:      {types.StageInferring, types.StageInferenceUnavailable},
		CategoryDecision:       {types.StageDeciding, types.StageSoftDeclined, types.StageAccepted},
		CategoryRecommendation: {types.StageRecommending, types.StageAcceptedWithRecommendation},
	}

	count := 0
	for category, stages := range categories {
		for _, stage := range stages {
			def, ok := StageRegistry[stage]
			require.True(t, ok, "stage %s missing", stage)
			assert.Equal(t, category, def.Category, "stage %s should be in category %s", stage, category)
			assert.Equal(t, stage.IsTerminal(), len(def.Next) == 0, "stage %s", stage)
			count++
		}
	}
	assert.Len(t, StageRegistry, count)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(types.StageValidating, types.StageRejected))
	assert.True(t, CanTransition(types.StageInferring, types.StageInferenceUnavailable))
	assert.True(t, CanTransition(types.StageAccepted, types.StageRecommending))

	assert.False(t, CanTransition(types.StageValidating, types.StageAccepted))
	assert.False(t, CanTransition(types.StageSoftDeclined, types.StageRecommending))
	assert.False(t, CanTransition(types.StageRejected, types.StageInferring))
	assert.False(t, CanTransition("Unknown", types.StageInferring))
}

func TestAdvance(t *testing.T) {
	o := newTestOrchestrator(labelled(1, 1))
	run := o.NewRun(declaration(), nil)

	next, err := o.advance(context.Background(), run, types.StageInferring, "validation passed")
	require.NoError(t, err)
	assert.Equal(t, types.StageInferring, next.Stage)
	require.Len(t, next.History, 1)
	assert.Equal(t, types.Transition{
		From:   types.StageValidating,
		To:     types.StageInferring,
		At:     o.now(),
		Detail: "validation passed",
	}, next.History[0])

	// The input run is untouched.
	assert.Equal(t, types.StageValidating, run.Stage)
	assert.Empty(t, run.History)

	_, err = o.advance(context.Background(), next, types.StageAccepted, "")
	var transitionErr *TransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, types.StageInferring, transitionErr.From)
	assert.Contains(t, err.Error(), "illegal stage transition")
}

func TestAdvance_TerminalRun(t *testing.T) {
	o := newTestOrchestrator(labelled(1, 1))
	run := o.NewRun(declaration(), nil)
	run.Stage = types.StageAccepted
	run.Verdict = &types.Verdict{Status: types.StatusAccepted}

	_, err := o.advance(context.Background(), run, types.StageRecommending, "")
	assert.Error(t, err)
}
