package optimization

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ReactEA/pkg/errors"
)

type wrongArity struct{ carbonCount }

func (wrongArity) NumberOfObjectives() int { return 2 }

func TestEvaluator_Sequential(t *testing.T) {
	pop := []*Solution{solution("a", "CCO"), solution("b", "CCCC")}
	require.NoError(t, NewEvaluator(carbonCount{}, 1, nil).Evaluate(context.Background(), pop))
	assert.Equal(t, []float64{2}, pop[0].Objectives)
	assert.Equal(t, []float64{4}, pop[1].Objectives)
}

func TestEvaluator_ParallelMatchesSequential(t *testing.T) {
	smiles := []string{"C", "CC", "CCC", "CCO", "CCCCC", "c1ccccc1", "CCN", "CCCl"}
	seq := make([]*Solution, len(smiles))
	par := make([]*Solution, len(smiles))
	for i, s := range smiles {
		seq[i] = solution("s", s)
		par[i] = solution("p", s)
	}
	require.NoError(t, NewEvaluator(carbonCount{}, 1, nil).Evaluate(context.Background(), seq))
	require.NoError(t, NewEvaluator(carbonCount{}, 4, nil).Evaluate(context.Background(), par))
	for i := range smiles {
		assert.Equal(t, seq[i].Objectives, par[i].Objectives, smiles[i])
	}
}

func TestEvaluator_Errors(t *testing.T) {
	t.Run("problem failure", func(t *testing.T) {
		pop := []*Solution{solution("a", "CC"), solution("b", "CCO")}
		err := NewEvaluator(carbonCount{fail: "CCO"}, 2, nil).Evaluate(context.Background(), pop)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeEvaluationFailed))
	})

	t.Run("objective count mismatch", func(t *testing.T) {
		err := NewEvaluator(wrongArity{}, 1, nil).Evaluate(context.Background(), []*Solution{solution("a", "CC")})
		assert.True(t, errors.IsCode(err, errors.ErrCodeObjectiveMismatch))
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := NewEvaluator(carbonCount{}, 1, nil).Evaluate(ctx, []*Solution{solution("a", "CC")})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
