package optimization

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ReactEA/internal/domain/chem"
	"github.com/turtacn/ReactEA/pkg/errors"
)

func TestNewReactorMutation_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*MutationConfig)
		code   errors.ErrorCode
	}{
		{"probability above one", func(c *MutationConfig) { c.Probability = 1.5 }, errors.CodeInvalidParam},
		{"negative probability", func(c *MutationConfig) { c.Probability = -0.1 }, errors.CodeInvalidParam},
		{"zero tries", func(c *MutationConfig) { c.MaxTries = 0 }, errors.CodeInvalidParam},
		{"no rules", func(c *MutationConfig) { c.Rules = nil }, errors.ErrCodeEmptyRulePool},
		{"no reactor", func(c *MutationConfig) { c.Reactor = nil }, errors.CodeInvalidParam},
		{"no standardizer", func(c *MutationConfig) { c.Standardizer = nil }, errors.CodeInvalidParam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mutate(&cfg)
			_, err := NewReactorMutation(cfg, newRNG(1), nil)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.code), "got %v", err)
		})
	}

	_, err := NewReactorMutation(baseConfig(), nil, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRandomSourceRequired))
}

func TestReactorMutation_ZeroProbabilityIsNoOp(t *testing.T) {
	calls := 0
	cfg := baseConfig()
	cfg.Probability = 0
	cfg.Reactor = emptyReactor(&calls)
	m, err := NewReactorMutation(cfg, newRNG(1), nil)
	require.NoError(t, err)

	s := solution("c1", "CCO", 0)
	for i := 0; i < 50; i++ {
		out, err := m.Execute(context.Background(), s)
		require.NoError(t, err)
		assert.Same(t, s, out)
	}
	assert.Equal(t, "c1", s.Compound.ID)
	assert.Equal(t, "CCO", s.SMILES())
	assert.Empty(t, s.History)
	assert.Zero(t, calls)
}

func TestReactorMutation_AppliesRule(t *testing.T) {
	var logged []string
	cfg := baseConfig()
	cfg.Rules = rules("rule7")
	cfg.Settings = RunInfo{RunID: "run-1"}
	cfg.Logger = TransformationLoggerFunc(func(settings RunInfo, s *Solution, smiles, ruleID string) {
		assert.Equal(t, "run-1", settings.RunID)
		logged = append(logged, smiles+"|"+ruleID)
	})
	m, err := NewReactorMutation(cfg, newRNG(3), nil)
	require.NoError(t, err)

	s := solution("c1", "CCO", 0)
	out, err := m.Execute(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, "c1--rule7_", out.Compound.ID)
	assert.True(t, strings.HasPrefix(out.Compound.ID, "c1--"))
	assert.True(t, strings.HasSuffix(out.Compound.ID, "_"))
	assert.Equal(t, "CCOC", out.SMILES())
	assert.Equal(t, []Transformation{{AncestorSMILES: "CCO", RuleID: "rule7"}}, out.History)
	assert.Equal(t, []string{"CCOC|rule7"}, logged)

	out, err = m.Execute(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, "c1--rule7_--rule7_", out.Compound.ID)
	assert.Equal(t, []string{"rule7", "rule7"}, out.RuleIDs())
	assert.Len(t, logged, 2)
}

func TestReactorMutation_ExhaustsTries(t *testing.T) {
	calls := 0
	rec := &fakeRecorder{}
	cfg := baseConfig()
	cfg.MaxTries = 5
	cfg.Reactor = emptyReactor(&calls)
	cfg.Recorder = rec
	m, err := NewReactorMutation(cfg, newRNG(1), nil)
	require.NoError(t, err)

	s := solution("c1", "CCO", 0)
	out, err := m.Execute(context.Background(), s)
	require.NoError(t, err)
	assert.Same(t, s, out)
	assert.Equal(t, "c1", s.Compound.ID)
	assert.Nil(t, s.History)
	assert.Equal(t, 5, calls)
	assert.Equal(t, []outcome{{OutcomeExhausted, 5}}, rec.outcomes)
}

func TestReactorMutation_ReactorErrorsConsumeTries(t *testing.T) {
	calls := 0
	cfg := baseConfig()
	cfg.MaxTries = 3
	cfg.Reactor = chem.ReactorFunc(func(context.Context, []*chem.Compound, *chem.ReactionRule) ([]string, error) {
		calls++
		if calls < 3 {
			return nil, errors.New(errors.ErrCodeReactionFailed, "boom")
		}
		return []string{"CCN"}, nil
	})
	m, err := NewReactorMutation(cfg, newRNG(1), nil)
	require.NoError(t, err)

	out, err := m.Execute(context.Background(), solution("c1", "CCO", 0))
	require.NoError(t, err)
	assert.Equal(t, "CCN", out.SMILES())
	assert.Equal(t, 3, calls)
}

func TestReactorMutation_Coreactants(t *testing.T) {
	pool := chem.NewCoreactantPool([]*chem.Compound{chem.NewCompound("WATER", "O")})

	t.Run("resolved in rule order", func(t *testing.T) {
		var got []string
		cfg := baseConfig()
		cfg.Coreactants = pool
		cfg.Rules = []*chem.ReactionRule{{ID: "hyd", SMARTS: "x>>y", CoreactantsIDs: "WATER;Any"}}
		cfg.Reactor = chem.ReactorFunc(func(_ context.Context, reactants []*chem.Compound, _ *chem.ReactionRule) ([]string, error) {
			for _, r := range reactants {
				got = append(got, r.SMILES)
			}
			return []string{"CCOO"}, nil
		})
		m, err := NewReactorMutation(cfg, newRNG(1), nil)
		require.NoError(t, err)

		_, err = m.Execute(context.Background(), solution("c1", "CCO", 0))
		require.NoError(t, err)
		assert.Equal(t, []string{"O", "CCO"}, got)
	})

	t.Run("unknown coreactant counts as a try", func(t *testing.T) {
		calls := 0
		rec := &fakeRecorder{}
		cfg := baseConfig()
		cfg.MaxTries = 4
		cfg.Coreactants = pool
		cfg.Recorder = rec
		cfg.Rules = []*chem.ReactionRule{{ID: "x", SMARTS: "x>>y", CoreactantsIDs: "Any;METHANOL"}}
		cfg.Reactor = emptyReactor(&calls)
		m, err := NewReactorMutation(cfg, newRNG(1), nil)
		require.NoError(t, err)

		s := solution("c1", "CCO", 0)
		_, err = m.Execute(context.Background(), s)
		require.NoError(t, err)
		assert.Zero(t, calls)
		assert.Equal(t, "CCO", s.SMILES())
		assert.Equal(t, []outcome{{OutcomeExhausted, 4}}, rec.outcomes)
	})
}

func TestReactorMutation_StandardizationErrorPropagates(t *testing.T) {
	cfg := baseConfig()
	cfg.Standardizer = chem.StandardizerFunc(func(*chem.Compound) (*chem.Compound, error) {
		return nil, errors.New(errors.ErrCodeInvalidSMILES, "bad product")
	})
	m, err := NewReactorMutation(cfg, newRNG(1), nil)
	require.NoError(t, err)

	s := solution("c1", "CCO", 0)
	_, err = m.Execute(context.Background(), s)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeStandardizationFailed))
	assert.Equal(t, "CCO", s.SMILES())
	assert.Empty(t, s.History)
}

func TestReactorMutation_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := baseConfig()
	cfg.Reactor = chem.ReactorFunc(func(ctx context.Context, _ []*chem.Compound, _ *chem.ReactionRule) ([]string, error) {
		cancel()
		return nil, ctx.Err()
	})
	m, err := NewReactorMutation(cfg, newRNG(1), nil)
	require.NoError(t, err)

	s := solution("c1", "CCO", 0)
	_, err = m.Execute(ctx, s)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "CCO", s.SMILES())
}

func TestReactorMutation_WithRandIsReproducible(t *testing.T) {
	cfg := baseConfig()
	cfg.Rules = rules("a", "b", "c", "d")
	m, err := NewReactorMutation(cfg, newRNG(1), nil)
	require.NoError(t, err)

	run := func(seed int64) []string {
		mm := m.WithRand(newRNG(seed))
		s := solution("c1", "C", 0)
		for i := 0; i < 6; i++ {
			_, err := mm.Execute(context.Background(), s)
			require.NoError(t, err)
		}
		return s.RuleIDs()
	}
	assert.Equal(t, run(11), run(11))
}

func TestReactorMutation_NilSolution(t *testing.T) {
	m, err := NewReactorMutation(baseConfig(), newRNG(1), nil)
	require.NoError(t, err)
	_, err = m.Execute(context.Background(), nil)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}
