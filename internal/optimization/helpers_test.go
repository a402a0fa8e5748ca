package optimization

import (
	"context"
	"math/rand"
	"strings"
	"sync"

	"github.com/turtacn/ReactEA/internal/domain/chem"
	"github.com/turtacn/ReactEA/pkg/errors"
)

func newRNG(seed int64) *rand.Rand { return rand.New(rand.NewSource(seed)) }

// appendReactor returns one product per call: the first reactant extended
// by a carbon.
func appendReactor() chem.ReactorFunc {
	return func(_ context.Context, reactants []*chem.Compound, rule *chem.ReactionRule) ([]string, error) {
		return []string{reactants[0].SMILES + "C"}, nil
	}
}

func emptyReactor(calls *int) chem.ReactorFunc {
	var mu sync.Mutex
	return func(context.Context, []*chem.Compound, *chem.ReactionRule) ([]string, error) {
		mu.Lock()
		*calls++
		mu.Unlock()
		return nil, nil
	}
}

func identityStandardizer() chem.StandardizerFunc {
	return func(c *chem.Compound) (*chem.Compound, error) { return c.Clone(), nil }
}

func rules(ids ...string) []*chem.ReactionRule {
	out := make([]*chem.ReactionRule, len(ids))
	for i, id := range ids {
		out[i] = &chem.ReactionRule{ID: id, SMARTS: "[C:1]>>[C:1]C", CoreactantsIDs: "Any"}
	}
	return out
}

func baseConfig() MutationConfig {
	return MutationConfig{
		Probability:  1,
		MaxTries:     10,
		Rules:        rules("rule0"),
		Reactor:      appendReactor(),
		Standardizer: identityStandardizer(),
	}
}

func solution(id, smiles string, objectives ...float64) *Solution {
	s := NewSolution(chem.NewCompound(id, smiles), len(objectives))
	copy(s.Objectives, objectives)
	return s
}

type outcome struct {
	name  string
	tries int
}

type fakeRecorder struct {
	mu       sync.Mutex
	outcomes []outcome
}

func (r *fakeRecorder) RecordMutation(name string, tries int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome{name, tries})
}

// carbonCount minimizes the number of carbons, so longer chains are worse.
type carbonCount struct {
	fail string
}

func (carbonCount) Name() string             { return "carbon count" }
func (carbonCount) NumberOfObjectives() int  { return 1 }
func (carbonCount) ObjectiveNames() []string { return []string{"carbons"} }

func (p carbonCount) Evaluate(_ context.Context, s *Solution) error {
	if p.fail != "" && s.SMILES() == p.fail {
		return errors.Internal("evaluation backend failed")
	}
	s.Objectives = []float64{float64(strings.Count(s.SMILES(), "C"))}
	return nil
}

// trimReactor shortens a chain by one atom until a single atom is left.
func trimReactor() chem.ReactorFunc {
	return func(_ context.Context, reactants []*chem.Compound, _ *chem.ReactionRule) ([]string, error) {
		smiles := reactants[0].SMILES
		if len(smiles) <= 1 {
			return nil, nil
		}
		return []string{smiles[:len(smiles)-1]}, nil
	}
}
