package optimization

import (
	"context"
	"math/rand"
)

// Operators is the capability set an evolutionary engine needs from the
// chemistry layer.
type Operators interface {
	Mutate(ctx context.Context, s *Solution) (*Solution, error)
	Crossover(ctx context.Context, parents []*Solution) ([]*Solution, error)
	Replace(population, offspring []*Solution) []*Solution
}

// Replacer builds the next population from parents and offspring.
type Replacer interface {
	Replace(population, offspring []*Solution) []*Solution
}

// Ranker annotates a population with the attributes its selection needs.
type Ranker interface {
	Rank(population []*Solution)
}

// ChemicalOperators binds the reaction-driven mutation and crossover to a
// replacement policy.
type ChemicalOperators struct {
	mutation    *ReactorMutation
	crossover   *ReactorPseudoCrossover
	replacement Replacer
}

func NewChemicalOperators(mutation *ReactorMutation, crossover *ReactorPseudoCrossover, replacement Replacer) *ChemicalOperators {
	return &ChemicalOperators{mutation: mutation, crossover: crossover, replacement: replacement}
}

func (o *ChemicalOperators) Mutate(ctx context.Context, s *Solution) (*Solution, error) {
	return o.mutation.Execute(ctx, s)
}

func (o *ChemicalOperators) Crossover(ctx context.Context, parents []*Solution) ([]*Solution, error) {
	return o.crossover.Execute(ctx, parents)
}

func (o *ChemicalOperators) Replace(population, offspring []*Solution) []*Solution {
	return o.replacement.Replace(population, offspring)
}

// Rank delegates to the replacement policy when it ranks.
func (o *ChemicalOperators) Rank(population []*Solution) {
	if r, ok := o.replacement.(Ranker); ok {
		r.Rank(population)
	}
}

// WithRand returns operators whose random draws come from rng.
func (o *ChemicalOperators) WithRand(rng *rand.Rand) Operators {
	return &ChemicalOperators{
		mutation:    o.mutation.WithRand(rng),
		crossover:   o.crossover.WithRand(rng),
		replacement: o.replacement,
	}
}

var (
	_ Operators = (*ChemicalOperators)(nil)
	_ Ranker    = (*ChemicalOperators)(nil)
)
