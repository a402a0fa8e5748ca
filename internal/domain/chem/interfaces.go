package chem

import "context"

// Reactor applies a reaction rule to an ordered list of reactants and returns
// the product structures. An empty result means the rule did not match and is
// not an error.
type Reactor interface {
	React(ctx context.Context, reactants []*Compound, rule *ReactionRule) ([]string, error)
}

// Standardizer canonicalizes and sanitizes a compound, returning a new one.
type Standardizer interface {
	Standardize(c *Compound) (*Compound, error)
}

// ReactorFunc adapts a function to the Reactor interface.
type ReactorFunc func(ctx context.Context, reactants []*Compound, rule *ReactionRule) ([]string, error)

func (f ReactorFunc) React(ctx context.Context, reactants []*Compound, rule *ReactionRule) ([]string, error) {
	return f(ctx, reactants, rule)
}

// StandardizerFunc adapts a function to the Standardizer interface.
type StandardizerFunc func(c *Compound) (*Compound, error)

func (f StandardizerFunc) Standardize(c *Compound) (*Compound, error) { return f(c) }
