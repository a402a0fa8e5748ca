package optimization

import (
	"context"
	"math/rand"

	"github.com/turtacn/ReactEA/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ReactEA/pkg/errors"
)

// ReactorPseudoCrossover produces two children by copying both parents and,
// with its probability, running a ReactorMutation over each copy. The inner
// mutation uses the crossover probability as well.
type ReactorPseudoCrossover struct {
	probability float64
	mutation    *ReactorMutation
	rng         *rand.Rand
}

// NewReactorPseudoCrossover builds the crossover from a mutation config whose
// Probability is the crossover probability.
func NewReactorPseudoCrossover(cfg MutationConfig, rng *rand.Rand, logger logging.Logger) (*ReactorPseudoCrossover, error) {
	m, err := NewReactorMutation(cfg, rng, logger)
	if err != nil {
		return nil, err
	}
	return &ReactorPseudoCrossover{probability: cfg.Probability, mutation: m, rng: rng}, nil
}

// WithRand returns a copy whose draws, including the inner mutation's, use rng.
func (c *ReactorPseudoCrossover) WithRand(rng *rand.Rand) *ReactorPseudoCrossover {
	return &ReactorPseudoCrossover{
		probability: c.probability,
		mutation:    c.mutation.WithRand(rng),
		rng:         rng,
	}
}

func (c *ReactorPseudoCrossover) Name() string { return "Reactor One Point Crossover" }

func (c *ReactorPseudoCrossover) NumberOfParents() int { return 2 }

func (c *ReactorPseudoCrossover) NumberOfChildren() int { return 2 }

// Execute returns two children. Parents are never modified.
func (c *ReactorPseudoCrossover) Execute(ctx context.Context, parents []*Solution) ([]*Solution, error) {
	if len(parents) != 2 {
		return nil, errors.Newf(errors.CodeInvalidParentCount, "the number of parents is not two: %d", len(parents))
	}
	children := []*Solution{parents[0].Clone(), parents[1].Clone()}

	if c.rng.Float64() >= c.probability {
		return children, nil
	}
	for i, child := range children {
		mutated, err := c.mutation.Execute(ctx, child)
		if err != nil {
			return nil, err
		}
		children[i] = mutated
	}
	return children, nil
}
