package evolution

import (
	"context"
	"time"

	"github.com/turtacn/ReactEA/internal/domain/chem"
)

// Reaction results recorded per reactor call.
const (
	ReactionProducts = "products"
	ReactionEmpty    = "empty"
	ReactionError    = "error"
)

// ReactionRecorder observes reactor calls. EvolutionMetrics implements it.
type ReactionRecorder interface {
	RecordReaction(reactor, result string, d time.Duration)
}

type instrumentedReactor struct {
	inner    chem.Reactor
	name     string
	recorder ReactionRecorder
}

func (r *instrumentedReactor) React(ctx context.Context, reactants []*chem.Compound, rule *chem.ReactionRule) ([]string, error) {
	start := time.Now()
	products, err := r.inner.React(ctx, reactants, rule)
	result := ReactionProducts
	switch {
	case err != nil:
		result = ReactionError
	case len(products) == 0:
		result = ReactionEmpty
	}
	r.recorder.RecordReaction(r.name, result, time.Since(start))
	return products, err
}
