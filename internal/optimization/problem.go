package optimization

import (
	"context"
	"fmt"

	"github.com/turtacn/ReactEA/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ReactEA/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Problem scores solutions. Every objective is minimized; case studies that
// maximize a quantity store its negation.
type Problem interface {
	Name() string
	NumberOfObjectives() int
	ObjectiveNames() []string
	// Evaluate fills s.Objectives. It must be safe for concurrent use on
	// distinct solutions.
	Evaluate(ctx context.Context, s *Solution) error
}

// Evaluator applies a Problem to whole populations, optionally in parallel.
type Evaluator struct {
	problem Problem
	workers int
	logger  logging.Logger
}

// NewEvaluator evaluates with up to workers goroutines; workers ≤ 1 means
// sequential evaluation.
func NewEvaluator(problem Problem, workers int, logger logging.Logger) *Evaluator {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Evaluator{problem: problem, workers: workers, logger: logger.Named("evaluator")}
}

// Evaluate scores every solution and returns the first failure.
func (e *Evaluator) Evaluate(ctx context.Context, population []*Solution) error {
	if e.workers == 1 {
		for _, s := range population {
			if err := e.evaluateOne(ctx, s); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, s := range population {
		s := s
		g.Go(func() error { return e.evaluateOne(gctx, s) })
	}
	return g.Wait()
}

func (e *Evaluator) evaluateOne(ctx context.Context, s *Solution) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.problem.Evaluate(ctx, s); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrap(err, errors.CodeEvaluationFailed, fmt.Sprintf("evaluate %s", s.Compound.ID))
	}
	if got, want := len(s.Objectives), e.problem.NumberOfObjectives(); got != want {
		return errors.Newf(errors.ErrCodeObjectiveMismatch, "%s produced %d objectives, want %d", e.problem.Name(), got, want)
	}
	return nil
}
