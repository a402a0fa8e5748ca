package optimization

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/turtacn/ReactEA/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ReactEA/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Settings controls a GeneticAlgorithm run.
type Settings struct {
	PopulationSize int
	OffspringSize  int
	MaxGenerations int
	// Parallel evaluates solutions and breeds offspring concurrently.
	Parallel bool
	Workers  int
}

// GenerationReport summarizes the population after a generation.
type GenerationReport struct {
	Generation       int
	Evaluations      int
	Best             []float64
	BestSMILES       string
	MeanPrimary      float64
	UniqueStructures int
	Duplicates       int
	PopulationSize   int
	Elapsed          time.Duration
}

// Observer receives a report after the initial evaluation and after every
// generation. Calls happen on the goroutine running the algorithm.
type Observer interface {
	OnGeneration(report GenerationReport)
}

type ObserverFunc func(report GenerationReport)

func (f ObserverFunc) OnGeneration(report GenerationReport) { f(report) }

// RandBinder is implemented by operators that can be rebound to a dedicated
// random source, which allows offspring to be bred concurrently while the
// run stays reproducible for a given seed.
type RandBinder interface {
	WithRand(rng *rand.Rand) Operators
}

// GeneticAlgorithm is a generational EA: binary tournament selection,
// crossover, mutation, and an elitist replacement supplied by the operators.
type GeneticAlgorithm struct {
	settings  Settings
	problem   Problem
	ops       Operators
	selection BinaryTournamentSelection
	evaluator *Evaluator
	rng       *rand.Rand
	logger    logging.Logger
	observers []Observer

	mu          sync.RWMutex
	population  []*Solution
	generation  int
	evaluations int
}

func NewGeneticAlgorithm(settings Settings, problem Problem, ops Operators, initial []*Solution, rng *rand.Rand, logger logging.Logger, observers ...Observer) (*GeneticAlgorithm, error) {
	if problem == nil {
		return nil, errors.InvalidParam("problem is required")
	}
	if ops == nil {
		return nil, errors.InvalidParam("operators are required")
	}
	if rng == nil {
		return nil, errors.New(errors.ErrCodeRandomSourceRequired, "random source is required")
	}
	if len(initial) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyPopulation, "initial population is empty")
	}
	if settings.PopulationSize <= 0 {
		settings.PopulationSize = len(initial)
	}
	if settings.OffspringSize <= 0 {
		settings.OffspringSize = settings.PopulationSize
	}
	if settings.MaxGenerations < 0 {
		return nil, errors.Newf(errors.CodeInvalidParam, "max generations must be ≥ 0, got %d", settings.MaxGenerations)
	}
	workers := 1
	if settings.Parallel {
		workers = settings.Workers
		if workers < 1 {
			workers = 1
		}
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &GeneticAlgorithm{
		settings:   settings,
		problem:    problem,
		ops:        ops,
		evaluator:  NewEvaluator(problem, workers, logger),
		rng:        rng,
		logger:     logger.Named("ga"),
		observers:  observers,
		population: initial,
	}, nil
}

// Run evolves the population for MaxGenerations generations and returns
// the final population. On cancellation the last complete population is
// kept and ctx.Err() is returned.
func (ga *GeneticAlgorithm) Run(ctx context.Context) ([]*Solution, error) {
	start := time.Now()
	pop := ga.Result()

	if err := ga.evaluator.Evaluate(ctx, pop); err != nil {
		return nil, err
	}
	ga.rank(pop)
	ga.commit(pop, 0, len(pop))
	ga.report(0, pop, start)

	for gen := 1; gen <= ga.settings.MaxGenerations; gen++ {
		if err := ctx.Err(); err != nil {
			ga.logger.Warn("evolution cancelled", logging.Int("generation", gen))
			return ga.Result(), err
		}

		offspring, err := ga.reproduce(ctx, pop)
		if err != nil {
			if ctx.Err() != nil {
				return ga.Result(), ctx.Err()
			}
			return nil, err
		}
		if err := ga.evaluator.Evaluate(ctx, offspring); err != nil {
			if ctx.Err() != nil {
				return ga.Result(), ctx.Err()
			}
			return nil, err
		}

		pop = ga.ops.Replace(pop, offspring)
		ga.rank(pop)
		ga.commit(pop, gen, len(offspring))
		ga.report(gen, pop, start)
	}
	return ga.Result(), nil
}

// reproduce breeds OffspringSize children. Every mating draws a seed from
// the algorithm's source up front so the outcome does not depend on
// goroutine scheduling.
func (ga *GeneticAlgorithm) reproduce(ctx context.Context, pop []*Solution) ([]*Solution, error) {
	matings := (ga.settings.OffspringSize + 1) / 2
	seeds := make([]int64, matings)
	for i := range seeds {
		seeds[i] = ga.rng.Int63()
	}
	children := make([][]*Solution, matings)

	binder, canBind := ga.ops.(RandBinder)
	mate := func(ctx context.Context, i int) error {
		rng := rand.New(rand.NewSource(seeds[i]))
		ops := ga.ops
		if canBind {
			ops = binder.WithRand(rng)
		}
		out, err := ga.mate(ctx, rng, ops, pop)
		if err != nil {
			return err
		}
		children[i] = out
		return nil
	}

	if !ga.settings.Parallel || !canBind || ga.evaluator.workers == 1 {
		for i := 0; i < matings; i++ {
			if err := mate(ctx, i); err != nil {
				return nil, err
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(ga.evaluator.workers)
		for i := 0; i < matings; i++ {
			i := i
			g.Go(func() error { return mate(gctx, i) })
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	offspring := make([]*Solution, 0, matings*2)
	for _, pair := range children {
		offspring = append(offspring, pair...)
	}
	return offspring[:ga.settings.OffspringSize], nil
}

func (ga *GeneticAlgorithm) mate(ctx context.Context, rng *rand.Rand, ops Operators, pop []*Solution) ([]*Solution, error) {
	parents := make([]*Solution, 2)
	for i := range parents {
		p, err := ga.selection.Select(rng, pop)
		if err != nil {
			return nil, err
		}
		parents[i] = p
	}
	children, err := ops.Crossover(ctx, parents)
	if err != nil {
		return nil, err
	}
	for i, child := range children {
		mutated, err := ops.Mutate(ctx, child)
		if err != nil {
			return nil, err
		}
		children[i] = mutated
	}
	return children, nil
}

func (ga *GeneticAlgorithm) rank(pop []*Solution) {
	if r, ok := ga.ops.(Ranker); ok {
		r.Rank(pop)
	}
}

func (ga *GeneticAlgorithm) commit(pop []*Solution, gen, evaluated int) {
	ga.mu.Lock()
	defer ga.mu.Unlock()
	ga.population = pop
	ga.generation = gen
	ga.evaluations += evaluated
}

func (ga *GeneticAlgorithm) report(gen int, pop []*Solution, start time.Time) {
	r := Summarize(pop)
	r.Generation = gen
	_, r.Evaluations = ga.Progress()
	r.Elapsed = time.Since(start)

	ga.logger.Info("generation complete",
		logging.Int("generation", gen),
		logging.Int("evaluations", r.Evaluations),
		logging.Float64s("best", r.Best),
		logging.String("best_smiles", r.BestSMILES),
		logging.Int("unique", r.UniqueStructures))
	for _, o := range ga.observers {
		o.OnGeneration(r)
	}
}

// Result returns the current population. The slice is shared with the
// algorithm; do not modify it while Run is active.
func (ga *GeneticAlgorithm) Result() []*Solution {
	ga.mu.RLock()
	defer ga.mu.RUnlock()
	return ga.population
}

// Progress returns the last completed generation and the evaluation count.
func (ga *GeneticAlgorithm) Progress() (generation, evaluations int) {
	ga.mu.RLock()
	defer ga.mu.RUnlock()
	return ga.generation, ga.evaluations
}

// Summarize computes the population statistics of a GenerationReport.
func Summarize(pop []*Solution) GenerationReport {
	r := GenerationReport{PopulationSize: len(pop)}
	if len(pop) == 0 {
		return r
	}
	r.UniqueStructures = UniqueStructures(pop)
	r.Duplicates = len(pop) - r.UniqueStructures

	var best *Solution
	sum, n := 0.0, 0
	for _, s := range pop {
		v := s.primaryObjective()
		if math.IsInf(v, 1) {
			continue
		}
		sum += v
		n++
		if best == nil || v < best.primaryObjective() {
			best = s
		}
	}
	if n > 0 {
		r.MeanPrimary = sum / float64(n)
	}
	if best != nil {
		r.Best = append([]float64(nil), best.Objectives...)
		r.BestSMILES = best.SMILES()
	}
	return r
}
