package optimization

import (
	"context"
	"math/rand"

	"github.com/turtacn/ReactEA/internal/domain/chem"
	"github.com/turtacn/ReactEA/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ReactEA/pkg/errors"
)

// Mutation outcomes reported to a MutationRecorder.
const (
	OutcomeMutated   = "mutated"
	OutcomeSkipped   = "skipped"
	OutcomeExhausted = "exhausted"
	OutcomeFailed    = "failed"
)

// MutationRecorder observes mutation outcomes and the number of rule tries
// they took. EvolutionMetrics implements it.
type MutationRecorder interface {
	RecordMutation(outcome string, tries int)
}

// MutationConfig is shared by the mutation and the pseudo-crossover.
type MutationConfig struct {
	// Probability in [0, 1] that an Execute call attempts a mutation.
	Probability float64
	// MaxTries bounds the number of rules sampled per attempt.
	MaxTries int
	Rules    []*chem.ReactionRule
	// Coreactants may be nil, in which case the compound is the only reactant.
	Coreactants  *chem.CoreactantPool
	Reactor      chem.Reactor
	Standardizer chem.Standardizer

	// Optional collaborators.
	Logger   TransformationLogger
	Recorder MutationRecorder
	Settings RunInfo
}

func (c MutationConfig) validate() error {
	if c.Probability < 0 || c.Probability > 1 {
		return errors.Newf(errors.CodeInvalidParam, "probability %v is out of range [0, 1]", c.Probability)
	}
	if c.MaxTries < 1 {
		return errors.Newf(errors.CodeInvalidParam, "max tries must be ≥ 1, got %d", c.MaxTries)
	}
	if len(c.Rules) == 0 {
		return errors.New(errors.ErrCodeEmptyRulePool, "at least one reaction rule is required")
	}
	if c.Reactor == nil {
		return errors.InvalidParam("reactor is required")
	}
	if c.Standardizer == nil {
		return errors.InvalidParam("standardizer is required")
	}
	return nil
}

// ReactorMutation transforms a solution's compound with a randomly chosen
// reaction rule. It holds no per-call state; give each goroutine its own
// random source with WithRand.
type ReactorMutation struct {
	cfg    MutationConfig
	rng    *rand.Rand
	logger logging.Logger
}

// NewReactorMutation validates cfg and binds the random source.
func NewReactorMutation(cfg MutationConfig, rng *rand.Rand, logger logging.Logger) (*ReactorMutation, error) {
	if rng == nil {
		return nil, errors.New(errors.ErrCodeRandomSourceRequired, "random source is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ReactorMutation{cfg: cfg, rng: rng, logger: logger.Named("mutation")}, nil
}

// WithRand returns a copy drawing from rng.
func (m *ReactorMutation) WithRand(rng *rand.Rand) *ReactorMutation {
	cp := *m
	cp.rng = rng
	return &cp
}

func (m *ReactorMutation) Name() string { return "Reactor Mutation" }

func (m *ReactorMutation) Probability() float64 { return m.cfg.Probability }

// Execute attempts to mutate s in place and returns it.
//
// A uniform draw r ≥ Probability leaves s untouched. Otherwise up to MaxTries
// rules are sampled; the first one producing products wins, one product is
// picked uniformly, standardized, and becomes the solution's compound while
// the previous structure and the rule are appended to History. Unresolvable
// coreactants, empty product lists and reactor errors all consume a try.
// When every try fails s is returned unchanged without error.
//
// Standardization errors and context cancellation are returned; s is left
// as it was in both cases.
func (m *ReactorMutation) Execute(ctx context.Context, s *Solution) (*Solution, error) {
	if s == nil || s.Compound == nil {
		return nil, errors.InvalidParam("solution has no compound")
	}
	if m.rng.Float64() >= m.cfg.Probability {
		m.record(OutcomeSkipped, 0)
		return s, nil
	}

	parent := s.Compound
	rules := m.cfg.Rules
	for try := 1; try <= m.cfg.MaxTries; try++ {
		rule := rules[m.rng.Intn(len(rules))]

		reactants := m.cfg.Coreactants.Resolve(rule.CoreactantsIDs, parent)
		if !reactants.OK {
			continue
		}

		products, err := m.cfg.Reactor.React(ctx, reactants.Compounds, rule)
		if err != nil {
			if ctx.Err() != nil {
				return s, ctx.Err()
			}
			m.logger.Debug("reactor failed",
				logging.String("rule_id", rule.ID),
				logging.String("smiles", parent.SMILES),
				logging.Err(err))
			continue
		}
		if len(products) == 0 {
			continue
		}

		picked := products[m.rng.Intn(len(products))]
		mutant, err := m.cfg.Standardizer.Standardize(chem.NewCompound(parent.DerivedID(rule.ID), picked))
		if err != nil {
			m.record(OutcomeFailed, try)
			return s, errors.Wrap(err, errors.CodeStandardizationFailed, "standardize mutation product of "+parent.ID)
		}

		s.Compound = mutant
		s.History = append(s.History, Transformation{AncestorSMILES: parent.SMILES, RuleID: rule.ID})
		if m.cfg.Logger != nil {
			m.cfg.Logger.LogTransformation(m.cfg.Settings, s, mutant.SMILES, rule.ID)
		}
		m.record(OutcomeMutated, try)
		return s, nil
	}

	m.record(OutcomeExhausted, m.cfg.MaxTries)
	return s, nil
}

func (m *ReactorMutation) record(outcome string, tries int) {
	if m.cfg.Recorder != nil {
		m.cfg.Recorder.RecordMutation(outcome, tries)
	}
}
