// Package evolution runs a complete ReactEA experiment: it loads the inputs,
// assembles the chemical operators and the case study, evolves the
// population and hands the results to every configured sink.
package evolution

import (
	"context"
	stdliberrors "errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/turtacn/ReactEA/internal/casestudy"
	"github.com/turtacn/ReactEA/internal/config"
	"github.com/turtacn/ReactEA/internal/domain/chem"
	"github.com/turtacn/ReactEA/internal/infrastructure/database/postgres"
	"github.com/turtacn/ReactEA/internal/infrastructure/database/redis"
	"github.com/turtacn/ReactEA/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ReactEA/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/ReactEA/internal/infrastructure/storage/localfs"
	"github.com/turtacn/ReactEA/internal/infrastructure/storage/minio"
	"github.com/turtacn/ReactEA/internal/optimization"
	"github.com/turtacn/ReactEA/pkg/errors"
)

// Run states reported by Status.
const (
	StateIdle      = "idle"
	StateRunning   = "running"
	StateCompleted = "completed"
	StateCancelled = "cancelled"
	StateFailed    = "failed"
)

// RunRecorder persists run metadata and progress. *postgres.RunStore
// implements it.
type RunRecorder interface {
	optimization.Observer
	CreateRun(ctx context.Context, run *postgres.Run) error
	SaveFinalPopulation(ctx context.Context, runID string, pop []*optimization.Solution) error
	FinishRun(ctx context.Context, runID, status string, cause error) error
}

// LineageWriter stores the transformation graph of the final population.
type LineageWriter interface {
	SavePopulation(ctx context.Context, runID string, pop []*optimization.Solution) error
}

// ArtifactUploader copies the run folder to object storage.
type ArtifactUploader interface {
	UploadRunFolder(ctx context.Context, runID, dir string) ([]*minio.UploadResult, error)
}

// Result describes a finished run.
type Result struct {
	RunID       string
	Dir         string
	Seed        int64
	State       string
	Generations int
	Evaluations int
	Objectives  []string
	Population  []*optimization.Solution
	Best        optimization.GenerationReport
}

// Status is a snapshot of the current or last run.
type Status struct {
	RunID          string        `json:"run_id,omitempty"`
	Experiment     string        `json:"experiment"`
	Algorithm      string        `json:"algorithm"`
	CaseStudy      string        `json:"case_study"`
	State          string        `json:"state"`
	Generation     int           `json:"generation"`
	MaxGenerations int           `json:"max_generations"`
	Evaluations    int           `json:"evaluations"`
	Objectives     []string      `json:"objectives,omitempty"`
	Best           []float64     `json:"best,omitempty"`
	BestSMILES     string        `json:"best_smiles,omitempty"`
	Unique         int           `json:"unique_structures"`
	StartedAt      time.Time     `json:"started_at,omitempty"`
	Elapsed        time.Duration `json:"elapsed_ns"`
	Error          string        `json:"error,omitempty"`
}

// Option customizes a Service.
type Option func(*Service)

// WithReactor replaces the template reactor.
func WithReactor(r chem.Reactor, name string) Option {
	return func(s *Service) {
		s.reactor = r
		s.reactorName = name
	}
}

// WithStandardizer replaces the fragment standardizer.
func WithStandardizer(std chem.Standardizer) Option {
	return func(s *Service) { s.standardizer = std }
}

// WithReactionCache memoizes reactor calls in cache for ttl.
func WithReactionCache(cache redis.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithMetrics records mutation, reaction, cache and generation metrics.
func WithMetrics(m *prometheus.EvolutionMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTransformationLogger adds a sink for accepted mutations. A logger that
// also implements io.Closer is closed when the run ends.
func WithTransformationLogger(l optimization.TransformationLogger) Option {
	return func(s *Service) { s.transformLoggers = append(s.transformLoggers, l) }
}

func WithRunRecorder(r RunRecorder) Option {
	return func(s *Service) { s.runs = r }
}

func WithLineageWriter(w LineageWriter) Option {
	return func(s *Service) { s.lineage = w }
}

func WithArtifactUploader(u ArtifactUploader) Option {
	return func(s *Service) { s.artifacts = u }
}

// WithObserver adds a generation observer.
func WithObserver(o optimization.Observer) Option {
	return func(s *Service) { s.observers = append(s.observers, o) }
}

// WithClock overrides time.Now, mainly for run folder names in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service runs one experiment at a time. Transformation sinks added with
// WithTransformationLogger are closed when a run ends.
type Service struct {
	cfg    *config.Config
	logger logging.Logger
	now    func() time.Time

	reactor      chem.Reactor
	reactorName  string
	standardizer chem.Standardizer
	cache        redis.Cache
	cacheTTL     time.Duration
	metrics      *prometheus.EvolutionMetrics

	transformLoggers []optimization.TransformationLogger
	observers        []optimization.Observer
	runs             RunRecorder
	lineage          LineageWriter
	artifacts        ArtifactUploader

	runMu sync.Mutex

	mu     sync.RWMutex
	status Status
	ga     *optimization.GeneticAlgorithm
}

// NewService validates cfg and applies opts. The template reactor and the
// fragment standardizer are used unless replaced.
func NewService(cfg *config.Config, logger logging.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, errors.InvalidParam("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "invalid configuration")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &Service{
		cfg:          cfg,
		logger:       logger.Named("evolution"),
		now:          time.Now,
		reactor:      chem.NewTemplateReactor(),
		reactorName:  config.DefaultReactorKind,
		standardizer: chem.NewStandardizer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.status = Status{
		Experiment:     cfg.Experiment.Name,
		Algorithm:      cfg.EA.Algorithm,
		CaseStudy:      cfg.CaseStudy.Name,
		State:          StateIdle,
		MaxGenerations: cfg.EA.MaxGenerations,
	}
	return s, nil
}

// Status returns a snapshot safe to serialize.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.status
	if s.ga != nil {
		st.Generation, st.Evaluations = s.ga.Progress()
	}
	st.Best = append([]float64(nil), st.Best...)
	st.Objectives = append([]string(nil), st.Objectives...)
	return st
}

// OnGeneration keeps the latest report for Status.
func (s *Service) OnGeneration(r optimization.GenerationReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Best = r.Best
	s.status.BestSMILES = r.BestSMILES
	s.status.Unique = r.UniqueStructures
	s.status.Elapsed = r.Elapsed
}

// Run executes the experiment. The outputs of the last complete generation
// are written even when ctx is cancelled, in which case ctx.Err() is
// returned together with the result. Only one run may be active at a time.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	if !s.runMu.TryLock() {
		return nil, errors.New(errors.ErrCodeConflict, "a run is already in progress")
	}
	defer s.runMu.Unlock()

	cfg := s.cfg
	seed := cfg.Experiment.Seed
	if seed == 0 {
		seed = s.now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	started := s.now()
	runID := uuid.NewString()
	log := s.logger.With(logging.String("run_id", runID))

	s.mu.Lock()
	s.ga = nil
	s.mu.Unlock()
	s.setState(func(st *Status) {
		*st = Status{
			RunID:          runID,
			Experiment:     cfg.Experiment.Name,
			Algorithm:      cfg.EA.Algorithm,
			CaseStudy:      cfg.CaseStudy.Name,
			State:          StateRunning,
			MaxGenerations: cfg.EA.MaxGenerations,
			StartedAt:      started,
		}
	})

	res, err := s.run(ctx, runID, seed, started, rng, log)
	state := StateCompleted
	switch {
	case err == nil:
	case stdliberrors.Is(err, context.Canceled), stdliberrors.Is(err, context.DeadlineExceeded):
		state = StateCancelled
	default:
		state = StateFailed
	}
	s.setState(func(st *Status) {
		st.State = state
		if err != nil {
			st.Error = err.Error()
		}
	})
	if res != nil {
		res.State = state
	}
	return res, err
}

func (s *Service) run(ctx context.Context, runID string, seed int64, started time.Time, rng *rand.Rand, log logging.Logger) (*Result, error) {
	cfg := s.cfg

	problem, err := casestudy.New(cfg.CaseStudy.Name, casestudy.Options{Target: cfg.CaseStudy.Target})
	if err != nil {
		return nil, err
	}
	objectives := problem.ObjectiveNames()
	s.setState(func(st *Status) { st.Objectives = objectives })
	if s.metrics != nil {
		s.metrics.SetObjectiveNames(objectives)
	}

	rules, err := localfs.ReadRules(cfg.Rules.Path)
	if err != nil {
		return nil, err
	}
	var coreactants *chem.CoreactantPool
	if cfg.Rules.UseCoreactants {
		if coreactants, err = localfs.ReadCoreactants(cfg.Compounds.CoreactantsPath); err != nil {
			return nil, err
		}
	}
	compounds, err := localfs.LoadInitialPopulation(cfg.Compounds.InitPopPath, cfg.Compounds.InitPopSize, rng, s.standardizer)
	if err != nil {
		return nil, err
	}

	dir, err := localfs.CreateRunFolder(cfg.Experiment.OutputDir, cfg.Experiment.Name, started)
	if err != nil {
		return nil, err
	}
	if _, err := localfs.WriteConfigSnapshot(dir, cfg); err != nil {
		return nil, err
	}
	tlog, err := localfs.OpenTransformationLog(dir, log)
	if err != nil {
		return nil, err
	}
	loggers := append(optimization.TransformationLoggers{tlog}, s.transformLoggers...)
	defer s.closeLoggers(loggers, log)

	log.Info("run started",
		logging.String("experiment", cfg.Experiment.Name),
		logging.String("dir", dir),
		logging.Int64("seed", seed),
		logging.String("algorithm", cfg.EA.Algorithm),
		logging.String("case_study", problem.Name()),
		logging.Int("rules", len(rules)),
		logging.Int("population", len(compounds)))

	mutCfg := optimization.MutationConfig{
		Probability:  cfg.EA.MutationProbability,
		MaxTries:     cfg.Rules.MaxRulesByIter,
		Rules:        rules,
		Coreactants:  coreactants,
		Reactor:      s.buildReactor(log),
		Standardizer: s.standardizer,
		Logger:       loggers,
		Settings:     optimization.RunInfo{RunID: runID, Experiment: cfg.Experiment.Name, OutputDir: dir},
	}
	if s.metrics != nil {
		mutCfg.Recorder = s.metrics
	}
	ops, err := s.buildOperators(mutCfg, rng, log)
	if err != nil {
		return nil, err
	}

	initial := make([]*optimization.Solution, len(compounds))
	for i, c := range compounds {
		initial[i] = optimization.NewSolution(c, problem.NumberOfObjectives())
	}

	observers := []optimization.Observer{s}
	if s.metrics != nil {
		observers = append(observers, s.metrics)
	}
	if s.runs != nil {
		observers = append(observers, s.runs)
	}
	observers = append(observers, s.observers...)

	ga, err := optimization.NewGeneticAlgorithm(optimization.Settings{
		PopulationSize: cfg.EA.PopulationSize,
		OffspringSize:  cfg.EA.OffspringSize,
		MaxGenerations: cfg.EA.MaxGenerations,
		Parallel:       cfg.EA.Multiprocessing,
		Workers:        cfg.EA.Workers,
	}, problem, ops, initial, rng, log, observers...)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.ga = ga
	s.mu.Unlock()

	if s.runs != nil {
		run := &postgres.Run{
			ID:         runID,
			Experiment: cfg.Experiment.Name,
			Algorithm:  cfg.EA.Algorithm,
			CaseStudy:  cfg.CaseStudy.Name,
			Seed:       seed,
			Objectives: objectives,
			Config:     cfg,
			OutputDir:  dir,
			StartedAt:  started,
		}
		if err := s.runs.CreateRun(ctx, run); err != nil {
			log.Warn("run not recorded", logging.Err(err))
		}
	}

	pop, runErr := ga.Run(ctx)
	if pop == nil {
		pop = ga.Result()
	}
	generation, evaluations := ga.Progress()

	// Sinks still get the last complete population after cancellation.
	sinkCtx := context.WithoutCancel(ctx)
	outErr := s.writeOutputs(dir, pop, objectives)
	s.closeLoggers(loggers, log)
	s.persist(sinkCtx, runID, dir, pop, runErr, log)

	res := &Result{
		RunID:       runID,
		Dir:         dir,
		Seed:        seed,
		Generations: generation,
		Evaluations: evaluations,
		Objectives:  objectives,
		Population:  pop,
		Best:        optimization.Summarize(pop),
	}

	fields := []logging.Field{
		logging.Int("generations", generation),
		logging.Int("evaluations", evaluations),
		logging.Float64s("best", res.Best.Best),
		logging.String("best_smiles", res.Best.BestSMILES),
		logging.Duration("elapsed", s.now().Sub(started)),
	}
	switch {
	case runErr != nil:
		log.Warn("run stopped early", append(fields, logging.Err(runErr))...)
		return res, runErr
	case outErr != nil:
		return res, outErr
	}
	log.Info("run finished", fields...)
	return res, nil
}

// buildReactor stacks metrics and the reaction cache on the base reactor.
// Cache hits never reach the instrumented reactor.
func (s *Service) buildReactor(log logging.Logger) chem.Reactor {
	r := s.reactor
	if s.metrics != nil {
		r = &instrumentedReactor{inner: r, name: s.reactorName, recorder: s.metrics}
	}
	if s.cache != nil {
		var rec redis.CacheRecorder
		if s.metrics != nil {
			rec = s.metrics
		}
		r = redis.NewCachingReactor(r, s.cache, s.cacheTTL, rec, log)
	}
	return r
}

func (s *Service) buildOperators(mutCfg optimization.MutationConfig, rng *rand.Rand, log logging.Logger) (*optimization.ChemicalOperators, error) {
	mutation, err := optimization.NewReactorMutation(mutCfg, rng, log)
	if err != nil {
		return nil, err
	}
	crossCfg := mutCfg
	crossCfg.Probability = s.cfg.EA.CrossoverProbability
	crossover, err := optimization.NewReactorPseudoCrossover(crossCfg, rng, log)
	if err != nil {
		return nil, err
	}

	var replacement optimization.Replacer
	switch s.cfg.EA.Algorithm {
	case "NSGAII":
		replacement = optimization.NSGA2Replacement{PopulationSize: s.cfg.EA.PopulationSize}
	default:
		mode, err := optimization.ParseReplacementMode(s.cfg.EA.Replacement)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeValidation, "invalid replacement")
		}
		replacement = optimization.UniqueReplacement{PopulationSize: s.cfg.EA.PopulationSize, Mode: mode}
	}
	return optimization.NewChemicalOperators(mutation, crossover, replacement), nil
}

func (s *Service) writeOutputs(dir string, pop []*optimization.Solution, objectives []string) error {
	if _, err := localfs.WriteFinalPopulation(dir, pop, objectives); err != nil {
		return err
	}
	_, err := localfs.WriteTransformations(dir, pop)
	return err
}

// persist hands the final population to the optional sinks. Their failures
// are logged and never fail the run.
func (s *Service) persist(ctx context.Context, runID, dir string, pop []*optimization.Solution, runErr error, log logging.Logger) {
	if s.runs != nil {
		status := postgres.RunStatusCompleted
		switch {
		case runErr == nil:
		case stdliberrors.Is(runErr, context.Canceled), stdliberrors.Is(runErr, context.DeadlineExceeded):
			status = postgres.RunStatusCancelled
		default:
			status = postgres.RunStatusFailed
		}
		if err := s.runs.SaveFinalPopulation(ctx, runID, pop); err != nil {
			log.Warn("final population not stored", logging.Err(err))
		}
		if err := s.runs.FinishRun(ctx, runID, status, runErr); err != nil {
			log.Warn("run status not stored", logging.Err(err))
		}
	}
	if s.lineage != nil {
		if err := s.lineage.SavePopulation(ctx, runID, pop); err != nil {
			log.Warn("lineage not stored", logging.Err(err))
		}
	}
	if s.artifacts != nil {
		uploaded, err := s.artifacts.UploadRunFolder(ctx, runID, dir)
		if err != nil {
			log.Warn("run folder not uploaded", logging.Err(err))
		} else {
			log.Info("run folder uploaded", logging.Int("objects", len(uploaded)))
		}
	}
}

type closer interface{ Close() error }

// closeLoggers is idempotent; every sink tolerates a second Close.
func (s *Service) closeLoggers(loggers optimization.TransformationLoggers, log logging.Logger) {
	for _, l := range loggers {
		if c, ok := l.(closer); ok {
			if err := c.Close(); err != nil {
				log.Warn("transformation sink close failed", logging.Err(err))
			}
		}
	}
}

func (s *Service) setState(fn func(*Status)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.status)
}
