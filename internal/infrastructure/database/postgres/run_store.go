package postgres

import (
	"context"
	"encoding/json"
	stdliberrors "errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/turtacn/ReactEA/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ReactEA/internal/optimization"
	"github.com/turtacn/ReactEA/pkg/errors"
)

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusCancelled = "cancelled"
	RunStatusFailed    = "failed"
)

var ErrRunNotFound = errors.New(errors.ErrCodeNotFound, "run not found")

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Run is one row of the runs table.
type Run struct {
	ID         string
	Experiment string
	Algorithm  string
	CaseStudy  string
	Seed       int64
	Objectives []string
	Config     any
	OutputDir  string
	Status     string
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// GenerationRow is a stored GenerationReport.
type GenerationRow struct {
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

// RunStore persists run metadata, per-generation progress and the final
// population.
type RunStore struct {
	db     Querier
	logger logging.Logger
	// timeout bounds observer writes, which have no caller context.
	timeout time.Duration

	runID string
}

// NewRunStore binds the store to db.
func NewRunStore(db Querier, log logging.Logger) *RunStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &RunStore{db: db, logger: log.Named("run-store"), timeout: 5 * time.Second}
}

// CreateRun inserts run and remembers its ID for OnGeneration.
func (s *RunStore) CreateRun(ctx context.Context, run *Run) error {
	if run == nil || run.ID == "" {
		return errors.InvalidParam("run id is required")
	}
	cfg, err := json.Marshal(run.Config)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode run config")
	}
	if run.Status == "" {
		run.Status = RunStatusRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	objectives := run.Objectives
	if objectives == nil {
		objectives = []string{}
	}

	const q = `
		INSERT INTO runs (id, experiment, algorithm, case_study, seed, objectives, config, output_dir, status, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := s.db.Exec(ctx, q, run.ID, run.Experiment, run.Algorithm, run.CaseStudy, run.Seed,
		objectives, cfg, run.OutputDir, run.Status, run.StartedAt); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert run")
	}
	s.runID = run.ID
	return nil
}

// RecordGeneration upserts one generation of runID.
func (s *RunStore) RecordGeneration(ctx context.Context, runID string, r optimization.GenerationReport) error {
	best := r.Best
	if best == nil {
		best = []float64{}
	}
	const q = `
		INSERT INTO generations (run_id, generation, evaluations, best, best_smiles, mean_primary,
		                         unique_structures, duplicates, population_size, elapsed_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (run_id, generation) DO UPDATE SET
			evaluations = EXCLUDED.evaluations,
			best = EXCLUDED.best,
			best_smiles = EXCLUDED.best_smiles,
			mean_primary = EXCLUDED.mean_primary,
			unique_structures = EXCLUDED.unique_structures,
			duplicates = EXCLUDED.duplicates,
			population_size = EXCLUDED.population_size,
			elapsed_ms = EXCLUDED.elapsed_ms,
			recorded_at = NOW()`
	if _, err := s.db.Exec(ctx, q, runID, r.Generation, r.Evaluations, best, r.BestSMILES, r.MeanPrimary,
		r.UniqueStructures, r.Duplicates, r.PopulationSize, r.Elapsed.Milliseconds()); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to record generation")
	}
	return nil
}

// OnGeneration records the report of the current run. Failures are logged
// and never stop the run.
func (s *RunStore) OnGeneration(r optimization.GenerationReport) {
	if s.runID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.RecordGeneration(ctx, s.runID, r); err != nil {
		s.logger.Warn("generation not persisted",
			logging.String("run_id", s.runID),
			logging.Int("generation", r.Generation),
			logging.Err(err))
	}
}

// SaveFinalPopulation replaces the stored final population of runID.
func (s *RunStore) SaveFinalPopulation(ctx context.Context, runID string, pop []*optimization.Solution) error {
	return WithTransaction(ctx, s.db, func(tx pgx.Tx, ctx context.Context) error {
		if _, err := tx.Exec(ctx, `DELETE FROM final_population WHERE run_id = $1`, runID); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to clear final population")
		}
		const q = `
			INSERT INTO final_population (run_id, position, compound_id, smiles, objectives, rule_ids)
			VALUES ($1, $2, $3, $4, $5, $6)`
		batch := &pgx.Batch{}
		for i, sol := range pop {
			if sol == nil || sol.Compound == nil {
				continue
			}
			ruleIDs := sol.RuleIDs()
			if ruleIDs == nil {
				ruleIDs = []string{}
			}
			batch.Queue(q, runID, i, sol.Compound.ID, sol.Compound.SMILES, sol.Objectives, ruleIDs)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert final population")
		}
		return nil
	})
}

// FinishRun stamps the run's terminal status. cause may be nil.
func (s *RunStore) FinishRun(ctx context.Context, runID, status string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE runs SET status = $2, error = $3, finished_at = $4 WHERE id = $1`,
		runID, status, msg, time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to finish run")
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

// GetRun loads one run. The Config field holds the raw JSON.
func (s *RunStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	var (
		run Run
		cfg []byte
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, experiment, algorithm, case_study, seed, objectives, config, output_dir,
		       status, error, started_at, finished_at
		FROM runs WHERE id = $1`, runID).
		Scan(&run.ID, &run.Experiment, &run.Algorithm, &run.CaseStudy, &run.Seed, &run.Objectives, &cfg,
			&run.OutputDir, &run.Status, &run.Error, &run.StartedAt, &run.FinishedAt)
	if err != nil {
		if stdliberrors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load run")
	}
	run.Config = json.RawMessage(cfg)
	return &run, nil
}

// ListGenerations returns the stored reports of runID in order.
func (s *RunStore) ListGenerations(ctx context.Context, runID string) ([]GenerationRow, error) {
	rows, err := s.db.Query(ctx, `
		SELECT generation, evaluations, best, best_smiles, mean_primary,
		       unique_structures, duplicates, population_size, elapsed_ms
		FROM generations WHERE run_id = $1 ORDER BY generation`, runID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query generations")
	}
	defer rows.Close()

	var out []GenerationRow
	for rows.Next() {
		var (
			g         GenerationRow
			elapsedMs int64
		)
		if err := rows.Scan(&g.Generation, &g.Evaluations, &g.Best, &g.BestSMILES, &g.MeanPrimary,
			&g.UniqueStructures, &g.Duplicates, &g.PopulationSize, &elapsedMs); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan generation")
		}
		g.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate generations")
	}
	return out, nil
}
