package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/turtacn/ReactEA/internal/infrastructure/database/neo4j"
	"github.com/turtacn/ReactEA/internal/infrastructure/database/postgres"
	"github.com/turtacn/ReactEA/internal/optimization"
)

// lineageReader is the read side of neo4j.LineageRepository.
type lineageReader interface {
	Ancestry(ctx context.Context, runID, compoundID string) ([]optimization.Transformation, error)
	RuleUsage(ctx context.Context, runID string, limit int) ([]neo4j.RuleUsage, error)
	DeleteRun(ctx context.Context, runID string) error
}

// runReader is the read side of postgres.RunStore.
type runReader interface {
	GetRun(ctx context.Context, runID string) (*postgres.Run, error)
	ListGenerations(ctx context.Context, runID string) ([]postgres.GenerationRow, error)
}

// Backends are opened through these so tests can substitute fakes.
var (
	openLineage = func(cmd *cobra.Command) (lineageReader, func(), error) {
		cliCtx, err := GetCLIContext(cmd)
		if err != nil {
			return nil, nil, err
		}
		cfg, err := cliCtx.RequireConfig()
		if err != nil {
			return nil, nil, err
		}
		driver, err := neo4j.NewDriver(cmd.Context(), cfg.Neo4j, cliCtx.Logger)
		if err != nil {
			return nil, nil, err
		}
		return neo4j.NewLineageRepository(driver, cliCtx.Logger), func() { _ = driver.Close(context.Background()) }, nil
	}
	openRuns = func(cmd *cobra.Command) (runReader, func(), error) {
		cliCtx, err := GetCLIContext(cmd)
		if err != nil {
			return nil, nil, err
		}
		cfg, err := cliCtx.RequireConfig()
		if err != nil {
			return nil, nil, err
		}
		pool, err := postgres.NewConnectionPool(cmd.Context(), cfg.Database, cliCtx.Logger)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewRunStore(pool, cliCtx.Logger), func() { postgres.Close(pool) }, nil
	}
)

// NewLineageCmd queries the Neo4j lineage graph.
func NewLineageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lineage",
		Short: "Query the compound lineage graph",
	}

	showCmd := &cobra.Command{
		Use:   "show <run-id> <compound-id>",
		Short: "Print the rule applications that produced a compound",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeFn, err := openLineage(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			steps, err := repo.Ancestry(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return PrintResult(cmd, ancestryView{CompoundID: args[1], Steps: steps})
		},
	}

	var limit int
	rulesCmd := &cobra.Command{
		Use:   "rules <run-id>",
		Short: "Rank reaction rules by how often they appear in stored lineages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeFn, err := openLineage(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			usage, err := repo.RuleUsage(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			return PrintResult(cmd, ruleUsageView(usage))
		},
	}
	rulesCmd.Flags().IntVar(&limit, "limit", 20, "maximum number of rules")

	deleteCmd := &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Remove the lineage graph of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeFn, err := openLineage(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			if err := repo.DeleteRun(cmd.Context(), args[0]); err != nil {
				return err
			}
			PrintSuccess(cmd, "lineage of run "+args[0]+" deleted")
			return nil
		},
	}

	cmd.AddCommand(showCmd, rulesCmd, deleteCmd)
	return cmd
}

// NewRunsCmd reads the PostgreSQL run store.
func NewRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect stored runs",
	}
	showCmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print a run and its per-generation progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := openRuns(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			gens, err := store.ListGenerations(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, newRunView(run, gens))
		},
	}
	cmd.AddCommand(showCmd)
	return cmd
}

type ancestryView struct {
	CompoundID string                        `json:"compound_id"`
	Steps      []optimization.Transformation `json:"steps"`
}

func (v ancestryView) String() string {
	if len(v.Steps) == 0 {
		return v.CompoundID + " is a lineage root"
	}
	var sb strings.Builder
	for i, s := range v.Steps {
		fmt.Fprintf(&sb, "%3d  %s  --[%s]-->\n", i+1, s.AncestorSMILES, s.RuleID)
	}
	sb.WriteString("     " + v.CompoundID)
	return sb.String()
}

func (v ancestryView) TableHeaders() []string { return []string{"STEP", "ANCESTOR_SMILES", "RULE"} }

func (v ancestryView) TableRows() [][]string {
	rows := make([][]string, len(v.Steps))
	for i, s := range v.Steps {
		rows[i] = []string{fmt.Sprint(i + 1), s.AncestorSMILES, s.RuleID}
	}
	return rows
}

type ruleUsageView []neo4j.RuleUsage

func (v ruleUsageView) TableHeaders() []string { return []string{"RULE", "USES"} }

func (v ruleUsageView) TableRows() [][]string {
	rows := make([][]string, len(v))
	for i, u := range v {
		rows[i] = []string{u.RuleID, fmt.Sprint(u.Uses)}
	}
	return rows
}

type runView struct {
	ID          string                   `json:"id"`
	Experiment  string                   `json:"experiment"`
	Algorithm   string                   `json:"algorithm"`
	CaseStudy   string                   `json:"case_study"`
	Seed        int64                    `json:"seed"`
	Objectives  []string                 `json:"objectives"`
	Status      string                   `json:"status"`
	Error       string                   `json:"error,omitempty"`
	OutputDir   string                   `json:"output_dir"`
	StartedAt   time.Time                `json:"started_at"`
	FinishedAt  *time.Time               `json:"finished_at,omitempty"`
	Generations []postgres.GenerationRow `json:"generations"`
}

func newRunView(run *postgres.Run, gens []postgres.GenerationRow) runView {
	return runView{
		ID:          run.ID,
		Experiment:  run.Experiment,
		Algorithm:   run.Algorithm,
		CaseStudy:   run.CaseStudy,
		Seed:        run.Seed,
		Objectives:  run.Objectives,
		Status:      run.Status,
		Error:       run.Error,
		OutputDir:   run.OutputDir,
		StartedAt:   run.StartedAt,
		FinishedAt:  run.FinishedAt,
		Generations: gens,
	}
}

func (v runView) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "run %s (%s) %s\n  %s on %s, seed %d, objectives %v\n  output %s\n",
		v.ID, v.Experiment, v.Status, v.Algorithm, v.CaseStudy, v.Seed, v.Objectives, v.OutputDir)
	if v.Error != "" {
		fmt.Fprintf(&sb, "  error: %s\n", v.Error)
	}
	sb.WriteString(FormatTable(v.TableHeaders(), v.TableRows()))
	return strings.TrimRight(sb.String(), "\n")
}

func (v runView) TableHeaders() []string {
	return []string{"GEN", "EVALS", "BEST", "MEAN", "UNIQUE", "DUPLICATES", "ELAPSED"}
}

func (v runView) TableRows() [][]string {
	rows := make([][]string, len(v.Generations))
	for i, g := range v.Generations {
		rows[i] = []string{
			fmt.Sprint(g.Generation),
			fmt.Sprint(g.Evaluations),
			formatFloats(g.Best),
			fmt.Sprintf("%.4f", g.MeanPrimary),
			fmt.Sprint(g.UniqueStructures),
			fmt.Sprint(g.Duplicates),
			g.Elapsed.Truncate(time.Millisecond).String(),
		}
	}
	return rows
}
