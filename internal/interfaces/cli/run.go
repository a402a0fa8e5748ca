package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/turtacn/ReactEA/internal/application/evolution"
	"github.com/turtacn/ReactEA/internal/config"
	"github.com/turtacn/ReactEA/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ReactEA/internal/infrastructure/monitoring/prometheus"
	httpapi "github.com/turtacn/ReactEA/internal/interfaces/http"
	"github.com/turtacn/ReactEA/internal/interfaces/http/handlers"
)

type runOptions struct {
	seed           int64
	outputDir      string
	maxGenerations int
	noServer       bool
}

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an experiment",
		Long: "Run the experiment described by the configuration file. The run folder\n" +
			"receives a config snapshot, the final population and the transformation\n" +
			"histories. SIGINT or SIGTERM stops the run after the current generation.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExperiment(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.Int64Var(&opts.seed, "seed", 0, "random seed; overrides experiment.seed")
	f.StringVar(&opts.outputDir, "output-dir", "", "overrides experiment.output_dir")
	f.IntVar(&opts.maxGenerations, "max-generations", 0, "overrides ea.max_generations")
	f.BoolVar(&opts.noServer, "no-server", false, "do not start the status and metrics server")
	return cmd
}

// applyOverrides copies the flags the user set onto cfg.
func (o *runOptions) applyOverrides(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("seed") {
		cfg.Experiment.Seed = o.seed
	}
	if f.Changed("output-dir") {
		cfg.Experiment.OutputDir = o.outputDir
	}
	if f.Changed("max-generations") {
		cfg.EA.MaxGenerations = o.maxGenerations
	}
	return cfg.Validate()
}

func runExperiment(cmd *cobra.Command, opts *runOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg, err := cliCtx.RequireConfig()
	if err != nil {
		return err
	}
	if err := opts.applyOverrides(cmd, cfg); err != nil {
		return err
	}
	logger := cliCtx.Logger

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		collector prometheus.MetricsCollector
		metrics   *prometheus.EvolutionMetrics
	)
	if cfg.Metrics.Enabled {
		collector, err = prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, logger)
		if err != nil {
			return err
		}
		metrics = prometheus.NewEvolutionMetrics(collector)
	}

	asm, err := evolution.Assemble(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer asm.Close()

	if cfg.Metrics.Enabled && !opts.noServer {
		srv, err := startStatusServer(cfg.Metrics.Addr, asm, collector, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := srv.Shutdown(context.Background()); err != nil {
				logger.Warn("status server shutdown failed", logging.Err(err))
			}
		}()
	}

	if cliCtx.ConfigPath != "" {
		watchLogLevel(cliCtx.ConfigPath, logger)
	}

	res, runErr := asm.Service.Run(ctx)
	if res != nil {
		if err := PrintResult(cmd, newRunSummary(res)); err != nil {
			return err
		}
	}
	return runErr
}

func startStatusServer(addr string, asm *evolution.Assembly, collector prometheus.MetricsCollector, logger logging.Logger) (*httpapi.Server, error) {
	checkers := make([]handlers.HealthChecker, 0, len(asm.Checks))
	for _, c := range asm.Checks {
		checkers = append(checkers, handlers.Check(c.Name, c.Check))
	}
	router := httpapi.NewRouter(httpapi.RouterConfig{
		HealthHandler:    handlers.NewHealthHandler(Version, checkers...),
		StatusHandler:    handlers.NewStatusHandler(asm.Service),
		Logger:           logger,
		MetricsCollector: collector,
	})
	srv := httpapi.NewServer(addr, router, logger)
	if _, err := srv.Start(); err != nil {
		return nil, err
	}
	return srv, nil
}

// watchLogLevel applies log.level edits to the running process. Other
// settings only take effect on the next run.
func watchLogLevel(path string, logger logging.Logger) {
	config.Watch(path, func(cfg *config.Config) {
		if logging.SetLevel(logger, cfg.Log.Level) {
			logger.Info("log level changed", logging.String("level", cfg.Log.Level))
		}
	}, func(err error) {
		logger.Warn("config reload rejected", logging.Err(err))
	})
}

// runSummary is the printed outcome of a run.
type runSummary struct {
	RunID       string    `json:"run_id"`
	State       string    `json:"state"`
	Dir         string    `json:"dir"`
	Seed        int64     `json:"seed"`
	Generations int       `json:"generations"`
	Evaluations int       `json:"evaluations"`
	Objectives  []string  `json:"objectives"`
	Best        []float64 `json:"best"`
	BestSMILES  string    `json:"best_smiles"`
	Population  int       `json:"population"`
}

func newRunSummary(res *evolution.Result) runSummary {
	return runSummary{
		RunID:       res.RunID,
		State:       res.State,
		Dir:         res.Dir,
		Seed:        res.Seed,
		Generations: res.Generations,
		Evaluations: res.Evaluations,
		Objectives:  res.Objectives,
		Best:        res.Best.Best,
		BestSMILES:  res.Best.BestSMILES,
		Population:  len(res.Population),
	}
}

func (s runSummary) String() string {
	return fmt.Sprintf("run %s %s after %d generations (%d evaluations)\n  best %s = %s  %s\n  outputs in %s",
		s.RunID, s.State, s.Generations, s.Evaluations,
		formatNames(s.Objectives), formatFloats(s.Best), s.BestSMILES, s.Dir)
}

func (s runSummary) TableHeaders() []string {
	return []string{"RUN", "STATE", "GENERATIONS", "EVALUATIONS", "BEST", "BEST_SMILES", "DIR"}
}

func (s runSummary) TableRows() [][]string {
	return [][]string{{
		s.RunID, s.State, fmt.Sprint(s.Generations), fmt.Sprint(s.Evaluations),
		formatFloats(s.Best), s.BestSMILES, s.Dir,
	}}
}

func formatNames(names []string) string {
	if len(names) == 1 {
		return names[0]
	}
	return "(" + strings.Join(names, ",") + ")"
}
