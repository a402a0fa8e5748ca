package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/turtacn/ReactEA/internal/casestudy"
	"github.com/turtacn/ReactEA/internal/config"
	"github.com/turtacn/ReactEA/internal/domain/chem"
	"github.com/turtacn/ReactEA/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ReactEA/internal/infrastructure/storage/localfs"
	"github.com/turtacn/ReactEA/pkg/errors"
)

// NewValidateCmd checks a configuration and its input files without running.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and input files",
		Long: "Load the configuration, the reaction rules, the initial compounds and the\n" +
			"coreactants, and build the case study. Nothing is written.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg, err := cliCtx.RequireConfig()
			if err != nil {
				return err
			}
			report, err := validateInputs(cfg, chem.NewStandardizer(), cliCtx.Logger)
			if err != nil {
				return err
			}
			return PrintResult(cmd, report)
		},
	}
}

// validationReport summarizes the inputs of an experiment.
type validationReport struct {
	Experiment          string   `json:"experiment"`
	Algorithm           string   `json:"algorithm"`
	CaseStudy           string   `json:"case_study"`
	Objectives          []string `json:"objectives"`
	Rules               int      `json:"rules"`
	UnresolvedRules     []string `json:"unresolved_rules,omitempty"`
	Compounds           int      `json:"compounds"`
	InvalidCompounds    []string `json:"invalid_compounds,omitempty"`
	Coreactants         int      `json:"coreactants"`
	InitialPopulation   int      `json:"initial_population"`
	PopulationShortfall bool     `json:"population_shortfall,omitempty"`
}

func (r *validationReport) String() string {
	s := fmt.Sprintf("experiment %q: %s on %s %v\n  rules: %d (%d with unresolved coreactants)\n  compounds: %d (%d not standardizable), coreactants: %d\n  initial population: %d",
		r.Experiment, r.Algorithm, r.CaseStudy, r.Objectives,
		r.Rules, len(r.UnresolvedRules),
		r.Compounds, len(r.InvalidCompounds), r.Coreactants,
		r.InitialPopulation)
	if r.PopulationShortfall {
		s += " (fewer compounds than compounds.init_pop_size)"
	}
	return s
}

func (r *validationReport) TableHeaders() []string {
	return []string{"CHECK", "VALUE"}
}

func (r *validationReport) TableRows() [][]string {
	return [][]string{
		{"experiment", r.Experiment},
		{"algorithm", r.Algorithm},
		{"case_study", r.CaseStudy},
		{"rules", fmt.Sprint(r.Rules)},
		{"unresolved_rules", fmt.Sprint(len(r.UnresolvedRules))},
		{"compounds", fmt.Sprint(r.Compounds)},
		{"invalid_compounds", fmt.Sprint(len(r.InvalidCompounds))},
		{"coreactants", fmt.Sprint(r.Coreactants)},
		{"initial_population", fmt.Sprint(r.InitialPopulation)},
	}
}

// validateInputs reads every input of cfg. Unreadable files and an unknown
// case study are errors; unusable rows are reported.
func validateInputs(cfg *config.Config, std chem.Standardizer, logger logging.Logger) (*validationReport, error) {
	problem, err := casestudy.New(cfg.CaseStudy.Name, casestudy.Options{Target: cfg.CaseStudy.Target})
	if err != nil {
		return nil, err
	}
	report := &validationReport{
		Experiment: cfg.Experiment.Name,
		Algorithm:  cfg.EA.Algorithm,
		CaseStudy:  problem.Name(),
		Objectives: problem.ObjectiveNames(),
	}

	rules, err := localfs.ReadRules(cfg.Rules.Path)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyRulePool, "no reaction rules in "+cfg.Rules.Path)
	}
	report.Rules = len(rules)

	var pool *chem.CoreactantPool
	if cfg.Rules.UseCoreactants {
		if pool, err = localfs.ReadCoreactants(cfg.Compounds.CoreactantsPath); err != nil {
			return nil, err
		}
		report.Coreactants = pool.Len()
		probe := chem.NewCompound("probe", "C")
		for _, r := range rules {
			if !pool.Resolve(r.CoreactantsIDs, probe).OK {
				report.UnresolvedRules = append(report.UnresolvedRules, r.ID)
			}
		}
	}

	compounds, err := localfs.ReadCompounds(cfg.Compounds.InitPopPath)
	if err != nil {
		return nil, err
	}
	report.Compounds = len(compounds)
	for _, c := range compounds {
		if _, err := std.Standardize(c); err != nil {
			logger.Debug("compound not standardizable", logging.String("compound_id", c.ID), logging.Err(err))
			report.InvalidCompounds = append(report.InvalidCompounds, c.ID)
		}
	}

	report.InitialPopulation = min(cfg.Compounds.InitPopSize, len(compounds))
	report.PopulationShortfall = len(compounds) < cfg.Compounds.InitPopSize
	if report.Compounds == len(report.InvalidCompounds) {
		return report, errors.New(errors.ErrCodeEmptyPopulation, "no usable compounds in "+cfg.Compounds.InitPopPath)
	}
	return report, nil
}
