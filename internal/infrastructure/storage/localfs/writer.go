package localfs

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/turtacn/ReactEA/internal/optimization"
	"github.com/turtacn/ReactEA/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Output file names inside a run folder.
const (
	FinalPopulationFile   = "final_population.tsv"
	TransformationsFile   = "transformations.tsv"
	TransformationLogFile = "transformation_log.tsv"
	ConfigSnapshotFile    = "config.yaml"
)

// RunFolderTimeLayout renders the run start as month-day_hour-minute-second.
const RunFolderTimeLayout = "01-02_15-04-05"

// CreateRunFolder creates <outputDir>/<name>_<timestamp> and returns it.
func CreateRunFolder(outputDir, name string, started time.Time) (string, error) {
	dir := filepath.Join(outputDir, fmt.Sprintf("%s_%s", name, started.Format(RunFolderTimeLayout)))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err, errors.CodeIOFailure, "create run folder")
	}
	return dir, nil
}

func writeTSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.CodeIOFailure, "create "+path)
	}
	w := csv.NewWriter(f)
	w.Comma = '\t'
	if err := w.Write(header); err != nil {
		f.Close()
		return errors.Wrap(err, errors.CodeIOFailure, "write "+path)
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return errors.Wrap(err, errors.CodeIOFailure, "write "+path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, errors.CodeIOFailure, "close "+path)
	}
	return nil
}

func formatObjective(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteFinalPopulation writes one row per solution: id, smiles, every
// objective and the applied rule IDs joined by "|".
func WriteFinalPopulation(dir string, pop []*optimization.Solution, objectiveNames []string) (string, error) {
	header := append([]string{"id", "smiles"}, objectiveNames...)
	header = append(header, "rule_ids")

	rows := make([][]string, 0, len(pop))
	for _, s := range pop {
		row := []string{s.Compound.ID, s.SMILES()}
		for i := range objectiveNames {
			v := ""
			if i < len(s.Objectives) {
				v = formatObjective(s.Objectives[i])
			}
			row = append(row, v)
		}
		rows = append(rows, append(row, strings.Join(s.RuleIDs(), "|")))
	}

	path := filepath.Join(dir, FinalPopulationFile)
	return path, writeTSV(path, header, rows)
}

// WriteTransformations writes the lineage of every solution, one row per
// applied step in order.
func WriteTransformations(dir string, pop []*optimization.Solution) (string, error) {
	header := []string{"id", "final_smiles", "step", "ancestor_smiles", "rule_id"}
	var rows [][]string
	for _, s := range pop {
		for step, h := range s.History {
			rows = append(rows, []string{s.Compound.ID, s.SMILES(), strconv.Itoa(step + 1), h.AncestorSMILES, h.RuleID})
		}
	}
	path := filepath.Join(dir, TransformationsFile)
	return path, writeTSV(path, header, rows)
}

// WriteConfigSnapshot stores v as YAML. Fields tagged yaml:"-" are left out.
func WriteConfigSnapshot(dir string, v any) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeSerialization, "marshal config snapshot")
	}
	path := filepath.Join(dir, ConfigSnapshotFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrap(err, errors.CodeIOFailure, "write config snapshot")
	}
	return path, nil
}
