package localfs

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/turtacn/ReactEA/internal/domain/chem"
	"github.com/turtacn/ReactEA/internal/optimization"
)

func evolved() []*optimization.Solution {
	s := optimization.NewSolution(chem.NewCompound("C1--R1_--R2_", "CC=O"), 2)
	s.Objectives = []float64{-0.5, -0.25}
	s.History = []optimization.Transformation{
		{AncestorSMILES: "CCO", RuleID: "R1"},
		{AncestorSMILES: "CCOC", RuleID: "R2"},
	}
	plain := optimization.NewSolution(chem.NewCompound("C2", "CCN"), 2)
	return []*optimization.Solution{s, plain}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestCreateRunFolder(t *testing.T) {
	started := time.Date(2024, 3, 7, 9, 5, 1, 0, time.UTC)
	dir, err := CreateRunFolder(t.TempDir(), "quality", started)
	require.NoError(t, err)
	assert.Equal(t, "quality_03-07_09-05-01", filepath.Base(dir))
	assert.DirExists(t, dir)
}

func TestWriteFinalPopulation(t *testing.T) {
	path, err := WriteFinalPopulation(t.TempDir(), evolved(), []string{"quality", "similarity"})
	require.NoError(t, err)

	lines := readLines(t, path)
	require.Len(t, lines, 3)
	assert.Equal(t, "id\tsmiles\tquality\tsimilarity\trule_ids", lines[0])
	assert.Equal(t, "C1--R1_--R2_\tCC=O\t-0.5\t-0.25\tR1|R2", lines[1])
	assert.Equal(t, "C2\tCCN\t0\t0\t", lines[2])
}

func TestWriteTransformations(t *testing.T) {
	path, err := WriteTransformations(t.TempDir(), evolved())
	require.NoError(t, err)

	lines := readLines(t, path)
	require.Len(t, lines, 3)
	assert.Equal(t, "C1--R1_--R2_\tCC=O\t1\tCCO\tR1", lines[1])
	assert.Equal(t, "C1--R1_--R2_\tCC=O\t2\tCCOC\tR2", lines[2])
}

func TestWriteConfigSnapshot(t *testing.T) {
	type snapshot struct {
		Name     string `yaml:"name"`
		Password string `yaml:"-"`
	}
	path, err := WriteConfigSnapshot(t.TempDir(), snapshot{Name: "quality", Password: "secret"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")

	var back map[string]any
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, "quality", back["name"])
}

func TestTransformationLog(t *testing.T) {
	dir := t.TempDir()
	l, err := OpenTransformationLog(dir, nil)
	require.NoError(t, err)
	l.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	s := evolved()[0]
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.LogTransformation(optimization.RunInfo{RunID: "run-1"}, s, "CC=O", "R2")
		}()
	}
	wg.Wait()
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	lines := readLines(t, filepath.Join(dir, TransformationLogFile))
	require.Len(t, lines, 21)
	assert.Equal(t, strings.Join(transformationLogHeader, "\t"), lines[0])
	assert.Equal(t, "2024-01-01T00:00:00Z\trun-1\tC1--R1_--R2_\t2\tCC=O\tR2", lines[1])

	l.LogTransformation(optimization.RunInfo{}, s, "C", "R9")
}
