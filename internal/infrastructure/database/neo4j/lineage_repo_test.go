package neo4j

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/ReactEA/internal/domain/chem"
	"github.com/turtacn/ReactEA/internal/optimization"
	apperrors "github.com/turtacn/ReactEA/pkg/errors"
)

func twoStepSolution() *optimization.Solution {
	sol := optimization.NewSolution(chem.NewCompound("C1--R1_--R2_", "CCCN"), 1)
	sol.Objectives[0] = -0.7
	sol.History = []optimization.Transformation{
		{AncestorSMILES: "CC", RuleID: "R1"},
		{AncestorSMILES: "CCC", RuleID: "R2"},
	}
	return sol
}

func newLineageRepo(t *testing.T, tx *recordingTx) *LineageRepository {
	t.Helper()
	d, _ := newTestDriver(t, &MockSession{tx: tx})
	return NewLineageRepository(d, nil)
}

func TestLineageEdges(t *testing.T) {
	edges := LineageEdges(twoStepSolution())
	require.Len(t, edges, 2)

	assert.Equal(t, LineageEdge{
		ParentID: "C1", ParentSMILES: "CC",
		ChildID: "C1--R1_", ChildSMILES: "CCC",
		RuleID: "R1", Step: 1,
	}, edges[0])
	assert.Equal(t, LineageEdge{
		ParentID: "C1--R1_", ParentSMILES: "CCC",
		ChildID: "C1--R1_--R2_", ChildSMILES: "CCCN",
		RuleID: "R2", Step: 2,
	}, edges[1])
}

func TestLineageEdges_Unmutated(t *testing.T) {
	sol := optimization.NewSolution(chem.NewCompound("C1", "CC"), 1)
	assert.Empty(t, LineageEdges(sol))
	assert.Empty(t, LineageEdges(nil))
}

func TestLineageRepository_EnsureSchema(t *testing.T) {
	tx := &recordingTx{}
	repo := newLineageRepo(t, tx)

	require.NoError(t, repo.EnsureSchema(context.Background()))
	require.Len(t, tx.cyphers, 2)
	assert.Contains(t, tx.cyphers[0], "CREATE CONSTRAINT")
	assert.Contains(t, tx.cyphers[1], "CREATE INDEX")
}

func TestLineageRepository_SavePopulation(t *testing.T) {
	tx := &recordingTx{}
	repo := newLineageRepo(t, tx)

	// Two members sharing the first step must not duplicate that edge.
	sibling := optimization.NewSolution(chem.NewCompound("C1--R1_", "CCC"), 1)
	sibling.History = []optimization.Transformation{{AncestorSMILES: "CC", RuleID: "R1"}}
	pop := []*optimization.Solution{twoStepSolution(), sibling, nil}

	require.NoError(t, repo.SavePopulation(context.Background(), "run-1", pop))
	require.Len(t, tx.cyphers, 2)

	assert.Contains(t, tx.cyphers[0], "MERGE (p)-[t:TRANSFORMS_TO")
	edges := tx.params[0]["edges"].([]any)
	assert.Len(t, edges, 2)
	assert.Equal(t, "run-1", tx.params[0]["runId"])

	assert.Contains(t, tx.cyphers[1], "c.final = true")
	finals := tx.params[1]["finals"].([]any)
	require.Len(t, finals, 2)
	first := finals[0].(map[string]any)
	assert.Equal(t, "C1--R1_--R2_", first["id"])
	assert.Equal(t, 2, first["generation"])
	assert.Equal(t, []any{-0.7}, first["objectives"])
}

func TestLineageRepository_SavePopulationChunks(t *testing.T) {
	tx := &recordingTx{}
	repo := newLineageRepo(t, tx)

	pop := make([]*optimization.Solution, writeChunk+1)
	for i := range pop {
		pop[i] = optimization.NewSolution(chem.NewCompound("C"+strconv.Itoa(i), "C"), 1)
	}
	require.NoError(t, repo.SavePopulation(context.Background(), "run-2", pop))

	// No edges; finals split in two chunks.
	require.Len(t, tx.cyphers, 2)
	assert.Len(t, tx.params[0]["finals"].([]any), writeChunk)
	assert.Len(t, tx.params[1]["finals"].([]any), 1)
}

func TestLineageRepository_SavePopulationRequiresRunID(t *testing.T) {
	repo := newLineageRepo(t, &recordingTx{})
	err := repo.SavePopulation(context.Background(), "", nil)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeBadRequest))
}

func TestLineageRepository_SavePopulationFailure(t *testing.T) {
	repo := newLineageRepo(t, &recordingTx{err: errors.New("constraint violation")})
	err := repo.SavePopulation(context.Background(), "run-3", []*optimization.Solution{twoStepSolution()})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeDatabaseError))
}

func TestLineageRepository_Ancestry(t *testing.T) {
	rec := record([]string{"smiles", "rules"},
		[]any{"CC", "CCC", "CCCN"},
		[]any{"R1", "R2"})
	tx := &recordingTx{results: []Result{&sliceResult{records: []*neo4j.Record{rec}}}}
	repo := newLineageRepo(t, tx)

	steps, err := repo.Ancestry(context.Background(), "run-1", "C1--R1_--R2_")
	require.NoError(t, err)
	assert.Equal(t, twoStepSolution().History, steps)
	assert.Equal(t, "C1--R1_--R2_", tx.params[0]["id"])
}

func TestLineageRepository_AncestryNotFound(t *testing.T) {
	repo := newLineageRepo(t, &recordingTx{})
	_, err := repo.Ancestry(context.Background(), "run-1", "missing")
	assert.ErrorIs(t, err, ErrCompoundNotFound)
}

func TestLineageRepository_AncestryMalformed(t *testing.T) {
	rec := record([]string{"smiles", "rules"}, []any{"CC"}, []any{"R1"})
	repo := newLineageRepo(t, &recordingTx{results: []Result{&sliceResult{records: []*neo4j.Record{rec}}}})
	_, err := repo.Ancestry(context.Background(), "run-1", "x")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSerialization))
}

func TestLineageRepository_RuleUsage(t *testing.T) {
	res := &sliceResult{records: []*neo4j.Record{
		record([]string{"rule_id", "uses"}, "R1", int64(5)),
		record([]string{"rule_id", "uses"}, "R2", int64(2)),
	}}
	tx := &recordingTx{results: []Result{res}}
	repo := newLineageRepo(t, tx)

	usage, err := repo.RuleUsage(context.Background(), "run-1", 0)
	require.NoError(t, err)
	assert.Equal(t, []RuleUsage{{RuleID: "R1", Uses: 5}, {RuleID: "R2", Uses: 2}}, usage)
	assert.Equal(t, 20, tx.params[0]["limit"])
}

func TestLineageRepository_DeleteRun(t *testing.T) {
	tx := &recordingTx{}
	repo := newLineageRepo(t, tx)
	require.NoError(t, repo.DeleteRun(context.Background(), "run-9"))
	assert.Contains(t, tx.cyphers[0], "DETACH DELETE")
	assert.Equal(t, "run-9", tx.params[0]["runId"])
}
