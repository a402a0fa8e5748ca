//go:build integration

// Integration tests for the run store. They need Docker and are gated behind
// the "integration" build tag.
package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/turtacn/ReactEA/internal/domain/chem"
	"github.com/turtacn/ReactEA/internal/infrastructure/database/postgres"
	"github.com/turtacn/ReactEA/internal/optimization"
)

// startPostgres launches a PostgreSQL 16 container, applies the embedded
// migrations and returns a connected pool.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "reactea_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://test:test@%s:%s/reactea_test?sslmode=disable", host, port.Port())

	// The port opens before the server accepts connections.
	require.Eventually(t, func() bool { return postgres.RunMigrations(dsn) == nil }, 30*time.Second, time.Second)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestRunStore_Lifecycle(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	store := postgres.NewRunStore(pool, nil)

	run := &postgres.Run{
		ID:         "it-run",
		Experiment: "integration",
		Algorithm:  "GA",
		CaseStudy:  "carbon_count",
		Seed:       7,
		Objectives: []string{"carbon_count"},
		Config:     map[string]any{"max_generations": 2},
		OutputDir:  "/tmp/out",
	}
	require.NoError(t, store.CreateRun(ctx, run))

	for g := 1; g <= 2; g++ {
		store.OnGeneration(optimization.GenerationReport{
			Generation:     g,
			Evaluations:    g * 10,
			Best:           []float64{-float64(g)},
			BestSMILES:     "CCC",
			MeanPrimary:    -1,
			PopulationSize: 10,
			Elapsed:        time.Duration(g) * time.Second,
		})
	}
	// Re-recording a generation overwrites it.
	require.NoError(t, store.RecordGeneration(ctx, run.ID, optimization.GenerationReport{
		Generation: 2, Evaluations: 25, Best: []float64{-3}, PopulationSize: 10,
	}))

	gens, err := store.ListGenerations(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, gens, 2)
	assert.Equal(t, 1, gens[0].Generation)
	assert.Equal(t, time.Second, gens[0].Elapsed)
	assert.Equal(t, 25, gens[1].Evaluations)
	assert.Equal(t, []float64{-3}, gens[1].Best)

	sol := optimization.NewSolution(chem.NewCompound("id0--R1_", "CCCO"), 1)
	sol.Objectives[0] = -3
	sol.History = []optimization.Transformation{{AncestorSMILES: "CCO", RuleID: "R1"}}
	require.NoError(t, store.SaveFinalPopulation(ctx, run.ID, []*optimization.Solution{sol}))
	// Saving again replaces rather than duplicates.
	require.NoError(t, store.SaveFinalPopulation(ctx, run.ID, []*optimization.Solution{sol}))

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM final_population WHERE run_id = $1`, run.ID).Scan(&count))
	assert.Equal(t, 1, count)

	require.NoError(t, store.FinishRun(ctx, run.ID, postgres.RunStatusCompleted, nil))

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, postgres.RunStatusCompleted, got.Status)
	assert.Equal(t, []string{"carbon_count"}, got.Objectives)
	assert.NotNil(t, got.FinishedAt)

	_, err = store.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, postgres.ErrRunNotFound)
}

func TestMigrations_StatusAndRollback(t *testing.T) {
	pool := startPostgres(t)
	dsn := pool.Config().ConnString()

	versions, err := postgres.MigrationVersions()
	require.NoError(t, err)
	require.NotEmpty(t, versions)

	version, dirty, err := postgres.MigrationStatus(dsn)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, versions[len(versions)-1], version)

	require.NoError(t, postgres.RollbackMigration(dsn, 1))
	version, _, err = postgres.MigrationStatus(dsn)
	require.NoError(t, err)
	assert.Equal(t, versions[len(versions)-2], version)
}
