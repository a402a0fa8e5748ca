package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/turtacn/ReactEA/internal/domain/chem"
	"github.com/turtacn/ReactEA/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ReactEA/internal/optimization"
	"github.com/turtacn/ReactEA/pkg/errors"
)

// writeChunk caps the rows sent in one UNWIND.
const writeChunk = 500

var ErrCompoundNotFound = errors.New(errors.ErrCodeNotFound, "compound not in lineage graph")

// LineageEdge is one rule application from parent to child.
type LineageEdge struct {
	ParentID     string
	ParentSMILES string
	ChildID      string
	ChildSMILES  string
	RuleID       string
	Step         int
}

// RuleUsage counts how often a rule appears in the stored lineages.
type RuleUsage struct {
	RuleID string
	Uses   int64
}

// LineageRepository writes and queries (:Compound)-[:TRANSFORMS_TO]->(:Compound)
// graphs scoped by run.
type LineageRepository struct {
	driver DriverInterface
	logger logging.Logger
}

func NewLineageRepository(d DriverInterface, log logging.Logger) *LineageRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &LineageRepository{driver: d, logger: log.Named("lineage")}
}

// EnsureSchema creates the uniqueness constraint and the SMILES index.
func (r *LineageRepository) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE CONSTRAINT compound_run_id IF NOT EXISTS FOR (c:Compound) REQUIRE (c.run_id, c.id) IS UNIQUE`,
		`CREATE INDEX compound_smiles IF NOT EXISTS FOR (c:Compound) ON (c.smiles)`,
	}
	_, err := r.driver.ExecuteWrite(ctx, func(tx Transaction) (any, error) {
		for _, s := range stmts {
			if _, err := tx.Run(ctx, s, nil); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// LineageEdges rebuilds the chain of rule applications that produced sol.
// Intermediate IDs follow the "<parent>--<rule>_" convention; the last child
// always carries the solution's own ID and SMILES.
func LineageEdges(sol *optimization.Solution) []LineageEdge {
	if sol == nil || sol.Compound == nil || len(sol.History) == 0 {
		return nil
	}
	edges := make([]LineageEdge, 0, len(sol.History))
	parent := chem.NewCompound(sol.Compound.RootID(), "")
	for i, step := range sol.History {
		child := &chem.Compound{ID: parent.DerivedID(step.RuleID)}
		if i+1 < len(sol.History) {
			child.SMILES = sol.History[i+1].AncestorSMILES
		} else {
			child.ID = sol.Compound.ID
			child.SMILES = sol.Compound.SMILES
		}
		edges = append(edges, LineageEdge{
			ParentID:     parent.ID,
			ParentSMILES: step.AncestorSMILES,
			ChildID:      child.ID,
			ChildSMILES:  child.SMILES,
			RuleID:       step.RuleID,
			Step:         i + 1,
		})
		parent = child
	}
	return edges
}

// SavePopulation merges the lineage of every solution of pop and flags the
// members as final.
func (r *LineageRepository) SavePopulation(ctx context.Context, runID string, pop []*optimization.Solution) error {
	if runID == "" {
		return errors.InvalidParam("run id is required")
	}

	seen := make(map[string]bool)
	var edges, finals []map[string]any
	for _, sol := range pop {
		if sol == nil || sol.Compound == nil {
			continue
		}
		for _, e := range LineageEdges(sol) {
			key := e.ParentID + ">" + e.ChildID
			if seen[key] {
				continue
			}
			seen[key] = true
			edges = append(edges, map[string]any{
				"parent_id":     e.ParentID,
				"parent_smiles": e.ParentSMILES,
				"child_id":      e.ChildID,
				"child_smiles":  e.ChildSMILES,
				"rule_id":       e.RuleID,
				"step":          e.Step,
			})
		}
		objectives := make([]any, len(sol.Objectives))
		for i, v := range sol.Objectives {
			objectives[i] = v
		}
		finals = append(finals, map[string]any{
			"id":         sol.Compound.ID,
			"smiles":     sol.Compound.SMILES,
			"generation": sol.Compound.Generation(),
			"objectives": objectives,
		})
	}

	const mergeEdges = `
		UNWIND $edges AS e
		MERGE (p:Compound {run_id: $runId, id: e.parent_id})
		  ON CREATE SET p.smiles = e.parent_smiles, p.generation = e.step - 1
		MERGE (c:Compound {run_id: $runId, id: e.child_id})
		  ON CREATE SET c.smiles = e.child_smiles, c.generation = e.step
		MERGE (p)-[t:TRANSFORMS_TO {rule_id: e.rule_id}]->(c)`
	const mergeFinals = `
		UNWIND $finals AS f
		MERGE (c:Compound {run_id: $runId, id: f.id})
		SET c.smiles = f.smiles, c.generation = f.generation, c.objectives = f.objectives, c.final = true`

	for start := 0; start < len(edges); start += writeChunk {
		end := min(start+writeChunk, len(edges))
		if err := r.write(ctx, mergeEdges, map[string]any{"runId": runID, "edges": toAny(edges[start:end])}); err != nil {
			return err
		}
	}
	for start := 0; start < len(finals); start += writeChunk {
		end := min(start+writeChunk, len(finals))
		if err := r.write(ctx, mergeFinals, map[string]any{"runId": runID, "finals": toAny(finals[start:end])}); err != nil {
			return err
		}
	}

	r.logger.Info("lineage stored",
		logging.String("run_id", runID),
		logging.Int("edges", len(edges)),
		logging.Int("final", len(finals)))
	return nil
}

func (r *LineageRepository) write(ctx context.Context, cypher string, params map[string]any) error {
	_, err := r.driver.ExecuteWrite(ctx, func(tx Transaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	return err
}

// Ancestry returns the rule applications leading from the lineage root to
// compoundID, oldest first.
func (r *LineageRepository) Ancestry(ctx context.Context, runID, compoundID string) ([]optimization.Transformation, error) {
	const q = `
		MATCH path = (root:Compound {run_id: $runId})-[:TRANSFORMS_TO*0..]->(c:Compound {run_id: $runId, id: $id})
		WHERE NOT ()-[:TRANSFORMS_TO]->(root)
		RETURN [n IN nodes(path) | n.smiles] AS smiles, [t IN relationships(path) | t.rule_id] AS rules
		LIMIT 1`
	out, err := r.driver.ExecuteRead(ctx, func(tx Transaction) (any, error) {
		res, err := tx.Run(ctx, q, map[string]any{"runId": runID, "id": compoundID})
		if err != nil {
			return nil, err
		}
		return ExtractSingleRecord(ctx, res, mapAncestry)
	})
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrCompoundNotFound
		}
		return nil, err
	}
	return out.([]optimization.Transformation), nil
}

func mapAncestry(rec *neo4j.Record) ([]optimization.Transformation, error) {
	smiles, err := stringList(rec, "smiles")
	if err != nil {
		return nil, err
	}
	rules, err := stringList(rec, "rules")
	if err != nil {
		return nil, err
	}
	if len(smiles) != len(rules)+1 {
		return nil, errors.New(errors.ErrCodeSerialization,
			fmt.Sprintf("malformed lineage path: %d nodes for %d edges", len(smiles), len(rules)))
	}
	steps := make([]optimization.Transformation, len(rules))
	for i, rule := range rules {
		steps[i] = optimization.Transformation{AncestorSMILES: smiles[i], RuleID: rule}
	}
	return steps, nil
}

// RuleUsage ranks rules by how many stored edges they produced.
func (r *LineageRepository) RuleUsage(ctx context.Context, runID string, limit int) ([]RuleUsage, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
		MATCH (:Compound {run_id: $runId})-[t:TRANSFORMS_TO]->(:Compound {run_id: $runId})
		RETURN t.rule_id AS rule_id, count(*) AS uses
		ORDER BY uses DESC, rule_id
		LIMIT $limit`
	out, err := r.driver.ExecuteRead(ctx, func(tx Transaction) (any, error) {
		res, err := tx.Run(ctx, q, map[string]any{"runId": runID, "limit": limit})
		if err != nil {
			return nil, err
		}
		return CollectRecords(ctx, res, func(rec *neo4j.Record) (RuleUsage, error) {
			rule, _, err := neo4j.GetRecordValue[string](rec, "rule_id")
			if err != nil {
				return RuleUsage{}, err
			}
			uses, _, err := neo4j.GetRecordValue[int64](rec, "uses")
			if err != nil {
				return RuleUsage{}, err
			}
			return RuleUsage{RuleID: rule, Uses: uses}, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out.([]RuleUsage), nil
}

// DeleteRun removes every node of runID together with its edges.
func (r *LineageRepository) DeleteRun(ctx context.Context, runID string) error {
	return r.write(ctx, `MATCH (c:Compound {run_id: $runId}) DETACH DELETE c`, map[string]any{"runId": runID})
}

func stringList(rec *neo4j.Record, key string) ([]string, error) {
	raw, ok := rec.Get(key)
	if !ok {
		return nil, errors.New(errors.ErrCodeSerialization, "missing field "+key)
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, errors.New(errors.ErrCodeSerialization, "field "+key+" is not a list")
	}
	out := make([]string, len(items))
	for i, it := range items {
		s, _ := it.(string)
		out[i] = s
	}
	return out, nil
}

func toAny(rows []map[string]any) []any {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}
