// Package optimization implements the evolutionary layer of ReactEA: the
// chemical solution type, reaction-driven mutation and pseudo-crossover,
// deduplicating replacement, selection and the generational engines.
package optimization

import (
	"math"

	"github.com/turtacn/ReactEA/internal/domain/chem"
)

// Attribute keys used by the engines.
const (
	AttrRank     = "rank"
	AttrCrowding = "crowding_distance"
)

// Transformation is one applied mutation step: the structure before the
// mutation and the rule that transformed it.
type Transformation struct {
	AncestorSMILES string `json:"ancestor_smiles"`
	RuleID         string `json:"rule_id"`
}

// Solution is a candidate of the population. It exclusively owns its
// Compound, History and Attributes.
type Solution struct {
	Compound   *chem.Compound
	Objectives []float64
	// History is append-only across a lineage and only grows together with
	// a compound replacement.
	History    []Transformation
	Attributes map[string]any
}

// NewSolution wraps a compound with room for numObjectives objectives.
func NewSolution(c *chem.Compound, numObjectives int) *Solution {
	return &Solution{
		Compound:   c,
		Objectives: make([]float64, numObjectives),
		Attributes: make(map[string]any),
	}
}

// Clone returns a deep copy. Attribute values are copied shallowly; the
// engines only store scalars there.
func (s *Solution) Clone() *Solution {
	if s == nil {
		return nil
	}
	cp := &Solution{
		Compound:   s.Compound.Clone(),
		Objectives: append([]float64(nil), s.Objectives...),
		Attributes: make(map[string]any, len(s.Attributes)),
	}
	if s.History != nil {
		cp.History = append([]Transformation(nil), s.History...)
	}
	for k, v := range s.Attributes {
		cp.Attributes[k] = v
	}
	return cp
}

// SMILES returns the compound structure or "" when unset.
func (s *Solution) SMILES() string {
	if s == nil || s.Compound == nil {
		return ""
	}
	return s.Compound.SMILES
}

// RuleIDs lists the applied rules in order.
func (s *Solution) RuleIDs() []string {
	out := make([]string, len(s.History))
	for i, h := range s.History {
		out[i] = h.RuleID
	}
	return out
}

// primaryObjective is the sort key of single-objective ranking. Unevaluated
// solutions sort last.
func (s *Solution) primaryObjective() float64 {
	if len(s.Objectives) == 0 {
		return math.Inf(1)
	}
	return s.Objectives[0]
}

func (s *Solution) intAttr(key string) (int, bool) {
	v, ok := s.Attributes[key].(int)
	return v, ok
}

func (s *Solution) floatAttr(key string) (float64, bool) {
	v, ok := s.Attributes[key].(float64)
	return v, ok
}

// ClonePopulation deep-copies every solution.
func ClonePopulation(pop []*Solution) []*Solution {
	out := make([]*Solution, len(pop))
	for i, s := range pop {
		out[i] = s.Clone()
	}
	return out
}

// UniqueStructures counts distinct SMILES in pop.
func UniqueStructures(pop []*Solution) int {
	seen := make(map[string]struct{}, len(pop))
	for _, s := range pop {
		seen[s.SMILES()] = struct{}{}
	}
	return len(seen)
}
