package optimization

import (
	"fmt"
	"sort"
)

// ReplacementMode selects how UniqueReplacement pads a population that has
// too few unique structures.
type ReplacementMode int

const (
	// ReplacementClamp pads with exactly target-len(unique) entries.
	ReplacementClamp ReplacementMode = iota
	// ReplacementParity pads with pool[:len(offspring)-len(unique)] using
	// prefix-slice semantics, where a negative count drops that many entries
	// from the end of the pool. The result may be shorter or longer than the
	// target.
	ReplacementParity
)

func (m ReplacementMode) String() string {
	switch m {
	case ReplacementParity:
		return "parity"
	default:
		return "clamp"
	}
}

// ParseReplacementMode accepts "clamp" (or "") and "parity".
func ParseReplacementMode(s string) (ReplacementMode, error) {
	switch s {
	case "", "clamp":
		return ReplacementClamp, nil
	case "parity":
		return ReplacementParity, nil
	}
	return ReplacementClamp, fmt.Errorf("unknown replacement mode %q", s)
}

// UniqueReplacement merges parents and offspring preferring the best unique
// structures by primary objective.
type UniqueReplacement struct {
	PopulationSize int
	Mode           ReplacementMode
}

// Replace builds the next population. Inputs are not modified; padded
// duplicates are clones so no two slots share a solution.
func (r UniqueReplacement) Replace(population, offspring []*Solution) []*Solution {
	pool := make([]*Solution, 0, len(population)+len(offspring))
	pool = append(pool, population...)
	pool = append(pool, offspring...)
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].primaryObjective() < pool[j].primaryObjective()
	})

	unique := uniqueBySMILES(pool)
	if len(unique) >= r.PopulationSize {
		return unique[:r.PopulationSize]
	}

	var pad []*Solution
	switch r.Mode {
	case ReplacementParity:
		pad = prefix(pool, len(offspring)-len(unique))
	default:
		n := r.PopulationSize - len(unique)
		if n > len(pool) {
			n = len(pool)
		}
		pad = pool[:n]
	}
	for _, s := range pad {
		unique = append(unique, s.Clone())
	}
	return unique
}

// uniqueBySMILES keeps the first occurrence of every structure in order.
func uniqueBySMILES(pool []*Solution) []*Solution {
	seen := make(map[string]struct{}, len(pool))
	out := make([]*Solution, 0, len(pool))
	for _, s := range pool {
		key := s.SMILES()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

// prefix mirrors s[:n] for a possibly negative or oversized n.
func prefix(s []*Solution, n int) []*Solution {
	if n < 0 {
		n += len(s)
		if n < 0 {
			n = 0
		}
	}
	if n > len(s) {
		n = len(s)
	}
	return s[:n]
}
