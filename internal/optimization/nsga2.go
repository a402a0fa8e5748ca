package optimization

import (
	"math"
	"sort"
)

// NSGA2Replacement selects the next population by non-dominated sorting
// and crowding distance. Unique structures are preferred exactly as in
// UniqueReplacement: duplicates only enter the ranking when there are too few
// unique structures to fill the population.
type NSGA2Replacement struct {
	PopulationSize int
}

func (r NSGA2Replacement) Replace(population, offspring []*Solution) []*Solution {
	pool := make([]*Solution, 0, len(population)+len(offspring))
	pool = append(pool, population...)
	pool = append(pool, offspring...)

	candidates := uniqueBySMILES(pool)
	if missing := r.PopulationSize - len(candidates); missing > 0 {
		inUnique := make(map[*Solution]struct{}, len(candidates))
		for _, s := range candidates {
			inUnique[s] = struct{}{}
		}
		for _, s := range pool {
			if missing == 0 {
				break
			}
			if _, ok := inUnique[s]; ok {
				continue
			}
			candidates = append(candidates, s.Clone())
			missing--
		}
	}

	next := make([]*Solution, 0, r.PopulationSize)
	for _, front := range r.rankFronts(candidates) {
		if len(next)+len(front) <= r.PopulationSize {
			next = append(next, front...)
			continue
		}
		sort.SliceStable(front, func(i, j int) bool {
			ci, _ := front[i].floatAttr(AttrCrowding)
			cj, _ := front[j].floatAttr(AttrCrowding)
			return ci > cj
		})
		next = append(next, front[:r.PopulationSize-len(next)]...)
		break
	}
	return next
}

// Rank sets AttrRank and AttrCrowding on every solution of population.
func (r NSGA2Replacement) Rank(population []*Solution) {
	r.rankFronts(population)
}

func (r NSGA2Replacement) rankFronts(population []*Solution) [][]*Solution {
	fronts := nonDominatedSort(population)
	for rank, front := range fronts {
		for _, s := range front {
			s.Attributes[AttrRank] = rank
		}
		assignCrowdingDistance(front)
	}
	return fronts
}

// dominates reports whether a is no worse than b in every objective and
// strictly better in at least one.
func dominates(a, b *Solution) bool {
	strictly := false
	for i := range a.Objectives {
		switch {
		case a.Objectives[i] > b.Objectives[i]:
			return false
		case a.Objectives[i] < b.Objectives[i]:
			strictly = true
		}
	}
	return strictly
}

func nonDominatedSort(population []*Solution) [][]*Solution {
	n := len(population)
	if n == 0 {
		return nil
	}
	dominatedBy := make([]int, n)
	dominating := make([][]int, n)
	for p := 0; p < n; p++ {
		if population[p].Attributes == nil {
			population[p].Attributes = make(map[string]any)
		}
		for q := 0; q < n; q++ {
			if p == q {
				continue
			}
			if dominates(population[p], population[q]) {
				dominating[p] = append(dominating[p], q)
			} else if dominates(population[q], population[p]) {
				dominatedBy[p]++
			}
		}
	}

	var current []int
	for p := 0; p < n; p++ {
		if dominatedBy[p] == 0 {
			current = append(current, p)
		}
	}

	var fronts [][]*Solution
	for len(current) > 0 {
		front := make([]*Solution, len(current))
		var next []int
		for i, p := range current {
			front[i] = population[p]
			for _, q := range dominating[p] {
				dominatedBy[q]--
				if dominatedBy[q] == 0 {
					next = append(next, q)
				}
			}
		}
		sort.Ints(next)
		fronts = append(fronts, front)
		current = next
	}
	return fronts
}

func assignCrowdingDistance(front []*Solution) {
	for _, s := range front {
		s.Attributes[AttrCrowding] = 0.0
	}
	if len(front) == 0 {
		return
	}
	if len(front) <= 2 {
		for _, s := range front {
			s.Attributes[AttrCrowding] = math.Inf(1)
		}
		return
	}

	sorted := append([]*Solution(nil), front...)
	for m := range front[0].Objectives {
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Objectives[m] < sorted[j].Objectives[m]
		})
		first, last := sorted[0], sorted[len(sorted)-1]
		first.Attributes[AttrCrowding] = math.Inf(1)
		last.Attributes[AttrCrowding] = math.Inf(1)

		span := last.Objectives[m] - first.Objectives[m]
		if span == 0 {
			continue
		}
		for i := 1; i < len(sorted)-1; i++ {
			d, _ := sorted[i].floatAttr(AttrCrowding)
			sorted[i].Attributes[AttrCrowding] = d + (sorted[i+1].Objectives[m]-sorted[i-1].Objectives[m])/span
		}
	}
}

var (
	_ Replacer = NSGA2Replacement{}
	_ Ranker   = NSGA2Replacement{}
)
