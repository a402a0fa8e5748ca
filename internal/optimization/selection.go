package optimization

import (
	"math/rand"

	"github.com/turtacn/ReactEA/pkg/errors"
)

// BinaryTournamentSelection draws two distinct solutions and keeps the
// better one. Solutions carrying NSGA-II attributes compare by rank and then
// crowding distance; otherwise the lower primary objective wins. Ties go to
// the first draw.
type BinaryTournamentSelection struct{}

func (BinaryTournamentSelection) Name() string { return "binary tournament" }

func (BinaryTournamentSelection) Select(rng *rand.Rand, population []*Solution) (*Solution, error) {
	if rng == nil {
		return nil, errors.New(errors.ErrCodeRandomSourceRequired, "random source is required")
	}
	switch len(population) {
	case 0:
		return nil, errors.New(errors.ErrCodeEmptyPopulation, "cannot select from an empty population")
	case 1:
		return population[0], nil
	}

	i := rng.Intn(len(population))
	j := rng.Intn(len(population) - 1)
	if j >= i {
		j++
	}
	a, b := population[i], population[j]
	if better(b, a) {
		return b, nil
	}
	return a, nil
}

// better reports whether a strictly beats b.
func better(a, b *Solution) bool {
	ra, okA := a.intAttr(AttrRank)
	rb, okB := b.intAttr(AttrRank)
	if okA && okB {
		if ra != rb {
			return ra < rb
		}
		ca, _ := a.floatAttr(AttrCrowding)
		cb, _ := b.floatAttr(AttrCrowding)
		return ca > cb
	}
	return a.primaryObjective() < b.primaryObjective()
}
