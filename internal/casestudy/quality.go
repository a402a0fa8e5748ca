package casestudy

import (
	"context"
	"math"

	"github.com/turtacn/ReactEA/internal/domain/chem"
	"github.com/turtacn/ReactEA/internal/optimization"
)

// desirability maps a descriptor value to [0, 1]: 1 inside [lo, hi],
// falling linearly to 0 at lo-slack and hi+slack.
type desirability struct {
	lo, hi, slack float64
}

func (d desirability) score(v float64) float64 {
	switch {
	case v >= d.lo && v <= d.hi:
		return 1
	case v < d.lo:
		return math.Max(0, 1-(d.lo-v)/d.slack)
	default:
		return math.Max(0, 1-(v-d.hi)/d.slack)
	}
}

var (
	weightDesirability    = desirability{lo: 200, hi: 500, slack: 200}
	logPDesirability      = desirability{lo: -0.4, hi: 5.6, slack: 3}
	donorDesirability     = desirability{lo: 0, hi: 5, slack: 5}
	acceptorDesirability  = desirability{lo: 0, hi: 10, slack: 10}
	rotatableDesirability = desirability{lo: 0, hi: 10, slack: 10}
	aromaticDesirability  = desirability{lo: 1, hi: 3, slack: 3}
)

// minDesirability keeps a single failed criterion from zeroing the
// geometric mean.
const minDesirability = 0.01

// QualityScore is the geometric mean of the descriptor desirabilities, in
// (0, 1].
func QualityScore(d *chem.Descriptors) float64 {
	scores := []float64{
		weightDesirability.score(d.MolecularWeight),
		logPDesirability.score(d.LogP),
		donorDesirability.score(float64(d.HBondDonors)),
		acceptorDesirability.score(float64(d.HBondAcceptors)),
		rotatableDesirability.score(float64(d.RotatableBonds)),
		aromaticDesirability.score(float64(d.AromaticRings)),
	}
	logSum := 0.0
	for _, s := range scores {
		logSum += math.Log(math.Max(s, minDesirability))
	}
	return math.Exp(logSum / float64(len(scores)))
}

// CompoundQuality maximizes drug-likeness.
type CompoundQuality struct{}

func NewCompoundQuality() *CompoundQuality { return &CompoundQuality{} }

func (*CompoundQuality) Name() string             { return "Compound Quality" }
func (*CompoundQuality) NumberOfObjectives() int  { return 1 }
func (*CompoundQuality) ObjectiveNames() []string { return []string{"quality"} }

func (*CompoundQuality) Evaluate(ctx context.Context, s *optimization.Solution) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d, err := chem.ComputeDescriptors(s.SMILES())
	if err != nil {
		return err
	}
	s.Objectives = []float64{-QualityScore(d)}
	return nil
}
