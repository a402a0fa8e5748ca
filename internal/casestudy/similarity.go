package casestudy

import (
	"context"

	"github.com/turtacn/ReactEA/internal/domain/chem"
	"github.com/turtacn/ReactEA/internal/optimization"
	"github.com/turtacn/ReactEA/pkg/errors"
)

// SimilarityToTarget maximizes the Tanimoto similarity to a fixed target.
type SimilarityToTarget struct {
	target *chem.Fingerprint
	radius int
	nBits  int
}

func NewSimilarityToTarget(target string, radius, nBits int) (*SimilarityToTarget, error) {
	if target == "" {
		return nil, errors.InvalidParam("similarity case study requires a target SMILES")
	}
	if err := chem.ValidateSMILES(target); err != nil {
		return nil, err
	}
	if radius <= 0 {
		radius = chem.DefaultFingerprintRadius
	}
	if nBits <= 0 {
		nBits = chem.DefaultFingerprintBits
	}
	fp, err := chem.CircularFingerprint(target, radius, nBits)
	if err != nil {
		return nil, err
	}
	return &SimilarityToTarget{target: fp, radius: radius, nBits: nBits}, nil
}

func (*SimilarityToTarget) Name() string             { return "Similarity To Target" }
func (*SimilarityToTarget) NumberOfObjectives() int  { return 1 }
func (*SimilarityToTarget) ObjectiveNames() []string { return []string{"similarity"} }

func (p *SimilarityToTarget) Evaluate(ctx context.Context, s *optimization.Solution) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sim, err := p.Similarity(s.SMILES())
	if err != nil {
		return err
	}
	s.Objectives = []float64{-sim}
	return nil
}

// Similarity returns the Tanimoto similarity of smiles to the target.
func (p *SimilarityToTarget) Similarity(smiles string) (float64, error) {
	fp, err := chem.CircularFingerprint(smiles, p.radius, p.nBits)
	if err != nil {
		return 0, err
	}
	return chem.Tanimoto(p.target, fp)
}

// QualityAndSimilarity is the two-objective combination for NSGA-II runs.
type QualityAndSimilarity struct {
	similarity *SimilarityToTarget
}

func NewQualityAndSimilarity(target string, radius, nBits int) (*QualityAndSimilarity, error) {
	sim, err := NewSimilarityToTarget(target, radius, nBits)
	if err != nil {
		return nil, err
	}
	return &QualityAndSimilarity{similarity: sim}, nil
}

func (*QualityAndSimilarity) Name() string             { return "Quality And Similarity" }
func (*QualityAndSimilarity) NumberOfObjectives() int  { return 2 }
func (*QualityAndSimilarity) ObjectiveNames() []string { return []string{"quality", "similarity"} }

func (p *QualityAndSimilarity) Evaluate(ctx context.Context, s *optimization.Solution) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d, err := chem.ComputeDescriptors(s.SMILES())
	if err != nil {
		return err
	}
	sim, err := p.similarity.Similarity(s.SMILES())
	if err != nil {
		return err
	}
	s.Objectives = []float64{-QualityScore(d), -sim}
	return nil
}

var (
	_ optimization.Problem = (*CompoundQuality)(nil)
	_ optimization.Problem = (*SimilarityToTarget)(nil)
	_ optimization.Problem = (*QualityAndSimilarity)(nil)
)
