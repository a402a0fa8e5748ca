package chem

import (
	"strings"

	"github.com/turtacn/ReactEA/pkg/errors"
)

// FragmentStandardizer is the default Standardizer. It keeps the largest
// fragment of a multi-component structure (the parent), validates it, and
// derives an InChIKey-like hash. Charges and stereo are left as written.
type FragmentStandardizer struct{}

// NewStandardizer returns the default standardizer.
func NewStandardizer() *FragmentStandardizer { return &FragmentStandardizer{} }

func (FragmentStandardizer) Standardize(c *Compound) (*Compound, error) {
	if c == nil {
		return nil, errors.New(errors.CodeStandardizationFailed, "compound is nil")
	}
	parent := LargestFragment(strings.TrimSpace(c.SMILES))
	if err := ValidateSMILES(parent); err != nil {
		return nil, errors.Wrap(err, errors.CodeStandardizationFailed, "cannot standardize compound "+c.ID)
	}
	if len(Tokenize(parent)) == 0 {
		return nil, errors.New(errors.CodeStandardizationFailed, "structure has no heavy atoms").
			WithDetail(c.ID + ": " + c.SMILES)
	}
	return &Compound{
		ID:       c.ID,
		SMILES:   parent,
		InChIKey: generateInChIKey(parent),
	}, nil
}

// LargestFragment returns the dot-separated component with the most heavy
// atoms. Ties keep the first component.
func LargestFragment(smiles string) string {
	if !strings.Contains(smiles, ".") {
		return smiles
	}
	best, bestAtoms := "", -1
	for _, frag := range strings.Split(smiles, ".") {
		if n := len(Tokenize(frag)); n > bestAtoms {
			best, bestAtoms = frag, n
		}
	}
	return best
}
