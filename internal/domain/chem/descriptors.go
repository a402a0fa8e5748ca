package chem

import (
	"math"
	"strings"

	"github.com/turtacn/ReactEA/pkg/errors"
)

// Descriptors are heuristic physicochemical estimates computed from the
// SMILES token stream. They track the trends of the real descriptors well
// enough for ranking but are not substitutes for them.
type Descriptors struct {
	HeavyAtoms      int
	MolecularWeight float64
	LogP            float64
	HBondDonors     int
	HBondAcceptors  int
	RotatableBonds  int
	AromaticRings   int
	Rings           int
}

var atomicWeight = map[string]float64{
	"B": 10.81, "C": 12.011, "N": 14.007, "O": 15.999, "F": 18.998,
	"P": 30.974, "S": 32.06, "Cl": 35.45, "Br": 79.904, "I": 126.904,
	"Si": 28.085, "Se": 78.971,
}

// implicit hydrogens added per atom for the weight estimate
var typicalHydrogens = map[string]float64{"C": 2, "N": 1, "O": 0.5, "S": 0.5}

var logPContribution = map[string]float64{
	"C": 0.36, "c": 0.29, "N": -0.84, "n": -0.49, "O": -0.62, "o": 0.05,
	"S": 0.25, "s": 0.30, "F": 0.41, "Cl": 0.66, "Br": 0.86, "I": 1.05, "P": -0.2,
}

// ComputeDescriptors estimates descriptors for a standardized SMILES.
func ComputeDescriptors(smiles string) (*Descriptors, error) {
	atoms := Tokenize(smiles)
	if len(atoms) == 0 {
		return nil, errors.New(errors.ErrCodeDescriptorUnsupported, "no atoms found in SMILES").WithDetail(smiles)
	}

	d := &Descriptors{HeavyAtoms: len(atoms)}
	aromatic, chain := 0, 0
	for _, a := range atoms {
		w, ok := atomicWeight[a.Symbol]
		if !ok {
			w = 50
		}
		h := typicalHydrogens[a.Symbol]
		if a.Aromatic {
			aromatic++
			h = math.Min(h, 1)
		}
		d.MolecularWeight += w + h*1.008

		key := a.Symbol
		if a.Aromatic {
			key = strings.ToLower(key)
		}
		d.LogP += logPContribution[key]

		switch a.Symbol {
		case "N", "O":
			d.HBondAcceptors++
			if !a.Aromatic && (a.Bracket == "" || strings.Contains(a.Bracket, "H")) {
				d.HBondDonors++
			}
		}
		if !a.Aromatic && !a.Ring {
			chain++
		}
	}

	d.AromaticRings = (aromatic + 3) / 6
	d.Rings = ringClosures(smiles)
	if chain > 2 {
		d.RotatableBonds = chain - 2 - strings.Count(smiles, "=") - strings.Count(smiles, "#")
		if d.RotatableBonds < 0 {
			d.RotatableBonds = 0
		}
	}
	// Carbonyl and nitrile oxygens/nitrogens do not donate.
	d.HBondDonors -= strings.Count(smiles, "=O") + strings.Count(smiles, "#N")
	if d.HBondDonors < 0 {
		d.HBondDonors = 0
	}
	return d, nil
}

// ringClosures counts ring-bond digits outside bracket atoms and halves them.
func ringClosures(smiles string) int {
	n, inBracket := 0, false
	for i := 0; i < len(smiles); i++ {
		switch ch := smiles[i]; {
		case ch == '[':
			inBracket = true
		case ch == ']':
			inBracket = false
		case inBracket:
		case ch == '%':
			n++
			i += 2
		case ch >= '0' && ch <= '9':
			n++
		}
	}
	return n / 2
}
