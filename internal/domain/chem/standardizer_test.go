package chem_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/ReactEA/internal/domain/chem"
	"github.com/turtacn/ReactEA/pkg/errors"
)

var inchiKeyShape = regexp.MustCompile(`^[0-9A-F]{14}-[0-9A-F]{10}-[0-9A-F]$`)

func TestStandardizer_KeepsLargestFragment(t *testing.T) {
	s := chem.NewStandardizer()

	out, err := s.Standardize(chem.NewCompound("salt", "CCO.Cl"))
	require.NoError(t, err)
	assert.Equal(t, "salt", out.ID)
	assert.Equal(t, "CCO", out.SMILES)
	assert.Regexp(t, inchiKeyShape, out.InChIKey)
}

func TestStandardizer_TieKeepsFirst(t *testing.T) {
	out, err := chem.NewStandardizer().Standardize(chem.NewCompound("nacl", "[Na+].[Cl-]"))
	require.NoError(t, err)
	assert.Equal(t, "[Na+]", out.SMILES)
}

func TestStandardizer_DoesNotMutateInput(t *testing.T) {
	in := chem.NewCompound("a", "CCO.O")
	_, err := chem.NewStandardizer().Standardize(in)
	require.NoError(t, err)
	assert.Equal(t, "CCO.O", in.SMILES)
	assert.Empty(t, in.InChIKey)
}

func TestStandardizer_StableKey(t *testing.T) {
	s := chem.NewStandardizer()
	a, err := s.Standardize(chem.NewCompound("a", "c1ccccc1O"))
	require.NoError(t, err)
	b, err := s.Standardize(chem.NewCompound("b", "c1ccccc1O.O"))
	require.NoError(t, err)
	assert.Equal(t, a.InChIKey, b.InChIKey)
}

func TestStandardizer_Errors(t *testing.T) {
	s := chem.NewStandardizer()
	for _, smi := range []string{"", "C(C", "CC]", "C C", "[H]"} {
		_, err := s.Standardize(chem.NewCompound("bad", smi))
		require.Error(t, err, smi)
		assert.True(t, errors.IsCode(err, errors.CodeStandardizationFailed), smi)
	}
	_, err := s.Standardize(nil)
	assert.Error(t, err)
}

func TestTokenize(t *testing.T) {
	atoms := chem.Tokenize("c1ccccc1Cl")
	require.Len(t, atoms, 7)
	assert.True(t, atoms[0].Aromatic)
	assert.True(t, atoms[0].Ring)
	assert.False(t, atoms[1].Ring)
	assert.True(t, atoms[5].Ring)
	assert.Equal(t, "Cl", atoms[6].Symbol)

	assert.Len(t, chem.Tokenize("OCC(=O)[O-]"), 5)
	assert.Len(t, chem.Tokenize("[13CH3][H]"), 1)
	assert.Equal(t, "Br", chem.Tokenize("CBr")[1].Symbol)
}
