package chem_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/ReactEA/internal/domain/chem"
)

func TestCircularFingerprint_Identity(t *testing.T) {
	a, err := chem.CircularFingerprint("CC(=O)Oc1ccccc1C(=O)O", 2, 1024)
	require.NoError(t, err)
	b, err := chem.CircularFingerprint("CC(=O)Oc1ccccc1C(=O)O", 2, 1024)
	require.NoError(t, err)

	assert.Equal(t, 1024, a.Length)
	assert.Positive(t, a.NumOnBits())
	sim, err := chem.Tanimoto(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-12)
}

func TestCircularFingerprint_Ordering(t *testing.T) {
	hexanol, _ := chem.CircularFingerprint("CCCCCCO", 2, 2048)
	hexylamine, _ := chem.CircularFingerprint("CCCCCCN", 2, 2048)
	benzene, _ := chem.CircularFingerprint("c1ccccc1", 2, 2048)

	near, err := chem.Tanimoto(hexanol, hexylamine)
	require.NoError(t, err)
	far, err := chem.Tanimoto(hexanol, benzene)
	require.NoError(t, err)
	assert.Greater(t, near, far)
}

func TestCircularFingerprint_Defaults(t *testing.T) {
	fp, err := chem.CircularFingerprint("CCO", -1, 0)
	require.NoError(t, err)
	assert.Equal(t, chem.DefaultFingerprintBits, fp.Length)
	assert.False(t, fp.GetBit(-1))
	assert.False(t, fp.GetBit(fp.Length))
}

func TestCircularFingerprint_Errors(t *testing.T) {
	_, err := chem.CircularFingerprint("[H]", 2, 64)
	assert.Error(t, err)

	a, _ := chem.CircularFingerprint("CCO", 2, 64)
	b, _ := chem.CircularFingerprint("CCO", 2, 128)
	_, err = chem.Tanimoto(a, b)
	assert.Error(t, err)
	_, err = chem.Tanimoto(nil, b)
	assert.Error(t, err)
}

func TestComputeDescriptors(t *testing.T) {
	ethanol, err := chem.ComputeDescriptors("CCO")
	require.NoError(t, err)
	assert.Equal(t, 3, ethanol.HeavyAtoms)
	assert.InDelta(t, 44.56, ethanol.MolecularWeight, 0.01)
	assert.Equal(t, 1, ethanol.HBondDonors)
	assert.Equal(t, 1, ethanol.HBondAcceptors)

	benzene, err := chem.ComputeDescriptors("c1ccccc1")
	require.NoError(t, err)
	assert.Equal(t, 1, benzene.AromaticRings)
	assert.Equal(t, 1, benzene.Rings)
	assert.Zero(t, benzene.HBondDonors)

	acid, err := chem.ComputeDescriptors("CC(=O)O")
	require.NoError(t, err)
	assert.Equal(t, 1, acid.HBondDonors)
	assert.Equal(t, 2, acid.HBondAcceptors)

	_, err = chem.ComputeDescriptors("")
	assert.Error(t, err)
}
