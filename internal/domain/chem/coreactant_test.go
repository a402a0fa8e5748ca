package chem_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/ReactEA/internal/domain/chem"
)

func samplePool() *chem.CoreactantPool {
	return chem.NewCoreactantPool([]*chem.Compound{
		{ID: "WATER", SMILES: "O"},
		{ID: "ACETATE", SMILES: "CC(=O)O"},
		{ID: "WATER", SMILES: "[OH2]"},
	})
}

func TestCoreactantPool_Resolve(t *testing.T) {
	pool := samplePool()
	cmp := &chem.Compound{ID: "X", SMILES: "CCN"}
	water, _ := pool.Get("WATER")
	acetate, _ := pool.Get("ACETATE")

	cases := []struct {
		name      string
		reactants string
		want      []*chem.Compound
		ok        bool
	}{
		{"single token", "Any", []*chem.Compound{cmp}, true},
		{"single coreactant token", "WATER", []*chem.Compound{cmp}, true},
		{"compound first", "Any;WATER", []*chem.Compound{cmp, water}, true},
		{"compound last keeps order", "ACETATE;WATER;Any", []*chem.Compound{acetate, water, cmp}, true},
		{"compound twice", "Any;Any", []*chem.Compound{cmp, cmp}, true},
		{"unknown coreactant", "Any;ATP", nil, false},
		{"case sensitive", "Any;water", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			set := pool.Resolve(tc.reactants, cmp)
			assert.Equal(t, tc.ok, set.OK)
			assert.Equal(t, tc.want, set.Compounds)
		})
	}
}

func TestCoreactantPool_NilPoolReturnsCompound(t *testing.T) {
	var pool *chem.CoreactantPool
	cmp := &chem.Compound{ID: "X", SMILES: "CCN"}

	set := pool.Resolve("Any;WATER", cmp)
	require.True(t, set.OK)
	assert.Equal(t, []*chem.Compound{cmp}, set.Compounds)
	assert.Zero(t, pool.Len())
	assert.Nil(t, pool.Compounds())
}

func TestCoreactantPool_FirstDuplicateWins(t *testing.T) {
	pool := samplePool()
	w, ok := pool.Get("WATER")
	require.True(t, ok)
	assert.Equal(t, "O", w.SMILES)
	assert.Equal(t, 3, pool.Len())
	assert.Len(t, pool.Compounds(), 3)
}
